package server

import (
	"crypto/sha256"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "vdl_session"
	// SessionDuration is the duration for session tokens (24 hours)
	SessionDuration = 24 * time.Hour
	// APITokenDuration is the duration for API tokens (1 year)
	APITokenDuration = 365 * 24 * time.Hour

	tokenIssuer = "vdl"
)

// JWTClaims represents the claims in a JWT token
type JWTClaims struct {
	TokenType string         `json:"type"` // "session" or "api"
	Custom    map[string]any `json:"custom,omitempty"`
	jwt.RegisteredClaims
}

// GenerateTokenRequest is the request body for POST /api/auth/token
type GenerateTokenRequest struct {
	Payload map[string]any `json:"payload,omitempty"`
}

// deriveSigningKey stretches the configured api key into an HMAC key
func deriveSigningKey(apiKey string) []byte {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(apiKey), nil, []byte("vdl jwt signing key"))
	if _, err := io.ReadFull(r, key); err != nil {
		panic(err) // hkdf only fails past 255 blocks
	}
	return key
}

// GenerateAPIToken creates a long-lived bearer token for apiKey, as used by `vdl token`
func GenerateAPIToken(apiKey string, payload map[string]any) (string, error) {
	return signJWT(deriveSigningKey(apiKey), "api", APITokenDuration, payload)
}

func signJWT(key []byte, tokenType string, duration time.Duration, customPayload map[string]any) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		TokenType: tokenType,
		Custom:    customPayload,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// generateJWT creates a new JWT token signed with the derived key
func (s *Server) generateJWT(tokenType string, duration time.Duration, customPayload map[string]any) (string, error) {
	return signJWT(s.signingKey, tokenType, duration, customPayload)
}

// validateJWT validates a JWT token and returns the claims
func (s *Server) validateJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// jwtAuthMiddleware handles authentication via session cookie or Bearer token
func (s *Server) jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// Only API routes require auth
		if !strings.HasPrefix(path, "/api/") {
			c.Next()
			return
		}

		if path == "/api/health" || strings.HasPrefix(path, "/api/auth/") {
			c.Next()
			return
		}

		if s.apiKey == "" {
			c.Next()
			return
		}

		if cookie, err := c.Cookie(SessionCookieName); err == nil {
			if _, err := s.validateJWT(cookie); err == nil {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if token, found := strings.CutPrefix(authHeader, "Bearer "); found {
			if _, err := s.validateJWT(token); err == nil {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized: valid session or API token required",
		})
	}
}

// setSessionCookie sets a session cookie for browser clients
func (s *Server) setSessionCookie(c *gin.Context) {
	if s.apiKey == "" {
		return
	}

	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		if _, err := s.validateJWT(cookie); err == nil {
			return
		}
	}

	token, err := s.generateJWT("session", SessionDuration, nil)
	if err != nil {
		return // the page still loads; API calls will get 401
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		SessionCookieName,
		token,
		int(SessionDuration.Seconds()),
		"/",
		"",    // current domain
		false, // allow plain HTTP
		true,  // httpOnly
	)
}

// handleAuthStatus returns whether api_key is configured
func (s *Server) handleAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code: 200,
		Data: gin.H{
			"api_key_configured": s.apiKey != "",
		},
		Message: "auth status retrieved",
	})
}

// handleGenerateToken generates a new API token for external use.
// Always returns HTTP 200, with status indicated in response body.
func (s *Server) handleGenerateToken(c *gin.Context) {
	if s.apiKey == "" {
		c.JSON(http.StatusOK, Response{
			Code:    500,
			Data:    nil,
			Message: "API KEY is not configured",
		})
		return
	}

	// Only an existing session may mint API tokens
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		c.JSON(http.StatusOK, Response{Code: 401, Message: "session required"})
		return
	}
	if _, err := s.validateJWT(cookie); err != nil {
		c.JSON(http.StatusOK, Response{Code: 401, Message: "session required"})
		return
	}

	var req GenerateTokenRequest
	// payload is optional
	_ = c.ShouldBindJSON(&req)

	token, err := s.generateJWT("api", APITokenDuration, req.Payload)
	if err != nil {
		c.JSON(http.StatusOK, Response{
			Code:    500,
			Data:    nil,
			Message: "failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Code: 201,
		Data: gin.H{
			"jwt": token,
		},
		Message: "JWT Token generated",
	})
}
