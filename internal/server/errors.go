package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grouprk/vdl/internal/core/backend"
	"github.com/grouprk/vdl/internal/core/relay"
)

const (
	connectionErrorMessage = "Could not connect to the backend server. Is it running?"
	internalErrorMessage   = "Internal Server Error"
	invalidBodyMessage     = "Request body must be valid JSON"
)

// errMissingDownloadURL is a 2xx backend resolution without a download_url
var errMissingDownloadURL = errors.New("No download URL received")

// ErrorResponse is the only error shape the API emits
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationError is a missing or malformed request field
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// apiHandler is a route body whose failures are normalized by wrap
type apiHandler func(c *gin.Context) error

// wrap is the single boundary between handlers and the client. Every returned
// error and every panic becomes an {error} body with a mapped status.
func wrap(h apiHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("api error: panic in %s: %v", c.Request.URL.Path, r)
				writeError(c, http.StatusInternalServerError, internalErrorMessage)
			}
		}()

		if err := h(c); err != nil {
			status, msg := mapError(err)
			writeError(c, status, msg)
		}
	}
}

// mapError translates the error taxonomy into a status and a safe message
func mapError(err error) (int, string) {
	var (
		validationErr *ValidationError
		rejection     *backend.RejectionError
		connErr       *backend.ConnectionError
		upstreamErr   *relay.UpstreamError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Message
	case errors.As(err, &rejection):
		return rejection.Status, rejection.Message
	case errors.As(err, &connErr):
		log.Printf("connection error: %v", connErr.Err)
		return http.StatusServiceUnavailable, connectionErrorMessage
	case errors.As(err, &upstreamErr):
		log.Printf("proxy download error: %v", upstreamErr)
		return upstreamErr.Status, upstreamErr.Message
	case errors.Is(err, errMissingDownloadURL):
		log.Printf("api error: %v", err)
		return http.StatusBadGateway, errMissingDownloadURL.Error()
	default:
		log.Printf("api error: %v", err)
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func writeError(c *gin.Context, status int, msg string) {
	if c.Writer.Written() {
		// Headers are gone; the client sees a truncated body.
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// bindJSON decodes the body into req. A field of the wrong type or a body that is
// not JSON gets its own message; anything else is a missing required field.
func bindJSON(c *gin.Context, req any, msg string) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		return &ValidationError{Message: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &ValidationError{Message: invalidBodyMessage}
	}
	return &ValidationError{Message: msg}
}
