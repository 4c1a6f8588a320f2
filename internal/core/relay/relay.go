package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/grouprk/vdl/internal/core/config"
	"github.com/grouprk/vdl/internal/core/media"
)

const (
	// DefaultContentType is used when the CDN does not send one
	DefaultContentType = "video/mp4"
	// DefaultFilename is used when the caller does not name the download
	DefaultFilename = "video.mp4"

	fetchFailedMessage = "Failed to fetch video from source"
	proxyFailedMessage = "Failed to proxy download"
)

// DefaultReferers maps platforms to the referer their CDNs expect
var DefaultReferers = map[media.Platform]string{
	media.PlatformTikTok:    "https://www.tiktok.com/",
	media.PlatformInstagram: "https://www.instagram.com/",
	media.PlatformFacebook:  "https://www.facebook.com/",
	media.PlatformTwitter:   "https://x.com/",
}

// cdnDomains classifies CDN hosts, which rarely carry the platform's own domain.
// A host matches a domain exactly or as a subdomain of it.
var cdnDomains = []struct {
	platform media.Platform
	domains  []string
}{
	{media.PlatformTikTok, []string{"tiktok.com", "tiktokcdn.com", "tiktokcdn-us.com", "tiktokv.com", "byteoversea.com", "ibytedtos.com", "muscdn.com"}},
	{media.PlatformInstagram, []string{"cdninstagram.com", "instagram.com"}},
	{media.PlatformFacebook, []string{"fbcdn.net", "facebook.com", "fb.watch"}},
	{media.PlatformTwitter, []string{"twimg.com", "twitter.com", "x.com"}},
}

// UpstreamError is a failed second-hop fetch. Status is the CDN's own status code,
// or 500 when the CDN could not be reached at all.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Status, e.Err)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Media is a fully buffered CDN response
type Media struct {
	ContentType string
	Body        []byte
}

// Stream is an open CDN response. The caller must Close it.
type Stream struct {
	ContentType   string
	ContentLength int64
	Body          io.ReadCloser
}

// Close releases the upstream connection
func (s *Stream) Close() error {
	return s.Body.Close()
}

// Relay re-fetches media URLs with browser-like headers
type Relay struct {
	httpClient *http.Client
	userAgent  string
	referers   map[media.Platform]string
}

// New creates a relay from the relay section of the config
func New(cfg config.RelayConfig) *Relay {
	referers := make(map[media.Platform]string, len(DefaultReferers))
	for p, ref := range DefaultReferers {
		referers[p] = ref
	}
	for name, ref := range cfg.Referers {
		referers[media.Platform(name)] = ref
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}

	return &Relay{
		httpClient: &http.Client{
			Timeout: 0,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
		userAgent: ua,
		referers:  referers,
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (r *Relay) WithHTTPClient(hc *http.Client) *Relay {
	r.httpClient = hc
	return r
}

// RefererFor returns the referer sent when fetching videoURL.
// Unknown hosts get the TikTok referer.
func (r *Relay) RefererFor(videoURL string) string {
	u, err := url.Parse(videoURL)
	if err != nil {
		return r.referers[media.PlatformTikTok]
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, c := range cdnDomains {
		for _, d := range c.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return r.referers[c.platform]
			}
		}
	}
	return r.referers[media.PlatformTikTok]
}

// Fetch downloads videoURL completely into memory
func (r *Relay) Fetch(ctx context.Context, videoURL string) (*Media, error) {
	stream, err := r.Open(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	body, err := io.ReadAll(stream.Body)
	if err != nil {
		return nil, &UpstreamError{Status: http.StatusInternalServerError, Message: proxyFailedMessage, Err: err}
	}

	return &Media{ContentType: stream.ContentType, Body: body}, nil
}

// Open starts fetching videoURL and returns the response for streaming
func (r *Relay) Open(ctx context.Context, videoURL string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, &UpstreamError{Status: http.StatusInternalServerError, Message: proxyFailedMessage, Err: err}
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Referer", r.RefererFor(videoURL))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Status: http.StatusInternalServerError, Message: proxyFailedMessage, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &UpstreamError{Status: resp.StatusCode, Message: fetchFailedMessage}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}

	return &Stream{
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

// AttachmentDisposition builds a Content-Disposition that forces a download
func AttachmentDisposition(filename string) string {
	filename = strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(filename)
	if filename == "" {
		filename = DefaultFilename
	}
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}
