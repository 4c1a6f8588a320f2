package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/grouprk/vdl/internal/core/media"
)

var (
	// ErrEmptyURL blocks a submission before any network call
	ErrEmptyURL = errors.New("Please paste a valid video link.")
	// ErrUnsupportedPlatform blocks a submission before any network call
	ErrUnsupportedPlatform = errors.New("Unsupported platform. Please use TikTok, Instagram, Facebook, or Twitter.")
	// ErrMissingDownloadURL is a 2xx resolution without a download_url
	ErrMissingDownloadURL = errors.New("No download URL received")
)

// Resolver is the metadata and direct-URL resolver pair
type Resolver interface {
	Info(ctx context.Context, url string) (*media.VideoInfo, error)
	Resolve(ctx context.Context, url, formatID string) (*media.ResolvedDownload, error)
}

// Fetcher retrieves media bytes from the client side
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Sink materializes fetched bytes as a saved file
type Sink interface {
	Save(name string, r io.Reader) (path string, n int64, err error)
}

// Navigator hands a URL to the browser or platform, which decides how to deliver it
type Navigator interface {
	Navigate(ctx context.Context, url, filename string) error
}

// Method is the delivery strategy that ended an attempt
type Method string

const (
	MethodForced     Method = "forced"
	MethodNavigation Method = "navigation"
)

// Outcome describes a finished delivery. It never carries a user-visible error.
type Outcome struct {
	Method   Method
	Filename string
	Path     string
	Bytes    int64
	URL      string

	// NavigationErr is set when the navigation fallback could not hand off URL
	NavigationErr error
}

// Delivered is a successful forced download
type Delivered struct {
	Path  string
	Bytes int64
}

// RecoverableFailure is a forced download failure that the navigation fallback absorbs
type RecoverableFailure struct {
	Err error
}

func (f *RecoverableFailure) Error() string {
	return f.Err.Error()
}

// Engine runs the metadata and delivery paths
type Engine struct {
	resolver  Resolver
	fetcher   Fetcher
	sink      Sink
	navigator Navigator
}

// NewEngine wires the collaborators of the delivery pipeline
func NewEngine(resolver Resolver, fetcher Fetcher, sink Sink, navigator Navigator) *Engine {
	return &Engine{
		resolver:  resolver,
		fetcher:   fetcher,
		sink:      sink,
		navigator: navigator,
	}
}

// Validate checks a submission locally
func Validate(url string) error {
	if strings.TrimSpace(url) == "" {
		return ErrEmptyURL
	}
	if !media.DetectPlatform(url).Supported() {
		return ErrUnsupportedPlatform
	}
	return nil
}

// Lookup performs the metadata request and returns the action that ends it
func (e *Engine) Lookup(ctx context.Context, url string) Action {
	info, err := e.resolver.Info(ctx, url)
	if err != nil {
		return InfoFailed{Err: err}
	}
	info.Platform = media.DetectPlatform(url)
	return InfoLoaded{Info: info}
}

// Submit runs a complete metadata submission for the current URL
func (e *Engine) Submit(ctx context.Context, s State) State {
	s = Reduce(s, Submitted{})
	if err := Validate(s.URL); err != nil {
		return Reduce(s, SubmitRejected{Err: err})
	}
	s = Reduce(s, InfoRequested{})
	return Reduce(s, e.Lookup(ctx, s.URL))
}

// Deliver resolves the snapshot's format and delivers it
func (e *Engine) Deliver(ctx context.Context, snap Snapshot) DownloadFinished {
	resolved, err := e.resolver.Resolve(ctx, snap.URL, snap.FormatID)
	if err != nil {
		return DownloadFinished{Err: err}
	}
	if resolved.DownloadURL == "" {
		return DownloadFinished{Err: ErrMissingDownloadURL}
	}

	filename := resolved.Filename
	if filename == "" {
		filename = snap.Title + ".mp4"
	}

	outcome := e.deliver(ctx, resolved.DownloadURL, filename)
	return DownloadFinished{Outcome: &outcome}
}

// Download runs the download path for the current selection. It is a no-op
// without video info or a selected format.
func (e *Engine) Download(ctx context.Context, s State) State {
	if s.Info == nil || s.SelectedFormat == "" {
		return s
	}
	snap := s.Snapshot()
	s = Reduce(s, DownloadStarted{})
	return Reduce(s, e.Deliver(ctx, snap))
}

func (e *Engine) deliver(ctx context.Context, url, filename string) Outcome {
	delivered, failure := e.attemptForcedDownload(ctx, url, filename)
	if failure == nil {
		return Outcome{
			Method:   MethodForced,
			Filename: filename,
			Path:     delivered.Path,
			Bytes:    delivered.Bytes,
			URL:      url,
		}
	}

	log.Printf("warning: forced download failed, falling back to direct link: %v", failure)
	out := Outcome{Method: MethodNavigation, Filename: filename, URL: url}
	if err := e.navigator.Navigate(ctx, url, filename); err != nil {
		log.Printf("warning: navigation failed: %v", err)
		out.NavigationErr = err
	}
	return out
}

func (e *Engine) attemptForcedDownload(ctx context.Context, url, filename string) (Delivered, *RecoverableFailure) {
	body, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return Delivered{}, &RecoverableFailure{Err: err}
	}
	defer body.Close()

	path, n, err := e.sink.Save(filename, body)
	if err != nil {
		return Delivered{}, &RecoverableFailure{Err: err}
	}
	return Delivered{Path: path, Bytes: n}, nil
}

// HTTPFetcher fetches media directly, the way a browser fetch() would
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch returns the body of a 2xx response
func (f HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("network response was not ok: %d", resp.StatusCode)
	}
	return resp.Body, nil
}
