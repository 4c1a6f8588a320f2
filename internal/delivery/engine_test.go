package delivery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grouprk/vdl/internal/core/media"
)

type fakeResolver struct {
	info       *media.VideoInfo
	infoErr    error
	resolved   *media.ResolvedDownload
	resolveErr error

	infoCalls    int
	resolveCalls int
	lastFormat   string
}

func (f *fakeResolver) Info(ctx context.Context, url string) (*media.VideoInfo, error) {
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	info := *f.info
	return &info, nil
}

func (f *fakeResolver) Resolve(ctx context.Context, url, formatID string) (*media.ResolvedDownload, error) {
	f.resolveCalls++
	f.lastFormat = formatID
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.resolved, nil
}

type fakeFetcher struct {
	body  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type fakeNavigator struct {
	calls    int
	url      string
	filename string
	err      error
}

func (n *fakeNavigator) Navigate(ctx context.Context, url, filename string) error {
	n.calls++
	n.url = url
	n.filename = filename
	return n.err
}

func testInfo() *media.VideoInfo {
	return &media.VideoInfo{
		Title: "clip",
		Formats: []media.FormatInfo{
			{FormatID: "a", HasAudio: false},
			{FormatID: "b", HasAudio: true},
		},
	}
}

func readyState() State {
	return State{
		URL:            "https://www.tiktok.com/@u/video/1",
		Info:           testInfo(),
		SelectedFormat: "b",
	}
}

func TestSubmitLoadsInfoAndSelectsDefault(t *testing.T) {
	res := &fakeResolver{info: testInfo()}
	e := NewEngine(res, &fakeFetcher{}, FileSink{Dir: t.TempDir()}, &fakeNavigator{})

	s := e.Submit(context.Background(), State{URL: "https://www.tiktok.com/@u/video/1"})

	if s.Error != "" {
		t.Fatalf("Expected no error, got %q", s.Error)
	}
	if s.IsLoading {
		t.Error("Expected loading flag to be cleared")
	}
	if s.Info == nil || s.Info.Platform != media.PlatformTikTok {
		t.Errorf("Expected TikTok info, got %+v", s.Info)
	}
	if s.SelectedFormat != "b" {
		t.Errorf("Expected default format b, got %q", s.SelectedFormat)
	}
}

func TestSubmitRejectsLocally(t *testing.T) {
	tests := []struct {
		url  string
		want error
	}{
		{"", ErrEmptyURL},
		{"   ", ErrEmptyURL},
		{"https://randomsite.com/x", ErrUnsupportedPlatform},
	}

	for _, tt := range tests {
		res := &fakeResolver{info: testInfo()}
		e := NewEngine(res, &fakeFetcher{}, FileSink{}, &fakeNavigator{})

		s := e.Submit(context.Background(), State{URL: tt.url, Info: testInfo(), SelectedFormat: "a"})
		if s.Error != tt.want.Error() {
			t.Errorf("URL %q: expected error %q, got %q", tt.url, tt.want, s.Error)
		}
		if res.infoCalls != 0 {
			t.Errorf("URL %q: expected no network call, got %d", tt.url, res.infoCalls)
		}
		if s.Info != nil || s.SelectedFormat != "" {
			t.Errorf("URL %q: expected previous result to be cleared", tt.url)
		}
	}
}

func TestSubmitSurfacesLookupError(t *testing.T) {
	res := &fakeResolver{infoErr: errors.New("Unsupported URL")}
	e := NewEngine(res, &fakeFetcher{}, FileSink{}, &fakeNavigator{})

	s := e.Submit(context.Background(), State{URL: "https://x.com/u/status/1"})
	if s.Error != "Unsupported URL" {
		t.Errorf("Expected backend message, got %q", s.Error)
	}
	if s.IsLoading {
		t.Error("Expected loading flag to be cleared")
	}
}

func TestDownloadForced(t *testing.T) {
	dir := t.TempDir()
	res := &fakeResolver{resolved: &media.ResolvedDownload{DownloadURL: "https://cdn.example/v.mp4"}}
	fetcher := &fakeFetcher{body: "video-bytes"}
	nav := &fakeNavigator{}
	e := NewEngine(res, fetcher, FileSink{Dir: dir}, nav)

	s := e.Download(context.Background(), readyState())

	if s.Error != "" {
		t.Fatalf("Expected no error, got %q", s.Error)
	}
	if s.IsDownloading {
		t.Error("Expected downloading flag to be cleared")
	}
	if res.lastFormat != "b" {
		t.Errorf("Expected format b to be resolved, got %q", res.lastFormat)
	}
	if nav.calls != 0 {
		t.Errorf("Expected no navigation, got %d", nav.calls)
	}
	if s.LastDelivery == nil || s.LastDelivery.Method != MethodForced {
		t.Fatalf("Expected forced delivery, got %+v", s.LastDelivery)
	}

	data, err := os.ReadFile(filepath.Join(dir, "clip.mp4"))
	if err != nil {
		t.Fatalf("Expected clip.mp4 to be written: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("Unexpected file content %q", data)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".vdl-*"))
	if len(leftovers) != 0 {
		t.Errorf("Expected temporary files to be released, found %v", leftovers)
	}
}

func TestDownloadUsesBackendFilename(t *testing.T) {
	dir := t.TempDir()
	res := &fakeResolver{resolved: &media.ResolvedDownload{DownloadURL: "https://cdn.example/v.mp4", Filename: "named.mp4"}}
	e := NewEngine(res, &fakeFetcher{body: "x"}, FileSink{Dir: dir}, &fakeNavigator{})

	s := e.Download(context.Background(), readyState())
	if s.LastDelivery == nil || s.LastDelivery.Filename != "named.mp4" {
		t.Fatalf("Expected named.mp4, got %+v", s.LastDelivery)
	}
	if _, err := os.Stat(filepath.Join(dir, "named.mp4")); err != nil {
		t.Errorf("Expected named.mp4 to exist: %v", err)
	}
}

func TestDownloadFallsBackToNavigation(t *testing.T) {
	res := &fakeResolver{resolved: &media.ResolvedDownload{DownloadURL: "https://cdn.example/v.mp4"}}
	fetcher := &fakeFetcher{err: errors.New("blocked by CORS")}
	nav := &fakeNavigator{}
	e := NewEngine(res, fetcher, FileSink{Dir: t.TempDir()}, nav)

	s := e.Download(context.Background(), readyState())

	if nav.calls != 1 {
		t.Fatalf("Expected exactly one navigation, got %d", nav.calls)
	}
	if nav.url != "https://cdn.example/v.mp4" || nav.filename != "clip.mp4" {
		t.Errorf("Unexpected navigation target %q %q", nav.url, nav.filename)
	}
	if s.Error != "" {
		t.Errorf("Expected no user-visible error, got %q", s.Error)
	}
	if s.LastDelivery == nil || s.LastDelivery.Method != MethodNavigation {
		t.Errorf("Expected navigation delivery, got %+v", s.LastDelivery)
	}
}

func TestDownloadNavigationErrorStaysSilent(t *testing.T) {
	res := &fakeResolver{resolved: &media.ResolvedDownload{DownloadURL: "https://cdn.example/v.mp4"}}
	nav := &fakeNavigator{err: errors.New("no browser")}
	e := NewEngine(res, &fakeFetcher{err: errors.New("denied")}, FileSink{}, nav)

	s := e.Download(context.Background(), readyState())
	if s.Error != "" {
		t.Errorf("Expected no user-visible error, got %q", s.Error)
	}
	if s.LastDelivery == nil || s.LastDelivery.Method != MethodNavigation {
		t.Fatalf("Expected navigation delivery, got %+v", s.LastDelivery)
	}
	if s.LastDelivery.NavigationErr == nil {
		t.Error("Expected the navigation failure to be recorded on the outcome")
	}
	if s.LastDelivery.URL != "https://cdn.example/v.mp4" {
		t.Errorf("Expected the raw URL on the outcome, got %q", s.LastDelivery.URL)
	}
}

func TestDownloadMissingURL(t *testing.T) {
	res := &fakeResolver{resolved: &media.ResolvedDownload{}}
	fetcher := &fakeFetcher{body: "x"}
	nav := &fakeNavigator{}
	e := NewEngine(res, fetcher, FileSink{}, nav)

	s := e.Download(context.Background(), readyState())

	if s.Error != ErrMissingDownloadURL.Error() {
		t.Errorf("Expected %q, got %q", ErrMissingDownloadURL, s.Error)
	}
	if fetcher.calls != 0 || nav.calls != 0 {
		t.Errorf("Expected no delivery attempt, got fetch=%d nav=%d", fetcher.calls, nav.calls)
	}
	if s.IsDownloading {
		t.Error("Expected downloading flag to be cleared")
	}
}

func TestDownloadResolutionError(t *testing.T) {
	res := &fakeResolver{resolveErr: errors.New("Requested format is not available")}
	fetcher := &fakeFetcher{}
	e := NewEngine(res, fetcher, FileSink{}, &fakeNavigator{})

	s := e.Download(context.Background(), readyState())
	if s.Error != "Requested format is not available" {
		t.Errorf("Unexpected error %q", s.Error)
	}
	if fetcher.calls != 0 {
		t.Error("Expected no fetch after a resolution failure")
	}
}

func TestDownloadNoSelectionIsNoop(t *testing.T) {
	res := &fakeResolver{}
	e := NewEngine(res, &fakeFetcher{}, FileSink{}, &fakeNavigator{})

	s := readyState()
	s.SelectedFormat = ""
	got := e.Download(context.Background(), s)
	if res.resolveCalls != 0 {
		t.Error("Expected no resolution without a selected format")
	}
	if got.IsDownloading {
		t.Error("Expected state to be unchanged")
	}

	e.Download(context.Background(), State{SelectedFormat: "a"})
	if res.resolveCalls != 0 {
		t.Error("Expected no resolution without video info")
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	body, err := HTTPFetcher{}.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "bytes" {
		t.Errorf("Unexpected body %q", data)
	}

	if _, err := (HTTPFetcher{}).Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Expected error for 404")
	}
}
