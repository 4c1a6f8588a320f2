package delivery

import (
	"github.com/grouprk/vdl/internal/core/media"
)

const (
	genericSubmitError   = "Something went wrong. Please try again."
	genericDownloadError = "Download failed. Please try again."
)

// State is the whole client session
type State struct {
	URL            string
	IsLoading      bool
	IsDownloading  bool
	Info           *media.VideoInfo
	SelectedFormat string
	Error          string
	LastDelivery   *Outcome
}

// Action is one state transition applied by Reduce
type Action interface {
	isAction()
}

// SetURL records the text the user typed
type SetURL struct{ URL string }

// Submitted starts a new metadata submission and clears the previous result
type Submitted struct{}

// SubmitRejected is a local validation failure; nothing was sent
type SubmitRejected struct{ Err error }

// InfoRequested marks the metadata lookup as in flight
type InfoRequested struct{}

// InfoLoaded carries a successful metadata lookup
type InfoLoaded struct{ Info *media.VideoInfo }

// InfoFailed carries a failed metadata lookup
type InfoFailed struct{ Err error }

// SelectFormat is a user override of the default format
type SelectFormat struct{ FormatID string }

// DownloadStarted marks the download path as in flight
type DownloadStarted struct{}

// DownloadFinished ends the download path. Err is set only for resolution failures.
type DownloadFinished struct {
	Outcome *Outcome
	Err     error
}

func (SetURL) isAction()           {}
func (Submitted) isAction()        {}
func (SubmitRejected) isAction()   {}
func (InfoRequested) isAction()    {}
func (InfoLoaded) isAction()       {}
func (InfoFailed) isAction()       {}
func (SelectFormat) isAction()     {}
func (DownloadStarted) isAction()  {}
func (DownloadFinished) isAction() {}

// Reduce returns the state that results from applying a to s
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetURL:
		s.URL = a.URL
	case Submitted:
		s.Error = ""
		s.Info = nil
		s.SelectedFormat = ""
	case SubmitRejected:
		s.Error = errorMessage(a.Err, genericSubmitError)
	case InfoRequested:
		s.IsLoading = true
	case InfoLoaded:
		s.IsLoading = false
		s.Info = a.Info
		s.SelectedFormat = ""
		if a.Info != nil {
			s.SelectedFormat = media.SelectDefaultFormat(a.Info.Formats)
		}
	case InfoFailed:
		s.IsLoading = false
		s.Error = errorMessage(a.Err, genericSubmitError)
	case SelectFormat:
		if s.Info.HasFormat(a.FormatID) {
			s.SelectedFormat = a.FormatID
		}
	case DownloadStarted:
		s.IsDownloading = true
		s.Error = ""
		s.LastDelivery = nil
	case DownloadFinished:
		s.IsDownloading = false
		s.LastDelivery = a.Outcome
		if a.Err != nil {
			s.Error = errorMessage(a.Err, genericDownloadError)
		}
	}
	return s
}

// CanDownload reports whether the download control is enabled
func (s State) CanDownload() bool {
	return !s.IsDownloading && s.Info != nil && s.SelectedFormat != ""
}

// Snapshot captures what the download path needs at click time
func (s State) Snapshot() Snapshot {
	snap := Snapshot{URL: s.URL, FormatID: s.SelectedFormat}
	if s.Info != nil {
		snap.Title = s.Info.Title
	}
	return snap
}

// Snapshot is the immutable input of one download attempt
type Snapshot struct {
	URL      string
	FormatID string
	Title    string
}

func errorMessage(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
