package media

// VideoInfo contains the metadata the backend returns for a URL
type VideoInfo struct {
	Title     string       `json:"title"`
	Thumbnail *string      `json:"thumbnail"`
	Platform  Platform     `json:"platform,omitempty"`
	Duration  *int         `json:"duration"`
	Formats   []FormatInfo `json:"formats"`
}

// FormatInfo is one downloadable variant of a video
type FormatInfo struct {
	FormatID       string `json:"format_id"`
	Ext            string `json:"ext"`
	Resolution     string `json:"resolution"`
	Filesize       *int64 `json:"filesize"`
	FilesizeApprox *int64 `json:"filesize_approx"`
	URL            string `json:"url,omitempty"`
	HasAudio       bool   `json:"has_audio"`
	HasVideo       bool   `json:"has_video"`
}

// ResolvedDownload is a direct, usually time-limited, media link for one format.
// It is fetched fresh per download attempt and never cached.
type ResolvedDownload struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename,omitempty"`
}

// InfoRequest is the body of POST /api/info
type InfoRequest struct {
	URL string `json:"url" binding:"required"`
}

// DownloadRequest is the body of POST /api/download
type DownloadRequest struct {
	URL      string `json:"url" binding:"required"`
	FormatID string `json:"format_id" binding:"required"`
}

// StreamRequest is the body of POST /api/download/stream
type StreamRequest struct {
	URL      string `json:"url" binding:"required"`
	FormatID string `json:"format_id" binding:"required"`
	Filename string `json:"filename,omitempty"`
}

// RelayRequest is the body of POST /api/proxy-download
type RelayRequest struct {
	VideoURL string `json:"video_url" binding:"required"`
	Filename string `json:"filename,omitempty"`
}

// Size returns the exact size when known, else the estimate, else 0
func (f FormatInfo) Size() int64 {
	if f.Filesize != nil && *f.Filesize > 0 {
		return *f.Filesize
	}
	if f.FilesizeApprox != nil {
		return *f.FilesizeApprox
	}
	return 0
}

// HasFormat reports whether id names one of the formats
func (v *VideoInfo) HasFormat(id string) bool {
	if v == nil {
		return false
	}
	for _, f := range v.Formats {
		if f.FormatID == id {
			return true
		}
	}
	return false
}
