package media

import "strings"

// Platform is a presentation-only classification of a source URL
type Platform string

const (
	PlatformTikTok    Platform = "TikTok"
	PlatformInstagram Platform = "Instagram"
	PlatformFacebook  Platform = "Facebook"
	PlatformTwitter   Platform = "Twitter/X"
	PlatformUnknown   Platform = "Unknown"
)

var platformMarkers = []struct {
	platform Platform
	markers  []string
}{
	{PlatformTikTok, []string{"tiktok.com"}},
	{PlatformInstagram, []string{"instagram.com"}},
	{PlatformFacebook, []string{"facebook.com", "fb.watch"}},
	{PlatformTwitter, []string{"twitter.com", "x.com"}},
}

// DetectPlatform classifies a URL by substring matching against known host markers.
// The result is never sent to the backend.
func DetectPlatform(rawURL string) Platform {
	for _, p := range platformMarkers {
		for _, m := range p.markers {
			if strings.Contains(rawURL, m) {
				return p.platform
			}
		}
	}
	return PlatformUnknown
}

// Supported reports whether submissions for p may reach the network
func (p Platform) Supported() bool {
	return p != PlatformUnknown && p != ""
}
