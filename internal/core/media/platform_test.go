package media

import "testing"

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://www.tiktok.com/@u/video/1", PlatformTikTok},
		{"https://vm.tiktok.com/ZMabc/", PlatformTikTok},
		{"https://www.instagram.com/reel/abc/", PlatformInstagram},
		{"https://www.facebook.com/watch?v=1", PlatformFacebook},
		{"https://fb.watch/xyz/", PlatformFacebook},
		{"https://twitter.com/u/status/1", PlatformTwitter},
		{"https://x.com/u/status/1", PlatformTwitter},
		{"https://randomsite.com/x", PlatformUnknown},
		{"", PlatformUnknown},
	}

	for _, tt := range tests {
		if got := DetectPlatform(tt.url); got != tt.want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestPlatformSupported(t *testing.T) {
	if PlatformUnknown.Supported() {
		t.Error("Unknown platform should not be supported")
	}
	if !PlatformTikTok.Supported() {
		t.Error("TikTok should be supported")
	}
}
