package media

import (
	"fmt"
	"strings"
)

// SelectDefaultFormat returns the first format carrying audio, falling back to the
// first format. It returns "" when there are no formats.
func SelectDefaultFormat(formats []FormatInfo) string {
	if len(formats) == 0 {
		return ""
	}
	for _, f := range formats {
		if f.HasAudio {
			return f.FormatID
		}
	}
	return formats[0].FormatID
}

// FormatFileSize renders a byte count as "1.5 MB" or "512 KB"
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return ""
	}
	mb := float64(bytes) / (1024 * 1024)
	if mb >= 1 {
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.0f KB", float64(bytes)/1024)
}

// FormatDuration renders seconds as m:ss
func FormatDuration(seconds *int) string {
	if seconds == nil || *seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", *seconds/60, *seconds%60)
}

// Label is the human description shown in format pickers
func (f FormatInfo) Label() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", f.Resolution, strings.ToUpper(f.Ext))
	if f.HasAudio {
		b.WriteString(" - with audio")
	} else {
		b.WriteString(" - no audio")
	}
	if size := FormatFileSize(f.Size()); size != "" {
		b.WriteString(" - " + size)
	}
	return b.String()
}
