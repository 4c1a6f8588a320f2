package delivery

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// SystemBrowser opens URLs with the operating system's default handler
type SystemBrowser struct{}

// Navigate opens url in a new browser window. The filename cannot be enforced
// cross-origin, so the browser may play the media inline instead of saving it.
func (SystemBrowser) Navigate(ctx context.Context, url, filename string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return cmd.Process.Release()
}
