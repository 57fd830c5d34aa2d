package popup

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openDir reveals dir in the platform file manager. Start, not Run:
// the opener may outlive the panel.
func openDir(dir string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", dir)
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err != nil {
			return fmt.Errorf("no opener: install xdg-utils")
		}
		cmd = exec.Command("xdg-open", dir)
	case "windows":
		cmd = exec.Command("explorer", dir)
	default:
		return fmt.Errorf("open not supported on %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}

	return nil
}
