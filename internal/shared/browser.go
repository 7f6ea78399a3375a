package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommand returns the launcher invocation that hands url to the
// platform's default browser.
func browserCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "cmd", []string{"/c", "start", url}, nil
	}
	return "", nil, fmt.Errorf("no browser launcher for %s", goos)
}

// OpenBrowser opens url in the default browser. The login flow uses this to
// hand off the consent page; on failure callers print the URL for the user
// to open manually.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	return nil
}
