package registry

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDir returns the per-user registry directory for this platform:
// %LOCALAPPDATA%\HoudiniMCP\instances on Windows and
// $XDG_DATA_HOME/houdinimcp/instances (default ~/.local/share) elsewhere.
func DefaultDir() string {
	return dirFor(runtime.GOOS, os.Getenv)
}

func dirFor(goos string, getenv func(string) string) string {
	home, _ := os.UserHomeDir()
	if goos == "windows" {
		base := getenv("LOCALAPPDATA")
		if base == "" {
			base = home
		}
		return filepath.Join(base, "HoudiniMCP", "instances")
	}
	base := getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "houdinimcp", "instances")
}
