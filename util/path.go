package util

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandUser replaces a leading ~ with the home directory.
func ExpandUser(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, path[1:])
}
