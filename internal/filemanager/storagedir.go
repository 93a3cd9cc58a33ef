package filemanager

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// AppName is used for the data and config directory names.
const AppName = "arxivmcp"

// GetDefaultStorageDir returns the paper directory under the XDG data home.
func GetDefaultStorageDir() string {
	return filepath.Join(xdg.DataHome, AppName, "papers")
}

// ExpandPath expands environment variables and a leading "~" in path. The path is
// returned unchanged if the home directory cannot be determined.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
