package appdir

import (
	"fmt"
	"os"
	"path"
	"sync"
)

var (
	appDirOnce  sync.Once
	appDirCache string
)

// AppDir is $HOME/.vnic-go, or ./.vnic-go when the home directory is unknown.
func AppDir() string {
	appDirOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		appDirCache = path.Join(home, ".vnic-go")
	})
	return appDirCache
}

// EnsureDir creates AppDir if missing.
func EnsureDir() error {
	dir := AppDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("appdir: creating %s: %w", dir, err)
	}
	return nil
}
