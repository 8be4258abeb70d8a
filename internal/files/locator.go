package files

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileInfo represents information about a located file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Locator resolves dataset names under a base directory
type Locator struct {
	basePath string
}

// NewLocator creates a new locator rooted at basePath
func NewLocator(basePath string) *Locator {
	return &Locator{basePath: basePath}
}

// BasePath returns the directory names are resolved against
func (l *Locator) BasePath() string {
	return l.basePath
}

// Resolve returns the full path for name. Absolute names are returned as is.
func (l *Locator) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.basePath, name)
}

// Locate stats the file for name. found is false, with a nil error, when
// nothing exists at the path. A directory at the path is an error.
func (l *Locator) Locate(name string) (info FileInfo, found bool, err error) {
	path := l.Resolve(name)

	st, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FileInfo{}, false, nil
	}
	if err != nil {
		return FileInfo{}, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if st.IsDir() {
		return FileInfo{}, true, fmt.Errorf("%s is a directory, not a file", path)
	}

	return FileInfo{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    st.Size(),
		ModTime: st.ModTime(),
	}, true, nil
}

// Read loads the whole file for name
func (l *Locator) Read(name string) ([]byte, error) {
	path := l.Resolve(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// BaseExists reports whether the base directory exists
func (l *Locator) BaseExists() bool {
	st, err := os.Stat(l.basePath)
	return err == nil && st.IsDir()
}
