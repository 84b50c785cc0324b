package source

import (
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MapSource serves content from memory, keyed by path.
// It is safe for concurrent use by multiple goroutines.
type MapSource struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// NewMap creates a source backed by the given map. The map is not copied.
func NewMap(files map[string][]byte) *MapSource {
	if files == nil {
		files = make(map[string][]byte)
	}
	return &MapSource{files: files}
}

// Read implements ContentSource.
func (m *MapSource) Read(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return data, nil
}

// FileRecord describes one scanned file. The scan sets Empty for zero-byte
// files and loading refines it from content; records are immutable after that.
type FileRecord struct {
	Path    string    `json:"path" toon:"path"`       // absolute path
	RelPath string    `json:"relPath" toon:"relPath"` // slash-separated, relative to the scan root
	Ext     string    `json:"ext" toon:"ext"`
	Size    int64     `json:"size" toon:"size"`
	ModTime time.Time `json:"mtime" toon:"mtime"`
	Empty   bool      `json:"empty" toon:"empty"` // only whitespace once loaded
}

// JSExtensions lists the extensions treated as JavaScript-like source.
var JSExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}

// IsJSLike reports whether ext (with leading dot) is a JavaScript-like extension.
func IsJSLike(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range JSExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// IsTestPath reports whether rel follows a test location or naming convention:
// a __tests__, test or tests directory, or a .test./.spec. infix.
func IsTestPath(rel string) bool {
	rel = strings.ToLower(rel)
	for _, seg := range strings.Split(path.Dir(rel), "/") {
		switch seg {
		case "__tests__", "test", "tests", "__mocks__":
			return true
		}
	}
	base := path.Base(rel)
	return strings.Contains(base, ".test.") || strings.Contains(base, ".spec.")
}

// Stem returns the base name of rel without its extension.
func Stem(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}
