package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Stdin is the path that selects standard input in ReadInput.
const Stdin = "-"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ReadInput reads the whole file at path, or standard input for "" and "-".
func ReadInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == Stdin {
		return io.ReadAll(stdin)
	}
	fullPath, _, err := GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

// WithExt swaps the extension of path for ext, which includes the dot.
func WithExt(path, ext string) string {
	old := filepath.Ext(path)
	if old == "" {
		return path + ext
	}
	return strings.TrimSuffix(path, old) + ext
}

// CreateOutput opens path for writing, or returns stdout for "" and "-".
// The returned close function is always safe to call.
func CreateOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == Stdin {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
