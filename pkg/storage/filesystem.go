package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxAssetSize bounds how much of a stored asset is read into memory.
const MaxAssetSize = 5 << 20

// ErrOutsideBase is returned for references escaping the storage directory.
var ErrOutsideBase = errors.New("path escapes storage directory")

// LocalStorage reads uploaded assets (applicant photos) from a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage returns a handle rooted at baseDir. The directory need not exist yet.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

func (s *LocalStorage) open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	return file, nil
}

// ReadAll loads a stored asset, refusing files larger than MaxAssetSize.
func (s *LocalStorage) ReadAll(filename string) ([]byte, error) {
	file, err := s.open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(file, MaxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if len(data) > MaxAssetSize {
		return nil, fmt.Errorf("asset %s exceeds %d bytes", filename, MaxAssetSize)
	}
	return data, nil
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(filename)))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("empty asset reference")
	}
	path := clean
	if !filepath.IsAbs(clean) {
		path = filepath.Join(s.baseDir, clean)
	}
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideBase
	}
	return path, nil
}
