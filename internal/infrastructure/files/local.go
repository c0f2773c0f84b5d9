package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEmpty      = errors.New("storage: path cannot be empty")
	ErrPathTraversal  = errors.New("storage: path traversal not allowed")
	ErrPathNotAllowed = errors.New("storage: path not in allowed directories")
	ErrPathIsRoot     = errors.New("storage: refusing to delete a filesystem root")
)

// LocalFileManager checks and deletes output artifacts on the local disk
type LocalFileManager struct {
	allowedRoots []string
}

// NewLocalFileManager restricts deletions to allowedRoots when any are given
func NewLocalFileManager(allowedRoots ...string) *LocalFileManager {
	roots := make([]string, 0, len(allowedRoots))
	for _, r := range allowedRoots {
		if r == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		roots = append(roots, filepath.Clean(abs)+string(filepath.Separator))
	}
	return &LocalFileManager{allowedRoots: roots}
}

// FileExist reports whether path exists as a file or directory
func (f *LocalFileManager) FileExist(path string) (bool, error) {
	if path == "" {
		return false, ErrPathEmpty
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// DeleteFile removes path, recursively for trace directories
func (f *LocalFileManager) DeleteFile(path string) error {
	cleanPath, err := f.validatePath(path)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(cleanPath); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// validatePath ensures the path is safe to delete
func (f *LocalFileManager) validatePath(path string) (string, error) {
	if path == "" {
		return "", ErrPathEmpty
	}

	// Parent segments are only refused when deletions are confined to roots
	if len(f.allowedRoots) > 0 && hasParentSegment(path) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	cleanPath := filepath.Clean(abs)

	if cleanPath == filepath.VolumeName(cleanPath)+string(filepath.Separator) {
		return "", ErrPathIsRoot
	}

	if len(f.allowedRoots) == 0 {
		return cleanPath, nil
	}
	for _, root := range f.allowedRoots {
		if strings.HasPrefix(cleanPath+string(filepath.Separator), root) && cleanPath+string(filepath.Separator) != root {
			return cleanPath, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
}

func hasParentSegment(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
