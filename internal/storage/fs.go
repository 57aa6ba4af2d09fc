package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
)

// FSStore stores blobs on the local filesystem under root/<ownerID>/<path>.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// abs resolves an owner-relative path, rejecting traversal outside the
// owner's directory.
func (s *FSStore) abs(ownerID, relPath string) (string, error) {
	if ownerID == "" || strings.ContainsAny(ownerID, `/\`) {
		return "", fmt.Errorf("invalid owner id: %w", domain.ErrValidation)
	}

	ownerRoot := filepath.Join(s.root, ownerID)
	target := filepath.Join(ownerRoot, filepath.FromSlash(relPath))

	rel, err := filepath.Rel(ownerRoot, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes owner root: %w", domain.ErrValidation)
	}

	return target, nil
}

func (s *FSStore) Write(ownerID, path string, data []byte) error {
	target, err := s.abs(ownerID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w: %v", domain.ErrStorage, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w: %v", path, domain.ErrStorage, err)
	}
	return nil
}

func (s *FSStore) Read(ownerID, path string) ([]byte, error) {
	target, err := s.abs(ownerID, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read blob %s: %w: %v", path, domain.ErrStorage, err)
	}
	return data, nil
}

func (s *FSStore) Delete(ownerID, path string) error {
	target, err := s.abs(ownerID, path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("blob %s: %w", path, domain.ErrNotFound)
		}
		return fmt.Errorf("delete blob %s: %w: %v", path, domain.ErrStorage, err)
	}
	return nil
}

func (s *FSStore) Rename(ownerID, oldPath, newPath string) error {
	oldAbs, err := s.abs(ownerID, oldPath)
	if err != nil {
		return err
	}
	newAbs, err := s.abs(ownerID, newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w: %v", domain.ErrStorage, err)
	}
	if err := os.Rename(oldAbs, newAbs); err != nil {
		return fmt.Errorf("rename %s -> %s: %w: %v", oldPath, newPath, domain.ErrStorage, err)
	}
	return nil
}

func (s *FSStore) EnsureDir(ownerID, path string) error {
	target, err := s.abs(ownerID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("ensure directory %s: %w: %v", path, domain.ErrStorage, err)
	}
	return nil
}

func (s *FSStore) Exists(ownerID, path string) (bool, error) {
	target, err := s.abs(ownerID, path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w: %v", path, domain.ErrStorage, err)
	}
	return true, nil
}

func (s *FSStore) RemoveTree(ownerID, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("refusing to remove owner root: %w", domain.ErrValidation)
	}
	target, err := s.abs(ownerID, path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("remove tree %s: %w: %v", path, domain.ErrStorage, err)
	}
	return nil
}
