// Package storage keeps exported documents on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
)

// LocalFileStorage implements port.FileStorage below a base directory.
// References are slash-separated paths relative to that directory.
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) port.FileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content atomically: readers see the old file or the new one, never a partial write
func (s *LocalFileStorage) Save(ctx context.Context, ref string, content []byte) error {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("Failed to create report directory", zap.String("path", dir), zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		s.logger.Error("Failed to store file", zap.String("ref", ref), zap.Error(err))
		return fmt.Errorf("failed to store %s: %w", ref, err)
	}

	s.logger.Debug("File stored", zap.String("ref", ref), zap.Int("size", len(content)))
	return nil
}

// Read returns the content of ref; a missing file is a NotFoundError
func (s *LocalFileStorage) Read(ctx context.Context, ref string) ([]byte, error) {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperror.NotFound("storage", "%s not found", ref)
	}
	if err != nil {
		s.logger.Error("Failed to read file", zap.String("ref", ref), zap.Error(err))
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return content, nil
}

// Exists reports whether ref names a regular file
func (s *LocalFileStorage) Exists(ctx context.Context, ref string) bool {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes ref; deleting a missing file succeeds
func (s *LocalFileStorage) Delete(ctx context.Context, ref string) error {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Failed to delete file", zap.String("ref", ref), zap.Error(err))
		return fmt.Errorf("failed to delete %s: %w", ref, err)
	}
	return nil
}

// GetFullPath converts a reference to its filesystem path
func (s *LocalFileStorage) GetFullPath(ref string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(ref))
}

// resolve maps ref below baseDir and rejects references escaping it
func (s *LocalFileStorage) resolve(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", apperror.Validation("storage", "empty file reference")
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(s.GetFullPath(ref))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", apperror.Validation("storage", "reference %q escapes the storage directory", ref)
	}
	return absPath, nil
}
