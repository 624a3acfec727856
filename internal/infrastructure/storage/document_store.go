package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// LocalDocumentStore implements port.DocumentStore on the local filesystem.
// Files land under <baseDir>/<requestID>/<fileName>.
type LocalDocumentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalDocumentStore creates a new LocalDocumentStore
func NewLocalDocumentStore(baseDir string, logger *zap.Logger) *LocalDocumentStore {
	return &LocalDocumentStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content and returns its relative path. An existing file with the same name is replaced.
func (s *LocalDocumentStore) Save(ctx context.Context, requestID, fileName string, content []byte) (string, error) {
	dir := SanitizeName(requestID)
	name := SanitizeName(fileName)
	if dir == "" || name == "" {
		return "", fmt.Errorf("invalid document name %q for request %q", fileName, requestID)
	}

	relPath := filepath.Join(dir, name)
	fullPath := s.fullPath(relPath)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create document directory",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write document",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Document saved",
		zap.String("path", relPath),
		zap.Int("size", len(content)))

	return relPath, nil
}

// Read returns the content stored at path
func (s *LocalDocumentStore) Read(ctx context.Context, path string) ([]byte, error) {
	fullPath := s.fullPath(path)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// Delete removes the file at path. Deleting a missing file succeeds.
func (s *LocalDocumentStore) Delete(ctx context.Context, path string) error {
	fullPath := s.fullPath(path)
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete document",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalDocumentStore) fullPath(relativePath string) string {
	return filepath.Join(s.baseDir, relativePath)
}

// validatePath checks that the path stays within baseDir
func (s *LocalDocumentStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// SanitizeName strips path separators, parent references and anything outside [A-Za-z0-9._-]
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	name = unsafeNameChars.ReplaceAllString(name, "")
	return strings.TrimLeft(name, ".")
}
