package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalArchiveStore keeps receipt copies on the local filesystem
type LocalArchiveStore struct {
	basePath string
}

// NewLocalArchiveStore creates a local archive rooted at basePath
func NewLocalArchiveStore(basePath string) (*LocalArchiveStore, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", basePath, err)
	}
	return &LocalArchiveStore{basePath: basePath}, nil
}

// Name identifies the store in logs.
func (f *LocalArchiveStore) Name() string {
	return "local"
}

// Put writes the receipt below the base path.
func (f *LocalArchiveStore) Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	key = strings.TrimPrefix(filepath.Clean("/"+key), "/")
	fullPath := filepath.Join(f.basePath, key)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	if written != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, wrote %d bytes", size, written)
	}
	return fullPath, nil
}

// FallbackArchiveStore writes to primary and falls back on error
type FallbackArchiveStore struct {
	primary  ArchiveStore
	fallback ArchiveStore
	logger   *zap.Logger
}

// NewFallbackArchiveStore wraps primary with a fallback store
func NewFallbackArchiveStore(primary, fallback ArchiveStore, logger *zap.Logger) *FallbackArchiveStore {
	return &FallbackArchiveStore{primary: primary, fallback: fallback, logger: logger}
}

// Name identifies the store in logs.
func (s *FallbackArchiveStore) Name() string {
	return s.primary.Name() + "+" + s.fallback.Name()
}

// Put tries the primary store first. The reader must be seekable for the
// fallback to run.
func (s *FallbackArchiveStore) Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	location, err := s.primary.Put(ctx, key, reader, contentType, size)
	if err == nil {
		return location, nil
	}

	s.logger.Warn("primary archive failed, using fallback",
		zap.String("primary", s.primary.Name()),
		zap.Error(err))

	seeker, ok := reader.(io.Seeker)
	if !ok {
		return "", fmt.Errorf("primary archive failed and reader cannot be rewound: %w", err)
	}
	if _, seekErr := seeker.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("primary archive failed and reader cannot be rewound: %w", err)
	}
	return s.fallback.Put(ctx, key, reader, contentType, size)
}
