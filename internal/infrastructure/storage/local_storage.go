package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	attachmentapp "github.com/partdb/backend/internal/application/attachment"
	infraconfig "github.com/partdb/backend/internal/infrastructure/config"
)

var _ attachmentapp.ObjectStorage = (*LocalObjectStorage)(nil)

// LocalObjectStorage stores attachment files below a directory on disk.
// Downloads are streamed by the API because there is no presigned URL.
type LocalObjectStorage struct {
	root   string
	logger *zap.Logger
}

// NewLocalObjectStorage creates the storage, creating root if necessary
func NewLocalObjectStorage(root string, logger *zap.Logger) (*LocalObjectStorage, error) {
	if root == "" {
		return nil, errors.New("storage path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}
	return &LocalObjectStorage{root: abs, logger: logger}, nil
}

// path maps key to a file below root, refusing keys that escape it
func (s *LocalObjectStorage) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if p != s.root && !strings.HasPrefix(p, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage key %q leaves the storage directory", key)
	}
	return p, nil
}

// Put writes r to key. The file is written to a temporary name first so
// readers never see partial content.
func (s *LocalObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("move file: %w", err)
	}
	s.logger.Debug("Stored file", zap.String("key", key))
	return nil
}

// Open opens the file of key
func (s *LocalObjectStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, attachmentapp.ErrObjectNotFound
	}
	return f, err
}

// DownloadURL returns an empty URL; local files are streamed
func (s *LocalObjectStorage) DownloadURL(context.Context, string, time.Duration) (string, time.Time, error) {
	return "", time.Time{}, nil
}

// Delete removes the file of key. Missing files are ignored.
func (s *LocalObjectStorage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Exists checks if the file of key exists
func (s *LocalObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Backend returns "local"
func (s *LocalObjectStorage) Backend() string { return "local" }

// NewObjectStorage creates the storage selected by cfg.Backend
func NewObjectStorage(ctx context.Context, cfg infraconfig.StorageConfig, logger *zap.Logger) (attachmentapp.ObjectStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", "local":
		return NewLocalObjectStorage(cfg.LocalPath, logger)
	case "s3":
		s, err := NewS3ObjectStorage(&cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
