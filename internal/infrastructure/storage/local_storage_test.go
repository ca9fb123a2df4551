package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attachmentapp "github.com/partdb/backend/internal/application/attachment"
	"github.com/partdb/backend/internal/infrastructure/config"
)

func TestLocalObjectStorage_PutOpenDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalObjectStorage(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "ab/cd/file.txt", strings.NewReader("hello"), 5, "text/plain"))
	_, err = os.Stat(filepath.Join(dir, "ab", "cd", "file.txt"))
	require.NoError(t, err)

	exists, err := s.Exists(ctx, "ab/cd/file.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := s.Open(ctx, "ab/cd/file.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	url, _, err := s.DownloadURL(ctx, "ab/cd/file.txt", 0)
	require.NoError(t, err)
	assert.Empty(t, url, "local files are streamed")

	require.NoError(t, s.Delete(ctx, "ab/cd/file.txt"))
	require.NoError(t, s.Delete(ctx, "ab/cd/file.txt"), "deleting twice is fine")

	_, err = s.Open(ctx, "ab/cd/file.txt")
	assert.ErrorIs(t, err, attachmentapp.ErrObjectNotFound)
}

func TestLocalObjectStorage_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalObjectStorage(t.TempDir(), nil)
	require.NoError(t, err)

	err = s.Put(context.Background(), "../outside.txt", strings.NewReader("x"), 1, "")
	assert.ErrorContains(t, err, "leaves the storage directory")

	_, err = s.Exists(context.Background(), "")
	assert.Error(t, err)
}

func TestNewObjectStorage(t *testing.T) {
	s, err := NewObjectStorage(context.Background(), config.StorageConfig{LocalPath: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", s.Backend())

	_, err = NewObjectStorage(context.Background(), config.StorageConfig{Backend: "ftp"}, nil)
	assert.ErrorContains(t, err, "unknown storage backend")
}
