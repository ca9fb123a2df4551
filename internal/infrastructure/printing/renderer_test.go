package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/infrastructure/config"
)

func assertRenderError(t *testing.T, err error, code string) {
	t.Helper()
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr), "expected RenderError, got %v", err)
	assert.Equal(t, code, renderErr.Code)
}

func TestRenderError(t *testing.T) {
	cause := errors.New("chrome crashed")
	err := NewRenderError(ErrCodeRenderFailed, "rendering failed", cause)

	assert.Equal(t, "rendering failed: chrome crashed", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "plain", NewRenderError(ErrCodeRenderFailed, "plain", nil).Error())
}

func TestDisabledRenderer(t *testing.T) {
	var r PDFRenderer = DisabledRenderer{}
	_, err := r.Render(context.Background(), &RenderRequest{HTML: "x", Width: 1, Height: 1})
	assertRenderError(t, err, ErrCodeDisabled)
	assert.NoError(t, r.Close())
}

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer(config.LabelsConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, DisabledRenderer{}, r)

	r, err = NewRenderer(config.LabelsConfig{ChromePath: "ws://chrome:9222", RenderTimeout: time.Second}, nil)
	require.NoError(t, err)
	defer r.Close()
	cr, ok := r.(*ChromedpRenderer)
	require.True(t, ok)
	assert.Equal(t, "ws://chrome:9222", cr.config.RemoteURL)
	assert.Equal(t, time.Second, cr.config.DefaultTimeout)

	r, err = NewRenderer(config.LabelsConfig{ChromePath: "/usr/bin/chromium"}, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "/usr/bin/chromium", r.(*ChromedpRenderer).config.ExecPath)
}
