package printing

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/infrastructure/config"
)

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	// HTML content to render
	HTML string
	// Width and Height of one page in millimeters
	Width  float64
	Height float64
	// Title for the PDF document metadata
	Title string
	// Timeout overrides the default rendering timeout
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	// PDFData is the raw PDF file content
	PDFData []byte
	// PageCount is the number of pages in the PDF
	PageCount int
	// RenderDuration is how long the rendering took
	RenderDuration time.Duration
}

// PDFRenderer defines the interface for rendering HTML to PDF
type PDFRenderer interface {
	// Render converts HTML content to a PDF document
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	// Close releases any resources held by the renderer
	Close() error
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout   = "RENDER_TIMEOUT"
	ErrCodeRenderFailed    = "RENDER_FAILED"
	ErrCodeInvalidHTML     = "INVALID_HTML"
	ErrCodeInvalidPageSize = "INVALID_PAGE_SIZE"
	ErrCodeDisabled        = "RENDERER_DISABLED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// validate checks the request fields shared by all renderers
func (req *RenderRequest) validate() error {
	if req == nil {
		return NewRenderError(ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if isBlank(req.HTML) {
		return NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if req.Width <= 0 || req.Height <= 0 {
		return NewRenderError(ErrCodeInvalidPageSize, "page width and height must be positive", nil)
	}
	return nil
}

// DisabledRenderer is used when no browser is configured. Every render
// fails, HTML output keeps working.
type DisabledRenderer struct{}

// Render always fails
func (DisabledRenderer) Render(context.Context, *RenderRequest) (*RenderResult, error) {
	return nil, NewRenderError(ErrCodeDisabled, "PDF rendering is disabled", nil)
}

// Close does nothing
func (DisabledRenderer) Close() error { return nil }

var _ PDFRenderer = DisabledRenderer{}

// NewRenderer creates the renderer for cfg. An empty chrome path disables
// PDF output, a ws:// or http:// URL connects to a running browser and any
// other value is the browser binary to launch.
func NewRenderer(cfg config.LabelsConfig, logger *zap.Logger) (PDFRenderer, error) {
	path := strings.TrimSpace(cfg.ChromePath)
	if path == "" {
		return DisabledRenderer{}, nil
	}
	c := &ChromedpConfig{
		DefaultTimeout: cfg.RenderTimeout,
		NoSandbox:      true,
		Logger:         logger,
	}
	if strings.HasPrefix(path, "ws://") || strings.HasPrefix(path, "wss://") || strings.HasPrefix(path, "http://") {
		c.RemoteURL = path
	} else {
		c.ExecPath = path
	}
	return NewChromedpRenderer(c)
}
