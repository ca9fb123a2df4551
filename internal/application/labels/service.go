package labels

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/application/tools"
	"github.com/partdb/backend/internal/domain/labels"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/printing"
)

// Output formats of Generate
const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// ProfileInput creates or replaces a label profile
type ProfileInput struct {
	Name           string         `json:"name" binding:"required,max=255"`
	Comment        string         `json:"comment"`
	ShowInDropdown *bool          `json:"show_in_dropdown"`
	Options        labels.Options `json:"options"`
	ChangeComment  string         `json:"change_comment"`
}

// GenerateInput selects the label options and the elements to print
type GenerateInput struct {
	// ProfileID selects a saved profile; Options are used when it is nil
	ProfileID *uint          `json:"profile_id"`
	Options   labels.Options `json:"options"`
	// Targets is a range string of element IDs, e.g. "1-3, 7"
	Targets string `json:"targets" binding:"required"`
	Format  string `json:"format" binding:"omitempty,oneof=html pdf"`
}

// GenerateResult is a generated label document
type GenerateResult struct {
	ContentType string
	Filename    string
	Data        []byte
	Count       int
}

var (
	errProfileNotFound = shared.NewDomainError("LABEL_PROFILE_NOT_FOUND", "Label profile not found")
	errNoTargets       = shared.NewDomainError("NO_LABEL_TARGETS", "No elements selected for the labels")
	errInvalidRange    = shared.NewDomainError("INVALID_RANGE", "The target range is invalid")
)

// Service manages label profiles and generates labels
type Service struct {
	profiles labels.ProfileRepository
	tracker  *applog.Tracker
	replacer *Replacer
	renderer printing.PDFRenderer
	logger   *zap.Logger
}

// NewService creates a new label Service
func NewService(profiles labels.ProfileRepository, tracker *applog.Tracker, replacer *Replacer, renderer printing.PDFRenderer, logger *zap.Logger) *Service {
	if renderer == nil {
		renderer = printing.DisabledRenderer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{profiles: profiles, tracker: tracker, replacer: replacer, renderer: renderer, logger: logger}
}

// ListProfiles returns all profiles, or only the dropdown profiles of one
// element kind when element is set
func (s *Service) ListProfiles(ctx context.Context, element labels.SupportedElement) ([]labels.Profile, error) {
	if element == "" {
		return s.profiles.FindAll(ctx)
	}
	if !element.IsValid() {
		return nil, shared.NewDomainError("INVALID_LABEL_ELEMENT", "Unsupported label element type")
	}
	return s.profiles.FindForElement(ctx, element)
}

// GetProfile returns one profile
func (s *Service) GetProfile(ctx context.Context, id uint) (*labels.Profile, error) {
	p, err := s.profiles.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, errProfileNotFound
	}
	return p, err
}

// CreateProfile stores a new profile
func (s *Service) CreateProfile(ctx context.Context, in ProfileInput) (*labels.Profile, error) {
	p, err := labels.NewProfile(in.Name, in.Options)
	if err != nil {
		return nil, err
	}
	p.Comment = in.Comment
	if in.ShowInDropdown != nil {
		p.ShowInDropdown = *in.ShowInDropdown
	}
	if err := s.tracker.Create(ctx, p, in.ChangeComment); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile replaces name, comment and options of a profile
func (s *Service) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*labels.Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	before, err := shared.TakeSnapshot(p)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Comment = in.Comment
	p.Options = in.Options
	if in.ShowInDropdown != nil {
		p.ShowInDropdown = *in.ShowInDropdown
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Touch()
	if err := s.tracker.Update(ctx, p, before, in.ChangeComment); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProfile removes a profile
func (s *Service) DeleteProfile(ctx context.Context, id uint, comment string) error {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	return s.tracker.Delete(ctx, p, comment)
}

// Generate renders one label per target element
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	opts := in.Options
	title := "labels"
	if in.ProfileID != nil {
		p, err := s.GetProfile(ctx, *in.ProfileID)
		if err != nil {
			return nil, err
		}
		opts, title = p.Options, p.Name
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ids, err := tools.ParseRange(in.Targets)
	if err != nil {
		return nil, shared.NewDomainError(errInvalidRange.Code, err.Error())
	}
	if len(ids) == 0 {
		return nil, errNoTargets
	}

	doc, err := s.renderHTML(ctx, opts, ids)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("labels_%s", opts.SupportedElement)

	if in.Format != FormatPDF {
		return &GenerateResult{
			ContentType: "text/html; charset=utf-8",
			Filename:    filename + ".html",
			Data:        []byte(doc),
			Count:       len(ids),
		}, nil
	}
	res, err := s.renderer.Render(ctx, &printing.RenderRequest{
		HTML:   doc,
		Width:  opts.Width,
		Height: opts.Height,
		Title:  title,
	})
	if err != nil {
		var renderErr *printing.RenderError
		if errors.As(err, &renderErr) {
			return nil, shared.NewDomainError(renderErr.Code, renderErr.Message)
		}
		return nil, err
	}
	s.logger.Info("Labels generated",
		zap.String("element", string(opts.SupportedElement)),
		zap.Int("count", len(ids)),
		zap.Int("pages", res.PageCount))
	return &GenerateResult{
		ContentType: "application/pdf",
		Filename:    filename + ".pdf",
		Data:        res.PDFData,
		Count:       len(ids),
	}, nil
}

// RenderLines replaces the placeholders of lines for one element
func (s *Service) RenderLines(ctx context.Context, lines string, target shared.Trackable) (string, error) {
	return s.replacer.Replace(ctx, lines, target)
}

func (s *Service) renderHTML(ctx context.Context, opts labels.Options, ids []int) (string, error) {
	t := opts.SupportedElement.TargetType()
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"UTF-8\"><style>")
	width, height := opts.CSSSize()
	fmt.Fprintf(&buf, "@page { size: %s %s; margin: 0; }", width, height)
	fmt.Fprintf(&buf, ".label { width: %s; height: %s; overflow: hidden; page-break-after: always; font-family: sans-serif; font-size: 9pt; }",
		width, height)
	buf.WriteString(".label:last-child { page-break-after: auto; }")
	// additional CSS is entered by users with labels.edit_options
	buf.WriteString(strings.ReplaceAll(opts.AdditionalCSS, "</", "<\\/"))
	buf.WriteString("</style></head><body>")

	for _, id := range ids {
		if id <= 0 {
			return "", shared.NewDomainError("ELEMENT_NOT_FOUND", fmt.Sprintf("No %s with ID %d", t, id))
		}
		el, err := s.tracker.Store().Find(ctx, t, uint(id))
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.NewDomainError("ELEMENT_NOT_FOUND", fmt.Sprintf("No %s with ID %d", t, id))
		}
		if err != nil {
			return "", err
		}
		body, err := s.replacer.Replace(ctx, opts.Lines, el)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&buf, `<div class="label" data-id="%d">%s</div>`, id, body)
	}
	buf.WriteString("</body></html>")
	return buf.String(), nil
}
