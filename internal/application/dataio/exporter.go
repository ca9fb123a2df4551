package dataio

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

// PartLister pages through parts
type PartLister interface {
	List(ctx context.Context, filter appparts.PartListFilter) ([]appparts.PartResponse, int64, error)
}

// ExportedElement is one structural element in an export
type ExportedElement struct {
	ID       uint   `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Parent   string `json:"parent,omitempty" yaml:"parent,omitempty"`
	FullPath string `json:"full_path" yaml:"full_path"`
	Comment  string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Columns implements record
func (ExportedElement) Columns() []string {
	return []string{"id", "name", "parent", "full_path", "comment"}
}

// Fields implements record
func (e ExportedElement) Fields() map[string]string {
	return map[string]string{
		"id":        strconv.FormatUint(uint64(e.ID), 10),
		"name":      e.Name,
		"parent":    e.Parent,
		"full_path": e.FullPath,
		"comment":   e.Comment,
	}
}

// ExportedPart is one part in an export
type ExportedPart struct {
	ID           uint    `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	Category     string  `json:"category" yaml:"category"`
	Footprint    string  `json:"footprint,omitempty" yaml:"footprint,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	MPN          string  `json:"mpn,omitempty" yaml:"mpn,omitempty"`
	IPN          string  `json:"ipn,omitempty" yaml:"ipn,omitempty"`
	Tags         string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Comment      string  `json:"comment,omitempty" yaml:"comment,omitempty"`
	Amount       float64 `json:"amount" yaml:"amount"`
	MinAmount    float64 `json:"min_amount" yaml:"min_amount"`
	Favorite     bool    `json:"favorite" yaml:"favorite"`
	NeedsReview  bool    `json:"needs_review" yaml:"needs_review"`
}

// Columns implements record
func (ExportedPart) Columns() []string {
	return []string{"id", "name", "description", "category", "footprint", "manufacturer",
		"mpn", "ipn", "tags", "comment", "amount", "min_amount", "favorite", "needs_review"}
}

// Fields implements record
func (p ExportedPart) Fields() map[string]string {
	return map[string]string{
		"id":           strconv.FormatUint(uint64(p.ID), 10),
		"name":         p.Name,
		"description":  p.Description,
		"category":     p.Category,
		"footprint":    p.Footprint,
		"manufacturer": p.Manufacturer,
		"mpn":          p.MPN,
		"ipn":          p.IPN,
		"tags":         p.Tags,
		"comment":      p.Comment,
		"amount":       strconv.FormatFloat(p.Amount, 'f', -1, 64),
		"min_amount":   strconv.FormatFloat(p.MinAmount, 'f', -1, 64),
		"favorite":     strconv.FormatBool(p.Favorite),
		"needs_review": strconv.FormatBool(p.NeedsReview),
	}
}

// exportPageSize is the page size used to walk all parts
const exportPageSize = 500

// Exporter writes structural elements and parts
type Exporter struct {
	kinds  appparts.Kinds
	parts  PartLister
	logger *zap.Logger
}

// NewExporter creates a new Exporter
func NewExporter(kinds appparts.Kinds, parts PartLister, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{kinds: kinds, parts: parts, logger: logger}
}

// ExportStructural writes all elements of kind t ordered by full path
func (e *Exporter) ExportStructural(ctx context.Context, t shared.TargetType, f Format, w io.Writer) (int, error) {
	kind, err := e.kinds.Get(t)
	if err != nil {
		return 0, err
	}
	elements, err := kind.List(ctx)
	if err != nil {
		return 0, err
	}
	_, paths := newPathIndex(elements)
	records := make([]ExportedElement, 0, len(elements))
	for _, el := range elements {
		st := el.Structure()
		rec := ExportedElement{ID: st.ID, Name: st.Name, FullPath: paths[st.ID], Comment: st.Comment}
		if st.ParentID != nil {
			rec.Parent = paths[*st.ParentID]
		}
		records = append(records, rec)
	}
	sortByPath(records)
	if err := encode(w, f, records); err != nil {
		return 0, err
	}
	e.logger.Info("Elements exported", zap.String("kind", string(t)), zap.String("format", string(f)), zap.Int("count", len(records)))
	return len(records), nil
}

// ExportParts writes all parts matching filter
func (e *Exporter) ExportParts(ctx context.Context, filter appparts.PartListFilter, f Format, w io.Writer) (int, error) {
	names := map[shared.TargetType]map[uint]string{}
	pathsOf := func(t shared.TargetType) (map[uint]string, error) {
		if m, ok := names[t]; ok {
			return m, nil
		}
		kind, err := e.kinds.Get(t)
		if err != nil {
			return nil, err
		}
		elements, err := kind.List(ctx)
		if err != nil {
			return nil, err
		}
		_, paths := newPathIndex(elements)
		names[t] = paths
		return paths, nil
	}
	resolve := func(t shared.TargetType, id *uint) (string, error) {
		if id == nil {
			return "", nil
		}
		paths, err := pathsOf(t)
		if err != nil {
			return "", err
		}
		return paths[*id], nil
	}

	var records []ExportedPart
	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		found, total, err := e.parts.List(ctx, filter)
		if err != nil {
			return 0, err
		}
		for _, p := range found {
			rec := ExportedPart{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				MPN:         p.ManufacturerProductNumber,
				Tags:        p.Tags,
				Comment:     p.Comment,
				Amount:      p.TotalAmount,
				MinAmount:   p.MinAmount,
				Favorite:    p.Favorite,
				NeedsReview: p.NeedsReview,
			}
			if p.IPN != nil {
				rec.IPN = *p.IPN
			}
			categoryID := p.CategoryID
			if rec.Category, err = resolve(shared.TargetCategory, &categoryID); err != nil {
				return 0, err
			}
			if rec.Footprint, err = resolve(shared.TargetFootprint, p.FootprintID); err != nil {
				return 0, err
			}
			if rec.Manufacturer, err = resolve(shared.TargetManufacturer, p.ManufacturerID); err != nil {
				return 0, err
			}
			records = append(records, rec)
		}
		if len(found) == 0 || int64(page*exportPageSize) >= total {
			break
		}
	}
	if records == nil {
		records = []ExportedPart{}
	}
	if err := encode(w, f, records); err != nil {
		return 0, err
	}
	e.logger.Info("Parts exported", zap.String("format", string(f)), zap.Int("count", len(records)))
	return len(records), nil
}

func sortByPath(records []ExportedElement) {
	sort.SliceStable(records, func(i, j int) bool {
		return strings.ToLower(records[i].FullPath) < strings.ToLower(records[j].FullPath)
	})
}
