package dataio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/shared"
	csvimport "github.com/partdb/backend/internal/infrastructure/import"
)

// maxImportErrors limits the row errors reported by one import
const maxImportErrors = 100

// PartCreator creates parts
type PartCreator interface {
	Create(ctx context.Context, req appparts.CreatePartRequest) (*appparts.PartResponse, error)
}

// ImportOptions controls an import
type ImportOptions struct {
	Format Format
	// ParentID places imported root elements below this element
	ParentID *uint
	// CreateUnknown creates referenced categories, footprints, manufacturers
	// and storage locations that do not exist yet
	CreateUnknown bool
	// Comment is the change comment of the log entries
	Comment string
}

// ImportedElement is an element created or found by an import
type ImportedElement struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	FullPath string `json:"full_path,omitempty"`
}

// ImportResult summarizes an import. Imports are all or nothing: if Errors
// is not empty nothing was written.
type ImportResult struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	Elements     []ImportedElement    `json:"elements,omitempty"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

func (r *ImportResult) setErrors(ec *csvimport.ErrorCollection) {
	r.Errors = ec.Errors()
	r.IsTruncated = ec.IsTruncated()
	r.TotalErrors = ec.TotalCount()
	r.ImportedRows = 0
	r.Elements = nil
}

// errRowFailed rolls back the import transaction after a row error
var errRowFailed = errors.New("import row failed")

// Importer creates structural elements and parts from files
type Importer struct {
	kinds   appparts.Kinds
	parts   PartCreator
	tracker *applog.Tracker
	logger  *zap.Logger
}

// NewImporter creates a new Importer
func NewImporter(kinds appparts.Kinds, parts PartCreator, tracker *applog.Tracker, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{kinds: kinds, parts: parts, tracker: tracker, logger: logger}
}

func structuralRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("name").MaxLength(shared.MaxNameLength).Custom(noPathSeparator).Build(),
		csvimport.Field("full_path").Build(),
		csvimport.Field("parent").Build(),
		csvimport.Field("comment").Build(),
	}
}

func noPathSeparator(v string) error {
	if strings.Contains(v, "->") {
		return fmt.Errorf("name cannot contain '->'")
	}
	return nil
}

// ImportStructural creates the elements listed in r. Each record has a name
// and optionally a parent path, or a full_path. Existing elements are
// reused; a comment given in the file replaces theirs.
func (i *Importer) ImportStructural(ctx context.Context, t shared.TargetType, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	rows, err := decode(r, opts.Format)
	if err != nil {
		return nil, err
	}
	return i.importStructural(ctx, t, rows, opts)
}

// MassCreate creates one element per line of text. "->" separates the
// levels of a hierarchy, e.g. "Passives -> Resistors -> SMD".
func (i *Importer) MassCreate(ctx context.Context, t shared.TargetType, text string, opts ImportOptions) (*ImportResult, error) {
	var rows []*csvimport.Row
	for n, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, &csvimport.Row{LineNumber: n + 1, Data: map[string]string{"full_path": line}})
	}
	if len(rows) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "No elements given")
	}
	return i.importStructural(ctx, t, rows, opts)
}

func (i *Importer) importStructural(ctx context.Context, t shared.TargetType, rows []*csvimport.Row, opts ImportOptions) (*ImportResult, error) {
	kind, err := i.kinds.Get(t)
	if err != nil {
		return nil, err
	}
	base, err := i.basePath(ctx, kind, opts.ParentID)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{TotalRows: len(rows)}
	validator := csvimport.NewFieldValidator(structuralRules(), maxImportErrors)
	paths := make([][]string, len(rows))
	for n, row := range rows {
		if !validator.ValidateRow(row) {
			continue
		}
		var names []string
		if fp := row.Get("full_path"); fp != "" && row.Get("name") == "" {
			names = shared.SplitPath(fp)
		} else {
			names = append(shared.SplitPath(row.Get("parent")), strings.TrimSpace(row.Get("name")))
		}
		if len(names) == 0 || names[len(names)-1] == "" {
			validator.Errors().AddRequiredError(row.LineNumber, "name")
			continue
		}
		paths[n] = append(append([]string{}, base...), names...)
	}
	if validator.Errors().HasErrors() {
		result.setErrors(validator.Errors())
		return result, nil
	}

	errs := csvimport.NewErrorCollection(maxImportErrors)
	err = i.tracker.Transaction(ctx, func(ctx context.Context) error {
		for n, row := range rows {
			el, err := kind.FindOrCreatePath(ctx, paths[n], opts.Comment)
			if err != nil {
				return rowFailure(errs, row.LineNumber, "name", err)
			}
			if c := row.Get("comment"); c != "" && c != el.Structure().Comment {
				if el, err = kind.Update(ctx, el.GetID(), map[string]any{"comment": c}, opts.Comment); err != nil {
					return rowFailure(errs, row.LineNumber, "comment", err)
				}
			}
			result.Elements = append(result.Elements, ImportedElement{
				ID: el.GetID(), Name: el.GetName(), FullPath: shared.JoinPath(paths[n]),
			})
			result.ImportedRows++
		}
		return nil
	})
	if errors.Is(err, errRowFailed) {
		result.setErrors(errs)
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	i.logger.Info("Elements imported", zap.String("kind", string(t)), zap.Int("rows", result.ImportedRows))
	return result, nil
}

func (i *Importer) basePath(ctx context.Context, kind appparts.Kind, parentID *uint) ([]string, error) {
	if parentID == nil {
		return nil, nil
	}
	path, err := kind.FullPath(ctx, *parentID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError("PARENT_NOT_FOUND", "The parent element does not exist")
	}
	if err != nil {
		return nil, err
	}
	return shared.SplitPath(path), nil
}

func partRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("name").Required().MaxLength(shared.MaxNameLength).Build(),
		csvimport.Field("category").Required().Build(),
		csvimport.Field("mpn").MaxLength(255).Build(),
		csvimport.Field("ipn").MaxLength(100).Unique().Build(),
		csvimport.Field("mass").Decimal().MinValue(decimal.Zero).Build(),
		csvimport.Field("min_amount").Decimal().MinValue(decimal.Zero).Build(),
		csvimport.Field("amount").Decimal().MinValue(decimal.Zero).Build(),
		csvimport.Field("favorite").Bool().Build(),
		csvimport.Field("needs_review").Bool().Build(),
	}
}

// referenceColumns are the part columns naming structural elements
var referenceColumns = []struct {
	column string
	kind   shared.TargetType
}{
	{"category", shared.TargetCategory},
	{"footprint", shared.TargetFootprint},
	{"manufacturer", shared.TargetManufacturer},
	{"storage_location", shared.TargetStorageLocation},
}

// ImportParts creates the parts listed in r. Categories and other
// references are given as full paths. With amount set the part gets a
// first lot, placed in storage_location if given.
func (i *Importer) ImportParts(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	rows, err := decode(r, opts.Format)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{TotalRows: len(rows)}
	validator := csvimport.NewFieldValidator(partRules(), maxImportErrors)

	indexes := map[shared.TargetType]pathIndex{}
	for _, ref := range referenceColumns {
		kind, err := i.kinds.Get(ref.kind)
		if err != nil {
			return nil, err
		}
		elements, err := kind.List(ctx)
		if err != nil {
			return nil, err
		}
		index, _ := newPathIndex(elements)
		indexes[ref.kind] = index
	}

	for _, row := range rows {
		if !validator.ValidateRow(row) {
			continue
		}
		if opts.CreateUnknown {
			continue
		}
		for _, ref := range referenceColumns {
			v := row.Get(ref.column)
			if v == "" {
				continue
			}
			if _, ok := indexes[ref.kind].lookup(shared.SplitPath(v)); !ok {
				validator.Errors().AddReferenceError(row.LineNumber, ref.column, v, strings.ReplaceAll(string(ref.kind), "_", " "))
			}
		}
	}
	if validator.Errors().HasErrors() {
		result.setErrors(validator.Errors())
		return result, nil
	}

	errs := csvimport.NewErrorCollection(maxImportErrors)
	err = i.tracker.Transaction(ctx, func(ctx context.Context) error {
		for _, row := range rows {
			refs := make(map[string]*uint, len(referenceColumns))
			for _, ref := range referenceColumns {
				id, err := i.reference(ctx, indexes[ref.kind], ref.kind, row.Get(ref.column), opts)
				if err != nil {
					return rowFailure(errs, row.LineNumber, ref.column, err)
				}
				refs[ref.column] = id
			}
			req, err := partRequest(row, refs, opts.Comment)
			if err != nil {
				var ce *columnError
				if errors.As(err, &ce) {
					return rowFailure(errs, row.LineNumber, ce.column, ce.err)
				}
				return rowFailure(errs, row.LineNumber, "", err)
			}
			created, err := i.parts.Create(ctx, req)
			if err != nil {
				return rowFailure(errs, row.LineNumber, "", err)
			}
			result.Elements = append(result.Elements, ImportedElement{ID: created.ID, Name: created.Name})
			result.ImportedRows++
		}
		return nil
	})
	if errors.Is(err, errRowFailed) {
		result.setErrors(errs)
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	i.logger.Info("Parts imported", zap.Int("rows", result.ImportedRows))
	return result, nil
}

func (i *Importer) reference(ctx context.Context, index pathIndex, t shared.TargetType, value string, opts ImportOptions) (*uint, error) {
	names := shared.SplitPath(value)
	if len(names) == 0 {
		return nil, nil
	}
	if id, ok := index.lookup(names); ok {
		return &id, nil
	}
	kind, err := i.kinds.Get(t)
	if err != nil {
		return nil, err
	}
	el, err := kind.FindOrCreatePath(ctx, names, opts.Comment)
	if err != nil {
		return nil, err
	}
	id := el.GetID()
	index[pathKey(shared.JoinPath(names))] = id
	return &id, nil
}

func partRequest(row *csvimport.Row, refs map[string]*uint, comment string) (appparts.CreatePartRequest, error) {
	req := appparts.CreatePartRequest{
		Name:                      row.Get("name"),
		Description:               row.Get("description"),
		Comment:                   row.Get("comment"),
		FootprintID:               refs["footprint"],
		ManufacturerID:            refs["manufacturer"],
		ManufacturerProductNumber: row.Get("mpn"),
		Tags:                      row.Get("tags"),
		ChangeComment:             comment,
	}
	if id := refs["category"]; id != nil {
		req.CategoryID = *id
	}
	if ipn := row.Get("ipn"); ipn != "" {
		req.IPN = &ipn
	}
	mass, err := decimalColumn(row, "mass")
	if err != nil {
		return req, err
	}
	req.Mass = mass
	minAmount, err := decimalColumn(row, "min_amount")
	if err != nil {
		return req, err
	}
	if minAmount != nil {
		req.MinAmount = *minAmount
	}
	if req.Favorite, err = boolColumn(row, "favorite"); err != nil {
		return req, err
	}
	if req.NeedsReview, err = boolColumn(row, "needs_review"); err != nil {
		return req, err
	}
	amount, err := decimalColumn(row, "amount")
	if err != nil {
		return req, err
	}
	if amount != nil {
		req.InitialLot = &appparts.CreateLotRequest{
			Amount:            *amount,
			StorageLocationID: refs["storage_location"],
			ChangeComment:     comment,
		}
	}
	return req, nil
}

// columnError is a malformed cell of a row
type columnError struct {
	column string
	err    error
}

func (e *columnError) Error() string { return e.column + ": " + e.err.Error() }
func (e *columnError) Unwrap() error { return e.err }

func decimalColumn(row *csvimport.Row, column string) (*float64, error) {
	v := row.Get(column)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, &columnError{column: column, err: err}
	}
	f := d.InexactFloat64()
	return &f, nil
}

func boolColumn(row *csvimport.Row, column string) (bool, error) {
	v := row.Get(column)
	if v == "" {
		return false, nil
	}
	b, ok := csvimport.ParseBool(v)
	if !ok {
		return false, &columnError{column: column, err: fmt.Errorf("invalid boolean %q", v)}
	}
	return b, nil
}

func rowFailure(errs *csvimport.ErrorCollection, row int, column string, err error) error {
	msg := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) {
		msg = de.Message
	}
	errs.Add(csvimport.NewRowError(row, column, csvimport.ErrCodeImportFailed, msg))
	return errRowFailed
}
