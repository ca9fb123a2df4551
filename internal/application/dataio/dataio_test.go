package dataio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
	csvimport "github.com/partdb/backend/internal/infrastructure/import"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

type fixture struct {
	importer   *Importer
	exporter   *Exporter
	kinds      appparts.Kinds
	partsSvc   *appparts.PartService
	categories *appparts.StructuralService[parts.Category, *parts.Category]
	logs       *persistence.GormLogEntryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))

	logs := persistence.NewGormLogEntryRepository(db.DB)
	tracker := applog.NewTracker(persistence.NewGormElementStore(db.DB),
		applog.NewRecorder(logs, applog.DefaultSettings()),
		persistence.NewGormTransactionManager(db.DB), nil)
	deps := appparts.Deps{Tracker: tracker}

	partRepo := persistence.NewGormPartRepository(db.DB)
	lotRepo := persistence.NewGormPartLotRepository(db.DB)
	categoryRepo := persistence.NewGormStructuralRepository[parts.Category](db.DB)
	locationRepo := persistence.NewGormStructuralRepository[parts.StorageLocation](db.DB)
	unitRepo := persistence.NewGormStructuralRepository[parts.MeasurementUnit](db.DB)
	currencyRepo := persistence.NewGormStructuralRepository[pricing.Currency](db.DB)

	categories := appparts.NewStructuralService[parts.Category](categoryRepo, deps)
	kinds := appparts.NewKinds(
		categories.Erased(),
		appparts.NewStructuralService[parts.StorageLocation](locationRepo, deps).Erased(),
		appparts.NewStructuralService[parts.Footprint](persistence.NewGormStructuralRepository[parts.Footprint](db.DB), deps).Erased(),
		appparts.NewStructuralService[parts.Manufacturer](persistence.NewGormStructuralRepository[parts.Manufacturer](db.DB), deps).Erased(),
	)
	lots := appparts.NewLotService(partRepo, lotRepo, locationRepo, unitRepo, nil, deps)
	partsSvc := appparts.NewPartService(partRepo, lotRepo, categoryRepo,
		persistence.NewGormOrderdetailRepository(db.DB), currencyRepo, lots, deps)

	return &fixture{
		importer:   NewImporter(kinds, partsSvc, tracker, nil),
		exporter:   NewExporter(kinds, partsSvc, nil),
		kinds:      kinds,
		partsSvc:   partsSvc,
		categories: categories,
		logs:       logs,
	}
}

func (f *fixture) countEntries(t *testing.T, typ logsystem.Type) int64 {
	t.Helper()
	filter := logsystem.DefaultFilter()
	filter.Types = []logsystem.Type{typ}
	total, err := f.logs.Count(context.Background(), filter)
	require.NoError(t, err)
	return total
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, ".YML": FormatYAML, "yaml": FormatYAML, " csv ": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
}

func TestMassCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	text := "Passives -> Resistors -> SMD\n\nPassives -> Capacitors\r\nActives"
	res, err := f.importer.MassCreate(ctx, shared.TargetCategory, text, ImportOptions{Comment: "bulk"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ImportedRows)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "Passives"+shared.PathDelimiter+"Resistors"+shared.PathDelimiter+"SMD", res.Elements[0].FullPath)

	all, err := f.categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.EqualValues(t, 5, f.countEntries(t, logsystem.TypeElementCreated))

	// existing elements are reused, new ones go below the parent
	parent := res.Elements[2].ID
	res, err = f.importer.MassCreate(ctx, shared.TargetCategory, "Passives\nOpamps", ImportOptions{ParentID: &parent})
	require.NoError(t, err)
	assert.Equal(t, "Actives"+shared.PathDelimiter+"Passives", res.Elements[0].FullPath)
	all, err = f.categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	_, err = f.importer.MassCreate(ctx, shared.TargetCategory, " \n ", ImportOptions{})
	assert.Error(t, err)
	_, err = f.importer.MassCreate(ctx, "project", "A", ImportOptions{})
	assert.Error(t, err)
}

func TestImportStructural_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		doc    string
	}{
		{"csv", FormatCSV, "name;parent;comment\nShelf 1;Lab;top\nLab;;\n"},
		{"json", FormatJSON, `[{"name":"Shelf 1","parent":"Lab","comment":"top"},{"name":"Lab"}]`},
		{"yaml", FormatYAML, "- name: Shelf 1\n  parent: Lab\n  comment: top\n- full_path: Lab\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			res, err := f.importer.ImportStructural(ctx, shared.TargetStorageLocation, strings.NewReader(tt.doc), ImportOptions{Format: tt.format})
			require.NoError(t, err)
			require.Empty(t, res.Errors)
			assert.Equal(t, 2, res.ImportedRows)

			kind, err := f.kinds.Get(shared.TargetStorageLocation)
			require.NoError(t, err)
			all, err := kind.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			for _, el := range all {
				if el.GetName() == "Shelf 1" {
					assert.Equal(t, "top", el.Structure().Comment)
					assert.NotNil(t, el.Structure().ParentID)
				}
			}
		})
	}
}

func TestImportStructural_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := `[{"name":"Good"},{"comment":"no name"},{"name":"Bad -> name"}]`
	res, err := f.importer.ImportStructural(ctx, shared.TargetCategory, strings.NewReader(doc), ImportOptions{Format: FormatJSON})
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Equal(t, csvimport.ErrCodeImportRequiredField, res.Errors[0].Code)
	assert.Equal(t, 3, res.Errors[1].Row)
	assert.Zero(t, res.ImportedRows)

	all, err := f.categories.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "nothing is written when a row is invalid")

	_, err = f.importer.ImportStructural(ctx, shared.TargetCategory, strings.NewReader(`{"name":"x"}`), ImportOptions{Format: FormatJSON})
	assert.Error(t, err)

	missing := uint(999)
	_, err = f.importer.ImportStructural(ctx, shared.TargetCategory, strings.NewReader(`[{"name":"x"}]`), ImportOptions{Format: FormatJSON, ParentID: &missing})
	assert.Error(t, err)
}

func TestImportParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := "name,category,manufacturer,mpn,amount,storage_location,favorite\n" +
		"R 10k,Passives -> Resistors,Yageo,RC0603,100,Lab -> Drawer 1,yes\n" +
		"C 100n,Passives -> Capacitors,,,,,\n"

	// unknown references are rejected without CreateUnknown
	res, err := f.importer.ImportParts(ctx, strings.NewReader(doc), ImportOptions{Format: FormatCSV})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Errors)
	assert.Equal(t, csvimport.ErrCodeImportReferenceNotFound, res.Errors[0].Code)

	res, err = f.importer.ImportParts(ctx, strings.NewReader(doc), ImportOptions{Format: FormatCSV, CreateUnknown: true, Comment: "import"})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.Equal(t, 2, res.ImportedRows)

	part, err := f.partsSvc.Get(ctx, res.Elements[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "RC0603", part.ManufacturerProductNumber)
	assert.True(t, part.Favorite)
	assert.Equal(t, 100.0, part.TotalAmount)
	require.NotNil(t, part.ManufacturerID)

	// the second import finds the created elements
	res, err = f.importer.ImportParts(ctx, strings.NewReader(doc), ImportOptions{Format: FormatCSV})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	all, err := f.categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestImportParts_Validation(t *testing.T) {
	f := newFixture(t)
	doc := `[
		{"name": "R1", "category": "Resistors", "amount": -5},
		{"name": "R2", "category": "Resistors", "ipn": "R-1"},
		{"name": "R3", "category": "Resistors", "ipn": "r-1"},
		{"category": "Resistors"}
	]`
	res, err := f.importer.ImportParts(context.Background(), strings.NewReader(doc), ImportOptions{Format: FormatJSON, CreateUnknown: true})
	require.NoError(t, err)
	codes := map[int]string{}
	for _, e := range res.Errors {
		codes[e.Row] = e.Code
	}
	assert.Equal(t, map[int]string{
		1: csvimport.ErrCodeImportInvalidRange,
		3: csvimport.ErrCodeImportDuplicateInFile,
		4: csvimport.ErrCodeImportRequiredField,
	}, codes)
}

func TestExportStructural(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.importer.MassCreate(ctx, shared.TargetCategory, "B -> Child\nA", ImportOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := f.exporter.ExportStructural(ctx, shared.TargetCategory, FormatJSON, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	var records []ExportedElement
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "A", records[0].FullPath)
	assert.Equal(t, "B"+shared.PathDelimiter+"Child", records[2].FullPath)
	assert.Equal(t, "B", records[2].Parent)

	buf.Reset()
	_, err = f.exporter.ExportStructural(ctx, shared.TargetCategory, FormatCSV, &buf)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "id;name;parent;full_path;comment", lines[0])
	assert.Len(t, lines, 4)

	// an export can be imported again
	g := newFixture(t)
	res, err := g.importer.ImportStructural(ctx, shared.TargetCategory, &buf, ImportOptions{Format: FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ImportedRows)
}

func TestExportParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := "- name: LED red\n  category: Optos -> LEDs\n  amount: 12\n  tags: [red, smd]\n"
	res, err := f.importer.ImportParts(ctx, strings.NewReader(doc), ImportOptions{Format: FormatYAML, CreateUnknown: true})
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	var buf bytes.Buffer
	n, err := f.exporter.ExportParts(ctx, appparts.PartListFilter{}, FormatYAML, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var records []ExportedPart
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Optos"+shared.PathDelimiter+"LEDs", records[0].Category)
	assert.Equal(t, 12.0, records[0].Amount)
	assert.Equal(t, "red,smd", records[0].Tags)
}
