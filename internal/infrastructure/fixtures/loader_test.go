package fixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/bootstrap"
	"github.com/partdb/backend/internal/infrastructure/config"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

func newServices(t *testing.T) *bootstrap.Services {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))

	svc, err := bootstrap.Build(context.Background(), bootstrap.Options{
		Config: &config.Config{
			App:      config.AppConfig{Name: "partdb", Env: "test"},
			Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
			JWT:      config.JWTConfig{Secret: "fixtures-test-secret-0123456789abcdef", Issuer: "partdb-test"},
			Security: config.SecurityConfig{BackupCodeLength: 8, BackupCodeCount: 5},
		},
		DB:          db,
		Lightweight: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func loaderFor(svc *bootstrap.Services, seed uint64) *Loader {
	return NewLoader(Services{
		Categories:    svc.Categories,
		Locations:     svc.Locations,
		Footprints:    svc.Footprints,
		Manufacturers: svc.Manufacturers,
		Suppliers:     svc.Suppliers,
		Parts:         svc.Parts,
		Orderdetails:  svc.Orderdetails,
	}, seed, nil)
}

func TestLoader_Load(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()

	sum, err := loaderFor(svc, 42).Load(ctx, Options{Parts: 10, Manufacturers: 4, Suppliers: 2, Boxes: 3})
	require.NoError(t, err)
	assert.Equal(t, 11, sum.Categories)
	assert.Equal(t, 11, sum.Footprints)
	assert.Equal(t, 4, sum.Locations)
	assert.Equal(t, 4, sum.Manufacturers)
	assert.Equal(t, 2, sum.Suppliers)
	assert.Equal(t, 10, sum.Parts)
	assert.Equal(t, 10, sum.Orderdetails)

	list, total, err := svc.Parts.List(ctx, appparts.PartListFilter{PageSize: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 10, total)
	for _, p := range list {
		require.NotNil(t, p.IPN)
		assert.Contains(t, *p.IPN, "DEMO-")
	}

	entries, _, err := svc.LogService.List(ctx, applog.LogListFilter{Types: []string{"element_created"}, PageSize: 500})
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "demo data is logged")
	for _, e := range entries {
		assert.Equal(t, applog.ConsoleUsername, e.Username)
	}
}

func TestLoader_RefusesNonEmptyDatabase(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	opts := Options{Parts: 1, Manufacturers: 1, Suppliers: 1, Boxes: 1}

	_, err := loaderFor(svc, 1).Load(ctx, opts)
	require.NoError(t, err)

	_, err = loaderFor(svc, 2).Load(ctx, opts)
	assert.ErrorIs(t, err, ErrNotEmpty)
}

func TestLoader_UniqueCompanies(t *testing.T) {
	l := NewLoader(Services{}, 7, nil)
	names := l.uniqueCompanies(25)
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], n)
		seen[n] = true
	}
	assert.Len(t, names, 25)
}
