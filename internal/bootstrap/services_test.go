package bootstrap

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/config"
	infraprov "github.com/partdb/backend/internal/infrastructure/infoprovider"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

type countingMetrics struct {
	mu      sync.Mutex
	entries []string
	stock   []string
}

func (m *countingMetrics) RecordLogEntry(_ context.Context, typ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, typ)
}

func (m *countingMetrics) RecordUndo(context.Context, string, bool) {}

func (m *countingMetrics) RecordStockOperation(_ context.Context, op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock = append(m.stock, op)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "partdb", Env: "test", Version: "test", InstanceName: "Test"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		JWT: config.JWTConfig{
			Secret:          "bootstrap-test-secret-0123456789ab",
			Issuer:          "partdb-test",
			MaxRefreshCount: 5,
		},
		Security:      config.SecurityConfig{BackupCodeLength: 8, BackupCodeCount: 5, TOTPIssuer: "Part-DB"},
		Storage:       config.StorageConfig{Backend: "local", LocalPath: t.TempDir()},
		InfoProviders: config.InfoProvidersConfig{TestEnabled: true, LCSCCurrency: "EUR"},
	}
}

func openDB(t *testing.T) *persistence.Database {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))
	return db
}

func TestBuild(t *testing.T) {
	metrics := &countingMetrics{}
	svc, err := Build(context.Background(), Options{
		Config:  testConfig(t),
		DB:      openDB(t),
		Metrics: metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	assert.Len(t, svc.Kinds, 9)
	for _, kind := range []shared.TargetType{
		shared.TargetCategory, shared.TargetStorageLocation, shared.TargetFootprint,
		shared.TargetManufacturer, shared.TargetSupplier, shared.TargetMeasurementUnit,
		shared.TargetCurrency, shared.TargetAttachmentType, shared.TargetGroup,
	} {
		_, err := svc.Kinds.Get(kind)
		assert.NoError(t, err, kind)
	}
	assert.NotNil(t, svc.Attachments)
	assert.NotNil(t, svc.Labels)
	assert.NotNil(t, svc.InfoProviders)
	assert.Equal(t, []string{infraprov.TestKey}, svc.ServerInfo.Info().InfoProviders)
	assert.Equal(t, "sqlite", svc.ServerInfo.Info().DatabaseDriver)

	ctx := context.Background()
	cat := &parts.Category{}
	cat.Name = "Resistors"
	require.NoError(t, svc.Categories.Create(ctx, cat, ""))
	_, err = svc.Parts.Create(ctx, appparts.CreatePartRequest{
		Name:       "10k",
		CategoryID: cat.ID,
		InitialLot: &appparts.CreateLotRequest{Amount: 5},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, metrics.entries, "log entries are counted")

	err = svc.Categories.Delete(ctx, cat.ID, "")
	require.Error(t, err, "a category with parts cannot be deleted")
}

func TestBuild_Lightweight(t *testing.T) {
	svc, err := Build(context.Background(), Options{
		Config:      testConfig(t),
		DB:          openDB(t),
		Lightweight: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	assert.Nil(t, svc.Attachments)
	assert.Nil(t, svc.InfoProviders)
	assert.Empty(t, svc.ServerInfo.Info().InfoProviders)
	assert.NotNil(t, svc.Users)
	assert.NotNil(t, svc.Undo)
}

func TestBuild_InvalidAuditSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.MinLevel = "loud"

	_, err := Build(context.Background(), Options{Config: cfg, DB: openDB(t)})
	require.Error(t, err)
}
