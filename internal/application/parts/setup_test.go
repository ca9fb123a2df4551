package parts

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

type memTagCache struct {
	mu    sync.Mutex
	items map[string][]byte
	tags  map[string][]string
	gets  int
	hits  int
}

func newMemTagCache() *memTagCache {
	return &memTagCache{items: map[string][]byte{}, tags: map[string][]string{}}
}

func (c *memTagCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *memTagCache) Set(_ context.Context, key string, value any, _ time.Duration, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	for _, t := range tags {
		c.tags[t] = append(c.tags[t], key)
	}
	return nil
}

func (c *memTagCache) InvalidateTags(_ context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tags {
		for _, k := range c.tags[t] {
			delete(c.items, k)
		}
		delete(c.tags, t)
	}
	return nil
}

type fixture struct {
	logs         *persistence.GormLogEntryRepository
	cache        *memTagCache
	deps         Deps
	categories   *StructuralService[parts.Category, *parts.Category]
	locations    *StructuralService[parts.StorageLocation, *parts.StorageLocation]
	units        *StructuralService[parts.MeasurementUnit, *parts.MeasurementUnit]
	suppliers    *StructuralService[parts.Supplier, *parts.Supplier]
	currencies   *StructuralService[pricing.Currency, *pricing.Currency]
	parts        *PartService
	lots         *LotService
	orderdetails *OrderdetailService
}

func newFixture(t *testing.T, enforced ...string) *fixture {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))

	comments, err := logsystem.NewEventCommentNeededHelper(enforced)
	require.NoError(t, err)

	logs := persistence.NewGormLogEntryRepository(db.DB)
	recorder := applog.NewRecorder(logs, applog.DefaultSettings())
	tracker := applog.NewTracker(persistence.NewGormElementStore(db.DB), recorder,
		persistence.NewGormTransactionManager(db.DB), nil)

	cache := newMemTagCache()
	deps := Deps{Tracker: tracker, Comments: comments, Cache: cache, CacheTTL: time.Minute}

	partRepo := persistence.NewGormPartRepository(db.DB)
	lotRepo := persistence.NewGormPartLotRepository(db.DB)
	categoryRepo := persistence.NewGormStructuralRepository[parts.Category](db.DB)
	locationRepo := persistence.NewGormStructuralRepository[parts.StorageLocation](db.DB)
	unitRepo := persistence.NewGormStructuralRepository[parts.MeasurementUnit](db.DB)
	currencyRepo := persistence.NewGormStructuralRepository[pricing.Currency](db.DB)
	odRepo := persistence.NewGormOrderdetailRepository(db.DB)

	f := &fixture{logs: logs, cache: cache, deps: deps}
	f.categories = NewStructuralService[parts.Category](categoryRepo, deps).
		WithUsageCheck("parts", func(ctx context.Context, id uint) (int64, error) {
			return partRepo.CountByReference(ctx, "category_id", id)
		})
	f.locations = NewStructuralService[parts.StorageLocation](locationRepo, deps)
	f.units = NewStructuralService[parts.MeasurementUnit](unitRepo, deps)
	f.suppliers = NewStructuralService[parts.Supplier](persistence.NewGormStructuralRepository[parts.Supplier](db.DB), deps)
	f.currencies = NewStructuralService[pricing.Currency](currencyRepo, deps)
	f.lots = NewLotService(partRepo, lotRepo, locationRepo, unitRepo, nil, deps)
	f.parts = NewPartService(partRepo, lotRepo, categoryRepo, odRepo, currencyRepo, f.lots, deps)
	f.orderdetails = NewOrderdetailService(partRepo, odRepo, persistence.NewGormPricedetailRepository(db.DB), deps)
	return f
}

func (f *fixture) category(t *testing.T, name string, parent *uint) *parts.Category {
	t.Helper()
	c := &parts.Category{}
	c.Name = name
	c.ParentID = parent
	require.NoError(t, f.categories.Create(context.Background(), c, ""))
	return c
}

func (f *fixture) location(t *testing.T, name string, configure func(*parts.StorageLocation)) *parts.StorageLocation {
	t.Helper()
	l := &parts.StorageLocation{}
	l.Name = name
	if configure != nil {
		configure(l)
	}
	require.NoError(t, f.locations.Create(context.Background(), l, ""))
	return l
}

func (f *fixture) part(t *testing.T, name string, categoryID uint, lot *CreateLotRequest) *PartResponse {
	t.Helper()
	p, err := f.parts.Create(context.Background(), CreatePartRequest{Name: name, CategoryID: categoryID, InitialLot: lot})
	require.NoError(t, err)
	return p
}

func (f *fixture) entries(t *testing.T, typ logsystem.Type) []logsystem.LogEntry {
	t.Helper()
	filter := logsystem.DefaultFilter()
	filter.Types = []logsystem.Type{typ}
	filter.PageSize = 500
	found, err := f.logs.FindAll(context.Background(), filter)
	require.NoError(t, err)
	return found
}
