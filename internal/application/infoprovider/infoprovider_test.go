package infoprovider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/cache"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

type stubProvider struct {
	key     string
	active  bool
	results []SearchResult
	details map[string]PartDetail
	err     error

	mu       sync.Mutex
	searches int
}

func (p *stubProvider) Key() string { return p.key }

func (p *stubProvider) Info() ProviderInfo { return ProviderInfo{Name: "Stub " + p.key} }

func (p *stubProvider) IsActive() bool { return p.active }

func (p *stubProvider) SearchByKeyword(_ context.Context, keyword string) ([]SearchResult, error) {
	p.mu.Lock()
	p.searches++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return append([]SearchResult(nil), p.results...), nil
}

func (p *stubProvider) GetDetails(_ context.Context, id string) (*PartDetail, error) {
	d, ok := p.details[id]
	if !ok {
		return nil, ErrResultNotFound
	}
	return &d, nil
}

func newRetriever(t *testing.T, providers ...Provider) *PartInfoRetriever {
	t.Helper()
	registry, err := NewRegistry(providers...)
	require.NoError(t, err)
	c := cache.NewInMemoryTagCache()
	t.Cleanup(func() { _ = c.Close() })
	return NewPartInfoRetriever(registry, c, 0, nil)
}

func TestRegistry(t *testing.T) {
	a := &stubProvider{key: "b_active", active: true}
	b := &stubProvider{key: "a_active", active: true}
	off := &stubProvider{key: "off"}

	_, err := NewRegistry(a, &stubProvider{key: "b_active"})
	assert.Error(t, err)

	r, err := NewRegistry(a, b, off)
	require.NoError(t, err)
	assert.Equal(t, []Provider{b, a, off}, r.All())
	assert.Equal(t, []Provider{b, a}, r.Active())
	assert.Equal(t, []Provider{off}, r.Disabled())

	got, err := r.Get("a_active")
	require.NoError(t, err)
	assert.Same(t, b, got)
	_, err = r.Get("off")
	assert.True(t, errors.Is(err, ErrProviderDisabled))
	_, err = r.Get("missing")
	assert.True(t, errors.Is(err, ErrProviderNotFound))

	views := r.Views()
	require.Len(t, views, 3)
	assert.Equal(t, "off", views[2].Key)
	assert.False(t, views[2].Active)
}

func TestRetriever_SearchByKeyword(t *testing.T) {
	one := &stubProvider{key: "one", active: true, results: []SearchResult{{ProviderID: "1", Name: "NE555"}}}
	two := &stubProvider{key: "two", active: true, results: []SearchResult{{ProviderID: "x", Name: "NE555P"}, {ProviderID: "y", Name: "NE555D"}}}
	off := &stubProvider{key: "off"}
	r := newRetriever(t, one, two, off)
	ctx := context.Background()

	found, err := r.SearchByKeyword(ctx, " ne555 ", []string{"two", "one"})
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, "two", found[0].ProviderKey)
	assert.Equal(t, "NE555D", found[1].Name)
	assert.Equal(t, "one", found[2].ProviderKey)

	// all active providers, answered from the cache
	found, err = r.SearchByKeyword(ctx, "NE555", nil)
	require.NoError(t, err)
	assert.Len(t, found, 3)
	assert.Equal(t, 1, one.searches)
	assert.Equal(t, 1, two.searches)
	assert.Equal(t, 0, off.searches)

	_, err = r.SearchByKeyword(ctx, "  ", nil)
	assert.True(t, errors.Is(err, ErrEmptyKeyword))
	_, err = r.SearchByKeyword(ctx, "NE555", []string{"off"})
	assert.True(t, errors.Is(err, ErrProviderDisabled))
}

func TestRetriever_Errors(t *testing.T) {
	failing := &stubProvider{key: "failing", active: true, err: ErrUpstream}
	r := newRetriever(t, failing)
	ctx := context.Background()

	_, err := r.SearchByKeyword(ctx, "LM358", nil)
	assert.True(t, errors.Is(err, ErrUpstream))
	_, err = r.SearchByKeyword(ctx, "LM358", nil)
	assert.Error(t, err)
	assert.Equal(t, 2, failing.searches, "failures are not cached")

	empty := newRetriever(t, &stubProvider{key: "off"})
	_, err = empty.SearchByKeyword(ctx, "LM358", nil)
	assert.True(t, errors.Is(err, ErrNoProviders))
}

type serviceFixture struct {
	svc          *Service
	categoryID   uint
	partRepo     *persistence.GormPartRepository
	orderdetails *appparts.OrderdetailService
	kinds        appparts.Kinds
}

func newServiceFixture(t *testing.T, provider Provider) *serviceFixture {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))

	tracker := applog.NewTracker(persistence.NewGormElementStore(db.DB),
		applog.NewRecorder(persistence.NewGormLogEntryRepository(db.DB), applog.DefaultSettings()),
		persistence.NewGormTransactionManager(db.DB), nil)
	deps := appparts.Deps{Tracker: tracker}

	partRepo := persistence.NewGormPartRepository(db.DB)
	lotRepo := persistence.NewGormPartLotRepository(db.DB)
	categoryRepo := persistence.NewGormStructuralRepository[parts.Category](db.DB)
	odRepo := persistence.NewGormOrderdetailRepository(db.DB)
	currencyRepo := persistence.NewGormStructuralRepository[pricing.Currency](db.DB)

	categories := appparts.NewStructuralService[parts.Category](categoryRepo, deps)
	kinds := appparts.NewKinds(
		categories.Erased(),
		appparts.NewStructuralService[parts.Footprint](persistence.NewGormStructuralRepository[parts.Footprint](db.DB), deps).Erased(),
		appparts.NewStructuralService[parts.Manufacturer](persistence.NewGormStructuralRepository[parts.Manufacturer](db.DB), deps).Erased(),
		appparts.NewStructuralService[parts.Supplier](persistence.NewGormStructuralRepository[parts.Supplier](db.DB), deps).Erased(),
	)
	lots := appparts.NewLotService(partRepo, lotRepo,
		persistence.NewGormStructuralRepository[parts.StorageLocation](db.DB),
		persistence.NewGormStructuralRepository[parts.MeasurementUnit](db.DB), nil, deps)
	partsSvc := appparts.NewPartService(partRepo, lotRepo, categoryRepo, odRepo, currencyRepo, lots, deps)
	orderdetails := appparts.NewOrderdetailService(partRepo, odRepo, persistence.NewGormPricedetailRepository(db.DB), deps)

	category := &parts.Category{}
	category.Name = "ICs"
	require.NoError(t, categories.Create(context.Background(), category, ""))

	retriever := newRetriever(t, provider)
	return &serviceFixture{
		svc:          NewService(retriever, partRepo, partsSvc, orderdetails, kinds, tracker, "usd", nil),
		categoryID:   category.ID,
		partRepo:     partRepo,
		orderdetails: orderdetails,
		kinds:        kinds,
	}
}

func TestService_CreatePart(t *testing.T) {
	mass := 0.15
	provider := &stubProvider{key: "stub", active: true, details: map[string]PartDetail{
		"C7593": {
			SearchResult: SearchResult{
				ProviderID:          "C7593",
				Name:                "NE555DR",
				Description:         "Timer IC",
				Manufacturer:        "Texas Instruments",
				MPN:                 "NE555DR",
				Footprint:           "SOIC-8",
				ManufacturingStatus: "active",
				ProviderURL:         "https://example.com/C7593",
			},
			Mass: &mass,
			VendorInfos: []VendorInfo{{
				Distributor: "LCSC",
				OrderNumber: "C7593",
				Prices: []PriceBreak{
					{MinQuantity: 1, Price: decimal.RequireFromString("0.12"), Currency: "USD"},
					{MinQuantity: 100, Price: decimal.RequireFromString("0.08"), Currency: "USD"},
					{MinQuantity: 1, Price: decimal.RequireFromString("0.11"), Currency: "EUR"},
				},
			}},
		},
	}}
	f := newServiceFixture(t, provider)
	ctx := context.Background()

	p, err := f.svc.CreatePart(ctx, CreatePartInput{ProviderKey: "stub", ProviderID: "C7593", CategoryID: f.categoryID})
	require.NoError(t, err)
	assert.Equal(t, "NE555DR", p.Name)
	assert.Equal(t, parts.ManufacturingStatusActive, p.ManufacturingStatus)
	assert.Equal(t, "stub", p.ProviderReference.ProviderKey)
	assert.True(t, p.ProviderReference.IsSet())
	require.NotNil(t, p.ManufacturerID)
	require.NotNil(t, p.FootprintID)

	manufacturer, err := f.kinds[shared.TargetManufacturer].Get(ctx, *p.ManufacturerID)
	require.NoError(t, err)
	assert.Equal(t, "Texas Instruments", manufacturer.GetName())

	ods, err := f.orderdetails.ListByPart(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, ods, 1)
	assert.Equal(t, "C7593", ods[0].SupplierPartNr)
	assert.Len(t, ods[0].Pricedetails, 2)

	_, err = f.svc.CreatePart(ctx, CreatePartInput{ProviderKey: "stub", ProviderID: "C7593", CategoryID: f.categoryID})
	assert.True(t, errors.Is(err, ErrPartExists))

	_, err = f.svc.CreatePart(ctx, CreatePartInput{ProviderKey: "stub", ProviderID: "nope", CategoryID: f.categoryID})
	assert.True(t, errors.Is(err, ErrResultNotFound))
}

func TestService_CreatePartRollsBack(t *testing.T) {
	provider := &stubProvider{key: "stub", active: true, details: map[string]PartDetail{
		"1": {SearchResult: SearchResult{ProviderID: "1", Name: "BC547", Manufacturer: "onsemi"}},
	}}
	f := newServiceFixture(t, provider)
	ctx := context.Background()

	_, err := f.svc.CreatePart(ctx, CreatePartInput{ProviderKey: "stub", ProviderID: "1", CategoryID: 999})
	require.Error(t, err)

	all, err := f.kinds[shared.TargetManufacturer].List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "manufacturer creation is rolled back with the part")
}
