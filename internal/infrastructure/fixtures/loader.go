// Package fixtures fills an empty database with demo data. Everything is
// created through the application services, so the demo data shows up in
// the event log like data entered by a user.
package fixtures

import (
	"context"
	"fmt"
	"sort"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

// ErrNotEmpty is returned when the database already holds categories
var ErrNotEmpty = shared.NewDomainError("FIXTURES_NOT_EMPTY", "The database already contains data")

// Services are the services the loader writes through
type Services struct {
	Categories    *appparts.StructuralService[parts.Category, *parts.Category]
	Locations     *appparts.StructuralService[parts.StorageLocation, *parts.StorageLocation]
	Footprints    *appparts.StructuralService[parts.Footprint, *parts.Footprint]
	Manufacturers *appparts.StructuralService[parts.Manufacturer, *parts.Manufacturer]
	Suppliers     *appparts.StructuralService[parts.Supplier, *parts.Supplier]
	Parts         *appparts.PartService
	Orderdetails  *appparts.OrderdetailService
}

// Options control the amount of generated data
type Options struct {
	Parts         int
	Manufacturers int
	Suppliers     int
	Boxes         int
	// Force loads into a database that already has data
	Force bool
}

// DefaultOptions returns a small demo inventory
func DefaultOptions() Options {
	return Options{Parts: 50, Manufacturers: 8, Suppliers: 3, Boxes: 6}
}

// Summary counts the created elements
type Summary struct {
	Categories    int
	Footprints    int
	Locations     int
	Manufacturers int
	Suppliers     int
	Parts         int
	Orderdetails  int
}

// Loader generates demo data
type Loader struct {
	svc    Services
	faker  *gofakeit.Faker
	logger *zap.Logger
}

// NewLoader creates a Loader. The same seed produces the same data.
func NewLoader(svc Services, seed uint64, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{svc: svc, faker: gofakeit.New(seed), logger: logger}
}

var categoryTree = map[string][]string{
	"Passive components": {"Resistors", "Capacitors", "Inductors"},
	"Semiconductors":     {"Diodes", "Transistors", "Integrated circuits"},
	"Electromechanical":  {"Connectors", "Switches"},
}

var footprintTree = map[string][]string{
	"SMD": {"0402", "0603", "0805", "1206", "SOT-23", "SOIC-8"},
	"THT": {"DIP-8", "TO-92", "TO-220"},
}

// partNames maps a leaf category to plausible part names
var partNames = map[string][]string{
	"Resistors":           {"10k", "4.7k", "100R", "1M", "220R"},
	"Capacitors":          {"100nF", "10uF", "1uF", "22pF", "470uF"},
	"Inductors":           {"10uH", "100uH", "4.7uH"},
	"Diodes":              {"1N4148", "1N4007", "BAT54", "LED red"},
	"Transistors":         {"BC547", "2N7002", "IRLZ44N", "BSS138"},
	"Integrated circuits": {"NE555", "LM358", "ATmega328P", "74HC595"},
	"Connectors":          {"Pin header 2.54", "JST-XH 2p", "USB-C receptacle"},
	"Switches":            {"Tactile switch", "Slide switch"},
}

// demoComment is the change comment of every generated element
const demoComment = "Demo data"

var manufacturingStatuses = []string{"active", "active", "active", "nrfnd", "eol"}

// Load creates the demo data
func (l *Loader) Load(ctx context.Context, opts Options) (*Summary, error) {
	if !opts.Force {
		existing, err := l.svc.Categories.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, ErrNotEmpty
		}
	}
	sum := &Summary{}

	leaves, err := l.categories(ctx, sum)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	footprints, err := l.footprints(ctx, sum)
	if err != nil {
		return nil, fmt.Errorf("footprints: %w", err)
	}
	boxes, err := l.locations(ctx, opts.Boxes, sum)
	if err != nil {
		return nil, fmt.Errorf("storage locations: %w", err)
	}
	manufacturers, err := l.manufacturers(ctx, opts.Manufacturers, sum)
	if err != nil {
		return nil, fmt.Errorf("manufacturers: %w", err)
	}
	suppliers, err := l.suppliers(ctx, opts.Suppliers, sum)
	if err != nil {
		return nil, fmt.Errorf("suppliers: %w", err)
	}

	for i := 0; i < opts.Parts; i++ {
		if err := l.part(ctx, i, leaves, footprints, boxes, manufacturers, suppliers, sum); err != nil {
			return nil, fmt.Errorf("part %d: %w", i+1, err)
		}
	}

	l.logger.Info("Fixtures loaded",
		zap.Int("categories", sum.Categories),
		zap.Int("parts", sum.Parts),
		zap.Int("orderdetails", sum.Orderdetails),
	)
	return sum, nil
}

type leaf struct {
	id   uint
	name string
}

func (l *Loader) categories(ctx context.Context, sum *Summary) ([]leaf, error) {
	var leaves []leaf
	for _, root := range sortedKeys(categoryTree) {
		parent := &parts.Category{}
		parent.Name = root
		if err := l.svc.Categories.Create(ctx, parent, demoComment); err != nil {
			return nil, err
		}
		sum.Categories++
		for _, name := range categoryTree[root] {
			c := &parts.Category{DefaultDescription: l.faker.Sentence(4)}
			c.Name = name
			c.ParentID = &parent.ID
			if err := l.svc.Categories.Create(ctx, c, demoComment); err != nil {
				return nil, err
			}
			sum.Categories++
			leaves = append(leaves, leaf{id: c.ID, name: name})
		}
	}
	return leaves, nil
}

func (l *Loader) footprints(ctx context.Context, sum *Summary) ([]uint, error) {
	var ids []uint
	for _, root := range sortedKeys(footprintTree) {
		parent := &parts.Footprint{}
		parent.Name = root
		if err := l.svc.Footprints.Create(ctx, parent, demoComment); err != nil {
			return nil, err
		}
		sum.Footprints++
		for _, name := range footprintTree[root] {
			fp := &parts.Footprint{}
			fp.Name = name
			fp.ParentID = &parent.ID
			if err := l.svc.Footprints.Create(ctx, fp, demoComment); err != nil {
				return nil, err
			}
			sum.Footprints++
			ids = append(ids, fp.ID)
		}
	}
	return ids, nil
}

func (l *Loader) locations(ctx context.Context, n int, sum *Summary) ([]uint, error) {
	shelf := &parts.StorageLocation{}
	shelf.Name = "Shelf A"
	shelf.Comment = l.faker.Street()
	if err := l.svc.Locations.Create(ctx, shelf, demoComment); err != nil {
		return nil, err
	}
	sum.Locations++

	ids := make([]uint, 0, n)
	for i := 1; i <= n; i++ {
		box := &parts.StorageLocation{}
		box.Name = fmt.Sprintf("Box %d", i)
		box.ParentID = &shelf.ID
		if err := l.svc.Locations.Create(ctx, box, demoComment); err != nil {
			return nil, err
		}
		sum.Locations++
		ids = append(ids, box.ID)
	}
	return ids, nil
}

func (l *Loader) manufacturers(ctx context.Context, n int, sum *Summary) ([]uint, error) {
	names := l.uniqueCompanies(n)
	ids := make([]uint, 0, n)
	for _, name := range names {
		m := &parts.Manufacturer{Company: l.company()}
		m.Name = name
		if err := l.svc.Manufacturers.Create(ctx, m, demoComment); err != nil {
			return nil, err
		}
		sum.Manufacturers++
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (l *Loader) suppliers(ctx context.Context, n int, sum *Summary) ([]uint, error) {
	names := l.uniqueCompanies(n)
	ids := make([]uint, 0, n)
	for _, name := range names {
		s := &parts.Supplier{Company: l.company()}
		s.Name = name
		shipping := decimal.NewFromFloat(l.faker.Price(0, 15)).Round(2)
		s.ShippingCosts = &shipping
		if err := l.svc.Suppliers.Create(ctx, s, demoComment); err != nil {
			return nil, err
		}
		sum.Suppliers++
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (l *Loader) part(ctx context.Context, i int, leaves []leaf, footprints, boxes, manufacturers, suppliers []uint, sum *Summary) error {
	cat := leaves[l.faker.Number(0, len(leaves)-1)]
	names := partNames[cat.name]
	name := names[l.faker.Number(0, len(names)-1)]

	req := appparts.CreatePartRequest{
		Name:                name,
		Description:         l.faker.Sentence(6),
		CategoryID:          cat.id,
		ManufacturingStatus: manufacturingStatuses[l.faker.Number(0, len(manufacturingStatuses)-1)],
		Tags:                l.faker.Word() + "," + l.faker.Word(),
		MinAmount:           float64(l.faker.Number(0, 20)),
		Favorite:            l.faker.Number(1, 10) == 1,
		ChangeComment:       demoComment,
	}
	ipn := fmt.Sprintf("DEMO-%05d", i+1)
	req.IPN = &ipn
	if len(footprints) > 0 {
		fp := footprints[l.faker.Number(0, len(footprints)-1)]
		req.FootprintID = &fp
	}
	if len(manufacturers) > 0 {
		m := manufacturers[l.faker.Number(0, len(manufacturers)-1)]
		req.ManufacturerID = &m
		req.ManufacturerProductNumber = l.faker.LetterN(3) + l.faker.DigitN(5)
	}
	lot := &appparts.CreateLotRequest{Amount: float64(l.faker.Number(0, 500)), ChangeComment: demoComment}
	if len(boxes) > 0 {
		box := boxes[l.faker.Number(0, len(boxes)-1)]
		lot.StorageLocationID = &box
	}
	req.InitialLot = lot

	part, err := l.svc.Parts.Create(ctx, req)
	if err != nil {
		return err
	}
	sum.Parts++

	if len(suppliers) == 0 {
		return nil
	}
	od, err := l.svc.Orderdetails.Create(ctx, part.ID, appparts.CreateOrderdetailRequest{
		SupplierID:     suppliers[l.faker.Number(0, len(suppliers)-1)],
		SupplierPartNr: l.faker.DigitN(3) + "-" + l.faker.DigitN(4),
		ChangeComment:  demoComment,
	})
	if err != nil {
		return err
	}
	sum.Orderdetails++

	// a single price plus a discounted step for larger quantities
	price := decimal.NewFromFloat(l.faker.Price(0.01, 5)).Round(4)
	if _, err := l.svc.Orderdetails.AddPricedetail(ctx, od.ID, appparts.PricedetailRequest{Price: price, ChangeComment: demoComment}); err != nil {
		return err
	}
	minQty := decimal.NewFromInt(100)
	_, err = l.svc.Orderdetails.AddPricedetail(ctx, od.ID, appparts.PricedetailRequest{
		Price:               price.Mul(decimal.NewFromFloat(0.8)).Round(4),
		MinDiscountQuantity: &minQty,
		ChangeComment:       demoComment,
	})
	return err
}

func (l *Loader) company() parts.Company {
	return parts.Company{
		Address:      l.faker.Street() + ", " + l.faker.City(),
		PhoneNumber:  l.faker.Phone(),
		EmailAddress: l.faker.Email(),
		Website:      l.faker.URL(),
	}
}

// uniqueCompanies returns n distinct company names
func (l *Loader) uniqueCompanies(n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		name := l.faker.Company()
		if seen[name] {
			name = fmt.Sprintf("%s %d", name, len(out)+1)
			if seen[name] {
				continue
			}
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
