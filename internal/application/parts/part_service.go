package parts

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
)

// PartService handles part-related business operations
type PartService struct {
	partRepo        parts.PartRepository
	lotRepo         parts.PartLotRepository
	categoryRepo    shared.StructuralRepository[parts.Category]
	orderdetailRepo pricing.OrderdetailRepository
	currencyRepo    shared.StructuralRepository[pricing.Currency]
	lots            *LotService
	deps            Deps
	now             func() time.Time
}

// NewPartService creates a new PartService
func NewPartService(
	partRepo parts.PartRepository,
	lotRepo parts.PartLotRepository,
	categoryRepo shared.StructuralRepository[parts.Category],
	orderdetailRepo pricing.OrderdetailRepository,
	currencyRepo shared.StructuralRepository[pricing.Currency],
	lots *LotService,
	deps Deps,
) *PartService {
	return &PartService{
		partRepo:        partRepo,
		lotRepo:         lotRepo,
		categoryRepo:    categoryRepo,
		orderdetailRepo: orderdetailRepo,
		currencyRepo:    currencyRepo,
		lots:            lots,
		deps:            deps,
		now:             time.Now,
	}
}

// Create creates a new part, optionally with a first lot
func (s *PartService) Create(ctx context.Context, req CreatePartRequest) (*PartResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartCreate, req.ChangeComment); err != nil {
		return nil, err
	}
	part, err := parts.NewPart(req.Name, req.CategoryID)
	if err != nil {
		return nil, err
	}
	part.Description = req.Description
	part.Comment = req.Comment
	part.FootprintID = req.FootprintID
	part.ManufacturerID = req.ManufacturerID
	part.ManufacturerProductNumber = req.ManufacturerProductNumber
	part.ManufacturerProductURL = req.ManufacturerProductURL
	part.ManufacturingStatus = parts.ManufacturingStatus(req.ManufacturingStatus)
	part.IPN = req.IPN
	part.Tags = req.Tags
	part.Mass = req.Mass
	part.MinAmount = req.MinAmount
	part.NeedsReview = req.NeedsReview
	part.Favorite = req.Favorite
	part.PartUnitID = req.PartUnitID
	if req.Provider != nil {
		part.ProviderReference = *req.Provider
	}
	if err := part.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, part); err != nil {
		return nil, err
	}

	err = s.deps.Tracker.Transaction(ctx, func(ctx context.Context) error {
		if err := s.deps.Tracker.CreateWith(ctx, part, req.ChangeComment, func(e *logsystem.LogEntry) {
			instock := 0.0
			if req.InitialLot != nil && !req.InitialLot.InstockUnknown {
				instock = req.InitialLot.Amount
			}
			e.Extra[logsystem.ExtraInstock] = instock
		}); err != nil {
			return err
		}
		if req.InitialLot != nil {
			if _, err := s.lots.Create(ctx, part.ID, *req.InitialLot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, part.ID)
}

// Get returns a part with its lots, stock and average price
func (s *PartService) Get(ctx context.Context, id uint) (*PartResponse, error) {
	part, err := s.partRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.toResponse(ctx, part, true)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns the parts matching filter
func (s *PartService) List(ctx context.Context, filter PartListFilter) ([]PartResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.Search = filter.Search
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.OrderBy = "name"
	if filter.SortBy != "" {
		domainFilter.OrderBy = filter.SortBy
	}
	if filter.SortDesc {
		domainFilter.OrderDir = "desc"
	}
	setUint := func(key string, v *uint) {
		if v != nil {
			domainFilter.Filters[key] = *v
		}
	}
	setUint("category_id", filter.CategoryID)
	setUint("footprint_id", filter.FootprintID)
	setUint("manufacturer_id", filter.ManufacturerID)
	setUint("storage_location_id", filter.StorageLocationID)
	if filter.Favorite != nil {
		domainFilter.Filters["favorite"] = *filter.Favorite
	}
	if filter.NeedsReview != nil {
		domainFilter.Filters["needs_review"] = *filter.NeedsReview
	}

	found, err := s.partRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.partRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]PartResponse, len(found))
	for i := range found {
		resp, err := s.toResponse(ctx, &found[i], false)
		if err != nil {
			return nil, 0, err
		}
		responses[i] = resp
	}
	return responses, total, nil
}

// Update changes the fields set in req
func (s *PartService) Update(ctx context.Context, id uint, req UpdatePartRequest) (*PartResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, req.ChangeComment); err != nil {
		return nil, err
	}
	part, err := s.partRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before, err := shared.TakeSnapshot(part)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		part.Name = *req.Name
	}
	if req.Description != nil {
		part.Description = *req.Description
	}
	if req.Comment != nil {
		part.Comment = *req.Comment
	}
	if req.CategoryID != nil {
		part.CategoryID = *req.CategoryID
	}
	if req.ClearFootprint {
		part.FootprintID = nil
	} else if req.FootprintID != nil {
		part.FootprintID = req.FootprintID
	}
	if req.ClearManufacturer {
		part.ManufacturerID = nil
	} else if req.ManufacturerID != nil {
		part.ManufacturerID = req.ManufacturerID
	}
	if req.ManufacturerProductNumber != nil {
		part.ManufacturerProductNumber = *req.ManufacturerProductNumber
	}
	if req.ManufacturerProductURL != nil {
		part.ManufacturerProductURL = *req.ManufacturerProductURL
	}
	if req.ManufacturingStatus != nil {
		part.ManufacturingStatus = parts.ManufacturingStatus(*req.ManufacturingStatus)
	}
	if req.IPN != nil {
		part.IPN = req.IPN
	}
	if req.Tags != nil {
		part.Tags = *req.Tags
	}
	if req.Mass != nil {
		part.Mass = req.Mass
	}
	if req.MinAmount != nil {
		part.MinAmount = *req.MinAmount
	}
	if req.NeedsReview != nil {
		part.NeedsReview = *req.NeedsReview
	}
	if req.Favorite != nil {
		part.Favorite = *req.Favorite
	}
	if req.PartUnitID != nil {
		part.PartUnitID = req.PartUnitID
	}

	if err := part.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, part); err != nil {
		return nil, err
	}
	part.Touch()
	if err := s.deps.Tracker.Update(ctx, part, before, req.ChangeComment); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a part together with its lots, orderdetails and attachments
func (s *PartService) Delete(ctx context.Context, id uint, comment string) error {
	if err := s.deps.requireComment(logsystem.CommentPartDelete, comment); err != nil {
		return err
	}
	part, err := s.partRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.deps.Tracker.Delete(ctx, part, comment)
}

// TotalAmount returns the amount in stock over all lots of the part
func (s *PartService) TotalAmount(ctx context.Context, id uint) (float64, error) {
	lots, err := s.lotRepo.FindByPart(ctx, id)
	if err != nil {
		return 0, err
	}
	return parts.AmountSum(lots, s.now()), nil
}

// AveragePrice returns the mean unit price in the base currency when buying quantity
func (s *PartService) AveragePrice(ctx context.Context, id uint, quantity decimal.Decimal) (*decimal.Decimal, error) {
	ods, err := s.orderdetailRepo.FindByPart(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(ods) == 0 {
		return nil, nil
	}
	currencies := map[uint]*pricing.Currency{}
	for i := range ods {
		for _, pd := range ods[i].Pricedetails {
			if pd.CurrencyID == nil || currencies[*pd.CurrencyID] != nil {
				continue
			}
			c, err := s.currencyRepo.FindByID(ctx, *pd.CurrencyID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					continue
				}
				return nil, err
			}
			currencies[c.ID] = c
		}
	}
	return pricing.AveragePrice(ods, quantity, currencies), nil
}

func (s *PartService) toResponse(ctx context.Context, part *parts.Part, detailed bool) (PartResponse, error) {
	lots, err := s.lotRepo.FindByPart(ctx, part.ID)
	if err != nil {
		return PartResponse{}, err
	}
	resp := PartResponse{Part: *part, TotalAmount: parts.AmountSum(lots, s.now())}
	if !detailed {
		return resp, nil
	}
	resp.Lots = make([]LotResponse, 0, len(lots))
	for i := range lots {
		lr, err := s.lots.toResponse(ctx, &lots[i])
		if err != nil {
			return PartResponse{}, err
		}
		resp.Lots = append(resp.Lots, lr)
	}
	resp.AveragePrice, err = s.AveragePrice(ctx, part.ID, decimal.NewFromInt(1))
	if err != nil {
		return PartResponse{}, err
	}
	return resp, nil
}

// checkReferences verifies referenced elements exist, the IPN is unique and
// the name matches the category pattern
func (s *PartService) checkReferences(ctx context.Context, part *parts.Part) error {
	category, err := s.categoryRepo.FindByID(ctx, part.CategoryID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return err
	}
	if err := category.CheckPartName(part.Name); err != nil {
		return err
	}
	refs := []struct {
		t  shared.TargetType
		id *uint
	}{
		{shared.TargetFootprint, part.FootprintID},
		{shared.TargetManufacturer, part.ManufacturerID},
		{shared.TargetMeasurementUnit, part.PartUnitID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		ok, err := s.deps.Tracker.Store().Exists(ctx, ref.t, *ref.id)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewDomainError("INVALID_REFERENCE", "Referenced "+string(ref.t)+" not found")
		}
	}
	if part.IPN != nil {
		exists, err := s.partRepo.ExistsByIPN(ctx, *part.IPN, part.ID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "A part with this IPN already exists")
		}
	}
	return nil
}
