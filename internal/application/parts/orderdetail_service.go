package parts

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
)

// OrderdetailService manages the supplier offers of parts and their price steps
type OrderdetailService struct {
	partRepo        parts.PartRepository
	orderdetailRepo pricing.OrderdetailRepository
	pricedetailRepo pricing.PricedetailRepository
	deps            Deps
}

// NewOrderdetailService creates a new OrderdetailService
func NewOrderdetailService(
	partRepo parts.PartRepository,
	orderdetailRepo pricing.OrderdetailRepository,
	pricedetailRepo pricing.PricedetailRepository,
	deps Deps,
) *OrderdetailService {
	return &OrderdetailService{
		partRepo:        partRepo,
		orderdetailRepo: orderdetailRepo,
		pricedetailRepo: pricedetailRepo,
		deps:            deps,
	}
}

// ListByPart returns the orderdetails of a part
func (s *OrderdetailService) ListByPart(ctx context.Context, partID uint) ([]OrderdetailResponse, error) {
	if _, err := s.partRepo.FindByID(ctx, partID); err != nil {
		return nil, err
	}
	ods, err := s.orderdetailRepo.FindByPart(ctx, partID)
	if err != nil {
		return nil, err
	}
	out := make([]OrderdetailResponse, len(ods))
	for i := range ods {
		out[i] = ToOrderdetailResponse(&ods[i])
	}
	return out, nil
}

// Get returns an orderdetail with its price steps
func (s *OrderdetailService) Get(ctx context.Context, id uint) (*OrderdetailResponse, error) {
	od, err := s.orderdetailRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderdetailResponse(od)
	return &resp, nil
}

// Create adds an orderdetail to a part
func (s *OrderdetailService) Create(ctx context.Context, partID uint, req CreateOrderdetailRequest) (*OrderdetailResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, req.ChangeComment); err != nil {
		return nil, err
	}
	if _, err := s.partRepo.FindByID(ctx, partID); err != nil {
		return nil, err
	}
	od := &pricing.Orderdetail{
		BaseEntity:         shared.NewBaseEntity(),
		PartID:             partID,
		SupplierID:         req.SupplierID,
		SupplierPartNr:     req.SupplierPartNr,
		SupplierProductURL: req.SupplierProductURL,
		Obsolete:           req.Obsolete,
	}
	if err := od.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkExists(ctx, shared.TargetSupplier, od.SupplierID); err != nil {
		return nil, err
	}
	if err := s.deps.Tracker.Create(ctx, od, req.ChangeComment); err != nil {
		return nil, err
	}
	return s.Get(ctx, od.ID)
}

// Update changes the fields set in req
func (s *OrderdetailService) Update(ctx context.Context, id uint, req UpdateOrderdetailRequest) (*OrderdetailResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, req.ChangeComment); err != nil {
		return nil, err
	}
	od, err := s.orderdetailRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before, err := shared.TakeSnapshot(od)
	if err != nil {
		return nil, err
	}
	if req.SupplierID != nil {
		od.SupplierID = *req.SupplierID
	}
	if req.SupplierPartNr != nil {
		od.SupplierPartNr = *req.SupplierPartNr
	}
	if req.SupplierProductURL != nil {
		od.SupplierProductURL = *req.SupplierProductURL
	}
	if req.Obsolete != nil {
		od.Obsolete = *req.Obsolete
	}
	if err := od.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkExists(ctx, shared.TargetSupplier, od.SupplierID); err != nil {
		return nil, err
	}
	od.Touch()
	if err := s.deps.Tracker.Update(ctx, od, before, req.ChangeComment); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes an orderdetail and its price steps
func (s *OrderdetailService) Delete(ctx context.Context, id uint, comment string) error {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, comment); err != nil {
		return err
	}
	od, err := s.orderdetailRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	part, err := s.partRepo.FindByID(ctx, od.PartID)
	if err != nil {
		return err
	}
	return s.deps.Tracker.DeleteFromCollection(ctx, part, "orderdetails", od, comment)
}

// AddPricedetail adds a price step to an orderdetail
func (s *OrderdetailService) AddPricedetail(ctx context.Context, orderdetailID uint, req PricedetailRequest) (*pricing.Pricedetail, error) {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, req.ChangeComment); err != nil {
		return nil, err
	}
	if _, err := s.orderdetailRepo.FindByID(ctx, orderdetailID); err != nil {
		return nil, err
	}
	pd, err := pricing.NewPricedetail(orderdetailID, req.Price)
	if err != nil {
		return nil, err
	}
	applyPricedetail(pd, req)
	if err := pd.Validate(); err != nil {
		return nil, err
	}
	if pd.CurrencyID != nil {
		if err := s.checkExists(ctx, shared.TargetCurrency, *pd.CurrencyID); err != nil {
			return nil, err
		}
	}
	if err := s.deps.Tracker.Create(ctx, pd, req.ChangeComment); err != nil {
		return nil, err
	}
	return pd, nil
}

// UpdatePricedetail replaces the values of a price step
func (s *OrderdetailService) UpdatePricedetail(ctx context.Context, id uint, req PricedetailRequest) (*pricing.Pricedetail, error) {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, req.ChangeComment); err != nil {
		return nil, err
	}
	pd, err := s.pricedetailRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before, err := shared.TakeSnapshot(pd)
	if err != nil {
		return nil, err
	}
	applyPricedetail(pd, req)
	if err := pd.Validate(); err != nil {
		return nil, err
	}
	if pd.CurrencyID != nil {
		if err := s.checkExists(ctx, shared.TargetCurrency, *pd.CurrencyID); err != nil {
			return nil, err
		}
	}
	pd.Touch()
	if err := s.deps.Tracker.Update(ctx, pd, before, req.ChangeComment); err != nil {
		return nil, err
	}
	return pd, nil
}

// DeletePricedetail removes a price step from its orderdetail
func (s *OrderdetailService) DeletePricedetail(ctx context.Context, id uint, comment string) error {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, comment); err != nil {
		return err
	}
	pd, err := s.pricedetailRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	od, err := s.orderdetailRepo.FindByID(ctx, pd.OrderdetailID)
	if err != nil {
		return err
	}
	return s.deps.Tracker.DeleteFromCollection(ctx, od, "pricedetails", pd, comment)
}

func applyPricedetail(pd *pricing.Pricedetail, req PricedetailRequest) {
	pd.Price = req.Price.Round(pricing.PriceScale)
	if req.PriceRelatedQuantity != nil {
		pd.PriceRelatedQuantity = *req.PriceRelatedQuantity
	}
	if req.MinDiscountQuantity != nil {
		pd.MinDiscountQuantity = *req.MinDiscountQuantity
	}
	if pd.PriceRelatedQuantity.IsZero() {
		pd.PriceRelatedQuantity = decimal.NewFromInt(1)
	}
	if pd.MinDiscountQuantity.IsZero() {
		pd.MinDiscountQuantity = decimal.NewFromInt(1)
	}
	pd.CurrencyID = req.CurrencyID
}

func (s *OrderdetailService) checkExists(ctx context.Context, t shared.TargetType, id uint) error {
	ok, err := s.deps.Tracker.Store().Exists(ctx, t, id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if !ok {
		return shared.NewDomainError("INVALID_REFERENCE", "Referenced "+string(t)+" not found")
	}
	return nil
}
