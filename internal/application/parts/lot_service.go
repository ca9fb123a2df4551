package parts

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

// StockMetrics counts stock operations
type StockMetrics interface {
	RecordStockOperation(ctx context.Context, operation string, amount float64)
}

// LotService manages part lots and the stock operations on them
type LotService struct {
	partRepo     parts.PartRepository
	lotRepo      parts.PartLotRepository
	locationRepo shared.StructuralRepository[parts.StorageLocation]
	unitRepo     shared.StructuralRepository[parts.MeasurementUnit]
	locations    *StructuralService[parts.StorageLocation, *parts.StorageLocation]
	metrics      StockMetrics
	deps         Deps
	now          func() time.Time
}

// NewLotService creates a new LotService. metrics may be nil.
func NewLotService(
	partRepo parts.PartRepository,
	lotRepo parts.PartLotRepository,
	locationRepo shared.StructuralRepository[parts.StorageLocation],
	unitRepo shared.StructuralRepository[parts.MeasurementUnit],
	metrics StockMetrics,
	deps Deps,
) *LotService {
	return &LotService{
		partRepo:     partRepo,
		lotRepo:      lotRepo,
		locationRepo: locationRepo,
		unitRepo:     unitRepo,
		locations:    NewStructuralService[parts.StorageLocation](locationRepo, deps),
		metrics:      metrics,
		deps:         deps,
		now:          time.Now,
	}
}

// Get returns a lot
func (s *LotService) Get(ctx context.Context, id uint) (*LotResponse, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.toResponse(ctx, lot)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListByPart returns the lots of a part
func (s *LotService) ListByPart(ctx context.Context, partID uint) ([]LotResponse, error) {
	if _, err := s.partRepo.FindByID(ctx, partID); err != nil {
		return nil, err
	}
	lots, err := s.lotRepo.FindByPart(ctx, partID)
	if err != nil {
		return nil, err
	}
	out := make([]LotResponse, 0, len(lots))
	for i := range lots {
		resp, err := s.toResponse(ctx, &lots[i])
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// Create adds a lot to a part
func (s *LotService) Create(ctx context.Context, partID uint, req CreateLotRequest) (*LotResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, req.ChangeComment); err != nil {
		return nil, err
	}
	part, err := s.partRepo.FindByID(ctx, partID)
	if err != nil {
		return nil, err
	}
	unit, err := s.unitOf(ctx, part)
	if err != nil {
		return nil, err
	}
	lot, err := parts.NewPartLot(part.ID, parts.RoundAmount(req.Amount, unit))
	if err != nil {
		return nil, err
	}
	lot.Description = req.Description
	lot.Comment = req.Comment
	lot.StorageLocationID = req.StorageLocationID
	lot.InstockUnknown = req.InstockUnknown
	lot.ExpirationDate = req.ExpirationDate
	lot.NeedsRefill = req.NeedsRefill
	lot.OwnerID = req.OwnerID
	if err := s.checkPlacement(ctx, lot, true); err != nil {
		return nil, err
	}
	if err := s.deps.Tracker.Create(ctx, lot, req.ChangeComment); err != nil {
		return nil, err
	}
	return s.Get(ctx, lot.ID)
}

// Update changes the fields set in req
func (s *LotService) Update(ctx context.Context, id uint, req UpdateLotRequest) (*LotResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, req.ChangeComment); err != nil {
		return nil, err
	}
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before, err := shared.TakeSnapshot(lot)
	if err != nil {
		return nil, err
	}
	oldLocation := lot.StorageLocationID

	if req.Description != nil {
		lot.Description = *req.Description
	}
	if req.Comment != nil {
		lot.Comment = *req.Comment
	}
	if req.ClearLocation {
		lot.StorageLocationID = nil
	} else if req.StorageLocationID != nil {
		lot.StorageLocationID = req.StorageLocationID
	}
	if req.InstockUnknown != nil {
		lot.InstockUnknown = *req.InstockUnknown
	}
	if req.ClearExpirationDate {
		lot.ExpirationDate = nil
	} else if req.ExpirationDate != nil {
		lot.ExpirationDate = req.ExpirationDate
	}
	if req.NeedsRefill != nil {
		lot.NeedsRefill = *req.NeedsRefill
	}
	if req.OwnerID != nil {
		lot.OwnerID = req.OwnerID
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	moved := !sameID(oldLocation, lot.StorageLocationID)
	if err := s.checkPlacement(ctx, lot, moved); err != nil {
		return nil, err
	}
	lot.Touch()
	if err := s.deps.Tracker.Update(ctx, lot, before, req.ChangeComment); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a lot from its part
func (s *LotService) Delete(ctx context.Context, id uint, comment string) error {
	if err := s.deps.requireComment(logsystem.CommentPartEdit, comment); err != nil {
		return err
	}
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	part, err := s.partRepo.FindByID(ctx, lot.PartID)
	if err != nil {
		return err
	}
	return s.deps.Tracker.DeleteFromCollection(ctx, part, "part_lots", lot, comment)
}

// Add puts amount more pieces into the lot
func (s *LotService) Add(ctx context.Context, id uint, req StockRequest) (*LotResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartStockOperation, req.Comment); err != nil {
		return nil, err
	}
	err := s.deps.Tracker.Transaction(ctx, func(ctx context.Context) error {
		lot, part, err := s.loadForStock(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkLocationNotFull(ctx, lot); err != nil {
			return err
		}
		unit, err := s.unitOf(ctx, part)
		if err != nil {
			return err
		}
		before, err := shared.TakeSnapshot(lot)
		if err != nil {
			return err
		}
		oldAmount := lot.Amount
		if err := lot.Add(parts.RoundAmount(req.Amount, unit)); err != nil {
			return err
		}
		if err := s.deps.Tracker.Update(ctx, lot, before, req.Comment); err != nil {
			return err
		}
		return s.recordStockChange(ctx, part, logsystem.StockAdd, oldAmount, lot.Amount, req.Comment, 0)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Withdraw takes amount pieces out of the lot. The lot is deleted when it
// becomes empty and req.DeleteLotIfEmpty is set; nil is returned then.
func (s *LotService) Withdraw(ctx context.Context, id uint, req StockRequest) (*LotResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartStockOperation, req.Comment); err != nil {
		return nil, err
	}
	deleted := false
	err := s.deps.Tracker.Transaction(ctx, func(ctx context.Context) error {
		lot, part, err := s.loadForStock(ctx, id)
		if err != nil {
			return err
		}
		unit, err := s.unitOf(ctx, part)
		if err != nil {
			return err
		}
		before, err := shared.TakeSnapshot(lot)
		if err != nil {
			return err
		}
		oldAmount := lot.Amount
		if err := lot.Withdraw(parts.RoundAmount(req.Amount, unit)); err != nil {
			return err
		}
		if err := s.deps.Tracker.Update(ctx, lot, before, req.Comment); err != nil {
			return err
		}
		if err := s.recordStockChange(ctx, part, logsystem.StockWithdraw, oldAmount, lot.Amount, req.Comment, 0); err != nil {
			return err
		}
		if req.DeleteLotIfEmpty && lot.Amount == 0 {
			deleted = true
			return s.deps.Tracker.DeleteFromCollection(ctx, part, "part_lots", lot, req.Comment)
		}
		return nil
	})
	if err != nil || deleted {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Move transfers amount pieces from the lot id to another lot of the same part
func (s *LotService) Move(ctx context.Context, id uint, req MoveRequest) (*LotResponse, error) {
	if err := s.deps.requireComment(logsystem.CommentPartStockOperation, req.Comment); err != nil {
		return nil, err
	}
	if req.TargetLotID == id {
		return nil, shared.NewDomainError("INVALID_TARGET", "Origin and target lot must differ")
	}
	err := s.deps.Tracker.Transaction(ctx, func(ctx context.Context) error {
		origin, part, err := s.loadForStock(ctx, id)
		if err != nil {
			return err
		}
		target, err := s.lotRepo.FindByID(ctx, req.TargetLotID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("INVALID_TARGET", "Target lot not found")
			}
			return err
		}
		if target.PartID != origin.PartID {
			return shared.NewDomainError("INVALID_TARGET", "Stock can only be moved between lots of the same part")
		}
		if err := s.checkLocationNotFull(ctx, target); err != nil {
			return err
		}
		unit, err := s.unitOf(ctx, part)
		if err != nil {
			return err
		}
		amount := parts.RoundAmount(req.Amount, unit)

		originBefore, err := shared.TakeSnapshot(origin)
		if err != nil {
			return err
		}
		targetBefore, err := shared.TakeSnapshot(target)
		if err != nil {
			return err
		}
		oldAmount := origin.Amount
		if err := origin.Withdraw(amount); err != nil {
			return err
		}
		if err := target.Add(amount); err != nil {
			return err
		}
		if err := s.deps.Tracker.Update(ctx, origin, originBefore, req.Comment); err != nil {
			return err
		}
		if err := s.deps.Tracker.Update(ctx, target, targetBefore, req.Comment); err != nil {
			return err
		}
		return s.recordStockChange(ctx, part, logsystem.StockMove, oldAmount, origin.Amount, req.Comment, target.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *LotService) loadForStock(ctx context.Context, id uint) (*parts.PartLot, *parts.Part, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	part, err := s.partRepo.FindByID(ctx, lot.PartID)
	if err != nil {
		return nil, nil, err
	}
	return lot, part, nil
}

func (s *LotService) recordStockChange(ctx context.Context, part *parts.Part, typ logsystem.StockChangeType, oldAmount, newAmount float64, comment string, moveTarget uint) error {
	lots, err := s.lotRepo.FindByPart(ctx, part.ID)
	if err != nil {
		return err
	}
	total := parts.AmountSum(lots, s.now())
	entry := logsystem.NewPartStockChanged(part, typ, oldAmount, newAmount, total, comment, moveTarget)
	if err := s.deps.Tracker.Recorder().Add(ctx, entry); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordStockOperation(ctx, string(typ), newAmount-oldAmount)
	}
	s.deps.logger().Debug("Stock changed",
		zap.Uint("part_id", part.ID),
		zap.String("operation", string(typ)),
		zap.Float64("old_amount", oldAmount),
		zap.Float64("new_amount", newAmount))
	return nil
}

func (s *LotService) unitOf(ctx context.Context, part *parts.Part) (*parts.MeasurementUnit, error) {
	if part.PartUnitID == nil {
		return nil, nil
	}
	unit, err := s.unitRepo.FindByID(ctx, *part.PartUnitID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return unit, nil
}

func (s *LotService) checkLocationNotFull(ctx context.Context, lot *parts.PartLot) error {
	if lot.StorageLocationID == nil {
		return nil
	}
	loc, err := s.locationRepo.FindByID(ctx, *lot.StorageLocationID)
	if err != nil {
		return err
	}
	if loc.IsFull {
		return shared.NewDomainError("LOCATION_FULL", "The storage location is marked as full")
	}
	return nil
}

// checkPlacement enforces the constraints of the lot's storage location.
// adding is true when the lot is newly put there.
func (s *LotService) checkPlacement(ctx context.Context, lot *parts.PartLot, adding bool) error {
	if lot.StorageLocationID == nil {
		return nil
	}
	loc, err := s.locationRepo.FindByID(ctx, *lot.StorageLocationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_LOCATION", "Storage location not found")
		}
		return err
	}
	present, err := s.lotRepo.PartIDsAtLocation(ctx, loc.ID, lot.ID)
	if err != nil {
		return err
	}
	return parts.CheckLocationAccepts(loc, lot.PartID, lot.OwnerID, present, adding)
}

func (s *LotService) toResponse(ctx context.Context, lot *parts.PartLot) (LotResponse, error) {
	path := ""
	if lot.StorageLocationID != nil {
		p, err := s.locations.FullPath(ctx, *lot.StorageLocationID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return LotResponse{}, err
		}
		path = p
	}
	return LotResponse{
		PartLot:     *lot,
		Expired:     lot.IsExpiredAt(s.now()),
		SelectLabel: lot.SelectLabel(path),
	}, nil
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
