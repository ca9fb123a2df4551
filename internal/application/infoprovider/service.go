package infoprovider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
)

// ErrPartExists is returned when a part was already created from the same
// provider result
var ErrPartExists = shared.NewDomainError("PART_ALREADY_EXISTS", "A part was already created from this provider result")

// PartCreator creates parts
type PartCreator interface {
	Create(ctx context.Context, req appparts.CreatePartRequest) (*appparts.PartResponse, error)
}

// OrderdetailCreator stores distributor offers of a part
type OrderdetailCreator interface {
	Create(ctx context.Context, partID uint, req appparts.CreateOrderdetailRequest) (*appparts.OrderdetailResponse, error)
	AddPricedetail(ctx context.Context, orderdetailID uint, req appparts.PricedetailRequest) (*pricing.Pricedetail, error)
}

// CreatePartInput selects a provider result and where the new part goes
type CreatePartInput struct {
	ProviderKey   string `json:"provider_key" binding:"required"`
	ProviderID    string `json:"provider_id" binding:"required"`
	CategoryID    uint   `json:"category_id" binding:"required"`
	ChangeComment string `json:"change_comment"`
}

// Service creates parts from provider results
type Service struct {
	retriever    *PartInfoRetriever
	partRepo     parts.PartRepository
	creator      PartCreator
	orderdetails OrderdetailCreator
	kinds        appparts.Kinds
	tracker      *applog.Tracker
	baseCurrency string
	now          func() time.Time
	logger       *zap.Logger
}

// NewService creates a Service. Prices are only copied when they are given
// in baseCurrency.
func NewService(
	retriever *PartInfoRetriever,
	partRepo parts.PartRepository,
	creator PartCreator,
	orderdetails OrderdetailCreator,
	kinds appparts.Kinds,
	tracker *applog.Tracker,
	baseCurrency string,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever:    retriever,
		partRepo:     partRepo,
		creator:      creator,
		orderdetails: orderdetails,
		kinds:        kinds,
		tracker:      tracker,
		baseCurrency: strings.ToUpper(baseCurrency),
		now:          time.Now,
		logger:       logger,
	}
}

// Retriever returns the search backend of the service
func (s *Service) Retriever() *PartInfoRetriever {
	return s.retriever
}

// CreatePart creates a part with the data of a provider result. Manufacturer,
// footprint and distributors are created if they do not exist yet.
func (s *Service) CreatePart(ctx context.Context, in CreatePartInput) (*appparts.PartResponse, error) {
	existing, err := s.partRepo.FindByProviderReference(ctx, in.ProviderKey, in.ProviderID)
	if err == nil && existing != nil {
		return nil, ErrPartExists
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	detail, err := s.retriever.GetDetails(ctx, in.ProviderKey, in.ProviderID)
	if err != nil {
		return nil, err
	}

	var created *appparts.PartResponse
	err = s.tracker.Transaction(ctx, func(ctx context.Context) error {
		req, err := s.partRequest(ctx, detail, in)
		if err != nil {
			return err
		}
		if created, err = s.creator.Create(ctx, req); err != nil {
			return err
		}
		return s.addVendorInfos(ctx, created.ID, detail.VendorInfos, in.ChangeComment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Part created from info provider",
		zap.Uint("part_id", created.ID),
		zap.String("provider", in.ProviderKey),
		zap.String("provider_id", in.ProviderID))
	return created, nil
}

func (s *Service) partRequest(ctx context.Context, d *PartDetail, in CreatePartInput) (appparts.CreatePartRequest, error) {
	now := s.now()
	req := appparts.CreatePartRequest{
		Name:                      d.Name,
		Description:               d.Description,
		Comment:                   d.Notes,
		CategoryID:                in.CategoryID,
		ManufacturerProductNumber: d.MPN,
		Mass:                      d.Mass,
		ChangeComment:             in.ChangeComment,
		Provider: &parts.ProviderReference{
			ProviderKey: d.ProviderKey,
			ProviderID:  d.ProviderID,
			ProviderURL: d.ProviderURL,
			LastUpdated: &now,
		},
	}
	if req.Name == "" {
		req.Name = d.MPN
	}
	if parts.ManufacturingStatus(d.ManufacturingStatus).IsValid() {
		req.ManufacturingStatus = d.ManufacturingStatus
	}

	var err error
	if req.ManufacturerID, err = s.findOrCreate(ctx, shared.TargetManufacturer, d.Manufacturer, in.ChangeComment); err != nil {
		return req, err
	}
	if req.FootprintID, err = s.findOrCreate(ctx, shared.TargetFootprint, d.Footprint, in.ChangeComment); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Service) findOrCreate(ctx context.Context, t shared.TargetType, name, comment string) (*uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	kind, err := s.kinds.Get(t)
	if err != nil {
		return nil, err
	}
	el, err := kind.FindOrCreatePath(ctx, []string{name}, comment)
	if err != nil {
		return nil, err
	}
	id := el.GetID()
	return &id, nil
}

func (s *Service) addVendorInfos(ctx context.Context, partID uint, infos []VendorInfo, comment string) error {
	if s.orderdetails == nil {
		return nil
	}
	for _, vi := range infos {
		supplierID, err := s.findOrCreate(ctx, shared.TargetSupplier, vi.Distributor, comment)
		if err != nil {
			return err
		}
		if supplierID == nil {
			continue
		}
		od, err := s.orderdetails.Create(ctx, partID, appparts.CreateOrderdetailRequest{
			SupplierID:         *supplierID,
			SupplierPartNr:     vi.OrderNumber,
			SupplierProductURL: vi.ProductURL,
			ChangeComment:      comment,
		})
		if err != nil {
			return err
		}
		for _, pb := range vi.Prices {
			if !strings.EqualFold(pb.Currency, s.baseCurrency) {
				continue
			}
			minQty := decimal.NewFromFloat(pb.MinQuantity)
			if minQty.LessThan(decimal.NewFromInt(1)) {
				minQty = decimal.NewFromInt(1)
			}
			if _, err := s.orderdetails.AddPricedetail(ctx, od.ID, appparts.PricedetailRequest{
				Price:               pb.Price,
				MinDiscountQuantity: &minQty,
				ChangeComment:       comment,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
