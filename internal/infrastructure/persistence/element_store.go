package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/partdb/backend/internal/domain/attachment"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/labels"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
)

var elementFactories = map[shared.TargetType]func() shared.Trackable{
	shared.TargetPart:            func() shared.Trackable { return &parts.Part{} },
	shared.TargetPartLot:         func() shared.Trackable { return &parts.PartLot{} },
	shared.TargetCategory:        func() shared.Trackable { return &parts.Category{} },
	shared.TargetStorageLocation: func() shared.Trackable { return &parts.StorageLocation{} },
	shared.TargetFootprint:       func() shared.Trackable { return &parts.Footprint{} },
	shared.TargetManufacturer:    func() shared.Trackable { return &parts.Manufacturer{} },
	shared.TargetSupplier:        func() shared.Trackable { return &parts.Supplier{} },
	shared.TargetMeasurementUnit: func() shared.Trackable { return &parts.MeasurementUnit{} },
	shared.TargetCurrency:        func() shared.Trackable { return &pricing.Currency{} },
	shared.TargetAttachmentType:  func() shared.Trackable { return &attachment.AttachmentType{} },
	shared.TargetAttachment:      func() shared.Trackable { return &attachment.Attachment{} },
	shared.TargetOrderdetail:     func() shared.Trackable { return &pricing.Orderdetail{} },
	shared.TargetPricedetail:     func() shared.Trackable { return &pricing.Pricedetail{} },
	shared.TargetUser:            func() shared.Trackable { return &identity.User{} },
	shared.TargetGroup:           func() shared.Trackable { return &identity.Group{} },
	shared.TargetLabelProfile:    func() shared.Trackable { return &labels.Profile{} },
}

// GormElementStore implements logsystem.ElementStore on top of the entity tables
type GormElementStore struct {
	db *gorm.DB
}

// NewGormElementStore creates a new GormElementStore
func NewGormElementStore(db *gorm.DB) *GormElementStore {
	return &GormElementStore{db: db}
}

// New returns an empty element of type t
func (s *GormElementStore) New(t shared.TargetType) (shared.Trackable, error) {
	factory, ok := elementFactories[t]
	if !ok {
		return nil, shared.NewDomainError("INVALID_TARGET_TYPE", fmt.Sprintf("Unknown element type %q", t))
	}
	return factory(), nil
}

// Find loads an element by type and ID
func (s *GormElementStore) Find(ctx context.Context, t shared.TargetType, id uint) (shared.Trackable, error) {
	el, err := s.New(t)
	if err != nil {
		return nil, err
	}
	if err := conn(ctx, s.db).First(el, id).Error; err != nil {
		return nil, translate(err)
	}
	return el, nil
}

// Exists reports whether an element exists
func (s *GormElementStore) Exists(ctx context.Context, t shared.TargetType, id uint) (bool, error) {
	el, err := s.New(t)
	if err != nil {
		return false, err
	}
	var count int64
	err = conn(ctx, s.db).Model(el).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Insert creates the row with the element's own ID
func (s *GormElementStore) Insert(ctx context.Context, element shared.Trackable) error {
	if element.GetID() == 0 {
		return shared.NewDomainError("INVALID_ID", "Restored elements need their original ID")
	}
	return translate(conn(ctx, s.db).Omit(clause.Associations).Create(element).Error)
}

// Save updates an existing element
func (s *GormElementStore) Save(ctx context.Context, element shared.Trackable) error {
	return translate(conn(ctx, s.db).Omit(clause.Associations).Save(element).Error)
}

// Delete removes an element. Collections must be emptied before.
func (s *GormElementStore) Delete(ctx context.Context, element shared.Trackable) error {
	return deleteByID(conn(ctx, s.db), element, element.GetID())
}

// FindChildren returns the members of a collection of owner
func (s *GormElementStore) FindChildren(ctx context.Context, owner shared.Trackable, c shared.Collection) ([]shared.Trackable, error) {
	if owner.TargetType() != c.Owner {
		return nil, fmt.Errorf("collection %s does not belong to %s", c.Name, owner.TargetType())
	}
	q := conn(ctx, s.db).Order("id ASC")
	id := owner.GetID()
	var out []shared.Trackable
	switch c.Child {
	case shared.TargetPartLot:
		var lots []parts.PartLot
		if err := q.Where("part_id = ?", id).Find(&lots).Error; err != nil {
			return nil, err
		}
		for i := range lots {
			out = append(out, &lots[i])
		}
	case shared.TargetOrderdetail:
		var ods []pricing.Orderdetail
		if err := q.Where("part_id = ?", id).Find(&ods).Error; err != nil {
			return nil, err
		}
		for i := range ods {
			out = append(out, &ods[i])
		}
	case shared.TargetAttachment:
		var atts []attachment.Attachment
		if err := q.Where("element_type = ? AND element_id = ?", owner.TargetType(), id).Find(&atts).Error; err != nil {
			return nil, err
		}
		for i := range atts {
			out = append(out, &atts[i])
		}
	case shared.TargetPricedetail:
		var pds []pricing.Pricedetail
		if err := q.Where("orderdetail_id = ?", id).Find(&pds).Error; err != nil {
			return nil, err
		}
		for i := range pds {
			out = append(out, &pds[i])
		}
	default:
		return nil, fmt.Errorf("unsupported collection %s", c.Name)
	}
	return out, nil
}

var _ logsystem.ElementStore = (*GormElementStore)(nil)
