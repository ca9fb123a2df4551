package persistence

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/attachment"
	"github.com/partdb/backend/internal/domain/shared"
)

// reference is a column of elements of type from holding the ID of an
// element of type to
type reference struct {
	from   shared.TargetType
	column string
	to     shared.TargetType
	label  string
}

var references = []reference{
	{shared.TargetPart, "category_id", shared.TargetCategory, "parts"},
	{shared.TargetPart, "footprint_id", shared.TargetFootprint, "parts"},
	{shared.TargetPart, "manufacturer_id", shared.TargetManufacturer, "parts"},
	{shared.TargetPart, "part_unit_id", shared.TargetMeasurementUnit, "parts"},
	{shared.TargetPartLot, "part_id", shared.TargetPart, "part lots"},
	{shared.TargetPartLot, "storage_location_id", shared.TargetStorageLocation, "part lots"},
	{shared.TargetPartLot, "owner_id", shared.TargetUser, "part lots"},
	{shared.TargetStorageLocation, "storage_type_id", shared.TargetMeasurementUnit, "storage locations"},
	{shared.TargetStorageLocation, "owner_id", shared.TargetUser, "storage locations"},
	{shared.TargetSupplier, "default_currency_id", shared.TargetCurrency, "suppliers"},
	{shared.TargetOrderdetail, "part_id", shared.TargetPart, "orderdetails"},
	{shared.TargetOrderdetail, "supplier_id", shared.TargetSupplier, "orderdetails"},
	{shared.TargetPricedetail, "orderdetail_id", shared.TargetOrderdetail, "pricedetails"},
	{shared.TargetPricedetail, "currency_id", shared.TargetCurrency, "pricedetails"},
	{shared.TargetAttachment, "attachment_type_id", shared.TargetAttachmentType, "attachments"},
	{shared.TargetUser, "group_id", shared.TargetGroup, "users"},
}

// CheckDelete fails with an IN_USE error when other elements still point at
// element. Members of its own collections are not counted, they are deleted
// together with it.
func (s *GormElementStore) CheckDelete(ctx context.Context, element shared.Trackable) error {
	t, id := element.TargetType(), element.GetID()
	owned := map[shared.TargetType]bool{}
	for _, c := range shared.CollectionsOf(t) {
		owned[c.Child] = true
	}

	for _, r := range references {
		if r.to != t || owned[r.from] {
			continue
		}
		if err := s.countUsers(ctx, r.from, r.column+" = ?", []any{id}, r.label); err != nil {
			return err
		}
	}
	if _, ok := element.(shared.Structural); ok {
		if err := s.countUsers(ctx, t, "parent_id = ?", []any{id}, "child elements"); err != nil {
			return err
		}
	}
	if !owned[shared.TargetAttachment] {
		if err := s.countUsers(ctx, shared.TargetAttachment, "element_type = ? AND element_id = ?", []any{t, id}, "attachments"); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormElementStore) countUsers(ctx context.Context, from shared.TargetType, where string, args []any, label string) error {
	model, err := s.New(from)
	if err != nil {
		return err
	}
	var n int64
	if err := conn(ctx, s.db).Model(model).Where(where, args...).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return shared.NewDomainError("IN_USE", fmt.Sprintf("The element is still used by %d %s", n, label))
	}
	return nil
}

// CheckReferences fails with a MISSING_REFERENCE error when an element
// referenced by element does not exist
func (s *GormElementStore) CheckReferences(ctx context.Context, element shared.Trackable) error {
	t := element.TargetType()
	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(element); err != nil {
		return err
	}

	for _, r := range references {
		if r.from != t {
			continue
		}
		field := stmt.Schema.LookUpField(r.column)
		if field == nil {
			return fmt.Errorf("%s has no column %s", t, r.column)
		}
		value, zero := field.ValueOf(ctx, reflect.ValueOf(element))
		if zero {
			continue
		}
		if err := s.requireExists(ctx, r.to, idOf(value)); err != nil {
			return err
		}
	}
	if st, ok := element.(shared.Structural); ok && st.Structure().ParentID != nil {
		if err := s.requireExists(ctx, t, *st.Structure().ParentID); err != nil {
			return err
		}
	}
	if a, ok := element.(*attachment.Attachment); ok {
		if ot, oid := a.Owner(); ot != "" && oid != 0 {
			if err := s.requireExists(ctx, ot, oid); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *GormElementStore) requireExists(ctx context.Context, t shared.TargetType, id uint) error {
	exists, err := s.Exists(ctx, t, id)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewDomainError("MISSING_REFERENCE",
			fmt.Sprintf("The referenced %s #%d does not exist anymore", t, id))
	}
	return nil
}

func idOf(value any) uint {
	switch v := value.(type) {
	case uint:
		return v
	case *uint:
		if v != nil {
			return *v
		}
	}
	return 0
}
