package shared

import "time"

// TargetType identifies the kind of a tracked element. It is stored in log
// entries and used to look up permissions and cache tags.
type TargetType string

const (
	TargetPart            TargetType = "part"
	TargetPartLot         TargetType = "part_lot"
	TargetCategory        TargetType = "category"
	TargetStorageLocation TargetType = "storage_location"
	TargetFootprint       TargetType = "footprint"
	TargetManufacturer    TargetType = "manufacturer"
	TargetSupplier        TargetType = "supplier"
	TargetMeasurementUnit TargetType = "measurement_unit"
	TargetCurrency        TargetType = "currency"
	TargetAttachmentType  TargetType = "attachment_type"
	TargetAttachment      TargetType = "attachment"
	TargetOrderdetail     TargetType = "orderdetail"
	TargetPricedetail     TargetType = "pricedetail"
	TargetUser            TargetType = "user"
	TargetGroup           TargetType = "group"
	TargetLabelProfile    TargetType = "label_profile"
)

// AllTargetTypes lists every known target type
var AllTargetTypes = []TargetType{
	TargetPart, TargetPartLot, TargetCategory, TargetStorageLocation, TargetFootprint,
	TargetManufacturer, TargetSupplier, TargetMeasurementUnit, TargetCurrency,
	TargetAttachmentType, TargetAttachment, TargetOrderdetail, TargetPricedetail,
	TargetUser, TargetGroup, TargetLabelProfile,
}

// IsValid returns true if the target type is known
func (t TargetType) IsValid() bool {
	for _, known := range AllTargetTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsStructural returns true for tree-shaped data structure elements
func (t TargetType) IsStructural() bool {
	switch t {
	case TargetCategory, TargetStorageLocation, TargetFootprint, TargetManufacturer,
		TargetSupplier, TargetMeasurementUnit, TargetCurrency, TargetAttachmentType:
		return true
	}
	return false
}

// PermissionGroup maps a target type to the permission group guarding it
func (t TargetType) PermissionGroup() string {
	switch t {
	case TargetPart, TargetPartLot, TargetOrderdetail, TargetPricedetail:
		return "parts"
	case TargetCategory:
		return "categories"
	case TargetStorageLocation:
		return "storelocations"
	case TargetFootprint:
		return "footprints"
	case TargetManufacturer:
		return "manufacturers"
	case TargetSupplier:
		return "suppliers"
	case TargetMeasurementUnit:
		return "measurement_units"
	case TargetCurrency:
		return "currencies"
	case TargetAttachmentType:
		return "attachment_types"
	case TargetAttachment:
		return "attachments"
	case TargetUser:
		return "users"
	case TargetGroup:
		return "groups"
	case TargetLabelProfile:
		return "labels"
	}
	return ""
}

// Trackable is implemented by every entity whose changes are written to the
// audit log and which can be restored from it.
type Trackable interface {
	GetID() uint
	SetID(id uint)
	GetCreatedAt() time.Time
	SetCreatedAt(t time.Time)
	TargetType() TargetType
}

// Named is implemented by trackables that have a display name
type Named interface {
	GetName() string
}

// Collection is a list of child elements owned by another element. Children
// are deleted together with their owner and restored with it.
type Collection struct {
	Name  string
	Owner TargetType
	Child TargetType
}

// Collections lists the owned collections of every owner type
var Collections = []Collection{
	{Name: "part_lots", Owner: TargetPart, Child: TargetPartLot},
	{Name: "orderdetails", Owner: TargetPart, Child: TargetOrderdetail},
	{Name: "attachments", Owner: TargetPart, Child: TargetAttachment},
	{Name: "pricedetails", Owner: TargetOrderdetail, Child: TargetPricedetail},
}

// CollectionsOf returns the collections owned by elements of type t
func CollectionsOf(t TargetType) []Collection {
	var out []Collection
	for _, c := range Collections {
		if c.Owner == t {
			out = append(out, c)
		}
	}
	return out
}

// OwnerCollection returns the collection an element of type child belongs
// to, if any
func OwnerCollection(child TargetType) (Collection, bool) {
	for _, c := range Collections {
		if c.Child == child {
			return c, true
		}
	}
	return Collection{}, false
}
