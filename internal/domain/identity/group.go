package identity

import (
	"github.com/partdb/backend/internal/domain/shared"
)

// Group bundles users and gives them permissions. Groups form a tree; a
// permission left at inherit is taken from the parent group.
type Group struct {
	shared.StructuralElement
	Enforce2FA  bool           `gorm:"column:enforce_2fa;not null;default:false" json:"enforce_2fa"`
	Permissions PermissionData `gorm:"type:text;serializer:json" json:"permissions"`
}

// TableName returns the table name for GORM
func (Group) TableName() string { return "groups" }

// TargetType implements shared.Trackable
func (*Group) TargetType() shared.TargetType { return shared.TargetGroup }

// GetPermissions implements PermissionHolder
func (g *Group) GetPermissions() PermissionData {
	if g.Permissions == nil {
		g.Permissions = PermissionData{}
	}
	return g.Permissions
}

// Validate checks the group fields
func (g *Group) Validate() error {
	return g.ValidateStructure()
}
