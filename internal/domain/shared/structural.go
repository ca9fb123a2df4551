package shared

import (
	"strings"
)

// PathDelimiter separates names in the full path of a structural element
const PathDelimiter = " → "

// MaxNameLength is the maximum length of element names
const MaxNameLength = 255

// StructuralElement holds the fields shared by all tree-shaped data
// structures (categories, storage locations, footprints, ...).
type StructuralElement struct {
	BaseEntity
	Name     string `gorm:"type:varchar(255);not null;index" json:"name"`
	Comment  string `gorm:"type:text" json:"comment"`
	ParentID *uint  `gorm:"index" json:"parent_id"`
}

// Structure returns the embedded structural element
func (s *StructuralElement) Structure() *StructuralElement {
	return s
}

// GetName returns the element name
func (s *StructuralElement) GetName() string {
	return s.Name
}

// IsRoot returns true if the element has no parent
func (s *StructuralElement) IsRoot() bool {
	return s.ParentID == nil
}

// ValidateStructure checks the common constraints of structural elements
func (s *StructuralElement) ValidateStructure() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return NewDomainError("INVALID_NAME", "Name cannot exceed 255 characters")
	}
	if strings.Contains(name, "->") {
		return NewDomainError("INVALID_NAME", "Name cannot contain '->'")
	}
	s.Name = name
	if s.ParentID != nil && *s.ParentID == s.ID && s.ID != 0 {
		return NewDomainError("INVALID_PARENT", "An element cannot be its own parent")
	}
	return nil
}

// Structural is implemented by every tree-shaped data structure entity
type Structural interface {
	Trackable
	Named
	Structure() *StructuralElement
	Validate() error
}

// JoinPath builds the full path of an element from the names of its
// ancestors (root first) and itself.
func JoinPath(names []string) string {
	return strings.Join(names, PathDelimiter)
}

// SplitPath splits a user supplied hierarchy path. Both "->" and the
// display delimiter are accepted.
func SplitPath(path string) []string {
	path = strings.ReplaceAll(path, strings.TrimSpace(PathDelimiter), "->")
	raw := strings.Split(path, "->")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
