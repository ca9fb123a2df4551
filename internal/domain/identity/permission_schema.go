package identity

import (
	"sort"
	"strings"

	"github.com/partdb/backend/internal/domain/shared"
)

// OperationDefinition describes one operation of a permission
type OperationDefinition struct {
	Label string `yaml:"label" json:"label"`
	// AlsoSet lists operations that are allowed together with this one.
	// Entries are either "op" (same permission) or "perm.op".
	AlsoSet []string `yaml:"also_set" json:"also_set,omitempty"`
}

// PermissionDefinition describes a permission and its operations
type PermissionDefinition struct {
	Label      string                         `yaml:"label" json:"label"`
	Group      string                         `yaml:"group" json:"group"`
	Operations map[string]OperationDefinition `yaml:"operations" json:"operations"`
}

// PermissionSchema is the set of all known permissions
type PermissionSchema struct {
	Perms map[string]PermissionDefinition `yaml:"perms" json:"perms"`
}

// IsValid returns true if perm.op is defined
func (s *PermissionSchema) IsValid(perm, op string) bool {
	def, ok := s.Perms[perm]
	if !ok {
		return false
	}
	_, ok = def.Operations[op]
	return ok
}

// PermissionNames returns all permission names sorted
func (s *PermissionSchema) PermissionNames() []string {
	names := make([]string, 0, len(s.Perms))
	for name := range s.Perms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OperationNames returns the operations of perm sorted
func (s *PermissionSchema) OperationNames(perm string) []string {
	def, ok := s.Perms[perm]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(def.Operations))
	for name := range def.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PermissionResolver evaluates permissions against a schema
type PermissionResolver struct {
	schema *PermissionSchema
}

// NewPermissionResolver creates a resolver for schema
func NewPermissionResolver(schema *PermissionSchema) *PermissionResolver {
	return &PermissionResolver{schema: schema}
}

// Schema returns the underlying schema
func (r *PermissionResolver) Schema() *PermissionSchema {
	return r.schema
}

// Inherit resolves perm.op for user. groups is the chain starting at the
// user's group and walking up to the root group. Returns nil if nothing in
// the chain sets a value.
func (r *PermissionResolver) Inherit(user *User, groups []*Group, perm, op string) *bool {
	if user != nil {
		if v := user.GetPermissions().Get(perm, op); v != nil {
			return v
		}
	}
	for _, g := range groups {
		if g == nil {
			continue
		}
		if v := g.GetPermissions().Get(perm, op); v != nil {
			return v
		}
	}
	return nil
}

// IsAllowed returns true if user may do perm.op. Unknown permissions and
// unresolved values are disallowed.
func (r *PermissionResolver) IsAllowed(user *User, groups []*Group, perm, op string) bool {
	if !r.schema.IsValid(perm, op) {
		return false
	}
	v := r.Inherit(user, groups, perm, op)
	return v != nil && *v
}

// Set stores value for perm.op on holder. Allowing an operation also allows
// the operations listed in its also_set.
func (r *PermissionResolver) Set(holder PermissionHolder, perm, op string, value *bool) error {
	if !r.schema.IsValid(perm, op) {
		return shared.NewDomainError("INVALID_PERMISSION", "Unknown permission "+perm+"."+op)
	}
	return r.set(holder, perm, op, value, map[string]bool{})
}

func (r *PermissionResolver) set(holder PermissionHolder, perm, op string, value *bool, seen map[string]bool) error {
	key := perm + "." + op
	if seen[key] {
		return nil
	}
	seen[key] = true

	holder.GetPermissions().Set(perm, op, value)
	if value == nil || !*value {
		return nil
	}
	for _, dep := range r.schema.Perms[perm].Operations[op].AlsoSet {
		depPerm, depOp := perm, dep
		if i := strings.IndexByte(dep, '.'); i >= 0 {
			depPerm, depOp = dep[:i], dep[i+1:]
		}
		if !r.schema.IsValid(depPerm, depOp) {
			return shared.NewDomainError("INVALID_PERMISSION", "Unknown permission "+depPerm+"."+depOp+" in also_set of "+key)
		}
		if err := r.set(holder, depPerm, depOp, value, seen); err != nil {
			return err
		}
	}
	return nil
}

// SetAllOperations sets every operation of perm to value
func (r *PermissionResolver) SetAllOperations(holder PermissionHolder, perm string, value *bool) error {
	for _, op := range r.schema.OperationNames(perm) {
		if err := r.Set(holder, perm, op, value); err != nil {
			return err
		}
	}
	return nil
}
