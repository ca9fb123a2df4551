package identity

// PermissionData stores explicit permission values as
// permission -> operation -> allowed. Operations missing from the map inherit
// their value from the parent group.
type PermissionData map[string]map[string]bool

// Get returns the explicit value of perm.op, or nil for inherit
func (p PermissionData) Get(perm, op string) *bool {
	ops, ok := p[perm]
	if !ok {
		return nil
	}
	v, ok := ops[op]
	if !ok {
		return nil
	}
	return &v
}

// Set stores a value for perm.op. A nil value resets it to inherit.
func (p PermissionData) Set(perm, op string, value *bool) {
	if value == nil {
		if ops, ok := p[perm]; ok {
			delete(ops, op)
			if len(ops) == 0 {
				delete(p, perm)
			}
		}
		return
	}
	ops, ok := p[perm]
	if !ok {
		ops = make(map[string]bool)
		p[perm] = ops
	}
	ops[op] = *value
}

// Clone returns a deep copy
func (p PermissionData) Clone() PermissionData {
	out := make(PermissionData, len(p))
	for perm, ops := range p {
		c := make(map[string]bool, len(ops))
		for op, v := range ops {
			c[op] = v
		}
		out[perm] = c
	}
	return out
}

// PermissionHolder is implemented by users and groups
type PermissionHolder interface {
	GetPermissions() PermissionData
}

// Allow and Disallow are helpers for Set
var (
	Allow    = ptrBool(true)
	Disallow = ptrBool(false)
)

func ptrBool(v bool) *bool { return &v }
