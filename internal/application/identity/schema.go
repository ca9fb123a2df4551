package identity

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/partdb/backend/internal/domain/identity"
)

//go:embed permissions.yaml
var permissionsYAML []byte

var (
	schemaOnce sync.Once
	schema     *identity.PermissionSchema
	schemaErr  error
)

// PermissionSchema returns the built-in permission schema. It is parsed once.
func PermissionSchema() (*identity.PermissionSchema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = ParsePermissionSchema(permissionsYAML)
	})
	return schema, schemaErr
}

// ParsePermissionSchema parses a permission schema and checks that every
// also_set entry names a known operation
func ParsePermissionSchema(raw []byte) (*identity.PermissionSchema, error) {
	var s identity.PermissionSchema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse permission schema: %w", err)
	}
	if len(s.Perms) == 0 {
		return nil, fmt.Errorf("permission schema defines no permissions")
	}
	for perm, def := range s.Perms {
		for op, opDef := range def.Operations {
			for _, dep := range opDef.AlsoSet {
				depPerm, depOp := perm, dep
				if i := strings.IndexByte(dep, '.'); i >= 0 {
					depPerm, depOp = dep[:i], dep[i+1:]
				}
				if !s.IsValid(depPerm, depOp) {
					return nil, fmt.Errorf("%s.%s: also_set references unknown operation %q", perm, op, dep)
				}
			}
		}
	}
	return &s, nil
}
