package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *PermissionSchema {
	return &PermissionSchema{Perms: map[string]PermissionDefinition{
		"parts": {Label: "Parts", Operations: map[string]OperationDefinition{
			"read":   {Label: "Read"},
			"edit":   {Label: "Edit", AlsoSet: []string{"read"}},
			"delete": {Label: "Delete", AlsoSet: []string{"edit", "categories.read"}},
		}},
		"categories": {Label: "Categories", Operations: map[string]OperationDefinition{
			"read": {Label: "Read"},
		}},
	}}
}

func TestPermissionData_SetGet(t *testing.T) {
	p := PermissionData{}
	assert.Nil(t, p.Get("parts", "read"))

	p.Set("parts", "read", Allow)
	require.NotNil(t, p.Get("parts", "read"))
	assert.True(t, *p.Get("parts", "read"))

	clone := p.Clone()
	p.Set("parts", "read", nil)
	assert.Nil(t, p.Get("parts", "read"))
	assert.Empty(t, p)
	assert.NotNil(t, clone.Get("parts", "read"))
}

func TestPermissionResolver_Inheritance(t *testing.T) {
	r := NewPermissionResolver(testSchema())

	root := &Group{Permissions: PermissionData{}}
	child := &Group{Permissions: PermissionData{}}
	user := &User{Username: "alice"}
	chain := []*Group{child, root}

	// unresolved inherit is disallowed
	assert.False(t, r.IsAllowed(user, chain, "parts", "read"))

	root.Permissions.Set("parts", "read", Allow)
	assert.True(t, r.IsAllowed(user, chain, "parts", "read"))

	child.Permissions.Set("parts", "read", Disallow)
	assert.False(t, r.IsAllowed(user, chain, "parts", "read"))

	user.GetPermissions().Set("parts", "read", Allow)
	assert.True(t, r.IsAllowed(user, chain, "parts", "read"))

	assert.False(t, r.IsAllowed(user, chain, "parts", "unknown"))
}

func TestPermissionResolver_SetAlsoSet(t *testing.T) {
	r := NewPermissionResolver(testSchema())
	user := &User{Username: "alice"}

	require.NoError(t, r.Set(user, "parts", "delete", Allow))
	assert.True(t, r.IsAllowed(user, nil, "parts", "delete"))
	assert.True(t, r.IsAllowed(user, nil, "parts", "edit"))
	assert.True(t, r.IsAllowed(user, nil, "parts", "read"))
	assert.True(t, r.IsAllowed(user, nil, "categories", "read"))

	// disallowing does not cascade
	require.NoError(t, r.Set(user, "parts", "delete", Disallow))
	assert.False(t, r.IsAllowed(user, nil, "parts", "delete"))
	assert.True(t, r.IsAllowed(user, nil, "parts", "edit"))

	assert.Error(t, r.Set(user, "nope", "read", Allow))
}
