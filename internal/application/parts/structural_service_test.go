package parts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

func TestStructuralService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	root := f.category(t, "Passive", nil)
	child := f.category(t, "Resistors", &root.ID)

	path, err := f.categories.FullPath(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Passive → Resistors", path)

	t.Run("sibling names are unique", func(t *testing.T) {
		dup := newCategory("Resistors", &root.ID)
		assert.ErrorIs(t, f.categories.Create(ctx, dup, ""), shared.ErrAlreadyExists)

		sameNameElsewhere := newCategory("Resistors", nil)
		assert.NoError(t, f.categories.Create(ctx, sameNameElsewhere, ""))
	})

	t.Run("parent must exist", func(t *testing.T) {
		missing := uint(999)
		err := f.categories.Create(ctx, newCategory("Orphan", &missing), "")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PARENT", domainErr.Code)
	})

	t.Run("creation is logged", func(t *testing.T) {
		created := f.entries(t, logsystem.TypeElementCreated)
		assert.GreaterOrEqual(t, len(created), 3)
		assert.Equal(t, shared.TargetCategory, created[0].TargetType)
	})
}

func TestStructuralService_UpdateRejectsCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.category(t, "A", nil)
	b := f.category(t, "B", &a.ID)
	c := f.category(t, "C", &b.ID)

	_, err := f.categories.Update(ctx, a.ID, map[string]any{"parent_id": c.ID}, "")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PARENT", domainErr.Code)

	updated, err := f.categories.Update(ctx, c.ID, map[string]any{"parent_id": nil, "comment": "moved"}, "")
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
	assert.Equal(t, "moved", updated.Comment)

	edits := f.entries(t, logsystem.TypeElementEdited)
	require.Len(t, edits, 1)
	assert.ElementsMatch(t, []string{"comment", "parent_id"}, edits[0].ChangedFields())
}

func TestStructuralService_DeleteMovesChildrenUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	root := f.category(t, "Root", nil)
	middle := f.category(t, "Middle", &root.ID)
	leaf := f.category(t, "Leaf", &middle.ID)

	require.NoError(t, f.categories.Delete(ctx, middle.ID, ""))

	moved, err := f.categories.Get(ctx, leaf.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, root.ID, *moved.ParentID)

	_, err = f.categories.Get(ctx, middle.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStructuralService_DeleteInUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cat := f.category(t, "Transistors", nil)
	f.part(t, "BC547", cat.ID, nil)

	err := f.categories.Delete(ctx, cat.ID, "")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "IN_USE", domainErr.Code)
}

func TestStructuralService_CommentRequired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, logsystem.CommentDatastructureCreate)

	err := f.categories.Create(ctx, newCategory("Caps", nil), "")
	assert.ErrorIs(t, err, shared.ErrCommentRequired)

	c := newCategory("Caps", nil)
	require.NoError(t, f.categories.Create(ctx, c, "initial import"))
	created := f.entries(t, logsystem.TypeElementCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "initial import", created[0].Comment())
}

func TestStructuralService_TreeIsCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	handler := NewCacheInvalidationHandler(f.cache, nil)

	root := f.category(t, "Root", nil)
	f.category(t, "Child", &root.ID)

	tree, err := f.categories.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Root → Child", tree[0].Children[0].FullPath)

	_, err = f.categories.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	other := f.category(t, "Other", nil)
	require.NoError(t, handler.Handle(ctx, shared.NewElementChangedEvent(other, shared.ElementCreated)))

	tree, err = f.categories.Tree(ctx)
	require.NoError(t, err)
	assert.Len(t, tree, 2)
	assert.Equal(t, 1, f.cache.hits)
}

func TestStructuralService_FindOrCreatePath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	leaf, err := f.categories.FindOrCreatePath(ctx, []string{"Active", "Semiconductors", "Diodes"}, "")
	require.NoError(t, err)
	path, err := f.categories.FullPath(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Active → Semiconductors → Diodes", path)

	again, err := f.categories.FindOrCreatePath(ctx, []string{"Active", "Semiconductors"}, "")
	require.NoError(t, err)
	assert.Equal(t, *leaf.ParentID, again.ID)

	all, err := f.categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTagsFor(t *testing.T) {
	assert.Equal(t, []string{"tree_category", TagSidebarTree}, TagsFor(shared.TargetCategory, 1))
	assert.Equal(t, []string{"tree_label_profile"}, TagsFor(shared.TargetLabelProfile, 1))
	assert.Equal(t, []string{"user_7", TagUser}, TagsFor(shared.TargetUser, 7))
	assert.Equal(t, []string{"tree_group", TagGroups}, TagsFor(shared.TargetGroup, 2))
	assert.Nil(t, TagsFor(shared.TargetPart, 3))
}
