package parts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// UsageCounter counts the references to the structural element id. Elements
// that are still referenced cannot be deleted.
type UsageCounter func(ctx context.Context, id uint) (int64, error)

type usageCheck struct {
	name  string
	count UsageCounter
}

// StructuralService manages one kind of tree element. PT is the pointer type
// of T.
type StructuralService[T any, PT interface {
	*T
	shared.Structural
}] struct {
	kind   shared.TargetType
	repo   shared.StructuralRepository[T]
	deps   Deps
	usages []usageCheck
}

// NewStructuralService creates a service for the tree element T
func NewStructuralService[T any, PT interface {
	*T
	shared.Structural
}](repo shared.StructuralRepository[T], deps Deps) *StructuralService[T, PT] {
	return &StructuralService[T, PT]{
		kind: PT(new(T)).TargetType(),
		repo: repo,
		deps: deps,
	}
}

// WithUsageCheck registers a reference counter consulted before deletion
func (s *StructuralService[T, PT]) WithUsageCheck(name string, count UsageCounter) *StructuralService[T, PT] {
	s.usages = append(s.usages, usageCheck{name: name, count: count})
	return s
}

// Kind returns the target type managed by the service
func (s *StructuralService[T, PT]) Kind() shared.TargetType {
	return s.kind
}

// Get returns the element with id
func (s *StructuralService[T, PT]) Get(ctx context.Context, id uint) (PT, error) {
	el, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return PT(el), nil
}

// List returns all elements ordered by name
func (s *StructuralService[T, PT]) List(ctx context.Context) ([]T, error) {
	return s.repo.FindAll(ctx)
}

// Children returns the direct children of parentID (roots for nil)
func (s *StructuralService[T, PT]) Children(ctx context.Context, parentID *uint) ([]T, error) {
	return s.repo.FindChildren(ctx, parentID)
}

// Tree returns all elements as a tree. The result is cached under the kind's
// tag until an element of the kind changes.
func (s *StructuralService[T, PT]) Tree(ctx context.Context) ([]TreeNode, error) {
	key := KindTag(s.kind)
	if s.deps.Cache != nil {
		var cached []TreeNode
		hit, err := s.deps.Cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, nil
		}
		if err != nil {
			s.deps.logger().Warn("Tree cache read failed", zap.String("kind", string(s.kind)), zap.Error(err))
		}
	}

	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	tree := buildTree[T, PT](all)

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, tree, s.deps.CacheTTL, key, TagSidebarTree); err != nil {
			s.deps.logger().Warn("Tree cache write failed", zap.String("kind", string(s.kind)), zap.Error(err))
		}
	}
	return tree, nil
}

// FullPath returns the names from the root down to id joined by the path delimiter
func (s *StructuralService[T, PT]) FullPath(ctx context.Context, id uint) (string, error) {
	names, err := s.pathNames(ctx, id)
	if err != nil {
		return "", err
	}
	return shared.JoinPath(names), nil
}

func (s *StructuralService[T, PT]) pathNames(ctx context.Context, id uint) ([]string, error) {
	var names []string
	seen := map[uint]bool{}
	current := &id
	for current != nil {
		if seen[*current] {
			return nil, shared.NewDomainError("INVALID_PARENT", "The element tree contains a cycle")
		}
		seen[*current] = true
		el, err := s.repo.FindByID(ctx, *current)
		if err != nil {
			return nil, err
		}
		st := PT(el).Structure()
		names = append([]string{st.Name}, names...)
		current = st.ParentID
	}
	return names, nil
}

// Create validates and stores a new element
func (s *StructuralService[T, PT]) Create(ctx context.Context, el PT, comment string) error {
	if err := s.deps.requireComment(logsystem.CommentDatastructureCreate, comment); err != nil {
		return err
	}
	st := el.Structure()
	st.ID = 0
	if err := el.Validate(); err != nil {
		return err
	}
	if err := s.checkParent(ctx, 0, st.ParentID); err != nil {
		return err
	}
	if err := s.checkSiblingName(ctx, 0, st.Name, st.ParentID); err != nil {
		return err
	}
	return s.deps.Tracker.Create(ctx, el, comment)
}

// Update applies patch (JSON field name -> value) to the element id
func (s *StructuralService[T, PT]) Update(ctx context.Context, id uint, patch map[string]any, comment string) (PT, error) {
	if err := s.deps.requireComment(logsystem.CommentDatastructureEdit, comment); err != nil {
		return nil, err
	}
	found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	el := PT(found)
	before, err := shared.TakeSnapshot(el)
	if err != nil {
		return nil, err
	}
	if err := shared.ApplySnapshot(el, patch); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}
	st := el.Structure()
	if err := el.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, id, st.ParentID); err != nil {
		return nil, err
	}
	if err := s.checkSiblingName(ctx, id, st.Name, st.ParentID); err != nil {
		return nil, err
	}
	st.Touch()
	if err := s.deps.Tracker.Update(ctx, el, before, comment); err != nil {
		return nil, err
	}
	return el, nil
}

// Delete removes the element id. Its children are moved to its parent.
func (s *StructuralService[T, PT]) Delete(ctx context.Context, id uint, comment string) error {
	if err := s.deps.requireComment(logsystem.CommentDatastructureDelete, comment); err != nil {
		return err
	}
	found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	el := PT(found)
	for _, u := range s.usages {
		n, err := u.count(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return shared.NewDomainError("IN_USE",
				fmt.Sprintf("The element is still used by %d %s", n, u.name))
		}
	}

	children, err := s.repo.FindChildren(ctx, &id)
	if err != nil {
		return err
	}
	newParent := el.Structure().ParentID
	for i := range children {
		child := PT(&children[i])
		before, err := shared.TakeSnapshot(child)
		if err != nil {
			return err
		}
		child.Structure().ParentID = newParent
		child.Structure().Touch()
		if err := s.deps.Tracker.Update(ctx, child, before, comment); err != nil {
			return err
		}
	}
	return s.deps.Tracker.Delete(ctx, el, comment)
}

// FindOrCreatePath walks names from the root, creating missing elements.
// It returns the deepest element.
func (s *StructuralService[T, PT]) FindOrCreatePath(ctx context.Context, names []string, comment string) (PT, error) {
	var parentID *uint
	var current PT
	for _, name := range names {
		found, err := s.repo.FindByNameAndParent(ctx, name, parentID)
		switch {
		case err == nil:
			current = PT(found)
		case errors.Is(err, shared.ErrNotFound):
			current = PT(new(T))
			st := current.Structure()
			st.Name = name
			st.ParentID = parentID
			st.BaseEntity = shared.NewBaseEntity()
			if err := s.Create(ctx, current, comment); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
		id := current.GetID()
		parentID = &id
	}
	if current == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Path is empty")
	}
	return current, nil
}

// checkParent verifies that parentID exists and is not id itself or one of
// its descendants
func (s *StructuralService[T, PT]) checkParent(ctx context.Context, id uint, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	current := parentID
	seen := map[uint]bool{}
	for current != nil {
		if id != 0 && *current == id {
			return shared.NewDomainError("INVALID_PARENT", "An element cannot be moved below itself")
		}
		if seen[*current] {
			return shared.NewDomainError("INVALID_PARENT", "The element tree contains a cycle")
		}
		seen[*current] = true
		parent, err := s.repo.FindByID(ctx, *current)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("INVALID_PARENT", "Parent element not found")
			}
			return err
		}
		current = PT(parent).Structure().ParentID
	}
	return nil
}

func (s *StructuralService[T, PT]) checkSiblingName(ctx context.Context, id uint, name string, parentID *uint) error {
	existing, err := s.repo.FindByNameAndParent(ctx, name, parentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if PT(existing).GetID() != id {
		return shared.NewDomainError("ALREADY_EXISTS", "An element with this name already exists at this level")
	}
	return nil
}
