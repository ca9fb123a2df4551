package parts

import (
	"context"
	"fmt"

	"github.com/partdb/backend/internal/domain/shared"
)

// Kind is a StructuralService without its type parameters. HTTP handlers
// and import/export work with every structural kind through it.
type Kind interface {
	Kind() shared.TargetType
	New() shared.Structural
	Get(ctx context.Context, id uint) (shared.Structural, error)
	List(ctx context.Context) ([]shared.Structural, error)
	Tree(ctx context.Context) ([]TreeNode, error)
	FullPath(ctx context.Context, id uint) (string, error)
	Create(ctx context.Context, el shared.Structural, comment string) error
	Update(ctx context.Context, id uint, patch map[string]any, comment string) (shared.Structural, error)
	Delete(ctx context.Context, id uint, comment string) error
	FindOrCreatePath(ctx context.Context, names []string, comment string) (shared.Structural, error)
}

type erasedKind[T any, PT interface {
	*T
	shared.Structural
}] struct {
	svc *StructuralService[T, PT]
}

// Erased returns the type-erased view of the service
func (s *StructuralService[T, PT]) Erased() Kind {
	return erasedKind[T, PT]{svc: s}
}

func (k erasedKind[T, PT]) Kind() shared.TargetType { return k.svc.Kind() }

func (k erasedKind[T, PT]) New() shared.Structural {
	el := PT(new(T))
	el.Structure().BaseEntity = shared.NewBaseEntity()
	return el
}

func (k erasedKind[T, PT]) Get(ctx context.Context, id uint) (shared.Structural, error) {
	el, err := k.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return el, nil
}

func (k erasedKind[T, PT]) List(ctx context.Context) ([]shared.Structural, error) {
	all, err := k.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]shared.Structural, len(all))
	for i := range all {
		out[i] = PT(&all[i])
	}
	return out, nil
}

func (k erasedKind[T, PT]) Tree(ctx context.Context) ([]TreeNode, error) { return k.svc.Tree(ctx) }

func (k erasedKind[T, PT]) FullPath(ctx context.Context, id uint) (string, error) {
	return k.svc.FullPath(ctx, id)
}

func (k erasedKind[T, PT]) Create(ctx context.Context, el shared.Structural, comment string) error {
	typed, ok := el.(PT)
	if !ok {
		return fmt.Errorf("element of type %T is not a %s", el, k.svc.Kind())
	}
	return k.svc.Create(ctx, typed, comment)
}

func (k erasedKind[T, PT]) Update(ctx context.Context, id uint, patch map[string]any, comment string) (shared.Structural, error) {
	el, err := k.svc.Update(ctx, id, patch, comment)
	if err != nil {
		return nil, err
	}
	return el, nil
}

func (k erasedKind[T, PT]) Delete(ctx context.Context, id uint, comment string) error {
	return k.svc.Delete(ctx, id, comment)
}

func (k erasedKind[T, PT]) FindOrCreatePath(ctx context.Context, names []string, comment string) (shared.Structural, error) {
	el, err := k.svc.FindOrCreatePath(ctx, names, comment)
	if err != nil {
		return nil, err
	}
	return el, nil
}

// Kinds looks up structural kinds by target type
type Kinds map[shared.TargetType]Kind

// NewKinds indexes kinds by their target type
func NewKinds(kinds ...Kind) Kinds {
	m := make(Kinds, len(kinds))
	for _, k := range kinds {
		m[k.Kind()] = k
	}
	return m
}

// Get returns the kind t or a not found error
func (k Kinds) Get(t shared.TargetType) (Kind, error) {
	kind, ok := k[t]
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_KIND", fmt.Sprintf("Unknown element kind %q", t))
	}
	return kind, nil
}
