package labels

import (
	"context"
)

// ProfileRepository persists label profiles
type ProfileRepository interface {
	FindByID(ctx context.Context, id uint) (*Profile, error)
	FindAll(ctx context.Context) ([]Profile, error)
	FindForElement(ctx context.Context, element SupportedElement) ([]Profile, error)
	Save(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, id uint) error
}
