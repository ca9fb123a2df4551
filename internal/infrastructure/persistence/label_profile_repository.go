package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/labels"
)

// GormLabelProfileRepository implements labels.ProfileRepository using GORM
type GormLabelProfileRepository struct {
	db *gorm.DB
}

// NewGormLabelProfileRepository creates a new GormLabelProfileRepository
func NewGormLabelProfileRepository(db *gorm.DB) *GormLabelProfileRepository {
	return &GormLabelProfileRepository{db: db}
}

// FindByID finds a profile by its ID
func (r *GormLabelProfileRepository) FindByID(ctx context.Context, id uint) (*labels.Profile, error) {
	var p labels.Profile
	if err := conn(ctx, r.db).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindAll returns all profiles ordered by name
func (r *GormLabelProfileRepository) FindAll(ctx context.Context) ([]labels.Profile, error) {
	var profiles []labels.Profile
	if err := conn(ctx, r.db).Order("name ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// FindForElement returns the profiles shown in the dropdown for an element
// kind. The element kind lives inside the serialized options, so the match
// happens after loading.
func (r *GormLabelProfileRepository) FindForElement(ctx context.Context, element labels.SupportedElement) ([]labels.Profile, error) {
	var all []labels.Profile
	if err := conn(ctx, r.db).Where("show_in_dropdown = ?", true).Order("name ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	out := make([]labels.Profile, 0, len(all))
	for _, p := range all {
		if p.Options.SupportedElement == element {
			out = append(out, p)
		}
	}
	return out, nil
}

// Save creates or updates a profile
func (r *GormLabelProfileRepository) Save(ctx context.Context, p *labels.Profile) error {
	return translate(conn(ctx, r.db).Save(p).Error)
}

// Delete deletes a profile
func (r *GormLabelProfileRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), &labels.Profile{}, id)
}

var _ labels.ProfileRepository = (*GormLabelProfileRepository)(nil)
