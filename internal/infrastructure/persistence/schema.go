package persistence

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/attachment"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/labels"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/infrastructure/persistence/models"
)

// AllModels lists every table of the schema in dependency order
func AllModels() []any {
	return []any{
		&identity.Group{},
		&identity.User{},
		&parts.MeasurementUnit{},
		&parts.Category{},
		&parts.StorageLocation{},
		&parts.Footprint{},
		&parts.Manufacturer{},
		&pricing.Currency{},
		&parts.Supplier{},
		&attachment.AttachmentType{},
		&parts.Part{},
		&parts.PartLot{},
		&pricing.Orderdetail{},
		&pricing.Pricedetail{},
		&attachment.Attachment{},
		&labels.Profile{},
		&models.LogEntryModel{},
	}
}

// AutoMigrate creates or updates the schema from the models. Used for sqlite
// and mysql setups and in tests; postgres deployments run the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
