package attachment

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/partdb/backend/internal/domain/shared"
)

// Builtin placeholders resolve to resources shipped with the installation
const (
	PlaceholderFootprints   = "%FOOTPRINTS%"
	PlaceholderFootprints3D = "%FOOTPRINTS3D%"
)

// BuiltinPlaceholders lists the placeholders allowed at the start of builtin paths
var BuiltinPlaceholders = []string{PlaceholderFootprints, PlaceholderFootprints3D}

// AttachmentType classifies attachments and restricts their file types
type AttachmentType struct {
	shared.StructuralElement
	FiletypeFilter string `gorm:"type:text" json:"filetype_filter"`
}

// TableName returns the table name for GORM
func (AttachmentType) TableName() string { return "attachment_types" }

// TargetType implements shared.Trackable
func (*AttachmentType) TargetType() shared.TargetType { return shared.TargetAttachmentType }

// Validate checks and normalizes the filter
func (a *AttachmentType) Validate() error {
	if err := a.ValidateStructure(); err != nil {
		return err
	}
	normalized := NormalizeFilterString(a.FiletypeFilter)
	if !ValidateFilterString(normalized) {
		return shared.NewDomainError("INVALID_FILETYPE_FILTER", "The file type filter is not valid")
	}
	a.FiletypeFilter = normalized
	return nil
}

// Attachment is a file or link attached to an element (part, footprint, ...)
type Attachment struct {
	shared.BaseEntity
	ElementType      shared.TargetType `gorm:"type:varchar(50);not null;index:idx_attachment_element" json:"element_type"`
	ElementID        uint              `gorm:"not null;index:idx_attachment_element" json:"element_id"`
	AttachmentTypeID uint              `gorm:"not null;index" json:"attachment_type_id"`
	Name             string            `gorm:"type:varchar(255);not null" json:"name"`
	// StorageKey is the object storage key of an uploaded file
	StorageKey       string `gorm:"type:varchar(255)" json:"storage_key"`
	ExternalURL      string `gorm:"type:text" json:"external_url"`
	OriginalFilename string `gorm:"type:varchar(255)" json:"original_filename"`
	MimeType         string `gorm:"type:varchar(100)" json:"mime_type"`
	ShowInTable      bool   `gorm:"not null;default:false" json:"show_in_table"`
	Private          bool   `gorm:"not null;default:false" json:"private"`
}

// TableName returns the table name for GORM
func (Attachment) TableName() string { return "attachments" }

// TargetType implements shared.Trackable
func (*Attachment) TargetType() shared.TargetType { return shared.TargetAttachment }

// GetName returns the attachment name
func (a *Attachment) GetName() string { return a.Name }

// Owner returns the element the attachment belongs to
func (a *Attachment) Owner() (shared.TargetType, uint) { return a.ElementType, a.ElementID }

// Validate checks the attachment fields
func (a *Attachment) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return shared.NewDomainError("INVALID_NAME", "Attachment name cannot be empty")
	}
	if !a.ElementType.IsValid() || a.ElementID == 0 {
		return shared.NewDomainError("INVALID_ELEMENT", "An attachment must belong to an element")
	}
	if a.AttachmentTypeID == 0 {
		return shared.NewDomainError("INVALID_ATTACHMENT_TYPE", "An attachment type is required")
	}
	if a.StorageKey == "" && a.ExternalURL == "" {
		return shared.NewDomainError("INVALID_ATTACHMENT", "Either a file or an URL is required")
	}
	if a.ExternalURL != "" && !IsURLOrBuiltin(a.ExternalURL) {
		return shared.NewDomainError("INVALID_URL", "The URL is neither a valid URL nor a builtin resource")
	}
	return nil
}

// IsExternal returns true if the attachment points to an URL
func (a *Attachment) IsExternal() bool {
	return a.StorageKey == "" && a.ExternalURL != "" && !IsBuiltin(a.ExternalURL)
}

// IsBuiltinResource returns true if the attachment references a builtin resource
func (a *Attachment) IsBuiltinResource() bool {
	return a.StorageKey == "" && IsBuiltin(a.ExternalURL)
}

// Extension returns the lower case extension of the file name or URL path
func (a *Attachment) Extension() string {
	name := a.OriginalFilename
	if name == "" {
		name = a.ExternalURL
		if u, err := url.Parse(a.ExternalURL); err == nil && u.Path != "" {
			name = u.Path
		}
	}
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// IsPicture returns true if the attachment is an image
func (a *Attachment) IsPicture() bool {
	if strings.HasPrefix(a.MimeType, "image/") {
		return true
	}
	switch a.Extension() {
	case "jpg", "jpeg", "png", "gif", "bmp", "webp", "svg":
		return true
	}
	return false
}

// IsBuiltin reports whether value starts with a builtin placeholder
func IsBuiltin(value string) bool {
	for _, placeholder := range BuiltinPlaceholders {
		if strings.HasPrefix(value, placeholder) {
			return true
		}
	}
	return false
}

// IsURLOrBuiltin reports whether value is an absolute http(s) URL or a
// builtin resource path.
func IsURLOrBuiltin(value string) bool {
	if value == "" {
		return true
	}
	if IsBuiltin(value) {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// storageKeyPrefix is the root of all object keys made by NewStorageKey
const storageKeyPrefix = "attachments/"

// NewStorageKey builds a collision free object key for a file uploaded to an
// element of type t. The lower cased file extension is kept.
func NewStorageKey(t shared.TargetType, filename string) string {
	id := uuid.NewString()
	return storageKeyPrefix + string(t) + "/" + id[:2] + "/" + id + strings.ToLower(path.Ext(filename))
}

// IsManagedKey reports whether key was made by NewStorageKey. Only those
// files are removed from storage when their last attachment goes away.
func IsManagedKey(key string) bool {
	if !strings.HasPrefix(key, storageKeyPrefix) {
		return false
	}
	base := path.Base(key)
	id, err := uuid.Parse(strings.TrimSuffix(base, path.Ext(base)))
	if err != nil {
		return false
	}
	return path.Base(path.Dir(key)) == id.String()[:2]
}
