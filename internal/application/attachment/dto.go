package attachment

import (
	"io"
	"time"

	"github.com/partdb/backend/internal/domain/attachment"
	"github.com/partdb/backend/internal/domain/shared"
)

// UploadInput describes a file uploaded for an element
type UploadInput struct {
	ElementType      shared.TargetType
	ElementID        uint
	AttachmentTypeID uint
	Name             string
	Filename         string
	Size             int64
	Content          io.Reader
	ShowInTable      bool
	Private          bool
	Comment          string
}

// LinkInput describes an attachment pointing to an URL or a builtin resource
type LinkInput struct {
	ElementType      shared.TargetType `json:"element_type" binding:"required"`
	ElementID        uint              `json:"element_id" binding:"required"`
	AttachmentTypeID uint              `json:"attachment_type_id" binding:"required"`
	Name             string            `json:"name" binding:"required,max=255"`
	URL              string            `json:"url" binding:"required,url_or_builtin"`
	ShowInTable      bool              `json:"show_in_table"`
	Private          bool              `json:"private"`
	Comment          string            `json:"comment"`
}

// UpdateInput changes the metadata of an attachment
type UpdateInput struct {
	Name             *string `json:"name" binding:"omitempty,max=255"`
	AttachmentTypeID *uint   `json:"attachment_type_id"`
	ShowInTable      *bool   `json:"show_in_table"`
	Private          *bool   `json:"private"`
	Comment          string  `json:"comment"`
}

// AttachmentResponse is the API representation of an attachment
type AttachmentResponse struct {
	ID               uint              `json:"id"`
	ElementType      shared.TargetType `json:"element_type"`
	ElementID        uint              `json:"element_id"`
	AttachmentTypeID uint              `json:"attachment_type_id"`
	Name             string            `json:"name"`
	ExternalURL      string            `json:"external_url,omitempty"`
	OriginalFilename string            `json:"original_filename,omitempty"`
	MimeType         string            `json:"mime_type,omitempty"`
	Extension        string            `json:"extension,omitempty"`
	HasFile          bool              `json:"has_file"`
	Builtin          bool              `json:"builtin"`
	Picture          bool              `json:"picture"`
	ShowInTable      bool              `json:"show_in_table"`
	Private          bool              `json:"private"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ToAttachmentResponse converts the domain model
func ToAttachmentResponse(a *attachment.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:               a.ID,
		ElementType:      a.ElementType,
		ElementID:        a.ElementID,
		AttachmentTypeID: a.AttachmentTypeID,
		Name:             a.Name,
		ExternalURL:      a.ExternalURL,
		OriginalFilename: a.OriginalFilename,
		MimeType:         a.MimeType,
		Extension:        a.Extension(),
		HasFile:          a.StorageKey != "",
		Builtin:          a.IsBuiltinResource(),
		Picture:          a.IsPicture(),
		ShowInTable:      a.ShowInTable,
		Private:          a.Private,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// Download is the result of a download request. Exactly one of URL and
// Content is set; the caller must close Content.
type Download struct {
	URL       string
	ExpiresAt time.Time
	Content   io.ReadCloser
	Filename  string
	MimeType  string
}
