package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/domain/attachment"
	"github.com/partdb/backend/internal/domain/shared"
)

// sniffLen is how much of an upload is read to detect its content type
const sniffLen = 3072

// ServiceConfig holds the limits of the attachment service
type ServiceConfig struct {
	// MaxUploadSize is the largest accepted file in bytes, 0 means unlimited
	MaxUploadSize int64
	// DownloadURLExpiry is how long presigned download URLs stay valid
	DownloadURLExpiry time.Duration
}

// DefaultServiceConfig returns the default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxUploadSize:     32 << 20,
		DownloadURLExpiry: time.Hour,
	}
}

var (
	errAttachmentNotFound = shared.NewDomainError("ATTACHMENT_NOT_FOUND", "Attachment not found")
	errTypeNotFound       = shared.NewDomainError("ATTACHMENT_TYPE_NOT_FOUND", "Attachment type not found")
	errElementNotFound    = shared.NewDomainError("ELEMENT_NOT_FOUND", "The element to attach to does not exist")
	errFileTooLarge       = shared.NewDomainError("FILE_TOO_LARGE", "The uploaded file is too large")
	errFiletypeNotAllowed = shared.NewDomainError("FILETYPE_NOT_ALLOWED", "The file type is not allowed for this attachment type")
	errNoFile             = shared.NewDomainError("NO_FILE", "The attachment has no file to download")
	errEditDenied         = shared.NewDomainError("FORBIDDEN", "You may not change the attachments of this element")
)

// Service manages attachments and their files
type Service struct {
	repo    attachment.AttachmentRepository
	types   shared.StructuralRepository[attachment.AttachmentType]
	storage ObjectStorage
	tracker *applog.Tracker
	auth    applog.Authorizer
	config  ServiceConfig
	logger  *zap.Logger
}

// NewService creates a new attachment Service. auth may be nil, in which
// case private attachments are visible to everybody.
func NewService(
	repo attachment.AttachmentRepository,
	types shared.StructuralRepository[attachment.AttachmentType],
	storage ObjectStorage,
	tracker *applog.Tracker,
	auth applog.Authorizer,
	config ServiceConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		types:   types,
		storage: storage,
		tracker: tracker,
		auth:    auth,
		config:  config,
		logger:  logger,
	}
}

// Backend returns the name of the storage backend
func (s *Service) Backend() string { return s.storage.Backend() }

// Upload stores a file and attaches it to an element
func (s *Service) Upload(ctx context.Context, in UploadInput) (*AttachmentResponse, error) {
	if in.Content == nil || in.Filename == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "A file is required")
	}
	if s.config.MaxUploadSize > 0 && in.Size > s.config.MaxUploadSize {
		return nil, errFileTooLarge
	}
	typ, err := s.checkTarget(ctx, in.ElementType, in.ElementID, in.AttachmentTypeID)
	if err != nil {
		return nil, err
	}
	filename := path.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
	if !attachment.IsFilenameAllowed(typ.FiletypeFilter, filename) {
		return nil, errFiletypeNotAllowed
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	mime := mimetype.Detect(head)

	name := in.Name
	if name == "" {
		name = filename
	}
	a := &attachment.Attachment{
		BaseEntity:       shared.NewBaseEntity(),
		ElementType:      in.ElementType,
		ElementID:        in.ElementID,
		AttachmentTypeID: in.AttachmentTypeID,
		Name:             name,
		StorageKey:       attachment.NewStorageKey(in.ElementType, filename),
		OriginalFilename: filename,
		MimeType:         mime.String(),
		ShowInTable:      in.ShowInTable,
		Private:          in.Private,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	content := io.MultiReader(bytes.NewReader(head), in.Content)
	if s.config.MaxUploadSize > 0 {
		content = &limitedReader{r: content, remaining: s.config.MaxUploadSize}
	}
	if err := s.storage.Put(ctx, a.StorageKey, content, in.Size, a.MimeType); err != nil {
		if errors.Is(err, errFileTooLarge) {
			_ = s.storage.Delete(ctx, a.StorageKey)
			return nil, errFileTooLarge
		}
		return nil, fmt.Errorf("store attachment file: %w", err)
	}
	if err := s.tracker.Create(ctx, a, in.Comment); err != nil {
		if delErr := s.storage.Delete(ctx, a.StorageKey); delErr != nil {
			s.logger.Warn("Failed to remove orphaned attachment file",
				zap.String("key", a.StorageKey), zap.Error(delErr))
		}
		return nil, err
	}
	s.logger.Info("Attachment uploaded",
		zap.Uint("attachment_id", a.ID),
		zap.String("element_type", string(a.ElementType)),
		zap.Uint("element_id", a.ElementID),
		zap.String("mime_type", a.MimeType))
	resp := ToAttachmentResponse(a)
	return &resp, nil
}

// CreateLink attaches an URL or builtin resource to an element
func (s *Service) CreateLink(ctx context.Context, in LinkInput) (*AttachmentResponse, error) {
	typ, err := s.checkTarget(ctx, in.ElementType, in.ElementID, in.AttachmentTypeID)
	if err != nil {
		return nil, err
	}
	a := &attachment.Attachment{
		BaseEntity:       shared.NewBaseEntity(),
		ElementType:      in.ElementType,
		ElementID:        in.ElementID,
		AttachmentTypeID: in.AttachmentTypeID,
		Name:             in.Name,
		ExternalURL:      strings.TrimSpace(in.URL),
		ShowInTable:      in.ShowInTable,
		Private:          in.Private,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if ext := a.Extension(); ext != "" && !attachment.IsExtensionAllowed(typ.FiletypeFilter, ext) {
		return nil, errFiletypeNotAllowed
	}
	if err := s.tracker.Create(ctx, a, in.Comment); err != nil {
		return nil, err
	}
	resp := ToAttachmentResponse(a)
	return &resp, nil
}

// Get returns one attachment
func (s *Service) Get(ctx context.Context, id uint) (*AttachmentResponse, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAttachmentResponse(a)
	return &resp, nil
}

// ListByElement returns the attachments of an element. Private attachments
// are left out unless the user may see them.
func (s *Service) ListByElement(ctx context.Context, elementType shared.TargetType, elementID uint) ([]AttachmentResponse, error) {
	list, err := s.repo.FindByElement(ctx, elementType, elementID)
	if err != nil {
		return nil, err
	}
	showPrivate, err := s.canSeePrivate(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AttachmentResponse, 0, len(list))
	for i := range list {
		if list[i].Private && !showPrivate {
			continue
		}
		out = append(out, ToAttachmentResponse(&list[i]))
	}
	return out, nil
}

// List returns all attachments matching filter, for the attachment list page
func (s *Service) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[AttachmentResponse], error) {
	showPrivate, err := s.canSeePrivate(ctx)
	if err != nil {
		return nil, err
	}
	if !showPrivate {
		if filter.Filters == nil {
			filter.Filters = map[string]any{}
		}
		filter.Filters["private"] = false
	}
	list, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]AttachmentResponse, len(list))
	for i := range list {
		items[i] = ToAttachmentResponse(&list[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Download returns a presigned URL or the content of the attachment file
func (s *Service) Download(ctx context.Context, id uint) (*Download, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.StorageKey == "" {
		return nil, errNoFile
	}
	d := &Download{Filename: a.OriginalFilename, MimeType: a.MimeType}
	url, expires, err := s.storage.DownloadURL(ctx, a.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		return nil, err
	}
	if url != "" {
		d.URL, d.ExpiresAt = url, expires
		return d, nil
	}
	d.Content, err = s.storage.Open(ctx, a.StorageKey)
	if errors.Is(err, ErrObjectNotFound) {
		s.logger.Warn("Attachment file is missing", zap.Uint("attachment_id", a.ID), zap.String("key", a.StorageKey))
		return nil, shared.NewDomainError("FILE_MISSING", "The attachment file does not exist anymore")
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Update changes name, type and flags of an attachment
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*AttachmentResponse, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(ctx, a.ElementType); err != nil {
		return nil, err
	}
	before, err := shared.TakeSnapshot(a)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.AttachmentTypeID != nil && *in.AttachmentTypeID != a.AttachmentTypeID {
		typ, err := s.findType(ctx, *in.AttachmentTypeID)
		if err != nil {
			return nil, err
		}
		if ext := a.Extension(); ext != "" && !attachment.IsExtensionAllowed(typ.FiletypeFilter, ext) {
			return nil, errFiletypeNotAllowed
		}
		a.AttachmentTypeID = typ.ID
	}
	if in.ShowInTable != nil {
		a.ShowInTable = *in.ShowInTable
	}
	if in.Private != nil {
		a.Private = *in.Private
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.Touch()
	if err := s.tracker.Update(ctx, a, before, in.Comment); err != nil {
		return nil, err
	}
	resp := ToAttachmentResponse(a)
	return &resp, nil
}

// Delete removes an attachment. Its file is removed after commit when no
// other attachment uses it.
func (s *Service) Delete(ctx context.Context, id uint, comment string) error {
	a, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireEdit(ctx, a.ElementType); err != nil {
		return err
	}
	return s.tracker.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if c, ok := shared.OwnerCollection(shared.TargetAttachment); ok && c.Owner == a.ElementType {
			var owner shared.Trackable
			owner, err = s.tracker.Store().Find(ctx, a.ElementType, a.ElementID)
			if err != nil {
				return err
			}
			err = s.tracker.DeleteFromCollection(ctx, owner, c.Name, a, comment)
		} else {
			err = s.tracker.Delete(ctx, a, comment)
		}
		if err != nil {
			return err
		}
		if a.StorageKey != "" {
			key := a.StorageKey
			shared.OnCommit(ctx, func(ctx context.Context) { s.removeUnusedFile(ctx, key) })
		}
		return nil
	})
}

// RemoveUnusedFiles deletes the files of the given attachments that are no
// longer referenced. Used after owners were deleted together with their
// attachment collections.
func (s *Service) RemoveUnusedFiles(ctx context.Context, attachments []attachment.Attachment) {
	for _, a := range attachments {
		if a.StorageKey != "" {
			s.removeUnusedFile(ctx, a.StorageKey)
		}
	}
}

func (s *Service) removeUnusedFile(ctx context.Context, key string) {
	if !attachment.IsManagedKey(key) {
		s.logger.Warn("Keeping attachment file with foreign key", zap.String("key", key))
		return
	}
	n, err := s.repo.CountByStorageKey(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to check attachment file usage", zap.String("key", key), zap.Error(err))
		return
	}
	if n > 0 {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete attachment file", zap.String("key", key), zap.Error(err))
		return
	}
	s.logger.Debug("Deleted attachment file", zap.String("key", key))
}

// find loads an attachment, hiding private ones from users without access
func (s *Service) find(ctx context.Context, id uint) (*attachment.Attachment, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errAttachmentNotFound
		}
		return nil, err
	}
	if a.Private {
		ok, err := s.canSeePrivate(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, shared.ErrForbidden
		}
	}
	return a, nil
}

func (s *Service) findType(ctx context.Context, id uint) (*attachment.AttachmentType, error) {
	typ, err := s.types.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errTypeNotFound
		}
		return nil, err
	}
	return typ, nil
}

func (s *Service) checkTarget(ctx context.Context, t shared.TargetType, id, typeID uint) (*attachment.AttachmentType, error) {
	if !t.IsValid() || t == shared.TargetAttachment {
		return nil, shared.NewDomainError("INVALID_ELEMENT", "Attachments cannot be attached to this kind of element")
	}
	exists, err := s.tracker.Store().Exists(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errElementNotFound
	}
	if err := s.requireEdit(ctx, t); err != nil {
		return nil, err
	}
	return s.findType(ctx, typeID)
}

// requireEdit checks that the actor may edit elements of kind t, which is
// what changing their attachments takes
func (s *Service) requireEdit(ctx context.Context, t shared.TargetType) error {
	if s.auth == nil {
		return nil
	}
	op := "edit"
	if t == shared.TargetUser {
		op = "edit_infos"
	}
	granted, err := s.auth.IsGranted(ctx, t.PermissionGroup(), op)
	if err != nil {
		return err
	}
	if !granted {
		return errEditDenied
	}
	return nil
}

func (s *Service) canSeePrivate(ctx context.Context) (bool, error) {
	if s.auth == nil {
		return true, nil
	}
	return s.auth.IsGranted(ctx, "attachments", "show_private")
}

// limitedReader fails once more than remaining bytes were read
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errFileTooLarge
	}
	return n, err
}
