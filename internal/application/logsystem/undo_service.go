package logsystem

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// Flash types
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash message keys
const (
	MsgUndeleteSuccess   = "log.undo.element_undelete_success"
	MsgAlreadyUndeleted  = "log.undo.element_element_already_undeleted"
	MsgDeleteSuccess     = "log.undo.element_delete_success"
	MsgAlreadyDeleted    = "log.undo.element.element_already_delted"
	MsgChangeUndone      = "log.undo.element_change_undone"
	MsgUndeleteFirst     = "log.undo.do_undelete_before"
	MsgLogTypeInvalid    = "log.undo.log_type_invalid"
	MsgRevertSuccess     = "log.undo.revert_success"
	MsgTargetNotFound    = "log.undo.target_not_found"
	msgEntryDoesNotExist = "No log entry with the given ID is existing!"
)

// Flash is a user facing message identified by a translation key
type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Authorizer checks permissions of the acting user
type Authorizer interface {
	IsGranted(ctx context.Context, permission, operation string) (bool, error)
}

// UndoService undoes single log entries and reverts elements to the state
// at a log entry
type UndoService struct {
	logs       logsystem.Repository
	tracker    *Tracker
	timeTravel *TimeTravel
	auth       Authorizer
	logger     *zap.Logger
}

// NewUndoService creates an UndoService
func NewUndoService(logs logsystem.Repository, tracker *Tracker, timeTravel *TimeTravel, auth Authorizer, logger *zap.Logger) *UndoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UndoService{logs: logs, tracker: tracker, timeTravel: timeTravel, auth: auth, logger: logger}
}

// UndoRevert executes the request. Unknown entries and missing permissions
// are errors; everything else is reported through flashes.
func (s *UndoService) UndoRevert(ctx context.Context, req UndoRequest) (*UndoResponse, error) {
	mode := logsystem.UndoModeUndo
	id := req.Undo
	if id == 0 {
		mode = logsystem.UndoModeRevert
		id = req.Revert
	}
	if id == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", msgEntryDoesNotExist)
	}

	entry, err := s.logs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_INPUT", msgEntryDoesNotExist)
		}
		return nil, err
	}

	if err := s.authorize(ctx, entry); err != nil {
		return nil, err
	}

	resp := &UndoResponse{Mode: string(mode), LogID: entry.ID, Redirect: req.RedirectBack}
	undoCtx := WithUndoMarker(ctx, entry.ID, mode)
	err = s.tracker.tx.Transaction(undoCtx, func(ctx context.Context) error {
		var flash Flash
		var err error
		if mode == logsystem.UndoModeUndo {
			flash, err = s.undo(ctx, entry)
		} else {
			flash, err = s.revert(ctx, entry)
		}
		if err != nil {
			return err
		}
		resp.Flashes = append(resp.Flashes, flash)
		return nil
	})
	success := err == nil && len(resp.Flashes) > 0 && resp.Flashes[0].Type != FlashError
	s.tracker.recorder.metrics.RecordUndo(ctx, string(mode), success)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			// domain failures are reported to the user, not as a server error
			s.logger.Info("Undo failed", zap.Uint("log_id", entry.ID), zap.String("reason", de.Message))
			resp.Flashes = []Flash{{Type: FlashError, Message: de.Message}}
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}

func (s *UndoService) authorize(ctx context.Context, entry *logsystem.LogEntry) error {
	perm, op := entry.TargetType.PermissionGroup(), "revert_element"
	if perm == "" {
		// entries without a target cannot be undone; reading them is enough
		// to be told so
		perm, op = "system", "show_logs"
	}
	granted, err := s.auth.IsGranted(ctx, perm, op)
	if err != nil {
		return err
	}
	if granted {
		return nil
	}
	denied := logsystem.NewUserNotAllowed("/log/undo", "Missing permission "+perm+"."+op)
	if err := s.tracker.recorder.Add(ctx, denied); err != nil {
		s.logger.Warn("Failed to record denied access", zap.Error(err))
	}
	return shared.NewDomainError("FORBIDDEN", "You are not allowed to revert this element")
}

func (s *UndoService) undo(ctx context.Context, entry *logsystem.LogEntry) (Flash, error) {
	store := s.tracker.store
	switch entry.Type {
	case logsystem.TypeElementDeleted, logsystem.TypeCollectionElementDeleted:
		t, id := entry.TargetType, entry.TargetID
		if entry.Type == logsystem.TypeCollectionElementDeleted {
			t = shared.TargetType(entry.String(logsystem.ExtraDeletedClass))
			id = entry.Uint(logsystem.ExtraDeletedID)
		}
		exists, err := store.Exists(ctx, t, id)
		if err != nil {
			return Flash{}, err
		}
		if exists {
			return Flash{Type: FlashWarning, Message: MsgAlreadyUndeleted}, nil
		}
		element, err := s.timeTravel.fromDeletion(t, id, entry)
		if err != nil {
			return Flash{}, err
		}
		if err := s.tracker.Restore(ctx, element); err != nil {
			return Flash{}, err
		}
		return Flash{Type: FlashSuccess, Message: MsgUndeleteSuccess}, nil

	case logsystem.TypeElementCreated:
		element, err := store.Find(ctx, entry.TargetType, entry.TargetID)
		if errors.Is(err, shared.ErrNotFound) {
			return Flash{Type: FlashWarning, Message: MsgAlreadyDeleted}, nil
		}
		if err != nil {
			return Flash{}, err
		}
		if err := store.CheckDelete(ctx, element); err != nil {
			return Flash{}, err
		}
		if err := s.tracker.Delete(ctx, element, ""); err != nil {
			return Flash{}, err
		}
		return Flash{Type: FlashSuccess, Message: MsgDeleteSuccess}, nil

	case logsystem.TypeElementEdited:
		element, err := store.Find(ctx, entry.TargetType, entry.TargetID)
		if errors.Is(err, shared.ErrNotFound) {
			return Flash{Type: FlashError, Message: MsgUndeleteFirst}, nil
		}
		if err != nil {
			return Flash{}, err
		}
		before, err := shared.TakeSnapshot(element)
		if err != nil {
			return Flash{}, err
		}
		if err := s.timeTravel.ApplyEntry(element, entry); err != nil {
			return Flash{}, err
		}
		if err := s.tracker.Update(ctx, element, before, ""); err != nil {
			return Flash{}, err
		}
		return Flash{Type: FlashSuccess, Message: MsgChangeUndone}, nil
	}
	return Flash{Type: FlashError, Message: MsgLogTypeInvalid}, nil
}

func (s *UndoService) revert(ctx context.Context, entry *logsystem.LogEntry) (Flash, error) {
	if !entry.HasTarget() {
		return Flash{Type: FlashError, Message: MsgTargetNotFound}, nil
	}
	store := s.tracker.store
	element, err := store.Find(ctx, entry.TargetType, entry.TargetID)
	if errors.Is(err, shared.ErrNotFound) {
		element, err = s.timeTravel.Undelete(ctx, entry.TargetType, entry.TargetID)
		if err != nil {
			return Flash{}, err
		}
		if err := s.tracker.Restore(ctx, element); err != nil {
			return Flash{}, err
		}
	} else if err != nil {
		return Flash{}, err
	}

	if err := s.timeTravel.RevertToTimestamp(ctx, element, entry.Timestamp, s.tracker); err != nil {
		return Flash{}, err
	}
	// the old state may point at elements deleted in the meantime
	if err := store.CheckReferences(ctx, element); err != nil {
		return Flash{}, err
	}
	return Flash{Type: FlashSuccess, Message: MsgRevertSuccess}, nil
}
