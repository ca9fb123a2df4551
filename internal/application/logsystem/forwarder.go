package logsystem

import (
	"context"
	"fmt"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// EntrySink receives committed log entries for delivery to an external system
type EntrySink interface {
	Send(ctx context.Context, entry logsystem.LogEntry) error
}

// ForwardingHandler passes recorded log entries on to a sink
type ForwardingHandler struct {
	sink EntrySink
}

// NewForwardingHandler creates a ForwardingHandler
func NewForwardingHandler(sink EntrySink) *ForwardingHandler {
	return &ForwardingHandler{sink: sink}
}

// EventTypes implements shared.EventHandler
func (h *ForwardingHandler) EventTypes() []string {
	return []string{logsystem.EventLogEntryRecorded}
}

// Handle implements shared.EventHandler
func (h *ForwardingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	recorded, ok := event.(*logsystem.LogEntryRecorded)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	return h.sink.Send(ctx, recorded.Entry)
}
