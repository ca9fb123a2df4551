package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/partdb/backend/internal/domain/shared"
)

type nopHandler struct{ types []string }

func (h *nopHandler) Handle(context.Context, shared.DomainEvent) error { return nil }
func (h *nopHandler) EventTypes() []string                             { return h.types }

func TestHandlerRegistry_Register(t *testing.T) {
	r := NewHandlerRegistry()
	h := &nopHandler{}

	r.Register(h, "LogEntryRecorded", "ElementChanged")
	r.Register(h, "LogEntryRecorded")

	assert.Len(t, r.GetHandlers("LogEntryRecorded"), 1, "duplicate registrations are ignored")
	assert.Len(t, r.GetHandlers("ElementChanged"), 1)
	assert.Empty(t, r.GetHandlers("Other"))
	assert.Equal(t, 1, r.Len())
}

func TestHandlerRegistry_Wildcard(t *testing.T) {
	r := NewHandlerRegistry()
	specific := &nopHandler{}
	all := &nopHandler{}

	r.Register(specific, "LogEntryRecorded")
	r.Register(all)

	handlers := r.GetHandlers("LogEntryRecorded")
	assert.Equal(t, []shared.EventHandler{specific, all}, handlers, "specific handlers come first")
	assert.Equal(t, []shared.EventHandler{all}, r.GetHandlers("Other"))
	assert.Equal(t, 2, r.Len())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	r := NewHandlerRegistry()
	h1 := &nopHandler{}
	h2 := &nopHandler{}

	r.Register(h1, "A", "B")
	r.Register(h2, "A")
	r.Register(h1)

	r.Unregister(h1)

	assert.Equal(t, []shared.EventHandler{h2}, r.GetHandlers("A"))
	assert.Empty(t, r.GetHandlers("B"))
	assert.Equal(t, 1, r.Len())
}
