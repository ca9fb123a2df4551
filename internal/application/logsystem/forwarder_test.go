package logsystem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Send(ctx context.Context, entry logsystem.LogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func TestForwardingHandler(t *testing.T) {
	sink := new(mockSink)
	h := NewForwardingHandler(sink)
	assert.Equal(t, []string{logsystem.EventLogEntryRecorded}, h.EventTypes())

	entry := logsystem.NewUserLogin("::1")
	entry.ID = 3
	sink.On("Send", mock.Anything, mock.MatchedBy(func(e logsystem.LogEntry) bool { return e.ID == 3 })).Return(nil)

	require.NoError(t, h.Handle(context.Background(), logsystem.NewLogEntryRecorded(*entry)))
	sink.AssertExpectations(t)

	other := shared.NewElementChangedEvent(&parts.Part{}, shared.ElementCreated)
	assert.Error(t, h.Handle(context.Background(), other))
}
