package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var got []Event
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventTicketResolved, func(_ context.Context, e Event) error {
		t.Fatal("wrong event type delivered")
		return nil
	})

	err := d.Publish(context.Background(), Event{
		Type:     EventTicketCreated,
		TicketID: "t-1",
		Actor:    domain.Principal{ID: "alice", Role: domain.RoleUser},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t-1", got[0].TicketID)
}

// One failing handler must not starve the others or fail the publish.
func TestDispatcherIsolatesHandlerFailures(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	delivered := false
	d.Subscribe(EventTicketCommentAdded, func(context.Context, Event) error {
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketCommentAdded, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCommentAdded, TicketID: "t-2"})
	require.NoError(t, err)
	assert.True(t, delivered)
}
