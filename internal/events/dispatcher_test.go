package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToMatchingType(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var stored, cleared []string
	d.Subscribe(EventCredentialStored, func(_ context.Context, e Event) error {
		stored = append(stored, e.Subject)
		return nil
	})
	d.Subscribe(EventCredentialCleared, func(_ context.Context, e Event) error {
		cleared = append(cleared, e.Subject)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventCredentialStored, "pt_jwt", "test", nil)))
	assert.Equal(t, []string{"pt_jwt"}, stored)
	assert.Empty(t, cleared)
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	calls := 0
	d.Subscribe(EventCredentialCleared, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(EventCredentialCleared, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventCredentialCleared, "pt_jwt", "", nil)))
	assert.Equal(t, 2, calls)
}

func TestUnsubscribe(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	calls := 0
	cancel := d.Subscribe(EventSessionChanged, func(context.Context, Event) error {
		calls++
		return nil
	})
	ctx := context.Background()
	require.NoError(t, d.Publish(ctx, NewEvent(EventSessionChanged, "s", "", nil)))
	cancel()
	cancel()
	require.NoError(t, d.Publish(ctx, NewEvent(EventSessionChanged, "s", "", nil)))
	assert.Equal(t, 1, calls)
}

func TestNewEventStampsIdentity(t *testing.T) {
	a := NewEvent(EventCredentialStored, "pt_jwt", "cli", CredentialStoredPayload{Credential: "x"})
	b := NewEvent(EventCredentialStored, "pt_jwt", "cli", nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}
