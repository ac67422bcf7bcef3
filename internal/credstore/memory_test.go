package credstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/space-booking/internal/events"
)

func TestMemorySlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	slot := NewMemory("pt_jwt", nil)

	_, ok, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slot.Save(ctx, "abc"))
	raw, ok, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", raw)

	require.NoError(t, slot.Clear(ctx))
	require.NoError(t, slot.Clear(ctx))
	_, ok, _ = slot.Load(ctx)
	assert.False(t, ok)
}

func TestMemorySlotWatch(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher(nil)
	slot := NewMemory("pt_jwt", dispatcher)
	other := NewMemory("other", dispatcher)

	var changes []Change
	cancel, err := slot.Watch(ctx, func(c Change) { changes = append(changes, c) })
	require.NoError(t, err)

	require.NoError(t, slot.Save(ctx, "abc"))
	require.NoError(t, other.Save(ctx, "ignored"))
	require.NoError(t, slot.Clear(ctx))

	require.Len(t, changes, 2)
	assert.Equal(t, Change{Slot: "pt_jwt", Kind: ChangeStored, Credential: "abc"}, changes[0])
	assert.Equal(t, ChangeCleared, changes[1].Kind)

	cancel()
	require.NoError(t, slot.Save(ctx, "after"))
	assert.Len(t, changes, 2)
}

func TestMemoryWatchCallbackMayMutate(t *testing.T) {
	ctx := context.Background()
	slot := NewMemory("pt_jwt", nil)

	calls := 0
	cancel, err := slot.Watch(ctx, func(c Change) {
		calls++
		if c.Kind == ChangeStored {
			require.NoError(t, slot.Clear(ctx))
		}
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, slot.Save(ctx, "expired"))
	assert.Equal(t, 2, calls)
	_, ok, _ := slot.Load(ctx)
	assert.False(t, ok)
}
