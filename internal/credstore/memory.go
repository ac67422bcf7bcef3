package credstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/spec-kit/space-booking/internal/events"
)

// Memory is a process-local slot. Several session stores sharing one Memory
// behave like several tabs of the same browser.
type Memory struct {
	name       string
	dispatcher events.Dispatcher

	mu      sync.RWMutex
	value   string
	present bool
}

// NewMemory creates an empty slot that announces changes on dispatcher.
func NewMemory(name string, dispatcher events.Dispatcher) *Memory {
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(nil)
	}
	return &Memory{name: name, dispatcher: dispatcher}
}

func (m *Memory) Load(context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.present, nil
}

func (m *Memory) Save(ctx context.Context, raw string) error {
	m.mu.Lock()
	m.value, m.present = raw, true
	m.mu.Unlock()

	return m.dispatcher.Publish(ctx, events.NewEvent(events.EventCredentialStored, m.name, "memory",
		events.CredentialStoredPayload{Credential: raw}))
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.value, m.present = "", false
	m.mu.Unlock()

	return m.dispatcher.Publish(ctx, events.NewEvent(events.EventCredentialCleared, m.name, "memory", nil))
}

func (m *Memory) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	if fn == nil {
		return nil, errors.New("credstore: nil watch func")
	}

	var stopped atomic.Bool
	deliver := func(c Change) {
		if stopped.Load() || ctx.Err() != nil {
			return
		}
		fn(c)
	}

	stopStored := m.dispatcher.Subscribe(events.EventCredentialStored, func(_ context.Context, e events.Event) error {
		if e.Subject != m.name {
			return nil
		}
		payload, _ := e.Payload.(events.CredentialStoredPayload)
		deliver(Change{Slot: m.name, Kind: ChangeStored, Credential: payload.Credential})
		return nil
	})
	stopCleared := m.dispatcher.Subscribe(events.EventCredentialCleared, func(_ context.Context, e events.Event) error {
		if e.Subject != m.name {
			return nil
		}
		deliver(Change{Slot: m.name, Kind: ChangeCleared})
		return nil
	})

	return func() {
		stopStored()
		stopCleared()
		stopped.Store(true)
	}, nil
}

func (m *Memory) Close() error { return nil }
