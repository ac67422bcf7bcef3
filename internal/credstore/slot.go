// Package credstore holds the durable credential slot shared by every
// session.Store that should converge on the same login state.
package credstore

import (
	"context"
	"errors"
)

// ErrUnknownDriver is returned by Open for an unsupported CREDENTIAL_STORE_DRIVER.
var ErrUnknownDriver = errors.New("credstore: unknown driver")

// ChangeKind tells watchers what happened to a slot.
type ChangeKind string

const (
	ChangeStored  ChangeKind = "stored"
	ChangeCleared ChangeKind = "cleared"
)

// Change is delivered to watchers after a slot was written or cleared.
type Change struct {
	Slot       string     `json:"slot"`
	Kind       ChangeKind `json:"kind"`
	Credential string     `json:"credential,omitempty"`
}

// Slot is one named place where a raw credential survives process restarts.
type Slot interface {
	// Load returns the stored credential; ok is false when the slot is empty.
	Load(ctx context.Context) (raw string, ok bool, err error)
	Save(ctx context.Context, raw string) error
	// Clear empties the slot. Clearing an empty slot is not an error.
	Clear(ctx context.Context) error
	// Watch calls fn for every change made through any handle on the same slot,
	// including this one, until cancel is called or ctx ends.
	Watch(ctx context.Context, fn func(Change)) (cancel func(), err error)
	Close() error
}
