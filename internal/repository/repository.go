// Package repository holds the dev backend's storage. Everything lives in
// process memory; a restart starts from the seed data again.
package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("already exists")
	// ErrOverlap is returned when an active reservation already holds the slot.
	ErrOverlap = errors.New("slot already reserved")
)
