package services

import (
	"context"
	"sync"
)

// EditBuffer holds local edits of one server entity. Entering edit mode always
// reseeds from the server copy; a save leaves edit mode whatever its outcome.
type EditBuffer[T any] struct {
	mu      sync.Mutex
	server  T
	draft   T
	editing bool
	saving  bool
}

// NewEditBuffer creates a buffer showing server
func NewEditBuffer[T any](server T) *EditBuffer[T] {
	return &EditBuffer[T]{server: server, draft: server}
}

// Begin enters edit mode seeded from server
func (b *EditBuffer[T]) Begin(server T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saving {
		return ErrEditInProgress
	}
	b.server = server
	b.draft = server
	b.editing = true
	return nil
}

// Refresh replaces the server copy; outside edit mode the view follows it
func (b *EditBuffer[T]) Refresh(server T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.server = server
	if !b.editing {
		b.draft = server
	}
}

// Set applies fn to the local copy
func (b *EditBuffer[T]) Set(fn func(*T)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saving {
		return ErrEditInProgress
	}
	if !b.editing {
		return ErrNotEditing
	}
	fn(&b.draft)
	return nil
}

// Cancel discards local edits and leaves edit mode
func (b *EditBuffer[T]) Cancel() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saving {
		return ErrEditInProgress
	}
	b.draft = b.server
	b.editing = false
	return nil
}

// Save commits the local copy. Edits are rejected until commit returns, then
// edit mode ends on success and on failure alike.
func (b *EditBuffer[T]) Save(ctx context.Context, commit func(context.Context, T) error) error {
	b.mu.Lock()
	if b.saving {
		b.mu.Unlock()
		return ErrEditInProgress
	}
	if !b.editing {
		b.mu.Unlock()
		return ErrNotEditing
	}
	b.saving = true
	value := b.draft
	b.mu.Unlock()

	err := commit(ctx, value)

	b.mu.Lock()
	b.saving = false
	b.editing = false
	if err == nil {
		b.server = value
	}
	b.draft = b.server
	b.mu.Unlock()
	return err
}

// Value returns what the card should display
func (b *EditBuffer[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft
}

// Editing reports whether the card is in edit mode
func (b *EditBuffer[T]) Editing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editing
}

// Saving reports whether a save is in flight
func (b *EditBuffer[T]) Saving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saving
}
