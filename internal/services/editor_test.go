package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditBuffer_RequiresEditMode(t *testing.T) {
	b := NewEditBuffer("server")
	assert.ErrorIs(t, b.Set(func(s *string) { *s = "x" }), ErrNotEditing)
	assert.ErrorIs(t, b.Save(context.Background(), func(context.Context, string) error { return nil }), ErrNotEditing)
	assert.Equal(t, "server", b.Value())
}

func TestEditBuffer_SaveSuccessKeepsValue(t *testing.T) {
	b := NewEditBuffer("v1")
	require.NoError(t, b.Begin("v1"))
	require.NoError(t, b.Set(func(s *string) { *s = "v2" }))

	var committed string
	err := b.Save(context.Background(), func(_ context.Context, v string) error {
		committed = v
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "v2", committed)
	assert.Equal(t, "v2", b.Value())
	assert.False(t, b.Editing())
}

func TestEditBuffer_SaveFailureExitsEditMode(t *testing.T) {
	b := NewEditBuffer("v1")
	require.NoError(t, b.Begin("v1"))
	require.NoError(t, b.Set(func(s *string) { *s = "v2" }))

	err := b.Save(context.Background(), func(context.Context, string) error { return errors.New("nope") })

	assert.Error(t, err)
	assert.False(t, b.Editing())
	assert.Equal(t, "v1", b.Value())
}

func TestEditBuffer_RejectsEditsWhileSaving(t *testing.T) {
	b := NewEditBuffer("v1")
	require.NoError(t, b.Begin("v1"))

	err := b.Save(context.Background(), func(context.Context, string) error {
		assert.True(t, b.Saving())
		assert.ErrorIs(t, b.Set(func(s *string) { *s = "late" }), ErrEditInProgress)
		assert.ErrorIs(t, b.Cancel(), ErrEditInProgress)
		assert.ErrorIs(t, b.Begin("v0"), ErrEditInProgress)
		return nil
	})

	require.NoError(t, err)
	assert.False(t, b.Saving())
	assert.Equal(t, "v1", b.Value())
}

func TestEditBuffer_BeginReseeds(t *testing.T) {
	b := NewEditBuffer("v1")
	require.NoError(t, b.Begin("v1"))
	require.NoError(t, b.Set(func(s *string) { *s = "local" }))
	require.NoError(t, b.Cancel())

	b.Refresh("v3")
	assert.Equal(t, "v3", b.Value())

	require.NoError(t, b.Begin("v3"))
	assert.Equal(t, "v3", b.Value())
	b.Refresh("v4")
	assert.Equal(t, "v3", b.Value(), "refresh does not clobber an open edit")
}
