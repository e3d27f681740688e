package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   api.ID
	Name string
}

func newItemCollection(fetch Fetcher[item, struct{}]) (*Collection[item, struct{}], *noticeRecorder) {
	n := NewNotifier(nil)
	rec := recordNotices(n)
	c := NewCollection(CollectionConfig[item, struct{}]{
		Noun:     "items",
		Fetch:    fetch,
		ID:       func(i item) api.ID { return i.ID },
		Notifier: n,
	})
	return c, rec
}

func staticFetch(items []item, err error) Fetcher[item, struct{}] {
	return func(context.Context) ([]item, struct{}, error) {
		return items, struct{}{}, err
	}
}

func TestCollection_InitialState(t *testing.T) {
	c, _ := newItemCollection(staticFetch(nil, nil))
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.Items())
	assert.Equal(t, "items", c.Noun())
}

func TestCollection_LoadSuccess(t *testing.T) {
	want := []item{{1, "a"}, {2, "b"}}
	c, rec := newItemCollection(staticFetch(want, nil))

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, want, c.Items())
	assert.Empty(t, rec.all())

	got, ok := c.Find(2)
	assert.True(t, ok)
	assert.Equal(t, "b", got.Name)
	_, ok = c.Find(3)
	assert.False(t, ok)
}

func TestCollection_LoadNilIsEmpty(t *testing.T) {
	c, _ := newItemCollection(staticFetch(nil, nil))
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, StateLoaded, c.State())
	assert.NotNil(t, c.Items())
	assert.Empty(t, c.Items())
}

func TestCollection_LoadFailureEmptiesAndNotifiesOnce(t *testing.T) {
	calls := 0
	c, rec := newItemCollection(func(context.Context) ([]item, struct{}, error) {
		calls++
		if calls == 1 {
			return []item{{1, "a"}}, struct{}{}, nil
		}
		return nil, struct{}{}, errors.New("boom")
	})

	require.NoError(t, c.Load(context.Background()))
	require.Len(t, c.Items(), 1)

	err := c.Load(context.Background())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, StateErrored, c.State())
	assert.Empty(t, c.Items())
	assert.Equal(t, 1, rec.count(LevelError))
	assert.Equal(t, []string{"Failed to fetch items."}, rec.messages())
	assert.Equal(t, 2, calls, "no automatic retry")
}

func TestCollection_RefetchUnchangedIsIdempotent(t *testing.T) {
	want := []item{{1, "a"}}
	c, _ := newItemCollection(staticFetch(want, nil))

	require.NoError(t, c.Load(context.Background()))
	first := c.Snapshot()
	require.NoError(t, c.Load(context.Background()))
	second := c.Snapshot()

	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Items, second.Items)
}

func TestCollection_StaleLoadIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	c, rec := newItemCollection(func(context.Context) ([]item, struct{}, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			return []item{{1, "old"}}, struct{}{}, errors.New("late failure")
		}
		return []item{{2, "new"}}, struct{}{}, nil
	})

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	<-started

	require.NoError(t, c.Load(context.Background()))
	close(release)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, []item{{2, "new"}}, c.Items())
	assert.Empty(t, rec.all(), "stale failure must not raise a notice")
}

func TestCollection_CancelledLoadRestoresState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, rec := newItemCollection(func(ctx context.Context) ([]item, struct{}, error) {
		cancel()
		return nil, struct{}{}, ctx.Err()
	})

	err := c.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, rec.all())
}

func TestCollection_InvalidateDropsInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c, _ := newItemCollection(func(context.Context) ([]item, struct{}, error) {
		close(started)
		<-release
		return []item{{1, "a"}}, struct{}{}, nil
	})

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	<-started
	c.Invalidate()
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.Items())
}

func TestCollection_MutateSuccessRefetchesAfterOp(t *testing.T) {
	var order []string
	c, rec := newItemCollection(func(context.Context) ([]item, struct{}, error) {
		order = append(order, "fetch")
		return []item{{1, "a"}}, struct{}{}, nil
	})

	n, err := c.Mutate(context.Background(), func(context.Context) error {
		order = append(order, "op")
		return nil
	}, "Saved.", "Not saved.")

	require.NoError(t, err)
	assert.Equal(t, LevelSuccess, n.Level)
	assert.Equal(t, "Saved.", n.Message)
	assert.Equal(t, []string{"op", "fetch"}, order)
	assert.Equal(t, []string{"Saved."}, rec.messages())
	assert.Equal(t, StateLoaded, c.State())
}

func TestCollection_MutateFailureDoesNotRefetch(t *testing.T) {
	fetches := 0
	c, rec := newItemCollection(func(context.Context) ([]item, struct{}, error) {
		fetches++
		return nil, struct{}{}, nil
	})

	n, err := c.Mutate(context.Background(), func(context.Context) error {
		return errors.New("nope")
	}, "Saved.", "Not saved.")

	assert.Error(t, err)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, 0, fetches)
	assert.Equal(t, []string{"Not saved."}, rec.messages())
}

func TestCollection_TwoStepDelete(t *testing.T) {
	c, rec := newItemCollection(staticFetch([]item{{7, "x"}}, nil))
	ctx := context.Background()

	t.Run("cancel performs no I/O", func(t *testing.T) {
		deletes := 0
		c.RequestDelete(7)
		id, ok := c.PendingDelete()
		require.True(t, ok)
		assert.Equal(t, api.ID(7), id)

		c.CancelDelete()
		_, ok = c.PendingDelete()
		assert.False(t, ok)

		_, err := c.ConfirmDelete(ctx, func(context.Context, api.ID) error {
			deletes++
			return nil
		}, "Deleted.", "Not deleted.")
		assert.ErrorIs(t, err, ErrNothingPending)
		assert.Equal(t, 0, deletes)
	})

	t.Run("confirm deletes the pending id", func(t *testing.T) {
		var deleted api.ID
		c.RequestDelete(7)
		_, err := c.ConfirmDelete(ctx, func(_ context.Context, id api.ID) error {
			deleted = id
			return nil
		}, "Deleted.", "Not deleted.")
		require.NoError(t, err)
		assert.Equal(t, api.ID(7), deleted)
		_, ok := c.PendingDelete()
		assert.False(t, ok)
	})

	t.Run("failure still clears pending", func(t *testing.T) {
		c.RequestDelete(7)
		_, err := c.ConfirmDelete(ctx, func(context.Context, api.ID) error {
			return errors.New("gone")
		}, "Deleted.", "Not deleted.")
		assert.Error(t, err)
		_, ok := c.PendingDelete()
		assert.False(t, ok)
	})

	assert.Equal(t, []string{"Deleted.", "Not deleted."}, rec.messages())
}

func TestCollection_WatchReceivesTransitions(t *testing.T) {
	c, _ := newItemCollection(staticFetch([]item{{1, "a"}}, nil))

	var states []State
	cancel := c.Watch(func(s Snapshot[item, struct{}]) {
		states = append(states, s.State)
	})
	require.NoError(t, c.Load(context.Background()))
	cancel()
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, []State{StateLoading, StateLoaded}, states)
}

func TestCollection_ItemsReturnsCopy(t *testing.T) {
	c, _ := newItemCollection(staticFetch([]item{{1, "a"}}, nil))
	require.NoError(t, c.Load(context.Background()))

	items := c.Items()
	items[0].Name = "mutated"
	assert.Equal(t, "a", c.Items()[0].Name)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "errored", StateErrored.String())
}
