package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ajramos/mailflow/internal/api"
	"go.uber.org/zap"
)

// State is the lifecycle of a collection load
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	}
	return "idle"
}

// Fetcher retrieves the full collection plus any payload loaded alongside it
type Fetcher[T, X any] func(ctx context.Context) ([]T, X, error)

// Snapshot is a consistent view of a collection
type Snapshot[T, X any] struct {
	State      State
	Items      []T
	Extra      X
	Err        error
	Pending    *api.ID
	Generation uint64
}

// CollectionConfig wires a Collection
type CollectionConfig[T, X any] struct {
	// Noun names the items in notices ("drafts", "prompts")
	Noun string
	// FailureMessage overrides "Failed to fetch <noun>."
	FailureMessage string
	Fetch          Fetcher[T, X]
	ID             func(T) api.ID
	Notifier       *Notifier
	Logger         *zap.Logger
}

// Collection holds a server-owned list that is always re-fetched in full.
// Loads are numbered; a result whose number is not the latest is dropped.
type Collection[T, X any] struct {
	noun       string
	failureMsg string
	fetch      Fetcher[T, X]
	idOf       func(T) api.ID
	notifier   *Notifier
	logger     *zap.Logger

	mu       sync.Mutex
	state    State
	items    []T
	extra    X
	err      error
	gen      uint64
	pending  *api.ID
	watchers map[int]func(Snapshot[T, X])
	nextW    int

	// serializes watcher delivery so snapshots arrive in order
	emitMu sync.Mutex
}

// NewCollection creates an idle collection
func NewCollection[T, X any](cfg CollectionConfig[T, X]) *Collection[T, X] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	failure := cfg.FailureMessage
	if failure == "" {
		failure = fmt.Sprintf("Failed to fetch %s.", cfg.Noun)
	}
	return &Collection[T, X]{
		noun:       cfg.Noun,
		failureMsg: failure,
		fetch:      cfg.Fetch,
		idOf:       cfg.ID,
		notifier:   cfg.Notifier,
		logger:     logger,
		items:      []T{},
		watchers:   make(map[int]func(Snapshot[T, X])),
	}
}

// ListFetcher adapts a plain list call into a Fetcher with no extra payload
func ListFetcher[T any](list func(context.Context) ([]T, error)) Fetcher[T, struct{}] {
	return func(ctx context.Context) ([]T, struct{}, error) {
		items, err := list(ctx)
		return items, struct{}{}, err
	}
}

// Noun returns the collection's item name
func (c *Collection[T, X]) Noun() string {
	return c.noun
}

// Load fetches the collection. ErrSuperseded is returned when a newer load started
// before this one finished; its result is discarded without a state change.
func (c *Collection[T, X]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	prev := c.state
	if prev == StateLoading {
		prev = StateIdle
	}
	c.state = StateLoading
	c.mu.Unlock()
	c.emit()

	items, extra, err := c.fetch(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale load", zap.String("collection", c.noun), zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	if err != nil && ctx.Err() != nil {
		c.state = prev
		c.mu.Unlock()
		c.emit()
		return ctx.Err()
	}
	if err != nil {
		var zero X
		c.state = StateErrored
		c.items = []T{}
		c.extra = zero
		c.err = err
		c.mu.Unlock()
		c.emit()
		c.notifier.Publish(ErrorNotice(c.failureMsg, err))
		return err
	}
	if items == nil {
		items = []T{}
	}
	c.state = StateLoaded
	c.items = items
	c.extra = extra
	c.err = nil
	c.mu.Unlock()
	c.emit()
	return nil
}

// Mutate runs op. On success it publishes success and re-fetches; on failure it
// publishes failure and leaves the collection as it was.
func (c *Collection[T, X]) Mutate(ctx context.Context, op func(context.Context) error, success, failure string) (Notice, error) {
	if err := op(ctx); err != nil {
		n := ErrorNotice(failure, err)
		c.notifier.Publish(n)
		return n, err
	}
	n := SuccessNotice(success)
	c.notifier.Publish(n)
	if err := c.Load(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		c.logger.Debug("reload after mutation failed", zap.String("collection", c.noun), zap.Error(err))
	}
	return n, nil
}

// RequestDelete marks id for deletion pending confirmation
func (c *Collection[T, X]) RequestDelete(id api.ID) {
	c.mu.Lock()
	c.pending = &id
	c.mu.Unlock()
	c.emit()
}

// PendingDelete returns the id awaiting confirmation
func (c *Collection[T, X]) PendingDelete() (api.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0, false
	}
	return *c.pending, true
}

// CancelDelete clears the pending id
func (c *Collection[T, X]) CancelDelete() {
	c.mu.Lock()
	had := c.pending != nil
	c.pending = nil
	c.mu.Unlock()
	if had {
		c.emit()
	}
}

// ConfirmDelete deletes the pending id then re-fetches. The pending id is cleared
// whatever the outcome. With nothing pending it returns ErrNothingPending and does no I/O.
func (c *Collection[T, X]) ConfirmDelete(ctx context.Context, del func(context.Context, api.ID) error, success, failure string) (Notice, error) {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return Notice{}, ErrNothingPending
	}
	id := *c.pending
	c.pending = nil
	c.mu.Unlock()
	c.emit()

	return c.Mutate(ctx, func(ctx context.Context) error {
		return del(ctx, id)
	}, success, failure)
}

// Invalidate drops the result of any load in flight
func (c *Collection[T, X]) Invalidate() {
	c.mu.Lock()
	c.gen++
	if c.state == StateLoading {
		c.state = StateIdle
	}
	c.mu.Unlock()
	c.emit()
}

// State returns the current lifecycle state
func (c *Collection[T, X]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns a copy of the displayed collection
func (c *Collection[T, X]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Extra returns the payload of the last applied load
func (c *Collection[T, X]) Extra() X {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extra
}

// Find returns the loaded item with the given id
func (c *Collection[T, X]) Find(id api.ID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if c.idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Snapshot returns the current state in one piece
func (c *Collection[T, X]) Snapshot() Snapshot[T, X] {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	var pending *api.ID
	if c.pending != nil {
		id := *c.pending
		pending = &id
	}
	return Snapshot[T, X]{
		State:      c.state,
		Items:      items,
		Extra:      c.extra,
		Err:        c.err,
		Pending:    pending,
		Generation: c.gen,
	}
}

// Watch registers fn to receive a snapshot after every transition
func (c *Collection[T, X]) Watch(fn func(Snapshot[T, X])) (cancel func()) {
	c.mu.Lock()
	id := c.nextW
	c.nextW++
	c.watchers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

func (c *Collection[T, X]) emit() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if len(c.watchers) == 0 {
		c.mu.Unlock()
		return
	}
	fns := make([]func(Snapshot[T, X]), 0, len(c.watchers))
	for id := 0; id < c.nextW; id++ {
		if fn, ok := c.watchers[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	snap := c.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}
