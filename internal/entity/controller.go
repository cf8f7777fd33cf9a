package entity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/erazemk/pekarna/internal/client"
)

// State is the load state of a Controller.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateNotFound
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateNotFound:
		return "not found"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyPersisted rejects SaveNew for a record that has an identity.
	ErrAlreadyPersisted = errors.New("record already persisted")
	// ErrNotPersisted rejects Delete for a record without an identity.
	ErrNotPersisted = errors.New("record not persisted")
	// ErrBusy rejects a second SaveNew while one is in flight.
	ErrBusy = errors.New("save already in progress")
	// ErrClosed is returned once the controller has been closed.
	ErrClosed = errors.New("controller closed")
)

// Messages shown for the authentication precondition.
const msgLogin = "Please log in first"

type initKey struct {
	id    string
	ready bool
}

// Controller owns the interaction lifecycle of one record of type T.
type Controller[T Record] struct {
	cfg Config[T]
	env Env

	life   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	record  T
	err     error
	saving  bool
	pending int
	loaded  bool
	key     initKey
}

// NewController creates a controller in the Uninitialized state.
func NewController[T Record](cfg Config[T], env Env) *Controller[T] {
	life, cancel := context.WithCancel(context.Background())
	return &Controller[T]{cfg: cfg, env: env, life: life, cancel: cancel}
}

// Config returns the form configuration.
func (c *Controller[T]) Config() Config[T] {
	return c.cfg
}

// State returns the current load state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Record returns a copy of the current record.
func (c *Controller[T]) Record() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

// Err returns the block-level error of the NotFound and Errored states.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Saving reports whether any network write is in flight.
func (c *Controller[T]) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving || c.pending > 0
}

// IsNew reports whether the current record has no identity yet.
func (c *Controller[T]) IsNew() bool {
	return c.Record().Identity() == 0
}

// Close cancels every in-flight operation. Results that arrive afterwards are
// dropped.
func (c *Controller[T]) Close() {
	c.cancel()
}

// scope derives an operation context that ends with ctx or with Close.
func (c *Controller[T]) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (c *Controller[T]) closed() bool {
	return c.life.Err() != nil
}

// Adopt makes record the current record without fetching it.
func (c *Controller[T]) Adopt(record T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = record
	c.state = StateReady
	c.err = nil
}

// Initialize loads the record named by idOrNew. NewID yields Empty() without
// any network call. Nothing happens while authentication is resolving, and a
// repeated call with the same identifier and auth readiness is a no-op.
func (c *Controller[T]) Initialize(ctx context.Context, idOrNew string) {
	if c.env.authLoading() || c.closed() {
		return
	}

	key := initKey{id: idOrNew, ready: c.env.authenticated()}

	c.mu.Lock()
	if c.loaded && c.key == key {
		c.mu.Unlock()
		return
	}
	c.loaded = true
	c.key = key

	if idOrNew == NewID {
		c.record = c.cfg.Empty()
		c.state = StateReady
		c.err = nil
		c.mu.Unlock()
		return
	}
	c.state = StateLoading
	c.mu.Unlock()

	id, err := strconv.ParseInt(idOrNew, 10, 64)
	if err != nil || id <= 0 {
		c.fail(StateNotFound, fmt.Errorf("%s not found", c.cfg.Name))
		return
	}

	opCtx, done := c.scope(ctx)
	defer done()

	record, err := c.cfg.Fetch(opCtx, id)
	if c.closed() {
		return
	}
	switch {
	case errors.Is(err, client.ErrNotAuthenticated):
		c.fail(StateErrored, err)
		c.env.notify(LevelError, msgLogin)
	case err != nil:
		c.fail(StateErrored, err)
	case record == nil:
		c.fail(StateNotFound, fmt.Errorf("%s not found", c.cfg.Name))
	default:
		c.mu.Lock()
		c.record = *record
		c.state = StateReady
		c.err = nil
		c.mu.Unlock()
	}
}

func (c *Controller[T]) fail(state State, err error) {
	c.mu.Lock()
	c.state = state
	c.err = err
	c.mu.Unlock()
	if !errors.Is(err, client.ErrNotAuthenticated) {
		c.env.notify(LevelError, err.Error())
	}
}

// ChangeField updates a field of the in-memory record. It never touches the
// network.
func (c *Controller[T]) ChangeField(name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SetField(&c.record, name, value)
}

// CommitFieldEdit persists one field of an existing record. It is a no-op for
// new records and when old and new stringify equally; signed-out users get a
// login notification instead.
// On success the record is replaced by the server's echo; on failure the
// typed value stays in memory. It reports whether a request was sent.
func (c *Controller[T]) CommitFieldEdit(ctx context.Context, name string, newValue, oldValue any) bool {
	id := c.Record().Identity()
	if id == 0 {
		return false
	}
	if Stringify(oldValue) == Stringify(newValue) {
		return false
	}
	if !c.env.authenticated() {
		c.env.notify(LevelError, msgLogin)
		return false
	}

	opCtx, done := c.scope(ctx)
	defer done()

	if c.env.Queue != nil {
		release, err := c.env.Queue.Acquire(opCtx, c.cfg.Endpoint, id)
		if err != nil {
			return false
		}
		defer release()
	}

	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
	}()

	record, err := c.cfg.Patch(opCtx, id, name, newValue)
	if c.closed() {
		return true
	}
	if err != nil {
		if errors.Is(err, client.ErrNotAuthenticated) {
			c.env.notify(LevelError, msgLogin)
		} else {
			c.env.notify(LevelError, err.Error())
		}
		return true
	}

	c.mu.Lock()
	c.record = *record
	c.mu.Unlock()
	c.env.notify(LevelSuccess, fmt.Sprintf("%s updated", c.cfg.Name))
	return true
}

// SaveNew creates record. On success the collection is invalidated and either
// OnSuccess is called with the new identity or the user is sent to the new
// record's page. On failure the form keeps record for a retry.
func (c *Controller[T]) SaveNew(ctx context.Context, record T) error {
	if record.Identity() != 0 {
		return ErrAlreadyPersisted
	}
	if c.closed() {
		return ErrClosed
	}

	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return ErrBusy
	}
	c.saving = true
	c.record = record
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.saving = false
		c.mu.Unlock()
	}()

	if !c.env.authenticated() {
		c.env.notify(LevelError, msgLogin)
		return client.ErrNotAuthenticated
	}

	opCtx, done := c.scope(ctx)
	defer done()

	created, err := c.cfg.Create(opCtx, record)
	if c.closed() {
		return ErrClosed
	}
	if err != nil {
		if errors.Is(err, client.ErrNotAuthenticated) {
			c.env.notify(LevelError, msgLogin)
		} else {
			c.env.notify(LevelError, err.Error())
		}
		return err
	}

	c.mu.Lock()
	c.record = *created
	c.state = StateReady
	c.mu.Unlock()

	c.env.invalidate(c.cfg.Collection)
	c.env.notify(LevelSuccess, fmt.Sprintf("%s created", c.cfg.Name))

	newID := (*created).Identity()
	if c.cfg.OnSuccess != nil {
		c.cfg.OnSuccess(newID)
	} else {
		c.env.navigate(c.cfg.DetailPath(strconv.FormatInt(newID, 10)))
	}
	return nil
}

// Delete removes the current record, invalidates the collection and returns
// the user to the collection page.
func (c *Controller[T]) Delete(ctx context.Context) error {
	id := c.Record().Identity()
	if id == 0 {
		return ErrNotPersisted
	}
	if !c.env.authenticated() {
		c.env.notify(LevelError, msgLogin)
		return client.ErrNotAuthenticated
	}

	opCtx, done := c.scope(ctx)
	defer done()

	c.mu.Lock()
	c.saving = true
	c.mu.Unlock()
	err := c.cfg.Delete(opCtx, id)
	c.mu.Lock()
	c.saving = false
	c.mu.Unlock()

	if c.closed() {
		return ErrClosed
	}
	if err != nil {
		c.env.notify(LevelError, err.Error())
		return err
	}

	c.env.invalidate(c.cfg.Collection)
	c.env.notify(LevelSuccess, fmt.Sprintf("%s deleted", c.cfg.Name))
	c.env.navigate(c.cfg.ListPath())
	return nil
}

// Cancel discards the in-memory record and returns to the collection page.
func (c *Controller[T]) Cancel() {
	c.mu.Lock()
	var zero T
	c.record = zero
	c.state = StateUninitialized
	c.err = nil
	c.loaded = false
	c.mu.Unlock()
	c.env.navigate(c.cfg.ListPath())
}
