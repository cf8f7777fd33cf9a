package catalog

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/erazemk/pekarna/internal/entity"
)

// Fetcher loads the records of endpoint filtered by query.
type Fetcher[T any] func(ctx context.Context, endpoint string, query url.Values) ([]T, error)

// Snapshot is the observable state of a collection.
type Snapshot[T any] struct {
	Data    []T
	Loading bool
	Err     error
}

// Collection caches one fetched array. It refetches when its endpoint or
// query change, when it has been invalidated, or on Refetch.
type Collection[T any] struct {
	name  string
	fetch Fetcher[T]
	auth  entity.AuthState
	group singleflight.Group

	mu       sync.Mutex
	endpoint string
	query    url.Values
	data     []T
	err      error
	inflight int
	loaded   string
	fetched  bool
	stale    bool
	// generation counts invalidations. A fetch started before the latest
	// invalidation may not mark the cache fresh.
	generation uint64
	// stored is the generation of the data currently held.
	stored uint64
}

// NewCollection creates a collection. An empty endpoint disables fetching.
func NewCollection[T any](name, endpoint string, query url.Values, fetch Fetcher[T], auth entity.AuthState) *Collection[T] {
	return &Collection[T]{
		name:     name,
		endpoint: endpoint,
		query:    query,
		fetch:    fetch,
		auth:     auth,
	}
}

// Name returns the collection name invalidation messages are addressed to.
func (c *Collection[T]) Name() string {
	return c.name
}

// SetSource changes the endpoint and query. The next Load refetches when the
// serialized source differs from the last one loaded.
func (c *Collection[T]) SetSource(endpoint string, query url.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = endpoint
	c.query = query
}

func sourceKey(endpoint string, query url.Values) string {
	if len(query) == 0 {
		return endpoint
	}
	return endpoint + "?" + query.Encode()
}

// Invalidate marks the cached array stale; it is replaced on the next Load.
// Fetches already running when it is called do not clear the mark.
func (c *Collection[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
	c.generation++
}

// Snapshot returns the current state without fetching.
func (c *Collection[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[T]{Data: c.data, Loading: c.inflight > 0, Err: c.err}
}

func (c *Collection[T]) ready() bool {
	if c.auth == nil {
		return true
	}
	return !c.auth.Loading() && c.auth.Authenticated()
}

// Load fetches when needed and returns the resulting state.
func (c *Collection[T]) Load(ctx context.Context) Snapshot[T] {
	c.mu.Lock()
	key := sourceKey(c.endpoint, c.query)
	needed := !c.fetched || c.stale || c.loaded != key
	c.mu.Unlock()

	if !needed {
		return c.Snapshot()
	}
	return c.Refetch(ctx)
}

// Refetch fetches unconditionally. Concurrent calls for the same source and
// generation share one request. Nothing is fetched while the endpoint is
// empty or the user is not signed in.
func (c *Collection[T]) Refetch(ctx context.Context) Snapshot[T] {
	c.mu.Lock()
	endpoint, query := c.endpoint, c.query
	if endpoint == "" || !c.ready() {
		c.mu.Unlock()
		return c.Snapshot()
	}
	gen := c.generation
	c.inflight++
	c.mu.Unlock()

	key := sourceKey(endpoint, query)
	v, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		return c.fetch(ctx, endpoint, query)
	})

	c.mu.Lock()
	c.inflight--
	// Results older than the stored generation are dropped.
	if gen >= c.stored {
		c.stored = gen
		c.fetched = true
		c.loaded = key
		if gen == c.generation {
			c.stale = false
		}
		if err != nil {
			c.data = nil
			c.err = err
		} else {
			c.data = v.([]T)
			c.err = nil
		}
	}
	c.mu.Unlock()

	return c.Snapshot()
}
