package catalog

import (
	"sync"
	"time"

	"github.com/erazemk/pekarna/internal/client"
)

// Registry keeps one data context per signed-in subject and drops contexts
// that have been idle for longer than the TTL.
type Registry struct {
	api *client.Client
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	contexts map[string]*registryEntry
}

type registryEntry struct {
	dc       *Context
	lastUsed time.Time
}

// NewRegistry creates a registry. Each context gets its own broker, so
// invalidations stay within one user's cache.
func NewRegistry(api *client.Client, ttl time.Duration) *Registry {
	return &Registry{
		api:      api,
		ttl:      ttl,
		now:      time.Now,
		contexts: make(map[string]*registryEntry),
	}
}

// For returns the data context of subject bound to s.
func (r *Registry) For(subject string, s Session) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	e, ok := r.contexts[subject]
	if !ok {
		e = &registryEntry{dc: NewContext(r.api, NewBroker())}
		r.contexts[subject] = e
	}
	e.lastUsed = now
	e.dc.Bind(s)
	return e.dc
}

// Len returns the number of live contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

func (r *Registry) prune(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for subject, e := range r.contexts {
		if now.Sub(e.lastUsed) > r.ttl {
			e.dc.Close()
			delete(r.contexts, subject)
		}
	}
}
