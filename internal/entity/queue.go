package entity

import (
	"context"
	"strconv"
	"sync"
)

// PatchQueue serializes writes to the same record. Writers are admitted in
// the order they call Acquire, so whole-record echoes are applied in request
// order and a slow older response can never overwrite a newer one.
type PatchQueue struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

// NewPatchQueue creates an empty queue.
func NewPatchQueue() *PatchQueue {
	return &PatchQueue{tails: make(map[string]chan struct{})}
}

// Acquire waits for every earlier writer of (endpoint, id) to finish. The
// returned release must be called exactly once. If ctx ends while waiting,
// the slot is still released in order once the predecessor finishes.
func (q *PatchQueue) Acquire(ctx context.Context, endpoint string, id int64) (func(), error) {
	key := endpoint + "/" + strconv.FormatInt(id, 10)
	done := make(chan struct{})

	q.mu.Lock()
	prev := q.tails[key]
	q.tails[key] = done
	q.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			q.mu.Lock()
			if q.tails[key] == done {
				delete(q.tails, key)
			}
			q.mu.Unlock()
		})
	}

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}
