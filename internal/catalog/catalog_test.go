package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/pekarna/internal/client"
	"github.com/erazemk/pekarna/internal/model"
)

type session struct {
	loading bool
	token   string
}

func (s *session) Loading() bool       { return s.loading }
func (s *session) Authenticated() bool { return s.token != "" }
func (s *session) Token(context.Context) (string, error) {
	return s.token, nil
}

type fetchLog struct {
	mu      sync.Mutex
	calls   []string
	fail    error
	records []model.Brand
}

func (f *fetchLog) fetch(_ context.Context, endpoint string, query url.Values) ([]model.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceKey(endpoint, query))
	if f.fail != nil {
		return nil, f.fail
	}
	return f.records, nil
}

func (f *fetchLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestLoadCachesUntilSourceChanges(t *testing.T) {
	f := &fetchLog{records: []model.Brand{{BrandID: 1, BrandName: "Mlinotest"}}}
	c := NewCollection("brands", "buyable/brand", nil, f.fetch, &session{token: "t"})

	snap := c.Load(context.Background())
	require.NoError(t, snap.Err)
	assert.Len(t, snap.Data, 1)
	assert.False(t, snap.Loading)

	c.Load(context.Background())
	assert.Equal(t, 1, f.count())

	c.SetSource("buyable/brand", url.Values{"brand_name": {"Mlinotest"}})
	c.Load(context.Background())
	assert.Equal(t, 2, f.count())
	assert.Equal(t, "buyable/brand?brand_name=Mlinotest", f.calls[1])
}

func TestQueryKeyIsOrderIndependent(t *testing.T) {
	a := url.Values{}
	a.Set("b", "2")
	a.Set("a", "1")
	b := url.Values{}
	b.Set("a", "1")
	b.Set("b", "2")
	assert.Equal(t, sourceKey("x", a), sourceKey("x", b))
}

func TestLoadErrorClearsData(t *testing.T) {
	f := &fetchLog{records: []model.Brand{{BrandID: 1}}}
	c := NewCollection("brands", "buyable/brand", nil, f.fetch, nil)

	require.Len(t, c.Load(context.Background()).Data, 1)

	f.fail = errors.New("boom")
	snap := c.Refetch(context.Background())
	assert.Nil(t, snap.Data)
	assert.EqualError(t, snap.Err, "boom")
}

func TestEmptyEndpointDisablesFetch(t *testing.T) {
	f := &fetchLog{}
	c := NewCollection("brands", "", nil, f.fetch, nil)

	c.Load(context.Background())
	c.Refetch(context.Background())
	assert.Zero(t, f.count())
}

func TestAuthGating(t *testing.T) {
	tests := []struct {
		name    string
		session *session
		want    int
	}{
		{"resolving", &session{loading: true, token: "t"}, 0},
		{"signed out", &session{}, 0},
		{"signed in", &session{token: "t"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fetchLog{}
			c := NewCollection("brands", "buyable/brand", nil, f.fetch, tt.session)
			c.Load(context.Background())
			assert.Equal(t, tt.want, f.count())
		})
	}
}

func TestInvalidateRefetchesOnNextLoad(t *testing.T) {
	f := &fetchLog{}
	c := NewCollection("brands", "buyable/brand", nil, f.fetch, nil)

	c.Load(context.Background())
	c.Invalidate()
	assert.Equal(t, 1, f.count())

	c.Load(context.Background())
	assert.Equal(t, 2, f.count())
}

// pending reports how many Refetch calls are waiting for a result.
func (c *Collection[T]) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

func TestConcurrentRefetchCoalesces(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context, string, url.Values) ([]model.Brand, error) {
		calls.Add(1)
		<-release
		return []model.Brand{{BrandID: 1, BrandName: "Mlinotest"}}, nil
	}
	c := NewCollection("brands", "buyable/brand", nil, fetch, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Refetch(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return c.pending() == 5 }, time.Second, time.Millisecond)
	// Let the callers past the counter reach the shared call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.Len(t, snap.Data, 1)
}

// blockingFetch serves brands; the first call waits for release and returns
// the brands as they were when it started.
type blockingFetch struct {
	mu      sync.Mutex
	brands  []model.Brand
	calls   int
	started chan struct{}
	release chan struct{}
}

func newBlockingFetch(brands ...model.Brand) *blockingFetch {
	return &blockingFetch{brands: brands, started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingFetch) add(brand model.Brand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.brands = append(b.brands, brand)
}

func (b *blockingFetch) fetch(context.Context, string, url.Values) ([]model.Brand, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	out := append([]model.Brand(nil), b.brands...)
	b.mu.Unlock()

	if first {
		close(b.started)
		<-b.release
	}
	return out, nil
}

func TestInvalidateDuringFetchIsKept(t *testing.T) {
	f := newBlockingFetch(model.Brand{BrandID: 1, BrandName: "Old"})
	c := NewCollection("brands", "buyable/brand", nil, f.fetch, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Load(context.Background())
	}()
	<-f.started

	f.add(model.Brand{BrandID: 2, BrandName: "Acme"})
	c.Invalidate()
	close(f.release)
	<-done

	snap := c.Load(context.Background())
	require.NoError(t, snap.Err)
	assert.Len(t, snap.Data, 2)
}

func TestRefetchAfterInvalidateDoesNotJoinOlderFetch(t *testing.T) {
	f := newBlockingFetch(model.Brand{BrandID: 1, BrandName: "Old"})
	c := NewCollection("brands", "buyable/brand", nil, f.fetch, nil)

	first := make(chan struct{})
	go func() {
		defer close(first)
		c.Refetch(context.Background())
	}()
	<-f.started

	f.add(model.Brand{BrandID: 2, BrandName: "Acme"})
	c.Invalidate()

	snap := c.Refetch(context.Background())
	assert.Len(t, snap.Data, 2)

	// The older fetch finishing last must not replace the newer result.
	close(f.release)
	<-first
	assert.Len(t, c.Snapshot().Data, 2)
	assert.Len(t, c.Load(context.Background()).Data, 2)
}

func TestBrokerSubscribeAndUnsubscribe(t *testing.T) {
	b := NewBroker()
	var got []string
	unsub := b.Subscribe(Brands, func(m Message) { got = append(got, m.Collection) })

	b.Publish(Message{Collection: Brands})
	b.Publish(Message{Collection: Suppliers})
	assert.Equal(t, []string{Brands}, got)
	assert.Equal(t, 1, b.Subscribers(Brands))

	unsub()
	b.Publish(Message{Collection: Brands})
	assert.Len(t, got, 1)
	assert.Zero(t, b.Subscribers(Brands))
}

func brandServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"brand_id": 1, "brand_name": "Mlinotest"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestContextInvalidateReachesCollection(t *testing.T) {
	var hits atomic.Int32
	srv := brandServer(t, &hits)

	dc := NewContext(client.New(srv.URL, nil), NewBroker())
	defer dc.Close()
	dc.Bind(&session{token: "secret"})

	snap := dc.Brands.Load(context.Background())
	require.NoError(t, snap.Err)
	require.Len(t, snap.Data, 1)
	assert.Equal(t, "Mlinotest", snap.Data[0].BrandName)

	dc.Brands.Load(context.Background())
	assert.Equal(t, int32(1), hits.Load())

	dc.Invalidate(Suppliers)
	dc.Brands.Load(context.Background())
	assert.Equal(t, int32(1), hits.Load())

	dc.Invalidate(Brands)
	dc.Brands.Load(context.Background())
	assert.Equal(t, int32(2), hits.Load())
}

func TestContextUnboundFetchesNothing(t *testing.T) {
	var hits atomic.Int32
	srv := brandServer(t, &hits)

	dc := NewContext(client.New(srv.URL, nil), NewBroker())
	defer dc.Close()

	assert.False(t, dc.Authenticated())
	dc.Brands.Load(context.Background())
	assert.Zero(t, hits.Load())
}

func TestRegistryPrunesIdleContexts(t *testing.T) {
	r := NewRegistry(client.New("http://api.invalid", nil), time.Minute)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	a := r.For("ana", &session{token: "a"})
	assert.Same(t, a, r.For("ana", &session{token: "a"}))
	r.For("bor", &session{token: "b"})
	assert.Equal(t, 2, r.Len())

	now = now.Add(2 * time.Minute)
	r.For("ana", &session{token: "a"})
	assert.Equal(t, 1, r.Len())
}
