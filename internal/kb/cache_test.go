package kb

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

func sampleKB() *KnowledgeBase {
	return &KnowledgeBase{
		Sections: []Section{{ID: 1, Name: "FAQ", Articles: []Article{{ID: 10, Title: "Reset password"}}}},
		Metadata: Metadata{Sections: 1, TotalArticles: 1},
	}
}

type countingMetrics struct {
	hits, misses atomic.Int32
}

func (m *countingMetrics) RecordCacheHit(context.Context, string)  { m.hits.Add(1) }
func (m *countingMetrics) RecordCacheMiss(context.Context, string) { m.misses.Add(1) }

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire at its TTL")

	require.NoError(t, s.Set(ctx, "k2", []byte("v"), time.Minute))
	assert.Len(t, s.entries, 1, "expired entries are dropped on write")

	require.NoError(t, s.Delete(ctx, "k2"))
	_, ok, _ = s.Get(ctx, "k2")
	assert.False(t, ok)
	assert.Equal(t, BackendMemory, s.Backend())
}

func TestCacheHitAndMiss(t *testing.T) {
	metrics := &countingMetrics{}
	c := NewCache(NewMemoryStore(), WithCacheMetrics(metrics))
	ctx := context.Background()

	var loads atomic.Int32
	loader := func(context.Context) (*KnowledgeBase, error) {
		loads.Add(1)
		return sampleKB(), nil
	}

	kb, hit, err := c.Get(ctx, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "FAQ", kb.Sections[0].Name)

	kb, hit, err = c.Get(ctx, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Reset password", kb.Sections[0].Articles[0].Title)

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, int32(1), metrics.hits.Load())
	assert.Equal(t, int32(1), metrics.misses.Load())

	require.NoError(t, c.Invalidate(ctx))
	_, hit, err = c.Get(ctx, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), loads.Load())
}

func TestCacheCollapsesConcurrentLoads(t *testing.T) {
	c := NewCache(nil)
	release := make(chan struct{})
	var loads atomic.Int32
	loader := func(context.Context) (*KnowledgeBase, error) {
		loads.Add(1)
		<-release
		return sampleKB(), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.Get(context.Background(), loader)
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), loads.Load())
}

func TestCacheLoadSurvivesFirstCallerCancel(t *testing.T) {
	c := NewCache(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var loads atomic.Int32
	loader := func(ctx context.Context) (*KnowledgeBase, error) {
		loads.Add(1)
		close(started)
		select {
		case <-release:
			return sampleKB(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.Get(firstCtx, loader)
		firstErr <- err
	}()
	<-started

	waiterErr := make(chan error, 1)
	go func() {
		kb, _, err := c.Get(context.Background(), loader)
		if err == nil && kb == nil {
			err = errors.New("nil knowledge base")
		}
		waiterErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	require.NoError(t, <-waiterErr)
	assert.Equal(t, int32(1), loads.Load())

	_, hit, err := c.Get(context.Background(), loader)
	require.NoError(t, err)
	assert.True(t, hit, "the shared load was stored")
}

func TestCacheLoadTimeout(t *testing.T) {
	c := NewCache(nil, WithLoadTimeout(20*time.Millisecond))

	_, _, err := c.Get(context.Background(), func(ctx context.Context) (*KnowledgeBase, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCacheLoadErrorIsNotCached(t *testing.T) {
	c := NewCache(nil)
	boom := errors.New("zendesk down")

	_, _, err := c.Get(context.Background(), func(context.Context) (*KnowledgeBase, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	kb, hit, err := c.Get(context.Background(), func(context.Context) (*KnowledgeBase, error) { return sampleKB(), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, kb)
}

type failingStore struct{ MemoryStore }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func TestCacheStoreFailureFallsBackToLoader(t *testing.T) {
	c := NewCache(&failingStore{})
	kb, hit, err := c.Get(context.Background(), func(context.Context) (*KnowledgeBase, error) { return sampleKB(), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, kb.Metadata.Sections)
}

type fakeHelpCenter struct {
	sections []zendesk.Record
	articles map[int64][]zendesk.Record
	fail     int64
}

func (f *fakeHelpCenter) SearchArticles(context.Context, string, zendesk.ListOptions) (*zendesk.Collection, error) {
	return &zendesk.Collection{}, nil
}

func (f *fakeHelpCenter) ListSections(context.Context) (*zendesk.Collection, error) {
	return &zendesk.Collection{Records: f.sections, Count: -1}, nil
}

func (f *fakeHelpCenter) ListSectionArticles(_ context.Context, id int64) (*zendesk.Collection, error) {
	if id == f.fail {
		return nil, zendesk.ErrNotFound
	}
	return &zendesk.Collection{Records: f.articles[id], Count: -1}, nil
}

func TestFetch(t *testing.T) {
	hc := &fakeHelpCenter{
		sections: []zendesk.Record{
			{"id": float64(2), "name": "Billing", "description": "Money"},
			{"id": float64(1), "name": "FAQ"},
		},
		articles: map[int64][]zendesk.Record{
			1: {{"id": float64(10), "title": "Reset password", "html_url": "https://acme.zendesk.com/hc/10"}},
			2: {{"id": float64(20), "title": "Refunds"}, {"id": float64(21), "title": "Invoices"}},
		},
	}

	kb, err := Fetch(context.Background(), hc)
	require.NoError(t, err)
	require.Len(t, kb.Sections, 2)
	assert.Equal(t, "Billing", kb.Sections[0].Name, "section order is preserved")
	assert.Len(t, kb.Sections[0].Articles, 2)
	assert.Equal(t, "https://acme.zendesk.com/hc/10", kb.Sections[1].Articles[0].URL)
	assert.Equal(t, 2, kb.Metadata.Sections)
	assert.Equal(t, 3, kb.Metadata.TotalArticles)

	hc.fail = 2
	_, err = Fetch(context.Background(), hc)
	assert.ErrorIs(t, err, zendesk.ErrNotFound)
}

// TestRedisStore runs against a live Redis when REDIS_TEST_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(ctx).Err())

	s := NewRedisStore(rdb, "mcp-zendesk-test:")
	defer s.Close()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, BackendRedis, s.Backend())

	c := NewCache(s, WithKey("kb-test"))
	_, hit, err := c.Get(ctx, func(context.Context) (*KnowledgeBase, error) { return sampleKB(), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = c.Get(ctx, func(context.Context) (*KnowledgeBase, error) { return sampleKB(), nil })
	require.NoError(t, err)
	assert.True(t, hit)
	require.NoError(t, c.Invalidate(ctx))
}

func TestNewRedisStoreFromURLRejectsBadURL(t *testing.T) {
	_, err := NewRedisStoreFromURL(context.Background(), "::not-a-url", "p:")
	assert.Error(t, err)
}
