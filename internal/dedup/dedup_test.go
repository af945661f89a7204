package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentDigest/internal/infrastructure/cache"
)

type recordingBackend struct {
	mu   sync.Mutex
	ttls map[string]time.Duration
}

func (r *recordingBackend) Exists(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ttls[key]
	return ok, nil
}

func (r *recordingBackend) Set(_ context.Context, key, _ string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ttls == nil {
		r.ttls = map[string]time.Duration{}
	}
	r.ttls[key] = ttl
	return nil
}

type brokenBackend struct{}

func (brokenBackend) Exists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenBackend) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}

func TestKeysUseNamespacesAndNormalizedContent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "processedUrl:5d41402abc4b2a76b9719d911017c592", URLKey("hello"))
	assert.Equal(t, ContentKey("a  b\n\tc "), ContentKey("a b c"))
	assert.NotEqual(t, ContentKey("a b c"), ContentKey("a b d"))
	assert.Regexp(t, `^contentHash:[0-9a-f]{64}$`, ContentKey("text"))
}

func TestMarkProcessedUsesStageTTLs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, ttls := range map[string]TTLs{"processing": ProcessingTTLs(), "collection": CollectionTTLs()} {
		backend := &recordingBackend{}
		c := New(backend, Options{TTLs: ttls})

		c.MarkProcessed(ctx, "https://example.com/a", "body text")

		assert.Equal(t, ttls.URL, backend.ttls[URLKey("https://example.com/a")], name)
		assert.Equal(t, ttls.Content, backend.ttls[ContentKey("body text")], name)
	}

	assert.Equal(t, 7*24*time.Hour, CollectionTTLs().URL)
	assert.Equal(t, 30*24*time.Hour, ProcessingTTLs().URL)
	assert.Equal(t, 30*24*time.Hour, CollectionTTLs().Content)
}

func TestSeenAfterMark(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(cache.NewMemoryCache(0, nil), Options{})

	assert.False(t, c.SeenURL(ctx, "https://example.com/a"))
	assert.False(t, c.SeenContent(ctx, "same body"))

	c.MarkProcessed(ctx, "https://example.com/a", "same   body")

	assert.True(t, c.SeenURL(ctx, "https://example.com/a"))
	assert.True(t, c.SeenContent(ctx, "same body"))
	assert.False(t, c.SeenURL(ctx, "https://example.com/b"))
	assert.False(t, c.SeenURL(ctx, ""))
}

func TestIsDuplicateFirstFalseThenTrue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(cache.NewMemoryCache(0, nil), Options{})

	assert.False(t, c.IsDuplicate(ctx, "Breakthrough AI model\nbody"))
	assert.True(t, c.IsDuplicate(ctx, "Breakthrough AI model body"))
}

func TestEntriesExpire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC)
	backend := cache.NewMemoryCache(0, func() time.Time { return now })
	c := New(backend, Options{TTLs: CollectionTTLs()})

	c.MarkProcessed(ctx, "https://example.com/a", "body")
	now = now.Add(8 * 24 * time.Hour)

	assert.False(t, c.SeenURL(ctx, "https://example.com/a"))
	assert.True(t, c.SeenContent(ctx, "body"))
}

func TestBackendFailuresDegradeToUnseen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(brokenBackend{}, Options{})

	assert.False(t, c.SeenURL(ctx, "https://example.com/a"))
	assert.False(t, c.SeenContent(ctx, "body"))
	assert.False(t, c.IsDuplicate(ctx, "body"))
	assert.NotPanics(t, func() { c.MarkProcessed(ctx, "https://example.com/a", "body") })
}

func TestNilBackendDisablesDedup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(nil, Options{SerializeContent: true})

	require.False(t, c.Enabled())
	c.MarkProcessed(ctx, "https://example.com/a", "body")
	assert.False(t, c.SeenURL(ctx, "https://example.com/a"))
	assert.False(t, c.IsDuplicate(ctx, "body"))
	c.LockContent("body")()
}

func TestSerializeContentAdmitsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(cache.NewMemoryCache(0, nil), Options{SerializeContent: true})

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := c.LockContent("shared body")
			defer unlock()
			if c.SeenContent(ctx, "shared body") {
				return
			}
			time.Sleep(time.Millisecond)
			c.MarkProcessed(ctx, "", "shared body")
			admitted.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.Empty(t, c.locks.locks)
}
