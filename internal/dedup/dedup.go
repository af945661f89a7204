package dedup

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ContentDigest/internal/metrics"
	"ContentDigest/internal/ports"
)

// Key namespaces in the backing cache.
const (
	URLNamespace     = "processedUrl"
	ContentNamespace = "contentHash"
)

const (
	day          = 24 * time.Hour
	presentValue = "1"
)

// TTLs sets how long each namespace remembers a key.
type TTLs struct {
	URL     time.Duration
	Content time.Duration
}

// ProcessingTTLs is used by the processing stage: 30 days for both namespaces.
func ProcessingTTLs() TTLs {
	return TTLs{URL: 30 * day, Content: 30 * day}
}

// CollectionTTLs is used by collectors: URLs are forgotten after 7 days.
func CollectionTTLs() TTLs {
	return TTLs{URL: 7 * day, Content: 30 * day}
}

// Options configures a Cache.
type Options struct {
	TTLs TTLs
	// SerializeContent holds a per-content-hash lock from LockContent until the caller releases
	// it, so two workers in this process cannot both admit the same content.
	SerializeContent bool
	Logger           *slog.Logger
}

// Cache is the best-effort at-most-once admission check over a KeyValueCache. Backend errors
// are logged and treated as "not seen"; a nil backend disables dedup entirely.
type Cache struct {
	backend   ports.KeyValueCache
	ttls      TTLs
	serialize bool
	locks     *keyedMutex
	logger    *slog.Logger
}

// New wraps backend. Zero TTLs fall back to the processing-stage defaults.
func New(backend ports.KeyValueCache, opts Options) *Cache {
	ttls := opts.TTLs
	defaults := ProcessingTTLs()
	if ttls.URL <= 0 {
		ttls.URL = defaults.URL
	}
	if ttls.Content <= 0 {
		ttls.Content = defaults.Content
	}

	c := &Cache{
		backend:   backend,
		ttls:      ttls,
		serialize: opts.SerializeContent,
		locks:     newKeyedMutex(),
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With("component", "dedup")
	}
	return c
}

// Enabled reports whether a backend is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.backend != nil
}

// NormalizeContent collapses every whitespace run to one space.
func NormalizeContent(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// URLKey returns the processedUrl key for url.
func URLKey(url string) string {
	sum := md5.Sum([]byte(url))
	return URLNamespace + ":" + hex.EncodeToString(sum[:])
}

// ContentKey returns the contentHash key for whitespace-normalized text.
func ContentKey(text string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(text)))
	return ContentNamespace + ":" + hex.EncodeToString(sum[:])
}

// SeenURL reports whether url was already processed.
func (c *Cache) SeenURL(ctx context.Context, url string) bool {
	if !c.Enabled() || url == "" {
		return false
	}
	return c.exists(ctx, URLKey(url), URLNamespace)
}

// SeenContent reports whether the normalized text was already admitted.
func (c *Cache) SeenContent(ctx context.Context, text string) bool {
	if !c.Enabled() {
		return false
	}
	return c.exists(ctx, ContentKey(text), ContentNamespace)
}

// MarkProcessed records both the url and the content hash. Each write is independent.
func (c *Cache) MarkProcessed(ctx context.Context, url, text string) {
	if !c.Enabled() {
		return
	}
	if url != "" {
		c.set(ctx, URLKey(url), c.ttls.URL)
	}
	c.set(ctx, ContentKey(text), c.ttls.Content)
}

// IsDuplicate checks the content hash and marks it when unseen. The first call for a text
// returns false, later calls true while the entry lives.
func (c *Cache) IsDuplicate(ctx context.Context, text string) bool {
	if !c.Enabled() {
		return false
	}
	unlock := c.LockContent(text)
	defer unlock()

	key := ContentKey(text)
	if c.exists(ctx, key, ContentNamespace) {
		return true
	}
	c.set(ctx, key, c.ttls.Content)
	return false
}

// LockContent acquires the per-hash lock when serialization is enabled. The returned func
// releases it and is always safe to call.
func (c *Cache) LockContent(text string) func() {
	if !c.Enabled() || !c.serialize {
		return func() {}
	}
	return c.locks.lock(ContentKey(text))
}

func (c *Cache) exists(ctx context.Context, key, ns string) bool {
	ok, err := c.backend.Exists(ctx, key)
	if err != nil {
		metrics.ObserveDedupError("exists")
		c.warn("dedup lookup failed, treating as unseen", "namespace", ns, "error", err)
		return false
	}
	if ok {
		metrics.ObserveDedupHit(ns)
	}
	return ok
}

func (c *Cache) set(ctx context.Context, key string, ttl time.Duration) {
	if err := c.backend.Set(ctx, key, presentValue, ttl); err != nil {
		metrics.ObserveDedupError("set")
		c.warn("dedup mark failed", "key", key, "error", err)
	}
}

func (c *Cache) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refMutex{}}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.Unlock()
			k.mu.Lock()
			m.refs--
			if m.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}
