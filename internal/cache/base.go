// Package cache implements the five specialized cache layers behind the
// shared layer contract: predictive, semantic, vector, global, and the
// vector diary.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

// baseCache owns the key→entry store, TTL bookkeeping, shared counters,
// and the background expiry sweep. Every concrete layer embeds it and
// layers its own derived state on top, guarded by the same mutex.
type baseCache struct {
	layer domain.CacheLayer

	mu      sync.RWMutex
	entries map[string]*domain.CacheEntry

	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
	ops    atomic.Int64

	defaultTTL      time.Duration
	cleanupInterval time.Duration

	events domain.EventPublisher

	initialized atomic.Bool
	stop        chan struct{}
	wg          sync.WaitGroup
}

func newBaseCache(
	layer domain.CacheLayer,
	defaultTTL, cleanupInterval time.Duration,
	events domain.EventPublisher,
) *baseCache {
	return &baseCache{
		layer:           layer,
		entries:         make(map[string]*domain.CacheEntry),
		defaultTTL:      defaultTTL,
		cleanupInterval: cleanupInterval,
		events:          events,
		stop:            make(chan struct{}),
	}
}

// Layer returns the identifier this cache registers under.
func (b *baseCache) Layer() domain.CacheLayer {
	return b.layer
}

// Initialize allocates the store and starts the expiry sweep. Callers must
// not re-initialize a running instance; a second call duplicates sweeps.
func (b *baseCache) Initialize(_ context.Context) bool {
	b.mu.Lock()
	if b.entries == nil {
		b.entries = make(map[string]*domain.CacheEntry)
	}
	b.mu.Unlock()

	b.initialized.Store(true)

	if b.cleanupInterval > 0 {
		b.wg.Add(1)
		go b.sweepLoop()
	}

	return true
}

// sweepLoop periodically removes expired entries. A fault during one tick
// is logged and the loop keeps running on its next tick.
func (b *baseCache) sweepLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.runSweepTick()
		}
	}
}

func (b *baseCache) runSweepTick() {
	ctx := observability.WithLayer(context.Background(), string(b.layer))
	defer func() {
		if r := recover(); r != nil {
			observability.FromContext(ctx).Error("expiry sweep tick failed",
				observability.Any("panic", r))
		}
	}()

	removed := b.CleanupExpired(ctx)
	if removed > 0 {
		observability.FromContext(ctx).Info("expiry sweep removed entries",
			observability.Int("removed", removed))
	}
}

// Get returns HIT with the entry if present and fresh, EXPIRED if past TTL
// (removing the entry as a side effect), MISS if absent, ERROR on fault.
func (b *baseCache) Get(ctx context.Context, key string) (result *domain.CacheResult) {
	defer b.recoverToResult(ctx, "get", &result)

	b.ops.Add(1)

	if key == "" {
		b.errs.Add(1)
		return b.errorResult("key cannot be empty")
	}

	if !b.initialized.Load() {
		b.errs.Add(1)
		return b.errorResult("cache not initialized")
	}

	entry, status := b.fetch(key)
	switch status {
	case domain.StatusHit:
		b.hits.Add(1)
		b.publish(ctx, observability.EventCacheHit, map[string]interface{}{"key": key})
		return &domain.CacheResult{Status: domain.StatusHit, Entry: entry, Layer: b.layer}
	case domain.StatusExpired:
		b.misses.Add(1)
		b.publish(ctx, observability.EventCacheExpired, map[string]interface{}{"key": key})
		return &domain.CacheResult{Status: domain.StatusExpired, Layer: b.layer}
	default:
		b.misses.Add(1)
		b.publish(ctx, observability.EventCacheMiss, map[string]interface{}{"key": key})
		return &domain.CacheResult{Status: domain.StatusMiss, Layer: b.layer}
	}
}

// fetch looks up a key, applying access bookkeeping on a hit and removing
// the entry on expiry, without touching the shared counters. It returns a
// snapshot so callers never observe later mutations.
func (b *baseCache) fetch(key string) (*domain.CacheEntry, domain.ResultStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, domain.StatusMiss
	}

	now := time.Now()
	if entry.Expired(now) {
		delete(b.entries, key)
		return nil, domain.StatusExpired
	}

	entry.AccessCount++
	entry.LastAccessedAt = now
	snapshot := *entry
	return &snapshot, domain.StatusHit
}

// Set upserts an entry. Concrete layers wrap this with their side effects.
func (b *baseCache) Set(ctx context.Context, key, value string, ttl time.Duration, metadata map[string]string) bool {
	_, err := b.store(ctx, key, value, ttl, metadata)
	return err == nil
}

// store validates and writes an entry, returning a snapshot of what was
// written. Faults are logged and counted, never propagated past the caller.
func (b *baseCache) store(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
	metadata map[string]string,
) (*domain.CacheEntry, error) {
	b.ops.Add(1)

	if key == "" {
		b.errs.Add(1)
		return nil, fmt.Errorf("%w: key cannot be empty", domain.ErrValidation)
	}

	if !b.initialized.Load() {
		b.errs.Add(1)
		return nil, fmt.Errorf("%w: cache not initialized", domain.ErrValidation)
	}

	now := time.Now()
	entry := &domain.CacheEntry{
		Key:            key,
		Value:          value,
		Layer:          b.layer,
		CreatedAt:      now,
		Metadata:       metadata,
		LastAccessedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}

	b.mu.Lock()
	b.entries[key] = entry
	snapshot := *entry
	b.mu.Unlock()

	return &snapshot, nil
}

// Delete removes an entry, reporting whether it existed. Deleting an
// absent key is a no-op; repeated deletes stay idempotent.
func (b *baseCache) Delete(_ context.Context, key string) bool {
	b.ops.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.entries[key]
	delete(b.entries, key)
	return ok
}

// Exists reports whether a fresh entry is present without touching its
// access bookkeeping.
func (b *baseCache) Exists(_ context.Context, key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[key]
	return ok && !entry.Expired(time.Now())
}

// Clear drops every entry. Concrete layers wrap this to drop derived state.
func (b *baseCache) Clear(_ context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[string]*domain.CacheEntry)
	return true
}

// CleanupExpired removes every expired entry and returns the count.
func (b *baseCache) CleanupExpired(_ context.Context) int {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for key, entry := range b.entries {
		if entry.Expired(now) {
			delete(b.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns the shared counters. Concrete layers extend the map with
// their own fields.
func (b *baseCache) Stats(_ context.Context) map[string]any {
	hits := b.hits.Load()
	misses := b.misses.Load()
	errs := b.errs.Load()

	b.mu.RLock()
	items := len(b.entries)
	b.mu.RUnlock()

	return map[string]any{
		"cacheHits":        hits,
		"cacheMisses":      misses,
		"cacheErrors":      errs,
		"totalOperations":  b.ops.Load(),
		"totalCachedItems": items,
		"hitRate":          ratio(hits, hits+misses),
	}
}

// Close stops the background maintainers and waits for them to drain.
func (b *baseCache) Close() error {
	if b.initialized.CompareAndSwap(true, false) {
		close(b.stop)
		b.wg.Wait()
	}
	return nil
}

// EntriesSnapshot copies every non-expired entry, for snapshot persistence.
func (b *baseCache) EntriesSnapshot() []*domain.CacheEntry {
	now := time.Now()

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*domain.CacheEntry, 0, len(b.entries))
	for _, entry := range b.entries {
		if entry.Expired(now) {
			continue
		}
		snapshot := *entry
		out = append(out, &snapshot)
	}
	return out
}

// RestoreEntries loads persisted entries, skipping any that expired while
// the process was down.
func (b *baseCache) RestoreEntries(entries []*domain.CacheEntry) {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, entry := range entries {
		if entry == nil || entry.Key == "" || entry.Expired(now) {
			continue
		}
		snapshot := *entry
		snapshot.Layer = b.layer
		b.entries[snapshot.Key] = &snapshot
	}
}

func (b *baseCache) errorResult(message string) *domain.CacheResult {
	return &domain.CacheResult{
		Status:       domain.StatusError,
		ErrorMessage: message,
		Layer:        b.layer,
	}
}

// recoverToResult converts a panic inside an operation into an ERROR
// result so no fault escapes the layer boundary.
func (b *baseCache) recoverToResult(ctx context.Context, operation string, result **domain.CacheResult) {
	if r := recover(); r != nil {
		b.errs.Add(1)
		observability.FromContext(ctx).Error("cache operation fault",
			observability.String("op", operation),
			observability.Any("panic", r))
		*result = b.errorResult(fmt.Sprintf("internal fault in %s: %v", operation, r))
	}
}

func (b *baseCache) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if b.events == nil {
		return
	}
	data["layer"] = string(b.layer)
	b.events.Publish(ctx, eventType, data)
}

func ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
