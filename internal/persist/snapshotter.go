// Package persist keeps the in-memory cache layers warm across restarts
// by periodically snapshotting them into a durable store.
package persist

import (
	"context"
	"time"

	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

// layerSnapshotter is satisfied by the cache layers that can export and
// restore their entries.
type layerSnapshotter interface {
	Layer() domain.CacheLayer
	EntriesSnapshot() []*domain.CacheEntry
	RestoreEntries(entries []*domain.CacheEntry)
}

// sessionSnapshotter is satisfied by the diary layer.
type sessionSnapshotter interface {
	SessionsSnapshot() []*domain.Session
	RestoreSessions(sessions []*domain.Session)
}

// Snapshotter periodically persists the registered layers and restores
// them on startup.
type Snapshotter struct {
	store    domain.SnapshotStore
	layers   []layerSnapshotter
	sessions sessionSnapshotter
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewSnapshotter wires the snapshot loop. A nil store disables
// persistence entirely; Restore and Run become no-ops.
func NewSnapshotter(
	store domain.SnapshotStore,
	interval time.Duration,
	sessions sessionSnapshotter,
	layers ...layerSnapshotter,
) *Snapshotter {
	return &Snapshotter{
		store:    store,
		layers:   layers,
		sessions: sessions,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Restore loads any persisted state back into the layers. A failed layer
// load is logged and skipped so one bad snapshot cannot block startup.
func (s *Snapshotter) Restore(ctx context.Context) {
	if s.store == nil {
		return
	}
	logger := observability.FromContext(ctx)

	for _, layer := range s.layers {
		entries, err := s.store.LoadEntries(ctx, layer.Layer())
		if err != nil {
			logger.Warn("snapshot restore failed",
				observability.String("layer", string(layer.Layer())),
				observability.Error(err))
			continue
		}
		layer.RestoreEntries(entries)
		logger.Info("snapshot restored",
			observability.String("layer", string(layer.Layer())),
			observability.Int("entries", len(entries)))
	}

	if s.sessions != nil {
		sessions, err := s.store.LoadSessions(ctx)
		if err != nil {
			logger.Warn("session snapshot restore failed", observability.Error(err))
			return
		}
		s.sessions.RestoreSessions(sessions)
		logger.Info("session snapshot restored",
			observability.Int("sessions", len(sessions)))
	}
}

// Run persists snapshots on the configured interval until the context is
// cancelled or Close is called, then takes one final snapshot.
func (s *Snapshotter) Run(ctx context.Context) error {
	defer close(s.done)

	if s.store == nil {
		select {
		case <-ctx.Done():
		case <-s.stop:
		}
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.snapshot(ctx)
		case <-ctx.Done():
			s.snapshot(context.WithoutCancel(ctx))
			return nil
		case <-s.stop:
			s.snapshot(context.WithoutCancel(ctx))
			return nil
		}
	}
}

// Close stops the loop and waits for the final snapshot to finish.
func (s *Snapshotter) Close() error {
	close(s.stop)
	<-s.done
	return nil
}

func (s *Snapshotter) snapshot(ctx context.Context) {
	logger := observability.FromContext(ctx)

	for _, layer := range s.layers {
		if err := s.store.SaveEntries(ctx, layer.Layer(), layer.EntriesSnapshot()); err != nil {
			logger.Warn("snapshot save failed",
				observability.String("layer", string(layer.Layer())),
				observability.Error(err))
		}
	}

	if s.sessions != nil {
		if err := s.store.SaveSessions(ctx, s.sessions.SessionsSnapshot()); err != nil {
			logger.Warn("session snapshot save failed", observability.Error(err))
		}
	}
}
