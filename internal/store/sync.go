package store

import (
	"context"
	"log"
	"time"

	"tada-pipeline/internal/pipeline"
)

// Syncer mirrors stored pipeline definitions into the in-memory index: a
// full load at startup, then periodic re-syncs so control-plane writes from
// other instances are picked up.
type Syncer struct {
	store    *Store
	index    *pipeline.Index
	interval time.Duration
}

func NewSyncer(store *Store, index *pipeline.Index, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Syncer{store: store, index: index, interval: interval}
}

// Run loads once immediately, then re-syncs on the interval until cancelled.
func (s *Syncer) Run(ctx context.Context) {
	if err := s.SyncOnce(ctx); err != nil {
		log.Printf("[sync] initial load failed: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				log.Printf("[sync] refresh failed: %v", err)
			}
		}
	}
}

// SyncOnce reconciles the index with the store: upserts every stored
// pipeline and removes index entries whose row is gone.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	stored, err := s.store.ListPipelines(ctx)
	if err != nil {
		return err
	}

	stale := s.index.IDs()
	applied := 0
	for _, p := range stored {
		delete(stale, p.ID)
		if err := s.index.Upsert(p); err != nil {
			// Definitions the index rejects stay in the store for the owner
			// to fix; they just never process events.
			log.Printf("[sync] skipping pipeline %s: %v", p.ID, err)
			continue
		}
		applied++
	}
	for id := range stale {
		s.index.Remove(id)
	}

	log.Printf("[sync] %d pipelines indexed, %d removed", applied, len(stale))
	return nil
}
