package pipeline

import (
	"fmt"
	"sync"

	"tada-pipeline/internal/programs"
)

// Index owns the current pipeline set and the program-id -> pipelines reverse
// mapping the hot path reads. Reads dominate; writes arrive from the control
// plane and re-index synchronously under the write lock, so readers always
// observe either the old or the new version of a pipeline, never a
// half-indexed state.
type Index struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
	byProgram map[programs.ID]map[string]*Pipeline
}

func NewIndex() *Index {
	return &Index{
		pipelines: make(map[string]*Pipeline),
		byProgram: make(map[programs.ID]map[string]*Pipeline),
	}
}

// Upsert validates and stores a pipeline, replacing any previous version and
// its index entries.
func (ix *Index) Upsert(p *Pipeline) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("upsert rejected: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if prev, ok := ix.pipelines[p.ID]; ok {
		ix.unindexLocked(prev)
	}
	ix.pipelines[p.ID] = p
	for _, prog := range p.Programs {
		bucket := ix.byProgram[prog]
		if bucket == nil {
			bucket = make(map[string]*Pipeline)
			ix.byProgram[prog] = bucket
		}
		bucket[p.ID] = p
	}
	return nil
}

// Remove unindexes and drops a pipeline. Removing an unknown id is a no-op.
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	p, ok := ix.pipelines[id]
	if !ok {
		return
	}
	ix.unindexLocked(p)
	delete(ix.pipelines, id)
}

func (ix *Index) unindexLocked(p *Pipeline) {
	for _, prog := range p.Programs {
		bucket := ix.byProgram[prog]
		if bucket == nil {
			continue
		}
		delete(bucket, p.ID)
		if len(bucket) == 0 {
			delete(ix.byProgram, prog)
		}
	}
}

// Get returns the current version of a pipeline.
func (ix *Index) Get(id string) (*Pipeline, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.pipelines[id]
	return p, ok
}

// List returns all pipelines, in no particular order.
func (ix *Index) List() []*Pipeline {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*Pipeline, 0, len(ix.pipelines))
	for _, p := range ix.pipelines {
		out = append(out, p)
	}
	return out
}

// ListByAPIKey returns the pipelines owned by one API key.
func (ix *Index) ListByAPIKey(apiKey string) []*Pipeline {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*Pipeline
	for _, p := range ix.pipelines {
		if p.APIKey == apiKey {
			out = append(out, p)
		}
	}
	return out
}

// PipelinesFor returns the active pipelines registered for a program. The
// returned slice is a private snapshot; callers may iterate without holding
// any lock.
func (ix *Index) PipelinesFor(prog programs.ID) []*Pipeline {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	bucket := ix.byProgram[prog]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*Pipeline, 0, len(bucket))
	for _, p := range bucket {
		if p.Status == StatusActive {
			out = append(out, p)
		}
	}
	return out
}

// IDs returns the ids of all stored pipelines.
func (ix *Index) IDs() map[string]bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids := make(map[string]bool, len(ix.pipelines))
	for id := range ix.pipelines {
		ids[id] = true
	}
	return ids
}
