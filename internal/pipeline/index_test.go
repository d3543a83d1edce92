package pipeline

import (
	"fmt"
	"testing"

	"tada-pipeline/internal/programs"
)

func testPipeline(id string, progs ...programs.ID) *Pipeline {
	return &Pipeline{
		ID:       id,
		Name:     "test " + id,
		APIKey:   "key",
		Programs: progs,
		Status:   StatusActive,
		Destinations: Destinations{
			Realtime: &RealtimeDestination{Enabled: true},
		},
	}
}

func TestIndex_UpsertAndLookup(t *testing.T) {
	ix := NewIndex()
	p := testPipeline("p1", programs.PumpFun, programs.PumpSwap)
	if err := ix.Upsert(p); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	for _, prog := range []programs.ID{programs.PumpFun, programs.PumpSwap} {
		got := ix.PipelinesFor(prog)
		if len(got) != 1 || got[0].ID != "p1" {
			t.Errorf("PipelinesFor(%s) = %v", prog, got)
		}
	}
	if got := ix.PipelinesFor(programs.MeteoraDBC); len(got) != 0 {
		t.Errorf("unexpected pipelines for unrelated program: %v", got)
	}
}

func TestIndex_ReupsertLeavesNoStaleEntries(t *testing.T) {
	ix := NewIndex()
	if err := ix.Upsert(testPipeline("p1", programs.PumpFun)); err != nil {
		t.Fatal(err)
	}

	// New version drops pumpfun, adds meteora-dbc.
	if err := ix.Upsert(testPipeline("p1", programs.MeteoraDBC)); err != nil {
		t.Fatal(err)
	}

	if got := ix.PipelinesFor(programs.PumpFun); len(got) != 0 {
		t.Errorf("stale entry for pumpfun: %v", got)
	}
	if got := ix.PipelinesFor(programs.MeteoraDBC); len(got) != 1 {
		t.Errorf("PipelinesFor(meteora-dbc) = %v", got)
	}
}

func TestIndex_Remove(t *testing.T) {
	ix := NewIndex()
	if err := ix.Upsert(testPipeline("p1", programs.PumpFun)); err != nil {
		t.Fatal(err)
	}
	ix.Remove("p1")

	if got := ix.PipelinesFor(programs.PumpFun); len(got) != 0 {
		t.Errorf("removed pipeline still indexed: %v", got)
	}
	if _, ok := ix.Get("p1"); ok {
		t.Error("removed pipeline still stored")
	}
	// Removing again is a no-op.
	ix.Remove("p1")
}

func TestIndex_PausedExcluded(t *testing.T) {
	ix := NewIndex()
	p := testPipeline("p1", programs.PumpFun)
	p.Status = StatusPaused
	if err := ix.Upsert(p); err != nil {
		t.Fatal(err)
	}

	if got := ix.PipelinesFor(programs.PumpFun); len(got) != 0 {
		t.Errorf("paused pipeline must not process: %v", got)
	}
	if _, ok := ix.Get("p1"); !ok {
		t.Error("paused pipeline should still be stored")
	}
}

func TestIndex_UpsertValidation(t *testing.T) {
	ix := NewIndex()

	noPrograms := testPipeline("p1")
	if err := ix.Upsert(noPrograms); err == nil {
		t.Error("expected rejection for empty programs")
	}

	noDest := testPipeline("p2", programs.PumpFun)
	noDest.Destinations = Destinations{}
	if err := ix.Upsert(noDest); err == nil {
		t.Error("expected rejection for no enabled destination")
	}

	disabledDest := testPipeline("p3", programs.PumpFun)
	disabledDest.Destinations = Destinations{Webhook: &WebhookDestination{Enabled: false, URL: "http://x"}}
	if err := ix.Upsert(disabledDest); err == nil {
		t.Error("expected rejection when all destinations disabled")
	}

	unknownProgram := testPipeline("p4", "no-such-program")
	if err := ix.Upsert(unknownProgram); err == nil {
		t.Error("expected rejection for unknown program")
	}
}

// The index must reflect exactly the current pipeline set after arbitrary
// interleavings of upsert and remove.
func TestIndex_Interleaving(t *testing.T) {
	ix := NewIndex()
	progs := []programs.ID{programs.PumpFun, programs.PumpSwap, programs.MeteoraDBC}

	for round := 0; round < 3; round++ {
		for i := 0; i < 10; i++ {
			id := fmt.Sprintf("p%d", i)
			p := testPipeline(id, progs[(i+round)%len(progs)])
			if i%2 == round%2 {
				p.Status = StatusPaused
			}
			if err := ix.Upsert(p); err != nil {
				t.Fatal(err)
			}
		}
		for i := 0; i < 10; i += 3 {
			ix.Remove(fmt.Sprintf("p%d", i))
		}

		// Reconstruct the expectation from the index's own store.
		want := make(map[programs.ID]map[string]bool)
		for _, p := range ix.List() {
			if p.Status != StatusActive {
				continue
			}
			for _, g := range p.Programs {
				if want[g] == nil {
					want[g] = make(map[string]bool)
				}
				want[g][p.ID] = true
			}
		}
		for _, g := range progs {
			got := ix.PipelinesFor(g)
			if len(got) != len(want[g]) {
				t.Fatalf("round %d: PipelinesFor(%s) has %d entries, want %d", round, g, len(got), len(want[g]))
			}
			for _, p := range got {
				if !want[g][p.ID] {
					t.Fatalf("round %d: unexpected pipeline %s for %s", round, p.ID, g)
				}
			}
		}
	}
}

func TestIndex_ConcurrentReads(t *testing.T) {
	ix := NewIndex()
	done := make(chan bool)

	go func() {
		for i := 0; i < 200; i++ {
			_ = ix.Upsert(testPipeline(fmt.Sprintf("p%d", i%10), programs.PumpFun))
			if i%5 == 0 {
				ix.Remove(fmt.Sprintf("p%d", i%10))
			}
		}
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		default:
			for _, p := range ix.PipelinesFor(programs.PumpFun) {
				if p.ID == "" {
					t.Fatal("observed half-indexed pipeline")
				}
			}
		}
	}
}
