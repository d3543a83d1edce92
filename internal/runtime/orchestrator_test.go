package runtime

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"tada-pipeline/internal/decoder"
	"tada-pipeline/internal/delivery"
	"tada-pipeline/internal/pipeline"
	"tada-pipeline/internal/programs"
	"tada-pipeline/internal/schema"
	"tada-pipeline/internal/solana"
)

func tradePayload(solAmount uint64, isBuy bool) []byte {
	disc := schema.EventDiscriminator("TradeEvent")
	payload := append([]byte{}, disc[:]...)
	key := make([]byte, 32)
	payload = append(payload, key...) // mint
	payload = binary.LittleEndian.AppendUint64(payload, solAmount)
	payload = binary.LittleEndian.AppendUint64(payload, 5_000_000)
	if isBuy {
		payload = append(payload, 1)
	} else {
		payload = append(payload, 0)
	}
	payload = append(payload, key...) // user
	payload = binary.LittleEndian.AppendUint64(payload, 1_700_000_000)
	payload = binary.LittleEndian.AppendUint64(payload, 31_000_000_000)
	payload = binary.LittleEndian.AppendUint64(payload, 1_060_000_000_000_000)
	payload = binary.LittleEndian.AppendUint64(payload, 1_000_000_000)
	payload = binary.LittleEndian.AppendUint64(payload, 793_100_000_000_000)
	return payload
}

func tradeEnvelope(sigByte byte, solAmount uint64, isBuy bool) *solana.TransactionEnvelope {
	addr := programs.Address(programs.PumpFun)
	sig := make([]byte, 64)
	sig[0] = sigByte
	payer := make([]byte, 32)
	payer[0] = 0x7F
	return &solana.TransactionEnvelope{
		Signature:   sig,
		Slot:        1,
		BlockTime:   1_700_000_000,
		AccountKeys: [][]byte{payer, solana.MustDecodeBase58(addr)},
		LogMessages: []string{
			fmt.Sprintf("Program %s invoke [1]", addr),
			"Program data: " + base64.StdEncoding.EncodeToString(tradePayload(solAmount, isBuy)),
			fmt.Sprintf("Program %s success", addr),
		},
	}
}

func newTestOrchestrator(t *testing.T, dest pipeline.Destinations, f pipeline.Filter) *Orchestrator {
	t.Helper()
	registry := decoder.NewRegistry()
	decoder.RegisterAll(registry)

	index := pipeline.NewIndex()
	p := &pipeline.Pipeline{
		ID:           "pl_test",
		Name:         "test",
		APIKey:       "k",
		Programs:     []programs.ID{programs.PumpFun},
		Filter:       f,
		Destinations: dest,
		Status:       pipeline.StatusActive,
	}
	if err := index.Upsert(p); err != nil {
		t.Fatal(err)
	}

	return NewOrchestrator(registry, index, delivery.NewDispatcher(), Config{Workers: 1})
}

func TestProcessEnvelope_EndToEnd(t *testing.T) {
	var mu sync.Mutex
	var received []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		received = append(received, r.Header.Get("X-Tada-Event-Id"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t,
		pipeline.Destinations{Webhook: &pipeline.WebhookDestination{Enabled: true, URL: srv.URL}},
		pipeline.Filter{},
	)

	o.ProcessEnvelope(context.Background(), tradeEnvelope(1, 2_000_000_000, true))

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 webhook delivery, got %d", len(received))
	}
	snap := o.Stats().Snapshot()
	if snap.EventsProcessed != 1 || snap.EventsMatched != 1 || snap.EventsFiltered != 0 {
		t.Errorf("stats = %+v", snap)
	}
	if snap.Destinations["webhook"].Success != 1 {
		t.Errorf("webhook success count = %d", snap.Destinations["webhook"].Success)
	}
}

func TestProcessEnvelope_FilteredCounted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("filtered event must not be delivered")
	}))
	defer srv.Close()

	isBuy := false
	o := newTestOrchestrator(t,
		pipeline.Destinations{Webhook: &pipeline.WebhookDestination{Enabled: true, URL: srv.URL}},
		pipeline.Filter{IsBuy: &isBuy},
	)

	o.ProcessEnvelope(context.Background(), tradeEnvelope(2, 1_000_000_000, true))

	snap := o.Stats().Snapshot()
	if snap.EventsProcessed != 1 || snap.EventsFiltered != 1 || snap.EventsMatched != 0 {
		t.Errorf("stats = %+v", snap)
	}
}

func TestProcessEnvelope_UninvolvedProgram(t *testing.T) {
	o := newTestOrchestrator(t,
		pipeline.Destinations{Realtime: &pipeline.RealtimeDestination{Enabled: true}},
		pipeline.Filter{},
	)

	env := tradeEnvelope(3, 1, true)
	env.AccountKeys = env.AccountKeys[:1] // program address removed

	o.ProcessEnvelope(context.Background(), env)
	if snap := o.Stats().Snapshot(); snap.EventsProcessed != 0 {
		t.Errorf("expected no events, got %+v", snap)
	}
}

func TestTestFire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t,
		pipeline.Destinations{Webhook: &pipeline.WebhookDestination{Enabled: true, URL: srv.URL}},
		pipeline.Filter{},
	)
	p, _ := o.Index().Get("pl_test")

	evs := o.registry.Parse(tradeEnvelope(4, 1_000_000_000, true))
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}

	matched, results := o.TestFire(context.Background(), p, &evs[0])
	if !matched {
		t.Fatal("expected match")
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("results = %+v", results)
	}
}
