package delivery

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/pipeline"
	"tada-pipeline/internal/realtime"
)

func testOutput() *events.OutputRecord {
	return &events.OutputRecord{
		ID:         "sig:prog:0",
		PipelineID: "pl_1",
		Program:    "pumpfun",
		Signature:  "sig",
		Timestamp:  1_700_000_000_000,
		Data: events.Data{
			"type":      "trade",
			"direction": "buy",
			"solAmount": float64(2),
			"token":     "MINTAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			"trader":    "WALLETAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		},
	}
}

// noSleepDispatcher records requested sleeps instead of waiting.
func noSleepDispatcher(slept *[]time.Duration, opts ...Option) *Dispatcher {
	d := NewDispatcher(opts...)
	d.sleep = func(_ context.Context, dur time.Duration) {
		*slept = append(*slept, dur)
	}
	return d
}

func TestSign(t *testing.T) {
	body := []byte(`{"hello":"world"}`)
	secret := "topsecret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if got := Sign(body, secret); got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestWebhook_HeadersAndSignature(t *testing.T) {
	var gotHeaders http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher()
	out := testOutput()
	dest := &pipeline.Destinations{Webhook: &pipeline.WebhookDestination{
		Enabled: true,
		URL:     srv.URL,
		Secret:  "s3cret",
		Headers: map[string]string{"X-Custom": "yes"},
	}}

	results := d.Deliver(context.Background(), out, dest)
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("delivery failed: %+v", results)
	}

	if gotHeaders.Get("Content-Type") != "application/json" {
		t.Error("missing content type")
	}
	if gotHeaders.Get("User-Agent") != "tada-pipeline/1.0" {
		t.Errorf("user agent = %s", gotHeaders.Get("User-Agent"))
	}
	if gotHeaders.Get("X-Tada-Pipeline-Id") != "pl_1" {
		t.Errorf("pipeline header = %s", gotHeaders.Get("X-Tada-Pipeline-Id"))
	}
	if gotHeaders.Get("X-Tada-Event-Id") != "sig:prog:0" {
		t.Errorf("event header = %s", gotHeaders.Get("X-Tada-Event-Id"))
	}
	if gotHeaders.Get("X-Tada-Timestamp") != "1700000000000" {
		t.Errorf("timestamp header = %s", gotHeaders.Get("X-Tada-Timestamp"))
	}
	if gotHeaders.Get("X-Custom") != "yes" {
		t.Error("caller header not merged")
	}
	if gotHeaders.Get("X-Tada-Signature") != Sign(gotBody, "s3cret") {
		t.Error("signature does not verify against the delivered body")
	}

	var payload map[string]any
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	meta, ok := payload["_meta"].(map[string]any)
	if !ok {
		t.Fatal("_meta block missing")
	}
	if meta["pipelineId"] != "pl_1" || meta["eventId"] != "sig:prog:0" {
		t.Errorf("_meta = %v", meta)
	}
	if payload["direction"] != "buy" {
		t.Errorf("data field missing: %v", payload)
	}
}

func TestWebhook_RetryThenSuccess(t *testing.T) {
	var mu sync.Mutex
	var statuses = []int{500, 500, 200}
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		status := statuses[attempts]
		attempts++
		mu.Unlock()
		w.WriteHeader(status)
	}))
	defer srv.Close()

	var slept []time.Duration
	d := noSleepDispatcher(&slept)
	dest := &pipeline.Destinations{Webhook: &pipeline.WebhookDestination{
		Enabled:  true,
		URL:      srv.URL,
		Attempts: 3,
		Backoff:  "linear",
	}}

	results := d.Deliver(context.Background(), testOutput(), dest)
	if !results[0].Success {
		t.Fatalf("expected eventual success: %+v", results)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(slept) != 2 || slept[0] != 1*time.Second || slept[1] != 2*time.Second {
		t.Errorf("linear backoff sleeps = %v, want [1s 2s]", slept)
	}
}

func TestWebhook_ExponentialBackoffBudget(t *testing.T) {
	attempts := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var slept []time.Duration
	d := noSleepDispatcher(&slept)
	dest := &pipeline.Destinations{Webhook: &pipeline.WebhookDestination{
		Enabled:  true,
		URL:      srv.URL,
		Attempts: 4,
		Backoff:  "exponential",
	}}

	results := d.Deliver(context.Background(), testOutput(), dest)
	if results[0].Success {
		t.Fatal("expected failure after budget exhausted")
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("sleeps = %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestWebhook_4xxAbortsImmediately(t *testing.T) {
	attempts := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	var slept []time.Duration
	d := noSleepDispatcher(&slept)
	dest := &pipeline.Destinations{Webhook: &pipeline.WebhookDestination{
		Enabled:  true,
		URL:      srv.URL,
		Attempts: 5,
	}}

	results := d.Deliver(context.Background(), testOutput(), dest)
	if results[0].Success {
		t.Fatal("expected failure on 4xx")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is not retryable)", attempts)
	}
	if len(slept) != 0 {
		t.Errorf("unexpected sleeps: %v", slept)
	}
}

func TestDeliver_FanOutIndependence(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer okSrv.Close()
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failSrv.Close()

	hub := realtime.NewHub()
	defer hub.Close()

	var slept []time.Duration
	d := noSleepDispatcher(&slept, WithHub(hub))
	dest := &pipeline.Destinations{
		Discord:  &pipeline.DiscordDestination{Enabled: true, WebhookURL: okSrv.URL},
		Webhook:  &pipeline.WebhookDestination{Enabled: true, URL: failSrv.URL},
		Realtime: &pipeline.RealtimeDestination{Enabled: true},
	}

	results := d.Deliver(context.Background(), testOutput(), dest)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	byTag := make(map[string]Result)
	for _, r := range results {
		byTag[r.Destination] = r
	}
	if !byTag[TagDiscord].Success {
		t.Errorf("discord should succeed: %+v", byTag[TagDiscord])
	}
	if byTag[TagWebhook].Success {
		t.Errorf("webhook should fail: %+v", byTag[TagWebhook])
	}
	if !byTag[TagRealtime].Success {
		t.Errorf("realtime should succeed: %+v", byTag[TagRealtime])
	}
}

func TestRealtime_WithoutHubFails(t *testing.T) {
	d := NewDispatcher()
	dest := &pipeline.Destinations{Realtime: &pipeline.RealtimeDestination{Enabled: true}}
	results := d.Deliver(context.Background(), testOutput(), dest)
	if len(results) != 1 || results[0].Success {
		t.Fatalf("expected failure without hub: %+v", results)
	}
}

func TestTelegram_Payload(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	old := telegramAPIBase
	telegramAPIBase = srv.URL
	defer func() { telegramAPIBase = old }()

	d := NewDispatcher()
	dest := &pipeline.Destinations{Telegram: &pipeline.TelegramDestination{
		Enabled:   true,
		BotToken:  "123:abc",
		ChatID:    "-100555",
		ParseMode: "Markdown",
	}}

	results := d.Deliver(context.Background(), testOutput(), dest)
	if !results[0].Success {
		t.Fatalf("telegram delivery failed: %+v", results)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path = %s", gotPath)
	}
	if gotBody["chat_id"] != "-100555" {
		t.Errorf("chat_id = %v", gotBody["chat_id"])
	}
	if gotBody["parse_mode"] != "Markdown" {
		t.Errorf("parse_mode = %v", gotBody["parse_mode"])
	}
	if gotBody["disable_web_page_preview"] != true {
		t.Errorf("disable_web_page_preview = %v", gotBody["disable_web_page_preview"])
	}
	if text, _ := gotBody["text"].(string); text == "" {
		t.Error("empty message text")
	}
}

func TestDiscord_EmbedPayload(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher()
	dest := &pipeline.Destinations{Discord: &pipeline.DiscordDestination{
		Enabled:    true,
		WebhookURL: srv.URL,
	}}

	results := d.Deliver(context.Background(), testOutput(), dest)
	if !results[0].Success {
		t.Fatalf("discord delivery failed: %+v", results)
	}
	embeds, ok := gotBody["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("embeds = %v", gotBody["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if embed["title"] != "🟢 Buy" {
		t.Errorf("title = %v", embed["title"])
	}
}
