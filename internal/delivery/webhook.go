package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/pipeline"
)

const (
	userAgent              = "tada-pipeline/1.0"
	defaultSignatureHeader = "X-Tada-Signature"
	defaultAttempts        = 3
)

// deliverWebhook POSTs the output as JSON with metadata headers, optional
// HMAC signing, and a bounded retry loop. 4xx responses are terminal; 5xx
// and transport errors retry with the configured backoff.
func (d *Dispatcher) deliverWebhook(ctx context.Context, out *events.OutputRecord, cfg *pipeline.WebhookDestination) error {
	body, err := webhookBody(out)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if lim := d.limiterFor(cfg.URL, cfg.RatePerSecond); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if d.svix != nil {
		if err := d.svix.Send(ctx, out, cfg); err == nil {
			return nil
		} else {
			log.Printf("[dispatcher] svix send failed, falling back to direct: %v", err)
		}
	}

	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := d.postWebhook(ctx, out, cfg, body)
		switch {
		case err == nil && status < 300:
			return nil
		case err == nil && status >= 400 && status < 500:
			return fmt.Errorf("POST %s returned %d", cfg.URL, status)
		case err == nil:
			lastErr = fmt.Errorf("POST %s returned %d", cfg.URL, status)
		default:
			lastErr = err
		}

		if attempt < attempts {
			d.sleep(ctx, backoffDelay(cfg.Backoff, attempt))
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", attempts, lastErr)
}

// webhookBody serializes the output data with the delivery metadata block.
func webhookBody(out *events.OutputRecord) ([]byte, error) {
	payload := make(map[string]any, len(out.Data)+1)
	for k, v := range out.Data {
		payload[k] = v
	}
	payload["_meta"] = map[string]any{
		"pipelineId": out.PipelineID,
		"eventId":    out.ID,
		"timestamp":  out.Timestamp,
	}
	return json.Marshal(payload)
}

func (d *Dispatcher) postWebhook(ctx context.Context, out *events.OutputRecord, cfg *pipeline.WebhookDestination, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Tada-Pipeline-Id", out.PipelineID)
	req.Header.Set("X-Tada-Event-Id", out.ID)
	req.Header.Set("X-Tada-Timestamp", strconv.FormatInt(out.Timestamp, 10))
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	if cfg.Secret != "" {
		header := cfg.SignatureHeader
		if header == "" {
			header = defaultSignatureHeader
		}
		req.Header.Set(header, Sign(body, cfg.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("POST %s: %w", cfg.URL, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Sign computes the payload signature: "sha256=" plus the lowercase hex
// HMAC-SHA256 of the body under the secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// backoffDelay returns the sleep before the next attempt after the k-th
// failure: linear k seconds, exponential 2^(k-1) seconds.
func backoffDelay(kind string, attempt int) time.Duration {
	if kind == "exponential" {
		return time.Duration(1<<(attempt-1)) * time.Second
	}
	return time.Duration(attempt) * time.Second
}
