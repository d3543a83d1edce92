package delivery

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/pipeline"
	"tada-pipeline/internal/realtime"
)

// Destination tags used in delivery results and stats.
const (
	TagDiscord  = "discord"
	TagTelegram = "telegram"
	TagWebhook  = "webhook"
	TagRealtime = "realtime"
)

// Result is the per-destination outcome of one delivery.
type Result struct {
	Destination string `json:"destination"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// Dispatcher fans an output record out to every enabled destination in
// parallel. Per-destination failures never block the others.
type Dispatcher struct {
	client *http.Client
	hub    *realtime.Hub
	svix   *SvixBackend

	// sleep is overridable in tests; the default honours ctx cancellation.
	sleep func(ctx context.Context, d time.Duration)

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHub attaches the realtime bus. Without it, realtime destinations
// report failure.
func WithHub(hub *realtime.Hub) Option {
	return func(d *Dispatcher) { d.hub = hub }
}

// WithSvix routes generic webhooks through a hosted delivery backend,
// falling back to direct POSTs when it errors.
func WithSvix(s *SvixBackend) Option {
	return func(d *Dispatcher) { d.svix = s }
}

// WithHTTPClient overrides the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		sleep:    sleepCtx,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Deliver sends the output to all enabled destinations concurrently and
// returns one result per attempted destination.
func (d *Dispatcher) Deliver(ctx context.Context, out *events.OutputRecord, dest *pipeline.Destinations) []Result {
	type slot struct {
		tag string
		fn  func() error
	}
	var slots []slot

	if dest.Discord != nil && dest.Discord.Enabled {
		cfg := dest.Discord
		slots = append(slots, slot{TagDiscord, func() error { return d.deliverDiscord(ctx, out, cfg) }})
	}
	if dest.Telegram != nil && dest.Telegram.Enabled {
		cfg := dest.Telegram
		slots = append(slots, slot{TagTelegram, func() error { return d.deliverTelegram(ctx, out, cfg) }})
	}
	if dest.Webhook != nil && dest.Webhook.Enabled {
		cfg := dest.Webhook
		slots = append(slots, slot{TagWebhook, func() error { return d.deliverWebhook(ctx, out, cfg) }})
	}
	if dest.Realtime != nil && dest.Realtime.Enabled {
		slots = append(slots, slot{TagRealtime, func() error { return d.deliverRealtime(out) }})
	}

	results := make([]Result, len(slots))
	var wg sync.WaitGroup
	for i, s := range slots {
		wg.Add(1)
		go func(i int, s slot) {
			defer wg.Done()
			res := Result{Destination: s.tag, Success: true}
			if err := s.fn(); err != nil {
				res.Success = false
				res.Error = err.Error()
			}
			results[i] = res
		}(i, s)
	}
	wg.Wait()
	return results
}

// limiterFor returns the shared limiter for a destination URL, creating it on
// first use. A zero rate means unlimited and returns nil.
func (d *Dispatcher) limiterFor(url string, perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	lim, ok := d.limiters[url]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(perSecond), 1)
		d.limiters[url] = lim
	}
	return lim
}
