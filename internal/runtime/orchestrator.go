package runtime

import (
	"context"
	"log"
	"sync"

	"tada-pipeline/internal/decoder"
	"tada-pipeline/internal/delivery"
	"tada-pipeline/internal/events"
	"tada-pipeline/internal/pipeline"
	"tada-pipeline/internal/solana"
)

// Orchestrator connects the decoder registry, the pipeline index, the filter
// and transform engines, and the delivery dispatcher into the per-transaction
// flow: decode, match, filter, transform, fan out.
type Orchestrator struct {
	registry   *decoder.Registry
	index      *pipeline.Index
	dispatcher *delivery.Dispatcher
	stats      *Stats

	envelopes chan *solana.TransactionEnvelope
	workers   int
}

// Config tunes the orchestrator's concurrency.
type Config struct {
	// Workers is the number of goroutines processing distinct transactions.
	Workers int
	// QueueSize bounds the envelope channel between the stream callback and
	// the workers.
	QueueSize int
}

func NewOrchestrator(registry *decoder.Registry, index *pipeline.Index, dispatcher *delivery.Dispatcher, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4096
	}
	return &Orchestrator{
		registry:   registry,
		index:      index,
		dispatcher: dispatcher,
		stats:      &Stats{},
		envelopes:  make(chan *solana.TransactionEnvelope, cfg.QueueSize),
		workers:    cfg.Workers,
	}
}

// Stats exposes the counters for the control plane.
func (o *Orchestrator) Stats() *Stats { return o.stats }

// Index exposes the pipeline index for the control plane.
func (o *Orchestrator) Index() *pipeline.Index { return o.index }

// Submit hands a streamed envelope to the workers. It is the callback the
// upstream subscription client invokes; when the queue is full the envelope
// is dropped and counted, because buffering is the upstream's concern.
func (o *Orchestrator) Submit(env *solana.TransactionEnvelope) {
	select {
	case o.envelopes <- env:
	default:
		o.stats.Errors.Add(1)
		log.Printf("[orchestrator] envelope queue full, dropping tx %s", solana.Base58(env.Signature))
	}
}

// Run starts the workers and blocks until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	log.Printf("[orchestrator] started with %d workers", o.workers)
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case env := <-o.envelopes:
					o.ProcessEnvelope(ctx, env)
				}
			}
		}()
	}
	wg.Wait()
	log.Println("[orchestrator] shut down")
}

// ProcessEnvelope runs one transaction through the full flow. Decoder panics
// are recovered inside the registry; per-pipeline failures are recovered
// here, so no event or pipeline can affect its peers.
func (o *Orchestrator) ProcessEnvelope(ctx context.Context, env *solana.TransactionEnvelope) {
	evs := o.registry.Parse(env)
	for i := range evs {
		o.processEvent(ctx, &evs[i])
	}
}

func (o *Orchestrator) processEvent(ctx context.Context, e *events.Event) {
	o.stats.EventsProcessed.Add(1)

	matched := o.index.PipelinesFor(e.Program)
	if len(matched) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, p := range matched {
		wg.Add(1)
		go func(p *pipeline.Pipeline) {
			defer wg.Done()
			o.runPipeline(ctx, p, e)
		}(p)
	}
	wg.Wait()
}

// runPipeline applies one pipeline to one event: filter, transform, deliver.
func (o *Orchestrator) runPipeline(ctx context.Context, p *pipeline.Pipeline, e *events.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			o.stats.Errors.Add(1)
			log.Printf("[orchestrator] pipeline %s panic recovered: %v", p.ID, rec)
		}
	}()

	if !pipeline.Evaluate(&p.Filter, e) {
		o.stats.EventsFiltered.Add(1)
		return
	}
	o.stats.EventsMatched.Add(1)

	out := pipeline.Apply(&p.Transform, e, p.ID)
	results := o.dispatcher.Deliver(ctx, &out, &p.Destinations)
	for _, res := range results {
		o.stats.countDelivery(res.Destination, res.Success)
		if !res.Success {
			log.Printf("[orchestrator] delivery failed: pipeline=%s dest=%s err=%s", p.ID, res.Destination, res.Error)
		}
	}
}

// TestFire runs one event through a single pipeline regardless of its
// status, returning the delivery results. Used by the control plane's
// test endpoint.
func (o *Orchestrator) TestFire(ctx context.Context, p *pipeline.Pipeline, e *events.Event) (matched bool, results []delivery.Result) {
	if !pipeline.Evaluate(&p.Filter, e) {
		return false, nil
	}
	out := pipeline.Apply(&p.Transform, e, p.ID)
	return true, o.dispatcher.Deliver(ctx, &out, &p.Destinations)
}
