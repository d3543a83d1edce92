package decoder

import (
	"log"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/programs"
	"tada-pipeline/internal/solana"
)

// Decoder turns a transaction envelope into zero or more events for one
// program. Implementations are stateless after construction and safe for
// concurrent Parse calls.
type Decoder interface {
	Program() programs.ID
	ProgramAddress() string

	// Parse returns the events this program emitted in the envelope, in
	// emission order. A transaction that does not involve the program
	// returns an empty slice.
	Parse(env *solana.TransactionEnvelope) []events.Event
}

// Registry holds decoders in registration order and dispatches envelopes to
// every decoder whose program appears in the transaction.
type Registry struct {
	order  []Decoder
	byAddr map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{byAddr: make(map[string]Decoder)}
}

// Register adds a decoder. Later registrations for the same address replace
// the earlier one in the address index but keep dispatch order.
func (r *Registry) Register(d Decoder) {
	r.order = append(r.order, d)
	r.byAddr[d.ProgramAddress()] = d
}

// Get returns the decoder registered for an address, or nil.
func (r *Registry) Get(address string) Decoder {
	return r.byAddr[address]
}

// Decoders returns the registered decoders in registration order.
func (r *Registry) Decoders() []Decoder {
	return r.order
}

// Parse runs every registered decoder over the envelope and concatenates
// results in registration order. A decoder that panics or misbehaves is
// isolated: its output for this envelope is empty, the others are unaffected.
func (r *Registry) Parse(env *solana.TransactionEnvelope) []events.Event {
	var out []events.Event
	for _, d := range r.order {
		out = append(out, safeParse(d, env)...)
	}
	return out
}

func safeParse(d Decoder, env *solana.TransactionEnvelope) (evs []events.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[decoder] %s panic recovered: %v", d.Program(), rec)
			evs = nil
		}
	}()
	return d.Parse(env)
}

// RegisterAll registers the decoders for every catalog program.
func RegisterAll(r *Registry) {
	r.Register(NewPumpFunDecoder())
	r.Register(NewRaydiumLaunchpadDecoder())
	r.Register(NewPumpSwapDecoder())
	r.Register(NewMeteoraDBCDecoder())
	r.Register(NewMeteoraDAMMV2Decoder())
	r.Register(NewRaydiumCPMMDecoder())
}
