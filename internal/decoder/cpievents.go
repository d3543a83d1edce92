package decoder

import (
	"tada-pipeline/internal/events"
	"tada-pipeline/internal/solana"
)

// anchorEventCPITag is the discriminator of the Anchor self-CPI wrapper
// instruction that carries an event payload in its data.
var anchorEventCPITag = [8]byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}

// cpiDecoder decodes programs that emit events as inner instructions
// self-invoking the program with the event bytes as instruction data.
type cpiDecoder struct {
	base

	// checkWrapperTag enables the explicit Anchor wrapper-discriminator check
	// before the blind 8-byte strip retry.
	checkWrapperTag bool

	enrich   func(d *cpiDecoder, env *solana.TransactionEnvelope, name string, data events.Data)
	fallback func(d *cpiDecoder, env *solana.TransactionEnvelope, src events.Source) []events.Event
}

func (d *cpiDecoder) Parse(env *solana.TransactionEnvelope) []events.Event {
	if !d.involved(env) {
		return nil
	}

	src := attributeSource(env)
	var out []events.Event

	for _, group := range env.InnerInstructions {
		for _, ix := range group.Instructions {
			// Self-invocations can arrive under a different account index, so
			// the declared program index is not gated on; the discriminator
			// match is authoritative.
			name, data, ok := d.decodeEventData(ix.Data)
			if !ok {
				continue
			}
			if d.enrich != nil {
				d.enrich(d, env, name, data)
			}
			out = append(out, d.newEvent(env, src, name, data, len(out)))
		}
	}

	if len(out) == 0 && d.fallback != nil {
		out = d.fallback(d, env, src)
	}
	return out
}

// decodeEventData tries the raw bytes first, then the wrapper-stripped form.
func (d *cpiDecoder) decodeEventData(data []byte) (string, events.Data, bool) {
	if len(data) < 16 {
		return "", nil, false
	}

	if d.checkWrapperTag {
		var disc [8]byte
		copy(disc[:], data[:8])
		if disc == anchorEventCPITag {
			name, fields, err := d.schema.DecodeEvent(data[8:])
			if err != nil {
				return "", nil, false
			}
			return name, fields, true
		}
	}

	if name, fields, err := d.schema.DecodeEvent(data); err == nil {
		return name, fields, true
	}
	if name, fields, err := d.schema.DecodeEvent(data[8:]); err == nil {
		return name, fields, true
	}
	return "", nil, false
}

// enrichCPISwap is the shared enrichment for AMM swap events.
func enrichCPISwap(d *cpiDecoder, env *solana.TransactionEnvelope, name string, data events.Data) {
	flattenNested(data)
	d.applyRoles(env, name, data)
	inferTokenMints(env, data)
}
