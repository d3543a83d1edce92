package decoder

import (
	"encoding/base64"
	"log"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/solana"
)

// logDecoder decodes programs that emit events by writing base64 records into
// "Program data:" log lines. The owning program of each data line is derived
// from the surrounding invoke/success markers.
type logDecoder struct {
	base
	enrich func(d *logDecoder, env *solana.TransactionEnvelope, name string, data events.Data)
}

func (d *logDecoder) Parse(env *solana.TransactionEnvelope) []events.Event {
	if !d.involved(env) {
		return nil
	}

	src := attributeSource(env)
	var out []events.Event
	var tracker currentProgramTracker

	for _, line := range env.LogMessages {
		payload, isData := tracker.observe(line)
		if !isData {
			continue
		}
		if tracker.current() != d.program.Address {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			log.Printf("[decoder] %s: bad base64 in program data line: %v", d.program.ID, err)
			continue
		}
		name, data, err := d.schema.DecodeEvent(raw)
		if err != nil {
			// Unknown discriminators are routine (programs log records we
			// have no schema entry for); skip the line.
			continue
		}

		if d.enrich != nil {
			d.enrich(d, env, name, data)
		}
		out = append(out, d.newEvent(env, src, name, data, len(out)))
	}
	return out
}

// enrichLogTrade is the shared enrichment for bonding-curve trade events:
// role accounts from the primary outer instruction plus token identity from
// post balances.
func enrichLogTrade(d *logDecoder, env *solana.TransactionEnvelope, name string, data events.Data) {
	flattenNested(data)
	d.applyRoles(env, name, data)
	inferTokenMints(env, data)
}
