package decoder

import (
	"encoding/binary"
	"unicode/utf8"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/programs"
	"tada-pipeline/internal/schema"
	"tada-pipeline/internal/solana"
)

// Synthesized event names for activity inferred from instruction
// discriminators when the program emitted no event.
const (
	EvtInitializePool  = "EvtInitializePool"
	EvtMigrationDAMMV2 = "EvtMigrationDAMMV2"
)

// Bounds for the length-prefixed metadata strings in pool-initialization
// instruction payloads. A length outside these abandons the parse.
const (
	maxTokenNameLen   = 200
	maxTokenSymbolLen = 50
	maxTokenURILen    = 500
)

// NewMeteoraDBCDecoder decodes the dynamic bonding curve. Events arrive as
// Anchor event-CPIs; pool initialization and migration are additionally
// inferred from instruction discriminators when no event was decoded.
func NewMeteoraDBCDecoder() Decoder {
	d := &cpiDecoder{
		base: base{
			program: programs.Catalog[programs.MeteoraDBC],
			schema:  schema.MeteoraDBC(),
			roles: map[string][]string{
				"EvtSwap2": {
					"pool_authority", "config", "pool", "input_token_account",
					"output_token_account", "base_vault", "quote_vault",
					"base_mint", "quote_mint", "payer",
				},
			},
		},
		checkWrapperTag: true,
	}
	d.enrich = enrichCPISwap
	d.fallback = synthesizeDBCInstructionEvents
	return d
}

// synthesizeDBCInstructionEvents scans the transaction's instructions for
// pool-initialization and migration discriminators and synthesizes a single
// event when one is found.
func synthesizeDBCInstructionEvents(d *cpiDecoder, env *solana.TransactionEnvelope, src events.Source) []events.Event {
	for i := range env.Instructions {
		ix := &env.Instructions[i]
		if env.AccountKeyAt(int(ix.ProgramIDIndex)) != d.program.Address {
			continue
		}
		if len(ix.Data) < 8 {
			continue
		}
		var disc [8]byte
		copy(disc[:], ix.Data[:8])
		in, ok := d.schema.InstructionByDiscriminator(disc)
		if !ok {
			continue
		}

		switch in.Name {
		case schema.DBCInitPoolSPL, schema.DBCInitPoolToken2022:
			data := events.Data{
				"token_format": tokenFormatFor(in.Name),
			}
			bindInstructionAccounts(env, ix, in.Accounts, data)
			parseTokenMetadata(ix.Data[8:], data)
			inferTokenMints(env, data)
			return []events.Event{d.newEvent(env, src, EvtInitializePool, data, 0)}

		case schema.DBCMigrateDAMMV2:
			data := events.Data{}
			bindInstructionAccounts(env, ix, in.Accounts, data)
			inferTokenMints(env, data)
			return []events.Event{d.newEvent(env, src, EvtMigrationDAMMV2, data, 0)}
		}
	}
	return nil
}

func tokenFormatFor(instructionName string) string {
	if instructionName == schema.DBCInitPoolToken2022 {
		return "token2022"
	}
	return "spl"
}

// bindInstructionAccounts writes role-named accounts of one instruction into
// data. Out-of-range indices are omitted silently.
func bindInstructionAccounts(env *solana.TransactionEnvelope, ix *solana.CompiledInstruction, roles []string, data events.Data) {
	for i, role := range roles {
		if i >= len(ix.Accounts) {
			break
		}
		addr := env.AccountKeyAt(int(ix.Accounts[i]))
		if addr == "" {
			continue
		}
		data[role] = addr
	}
}

// parseTokenMetadata reads u32-length-prefixed name, symbol, and uri from a
// pool-initialization payload. Bad lengths or invalid UTF-8 abandon the parse
// without touching data.
func parseTokenMetadata(payload []byte, data events.Data) {
	name, rest, ok := takeBoundedString(payload, maxTokenNameLen)
	if !ok {
		return
	}
	symbol, rest, ok := takeBoundedString(rest, maxTokenSymbolLen)
	if !ok {
		return
	}
	uri, _, ok := takeBoundedString(rest, maxTokenURILen)
	if !ok {
		return
	}
	data["name"] = name
	data["symbol"] = symbol
	data["uri"] = uri
}

func takeBoundedString(buf []byte, max int) (string, []byte, bool) {
	if len(buf) < 4 {
		return "", nil, false
	}
	n := int(binary.LittleEndian.Uint32(buf))
	if n > max || 4+n > len(buf) {
		return "", nil, false
	}
	s := buf[4 : 4+n]
	if !utf8.Valid(s) {
		return "", nil, false
	}
	return string(s), buf[4+n:], true
}
