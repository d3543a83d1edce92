package events

import (
	"fmt"
	"strconv"

	"tada-pipeline/internal/programs"
)

// SourceType attributes an event to the route it arrived through.
type SourceType string

const (
	SourceDirect  SourceType = "direct"
	SourceJupiter SourceType = "jupiter"
	SourceRaydium SourceType = "raydium"
	SourceUnknown SourceType = "unknown"
)

// Source records aggregator attribution for an event. OuterProgram is the
// aggregator address when Type is not direct.
type Source struct {
	Type         SourceType `json:"type"`
	OuterProgram string     `json:"outerProgram,omitempty"`
}

// Data is the decoded field payload of an event. Values are restricted to
// string, bool, float64, []any, and nested map[string]any; integers of 64
// bits and wider are carried as decimal strings (narrower ones as float64),
// byte blobs and addresses as
// base58 strings. Field names keep the snake_case of the program schema.
type Data = map[string]any

// Event is the canonical decoded record: one semantic action extracted from
// a transaction by one program's decoder.
type Event struct {
	ID             string      `json:"id"`
	Program        programs.ID `json:"program"`
	ProgramAddress string      `json:"programAddress"`
	Name           string      `json:"name"`
	Signature      string      `json:"signature"`
	Slot           uint64      `json:"slot"`
	BlockTime      int64       `json:"blockTime"`
	Signer         string      `json:"signer"`
	Source         Source      `json:"source"`
	Data           Data        `json:"data"`
}

// EventID builds the deterministic event id: signature, program address, and
// the event's sequence within the decoder's emission order.
func EventID(signature, programAddress string, seq int) string {
	return fmt.Sprintf("%s:%s:%d", signature, programAddress, seq)
}

// OutputRecord is the per-pipeline result of filter-then-transform, the unit
// delivery destinations consume. Timestamp is the event blockTime in
// milliseconds.
type OutputRecord struct {
	ID         string      `json:"id"`
	PipelineID string      `json:"pipelineId"`
	Program    programs.ID `json:"program"`
	Signature  string      `json:"signature"`
	Timestamp  int64       `json:"timestamp"`
	Data       Data        `json:"data"`
}

// Lookup resolves a dotted path against the event. The root namespace is the
// event itself (id, name, program, signer, signature, slot, blockTime, plus
// the data sub-tree); bare field names fall through to data so filters can
// write either "data.sol_amount" or "sol_amount".
func (e *Event) Lookup(path string) (any, bool) {
	switch path {
	case "id":
		return e.ID, true
	case "program":
		return string(e.Program), true
	case "programAddress":
		return e.ProgramAddress, true
	case "name":
		return e.Name, true
	case "signature":
		return e.Signature, true
	case "slot":
		return float64(e.Slot), true
	case "blockTime":
		return float64(e.BlockTime), true
	case "signer":
		return e.Signer, true
	case "source.type":
		return string(e.Source.Type), true
	case "source.outerProgram":
		return e.Source.OuterProgram, true
	}

	rest := path
	if len(rest) > 5 && rest[:5] == "data." {
		rest = rest[5:]
	}
	return lookupPath(e.Data, rest)
}

// lookupPath walks a dotted path through nested maps.
func lookupPath(m map[string]any, path string) (any, bool) {
	cur := any(m)
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			key := path[start:i]
			node, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = node[key]
			if !ok {
				return nil, false
			}
			start = i + 1
		}
	}
	return cur, true
}

// AsNumber coerces an event value to float64: numbers directly, strings that
// parse as numbers, bools as 0/1. The second return is false when the value
// has no numeric reading.
func AsNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsString renders an event value as a string the way the filter engine
// compares it: strings unchanged, everything else via fmt.
func AsString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		// Integral floats print without a trailing ".0" so "5" == 5.
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
