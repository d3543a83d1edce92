package pipeline

import (
	"log"
	"math"
	"time"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/schema"
)

// Apply produces the output record for a matched event. The base envelope
// (id, pipeline, program, timestamp, signature) is always present; only data
// varies with the transform.
func Apply(t *Transform, e *events.Event, pipelineID string) events.OutputRecord {
	out := events.OutputRecord{
		ID:         e.ID,
		PipelineID: pipelineID,
		Program:    e.Program,
		Signature:  e.Signature,
		Timestamp:  e.BlockTime * 1000,
	}

	switch {
	case t != nil && t.Code != "":
		log.Printf("[transform] pipeline %s: code transform is not supported, passing through", pipelineID)
		out.Data = rawData(e)
	case t != nil && len(t.Fields) > 0:
		out.Data = applyFields(t.Fields, e)
	case t != nil && t.Template != "" && t.Template != TemplateRaw:
		out.Data = applyTemplate(t.Template, e)
	default:
		out.Data = rawData(e)
	}
	return out
}

// rawData is the default shape: the event's own data plus its identity
// fields.
func rawData(e *events.Event) events.Data {
	data := make(events.Data, len(e.Data)+3)
	for k, v := range e.Data {
		data[k] = v
	}
	data["name"] = e.Name
	data["program"] = string(e.Program)
	data["signer"] = e.Signer
	return data
}

func applyTemplate(name string, e *events.Event) events.Data {
	switch name {
	case TemplateTrade:
		return tradeTemplate(e)
	case TemplateTransfer:
		return transferTemplate(e)
	case TemplateMigration:
		return migrationTemplate(e)
	default:
		return rawData(e)
	}
}

func tradeTemplate(e *events.Event) events.Data {
	data := events.Data{
		"type":      "trade",
		"eventName": e.Name,
		"trader":    e.Signer,
	}

	if isBuy, ok := deriveDirection(e); ok {
		if isBuy {
			data["direction"] = "buy"
		} else {
			data["direction"] = "sell"
		}
	} else {
		data["direction"] = "swap"
	}

	data["token"] = firstPresent(e.Data, "mint", "token_mint", "base_mint", "input_mint", "pool")

	if v, ok := probeNumber(e.Data, solAmountFields); ok {
		data["solAmount"] = v / lamportsPerSOL
	}
	if v, ok := probeNumber(e.Data, tokenAmountFields); ok {
		data["tokenAmount"] = v
	}

	swapResult, _ := e.Data["swap_result"].(map[string]any)

	if v := firstPresent(e.Data, "input_amount", "amount_in", "actual_input_amount", "actual_amount_in"); v != nil {
		data["inputAmount"] = v
	} else if swapResult != nil {
		if v, ok := swapResult["actual_input_amount"]; ok {
			data["inputAmount"] = v
		}
	}
	if v := firstPresent(e.Data, "output_amount", "amount_out"); v != nil {
		data["outputAmount"] = v
	} else if swapResult != nil {
		if v, ok := swapResult["output_amount"]; ok {
			data["outputAmount"] = v
		}
	}
	if swapResult != nil {
		if v, ok := swapResult["trading_fee"]; ok {
			data["tradingFee"] = v
		}
	}

	if sol, ok := events.AsNumber(e.Data["virtual_sol_reserves"]); ok {
		if tok, ok := events.AsNumber(e.Data["virtual_token_reserves"]); ok && tok > 0 {
			data["price"] = sol / tok
		}
	}

	data["pool"] = firstPresent(e.Data, "pool", "pool_state", "pool_id")
	return data
}

func transferTemplate(e *events.Event) events.Data {
	from := firstPresent(e.Data, "from", "user", "owner")
	if from == nil {
		from = e.Signer
	}
	return events.Data{
		"type":      "transfer",
		"eventName": e.Name,
		"from":      from,
		"to":        firstPresent(e.Data, "to", "recipient", "destination"),
		"amount":    firstPresent(e.Data, "amount", "token_amount", "sol_amount"),
		"mint":      firstPresent(e.Data, "mint", "token_mint"),
	}
}

func migrationTemplate(e *events.Event) events.Data {
	data := events.Data{
		"type":      "migration",
		"eventName": e.Name,
		"token":     firstPresent(e.Data, "mint", "token_mint", "base_mint"),
		"pool":      firstPresent(e.Data, "pool", "pool_state", "bonding_curve", "virtual_pool"),
		"creator":   firstPresent(e.Data, "creator", "user"),
		"timestamp": e.BlockTime,
	}
	if v, ok := events.AsNumber(e.Data["virtual_sol_reserves"]); ok {
		data["solRaised"] = v / lamportsPerSOL
	}
	return data
}

// applyFields resolves each declared source path, pipes the value, and
// assigns the target key. A missing source yields a nil entry; that is a
// legitimate result.
func applyFields(fields []FieldMapping, e *events.Event) events.Data {
	data := make(events.Data, len(fields))
	for _, f := range fields {
		v, _ := e.Lookup(f.Source)
		if f.Pipe != "" {
			v = applyPipe(f.Pipe, v)
		}
		data[f.Target] = v
	}
	return data
}

// applyPipe applies a named unary pipe. Unknown pipe names are identity.
func applyPipe(name string, v any) any {
	switch name {
	case "lamportsToSol":
		if n, ok := events.AsNumber(v); ok {
			return n / lamportsPerSOL
		}
		return v
	case "base58":
		return events.AsString(v)
	case "timestamp":
		if n, ok := events.AsNumber(v); ok {
			return time.Unix(int64(n), 0).UTC().Format(time.RFC3339)
		}
		return v
	case "shorten":
		s, ok := v.(string)
		if !ok || len(s) <= 12 {
			return v
		}
		return s[:4] + "…" + s[len(s)-4:]
	case "bondingCurveProgress":
		if n, ok := events.AsNumber(v); ok {
			return BondingCurveProgress(n)
		}
		return v
	default:
		log.Printf("[transform] unknown pipe %q, passing value through", name)
		return v
	}
}

// BondingCurveProgress maps the current virtual token reserve balance to a
// completion percentage, clamped to [0, 100] and rounded to two decimals.
func BondingCurveProgress(current float64) float64 {
	const initial = float64(schema.InitialVirtualTokenReserves)
	pct := (initial - current) / initial * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*100) / 100
}

// firstPresent returns the first non-nil value among the named fields, or
// nil.
func firstPresent(data events.Data, names ...string) any {
	for _, name := range names {
		if v, ok := data[name]; ok && v != nil {
			return v
		}
	}
	return nil
}
