package decoder

import (
	"strings"

	"tada-pipeline/internal/events"
	"tada-pipeline/internal/programs"
	"tada-pipeline/internal/schema"
	"tada-pipeline/internal/solana"
)

// base carries the pieces every program decoder shares: the catalog entry,
// the program schema, and the per-event role tables used for account
// extraction from the primary outer instruction.
type base struct {
	program programs.Program
	schema  *schema.Schema

	// roles maps event name -> positional role names applied to the primary
	// outer instruction's accounts. Indices past the instruction's account
	// list are omitted silently.
	roles map[string][]string
}

func (b *base) Program() programs.ID   { return b.program.ID }
func (b *base) ProgramAddress() string { return b.program.Address }

// involved reports whether the program address appears anywhere in the
// envelope's full account-key set, including lookup-table loaded addresses.
func (b *base) involved(env *solana.TransactionEnvelope) bool {
	for _, k := range env.AllAccountKeys() {
		if solana.Base58(k) == b.program.Address {
			return true
		}
	}
	return false
}

// attributeSource scans the full account-key set in list order and returns
// the first aggregator attribution found, or direct.
func attributeSource(env *solana.TransactionEnvelope) events.Source {
	for _, k := range env.AllAccountKeys() {
		addr := solana.Base58(k)
		if tag, ok := programs.Aggregators[addr]; ok {
			return events.Source{Type: events.SourceType(tag), OuterProgram: addr}
		}
	}
	return events.Source{Type: events.SourceDirect}
}

// newEvent fills the envelope-derived identity fields and assigns the next
// sequence number. seq is owned by the caller and incremented per emission.
func (b *base) newEvent(env *solana.TransactionEnvelope, src events.Source, name string, data events.Data, seq int) events.Event {
	sig := solana.Base58(env.Signature)
	return events.Event{
		ID:             events.EventID(sig, b.program.Address, seq),
		Program:        b.program.ID,
		ProgramAddress: b.program.Address,
		Name:           name,
		Signature:      sig,
		Slot:           env.Slot,
		BlockTime:      env.BlockTime,
		Signer:         env.FeePayer(),
		Source:         src,
		Data:           data,
	}
}

// primaryOuterInstruction returns the first top-level instruction whose
// program is this decoder's program, or nil.
func (b *base) primaryOuterInstruction(env *solana.TransactionEnvelope) *solana.CompiledInstruction {
	for i := range env.Instructions {
		if env.AccountKeyAt(int(env.Instructions[i].ProgramIDIndex)) == b.program.Address {
			return &env.Instructions[i]
		}
	}
	return nil
}

// applyRoles binds role names to the primary outer instruction's accounts and
// writes them into data under the role name. Existing keys are not
// overwritten; out-of-range indices are skipped.
func (b *base) applyRoles(env *solana.TransactionEnvelope, eventName string, data events.Data) {
	roles, ok := b.roles[eventName]
	if !ok {
		return
	}
	ix := b.primaryOuterInstruction(env)
	if ix == nil {
		return
	}
	for i, role := range roles {
		if i >= len(ix.Accounts) {
			break
		}
		if _, exists := data[role]; exists {
			continue
		}
		addr := env.AccountKeyAt(int(ix.Accounts[i]))
		if addr == "" {
			continue
		}
		data[role] = addr
	}
}

// flattenNested copies first-level nested map fields to top-level keys,
// keeping the nested form in place so templates can dereference either shape.
// Top-level keys never lose to nested ones.
func flattenNested(data events.Data) {
	for _, v := range data {
		nested, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for nk, nv := range nested {
			if _, exists := data[nk]; !exists {
				data[nk] = nv
			}
		}
	}
}

// inferTokenMints scans post-transaction token balances: the single non-native
// mint becomes token_mint; the wrapped-SOL mint becomes quote_mint when
// present, otherwise the second non-native mint does. Already-decoded mint
// fields win.
func inferTokenMints(env *solana.TransactionEnvelope, data events.Data) {
	var nonNative []string
	seen := make(map[string]bool)
	hasWSOL := false
	for _, tb := range env.PostTokenBalances {
		if tb.Mint == "" || seen[tb.Mint] {
			continue
		}
		seen[tb.Mint] = true
		if tb.Mint == programs.WrappedSOLMint {
			hasWSOL = true
			continue
		}
		nonNative = append(nonNative, tb.Mint)
	}

	if _, ok := data["token_mint"]; !ok && len(nonNative) > 0 {
		data["token_mint"] = nonNative[0]
	}
	if _, ok := data["quote_mint"]; !ok {
		switch {
		case hasWSOL:
			data["quote_mint"] = programs.WrappedSOLMint
		case len(nonNative) > 1:
			data["quote_mint"] = nonNative[1]
		}
	}
}

// Log-line markers for program invocation tracking.
const (
	logInvokePrefix = "Program "
	logDataPrefix   = "Program data: "
)

// currentProgramTracker walks log lines and maintains the invocation stack so
// "Program data:" lines can be attributed to the program that emitted them.
type currentProgramTracker struct {
	stack []string
}

// observe feeds one log line to the tracker. It returns the base64 payload
// and true for every data line, whichever program is current; callers check
// ownership with current().
func (t *currentProgramTracker) observe(line string) (payload string, isData bool) {
	if strings.HasPrefix(line, logDataPrefix) {
		return line[len(logDataPrefix):], true
	}
	if !strings.HasPrefix(line, logInvokePrefix) {
		return "", false
	}
	rest := line[len(logInvokePrefix):]
	if i := strings.Index(rest, " invoke ["); i > 0 {
		t.stack = append(t.stack, rest[:i])
		return "", false
	}
	if addr, ok := strings.CutSuffix(rest, " success"); ok {
		t.popIfCurrent(addr)
		return "", false
	}
	if i := strings.Index(rest, " failed"); i > 0 {
		t.popIfCurrent(rest[:i])
	}
	return "", false
}

func (t *currentProgramTracker) popIfCurrent(addr string) {
	if n := len(t.stack); n > 0 && t.stack[n-1] == addr {
		t.stack = t.stack[:n-1]
	}
}

// current returns the program owning subsequent data lines, or "".
func (t *currentProgramTracker) current() string {
	if n := len(t.stack); n > 0 {
		return t.stack[n-1]
	}
	return ""
}
