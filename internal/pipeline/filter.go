package pipeline

import (
	"log"
	"strings"

	"tada-pipeline/internal/events"
)

const lamportsPerSOL = 1_000_000_000

// mintFieldNames are the roles probed when matching the mints convenience
// filter; both snake_case and camelCase spellings are recognised.
var mintFieldNames = []string{
	"mint", "token_mint", "tokenMint", "base_mint", "baseMint",
	"quote_mint", "quoteMint", "input_mint", "inputMint",
	"output_mint", "outputMint",
}

// walletFieldNames are the actor roles probed (in addition to the signer)
// when matching the wallets convenience filter.
var walletFieldNames = []string{"user", "creator", "trader", "owner", "authority", "from"}

// solAmountFields is the ordered probe list for a SOL-denominated amount,
// in lamports.
var solAmountFields = []string{
	"sol_amount", "quote_amount_in", "quote_amount_out",
	"user_quote_amount_in", "user_quote_amount_out", "amount_in", "solAmount",
}

// tokenAmountFields is the ordered probe list for a token amount (raw units).
var tokenAmountFields = []string{
	"token_amount", "base_amount_out", "base_amount_in",
	"output_amount", "amount_out", "tokenAmount",
}

// accountRoleNames are the field-name fragments whose string values count as
// accounts for the accounts.include/exclude constraints.
var accountRoleNames = []string{
	"mint", "pool", "user", "creator", "authority", "curve", "vault",
	"account", "recipient", "config", "owner", "payer", "from", "to",
	"signer", "trader",
}

// Evaluate applies a filter to a single event. It is pure: no side effects
// beyond a warning log for unknown condition operators.
func Evaluate(f *Filter, e *events.Event) bool {
	if f == nil || f.IsEmpty() {
		return true
	}

	if len(f.And) > 0 {
		for i := range f.And {
			if !Evaluate(&f.And[i], e) {
				return false
			}
		}
		return true
	}
	if len(f.Or) > 0 {
		for i := range f.Or {
			if Evaluate(&f.Or[i], e) {
				return true
			}
		}
		return false
	}

	if len(f.Instructions) > 0 && !containsString(f.Instructions, e.Name) {
		return false
	}

	if len(f.Mints) > 0 && !anyFieldMatches(e.Data, mintFieldNames, f.Mints) {
		return false
	}

	if len(f.Wallets) > 0 {
		if !containsString(f.Wallets, e.Signer) && !anyFieldMatches(e.Data, walletFieldNames, f.Wallets) {
			return false
		}
	}

	if f.IsBuy != nil {
		if dir, ok := deriveDirection(e); ok && dir != *f.IsBuy {
			return false
		}
		// Underivable direction skips the predicate rather than rejecting.
	}

	if f.SolAmount != nil {
		if v, ok := probeNumber(e.Data, solAmountFields); ok {
			if !f.SolAmount.contains(v / lamportsPerSOL) {
				return false
			}
		}
	}
	if f.TokenAmount != nil {
		if v, ok := probeNumber(e.Data, tokenAmountFields); ok {
			if !f.TokenAmount.contains(v) {
				return false
			}
		}
	}

	if f.Accounts != nil {
		accounts := collectAccounts(e)
		if len(f.Accounts.Include) > 0 && !anyOverlap(accounts, f.Accounts.Include) {
			return false
		}
		if len(f.Accounts.Exclude) > 0 && anyOverlap(accounts, f.Accounts.Exclude) {
			return false
		}
	}

	for i := range f.Conditions {
		if !evalCondition(&f.Conditions[i], e) {
			return false
		}
	}
	return true
}

func (r *Range) contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// deriveDirection resolves the buy/sell direction of an event: explicit
// is_buy first, then trade_direction (0 = buy), then the event name.
func deriveDirection(e *events.Event) (isBuy bool, ok bool) {
	if v, found := e.Data["is_buy"]; found {
		if b, isBool := v.(bool); isBool {
			return b, true
		}
	}
	if v, found := e.Data["trade_direction"]; found {
		if n, isNum := events.AsNumber(v); isNum {
			return n == 0, true
		}
	}
	lower := strings.ToLower(e.Name)
	if strings.Contains(lower, "buy") {
		return true, true
	}
	if strings.Contains(lower, "sell") {
		return false, true
	}
	return false, false
}

// probeNumber tries field names in order and returns the first numeric value.
func probeNumber(data events.Data, names []string) (float64, bool) {
	for _, name := range names {
		if v, ok := data[name]; ok {
			if n, isNum := events.AsNumber(v); isNum {
				return n, true
			}
		}
	}
	return 0, false
}

// anyFieldMatches reports whether any probed field value equals any wanted
// string.
func anyFieldMatches(data events.Data, fields, wanted []string) bool {
	for _, name := range fields {
		v, ok := data[name]
		if !ok {
			continue
		}
		if s, isStr := v.(string); isStr && containsString(wanted, s) {
			return true
		}
	}
	return false
}

// collectAccounts gathers all account-like strings from an event: the signer
// plus every string value (length >= 32) under a field whose name matches an
// account role, recursing through nested objects.
func collectAccounts(e *events.Event) map[string]bool {
	acc := make(map[string]bool)
	if len(e.Signer) >= 32 {
		acc[e.Signer] = true
	}
	collectAccountsFrom(e.Data, acc)
	return acc
}

func collectAccountsFrom(m map[string]any, acc map[string]bool) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if len(val) >= 32 && isAccountRole(k) {
				acc[val] = true
			}
		case map[string]any:
			collectAccountsFrom(val, acc)
		}
	}
}

func isAccountRole(field string) bool {
	lower := strings.ToLower(field)
	for _, role := range accountRoleNames {
		if strings.Contains(lower, role) {
			return true
		}
	}
	return false
}

func anyOverlap(set map[string]bool, list []string) bool {
	for _, s := range list {
		if set[s] {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// evalCondition evaluates one {field, op, value} triple against the event.
func evalCondition(c *Condition, e *events.Event) bool {
	actual, found := e.Lookup(c.Field)

	switch c.Op {
	case "eq":
		if !found || actual == nil {
			return c.Value == nil
		}
		return looseEqual(actual, c.Value)
	case "neq":
		if !found || actual == nil {
			return c.Value != nil
		}
		return !looseEqual(actual, c.Value)
	case "gt", "gte", "lt", "lte":
		if !found {
			return false
		}
		a, aok := events.AsNumber(actual)
		b, bok := events.AsNumber(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Op {
		case "gt":
			return a > b
		case "gte":
			return a >= b
		case "lt":
			return a < b
		default:
			return a <= b
		}
	case "in", "nin":
		if !found {
			return false
		}
		list, ok := c.Value.([]any)
		if !ok {
			return false
		}
		member := false
		for _, item := range list {
			if looseEqual(actual, item) {
				member = true
				break
			}
		}
		if c.Op == "in" {
			return member
		}
		return !member
	case "contains":
		if !found {
			return false
		}
		a, aok := actual.(string)
		b, bok := c.Value.(string)
		if !aok || !bok {
			return false
		}
		return strings.Contains(strings.ToLower(a), strings.ToLower(b))
	default:
		log.Printf("[filter] unknown operator %q", c.Op)
		return false
	}
}

// looseEqual compares numerically when both sides parse as numbers, and by
// stringified form otherwise, so "5" equals 5.
func looseEqual(a, b any) bool {
	an, aok := events.AsNumber(a)
	bn, bok := events.AsNumber(b)
	if aok && bok {
		return an == bn
	}
	return events.AsString(a) == events.AsString(b)
}
