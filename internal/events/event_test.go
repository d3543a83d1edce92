package events

import "testing"

func TestEventID(t *testing.T) {
	got := EventID("sig", "addr", 2)
	if got != "sig:addr:2" {
		t.Fatalf("EventID = %s", got)
	}
}

func TestLookup(t *testing.T) {
	e := &Event{
		ID:        "sig:addr:0",
		Name:      "TradeEvent",
		Program:   "pumpfun",
		Signature: "sig",
		Slot:      42,
		BlockTime: 1_700_000_000,
		Signer:    "WALLET",
		Source:    Source{Type: SourceJupiter, OuterProgram: "JUP"},
		Data: Data{
			"sol_amount": "100",
			"swap_result": map[string]any{
				"output_amount": "7",
			},
		},
	}

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"name", "TradeEvent", true},
		{"signer", "WALLET", true},
		{"slot", float64(42), true},
		{"source.type", "jupiter", true},
		{"data.sol_amount", "100", true},
		{"sol_amount", "100", true},
		{"data.swap_result.output_amount", "7", true},
		{"swap_result.output_amount", "7", true},
		{"data.missing", nil, false},
		{"swap_result.missing", nil, false},
		{"sol_amount.too.deep", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, found := e.Lookup(tt.path)
			if found != tt.found || (found && got != tt.want) {
				t.Errorf("Lookup(%s) = (%v, %v), want (%v, %v)", tt.path, got, found, tt.want, tt.found)
			}
		})
	}
}

func TestAsNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(5), 5, true},
		{"5", 5, true},
		{"5.5", 5.5, true},
		{"1000000000", 1e9, true},
		{true, 1, true},
		{false, 0, true},
		{"abc", 0, false},
		{nil, 0, false},
		{map[string]any{}, 0, false},
	}
	for _, tt := range tests {
		got, ok := AsNumber(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("AsNumber(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAsString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"x", "x"},
		{float64(5), "5"},
		{float64(5.5), "5.5"},
		{true, "true"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := AsString(tt.in); got != tt.want {
			t.Errorf("AsString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
