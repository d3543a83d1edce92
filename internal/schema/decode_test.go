package schema

import (
	"encoding/binary"
	"testing"

	"tada-pipeline/internal/solana"
)

func appendU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

func appendI64(buf []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func testPubkey(seed byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = seed
	}
	return b
}

func TestDecodeEvent_PumpFunTrade(t *testing.T) {
	s := PumpFun()

	mint := testPubkey(1)
	user := testPubkey(2)

	disc := EventDiscriminator("TradeEvent")
	payload := append([]byte{}, disc[:]...)
	payload = append(payload, mint...)
	payload = appendU64(payload, 1_000_000_000)
	payload = appendU64(payload, 5_000_000)
	payload = appendBool(payload, true)
	payload = append(payload, user...)
	payload = appendI64(payload, 1_700_000_000)
	payload = appendU64(payload, 31_000_000_000)
	payload = appendU64(payload, 1_060_000_000_000_000)
	payload = appendU64(payload, 1_000_000_000)
	payload = appendU64(payload, 793_100_000_000_000)

	name, data, err := s.DecodeEvent(payload)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if name != "TradeEvent" {
		t.Fatalf("expected TradeEvent, got %s", name)
	}
	if got := data["sol_amount"]; got != "1000000000" {
		t.Errorf("sol_amount = %v, want 1000000000", got)
	}
	if got := data["token_amount"]; got != "5000000" {
		t.Errorf("token_amount = %v, want 5000000", got)
	}
	if got := data["is_buy"]; got != true {
		t.Errorf("is_buy = %v, want true", got)
	}
	if got := data["mint"]; got != solana.Base58(mint) {
		t.Errorf("mint = %v, want %s", got, solana.Base58(mint))
	}
	if got := data["timestamp"]; got != "1700000000" {
		t.Errorf("timestamp = %v, want 1700000000", got)
	}
}

func TestDecodeEvent_NestedStruct(t *testing.T) {
	s := MeteoraDBC()

	disc := EventDiscriminator("EvtSwap2")
	payload := append([]byte{}, disc[:]...)
	payload = append(payload, testPubkey(3)...) // pool
	payload = append(payload, testPubkey(4)...) // config
	payload = append(payload, 0)                // trade_direction
	payload = appendBool(payload, false)        // has_referral
	// swap_parameters
	payload = appendU64(payload, 500_000_000)
	payload = appendU64(payload, 1)
	// swap_result
	payload = appendU64(payload, 499_000_000)
	payload = appendU64(payload, 12_345_678)
	payload = append(payload, make([]byte, 16)...) // next_sqrt_price u128 = 0
	payload = appendU64(payload, 1_000_000)
	payload = appendU64(payload, 50_000)
	payload = appendU64(payload, 0)
	// trailing scalars
	payload = appendU64(payload, 80_000_000_000)
	payload = appendU64(payload, 85_000_000_000)
	payload = appendU64(payload, 1_700_000_001)

	name, data, err := s.DecodeEvent(payload)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if name != "EvtSwap2" {
		t.Fatalf("expected EvtSwap2, got %s", name)
	}
	swapResult, ok := data["swap_result"].(map[string]any)
	if !ok {
		t.Fatalf("swap_result is %T, want map", data["swap_result"])
	}
	if got := swapResult["actual_input_amount"]; got != "499000000" {
		t.Errorf("actual_input_amount = %v, want 499000000", got)
	}
	if got := swapResult["output_amount"]; got != "12345678" {
		t.Errorf("output_amount = %v, want 12345678", got)
	}
	if got := swapResult["next_sqrt_price"]; got != "0" {
		t.Errorf("next_sqrt_price = %v, want 0", got)
	}
}

func TestDecodeEvent_UnknownDiscriminator(t *testing.T) {
	s := PumpFun()
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = 0xAB
	}
	if _, _, err := s.DecodeEvent(payload); err == nil {
		t.Fatal("expected error for unknown discriminator")
	}
}

func TestDecodeEvent_ShortBuffer(t *testing.T) {
	s := PumpFun()

	disc := EventDiscriminator("TradeEvent")
	payload := append([]byte{}, disc[:]...)
	payload = append(payload, testPubkey(1)...)
	// sol_amount and everything after are missing.

	if _, _, err := s.DecodeEvent(payload); err == nil {
		t.Fatal("expected short buffer error")
	}
	if _, _, err := s.DecodeEvent([]byte{1, 2}); err == nil {
		t.Fatal("expected error for buffer shorter than discriminator")
	}
}

func TestDecodeEvent_StringFields(t *testing.T) {
	s := PumpFun()

	disc := EventDiscriminator("CreateEvent")
	payload := append([]byte{}, disc[:]...)
	payload = appendString(payload, "My Token")
	payload = appendString(payload, "MTK")
	payload = appendString(payload, "https://example.com/meta.json")
	payload = append(payload, testPubkey(5)...)
	payload = append(payload, testPubkey(6)...)
	payload = append(payload, testPubkey(7)...)
	payload = append(payload, testPubkey(8)...)
	payload = appendI64(payload, 1_700_000_000)

	name, data, err := s.DecodeEvent(payload)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if name != "CreateEvent" {
		t.Fatalf("expected CreateEvent, got %s", name)
	}
	if got := data["name"]; got != "My Token" {
		t.Errorf("name = %v", got)
	}
	if got := data["symbol"]; got != "MTK" {
		t.Errorf("symbol = %v", got)
	}
}

func TestDiscriminators_DistinctPerSchema(t *testing.T) {
	for _, s := range []*Schema{PumpFun(), PumpSwap(), RaydiumLaunchpad(), RaydiumCPMM(), MeteoraDBC(), MeteoraDAMMV2()} {
		seen := make(map[[8]byte]string)
		for disc, ev := range s.events {
			if prev, dup := seen[disc]; dup {
				t.Errorf("%s: discriminator collision between %s and %s", s.ProgramAddress, prev, ev.Name)
			}
			seen[disc] = ev.Name
		}
	}
}

func TestEventByName(t *testing.T) {
	s := PumpSwap()
	ev, ok := s.EventByName("BuyEvent")
	if !ok {
		t.Fatal("BuyEvent not found")
	}
	if ev.Discriminator != EventDiscriminator("BuyEvent") {
		t.Error("discriminator mismatch")
	}
	if _, ok := s.EventByName("NoSuchEvent"); ok {
		t.Error("expected miss for unknown name")
	}
}
