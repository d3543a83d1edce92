package schema

import "tada-pipeline/internal/programs"

// InitialVirtualTokenReserves is the bonding curve's starting virtual token
// reserve balance. Curve progress is measured against this constant.
const InitialVirtualTokenReserves = 1_073_000_000_000_000

// PumpFun builds the pump.fun bonding-curve schema. Events arrive as
// "Program data:" log lines.
func PumpFun() *Schema {
	return New(programs.Address(programs.PumpFun),
		[]Event{
			{
				Name:          "TradeEvent",
				Discriminator: EventDiscriminator("TradeEvent"),
				Fields: []Field{
					F("mint", T(KindPubkey)),
					F("sol_amount", T(KindU64)),
					F("token_amount", T(KindU64)),
					F("is_buy", T(KindBool)),
					F("user", T(KindPubkey)),
					F("timestamp", T(KindI64)),
					F("virtual_sol_reserves", T(KindU64)),
					F("virtual_token_reserves", T(KindU64)),
					F("real_sol_reserves", T(KindU64)),
					F("real_token_reserves", T(KindU64)),
				},
			},
			{
				Name:          "CreateEvent",
				Discriminator: EventDiscriminator("CreateEvent"),
				Fields: []Field{
					F("name", T(KindString)),
					F("symbol", T(KindString)),
					F("uri", T(KindString)),
					F("mint", T(KindPubkey)),
					F("bonding_curve", T(KindPubkey)),
					F("user", T(KindPubkey)),
					F("creator", T(KindPubkey)),
					F("timestamp", T(KindI64)),
				},
			},
			{
				Name:          "CompleteEvent",
				Discriminator: EventDiscriminator("CompleteEvent"),
				Fields: []Field{
					F("user", T(KindPubkey)),
					F("mint", T(KindPubkey)),
					F("bonding_curve", T(KindPubkey)),
					F("timestamp", T(KindI64)),
				},
			},
		},
		[]Instruction{
			{
				Name:          "buy",
				Discriminator: InstructionDiscriminator("buy"),
				Accounts: []string{
					"global", "fee_recipient", "mint", "bonding_curve",
					"associated_bonding_curve", "associated_user", "user",
				},
				Args: []Field{
					F("amount", T(KindU64)),
					F("max_sol_cost", T(KindU64)),
				},
			},
			{
				Name:          "sell",
				Discriminator: InstructionDiscriminator("sell"),
				Accounts: []string{
					"global", "fee_recipient", "mint", "bonding_curve",
					"associated_bonding_curve", "associated_user", "user",
				},
				Args: []Field{
					F("amount", T(KindU64)),
					F("min_sol_output", T(KindU64)),
				},
			},
			{
				Name:          "create",
				Discriminator: InstructionDiscriminator("create"),
				Accounts: []string{
					"mint", "mint_authority", "bonding_curve",
					"associated_bonding_curve", "global", "mpl_token_metadata",
					"metadata", "user",
				},
				Args: []Field{
					F("name", T(KindString)),
					F("symbol", T(KindString)),
					F("uri", T(KindString)),
					F("creator", T(KindPubkey)),
				},
			},
		},
		nil,
	)
}
