package schema

import "tada-pipeline/internal/programs"

// PumpSwap builds the pump.fun AMM schema. Events arrive as CPI self-invokes.
func PumpSwap() *Schema {
	return New(programs.Address(programs.PumpSwap),
		[]Event{
			{
				Name:          "BuyEvent",
				Discriminator: EventDiscriminator("BuyEvent"),
				Fields: []Field{
					F("timestamp", T(KindI64)),
					F("base_amount_out", T(KindU64)),
					F("max_quote_amount_in", T(KindU64)),
					F("user_base_token_reserves", T(KindU64)),
					F("user_quote_token_reserves", T(KindU64)),
					F("pool_base_token_reserves", T(KindU64)),
					F("pool_quote_token_reserves", T(KindU64)),
					F("quote_amount_in", T(KindU64)),
					F("lp_fee_basis_points", T(KindU64)),
					F("lp_fee", T(KindU64)),
					F("protocol_fee_basis_points", T(KindU64)),
					F("protocol_fee", T(KindU64)),
					F("quote_amount_in_with_lp_fee", T(KindU64)),
					F("user_quote_amount_in", T(KindU64)),
					F("pool", T(KindPubkey)),
					F("user", T(KindPubkey)),
					F("user_base_token_account", T(KindPubkey)),
					F("user_quote_token_account", T(KindPubkey)),
					F("protocol_fee_recipient", T(KindPubkey)),
				},
			},
			{
				Name:          "SellEvent",
				Discriminator: EventDiscriminator("SellEvent"),
				Fields: []Field{
					F("timestamp", T(KindI64)),
					F("base_amount_in", T(KindU64)),
					F("min_quote_amount_out", T(KindU64)),
					F("user_base_token_reserves", T(KindU64)),
					F("user_quote_token_reserves", T(KindU64)),
					F("pool_base_token_reserves", T(KindU64)),
					F("pool_quote_token_reserves", T(KindU64)),
					F("quote_amount_out", T(KindU64)),
					F("lp_fee_basis_points", T(KindU64)),
					F("lp_fee", T(KindU64)),
					F("protocol_fee_basis_points", T(KindU64)),
					F("protocol_fee", T(KindU64)),
					F("quote_amount_out_without_lp_fee", T(KindU64)),
					F("user_quote_amount_out", T(KindU64)),
					F("pool", T(KindPubkey)),
					F("user", T(KindPubkey)),
					F("user_base_token_account", T(KindPubkey)),
					F("user_quote_token_account", T(KindPubkey)),
					F("protocol_fee_recipient", T(KindPubkey)),
				},
			},
			{
				Name:          "CreatePoolEvent",
				Discriminator: EventDiscriminator("CreatePoolEvent"),
				Fields: []Field{
					F("timestamp", T(KindI64)),
					F("index", T(KindU16)),
					F("creator", T(KindPubkey)),
					F("base_mint", T(KindPubkey)),
					F("quote_mint", T(KindPubkey)),
					F("base_mint_decimals", T(KindU8)),
					F("quote_mint_decimals", T(KindU8)),
					F("base_amount_in", T(KindU64)),
					F("quote_amount_in", T(KindU64)),
					F("pool_base_amount", T(KindU64)),
					F("pool_quote_amount", T(KindU64)),
					F("lp_token_amount_out", T(KindU64)),
					F("pool", T(KindPubkey)),
					F("lp_mint", T(KindPubkey)),
				},
			},
		},
		[]Instruction{
			{
				Name:          "buy",
				Discriminator: InstructionDiscriminator("buy"),
				Accounts: []string{
					"pool", "user", "global_config", "base_mint", "quote_mint",
					"user_base_token_account", "user_quote_token_account",
					"pool_base_token_account", "pool_quote_token_account",
					"protocol_fee_recipient",
				},
				Args: []Field{
					F("base_amount_out", T(KindU64)),
					F("max_quote_amount_in", T(KindU64)),
				},
			},
			{
				Name:          "sell",
				Discriminator: InstructionDiscriminator("sell"),
				Accounts: []string{
					"pool", "user", "global_config", "base_mint", "quote_mint",
					"user_base_token_account", "user_quote_token_account",
					"pool_base_token_account", "pool_quote_token_account",
					"protocol_fee_recipient",
				},
				Args: []Field{
					F("base_amount_in", T(KindU64)),
					F("min_quote_amount_out", T(KindU64)),
				},
			},
		},
		nil,
	)
}
