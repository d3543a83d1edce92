package schema

import "tada-pipeline/internal/programs"

// RaydiumLaunchpad builds the launchpad bonding-curve schema. Events arrive
// as "Program data:" log lines.
func RaydiumLaunchpad() *Schema {
	return New(programs.Address(programs.RaydiumLaunchpad),
		[]Event{
			{
				Name:          "TradeEvent",
				Discriminator: EventDiscriminator("TradeEvent"),
				Fields: []Field{
					F("pool_state", T(KindPubkey)),
					F("total_base_sell", T(KindU64)),
					F("virtual_base", T(KindU64)),
					F("virtual_quote", T(KindU64)),
					F("real_base_before", T(KindU64)),
					F("real_quote_before", T(KindU64)),
					F("real_base_after", T(KindU64)),
					F("real_quote_after", T(KindU64)),
					F("amount_in", T(KindU64)),
					F("amount_out", T(KindU64)),
					F("protocol_fee", T(KindU64)),
					F("platform_fee", T(KindU64)),
					F("share_fee", T(KindU64)),
					F("trade_direction", T(KindU8)),
					F("pool_status", T(KindU8)),
				},
			},
			{
				Name:          "PoolCreateEvent",
				Discriminator: EventDiscriminator("PoolCreateEvent"),
				Fields: []Field{
					F("pool_state", T(KindPubkey)),
					F("creator", T(KindPubkey)),
					F("config", T(KindPubkey)),
					F("base_mint_param", Defined("MintParams")),
				},
			},
		},
		[]Instruction{
			{
				Name:          "buy_exact_in",
				Discriminator: InstructionDiscriminator("buy_exact_in"),
				Accounts: []string{
					"payer", "authority", "global_config", "platform_config",
					"pool_state", "user_base_token", "user_quote_token",
					"base_vault", "quote_vault", "base_token_mint", "quote_token_mint",
				},
				Args: []Field{
					F("amount_in", T(KindU64)),
					F("minimum_amount_out", T(KindU64)),
					F("share_fee_rate", T(KindU64)),
				},
			},
			{
				Name:          "sell_exact_in",
				Discriminator: InstructionDiscriminator("sell_exact_in"),
				Accounts: []string{
					"payer", "authority", "global_config", "platform_config",
					"pool_state", "user_base_token", "user_quote_token",
					"base_vault", "quote_vault", "base_token_mint", "quote_token_mint",
				},
				Args: []Field{
					F("amount_in", T(KindU64)),
					F("minimum_amount_out", T(KindU64)),
					F("share_fee_rate", T(KindU64)),
				},
			},
		},
		[]StructDef{
			{
				Name: "MintParams",
				Fields: []Field{
					F("decimals", T(KindU8)),
					F("name", T(KindString)),
					F("symbol", T(KindString)),
					F("uri", T(KindString)),
				},
			},
		},
	)
}

// RaydiumCPMM builds the constant-product AMM schema. Events arrive as CPI
// self-invokes.
func RaydiumCPMM() *Schema {
	return New(programs.Address(programs.RaydiumCPMM),
		[]Event{
			{
				Name:          "SwapEvent",
				Discriminator: EventDiscriminator("SwapEvent"),
				Fields: []Field{
					F("pool_id", T(KindPubkey)),
					F("input_vault_before", T(KindU64)),
					F("output_vault_before", T(KindU64)),
					F("input_amount", T(KindU64)),
					F("output_amount", T(KindU64)),
					F("input_transfer_fee", T(KindU64)),
					F("output_transfer_fee", T(KindU64)),
					F("base_input", T(KindBool)),
					F("input_mint", T(KindPubkey)),
					F("output_mint", T(KindPubkey)),
				},
			},
			{
				Name:          "LpChangeEvent",
				Discriminator: EventDiscriminator("LpChangeEvent"),
				Fields: []Field{
					F("pool_id", T(KindPubkey)),
					F("lp_amount_before", T(KindU64)),
					F("token_0_vault_before", T(KindU64)),
					F("token_1_vault_before", T(KindU64)),
					F("token_0_amount", T(KindU64)),
					F("token_1_amount", T(KindU64)),
					F("token_0_transfer_fee", T(KindU64)),
					F("token_1_transfer_fee", T(KindU64)),
					F("change_type", T(KindU8)),
				},
			},
		},
		[]Instruction{
			{
				Name:          "swap_base_input",
				Discriminator: InstructionDiscriminator("swap_base_input"),
				Accounts: []string{
					"payer", "authority", "amm_config", "pool_state",
					"input_token_account", "output_token_account",
					"input_vault", "output_vault",
				},
				Args: []Field{
					F("amount_in", T(KindU64)),
					F("minimum_amount_out", T(KindU64)),
				},
			},
			{
				Name:          "swap_base_output",
				Discriminator: InstructionDiscriminator("swap_base_output"),
				Accounts: []string{
					"payer", "authority", "amm_config", "pool_state",
					"input_token_account", "output_token_account",
					"input_vault", "output_vault",
				},
				Args: []Field{
					F("max_amount_in", T(KindU64)),
					F("amount_out", T(KindU64)),
				},
			},
		},
		nil,
	)
}
