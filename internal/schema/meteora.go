package schema

import "tada-pipeline/internal/programs"

// Instruction names for the dynamic bonding curve paths that are detected by
// discriminator rather than an emitted event.
const (
	DBCInitPoolSPL       = "initialize_virtual_pool_with_spl_token"
	DBCInitPoolToken2022 = "initialize_virtual_pool_with_token2022"
	DBCMigrateDAMMV2     = "migration_damm_v2"
)

// MeteoraDBC builds the dynamic bonding curve schema. Events arrive as CPI
// self-invokes wrapped in the Anchor event-CPI prefix; pool initialization
// and migration are additionally inferred from instruction discriminators.
func MeteoraDBC() *Schema {
	return New(programs.Address(programs.MeteoraDBC),
		[]Event{
			{
				Name:          "EvtSwap2",
				Discriminator: EventDiscriminator("EvtSwap2"),
				Fields: []Field{
					F("pool", T(KindPubkey)),
					F("config", T(KindPubkey)),
					F("trade_direction", T(KindU8)),
					F("has_referral", T(KindBool)),
					F("swap_parameters", Defined("SwapParameters")),
					F("swap_result", Defined("SwapResult2")),
					F("quote_reserve_amount", T(KindU64)),
					F("migration_threshold", T(KindU64)),
					F("current_timestamp", T(KindU64)),
				},
			},
			{
				Name:          "EvtInitializePool",
				Discriminator: EventDiscriminator("EvtInitializePool"),
				Fields: []Field{
					F("pool", T(KindPubkey)),
					F("config", T(KindPubkey)),
					F("creator", T(KindPubkey)),
					F("base_mint", T(KindPubkey)),
					F("pool_type", T(KindU8)),
					F("activation_point", T(KindU64)),
				},
			},
			{
				Name:          "EvtCurveComplete",
				Discriminator: EventDiscriminator("EvtCurveComplete"),
				Fields: []Field{
					F("pool", T(KindPubkey)),
					F("config", T(KindPubkey)),
					F("base_reserve", T(KindU64)),
					F("quote_reserve", T(KindU64)),
				},
			},
		},
		[]Instruction{
			{
				Name:          DBCInitPoolSPL,
				Discriminator: InstructionDiscriminator(DBCInitPoolSPL),
				Accounts: []string{
					"config", "pool_authority", "creator", "base_mint",
					"quote_mint", "pool", "base_vault", "quote_vault", "payer",
				},
				Args: []Field{
					F("name", T(KindString)),
					F("symbol", T(KindString)),
					F("uri", T(KindString)),
				},
			},
			{
				Name:          DBCInitPoolToken2022,
				Discriminator: InstructionDiscriminator(DBCInitPoolToken2022),
				Accounts: []string{
					"config", "pool_authority", "creator", "base_mint",
					"quote_mint", "pool", "base_vault", "quote_vault", "payer",
				},
				Args: []Field{
					F("name", T(KindString)),
					F("symbol", T(KindString)),
					F("uri", T(KindString)),
				},
			},
			{
				Name:          DBCMigrateDAMMV2,
				Discriminator: InstructionDiscriminator(DBCMigrateDAMMV2),
				Accounts: []string{
					"virtual_pool", "migration_metadata", "config",
					"pool_authority", "pool", "first_position_nft_mint",
					"first_position", "damm_pool_authority", "amm_program",
					"base_mint", "quote_mint", "token_a_vault", "token_b_vault",
				},
				Args: nil,
			},
		},
		[]StructDef{
			{
				Name: "SwapParameters",
				Fields: []Field{
					F("amount_in", T(KindU64)),
					F("minimum_amount_out", T(KindU64)),
				},
			},
			{
				Name: "SwapResult2",
				Fields: []Field{
					F("actual_input_amount", T(KindU64)),
					F("output_amount", T(KindU64)),
					F("next_sqrt_price", T(KindU128)),
					F("trading_fee", T(KindU64)),
					F("protocol_fee", T(KindU64)),
					F("referral_fee", T(KindU64)),
				},
			},
		},
	)
}

// MeteoraDAMMV2 builds the DAMM v2 schema. Events arrive as CPI self-invokes.
func MeteoraDAMMV2() *Schema {
	return New(programs.Address(programs.MeteoraDAMMV2),
		[]Event{
			{
				Name:          "EvtSwap",
				Discriminator: EventDiscriminator("EvtSwap"),
				Fields: []Field{
					F("pool", T(KindPubkey)),
					F("trade_direction", T(KindU8)),
					F("has_referral", T(KindBool)),
					F("params", Defined("SwapParameters")),
					F("swap_result", Defined("SwapResult")),
					F("actual_amount_in", T(KindU64)),
					F("current_timestamp", T(KindU64)),
				},
			},
			{
				Name:          "EvtInitializePool",
				Discriminator: EventDiscriminator("EvtInitializePool"),
				Fields: []Field{
					F("pool", T(KindPubkey)),
					F("token_a_mint", T(KindPubkey)),
					F("token_b_mint", T(KindPubkey)),
					F("creator", T(KindPubkey)),
					F("payer", T(KindPubkey)),
					F("liquidity", T(KindU128)),
					F("activation_point", T(KindU64)),
				},
			},
		},
		[]Instruction{
			{
				Name:          "swap",
				Discriminator: InstructionDiscriminator("swap"),
				Accounts: []string{
					"pool_authority", "pool", "input_token_account",
					"output_token_account", "token_a_vault", "token_b_vault",
					"token_a_mint", "token_b_mint", "payer",
				},
				Args: []Field{
					F("amount_in", T(KindU64)),
					F("minimum_amount_out", T(KindU64)),
				},
			},
		},
		[]StructDef{
			{
				Name: "SwapParameters",
				Fields: []Field{
					F("amount_in", T(KindU64)),
					F("minimum_amount_out", T(KindU64)),
				},
			},
			{
				Name: "SwapResult",
				Fields: []Field{
					F("actual_input_amount", T(KindU64)),
					F("output_amount", T(KindU64)),
					F("next_sqrt_price", T(KindU128)),
					F("lp_fee", T(KindU64)),
					F("protocol_fee", T(KindU64)),
					F("partner_fee", T(KindU64)),
					F("referral_fee", T(KindU64)),
				},
			},
		},
	)
}
