package decoder

import (
	"tada-pipeline/internal/programs"
	"tada-pipeline/internal/schema"
)

// NewPumpFunDecoder decodes the pump.fun bonding curve (log-emitted events).
func NewPumpFunDecoder() Decoder {
	tradeRoles := []string{
		"global", "fee_recipient", "mint", "bonding_curve",
		"associated_bonding_curve", "associated_user", "user",
	}
	d := &logDecoder{
		base: base{
			program: programs.Catalog[programs.PumpFun],
			schema:  schema.PumpFun(),
			roles: map[string][]string{
				"TradeEvent": tradeRoles,
				"CreateEvent": {
					"mint", "mint_authority", "bonding_curve",
					"associated_bonding_curve", "global", "mpl_token_metadata",
					"metadata", "user",
				},
				"CompleteEvent": tradeRoles,
			},
		},
	}
	d.enrich = enrichLogTrade
	return d
}

// NewRaydiumLaunchpadDecoder decodes the launchpad bonding curve
// (log-emitted events).
func NewRaydiumLaunchpadDecoder() Decoder {
	tradeRoles := []string{
		"payer", "authority", "global_config", "platform_config",
		"pool_state", "user_base_token", "user_quote_token",
		"base_vault", "quote_vault", "base_token_mint", "quote_token_mint",
	}
	d := &logDecoder{
		base: base{
			program: programs.Catalog[programs.RaydiumLaunchpad],
			schema:  schema.RaydiumLaunchpad(),
			roles: map[string][]string{
				"TradeEvent":      tradeRoles,
				"PoolCreateEvent": tradeRoles,
			},
		},
	}
	d.enrich = enrichLogTrade
	return d
}

// NewPumpSwapDecoder decodes the pump.fun AMM (CPI-emitted events).
func NewPumpSwapDecoder() Decoder {
	swapRoles := []string{
		"pool", "user", "global_config", "base_mint", "quote_mint",
		"user_base_token_account", "user_quote_token_account",
		"pool_base_token_account", "pool_quote_token_account",
		"protocol_fee_recipient",
	}
	d := &cpiDecoder{
		base: base{
			program: programs.Catalog[programs.PumpSwap],
			schema:  schema.PumpSwap(),
			roles: map[string][]string{
				"BuyEvent":  swapRoles,
				"SellEvent": swapRoles,
			},
		},
	}
	d.enrich = enrichCPISwap
	return d
}

// NewMeteoraDAMMV2Decoder decodes DAMM v2 pools (CPI-emitted events).
func NewMeteoraDAMMV2Decoder() Decoder {
	d := &cpiDecoder{
		base: base{
			program: programs.Catalog[programs.MeteoraDAMMV2],
			schema:  schema.MeteoraDAMMV2(),
			roles: map[string][]string{
				"EvtSwap": {
					"pool_authority", "pool", "input_token_account",
					"output_token_account", "token_a_vault", "token_b_vault",
					"token_a_mint", "token_b_mint", "payer",
				},
			},
		},
	}
	d.enrich = enrichCPISwap
	return d
}

// NewRaydiumCPMMDecoder decodes the constant-product AMM
// (CPI-emitted events).
func NewRaydiumCPMMDecoder() Decoder {
	swapRoles := []string{
		"payer", "authority", "amm_config", "pool_state",
		"input_token_account", "output_token_account",
		"input_vault", "output_vault",
	}
	d := &cpiDecoder{
		base: base{
			program: programs.Catalog[programs.RaydiumCPMM],
			schema:  schema.RaydiumCPMM(),
			roles: map[string][]string{
				"SwapEvent":     swapRoles,
				"LpChangeEvent": swapRoles,
			},
		},
	}
	d.enrich = enrichCPISwap
	return d
}
