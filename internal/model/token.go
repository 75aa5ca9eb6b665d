package model

// BaseToken describes a supported settlement token for pools.
type BaseToken struct {
	Symbol          string `json:"symbol"`
	Decimals        uint8  `json:"decimals"`
	ContractAddress string `json:"contract_address"`
	PriceFeed       string `json:"price_feed"`
}

// BaseTokenRegistry holds the base tokens pools may be created against.
type BaseTokenRegistry struct {
	tokens map[string]BaseToken
}

// NewBaseTokenRegistry builds a registry from the given tokens.
func NewBaseTokenRegistry(tokens ...BaseToken) *BaseTokenRegistry {
	r := &BaseTokenRegistry{tokens: make(map[string]BaseToken, len(tokens))}
	for _, t := range tokens {
		r.tokens[t.Symbol] = t
	}
	return r
}

// DefaultBaseTokens returns the standard registry.
func DefaultBaseTokens() *BaseTokenRegistry {
	return NewBaseTokenRegistry(
		BaseToken{Symbol: "USDC", Decimals: 6, ContractAddress: "0xA0b86a33E6441b8dB2B2b0b0b0b0b0b0b0b0b0b0", PriceFeed: "usdc_usd"},
		BaseToken{Symbol: "ETH", Decimals: 18, ContractAddress: "0x0000000000000000000000000000000000000000", PriceFeed: "eth_usd"},
		BaseToken{Symbol: "MATIC", Decimals: 18, ContractAddress: "0x0000000000000000000000000000000000000001", PriceFeed: "matic_usd"},
	)
}

// Lookup returns the token for a symbol.
func (r *BaseTokenRegistry) Lookup(symbol string) (BaseToken, bool) {
	t, ok := r.tokens[symbol]
	return t, ok
}

// Symbols returns all registered symbols.
func (r *BaseTokenRegistry) Symbols() []string {
	out := make([]string, 0, len(r.tokens))
	for symbol := range r.tokens {
		out = append(out, symbol)
	}
	return out
}
