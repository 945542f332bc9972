package dex

import (
	"github.com/gagliardetto/solana-go"
)

// Env is the discovered venue environment the step builders consume. It is
// assembled once by Discovery and cached between runs, so builders never
// touch the network.
type Env struct {
	Raydium RaydiumEnv `json:"raydium"`
	Meteora MeteoraEnv `json:"meteora"`
	Slot    uint64     `json:"slot"` // slot observed at discovery time
}

// RaydiumEnv holds every account a swap against the discovered AMM v4 pool
// references, including the Serum market side.
type RaydiumEnv struct {
	AmmID             solana.PublicKey `json:"amm_id"`
	AmmAuthority      solana.PublicKey `json:"amm_authority"`
	OpenOrders        solana.PublicKey `json:"open_orders"`
	TargetOrders      solana.PublicKey `json:"target_orders"`
	BaseVault         solana.PublicKey `json:"base_vault"`
	QuoteVault        solana.PublicKey `json:"quote_vault"`
	BaseMint          solana.PublicKey `json:"base_mint"`
	QuoteMint         solana.PublicKey `json:"quote_mint"`
	MarketProgram     solana.PublicKey `json:"market_program"`
	MarketID          solana.PublicKey `json:"market_id"`
	MarketBids        solana.PublicKey `json:"market_bids"`
	MarketAsks        solana.PublicKey `json:"market_asks"`
	MarketEventQueue  solana.PublicKey `json:"market_event_queue"`
	MarketBaseVault   solana.PublicKey `json:"market_base_vault"`
	MarketQuoteVault  solana.PublicKey `json:"market_quote_vault"`
	MarketVaultSigner solana.PublicKey `json:"market_vault_signer"`
}

// MeteoraEnv holds every account a swap against the discovered DLMM pair
// references. QuoteMint records which side of the pair the harness spends;
// BinArrays covers the active bin array and its two neighbours.
type MeteoraEnv struct {
	LbPair         solana.PublicKey   `json:"lb_pair"`
	TokenXMint     solana.PublicKey   `json:"token_x_mint"`
	TokenYMint     solana.PublicKey   `json:"token_y_mint"`
	ReserveX       solana.PublicKey   `json:"reserve_x"`
	ReserveY       solana.PublicKey   `json:"reserve_y"`
	Oracle         solana.PublicKey   `json:"oracle"`
	QuoteMint      solana.PublicKey   `json:"quote_mint"`
	ActiveID       int32              `json:"active_id"`
	BinStep        uint16             `json:"bin_step"`
	BinArrays      []solana.PublicKey `json:"bin_arrays"`
	EventAuthority solana.PublicKey   `json:"event_authority"`
}

// QuoteIsY reports whether the spent side of the DLMM pair is token Y.
func (m *MeteoraEnv) QuoteIsY() bool {
	return m.QuoteMint.Equals(m.TokenYMint)
}
