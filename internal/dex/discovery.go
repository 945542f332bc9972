package dex

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/tidemark/surfreplay/internal/retry"
)

// Discovery scans a node for the venue accounts the scripted steps replay
// against. One pool is selected per venue; ties go to the first account the
// node returns.
type Discovery struct {
	client    *rpc.Client
	quoteMint solana.PublicKey
	retrier   *retry.Runner
	logger    zerolog.Logger
}

// NewDiscovery returns a Discovery that selects pools quoted in quoteMint.
func NewDiscovery(client *rpc.Client, quoteMint solana.PublicKey, retrier *retry.Runner, logger zerolog.Logger) *Discovery {
	return &Discovery{
		client:    client,
		quoteMint: quoteMint,
		retrier:   retrier,
		logger:    logger.With().Str("component", "dex_discovery").Logger(),
	}
}

// Discover locates one pool per venue and assembles the build environment.
// The whole scan retries as a unit so a flaky node cannot leave a half-built
// environment behind.
func (d *Discovery) Discover(ctx context.Context) (*Env, error) {
	var env *Env
	err := d.retrier.Do(ctx, "dex_discovery", func() error {
		found, err := d.discoverOnce(ctx)
		if err != nil {
			return err
		}
		env = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.Info().
		Str("raydium_pool", env.Raydium.AmmID.String()).
		Str("meteora_pair", env.Meteora.LbPair.String()).
		Uint64("slot", env.Slot).
		Msg("venue discovery complete")
	return env, nil
}

func (d *Discovery) discoverOnce(ctx context.Context) (*Env, error) {
	slot, err := d.client.GetSlot(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("fetch slot: %w", err)
	}

	raydium, err := d.discoverRaydium(ctx)
	if err != nil {
		return nil, err
	}

	meteora, err := d.discoverMeteora(ctx)
	if err != nil {
		return nil, err
	}

	return &Env{Raydium: *raydium, Meteora: *meteora, Slot: slot}, nil
}

// discoverRaydium scans for AMM v4 pools quoted in the configured mint and
// returns the first one that is swappable and has a decodable Serum market.
func (d *Discovery) discoverRaydium(ctx context.Context) (*RaydiumEnv, error) {
	accounts, err := d.client.GetProgramAccountsWithOpts(ctx, RaydiumAmmV4Program, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{DataSize: RaydiumAmmV4Size},
			{Memcmp: &rpc.RPCFilterMemcmp{
				Offset: RaydiumAmmV4Offsets.QuoteMint,
				Bytes:  solana.Base58(d.quoteMint.Bytes()),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan amm v4 pools: %w", err)
	}

	for _, acc := range accounts {
		state, err := DecodeRaydiumAmmV4(acc.Account.Data.GetBinary())
		if err != nil {
			d.logger.Debug().Str("account", acc.Pubkey.String()).Err(err).Msg("skipping undecodable pool account")
			continue
		}
		if !swapEnabled(state.Status) {
			d.logger.Debug().Str("pool", acc.Pubkey.String()).Uint64("status", state.Status).Msg("skipping pool, swaps not enabled")
			continue
		}

		env, err := d.assembleRaydium(ctx, acc.Pubkey, state)
		if err != nil {
			d.logger.Warn().Str("pool", acc.Pubkey.String()).Err(err).Msg("skipping pool, market unusable")
			continue
		}
		return env, nil
	}

	return nil, fmt.Errorf("no usable amm v4 pool quoted in %s", d.quoteMint)
}

// swapEnabled filters the AMM status field: swaps are rejected when the pool
// is uninitialized (0), disabled (2), withdraw-only (3) or deposit-only (4).
func swapEnabled(status uint64) bool {
	switch status {
	case 0, 2, 3, 4:
		return false
	}
	return true
}

func (d *Discovery) assembleRaydium(ctx context.Context, poolID solana.PublicKey, state *RaydiumAmmV4) (*RaydiumEnv, error) {
	authority, err := RaydiumAuthority(state.Nonce)
	if err != nil {
		return nil, fmt.Errorf("derive amm authority: %w", err)
	}

	info, err := d.client.GetAccountInfoWithOpts(ctx, state.MarketID, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch serum market %s: %w", state.MarketID, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("serum market %s does not exist", state.MarketID)
	}

	market, err := DecodeSerumMarketV3(info.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("decode serum market %s: %w", state.MarketID, err)
	}
	if !market.OwnAddress.Equals(state.MarketID) {
		return nil, fmt.Errorf("market state own address %s does not match %s", market.OwnAddress, state.MarketID)
	}

	vaultSigner, err := SerumVaultSigner(state.MarketID, market.VaultSignerNonce, state.MarketProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive vault signer: %w", err)
	}

	return &RaydiumEnv{
		AmmID:             poolID,
		AmmAuthority:      authority,
		OpenOrders:        state.OpenOrders,
		TargetOrders:      state.TargetOrders,
		BaseVault:         state.BaseVault,
		QuoteVault:        state.QuoteVault,
		BaseMint:          state.BaseMint,
		QuoteMint:         state.QuoteMint,
		MarketProgram:     state.MarketProgramID,
		MarketID:          state.MarketID,
		MarketBids:        market.Bids,
		MarketAsks:        market.Asks,
		MarketEventQueue:  market.EventQueue,
		MarketBaseVault:   market.BaseVault,
		MarketQuoteVault:  market.QuoteVault,
		MarketVaultSigner: vaultSigner,
	}, nil
}

// discoverMeteora scans for LbPair accounts by Anchor discriminator and
// returns the first enabled pair with the configured mint on either side.
func (d *Discovery) discoverMeteora(ctx context.Context) (*MeteoraEnv, error) {
	accounts, err := d.client.GetProgramAccountsWithOpts(ctx, MeteoraDLMMProgram, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 0,
				Bytes:  solana.Base58(AnchorAccountDiscriminator("LbPair")),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan lb pairs: %w", err)
	}

	for _, acc := range accounts {
		pair, err := DecodeMeteoraLbPair(acc.Account.Data.GetBinary())
		if err != nil {
			d.logger.Debug().Str("account", acc.Pubkey.String()).Err(err).Msg("skipping undecodable lb pair")
			continue
		}
		// PairStatus: 0 enabled, 1 disabled.
		if pair.Status != 0 {
			d.logger.Debug().Str("pair", acc.Pubkey.String()).Uint8("status", pair.Status).Msg("skipping disabled lb pair")
			continue
		}
		if !pair.TokenXMint.Equals(d.quoteMint) && !pair.TokenYMint.Equals(d.quoteMint) {
			continue
		}

		env, err := d.assembleMeteora(acc.Pubkey, pair)
		if err != nil {
			d.logger.Warn().Str("pair", acc.Pubkey.String()).Err(err).Msg("skipping lb pair, derivation failed")
			continue
		}
		return env, nil
	}

	return nil, fmt.Errorf("no usable lb pair with side %s", d.quoteMint)
}

func (d *Discovery) assembleMeteora(pairID solana.PublicKey, pair *MeteoraLbPair) (*MeteoraEnv, error) {
	// The swap touches the active bin array and may spill into a neighbour,
	// so both sides of the active index are included.
	active := BinArrayIndex(pair.ActiveID)
	binArrays := make([]solana.PublicKey, 0, 3)
	for idx := active - 1; idx <= active+1; idx++ {
		addr, err := DeriveBinArray(pairID, idx)
		if err != nil {
			return nil, fmt.Errorf("derive bin array %d: %w", idx, err)
		}
		binArrays = append(binArrays, addr)
	}

	eventAuthority, err := DeriveEventAuthority()
	if err != nil {
		return nil, fmt.Errorf("derive event authority: %w", err)
	}

	return &MeteoraEnv{
		LbPair:         pairID,
		TokenXMint:     pair.TokenXMint,
		TokenYMint:     pair.TokenYMint,
		ReserveX:       pair.ReserveX,
		ReserveY:       pair.ReserveY,
		Oracle:         pair.Oracle,
		QuoteMint:      d.quoteMint,
		ActiveID:       pair.ActiveID,
		BinStep:        pair.BinStep,
		BinArrays:      binArrays,
		EventAuthority: eventAuthority,
	}, nil
}
