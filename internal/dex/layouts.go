package dex

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// RaydiumAmmV4Size is the byte size of an AMM v4 liquidity state account.
	RaydiumAmmV4Size = 752

	// SerumMarketV3Size is the byte size of a Serum v3 market state account.
	SerumMarketV3Size = 388

	// MeteoraLbPairHeadSize is the portion of an LbPair account the harness
	// decodes, from the end of the discriminator through the oracle field.
	MeteoraLbPairHeadSize = 576
)

// RaydiumAmmV4 mirrors the Raydium AMM v4 liquidity state account. All
// integers are little-endian; field order matches the on-chain layout, so the
// offsets in RaydiumAmmV4Offsets follow from it directly.
type RaydiumAmmV4 struct {
	Status                 uint64
	Nonce                  uint64
	MaxOrder               uint64
	Depth                  uint64
	BaseDecimal            uint64
	QuoteDecimal           uint64
	State                  uint64
	ResetFlag              uint64
	MinSize                uint64
	VolMaxCutRatio         uint64
	AmountWaveRatio        uint64
	BaseLotSize            uint64
	QuoteLotSize           uint64
	MinPriceMultiplier     uint64
	MaxPriceMultiplier     uint64
	SystemDecimalValue     uint64
	MinSeparateNumerator   uint64
	MinSeparateDenominator uint64
	TradeFeeNumerator      uint64
	TradeFeeDenominator    uint64
	PnlNumerator           uint64
	PnlDenominator         uint64
	SwapFeeNumerator       uint64
	SwapFeeDenominator     uint64
	BaseNeedTakePnl        uint64
	QuoteNeedTakePnl       uint64
	QuoteTotalPnl          uint64
	BaseTotalPnl           uint64
	PoolOpenTime           uint64
	PunishPcAmount         uint64
	PunishCoinAmount       uint64
	OrderbookToInitTime    uint64
	SwapBaseInAmount       bin.Uint128
	SwapQuoteOutAmount     bin.Uint128
	SwapBase2QuoteFee      uint64
	SwapQuoteInAmount      bin.Uint128
	SwapBaseOutAmount      bin.Uint128
	SwapQuote2BaseFee      uint64
	BaseVault              solana.PublicKey
	QuoteVault             solana.PublicKey
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	LpMint                 solana.PublicKey
	OpenOrders             solana.PublicKey
	MarketID               solana.PublicKey
	MarketProgramID        solana.PublicKey
	TargetOrders           solana.PublicKey
	WithdrawQueue          solana.PublicKey
	LpVault                solana.PublicKey
	Owner                  solana.PublicKey
	LpReserve              uint64
	Padding                [3]uint64
}

// RaydiumAmmV4Offsets holds the byte offsets of the AMM v4 fields used in
// getProgramAccounts memcmp filters. The layout test asserts each one against
// the encoded form of RaydiumAmmV4.
var RaydiumAmmV4Offsets = struct {
	BaseVault  uint64
	QuoteVault uint64
	BaseMint   uint64
	QuoteMint  uint64
	MarketID   uint64
}{
	BaseVault:  336,
	QuoteVault: 368,
	BaseMint:   400,
	QuoteMint:  432,
	MarketID:   528,
}

// DecodeRaydiumAmmV4 decodes an AMM v4 liquidity state account.
func DecodeRaydiumAmmV4(data []byte) (*RaydiumAmmV4, error) {
	if len(data) != RaydiumAmmV4Size {
		return nil, fmt.Errorf("amm v4 account is %d bytes, want %d", len(data), RaydiumAmmV4Size)
	}
	var state RaydiumAmmV4
	if err := bin.NewBinDecoder(data).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode amm v4 state: %w", err)
	}
	return &state, nil
}

// SerumMarketV3 mirrors the Serum v3 market state account. The account is
// framed by 5 leading and 7 trailing padding bytes around the serialized
// struct.
type SerumMarketV3 struct {
	HeadPadding            [5]byte
	AccountFlags           uint64
	OwnAddress             solana.PublicKey
	VaultSignerNonce       uint64
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	BaseVault              solana.PublicKey
	BaseDepositsTotal      uint64
	BaseFeesAccrued        uint64
	QuoteVault             solana.PublicKey
	QuoteDepositsTotal     uint64
	QuoteFeesAccrued       uint64
	QuoteDustThreshold     uint64
	RequestQueue           solana.PublicKey
	EventQueue             solana.PublicKey
	Bids                   solana.PublicKey
	Asks                   solana.PublicKey
	BaseLotSize            uint64
	QuoteLotSize           uint64
	FeeRateBps             uint64
	ReferrerRebatesAccrued uint64
	TailPadding            [7]byte
}

// DecodeSerumMarketV3 decodes a Serum v3 market state account.
func DecodeSerumMarketV3(data []byte) (*SerumMarketV3, error) {
	if len(data) < SerumMarketV3Size {
		return nil, fmt.Errorf("serum market account is %d bytes, want at least %d", len(data), SerumMarketV3Size)
	}
	var market SerumMarketV3
	if err := bin.NewBinDecoder(data).Decode(&market); err != nil {
		return nil, fmt.Errorf("decode serum market state: %w", err)
	}
	return &market, nil
}

// LbPairStaticParameters is the pool-level fee configuration of an LbPair.
type LbPairStaticParameters struct {
	BaseFactor               uint16
	FilterPeriod             uint16
	DecayPeriod              uint16
	ReductionFactor          uint16
	VariableFeeControl       uint32
	MaxVolatilityAccumulator uint32
	MinBinID                 int32
	MaxBinID                 int32
	ProtocolShare            uint16
	Padding                  [6]uint8
}

// LbPairVariableParameters is the volatility tracker of an LbPair.
type LbPairVariableParameters struct {
	VolatilityAccumulator uint32
	VolatilityReference   uint32
	IndexReference        int32
	Padding               [4]uint8
	LastUpdateTimestamp   int64
	Padding1              [8]uint8
}

// LbPairProtocolFee is the protocol fee owed per token side.
type LbPairProtocolFee struct {
	AmountX uint64
	AmountY uint64
}

// LbPairRewardInfo describes one of the two liquidity mining reward slots.
type LbPairRewardInfo struct {
	Mint                    solana.PublicKey
	Vault                   solana.PublicKey
	Funder                  solana.PublicKey
	RewardDuration          uint64
	RewardDurationEnd       uint64
	RewardRate              bin.Uint128
	LastUpdateTime          uint64
	CumulativeSecondsEmpty  uint64
}

// MeteoraLbPair mirrors the head of a Meteora DLMM LbPair account, starting
// after the 8-byte discriminator and ending at the oracle field. Fields past
// the oracle (bin array bitmap, fee state) are not decoded.
type MeteoraLbPair struct {
	Parameters              LbPairStaticParameters
	VParameters             LbPairVariableParameters
	BumpSeed                [1]uint8
	BinStepSeed             [2]uint8
	PairType                uint8
	ActiveID                int32
	BinStep                 uint16
	Status                  uint8
	RequireBaseFactorSeed   uint8
	BaseFactorSeed          [2]uint8
	ActivationType          uint8
	CreatorPoolOnOffControl uint8
	TokenXMint              solana.PublicKey
	TokenYMint              solana.PublicKey
	ReserveX                solana.PublicKey
	ReserveY                solana.PublicKey
	ProtocolFee             LbPairProtocolFee
	Padding1                [32]uint8
	RewardInfos             [2]LbPairRewardInfo
	Oracle                  solana.PublicKey
}

// DecodeMeteoraLbPair decodes the head of an LbPair account, verifying the
// Anchor discriminator first.
func DecodeMeteoraLbPair(data []byte) (*MeteoraLbPair, error) {
	if len(data) < 8+MeteoraLbPairHeadSize {
		return nil, fmt.Errorf("lb pair account is %d bytes, want at least %d", len(data), 8+MeteoraLbPairHeadSize)
	}
	if !bytes.Equal(data[:8], AnchorAccountDiscriminator("LbPair")) {
		return nil, fmt.Errorf("account discriminator is not LbPair")
	}
	var pair MeteoraLbPair
	if err := bin.NewBinDecoder(data[8:]).Decode(&pair); err != nil {
		return nil, fmt.Errorf("decode lb pair state: %w", err)
	}
	return &pair, nil
}
