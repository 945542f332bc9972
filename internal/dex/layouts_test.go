package dex

import (
	"bytes"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) solana.PublicKey {
	return solana.PublicKeyFromBytes(bytes.Repeat([]byte{b}, 32))
}

func encodeLayout(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(v))
	return buf.Bytes()
}

func TestRaydiumAmmV4Layout(t *testing.T) {
	state := RaydiumAmmV4{
		Status:          6,
		Nonce:           254,
		BaseLotSize:     100,
		QuoteLotSize:    10,
		BaseVault:       testKey(0x11),
		QuoteVault:      testKey(0x22),
		BaseMint:        testKey(0x33),
		QuoteMint:       testKey(0x44),
		LpMint:          testKey(0x55),
		OpenOrders:      testKey(0x66),
		MarketID:        testKey(0x77),
		MarketProgramID: testKey(0x88),
		TargetOrders:    testKey(0x99),
	}

	raw := encodeLayout(t, state)
	require.Len(t, raw, RaydiumAmmV4Size)

	// The declared filter offsets must agree with where the encoder put the
	// fields. A drift here would silently break the memcmp scans.
	fields := []struct {
		name   string
		offset uint64
		want   solana.PublicKey
	}{
		{"base_vault", RaydiumAmmV4Offsets.BaseVault, state.BaseVault},
		{"quote_vault", RaydiumAmmV4Offsets.QuoteVault, state.QuoteVault},
		{"base_mint", RaydiumAmmV4Offsets.BaseMint, state.BaseMint},
		{"quote_mint", RaydiumAmmV4Offsets.QuoteMint, state.QuoteMint},
		{"market_id", RaydiumAmmV4Offsets.MarketID, state.MarketID},
	}
	for _, f := range fields {
		got := solana.PublicKeyFromBytes(raw[f.offset : f.offset+32])
		assert.Equal(t, f.want, got, "offset of %s", f.name)
	}

	decoded, err := DecodeRaydiumAmmV4(raw)
	require.NoError(t, err)
	assert.Equal(t, &state, decoded)
}

func TestDecodeRaydiumAmmV4RejectsWrongSize(t *testing.T) {
	_, err := DecodeRaydiumAmmV4(make([]byte, RaydiumAmmV4Size-1))
	require.ErrorContains(t, err, "want 752")

	_, err = DecodeRaydiumAmmV4(make([]byte, RaydiumAmmV4Size+8))
	require.ErrorContains(t, err, "want 752")
}

func TestSerumMarketV3Layout(t *testing.T) {
	market := SerumMarketV3{
		AccountFlags:     3,
		OwnAddress:       testKey(0xA1),
		VaultSignerNonce: 1,
		BaseMint:         testKey(0xA2),
		QuoteMint:        testKey(0xA3),
		BaseVault:        testKey(0xA4),
		QuoteVault:       testKey(0xA5),
		RequestQueue:     testKey(0xA6),
		EventQueue:       testKey(0xA7),
		Bids:             testKey(0xA8),
		Asks:             testKey(0xA9),
		BaseLotSize:      1000,
		QuoteLotSize:     10,
	}

	raw := encodeLayout(t, market)
	require.Len(t, raw, SerumMarketV3Size)

	// Canonical market state v3 offsets.
	assert.Equal(t, market.OwnAddress, solana.PublicKeyFromBytes(raw[13:45]), "own_address")
	assert.Equal(t, market.VaultSignerNonce, binary.LittleEndian.Uint64(raw[45:53]), "vault_signer_nonce")
	assert.Equal(t, market.BaseMint, solana.PublicKeyFromBytes(raw[53:85]), "base_mint")
	assert.Equal(t, market.QuoteMint, solana.PublicKeyFromBytes(raw[85:117]), "quote_mint")
	assert.Equal(t, market.BaseVault, solana.PublicKeyFromBytes(raw[117:149]), "base_vault")
	assert.Equal(t, market.QuoteVault, solana.PublicKeyFromBytes(raw[165:197]), "quote_vault")
	assert.Equal(t, market.EventQueue, solana.PublicKeyFromBytes(raw[253:285]), "event_queue")
	assert.Equal(t, market.Bids, solana.PublicKeyFromBytes(raw[285:317]), "bids")
	assert.Equal(t, market.Asks, solana.PublicKeyFromBytes(raw[317:349]), "asks")

	decoded, err := DecodeSerumMarketV3(raw)
	require.NoError(t, err)
	assert.Equal(t, &market, decoded)
}

func TestDecodeSerumMarketV3RejectsShortData(t *testing.T) {
	_, err := DecodeSerumMarketV3(make([]byte, SerumMarketV3Size-1))
	require.ErrorContains(t, err, "at least 388")
}

func TestMeteoraLbPairLayout(t *testing.T) {
	pair := MeteoraLbPair{
		ActiveID:   -3142,
		BinStep:    25,
		Status:     0,
		TokenXMint: testKey(0xB1),
		TokenYMint: testKey(0xB2),
		ReserveX:   testKey(0xB3),
		ReserveY:   testKey(0xB4),
		Oracle:     testKey(0xB5),
	}

	body := encodeLayout(t, pair)
	require.Len(t, body, MeteoraLbPairHeadSize)

	raw := append(AnchorAccountDiscriminator("LbPair"), body...)
	// A live account carries state past the oracle field; the decoder must
	// tolerate the extra bytes.
	raw = append(raw, make([]byte, 256)...)

	decoded, err := DecodeMeteoraLbPair(raw)
	require.NoError(t, err)
	assert.Equal(t, pair.ActiveID, decoded.ActiveID)
	assert.Equal(t, pair.BinStep, decoded.BinStep)
	assert.Equal(t, pair.TokenXMint, decoded.TokenXMint)
	assert.Equal(t, pair.TokenYMint, decoded.TokenYMint)
	assert.Equal(t, pair.ReserveX, decoded.ReserveX)
	assert.Equal(t, pair.ReserveY, decoded.ReserveY)
	assert.Equal(t, pair.Oracle, decoded.Oracle)

	// Absolute positions of the fields the swap step depends on.
	assert.Equal(t, pair.ActiveID, int32(binary.LittleEndian.Uint32(raw[76:80])), "active_id")
	assert.Equal(t, pair.BinStep, binary.LittleEndian.Uint16(raw[80:82]), "bin_step")
	assert.Equal(t, pair.TokenXMint, solana.PublicKeyFromBytes(raw[88:120]), "token_x_mint")
	assert.Equal(t, pair.TokenYMint, solana.PublicKeyFromBytes(raw[120:152]), "token_y_mint")
}

func TestDecodeMeteoraLbPairRejectsBadInput(t *testing.T) {
	t.Run("short data", func(t *testing.T) {
		_, err := DecodeMeteoraLbPair(make([]byte, 100))
		require.ErrorContains(t, err, "at least")
	})

	t.Run("wrong discriminator", func(t *testing.T) {
		raw := make([]byte, 8+MeteoraLbPairHeadSize)
		copy(raw[:8], AnchorAccountDiscriminator("BinArray"))
		_, err := DecodeMeteoraLbPair(raw)
		require.ErrorContains(t, err, "discriminator is not LbPair")
	})
}

func TestAnchorDiscriminators(t *testing.T) {
	// Discriminators are the head of a sha256 digest, so they are 8 bytes,
	// stable, and distinct between the account and instruction namespaces.
	acc := AnchorAccountDiscriminator("LbPair")
	ins := AnchorInstructionDiscriminator("swap")

	assert.Len(t, acc, 8)
	assert.Len(t, ins, 8)
	assert.Equal(t, acc, AnchorAccountDiscriminator("LbPair"))
	assert.NotEqual(t, acc, AnchorInstructionDiscriminator("LbPair"))
}
