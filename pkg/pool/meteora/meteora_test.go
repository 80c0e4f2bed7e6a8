package meteora

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingWOW/clmmctl/internal/testutil"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/quote"
	"lukechampine.com/uint128"
)

var testLbPair = solana.MustPublicKeyFromBase58("BVRbyLjjfSBcoyiYFuxbgKYnWuiFaF9CSXEa5vdSZ9Hh")

func discriminator(prefix, name string) []byte {
	sum := sha256.Sum256([]byte(prefix + ":" + name))
	return sum[:8]
}

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, discriminator("account", "LbPair"), LbPairDiscriminator)
	assert.Equal(t, discriminator("account", "Position"), PositionDiscriminator)
	assert.Equal(t, discriminator("account", "PositionV2"), PositionV2Discriminator)
	assert.Equal(t, discriminator("global", "initialize_position"), InitializePositionDiscriminator)
	assert.Equal(t, discriminator("global", "add_liquidity"), AddLiquidityDiscriminator)
	assert.Equal(t, discriminator("global", "remove_all_liquidity"), RemoveAllLiquidityDiscriminator)
	assert.Equal(t, discriminator("global", "close_position_if_empty"), ClosePositionIfEmptyDiscriminator)
	assert.Equal(t, discriminator("global", "swap"), SwapDiscriminator)
}

func TestDerivePDAs(t *testing.T) {
	for index, want := range map[int64]string{
		-1: "BHmD8Ab3JjxcuzH1weaQ2KNascEEJpnCo79BidMpttBr",
		0:  "4QQFUCqK7Y3gmFiKFMGW1aejZv79rxeBVnv61LN3w3y9",
		1:  "12Tv8njbRAfv2PZfuwA9bBoT7cYN6q9XFc4rajDUaidb",
	} {
		assert.Equal(t, want, DeriveBinArrayPDA(testLbPair, index).String(), "index %d", index)
	}
	assert.Equal(t, "D1ZN9Wj1fRSUQfCjhvnu1hqDMT7hzjzBBpi12nVniYD6", DeriveEventAuthorityPDA().String())
}

func TestBinArrayIndex(t *testing.T) {
	tests := []struct {
		bin  int32
		want int64
	}{
		{0, 0}, {69, 0}, {70, 1}, {-1, -1}, {-70, -1}, {-71, -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BinArrayIndex(tt.bin), "bin %d", tt.bin)
	}
}

func TestPositionBinArraysPerturbsSharedArray(t *testing.T) {
	lower, upper := PositionBinArrays(5, 10)
	assert.Equal(t, int64(0), lower)
	assert.Equal(t, int64(1), upper)
	assert.NotEqual(t, DeriveBinArrayPDA(testLbPair, lower), DeriveBinArrayPDA(testLbPair, upper))

	lower, upper = PositionBinArrays(-10, 10)
	assert.Equal(t, int64(-1), lower)
	assert.Equal(t, int64(0), upper)
}

func lbPairBytes(active int32, binStep uint16, mintX, mintY, reserveX, reserveY, oracle solana.PublicKey, initialized ...int64) []byte {
	data := make([]byte, LB_PAIR_SIZE)
	copy(data, LbPairDiscriminator)
	binary.LittleEndian.PutUint32(data[76:], uint32(active))
	binary.LittleEndian.PutUint16(data[80:], binStep)
	copy(data[88:], mintX[:])
	copy(data[120:], mintY[:])
	copy(data[152:], reserveX[:])
	copy(data[184:], reserveY[:])
	copy(data[552:], oracle[:])
	for _, g := range initialized {
		bit := g + BIN_ARRAY_BITMAP_SIZE
		word := 584 + int(bit/64)*8
		v := binary.LittleEndian.Uint64(data[word:]) | 1<<(uint(bit)%64)
		binary.LittleEndian.PutUint64(data[word:], v)
	}
	return data
}

func TestDecodeLbPair(t *testing.T) {
	mintX, mintY, rx, ry, oracle := testutil.Key(1), testutil.Key(2), testutil.Key(3), testutil.Key(4), testutil.Key(5)
	data := lbPairBytes(-7, 25, mintX, mintY, rx, ry, oracle, -2, 0)

	p, err := DecodeLbPair(&pkg.Account{Address: testLbPair, Owner: METEORA_DLMM_PROGRAM_ID, Data: data})
	require.NoError(t, err)
	assert.Equal(t, int32(-7), p.ActiveId)
	assert.Equal(t, uint16(25), p.BinStep)
	assert.Equal(t, oracle, p.Oracle)
	assert.InDelta(t, 1.0025, p.BinBase(), 1e-12)

	st := p.State()
	assert.Equal(t, mintX, st.MintA)
	assert.Equal(t, mintY, st.MintB)
	assert.Equal(t, rx, st.VaultA)
	assert.Equal(t, ry, st.VaultB)
	assert.Equal(t, uint16(25), st.Granularity)
	assert.Equal(t, int32(-7), st.CurrentIndex)
	assert.True(t, st.SqrtPriceX64.IsZero())

	var decErr *pkg.DecodeError
	_, err = DecodeLbPair(&pkg.Account{Address: testLbPair, Owner: METEORA_DLMM_PROGRAM_ID, Data: data[:LB_PAIR_SIZE-1]})
	assert.ErrorAs(t, err, &decErr)
	_, err = DecodeLbPair(&pkg.Account{Address: testLbPair, Owner: solana.SystemProgramID, Data: data})
	assert.ErrorAs(t, err, &decErr)
}

func TestSwapBinArrayIndexes(t *testing.T) {
	k := testutil.Key(1)
	p, err := DecodeLbPair(&pkg.Account{Address: testLbPair, Owner: METEORA_DLMM_PROGRAM_ID,
		Data: lbPairBytes(5, 10, k, k, k, k, k, -2, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, -2}, p.SwapBinArrayIndexes(true))
	assert.Equal(t, []int64{0, 1}, p.SwapBinArrayIndexes(false))

	// nothing initialized: fixed window around the active array
	p, err = DecodeLbPair(&pkg.Account{Address: testLbPair, Owner: METEORA_DLMM_PROGRAM_ID,
		Data: lbPairBytes(5, 10, k, k, k, k, k)})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, -1}, p.SwapBinArrayIndexes(true))

	p.ActiveId = 600 * BINS_PER_ARRAY
	assert.Equal(t, []int64{600, 601, 599}, p.SwapBinArrayIndexes(false))
}

func positionBytes(v2 bool, lbPair, owner solana.PublicKey, lower, upper int32) []byte {
	layout := positionLayouts[0]
	data := make([]byte, POSITION_SIZE)
	copy(data, PositionDiscriminator)
	if v2 {
		layout = positionLayouts[1]
		data = make([]byte, POSITION_V2_SIZE)
		copy(data, PositionV2Discriminator)
	}
	copy(data[8:], lbPair[:])
	copy(data[40:], owner[:])
	binary.LittleEndian.PutUint32(data[layout.lowerBinId:], uint32(lower))
	binary.LittleEndian.PutUint32(data[layout.upperBinId:], uint32(upper))
	for b := 0; b <= int(upper-lower); b++ {
		off := layout.shares + b*layout.shareSize
		if v2 {
			uint128.From64(100).PutBytes(data[off:])
		} else {
			binary.LittleEndian.PutUint64(data[off:], 100)
		}
		fee := layout.feeInfos + b*POSITION_FEE_INFO_SIZE
		binary.LittleEndian.PutUint64(data[fee+32:], 1)
		binary.LittleEndian.PutUint64(data[fee+40:], 2)
	}
	return data
}

func TestDecodePosition(t *testing.T) {
	owner := testutil.Key(9)
	addr := testutil.Key(10)
	for _, v2 := range []bool{false, true} {
		data := positionBytes(v2, testLbPair, owner, 5, 10)
		pos, err := DecodePosition(&pkg.Account{Address: addr, Owner: METEORA_DLMM_PROGRAM_ID, Data: data})
		require.NoError(t, err, "v2=%v", v2)
		assert.Equal(t, v2, pos.V2)
		assert.Equal(t, owner, pos.Owner)

		st := pos.State()
		assert.Equal(t, addr, st.Identifier)
		assert.Equal(t, addr, st.Address)
		assert.Equal(t, testLbPair, st.Pool)
		assert.Equal(t, int32(5), st.Lower)
		assert.Equal(t, int32(10), st.Upper)
		assert.Equal(t, uint128.From64(600), st.Liquidity)
		assert.Equal(t, uint64(6), st.FeesOwedA)
		assert.Equal(t, uint64(12), st.FeesOwedB)
	}
}

func TestDecodePositionRejects(t *testing.T) {
	addr := testutil.Key(10)
	var decErr *pkg.DecodeError

	_, err := DecodePosition(&pkg.Account{Address: addr, Owner: METEORA_DLMM_PROGRAM_ID, Data: make([]byte, 8000)})
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, decErr.Reason, "data length 8000")

	// V1 size carrying the V2 discriminator
	data := make([]byte, POSITION_SIZE)
	copy(data, PositionV2Discriminator)
	_, err = DecodePosition(&pkg.Account{Address: addr, Owner: METEORA_DLMM_PROGRAM_ID, Data: data})
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, decErr.Reason, "discriminator")
}

func TestInitializePositionInstruction(t *testing.T) {
	payer, position := testutil.Key(1), testutil.Key(2)
	ix := NewInitializePositionInstruction(payer, position, testLbPair, payer, -3, 6)
	metas := ix.Accounts()
	require.Len(t, metas, 8)
	assert.True(t, metas[1].IsSigner)
	assert.Equal(t, DeriveEventAuthorityPDA(), metas[6].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 16)
	assert.Equal(t, int32(-3), int32(binary.LittleEndian.Uint32(data[8:])))
	assert.Equal(t, int32(6), int32(binary.LittleEndian.Uint32(data[12:])))
}

func TestAddLiquidityInstruction(t *testing.T) {
	shares, err := quote.Distribute(5, 10, 7, 1000, 2000)
	require.NoError(t, err)

	ix := NewAddLiquidityInstruction(1000, 2000, shares, LiquidityAccounts{Position: testutil.Key(2), LbPair: testLbPair, Sender: testutil.Key(1)})
	metas := ix.Accounts()
	require.Len(t, metas, 16)
	// no bitmap extension: the program id stands in, read only
	assert.Equal(t, METEORA_DLMM_PROGRAM_ID, metas[2].PublicKey)
	assert.False(t, metas[2].IsWritable)
	assert.True(t, metas[11].IsSigner)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+8+8+4+6*8)
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(data[24:]))
	first := data[28:]
	assert.Equal(t, int32(5), int32(binary.LittleEndian.Uint32(first)))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(first[4:]))
	assert.Equal(t, uint16(3333), binary.LittleEndian.Uint16(first[6:]))
}

func TestRemoveAndCloseInstructions(t *testing.T) {
	ext := testutil.Key(7)
	remove := NewRemoveAllLiquidityInstruction(LiquidityAccounts{Position: testutil.Key(2), LbPair: testLbPair, BitmapExtension: ext})
	require.Len(t, remove.Accounts(), 16)
	assert.Equal(t, ext, remove.Accounts()[2].PublicKey)
	data, err := remove.Data()
	require.NoError(t, err)
	assert.Equal(t, RemoveAllLiquidityDiscriminator, data)

	closeIx := NewClosePositionIfEmptyInstruction(testutil.Key(2), testutil.Key(1))
	require.Len(t, closeIx.Accounts(), 5)
	assert.True(t, closeIx.Accounts()[2].IsWritable)
}

func TestSwapInstruction(t *testing.T) {
	arrays := []solana.PublicKey{DeriveBinArrayPDA(testLbPair, 0), DeriveBinArrayPDA(testLbPair, -1)}
	ix := NewSwapInstruction(500, 490, SwapAccounts{LbPair: testLbPair, User: testutil.Key(1), BinArrays: arrays})
	metas := ix.Accounts()
	require.Len(t, metas, 15+2)
	assert.Equal(t, METEORA_DLMM_PROGRAM_ID, metas[1].PublicKey)
	assert.Equal(t, METEORA_DLMM_PROGRAM_ID, metas[9].PublicKey)
	assert.True(t, metas[10].IsSigner)
	assert.Equal(t, arrays[1], metas[16].PublicKey)
	assert.True(t, metas[16].IsWritable)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, uint64(500), binary.LittleEndian.Uint64(data[8:]))
	assert.Equal(t, uint64(490), binary.LittleEndian.Uint64(data[16:]))
}
