// Package fixtures encodes minimal on-chain account images for cross-package tests.
package fixtures

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/internal/testutil"
	"github.com/yimingWOW/clmmctl/pkg/pool/meteora"
	"github.com/yimingWOW/clmmctl/pkg/pool/orca"
	"github.com/yimingWOW/clmmctl/pkg/pool/raydium"
	"github.com/yimingWOW/clmmctl/pkg/sol"
	"lukechampine.com/uint128"
)

// Q64 is sqrt price 1.0 in Q64.64.
var Q64 = uint128.From64(1).Lsh(64)

type RaydiumPool struct {
	Address        solana.PublicKey
	AmmConfig      solana.PublicKey
	Mint0, Mint1   solana.PublicKey
	Vault0, Vault1 solana.PublicKey
	Observation    solana.PublicKey
	TickSpacing    uint16
	TickCurrent    int32
	SqrtPriceX64   uint128.Uint128
	Liquidity      uint128.Uint128
	RewardMints    []solana.PublicKey
	RewardVaults   []solana.PublicKey
	// Initialized tick array indexes (start / (spacing*60)).
	TickArrays []int64
}

func (f RaydiumPool) Bytes() []byte {
	data := make([]byte, raydium.POOL_STATE_SIZE)
	copy(data, raydium.PoolStateDiscriminator)
	copy(data[9:], f.AmmConfig[:])
	copy(data[73:], f.Mint0[:])
	copy(data[105:], f.Mint1[:])
	copy(data[137:], f.Vault0[:])
	copy(data[169:], f.Vault1[:])
	copy(data[201:], f.Observation[:])
	data[233], data[234] = 9, 6
	binary.LittleEndian.PutUint16(data[235:], f.TickSpacing)
	f.Liquidity.PutBytes(data[237:])
	f.SqrtPriceX64.PutBytes(data[253:])
	binary.LittleEndian.PutUint32(data[269:], uint32(f.TickCurrent))
	for i := range f.RewardMints {
		base := 397 + i*raydium.REWARD_INFO_SIZE
		data[base] = 1
		copy(data[base+57:], f.RewardMints[i][:])
		copy(data[base+89:], f.RewardVaults[i][:])
	}
	setBits(data, 397+raydium.REWARD_NUM*raydium.REWARD_INFO_SIZE, raydium.TICK_ARRAY_BITMAP_SIZE, f.TickArrays)
	return data
}

func (f RaydiumPool) Put(r *testutil.Reader) *testutil.Reader {
	return r.Put(f.Address, raydium.RAYDIUM_CLMM_PROGRAM_ID, f.Bytes())
}

type RaydiumPosition struct {
	NftMint      solana.PublicKey
	Pool         solana.PublicKey
	Lower, Upper int32
	Liquidity    uint128.Uint128
	FeesOwed0    uint64
	FeesOwed1    uint64
}

func (f RaydiumPosition) Bytes() []byte {
	data := make([]byte, raydium.PERSONAL_POSITION_SIZE)
	copy(data, raydium.PersonalPositionDiscriminator)
	copy(data[9:], f.NftMint[:])
	copy(data[41:], f.Pool[:])
	binary.LittleEndian.PutUint32(data[73:], uint32(f.Lower))
	binary.LittleEndian.PutUint32(data[77:], uint32(f.Upper))
	f.Liquidity.PutBytes(data[81:])
	binary.LittleEndian.PutUint64(data[129:], f.FeesOwed0)
	binary.LittleEndian.PutUint64(data[137:], f.FeesOwed1)
	return data
}

func (f RaydiumPosition) Put(r *testutil.Reader) *testutil.Reader {
	return r.Put(raydium.DerivePersonalPositionPDA(f.NftMint), raydium.RAYDIUM_CLMM_PROGRAM_ID, f.Bytes())
}

type Whirlpool struct {
	Address        solana.PublicKey
	MintA, MintB   solana.PublicKey
	VaultA, VaultB solana.PublicKey
	TickSpacing    uint16
	TickCurrent    int32
	SqrtPrice      uint128.Uint128
	Liquidity      uint128.Uint128
}

func (f Whirlpool) Bytes() []byte {
	data := make([]byte, orca.WHIRLPOOL_SIZE)
	copy(data, orca.WhirlpoolDiscriminator)
	binary.LittleEndian.PutUint16(data[41:], f.TickSpacing)
	binary.LittleEndian.PutUint16(data[45:], 3000)
	f.Liquidity.PutBytes(data[49:])
	f.SqrtPrice.PutBytes(data[65:])
	binary.LittleEndian.PutUint32(data[81:], uint32(f.TickCurrent))
	copy(data[101:], f.MintA[:])
	copy(data[133:], f.VaultA[:])
	copy(data[181:], f.MintB[:])
	copy(data[213:], f.VaultB[:])
	return data
}

func (f Whirlpool) Put(r *testutil.Reader) *testutil.Reader {
	return r.Put(f.Address, orca.ORCA_WHIRLPOOL_PROGRAM_ID, f.Bytes())
}

type WhirlpoolPosition struct {
	Whirlpool    solana.PublicKey
	PositionMint solana.PublicKey
	Lower, Upper int32
	Liquidity    uint128.Uint128
	FeeOwedA     uint64
	FeeOwedB     uint64
}

func (f WhirlpoolPosition) Bytes() []byte {
	data := make([]byte, orca.POSITION_SIZE)
	copy(data, orca.PositionDiscriminator)
	copy(data[8:], f.Whirlpool[:])
	copy(data[40:], f.PositionMint[:])
	f.Liquidity.PutBytes(data[72:])
	binary.LittleEndian.PutUint32(data[88:], uint32(f.Lower))
	binary.LittleEndian.PutUint32(data[92:], uint32(f.Upper))
	binary.LittleEndian.PutUint64(data[112:], f.FeeOwedA)
	binary.LittleEndian.PutUint64(data[136:], f.FeeOwedB)
	return data
}

func (f WhirlpoolPosition) Put(r *testutil.Reader) *testutil.Reader {
	addr, _ := orca.DeriveWhirlpoolPositionPDA(f.PositionMint)
	return r.Put(addr, orca.ORCA_WHIRLPOOL_PROGRAM_ID, f.Bytes())
}

type LbPair struct {
	Address            solana.PublicKey
	ActiveId           int32
	BinStep            uint16
	MintX, MintY       solana.PublicKey
	ReserveX, ReserveY solana.PublicKey
	Oracle             solana.PublicKey
	// Initialized bin array indexes.
	BinArrays []int64
}

func (f LbPair) Bytes() []byte {
	data := make([]byte, meteora.LB_PAIR_SIZE)
	copy(data, meteora.LbPairDiscriminator)
	binary.LittleEndian.PutUint32(data[76:], uint32(f.ActiveId))
	binary.LittleEndian.PutUint16(data[80:], f.BinStep)
	copy(data[88:], f.MintX[:])
	copy(data[120:], f.MintY[:])
	copy(data[152:], f.ReserveX[:])
	copy(data[184:], f.ReserveY[:])
	copy(data[552:], f.Oracle[:])
	setBits(data, 584, meteora.BIN_ARRAY_BITMAP_SIZE, f.BinArrays)
	return data
}

func (f LbPair) Put(r *testutil.Reader) *testutil.Reader {
	return r.Put(f.Address, meteora.METEORA_DLMM_PROGRAM_ID, f.Bytes())
}

// DlmmPosition encodes a PositionV2 account with Shares in every bin of the range.
type DlmmPosition struct {
	Address      solana.PublicKey
	LbPair       solana.PublicKey
	Owner        solana.PublicKey
	Lower, Upper int32
	Shares       uint64
}

func (f DlmmPosition) Bytes() []byte {
	data := make([]byte, meteora.POSITION_V2_SIZE)
	copy(data, meteora.PositionV2Discriminator)
	copy(data[8:], f.LbPair[:])
	copy(data[40:], f.Owner[:])
	for b := 0; b <= int(f.Upper-f.Lower); b++ {
		uint128.From64(f.Shares).PutBytes(data[72+b*16:])
	}
	binary.LittleEndian.PutUint32(data[7912:], uint32(f.Lower))
	binary.LittleEndian.PutUint32(data[7916:], uint32(f.Upper))
	return data
}

func (f DlmmPosition) Put(r *testutil.Reader) *testutil.Reader {
	return r.Put(f.Address, meteora.METEORA_DLMM_PROGRAM_ID, f.Bytes())
}

// Mint registers a mint account owned by tokenProgram.
func Mint(r *testutil.Reader, mint, tokenProgram solana.PublicKey) *testutil.Reader {
	return r.Put(mint, tokenProgram, make([]byte, 82))
}

// TokenAccount registers owner's ATA for mint holding amount.
func TokenAccount(r *testutil.Reader, owner, mint, tokenProgram solana.PublicKey, amount uint64) solana.PublicKey {
	ata := sol.FindAssociatedTokenAddress(owner, mint, tokenProgram)
	data := make([]byte, sol.TokenAccountSize)
	copy(data[0:], mint[:])
	copy(data[32:], owner[:])
	binary.LittleEndian.PutUint64(data[64:], amount)
	data[108] = 1
	r.Put(ata, tokenProgram, data)
	return ata
}

func setBits(data []byte, offset, half int, groups []int64) {
	for _, g := range groups {
		bit := g + int64(half)
		word := offset + int(bit/64)*8
		v := binary.LittleEndian.Uint64(data[word:]) | 1<<(uint(bit)%64)
		binary.LittleEndian.PutUint64(data[word:], v)
	}
}
