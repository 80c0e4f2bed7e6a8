package orca

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"lukechampine.com/uint128"
)

// Whirlpool 账户字段偏移 (含 8 字节 discriminator)
const (
	offTickSpacing      = 41
	offLiquidity        = 49
	offSqrtPrice        = 65
	offTickCurrentIndex = 81
	offTokenMintA       = 101
	offTokenVaultA      = 133
	offTokenMintB       = 181
	offTokenVaultB      = 213
)

// WhirlpoolPool 只保留开仓/加减仓/swap 用得到的字段
type WhirlpoolPool struct {
	PoolId      solana.PublicKey
	TickSpacing uint16

	// SqrtPrice 对应 Raydium 的 SqrtPriceX64
	Liquidity        uint128.Uint128
	SqrtPrice        uint128.Uint128
	TickCurrentIndex int32

	TokenMintA  solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenMintB  solana.PublicKey
	TokenVaultB solana.PublicKey
}

func (p *WhirlpoolPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameOrcaWhirlpool
}

func (p *WhirlpoolPool) GetProgramID() solana.PublicKey {
	return ORCA_WHIRLPOOL_PROGRAM_ID
}

func (p *WhirlpoolPool) GetID() string {
	return p.PoolId.String()
}

func (p *WhirlpoolPool) GetTokens() (baseMint, quoteMint string) {
	return p.TokenMintA.String(), p.TokenMintB.String()
}

func (p *WhirlpoolPool) State() pkg.PoolState {
	return pkg.PoolState{
		Address:      p.PoolId,
		ProgramID:    ORCA_WHIRLPOOL_PROGRAM_ID,
		MintA:        p.TokenMintA,
		MintB:        p.TokenMintB,
		VaultA:       p.TokenVaultA,
		VaultB:       p.TokenVaultB,
		Granularity:  p.TickSpacing,
		CurrentIndex: p.TickCurrentIndex,
		SqrtPriceX64: p.SqrtPrice,
		Liquidity:    p.Liquidity,
	}
}

// DecodeWhirlpool 校验长度, 所属程序和 discriminator 后解析 Whirlpool 账户
func DecodeWhirlpool(acct *pkg.Account) (*WhirlpoolPool, error) {
	if err := pool.CheckAccount("orca whirlpool", acct, ORCA_WHIRLPOOL_PROGRAM_ID, WHIRLPOOL_SIZE, WhirlpoolDiscriminator); err != nil {
		return nil, err
	}
	p := &WhirlpoolPool{PoolId: acct.Address}
	p.Decode(acct.Data)
	return p, nil
}

// Decode 调用方保证 len(data) == WHIRLPOOL_SIZE
func (p *WhirlpoolPool) Decode(data []byte) {
	key := func(off int) solana.PublicKey { return solana.PublicKeyFromBytes(data[off : off+32]) }

	p.TickSpacing = binary.LittleEndian.Uint16(data[offTickSpacing:])
	p.Liquidity = uint128.FromBytes(data[offLiquidity : offLiquidity+16])
	p.SqrtPrice = uint128.FromBytes(data[offSqrtPrice : offSqrtPrice+16])
	p.TickCurrentIndex = int32(binary.LittleEndian.Uint32(data[offTickCurrentIndex:]))
	p.TokenMintA = key(offTokenMintA)
	p.TokenVaultA = key(offTokenVaultA)
	p.TokenMintB = key(offTokenMintB)
	p.TokenVaultB = key(offTokenVaultB)
}

// Span 账户总长度, 用于 getProgramAccounts 的 DataSize 过滤
func (p *WhirlpoolPool) Span() uint64 {
	return WHIRLPOOL_SIZE
}

// Offset 返回字段偏移量, 用于 memcmp 过滤
func (p *WhirlpoolPool) Offset(field string) uint64 {
	switch field {
	case "TokenMintA":
		return offTokenMintA
	case "TokenMintB":
		return offTokenMintB
	}
	return 0
}
