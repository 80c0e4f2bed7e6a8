package orca

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"lukechampine.com/uint128"
)

// WhirlpoolPosition 映射自 Orca Position 账户, 地址由 position mint 派生
type WhirlpoolPosition struct {
	Address        solana.PublicKey
	Whirlpool      solana.PublicKey
	PositionMint   solana.PublicKey
	Liquidity      uint128.Uint128
	TickLowerIndex int32
	TickUpperIndex int32
	FeeOwedA       uint64
	FeeOwedB       uint64
}

func (p *WhirlpoolPosition) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameOrcaWhirlpool
}

func (p *WhirlpoolPosition) State() pkg.PositionState {
	return pkg.PositionState{
		Address:    p.Address,
		Identifier: p.PositionMint,
		Pool:       p.Whirlpool,
		Lower:      p.TickLowerIndex,
		Upper:      p.TickUpperIndex,
		Liquidity:  p.Liquidity,
		FeesOwedA:  p.FeeOwedA,
		FeesOwedB:  p.FeeOwedB,
	}
}

// DecodeWhirlpoolPosition 校验并解析 Position 账户
func DecodeWhirlpoolPosition(acct *pkg.Account) (*WhirlpoolPosition, error) {
	if err := pool.CheckAccount("orca position", acct, ORCA_WHIRLPOOL_PROGRAM_ID, POSITION_SIZE, PositionDiscriminator); err != nil {
		return nil, err
	}
	data := acct.Data
	return &WhirlpoolPosition{
		Address:        acct.Address,
		Whirlpool:      solana.PublicKeyFromBytes(data[8:40]),
		PositionMint:   solana.PublicKeyFromBytes(data[40:72]),
		Liquidity:      uint128.FromBytes(data[72:88]),
		TickLowerIndex: int32(binary.LittleEndian.Uint32(data[88:92])),
		TickUpperIndex: int32(binary.LittleEndian.Uint32(data[92:96])),
		// feeGrowthCheckpointA(16) 之后是 feeOwedA, feeGrowthCheckpointB(16) 之后是 feeOwedB
		FeeOwedA: binary.LittleEndian.Uint64(data[112:120]),
		FeeOwedB: binary.LittleEndian.Uint64(data[136:144]),
	}, nil
}
