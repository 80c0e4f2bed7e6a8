package raydium

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"lukechampine.com/uint128"
)

// PersonalPosition 映射自 PersonalPositionState 账户, 由 NFT mint 派生
type PersonalPosition struct {
	Address        solana.PublicKey
	NftMint        solana.PublicKey
	PoolId         solana.PublicKey
	TickLowerIndex int32
	TickUpperIndex int32
	Liquidity      uint128.Uint128
	TokenFeesOwed0 uint64
	TokenFeesOwed1 uint64
}

func (p *PersonalPosition) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumClmm
}

func (p *PersonalPosition) State() pkg.PositionState {
	return pkg.PositionState{
		Address:    p.Address,
		Identifier: p.NftMint,
		Pool:       p.PoolId,
		Lower:      p.TickLowerIndex,
		Upper:      p.TickUpperIndex,
		Liquidity:  p.Liquidity,
		FeesOwedA:  p.TokenFeesOwed0,
		FeesOwedB:  p.TokenFeesOwed1,
	}
}

// DecodePersonalPosition 校验并解析 PersonalPositionState 账户
func DecodePersonalPosition(acct *pkg.Account) (*PersonalPosition, error) {
	if err := pool.CheckAccount("raydium position", acct, RAYDIUM_CLMM_PROGRAM_ID, PERSONAL_POSITION_SIZE, PersonalPositionDiscriminator); err != nil {
		return nil, err
	}
	data := acct.Data
	// discriminator(8) + bump(1)
	return &PersonalPosition{
		Address:        acct.Address,
		NftMint:        solana.PublicKeyFromBytes(data[9:41]),
		PoolId:         solana.PublicKeyFromBytes(data[41:73]),
		TickLowerIndex: int32(binary.LittleEndian.Uint32(data[73:77])),
		TickUpperIndex: int32(binary.LittleEndian.Uint32(data[77:81])),
		Liquidity:      uint128.FromBytes(data[81:97]),
		// fee_growth_inside_{0,1}_last_x64 占 97..129
		TokenFeesOwed0: binary.LittleEndian.Uint64(data[129:137]),
		TokenFeesOwed1: binary.LittleEndian.Uint64(data[137:145]),
	}, nil
}
