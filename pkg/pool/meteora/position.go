package meteora

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"lukechampine.com/uint128"
)

// positionLayout 描述 Position / PositionV2 两种账户中各字段的位置
type positionLayout struct {
	shareSize  int
	shares     int
	feeInfos   int
	lowerBinId int
	upperBinId int
}

var positionLayouts = []positionLayout{
	// Position: liquidity_shares [u64; 70]
	{shareSize: 8, shares: 72, feeInfos: 3992, lowerBinId: 7352, upperBinId: 7356},
	// PositionV2: liquidity_shares [u128; 70]
	{shareSize: 16, shares: 72, feeInfos: 4552, lowerBinId: 7912, upperBinId: 7916},
}

// Position 是解析后的 DLMM 仓位, 仓位账户本身就是标识
type Position struct {
	Address    solana.PublicKey
	LbPair     solana.PublicKey
	Owner      solana.PublicKey
	LowerBinId int32
	UpperBinId int32
	V2         bool

	// LiquidityShares 长度为 BINS_PER_ARRAY, 下标 0 对应 LowerBinId
	LiquidityShares []uint128.Uint128
	FeeXPending     uint64
	FeeYPending     uint64
}

func (p *Position) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameMeteoraDlmm
}

// TotalShares 返回区间内所有 bin 的份额之和
func (p *Position) TotalShares() uint128.Uint128 {
	total := uint128.Zero
	for _, s := range p.LiquidityShares {
		total = total.Add(s)
	}
	return total
}

func (p *Position) State() pkg.PositionState {
	return pkg.PositionState{
		Address:    p.Address,
		Identifier: p.Address,
		Pool:       p.LbPair,
		Lower:      p.LowerBinId,
		Upper:      p.UpperBinId,
		Liquidity:  p.TotalShares(),
		FeesOwedA:  p.FeeXPending,
		FeesOwedB:  p.FeeYPending,
	}
}

// DecodePosition 接受 Position (7560) 或 PositionV2 (8120), 长度决定布局
func DecodePosition(acct *pkg.Account) (*Position, error) {
	i, err := pool.CheckAccountSizes("meteora position", acct, METEORA_DLMM_PROGRAM_ID,
		[]int{POSITION_SIZE, POSITION_V2_SIZE},
		[][]byte{PositionDiscriminator, PositionV2Discriminator})
	if err != nil {
		return nil, err
	}
	layout := positionLayouts[i]
	data := acct.Data

	p := &Position{
		Address:         acct.Address,
		LbPair:          solana.PublicKeyFromBytes(data[8:40]),
		Owner:           solana.PublicKeyFromBytes(data[40:72]),
		LowerBinId:      int32(binary.LittleEndian.Uint32(data[layout.lowerBinId:])),
		UpperBinId:      int32(binary.LittleEndian.Uint32(data[layout.upperBinId:])),
		V2:              i == 1,
		LiquidityShares: make([]uint128.Uint128, BINS_PER_ARRAY),
	}
	for b := 0; b < BINS_PER_ARRAY; b++ {
		off := layout.shares + b*layout.shareSize
		if layout.shareSize == 8 {
			p.LiquidityShares[b] = uint128.From64(binary.LittleEndian.Uint64(data[off:]))
		} else {
			p.LiquidityShares[b] = uint128.FromBytes(data[off : off+16])
		}
		// FeeInfo: fee_x_per_token_complete u128, fee_y_per_token_complete u128, fee_x_pending u64, fee_y_pending u64
		fee := layout.feeInfos + b*POSITION_FEE_INFO_SIZE
		p.FeeXPending += binary.LittleEndian.Uint64(data[fee+32:])
		p.FeeYPending += binary.LittleEndian.Uint64(data[fee+40:])
	}
	return p, nil
}
