package meteora

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
)

// LbPair 映射自 Meteora DLMM LbPair 账户, 只解析本工具需要的字段
type LbPair struct {
	ActiveId       int32
	BinStep        uint16
	Status         uint8
	TokenXMint     solana.PublicKey
	TokenYMint     solana.PublicKey
	ReserveX       solana.PublicKey
	ReserveY       solana.PublicKey
	Oracle         solana.PublicKey
	BinArrayBitmap [16]uint64

	PoolId solana.PublicKey
}

func (p *LbPair) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameMeteoraDlmm
}

func (p *LbPair) GetProgramID() solana.PublicKey {
	return METEORA_DLMM_PROGRAM_ID
}

func (p *LbPair) GetID() string {
	return p.PoolId.String()
}

func (p *LbPair) GetTokens() (baseMint, quoteMint string) {
	return p.TokenXMint.String(), p.TokenYMint.String()
}

// State 中 Granularity 是 bin step; SqrtPriceX64 和 Liquidity 为零, bin 池子没有这两个量
func (p *LbPair) State() pkg.PoolState {
	return pkg.PoolState{
		Address:      p.PoolId,
		ProgramID:    METEORA_DLMM_PROGRAM_ID,
		MintA:        p.TokenXMint,
		MintB:        p.TokenYMint,
		VaultA:       p.ReserveX,
		VaultB:       p.ReserveY,
		Granularity:  p.BinStep,
		CurrentIndex: p.ActiveId,
	}
}

// DecodeLbPair 校验并解析 LbPair 账户
func DecodeLbPair(acct *pkg.Account) (*LbPair, error) {
	if err := pool.CheckAccount("meteora lb pair", acct, METEORA_DLMM_PROGRAM_ID, LB_PAIR_SIZE, LbPairDiscriminator); err != nil {
		return nil, err
	}
	p := &LbPair{}
	p.Decode(acct.Data)
	p.PoolId = acct.Address
	return p, nil
}

// Decode 按固定偏移解析, 调用方保证长度为 LB_PAIR_SIZE
func (p *LbPair) Decode(data []byte) {
	// parameters(32) + v_parameters(32) 之后是 bump_seed, bin_step_seed, pair_type
	p.ActiveId = int32(binary.LittleEndian.Uint32(data[p.Offset("ActiveId"):]))
	p.BinStep = binary.LittleEndian.Uint16(data[p.Offset("BinStep"):])
	p.Status = data[p.Offset("Status")]
	p.TokenXMint = solana.PublicKeyFromBytes(data[88:120])
	p.TokenYMint = solana.PublicKeyFromBytes(data[120:152])
	p.ReserveX = solana.PublicKeyFromBytes(data[152:184])
	p.ReserveY = solana.PublicKeyFromBytes(data[184:216])
	// protocol_fee(16) + padding1(32) + reward_infos(2 * 144)
	p.Oracle = solana.PublicKeyFromBytes(data[552:584])
	base := p.Offset("BinArrayBitmap")
	for i := range p.BinArrayBitmap {
		p.BinArrayBitmap[i] = binary.LittleEndian.Uint64(data[base+uint64(i)*8:])
	}
}

func (p *LbPair) Span() uint64 {
	return LB_PAIR_SIZE
}

// Offset 返回字段偏移量 - 用于 RPC 查询过滤器
func (p *LbPair) Offset(field string) uint64 {
	switch field {
	case "ActiveId":
		return 76
	case "BinStep":
		return 80
	case "Status":
		return 82
	case "TokenXMint":
		return 88
	case "TokenYMint":
		return 120
	case "Oracle":
		return 552
	case "BinArrayBitmap":
		return 584
	}
	return 0
}

// BinBase 是相邻两个 bin 的价格比
func (p *LbPair) BinBase() float64 {
	return rangemath.BinBase(p.BinStep)
}

// SwapBinArrayIndexes 沿交换方向返回最多 SWAP_BIN_ARRAY_WINDOW 个已初始化的 bin array.
// swapForY 时 active bin 下降. 位图中没有可用分组时退回 {active, +1, -1}.
func (p *LbPair) SwapBinArrayIndexes(swapForY bool) []int64 {
	current := BinArrayIndex(p.ActiveId)
	step := int64(1)
	if swapForY {
		step = -1
	}
	if _, known := rangemath.IsGroupInitialized(p.BinArrayBitmap[:], current); known {
		if groups := rangemath.InitializedGroups(p.BinArrayBitmap[:], current, step, SWAP_BIN_ARRAY_WINDOW); len(groups) > 0 {
			return groups
		}
	}
	return []int64{current, current + 1, current - 1}
}
