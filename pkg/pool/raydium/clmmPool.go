package raydium

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
	"lukechampine.com/uint128"
)

// CLMMPool 结构体 - 映射自 Raydium CLMM PoolState 账户
type CLMMPool struct {
	Bump           uint8
	AmmConfig      solana.PublicKey
	Owner          solana.PublicKey
	TokenMint0     solana.PublicKey
	TokenMint1     solana.PublicKey
	TokenVault0    solana.PublicKey
	TokenVault1    solana.PublicKey
	ObservationKey solana.PublicKey
	MintDecimals0  uint8
	MintDecimals1  uint8
	TickSpacing    uint16
	Liquidity      uint128.Uint128
	SqrtPriceX64   uint128.Uint128
	TickCurrent    int32
	Status         uint8

	RewardInfos     [REWARD_NUM]RewardInfo
	TickArrayBitmap [16]uint64

	// 内部使用字段
	PoolId solana.PublicKey
}

// RewardInfo 只保留构建指令需要的字段
type RewardInfo struct {
	RewardState uint8
	TokenMint   solana.PublicKey
	TokenVault  solana.PublicKey
}

// Initialized reports whether the reward slot is in use.
func (r RewardInfo) Initialized() bool {
	return !r.TokenMint.IsZero() && !r.TokenVault.IsZero()
}

func (p *CLMMPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumClmm
}

func (p *CLMMPool) GetProgramID() solana.PublicKey {
	return RAYDIUM_CLMM_PROGRAM_ID
}

func (p *CLMMPool) GetID() string {
	return p.PoolId.String()
}

func (p *CLMMPool) GetTokens() (baseMint, quoteMint string) {
	return p.TokenMint0.String(), p.TokenMint1.String()
}

func (p *CLMMPool) State() pkg.PoolState {
	return pkg.PoolState{
		Address:      p.PoolId,
		ProgramID:    RAYDIUM_CLMM_PROGRAM_ID,
		MintA:        p.TokenMint0,
		MintB:        p.TokenMint1,
		VaultA:       p.TokenVault0,
		VaultB:       p.TokenVault1,
		Granularity:  p.TickSpacing,
		CurrentIndex: p.TickCurrent,
		SqrtPriceX64: p.SqrtPriceX64,
		Liquidity:    p.Liquidity,
	}
}

// Decimals returns the mint decimals the pool stores for token0 and token1.
func (p *CLMMPool) Decimals() (uint8, uint8) {
	return p.MintDecimals0, p.MintDecimals1
}

// DecodePool 校验并解析 PoolState 账户
func DecodePool(acct *pkg.Account) (*CLMMPool, error) {
	if err := pool.CheckAccount("raydium pool", acct, RAYDIUM_CLMM_PROGRAM_ID, POOL_STATE_SIZE, PoolStateDiscriminator); err != nil {
		return nil, err
	}
	p := &CLMMPool{}
	p.Decode(acct.Data)
	p.PoolId = acct.Address
	return p, nil
}

// Decode 解析 PoolState 数据, 调用方保证长度为 POOL_STATE_SIZE
func (p *CLMMPool) Decode(data []byte) {
	offset := 8

	p.Bump = data[offset]
	offset += 1

	p.AmmConfig = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	p.Owner = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	p.TokenMint0 = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	p.TokenMint1 = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	p.TokenVault0 = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	p.TokenVault1 = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	p.ObservationKey = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	p.MintDecimals0 = data[offset]
	p.MintDecimals1 = data[offset+1]
	offset += 2

	p.TickSpacing = binary.LittleEndian.Uint16(data[offset : offset+2])
	offset += 2

	p.Liquidity = uint128.FromBytes(data[offset : offset+16])
	offset += 16
	p.SqrtPriceX64 = uint128.FromBytes(data[offset : offset+16])
	offset += 16
	p.TickCurrent = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))

	p.Status = data[p.Offset("Status")]

	offset = int(p.Offset("RewardInfos"))
	for i := 0; i < REWARD_NUM; i++ {
		base := offset + i*REWARD_INFO_SIZE
		p.RewardInfos[i] = RewardInfo{
			RewardState: data[base],
			TokenMint:   solana.PublicKeyFromBytes(data[base+57 : base+89]),
			TokenVault:  solana.PublicKeyFromBytes(data[base+89 : base+121]),
		}
	}

	offset = int(p.Offset("TickArrayBitmap"))
	for i := range p.TickArrayBitmap {
		p.TickArrayBitmap[i] = binary.LittleEndian.Uint64(data[offset+i*8 : offset+i*8+8])
	}
}

// Span 返回账户数据大小
func (p *CLMMPool) Span() uint64 {
	return POOL_STATE_SIZE
}

// Offset 返回字段偏移量 - 用于 RPC 查询过滤器
func (p *CLMMPool) Offset(field string) uint64 {
	switch field {
	case "AmmConfig":
		return 9
	case "TokenMint0":
		return 73
	case "TokenMint1":
		return 105
	case "TickSpacing":
		return 235
	case "TickCurrent":
		return 269
	case "Status":
		// tick_current(4) + padding3/4(4) + fee growth(32) + protocol fees(16) + swap amounts(64) 之后
		return 389
	case "RewardInfos":
		// status(1) + padding(7)
		return 397
	case "TickArrayBitmap":
		return 397 + REWARD_NUM*REWARD_INFO_SIZE
	}
	return 0
}

// TickArraySpan is the number of ticks one tick array covers in this pool.
func (p *CLMMPool) TickArraySpan() int64 {
	return int64(p.TickSpacing) * TICK_ARRAY_SIZE
}

// TickArrayStartIndex 返回包含 tick 的 tick array 起点
func (p *CLMMPool) TickArrayStartIndex(tick int32) int32 {
	return int32(rangemath.GroupStart(int64(tick), p.TickArraySpan()))
}

// InDefaultBitmap reports whether the tick array starting at start is tracked by the pool's own bitmap.
func (p *CLMMPool) InDefaultBitmap(start int32) bool {
	_, known := rangemath.IsGroupInitialized(p.TickArrayBitmap[:], rangemath.GroupIndex(int64(start), p.TickArraySpan()))
	return known
}

// SwapTickArrayStarts 沿交换方向返回最多 count 个已初始化 tick array 的起点.
// zeroForOne 价格下降, 向更小的 tick 查找.
func (p *CLMMPool) SwapTickArrayStarts(zeroForOne bool, count int) []int32 {
	span := p.TickArraySpan()
	current := rangemath.GroupIndex(int64(p.TickCurrent), span)
	step := int64(1)
	if zeroForOne {
		step = -1
	}
	groups := rangemath.InitializedGroups(p.TickArrayBitmap[:], current, step, count)
	if len(groups) == 0 {
		groups = []int64{current}
	}
	starts := make([]int32, len(groups))
	for i, g := range groups {
		starts[i] = int32(g * span)
	}
	return starts
}
