package orca

import (
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Program IDs
var (
	// Orca Whirlpool Program ID
	ORCA_WHIRLPOOL_PROGRAM_ID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
)

// Tick Array Configuration - 参考 Orca Whirlpool 规范
const (
	TICK_ARRAY_SIZE = 88 // Whirlpool 使用 88 而不是 CLMM 的 60
	MAX_TICK        = 443636
	MIN_TICK        = -443636
)

// Price Constants - Whirlpool 自己的 sqrt price 边界, 与 CLMM 的上界不同
var (
	MIN_SQRT_PRICE_X64 = uint128.From64(4295048016)
	// 79226673515401279992447579055
	MAX_SQRT_PRICE_X64 = uint128.New(0x35bb7f32a81b33af, 0xfffec4b1)
)

// Seeds and Discriminators - Whirlpool 特有的种子和判别器
var (
	TICK_ARRAY_SEED = "tick_array"
	POSITION_SEED   = "position"
	ORACLE_SEED     = "oracle"

	WhirlpoolDiscriminator = []byte{63, 149, 209, 12, 225, 128, 99, 9}
	PositionDiscriminator  = []byte{170, 188, 143, 228, 122, 64, 247, 208}

	OpenPositionDiscriminator        = []byte{135, 128, 47, 77, 15, 152, 240, 49}
	IncreaseLiquidityV2Discriminator = []byte{133, 29, 89, 223, 69, 238, 176, 10}
	DecreaseLiquidityV2Discriminator = []byte{58, 127, 188, 62, 79, 82, 196, 96}
	CollectFeesV2Discriminator       = []byte{207, 117, 95, 191, 229, 180, 226, 15}
	ClosePositionDiscriminator       = []byte{123, 134, 81, 0, 49, 68, 98, 98}
	// Whirlpool Swap V2 指令判别器 (从 IDL 中获取)
	SwapV2Discriminator = []byte{43, 4, 237, 11, 26, 201, 30, 98}
)

// Whirlpool 特有常量
const (
	// Whirlpool 账户数据大小 (653 字节包含 discriminator)
	WHIRLPOOL_SIZE = 653
	// Position 账户数据大小 (216 字节包含 discriminator)
	POSITION_SIZE = 216
)
