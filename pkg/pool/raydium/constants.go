package raydium

import (
	"github.com/gagliardetto/solana-go"
)

// Program IDs
var (
	// Raydium CLMM Program ID
	RAYDIUM_CLMM_PROGRAM_ID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
)

// Tick Array Configuration - Raydium 每个 tick array 60 个 tick
const (
	TICK_ARRAY_SIZE        = 60
	TICK_ARRAY_BITMAP_SIZE = 512
	MAX_TICK               = 443636
	MIN_TICK               = -443636
	REWARD_NUM             = 3
)

// 账户大小 (包含 8 字节 discriminator)
const (
	POOL_STATE_SIZE        = 1544
	PERSONAL_POSITION_SIZE = 281
	REWARD_INFO_SIZE       = 169
)

// Seeds
var (
	TICK_ARRAY_SEED            = "tick_array"
	POSITION_SEED              = "position"
	PROTOCOL_POSITION_SEED     = "protocol_position"
	TICK_ARRAY_BITMAP_EXT_SEED = "pool_tick_array_bitmap_extension"
)

// Account discriminators
var (
	PoolStateDiscriminator        = []byte{247, 237, 227, 245, 215, 195, 222, 70}
	PersonalPositionDiscriminator = []byte{70, 111, 150, 126, 230, 15, 25, 117}
)

// Instruction discriminators (sha256("global:<name>")[:8])
var (
	OpenPositionV2Discriminator      = []byte{77, 184, 74, 214, 112, 86, 241, 199}
	IncreaseLiquidityV2Discriminator = []byte{133, 29, 89, 223, 69, 238, 176, 10}
	DecreaseLiquidityV2Discriminator = []byte{58, 127, 188, 62, 79, 82, 196, 96}
	ClosePositionDiscriminator       = []byte{123, 134, 81, 0, 49, 68, 98, 98}
	SwapDiscriminator                = []byte{248, 198, 158, 145, 225, 117, 135, 200}
)
