package meteora

import (
	"github.com/gagliardetto/solana-go"
)

// Program IDs
var (
	// Meteora DLMM (lb_clmm) Program ID
	METEORA_DLMM_PROGRAM_ID = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")
)

// Bin Array Configuration - 每个 bin array 70 个 bin
const (
	BINS_PER_ARRAY         = 70
	BIN_ARRAY_BITMAP_SIZE  = 512
	MAX_BIN_ID             = 443636
	MIN_BIN_ID             = -443636
	MAX_POSITION_WIDTH     = BINS_PER_ARRAY
	SWAP_BIN_ARRAY_WINDOW  = 3
	LB_PAIR_REWARD_INFOS   = 2
	POSITION_FEE_INFO_SIZE = 48
)

// 账户大小 (包含 8 字节 discriminator)
const (
	LB_PAIR_SIZE     = 904
	POSITION_SIZE    = 7560
	POSITION_V2_SIZE = 8120
)

// Seeds
var (
	BIN_ARRAY_SEED       = "bin_array"
	EVENT_AUTHORITY_SEED = "__event_authority"
)

// Account discriminators
var (
	LbPairDiscriminator     = []byte{33, 11, 49, 98, 181, 101, 177, 13}
	PositionDiscriminator   = []byte{170, 188, 143, 228, 122, 64, 247, 208}
	PositionV2Discriminator = []byte{117, 176, 212, 199, 245, 180, 133, 182}
)

// Instruction discriminators (sha256("global:<name>")[:8])
var (
	InitializePositionDiscriminator   = []byte{219, 192, 234, 71, 190, 191, 102, 80}
	AddLiquidityDiscriminator         = []byte{181, 157, 89, 67, 143, 182, 52, 72}
	RemoveAllLiquidityDiscriminator   = []byte{10, 51, 61, 35, 112, 105, 24, 85}
	ClosePositionIfEmptyDiscriminator = []byte{59, 124, 212, 118, 91, 152, 110, 157}
	SwapDiscriminator                 = []byte{248, 198, 158, 145, 225, 117, 135, 200}
)
