package raydium

import (
	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"github.com/yimingWOW/clmmctl/pkg/sol"
	"lukechampine.com/uint128"
)

// OpenPositionV2Accounts 对应 open_position_v2 的 22 个账户
type OpenPositionV2Accounts struct {
	Payer              solana.PublicKey
	PositionNftOwner   solana.PublicKey
	PositionNftMint    solana.PublicKey
	PositionNftAccount solana.PublicKey
	MetadataAccount    solana.PublicKey
	PoolState          solana.PublicKey
	ProtocolPosition   solana.PublicKey
	TickArrayLower     solana.PublicKey
	TickArrayUpper     solana.PublicKey
	PersonalPosition   solana.PublicKey
	TokenAccount0      solana.PublicKey
	TokenAccount1      solana.PublicKey
	TokenVault0        solana.PublicKey
	TokenVault1        solana.PublicKey
	Vault0Mint         solana.PublicKey
	Vault1Mint         solana.PublicKey
	// BitmapExtension is appended as a remaining account when not zero.
	BitmapExtension solana.PublicKey
}

type OpenPositionV2Args struct {
	TickLowerIndex           int32
	TickUpperIndex           int32
	TickArrayLowerStartIndex int32
	TickArrayUpperStartIndex int32
	Liquidity                uint128.Uint128
	Amount0Max               uint64
	Amount1Max               uint64
	WithMetadata             bool
	BaseFlag                 *bool
}

func NewOpenPositionV2Instruction(args OpenPositionV2Args, a OpenPositionV2Accounts) solana.Instruction {
	data := pool.NewArgs(OpenPositionV2Discriminator).
		I32(args.TickLowerIndex).
		I32(args.TickUpperIndex).
		I32(args.TickArrayLowerStartIndex).
		I32(args.TickArrayUpperStartIndex).
		U128(args.Liquidity).
		U64(args.Amount0Max).
		U64(args.Amount1Max).
		Bool(args.WithMetadata).
		OptionBool(args.BaseFlag).
		Data()

	metas := solana.AccountMetaSlice{
		solana.Meta(a.Payer).WRITE().SIGNER(),
		solana.Meta(a.PositionNftOwner),
		solana.Meta(a.PositionNftMint).WRITE().SIGNER(),
		solana.Meta(a.PositionNftAccount).WRITE(),
		solana.Meta(a.MetadataAccount).WRITE(),
		solana.Meta(a.PoolState).WRITE(),
		solana.Meta(a.ProtocolPosition).WRITE(),
		solana.Meta(a.TickArrayLower).WRITE(),
		solana.Meta(a.TickArrayUpper).WRITE(),
		solana.Meta(a.PersonalPosition).WRITE(),
		solana.Meta(a.TokenAccount0).WRITE(),
		solana.Meta(a.TokenAccount1).WRITE(),
		solana.Meta(a.TokenVault0).WRITE(),
		solana.Meta(a.TokenVault1).WRITE(),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(sol.TokenProgramID),
		solana.Meta(sol.AssociatedTokenProgramID),
		solana.Meta(sol.MetadataProgramID),
		solana.Meta(sol.Token2022ProgramID),
		solana.Meta(a.Vault0Mint),
		solana.Meta(a.Vault1Mint),
	}
	if !a.BitmapExtension.IsZero() {
		metas = append(metas, solana.Meta(a.BitmapExtension).WRITE())
	}
	return solana.NewInstruction(RAYDIUM_CLMM_PROGRAM_ID, metas, data)
}

// LiquidityAccounts 是 increase / decrease_liquidity_v2 共用的账户
type LiquidityAccounts struct {
	NftOwner         solana.PublicKey
	NftAccount       solana.PublicKey
	PoolState        solana.PublicKey
	ProtocolPosition solana.PublicKey
	PersonalPosition solana.PublicKey
	TickArrayLower   solana.PublicKey
	TickArrayUpper   solana.PublicKey
	TokenAccount0    solana.PublicKey
	TokenAccount1    solana.PublicKey
	TokenVault0      solana.PublicKey
	TokenVault1      solana.PublicKey
	Vault0Mint       solana.PublicKey
	Vault1Mint       solana.PublicKey
	BitmapExtension  solana.PublicKey
}

func NewIncreaseLiquidityV2Instruction(liquidity uint128.Uint128, amount0Max, amount1Max uint64, baseFlag *bool, a LiquidityAccounts) solana.Instruction {
	data := pool.NewArgs(IncreaseLiquidityV2Discriminator).
		U128(liquidity).
		U64(amount0Max).
		U64(amount1Max).
		OptionBool(baseFlag).
		Data()

	metas := solana.AccountMetaSlice{
		solana.Meta(a.NftOwner).SIGNER(),
		solana.Meta(a.NftAccount),
		solana.Meta(a.PoolState).WRITE(),
		solana.Meta(a.ProtocolPosition).WRITE(),
		solana.Meta(a.PersonalPosition).WRITE(),
		solana.Meta(a.TickArrayLower).WRITE(),
		solana.Meta(a.TickArrayUpper).WRITE(),
		solana.Meta(a.TokenAccount0).WRITE(),
		solana.Meta(a.TokenAccount1).WRITE(),
		solana.Meta(a.TokenVault0).WRITE(),
		solana.Meta(a.TokenVault1).WRITE(),
		solana.Meta(sol.TokenProgramID),
		solana.Meta(sol.Token2022ProgramID),
		solana.Meta(a.Vault0Mint),
		solana.Meta(a.Vault1Mint),
	}
	if !a.BitmapExtension.IsZero() {
		metas = append(metas, solana.Meta(a.BitmapExtension).WRITE())
	}
	return solana.NewInstruction(RAYDIUM_CLMM_PROGRAM_ID, metas, data)
}

// RewardAccounts 是 decrease_liquidity_v2 的 remaining accounts 三元组
type RewardAccounts struct {
	RewardVault      solana.PublicKey
	RecipientAccount solana.PublicKey
	RewardMint       solana.PublicKey
}

func NewDecreaseLiquidityV2Instruction(liquidity uint128.Uint128, amount0Min, amount1Min uint64, a LiquidityAccounts, rewards []RewardAccounts) solana.Instruction {
	data := pool.NewArgs(DecreaseLiquidityV2Discriminator).
		U128(liquidity).
		U64(amount0Min).
		U64(amount1Min).
		Data()

	metas := solana.AccountMetaSlice{
		solana.Meta(a.NftOwner).SIGNER(),
		solana.Meta(a.NftAccount),
		solana.Meta(a.PersonalPosition).WRITE(),
		solana.Meta(a.PoolState).WRITE(),
		solana.Meta(a.ProtocolPosition).WRITE(),
		solana.Meta(a.TokenVault0).WRITE(),
		solana.Meta(a.TokenVault1).WRITE(),
		solana.Meta(a.TickArrayLower).WRITE(),
		solana.Meta(a.TickArrayUpper).WRITE(),
		solana.Meta(a.TokenAccount0).WRITE(),
		solana.Meta(a.TokenAccount1).WRITE(),
		solana.Meta(sol.TokenProgramID),
		solana.Meta(sol.Token2022ProgramID),
		solana.Meta(sol.MemoProgramID),
		solana.Meta(a.Vault0Mint),
		solana.Meta(a.Vault1Mint),
	}
	if !a.BitmapExtension.IsZero() {
		metas = append(metas, solana.Meta(a.BitmapExtension).WRITE())
	}
	for _, r := range rewards {
		metas = append(metas,
			solana.Meta(r.RewardVault).WRITE(),
			solana.Meta(r.RecipientAccount).WRITE(),
			solana.Meta(r.RewardMint),
		)
	}
	return solana.NewInstruction(RAYDIUM_CLMM_PROGRAM_ID, metas, data)
}

func NewClosePositionInstruction(nftOwner, nftMint, nftAccount, personalPosition solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(RAYDIUM_CLMM_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(nftOwner).WRITE().SIGNER(),
		solana.Meta(nftMint).WRITE(),
		solana.Meta(nftAccount).WRITE(),
		solana.Meta(personalPosition).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(sol.TokenProgramID),
	}, pool.NewArgs(ClosePositionDiscriminator).Data())
}

type SwapAccounts struct {
	Payer              solana.PublicKey
	AmmConfig          solana.PublicKey
	PoolState          solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputVault         solana.PublicKey
	OutputVault        solana.PublicKey
	ObservationState   solana.PublicKey
	// TickArrays[0] is the fixed tick_array account, the rest go to remaining accounts.
	TickArrays      []solana.PublicKey
	BitmapExtension solana.PublicKey
}

// NewSwapInstruction 构建 swap (v1, 仅支持 SPL Token), is_base_input 固定为 true
func NewSwapInstruction(amount, otherAmountThreshold uint64, sqrtPriceLimitX64 uint128.Uint128, a SwapAccounts) solana.Instruction {
	data := pool.NewArgs(SwapDiscriminator).
		U64(amount).
		U64(otherAmountThreshold).
		U128(sqrtPriceLimitX64).
		Bool(true).
		Data()

	metas := solana.AccountMetaSlice{
		solana.Meta(a.Payer).SIGNER(),
		solana.Meta(a.AmmConfig),
		solana.Meta(a.PoolState).WRITE(),
		solana.Meta(a.InputTokenAccount).WRITE(),
		solana.Meta(a.OutputTokenAccount).WRITE(),
		solana.Meta(a.InputVault).WRITE(),
		solana.Meta(a.OutputVault).WRITE(),
		solana.Meta(a.ObservationState).WRITE(),
		solana.Meta(sol.TokenProgramID),
		solana.Meta(a.TickArrays[0]).WRITE(),
	}
	if !a.BitmapExtension.IsZero() {
		metas = append(metas, solana.Meta(a.BitmapExtension).WRITE())
	}
	for _, ta := range a.TickArrays[1:] {
		metas = append(metas, solana.Meta(ta).WRITE())
	}
	return solana.NewInstruction(RAYDIUM_CLMM_PROGRAM_ID, metas, data)
}
