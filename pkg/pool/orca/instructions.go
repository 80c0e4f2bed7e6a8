package orca

import (
	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"github.com/yimingWOW/clmmctl/pkg/sol"
	"lukechampine.com/uint128"
)

// OpenPositionAccounts 对应 open_position (不带 metadata)
type OpenPositionAccounts struct {
	Funder               solana.PublicKey
	Owner                solana.PublicKey
	Position             solana.PublicKey
	PositionMint         solana.PublicKey
	PositionTokenAccount solana.PublicKey
	Whirlpool            solana.PublicKey
}

func NewOpenPositionInstruction(positionBump uint8, tickLower, tickUpper int32, a OpenPositionAccounts) solana.Instruction {
	data := pool.NewArgs(OpenPositionDiscriminator).
		U8(positionBump).
		I32(tickLower).
		I32(tickUpper).
		Data()
	return solana.NewInstruction(ORCA_WHIRLPOOL_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(a.Funder).WRITE().SIGNER(),
		solana.Meta(a.Owner),
		solana.Meta(a.Position).WRITE(),
		solana.Meta(a.PositionMint).WRITE().SIGNER(),
		solana.Meta(a.PositionTokenAccount).WRITE(),
		solana.Meta(a.Whirlpool),
		solana.Meta(sol.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(sol.AssociatedTokenProgramID),
	}, data)
}

// LiquidityAccounts 是 increase / decrease_liquidity_v2 共用的账户, 顺序与 IDL 一致
type LiquidityAccounts struct {
	Whirlpool            solana.PublicKey
	TokenProgramA        solana.PublicKey
	TokenProgramB        solana.PublicKey
	PositionAuthority    solana.PublicKey
	Position             solana.PublicKey
	PositionTokenAccount solana.PublicKey
	TokenMintA           solana.PublicKey
	TokenMintB           solana.PublicKey
	TokenOwnerAccountA   solana.PublicKey
	TokenOwnerAccountB   solana.PublicKey
	TokenVaultA          solana.PublicKey
	TokenVaultB          solana.PublicKey
	TickArrayLower       solana.PublicKey
	TickArrayUpper       solana.PublicKey
}

func (a LiquidityAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(a.Whirlpool).WRITE(),
		solana.Meta(a.TokenProgramA),
		solana.Meta(a.TokenProgramB),
		solana.Meta(sol.MemoProgramID),
		solana.Meta(a.PositionAuthority).SIGNER(),
		solana.Meta(a.Position).WRITE(),
		solana.Meta(a.PositionTokenAccount),
		solana.Meta(a.TokenMintA),
		solana.Meta(a.TokenMintB),
		solana.Meta(a.TokenOwnerAccountA).WRITE(),
		solana.Meta(a.TokenOwnerAccountB).WRITE(),
		solana.Meta(a.TokenVaultA).WRITE(),
		solana.Meta(a.TokenVaultB).WRITE(),
		solana.Meta(a.TickArrayLower).WRITE(),
		solana.Meta(a.TickArrayUpper).WRITE(),
	}
}

// NewIncreaseLiquidityV2Instruction remaining_accounts_info 固定为 None
func NewIncreaseLiquidityV2Instruction(liquidity uint128.Uint128, tokenMaxA, tokenMaxB uint64, a LiquidityAccounts) solana.Instruction {
	data := pool.NewArgs(IncreaseLiquidityV2Discriminator).
		U128(liquidity).
		U64(tokenMaxA).
		U64(tokenMaxB).
		U8(0).
		Data()
	return solana.NewInstruction(ORCA_WHIRLPOOL_PROGRAM_ID, a.metas(), data)
}

func NewDecreaseLiquidityV2Instruction(liquidity uint128.Uint128, tokenMinA, tokenMinB uint64, a LiquidityAccounts) solana.Instruction {
	data := pool.NewArgs(DecreaseLiquidityV2Discriminator).
		U128(liquidity).
		U64(tokenMinA).
		U64(tokenMinB).
		U8(0).
		Data()
	return solana.NewInstruction(ORCA_WHIRLPOOL_PROGRAM_ID, a.metas(), data)
}

// NewCollectFeesV2Instruction 把仓位累积的手续费转入 owner 的 ATA
func NewCollectFeesV2Instruction(a LiquidityAccounts) solana.Instruction {
	return solana.NewInstruction(ORCA_WHIRLPOOL_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(a.Whirlpool),
		solana.Meta(a.PositionAuthority).SIGNER(),
		solana.Meta(a.Position).WRITE(),
		solana.Meta(a.PositionTokenAccount),
		solana.Meta(a.TokenMintA),
		solana.Meta(a.TokenMintB),
		solana.Meta(a.TokenOwnerAccountA).WRITE(),
		solana.Meta(a.TokenVaultA).WRITE(),
		solana.Meta(a.TokenOwnerAccountB).WRITE(),
		solana.Meta(a.TokenVaultB).WRITE(),
		solana.Meta(a.TokenProgramA),
		solana.Meta(a.TokenProgramB),
		solana.Meta(sol.MemoProgramID),
	}, pool.NewArgs(CollectFeesV2Discriminator).U8(0).Data())
}

// NewClosePositionInstruction 关闭仓位并销毁 NFT, 租金退给 receiver
func NewClosePositionInstruction(authority, receiver, position, positionMint, positionTokenAccount solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(ORCA_WHIRLPOOL_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(authority).SIGNER(),
		solana.Meta(receiver).WRITE(),
		solana.Meta(position).WRITE(),
		solana.Meta(positionMint).WRITE(),
		solana.Meta(positionTokenAccount).WRITE(),
		solana.Meta(sol.TokenProgramID),
	}, pool.NewArgs(ClosePositionDiscriminator).Data())
}

type SwapV2Accounts struct {
	TokenProgramA      solana.PublicKey
	TokenProgramB      solana.PublicKey
	TokenAuthority     solana.PublicKey
	Whirlpool          solana.PublicKey
	TokenMintA         solana.PublicKey
	TokenMintB         solana.PublicKey
	TokenOwnerAccountA solana.PublicKey
	TokenVaultA        solana.PublicKey
	TokenOwnerAccountB solana.PublicKey
	TokenVaultB        solana.PublicKey
	TickArrays         [3]solana.PublicKey
	Oracle             solana.PublicKey
}

// NewSwapV2Instruction amount_specified_is_input 固定为 true
func NewSwapV2Instruction(amount, otherAmountThreshold uint64, sqrtPriceLimit uint128.Uint128, aToB bool, a SwapV2Accounts) solana.Instruction {
	data := pool.NewArgs(SwapV2Discriminator).
		U64(amount).
		U64(otherAmountThreshold).
		U128(sqrtPriceLimit).
		Bool(true).
		Bool(aToB).
		U8(0). // remaining_accounts_info: None
		Data()

	// 按照 Whirlpool SwapV2 指令的账户顺序添加
	return solana.NewInstruction(ORCA_WHIRLPOOL_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(a.TokenProgramA),
		solana.Meta(a.TokenProgramB),
		solana.Meta(sol.MemoProgramID),
		solana.Meta(a.TokenAuthority).SIGNER(),
		solana.Meta(a.Whirlpool).WRITE(),
		solana.Meta(a.TokenMintA),
		solana.Meta(a.TokenMintB),
		solana.Meta(a.TokenOwnerAccountA).WRITE(),
		solana.Meta(a.TokenVaultA).WRITE(),
		solana.Meta(a.TokenOwnerAccountB).WRITE(),
		solana.Meta(a.TokenVaultB).WRITE(),
		solana.Meta(a.TickArrays[0]).WRITE(),
		solana.Meta(a.TickArrays[1]).WRITE(),
		solana.Meta(a.TickArrays[2]).WRITE(),
		solana.Meta(a.Oracle).WRITE(),
	}, data)
}

// DefaultSqrtPriceLimit 未指定价格限制时使用该方向的边界
func DefaultSqrtPriceLimit(aToB bool) uint128.Uint128 {
	if aToB {
		return MIN_SQRT_PRICE_X64
	}
	return MAX_SQRT_PRICE_X64
}
