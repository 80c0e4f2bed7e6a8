package meteora

import (
	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"github.com/yimingWOW/clmmctl/pkg/quote"
)

// optional 把未提供的可选账户替换成程序自身, Anchor 以此表示 None
func optional(key solana.PublicKey) *solana.AccountMeta {
	if key.IsZero() {
		return solana.Meta(METEORA_DLMM_PROGRAM_ID)
	}
	return solana.Meta(key).WRITE()
}

// NewInitializePositionInstruction 在新的仓位账户上初始化 [lowerBinId, lowerBinId+width-1]
func NewInitializePositionInstruction(payer, position, lbPair, owner solana.PublicKey, lowerBinId, width int32) solana.Instruction {
	data := pool.NewArgs(InitializePositionDiscriminator).
		I32(lowerBinId).
		I32(width).
		Data()
	return solana.NewInstruction(METEORA_DLMM_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(position).WRITE().SIGNER(),
		solana.Meta(lbPair),
		solana.Meta(owner).SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(DeriveEventAuthorityPDA()),
		solana.Meta(METEORA_DLMM_PROGRAM_ID),
	}, data)
}

// LiquidityAccounts 是 add_liquidity 和 remove_all_liquidity 共用的账户
type LiquidityAccounts struct {
	Position        solana.PublicKey
	LbPair          solana.PublicKey
	BitmapExtension solana.PublicKey // zero for None
	UserTokenX      solana.PublicKey
	UserTokenY      solana.PublicKey
	ReserveX        solana.PublicKey
	ReserveY        solana.PublicKey
	TokenXMint      solana.PublicKey
	TokenYMint      solana.PublicKey
	BinArrayLower   solana.PublicKey
	BinArrayUpper   solana.PublicKey
	Sender          solana.PublicKey
	TokenXProgram   solana.PublicKey
	TokenYProgram   solana.PublicKey
}

func (a LiquidityAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(a.Position).WRITE(),
		solana.Meta(a.LbPair).WRITE(),
		optional(a.BitmapExtension),
		solana.Meta(a.UserTokenX).WRITE(),
		solana.Meta(a.UserTokenY).WRITE(),
		solana.Meta(a.ReserveX).WRITE(),
		solana.Meta(a.ReserveY).WRITE(),
		solana.Meta(a.TokenXMint),
		solana.Meta(a.TokenYMint),
		solana.Meta(a.BinArrayLower).WRITE(),
		solana.Meta(a.BinArrayUpper).WRITE(),
		solana.Meta(a.Sender).SIGNER(),
		solana.Meta(a.TokenXProgram),
		solana.Meta(a.TokenYProgram),
		solana.Meta(DeriveEventAuthorityPDA()),
		solana.Meta(METEORA_DLMM_PROGRAM_ID),
	}
}

// NewAddLiquidityInstruction 参数为 LiquidityParameter { amount_x, amount_y, Vec<BinLiquidityDistribution> }
func NewAddLiquidityInstruction(amountX, amountY uint64, shares []quote.BinShare, a LiquidityAccounts) solana.Instruction {
	args := pool.NewArgs(AddLiquidityDiscriminator).
		U64(amountX).
		U64(amountY).
		Len(len(shares))
	for _, s := range shares {
		args.I32(s.BinID).U16(s.DistributionX).U16(s.DistributionY)
	}
	return solana.NewInstruction(METEORA_DLMM_PROGRAM_ID, a.metas(), args.Data())
}

func NewRemoveAllLiquidityInstruction(a LiquidityAccounts) solana.Instruction {
	return solana.NewInstruction(METEORA_DLMM_PROGRAM_ID, a.metas(), pool.NewArgs(RemoveAllLiquidityDiscriminator).Data())
}

// NewClosePositionIfEmptyInstruction 租金退给 sender
func NewClosePositionIfEmptyInstruction(position, sender solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(METEORA_DLMM_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(position).WRITE(),
		solana.Meta(sender).SIGNER(),
		solana.Meta(sender).WRITE(),
		solana.Meta(DeriveEventAuthorityPDA()),
		solana.Meta(METEORA_DLMM_PROGRAM_ID),
	}, pool.NewArgs(ClosePositionIfEmptyDiscriminator).Data())
}

type SwapAccounts struct {
	LbPair          solana.PublicKey
	BitmapExtension solana.PublicKey // zero for None
	ReserveX        solana.PublicKey
	ReserveY        solana.PublicKey
	UserTokenIn     solana.PublicKey
	UserTokenOut    solana.PublicKey
	TokenXMint      solana.PublicKey
	TokenYMint      solana.PublicKey
	Oracle          solana.PublicKey
	HostFeeIn       solana.PublicKey // zero for None
	User            solana.PublicKey
	TokenXProgram   solana.PublicKey
	TokenYProgram   solana.PublicKey
	// BinArrays 作为 remaining accounts, 按交换经过的顺序排列
	BinArrays []solana.PublicKey
}

func NewSwapInstruction(amountIn, minAmountOut uint64, a SwapAccounts) solana.Instruction {
	data := pool.NewArgs(SwapDiscriminator).
		U64(amountIn).
		U64(minAmountOut).
		Data()

	extension := solana.Meta(METEORA_DLMM_PROGRAM_ID)
	if !a.BitmapExtension.IsZero() {
		extension = solana.Meta(a.BitmapExtension)
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(a.LbPair).WRITE(),
		extension,
		solana.Meta(a.ReserveX).WRITE(),
		solana.Meta(a.ReserveY).WRITE(),
		solana.Meta(a.UserTokenIn).WRITE(),
		solana.Meta(a.UserTokenOut).WRITE(),
		solana.Meta(a.TokenXMint),
		solana.Meta(a.TokenYMint),
		solana.Meta(a.Oracle).WRITE(),
		optional(a.HostFeeIn),
		solana.Meta(a.User).SIGNER(),
		solana.Meta(a.TokenXProgram),
		solana.Meta(a.TokenYProgram),
		solana.Meta(DeriveEventAuthorityPDA()),
		solana.Meta(METEORA_DLMM_PROGRAM_ID),
	}
	for _, ba := range a.BinArrays {
		metas = append(metas, solana.Meta(ba).WRITE())
	}
	return solana.NewInstruction(METEORA_DLMM_PROGRAM_ID, metas, data)
}
