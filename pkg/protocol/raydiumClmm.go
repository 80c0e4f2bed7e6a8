package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool/raydium"
	"github.com/yimingWOW/clmmctl/pkg/sol"
)

// swapTickArrayCount 是 swap 指令携带的 tick array 数量上限 (1 个固定账户 + 2 个 remaining)
const swapTickArrayCount = 3

// RaydiumClmmProtocol 实现 Protocol 接口
type RaydiumClmmProtocol struct {
	SolClient *sol.Client
}

// NewRaydiumClmm 创建新的 Raydium CLMM 协议实例
func NewRaydiumClmm(solClient *sol.Client) *RaydiumClmmProtocol {
	return &RaydiumClmmProtocol{
		SolClient: solClient,
	}
}

func (p *RaydiumClmmProtocol) Name() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumClmm
}

func (p *RaydiumClmmProtocol) ProgramID() solana.PublicKey {
	return raydium.RAYDIUM_CLMM_PROGRAM_ID
}

func (p *RaydiumClmmProtocol) ValidateRequest(req *pkg.Request) error {
	return checkTickBounds(req, raydium.MIN_TICK, raydium.MAX_TICK)
}

// PositionAddress 由 NFT mint 派生 personal position
func (p *RaydiumClmmProtocol) PositionAddress(id solana.PublicKey) solana.PublicKey {
	return raydium.DerivePersonalPositionPDA(id)
}

func (p *RaydiumClmmProtocol) DecodePool(acct *pkg.Account) (pkg.Pool, error) {
	pool, err := raydium.DecodePool(acct)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (p *RaydiumClmmProtocol) DecodePosition(acct *pkg.Account) (pkg.Position, error) {
	pos, err := raydium.DecodePersonalPosition(acct)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

func (p *RaydiumClmmProtocol) ResolveRange(pool pkg.Pool, spec pkg.RangeSpec) (int32, int32, error) {
	return resolveTickRange(pool.State(), spec, raydium.MIN_TICK, raydium.MAX_TICK)
}

func (p *RaydiumClmmProtocol) DeriveAddresses(req *pkg.Request, snap *pkg.Snapshot) (*pkg.Derived, error) {
	pool, ok := snap.Pool.(*raydium.CLMMPool)
	if !ok {
		return nil, fmt.Errorf("raydium: unexpected pool type %T", snap.Pool)
	}
	owner := req.Owner.PublicKey()
	d := &pkg.Derived{
		Mints: []solana.PublicKey{pool.TokenMint0, pool.TokenMint1},
	}

	switch req.Op {
	case pkg.OpOpen:
		nftMint, err := newSigner()
		if err != nil {
			return nil, err
		}
		d.Signers = []solana.PrivateKey{nftMint}
		d.PositionMint = nftMint.PublicKey()
		d.Position = raydium.DerivePersonalPositionPDA(d.PositionMint)
		d.PositionTokenAccount = nftTokenAccount(owner, d.PositionMint)
		d.Metadata = sol.FindMetadataAddress(d.PositionMint)
		p.deriveRange(d, pool, snap.Lower, snap.Upper)

	case pkg.OpAdd, pkg.OpRemove:
		pos, ok := snap.Position.(*raydium.PersonalPosition)
		if !ok {
			return nil, fmt.Errorf("raydium: unexpected position type %T", snap.Position)
		}
		d.PositionMint = pos.NftMint
		d.Position = pos.Address
		d.PositionTokenAccount = nftTokenAccount(owner, pos.NftMint)
		p.deriveRange(d, pool, snap.Lower, snap.Upper)
		if req.Op == pkg.OpRemove {
			for _, r := range pool.RewardInfos {
				if r.Initialized() {
					d.Mints = append(d.Mints, r.TokenMint)
				}
			}
		}

	case pkg.OpSwap:
		starts := pool.SwapTickArrayStarts(req.AToB, swapTickArrayCount)
		for _, start := range starts {
			d.RangeGroups = append(d.RangeGroups, raydium.DeriveTickArrayPDA(pool.PoolId, start))
			d.RangeGroupStarts = append(d.RangeGroupStarts, int64(start))
			if !pool.InDefaultBitmap(start) {
				d.BitmapExtension = raydium.DeriveTickArrayBitmapExtensionPDA(pool.PoolId)
			}
		}

	default:
		return nil, fmt.Errorf("%w: raydium operation %s", pkg.ErrUnsupported, req.Op)
	}
	return d, nil
}

// deriveRange 计算区间两端的 tick array 和 protocol position
func (p *RaydiumClmmProtocol) deriveRange(d *pkg.Derived, pool *raydium.CLMMPool, lower, upper int32) {
	lowerStart := pool.TickArrayStartIndex(lower)
	upperStart := pool.TickArrayStartIndex(upper)
	d.RangeGroups = []solana.PublicKey{
		raydium.DeriveTickArrayPDA(pool.PoolId, lowerStart),
		raydium.DeriveTickArrayPDA(pool.PoolId, upperStart),
	}
	d.RangeGroupStarts = []int64{int64(lowerStart), int64(upperStart)}
	d.ProtocolPosition = raydium.DeriveProtocolPositionPDA(pool.PoolId, lower, upper)
	if !pool.InDefaultBitmap(lowerStart) || !pool.InDefaultBitmap(upperStart) {
		d.BitmapExtension = raydium.DeriveTickArrayBitmapExtensionPDA(pool.PoolId)
	}
}

func (p *RaydiumClmmProtocol) BuildCoreInstructions(req *pkg.Request, snap *pkg.Snapshot, d *pkg.Derived, tokens pkg.TokenAccounts) ([]solana.Instruction, error) {
	pool, ok := snap.Pool.(*raydium.CLMMPool)
	if !ok {
		return nil, fmt.Errorf("raydium: unexpected pool type %T", snap.Pool)
	}
	owner := req.Owner.PublicKey()
	ta0, err := tokenFor(tokens, pool.TokenMint0)
	if err != nil {
		return nil, err
	}
	ta1, err := tokenFor(tokens, pool.TokenMint1)
	if err != nil {
		return nil, err
	}

	switch req.Op {
	case pkg.OpOpen:
		q, err := quoteTickRange(pool.State(), snap.Lower, snap.Upper, req.Amount0, req.Amount1)
		if err != nil {
			return nil, err
		}
		max0, max1 := q.MaxAmounts()
		return []solana.Instruction{raydium.NewOpenPositionV2Instruction(raydium.OpenPositionV2Args{
			TickLowerIndex:           snap.Lower,
			TickUpperIndex:           snap.Upper,
			TickArrayLowerStartIndex: int32(d.RangeGroupStarts[0]),
			TickArrayUpperStartIndex: int32(d.RangeGroupStarts[1]),
			Liquidity:                q.Liquidity,
			Amount0Max:               max0,
			Amount1Max:               max1,
			WithMetadata:             true,
		}, raydium.OpenPositionV2Accounts{
			Payer:              owner,
			PositionNftOwner:   owner,
			PositionNftMint:    d.PositionMint,
			PositionNftAccount: d.PositionTokenAccount,
			MetadataAccount:    d.Metadata,
			PoolState:          pool.PoolId,
			ProtocolPosition:   d.ProtocolPosition,
			TickArrayLower:     d.RangeGroups[0],
			TickArrayUpper:     d.RangeGroups[1],
			PersonalPosition:   d.Position,
			TokenAccount0:      ta0.Address,
			TokenAccount1:      ta1.Address,
			TokenVault0:        pool.TokenVault0,
			TokenVault1:        pool.TokenVault1,
			Vault0Mint:         pool.TokenMint0,
			Vault1Mint:         pool.TokenMint1,
			BitmapExtension:    d.BitmapExtension,
		})}, nil

	case pkg.OpAdd:
		q, err := quoteTickRange(pool.State(), snap.Lower, snap.Upper, req.Amount0, req.Amount1)
		if err != nil {
			return nil, err
		}
		max0, max1 := q.MaxAmounts()
		return []solana.Instruction{
			raydium.NewIncreaseLiquidityV2Instruction(q.Liquidity, max0, max1, nil, p.liquidityAccounts(owner, pool, d, ta0, ta1)),
		}, nil

	case pkg.OpRemove:
		pos := snap.Position.State()
		liquidity, err := removeLiquidity(req, pos)
		if err != nil {
			return nil, err
		}
		var ixs []solana.Instruction
		if !liquidity.IsZero() || pos.FeesOwedA > 0 || pos.FeesOwedB > 0 {
			var rewards []raydium.RewardAccounts
			for _, r := range pool.RewardInfos {
				if !r.Initialized() {
					continue
				}
				ta, err := tokenFor(tokens, r.TokenMint)
				if err != nil {
					return nil, err
				}
				rewards = append(rewards, raydium.RewardAccounts{
					RewardVault:      r.TokenVault,
					RecipientAccount: ta.Address,
					RewardMint:       r.TokenMint,
				})
			}
			ixs = append(ixs, raydium.NewDecreaseLiquidityV2Instruction(liquidity, req.MinOut0, req.MinOut1,
				p.liquidityAccounts(owner, pool, d, ta0, ta1), rewards))
		}
		if req.Close {
			ixs = append(ixs, raydium.NewClosePositionInstruction(owner, d.PositionMint, d.PositionTokenAccount, d.Position))
		}
		return ixs, nil

	case pkg.OpSwap:
		for _, ta := range []pkg.TokenAccount{ta0, ta1} {
			if ta.Program.Equals(sol.Token2022ProgramID) {
				return nil, fmt.Errorf("%w: raydium swap only supports SPL Token mints, %s is Token-2022", pkg.ErrUnsupported, ta.Mint)
			}
		}
		inMint, outMint, inVault, outVault := swapSides(pool.State(), req.AToB)
		return []solana.Instruction{raydium.NewSwapInstruction(req.SwapAmountIn, req.SwapMinOut, req.SqrtPriceLimit, raydium.SwapAccounts{
			Payer:              owner,
			AmmConfig:          pool.AmmConfig,
			PoolState:          pool.PoolId,
			InputTokenAccount:  tokens[inMint].Address,
			OutputTokenAccount: tokens[outMint].Address,
			InputVault:         inVault,
			OutputVault:        outVault,
			ObservationState:   pool.ObservationKey,
			TickArrays:         d.RangeGroups,
			BitmapExtension:    d.BitmapExtension,
		})}, nil
	}
	return nil, fmt.Errorf("%w: raydium operation %s", pkg.ErrUnsupported, req.Op)
}

func (p *RaydiumClmmProtocol) liquidityAccounts(owner solana.PublicKey, pool *raydium.CLMMPool, d *pkg.Derived, ta0, ta1 pkg.TokenAccount) raydium.LiquidityAccounts {
	return raydium.LiquidityAccounts{
		NftOwner:         owner,
		NftAccount:       d.PositionTokenAccount,
		PoolState:        pool.PoolId,
		ProtocolPosition: d.ProtocolPosition,
		PersonalPosition: d.Position,
		TickArrayLower:   d.RangeGroups[0],
		TickArrayUpper:   d.RangeGroups[1],
		TokenAccount0:    ta0.Address,
		TokenAccount1:    ta1.Address,
		TokenVault0:      pool.TokenVault0,
		TokenVault1:      pool.TokenVault1,
		Vault0Mint:       pool.TokenMint0,
		Vault1Mint:       pool.TokenMint1,
		BitmapExtension:  d.BitmapExtension,
	}
}

// FetchPoolsByPair 根据代币对获取 CLMM 池列表
func (p *RaydiumClmmProtocol) FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]pkg.Pool, error) {
	return fetchPoolsByPair(ctx, p, p.SolClient, &raydium.CLMMPool{}, "TokenMint0", "TokenMint1", baseMint, quoteMint)
}
