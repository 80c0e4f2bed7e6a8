package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool/meteora"
	"github.com/yimingWOW/clmmctl/pkg/quote"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
	"github.com/yimingWOW/clmmctl/pkg/sol"
)

// MeteoraDlmmProtocol 实现 Protocol 接口, 仓位是独立的账户而不是 NFT
type MeteoraDlmmProtocol struct {
	SolClient *sol.Client
}

func NewMeteoraDlmm(solClient *sol.Client) *MeteoraDlmmProtocol {
	return &MeteoraDlmmProtocol{
		SolClient: solClient,
	}
}

func (p *MeteoraDlmmProtocol) Name() pkg.ProtocolName {
	return pkg.ProtocolNameMeteoraDlmm
}

func (p *MeteoraDlmmProtocol) ProgramID() solana.PublicKey {
	return meteora.METEORA_DLMM_PROGRAM_ID
}

func (p *MeteoraDlmmProtocol) ValidateRequest(req *pkg.Request) error {
	switch req.Op {
	case pkg.OpOpen:
		if req.Range.ByPrice {
			return nil
		}
		return checkBinRange(req.Range.Lower, req.Range.Upper)
	case pkg.OpRemove:
		if !req.Liquidity.IsZero() {
			return fmt.Errorf("%w: meteora removes all liquidity of a position, --liquidity is not accepted", pkg.ErrUnsupported)
		}
	case pkg.OpSwap:
		if !req.SqrtPriceLimit.IsZero() {
			return fmt.Errorf("%w: meteora swap has no sqrt price limit", pkg.ErrUnsupported)
		}
	}
	return nil
}

func checkBinRange(lower, upper int32) error {
	if lower > upper {
		return pkg.InputError("range", "lower bin %d above upper bin %d", lower, upper)
	}
	if lower < meteora.MIN_BIN_ID || upper > meteora.MAX_BIN_ID {
		return pkg.InputError("range", "[%d, %d] is outside [%d, %d]", lower, upper, meteora.MIN_BIN_ID, meteora.MAX_BIN_ID)
	}
	if width := int64(upper) - int64(lower) + 1; width > meteora.MAX_POSITION_WIDTH {
		return pkg.InputError("range", "width %d exceeds %d bins", width, meteora.MAX_POSITION_WIDTH)
	}
	return nil
}

// PositionAddress 仓位账户本身就是标识
func (p *MeteoraDlmmProtocol) PositionAddress(id solana.PublicKey) solana.PublicKey {
	return id
}

func (p *MeteoraDlmmProtocol) DecodePool(acct *pkg.Account) (pkg.Pool, error) {
	pool, err := meteora.DecodeLbPair(acct)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (p *MeteoraDlmmProtocol) DecodePosition(acct *pkg.Account) (pkg.Position, error) {
	pos, err := meteora.DecodePosition(acct)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// ResolveRange 每个 bin id 都是合法端点, 价格按 1 + binStep/10000 换算
func (p *MeteoraDlmmProtocol) ResolveRange(pool pkg.Pool, spec pkg.RangeSpec) (int32, int32, error) {
	lbPair, ok := pool.(*meteora.LbPair)
	if !ok {
		return 0, 0, fmt.Errorf("meteora: unexpected pool type %T", pool)
	}
	lower, upper := spec.Lower, spec.Upper
	if spec.ByPrice {
		var err error
		if lower, err = rangemath.PriceToIndex(spec.PriceMin, lbPair.BinBase()); err != nil {
			return 0, 0, err
		}
		if upper, err = rangemath.PriceToIndex(spec.PriceMax, lbPair.BinBase()); err != nil {
			return 0, 0, err
		}
	}
	if err := checkBinRange(lower, upper); err != nil {
		return 0, 0, err
	}
	return lower, upper, nil
}

func (p *MeteoraDlmmProtocol) DeriveAddresses(req *pkg.Request, snap *pkg.Snapshot) (*pkg.Derived, error) {
	lbPair, ok := snap.Pool.(*meteora.LbPair)
	if !ok {
		return nil, fmt.Errorf("meteora: unexpected pool type %T", snap.Pool)
	}
	d := &pkg.Derived{
		Mints:          []solana.PublicKey{lbPair.TokenXMint, lbPair.TokenYMint},
		EventAuthority: meteora.DeriveEventAuthorityPDA(),
	}

	switch req.Op {
	case pkg.OpOpen:
		position, err := newSigner()
		if err != nil {
			return nil, err
		}
		d.Signers = []solana.PrivateKey{position}
		d.Position = position.PublicKey()
		p.deriveRange(d, lbPair, snap.Lower, snap.Upper)

	case pkg.OpAdd, pkg.OpRemove:
		pos, ok := snap.Position.(*meteora.Position)
		if !ok {
			return nil, fmt.Errorf("meteora: unexpected position type %T", snap.Position)
		}
		if owner := req.Owner.PublicKey(); !pos.Owner.Equals(owner) {
			return nil, pkg.InputError("position", "%s is owned by %s, not %s", pos.Address, pos.Owner, owner)
		}
		d.Position = pos.Address
		p.deriveRange(d, lbPair, snap.Lower, snap.Upper)

	case pkg.OpSwap:
		for _, idx := range lbPair.SwapBinArrayIndexes(req.AToB) {
			d.RangeGroups = append(d.RangeGroups, meteora.DeriveBinArrayPDA(lbPair.PoolId, idx))
			d.RangeGroupStarts = append(d.RangeGroupStarts, idx*meteora.BINS_PER_ARRAY)
		}
		d.Oracle = lbPair.Oracle

	default:
		return nil, fmt.Errorf("%w: meteora operation %s", pkg.ErrUnsupported, req.Op)
	}
	return d, nil
}

// deriveRange 两端落在同一个 bin array 时上端使用下一个 bin array, 仓位区间本身不变
func (p *MeteoraDlmmProtocol) deriveRange(d *pkg.Derived, lbPair *meteora.LbPair, lower, upper int32) {
	lowerIdx, upperIdx := meteora.PositionBinArrays(lower, upper)
	d.RangeGroups = []solana.PublicKey{
		meteora.DeriveBinArrayPDA(lbPair.PoolId, lowerIdx),
		meteora.DeriveBinArrayPDA(lbPair.PoolId, upperIdx),
	}
	d.RangeGroupStarts = []int64{lowerIdx * meteora.BINS_PER_ARRAY, upperIdx * meteora.BINS_PER_ARRAY}
}

func (p *MeteoraDlmmProtocol) BuildCoreInstructions(req *pkg.Request, snap *pkg.Snapshot, d *pkg.Derived, tokens pkg.TokenAccounts) ([]solana.Instruction, error) {
	lbPair, ok := snap.Pool.(*meteora.LbPair)
	if !ok {
		return nil, fmt.Errorf("meteora: unexpected pool type %T", snap.Pool)
	}
	owner := req.Owner.PublicKey()
	taX, err := tokenFor(tokens, lbPair.TokenXMint)
	if err != nil {
		return nil, err
	}
	taY, err := tokenFor(tokens, lbPair.TokenYMint)
	if err != nil {
		return nil, err
	}

	switch req.Op {
	case pkg.OpOpen, pkg.OpAdd:
		shares, err := quote.Distribute(snap.Lower, snap.Upper, lbPair.ActiveId, req.Amount0, req.Amount1)
		if err != nil {
			return nil, fmt.Errorf("distribute over bins [%d, %d] of %s: %w", snap.Lower, snap.Upper, lbPair.PoolId, err)
		}
		var ixs []solana.Instruction
		if req.Op == pkg.OpOpen {
			ixs = append(ixs, meteora.NewInitializePositionInstruction(owner, d.Position, lbPair.PoolId, owner,
				snap.Lower, snap.Upper-snap.Lower+1))
		}
		ixs = append(ixs, meteora.NewAddLiquidityInstruction(req.Amount0, req.Amount1, shares, p.liquidityAccounts(owner, lbPair, d, taX, taY)))
		return ixs, nil

	case pkg.OpRemove:
		pos := snap.Position.State()
		if pos.Liquidity.IsZero() && !req.Close {
			return nil, pkg.InputError("position", "%s has no liquidity; pass --close to close it", pos.Address)
		}
		var ixs []solana.Instruction
		if !pos.Liquidity.IsZero() {
			ixs = append(ixs, meteora.NewRemoveAllLiquidityInstruction(p.liquidityAccounts(owner, lbPair, d, taX, taY)))
		}
		if req.Close {
			ixs = append(ixs, meteora.NewClosePositionIfEmptyInstruction(d.Position, owner))
		}
		return ixs, nil

	case pkg.OpSwap:
		inMint, outMint, _, _ := swapSides(lbPair.State(), req.AToB)
		return []solana.Instruction{meteora.NewSwapInstruction(req.SwapAmountIn, req.SwapMinOut, meteora.SwapAccounts{
			LbPair:        lbPair.PoolId,
			ReserveX:      lbPair.ReserveX,
			ReserveY:      lbPair.ReserveY,
			UserTokenIn:   tokens[inMint].Address,
			UserTokenOut:  tokens[outMint].Address,
			TokenXMint:    lbPair.TokenXMint,
			TokenYMint:    lbPair.TokenYMint,
			Oracle:        d.Oracle,
			User:          owner,
			TokenXProgram: taX.Program,
			TokenYProgram: taY.Program,
			BinArrays:     d.RangeGroups,
		})}, nil
	}
	return nil, fmt.Errorf("%w: meteora operation %s", pkg.ErrUnsupported, req.Op)
}

func (p *MeteoraDlmmProtocol) liquidityAccounts(owner solana.PublicKey, lbPair *meteora.LbPair, d *pkg.Derived, taX, taY pkg.TokenAccount) meteora.LiquidityAccounts {
	return meteora.LiquidityAccounts{
		Position:      d.Position,
		LbPair:        lbPair.PoolId,
		UserTokenX:    taX.Address,
		UserTokenY:    taY.Address,
		ReserveX:      lbPair.ReserveX,
		ReserveY:      lbPair.ReserveY,
		TokenXMint:    lbPair.TokenXMint,
		TokenYMint:    lbPair.TokenYMint,
		BinArrayLower: d.RangeGroups[0],
		BinArrayUpper: d.RangeGroups[1],
		Sender:        owner,
		TokenXProgram: taX.Program,
		TokenYProgram: taY.Program,
	}
}

// FetchPoolsByPair 根据代币对获取 LbPair 列表
func (p *MeteoraDlmmProtocol) FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]pkg.Pool, error) {
	return fetchPoolsByPair(ctx, p, p.SolClient, &meteora.LbPair{}, "TokenXMint", "TokenYMint", baseMint, quoteMint)
}
