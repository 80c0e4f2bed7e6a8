package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool/orca"
	"github.com/yimingWOW/clmmctl/pkg/sol"
)

// OrcaWhirlpoolProtocol 实现 Protocol 接口
type OrcaWhirlpoolProtocol struct {
	SolClient *sol.Client
}

// NewOrcaWhirlpool 创建新的 Orca Whirlpool 协议实例
func NewOrcaWhirlpool(solClient *sol.Client) *OrcaWhirlpoolProtocol {
	return &OrcaWhirlpoolProtocol{
		SolClient: solClient,
	}
}

func (p *OrcaWhirlpoolProtocol) Name() pkg.ProtocolName {
	return pkg.ProtocolNameOrcaWhirlpool
}

func (p *OrcaWhirlpoolProtocol) ProgramID() solana.PublicKey {
	return orca.ORCA_WHIRLPOOL_PROGRAM_ID
}

func (p *OrcaWhirlpoolProtocol) ValidateRequest(req *pkg.Request) error {
	return checkTickBounds(req, orca.MIN_TICK, orca.MAX_TICK)
}

// PositionAddress 由 position mint 派生 Position 账户
func (p *OrcaWhirlpoolProtocol) PositionAddress(id solana.PublicKey) solana.PublicKey {
	addr, _ := orca.DeriveWhirlpoolPositionPDA(id)
	return addr
}

func (p *OrcaWhirlpoolProtocol) DecodePool(acct *pkg.Account) (pkg.Pool, error) {
	pool, err := orca.DecodeWhirlpool(acct)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (p *OrcaWhirlpoolProtocol) DecodePosition(acct *pkg.Account) (pkg.Position, error) {
	pos, err := orca.DecodeWhirlpoolPosition(acct)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

func (p *OrcaWhirlpoolProtocol) ResolveRange(pool pkg.Pool, spec pkg.RangeSpec) (int32, int32, error) {
	return resolveTickRange(pool.State(), spec, orca.MIN_TICK, orca.MAX_TICK)
}

func (p *OrcaWhirlpoolProtocol) DeriveAddresses(req *pkg.Request, snap *pkg.Snapshot) (*pkg.Derived, error) {
	pool, ok := snap.Pool.(*orca.WhirlpoolPool)
	if !ok {
		return nil, fmt.Errorf("orca: unexpected pool type %T", snap.Pool)
	}
	owner := req.Owner.PublicKey()
	d := &pkg.Derived{
		Mints: []solana.PublicKey{pool.TokenMintA, pool.TokenMintB},
	}

	switch req.Op {
	case pkg.OpOpen:
		positionMint, err := newSigner()
		if err != nil {
			return nil, err
		}
		d.Signers = []solana.PrivateKey{positionMint}
		d.PositionMint = positionMint.PublicKey()
		d.Position, d.PositionBump = orca.DeriveWhirlpoolPositionPDA(d.PositionMint)
		d.PositionTokenAccount = nftTokenAccount(owner, d.PositionMint)
		p.deriveRange(d, pool, snap.Lower, snap.Upper)

	case pkg.OpAdd, pkg.OpRemove:
		pos, ok := snap.Position.(*orca.WhirlpoolPosition)
		if !ok {
			return nil, fmt.Errorf("orca: unexpected position type %T", snap.Position)
		}
		d.PositionMint = pos.PositionMint
		d.Position = pos.Address
		d.PositionTokenAccount = nftTokenAccount(owner, pos.PositionMint)
		p.deriveRange(d, pool, snap.Lower, snap.Upper)

	case pkg.OpSwap:
		arrays := orca.DeriveMultipleWhirlpoolTickArrayPDAs(pool.PoolId, pool.TickCurrentIndex, pool.TickSpacing, req.AToB)
		starts := orca.SwapTickArrayStarts(pool.TickCurrentIndex, pool.TickSpacing, req.AToB)
		d.RangeGroups = arrays[:]
		d.RangeGroupStarts = starts[:]
		d.Oracle = orca.DeriveWhirlpoolOraclePDA(pool.PoolId)

	default:
		return nil, fmt.Errorf("%w: orca operation %s", pkg.ErrUnsupported, req.Op)
	}
	return d, nil
}

func (p *OrcaWhirlpoolProtocol) deriveRange(d *pkg.Derived, pool *orca.WhirlpoolPool, lower, upper int32) {
	spacing := int64(pool.TickSpacing)
	lowerStart := orca.GetWhirlpoolTickArrayStartIndexByTick(int64(lower), spacing)
	upperStart := orca.GetWhirlpoolTickArrayStartIndexByTick(int64(upper), spacing)
	d.RangeGroups = []solana.PublicKey{
		orca.DeriveWhirlpoolTickArrayPDA(pool.PoolId, lowerStart),
		orca.DeriveWhirlpoolTickArrayPDA(pool.PoolId, upperStart),
	}
	d.RangeGroupStarts = []int64{lowerStart, upperStart}
}

func (p *OrcaWhirlpoolProtocol) BuildCoreInstructions(req *pkg.Request, snap *pkg.Snapshot, d *pkg.Derived, tokens pkg.TokenAccounts) ([]solana.Instruction, error) {
	pool, ok := snap.Pool.(*orca.WhirlpoolPool)
	if !ok {
		return nil, fmt.Errorf("orca: unexpected pool type %T", snap.Pool)
	}
	owner := req.Owner.PublicKey()
	taA, err := tokenFor(tokens, pool.TokenMintA)
	if err != nil {
		return nil, err
	}
	taB, err := tokenFor(tokens, pool.TokenMintB)
	if err != nil {
		return nil, err
	}

	switch req.Op {
	case pkg.OpOpen, pkg.OpAdd:
		q, err := quoteTickRange(pool.State(), snap.Lower, snap.Upper, req.Amount0, req.Amount1)
		if err != nil {
			return nil, err
		}
		maxA, maxB := q.MaxAmounts()
		var ixs []solana.Instruction
		if req.Op == pkg.OpOpen {
			ixs = append(ixs, orca.NewOpenPositionInstruction(d.PositionBump, snap.Lower, snap.Upper, orca.OpenPositionAccounts{
				Funder:               owner,
				Owner:                owner,
				Position:             d.Position,
				PositionMint:         d.PositionMint,
				PositionTokenAccount: d.PositionTokenAccount,
				Whirlpool:            pool.PoolId,
			}))
		}
		ixs = append(ixs, orca.NewIncreaseLiquidityV2Instruction(q.Liquidity, maxA, maxB, p.liquidityAccounts(owner, pool, d, taA, taB)))
		return ixs, nil

	case pkg.OpRemove:
		pos := snap.Position.State()
		liquidity, err := removeLiquidity(req, pos)
		if err != nil {
			return nil, err
		}
		accounts := p.liquidityAccounts(owner, pool, d, taA, taB)
		var ixs []solana.Instruction
		if !liquidity.IsZero() {
			ixs = append(ixs, orca.NewDecreaseLiquidityV2Instruction(liquidity, req.MinOut0, req.MinOut1, accounts))
		}
		if !liquidity.IsZero() || pos.FeesOwedA > 0 || pos.FeesOwedB > 0 {
			ixs = append(ixs, orca.NewCollectFeesV2Instruction(accounts))
		}
		if req.Close {
			ixs = append(ixs, orca.NewClosePositionInstruction(owner, owner, d.Position, d.PositionMint, d.PositionTokenAccount))
		}
		return ixs, nil

	case pkg.OpSwap:
		limit := req.SqrtPriceLimit
		if limit.IsZero() {
			limit = orca.DefaultSqrtPriceLimit(req.AToB)
		}
		return []solana.Instruction{orca.NewSwapV2Instruction(req.SwapAmountIn, req.SwapMinOut, limit, req.AToB, orca.SwapV2Accounts{
			TokenProgramA:      taA.Program,
			TokenProgramB:      taB.Program,
			TokenAuthority:     owner,
			Whirlpool:          pool.PoolId,
			TokenMintA:         pool.TokenMintA,
			TokenMintB:         pool.TokenMintB,
			TokenOwnerAccountA: taA.Address,
			TokenVaultA:        pool.TokenVaultA,
			TokenOwnerAccountB: taB.Address,
			TokenVaultB:        pool.TokenVaultB,
			TickArrays:         [3]solana.PublicKey{d.RangeGroups[0], d.RangeGroups[1], d.RangeGroups[2]},
			Oracle:             d.Oracle,
		})}, nil
	}
	return nil, fmt.Errorf("%w: orca operation %s", pkg.ErrUnsupported, req.Op)
}

func (p *OrcaWhirlpoolProtocol) liquidityAccounts(owner solana.PublicKey, pool *orca.WhirlpoolPool, d *pkg.Derived, taA, taB pkg.TokenAccount) orca.LiquidityAccounts {
	return orca.LiquidityAccounts{
		Whirlpool:            pool.PoolId,
		TokenProgramA:        taA.Program,
		TokenProgramB:        taB.Program,
		PositionAuthority:    owner,
		Position:             d.Position,
		PositionTokenAccount: d.PositionTokenAccount,
		TokenMintA:           pool.TokenMintA,
		TokenMintB:           pool.TokenMintB,
		TokenOwnerAccountA:   taA.Address,
		TokenOwnerAccountB:   taB.Address,
		TokenVaultA:          pool.TokenVaultA,
		TokenVaultB:          pool.TokenVaultB,
		TickArrayLower:       d.RangeGroups[0],
		TickArrayUpper:       d.RangeGroups[1],
	}
}

// FetchPoolsByPair 根据代币对获取 Whirlpool 池列表
func (p *OrcaWhirlpoolProtocol) FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]pkg.Pool, error) {
	return fetchPoolsByPair(ctx, p, p.SolClient, &orca.WhirlpoolPool{}, "TokenMintA", "TokenMintB", baseMint, quoteMint)
}
