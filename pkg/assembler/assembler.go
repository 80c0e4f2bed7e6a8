// Package assembler turns a request into an ordered, signed-ready instruction plan.
package assembler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/metrics"
	"github.com/yimingWOW/clmmctl/pkg/sol"
	"go.uber.org/zap"
)

// State 是组装过程所处的阶段, 只能向前推进
type State int

const (
	StateInit State = iota
	StateComputeBudgetSet
	StateAccountsEnsured
	StateCoreOpBuilt
	StateOptionalUnwrap
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateComputeBudgetSet:
		return "ComputeBudgetSet"
	case StateAccountsEnsured:
		return "AccountsEnsured"
	case StateCoreOpBuilt:
		return "CoreOpBuilt"
	case StateOptionalUnwrap:
		return "OptionalUnwrap"
	case StateReady:
		return "Ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Plan 是组装结果. 指令只追加, 进入 Ready 之后不可再修改.
type Plan struct {
	Protocol pkg.ProtocolName
	Op       pkg.Operation
	Snapshot *pkg.Snapshot
	Derived  *pkg.Derived
	Tokens   pkg.TokenAccounts

	// Signers holds the owner first, then keys generated for the operation.
	Signers []solana.PrivateKey
	// Visited lists every state the plan passed through, in order.
	Visited []State

	instructions []solana.Instruction
	state        State
}

func (p *Plan) State() State {
	return p.state
}

// Instructions returns a copy of the ordered instruction list.
func (p *Plan) Instructions() []solana.Instruction {
	out := make([]solana.Instruction, len(p.instructions))
	copy(out, p.instructions)
	return out
}

// Payer is the fee payer, always the owner.
func (p *Plan) Payer() solana.PublicKey {
	return p.Signers[0].PublicKey()
}

func (p *Plan) append(ixs ...solana.Instruction) error {
	if p.state == StateReady {
		return fmt.Errorf("plan is sealed")
	}
	p.instructions = append(p.instructions, ixs...)
	return nil
}

func (p *Plan) advance(next State) error {
	if next <= p.state {
		return fmt.Errorf("illegal transition %s -> %s", p.state, next)
	}
	p.state = next
	p.Visited = append(p.Visited, next)
	return nil
}

type Assembler struct {
	proto   pkg.Protocol
	reader  pkg.AccountReader
	cuLimit uint32
	cuPrice uint64
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Assembler)

func WithComputeBudget(unitLimit uint32, microLamports uint64) Option {
	return func(a *Assembler) {
		a.cuLimit = unitLimit
		a.cuPrice = microLamports
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(a *Assembler) {
		if log != nil {
			a.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

func New(proto pkg.Protocol, reader pkg.AccountReader, opts ...Option) *Assembler {
	a := &Assembler{
		proto:   proto,
		reader:  reader,
		cuLimit: sol.DefaultComputeUnitLimit,
		cuPrice: sol.DefaultComputeUnitPrice,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble 执行完整的状态机. 任意一步失败都不返回 plan.
func (a *Assembler) Assemble(ctx context.Context, req *pkg.Request) (*Plan, error) {
	plan, err := a.assemble(ctx, req)
	count := 0
	if plan != nil {
		count = len(plan.instructions)
	}
	a.metrics.ObservePlan(string(a.proto.Name()), req.Op.String(), count, err)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (a *Assembler) assemble(ctx context.Context, req *pkg.Request) (*Plan, error) {
	log := a.log.With(zap.String("dex", string(a.proto.Name())), zap.Stringer("op", req.Op))

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := a.proto.ValidateRequest(req); err != nil {
		return nil, err
	}
	snap, err := a.snapshot(ctx, req)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Protocol: a.proto.Name(),
		Op:       req.Op,
		Snapshot: snap,
		Signers:  []solana.PrivateKey{req.Owner},
		Visited:  []State{StateInit},
	}
	log.Debug("snapshot loaded",
		zap.Stringer("pool", snap.Pool.State().Address),
		zap.Int32("lower", snap.Lower),
		zap.Int32("upper", snap.Upper),
	)

	if err := plan.append(sol.ComputeBudgetInstructions(a.cuLimit, a.cuPrice)...); err != nil {
		return nil, err
	}
	if err := a.step(plan, StateComputeBudgetSet, log); err != nil {
		return nil, err
	}

	derived, err := a.proto.DeriveAddresses(req, snap)
	if err != nil {
		return nil, fmt.Errorf("derive addresses: %w", err)
	}
	plan.Derived = derived
	plan.Signers = append(plan.Signers, derived.Signers...)
	if err := a.ensureAccounts(ctx, req, plan); err != nil {
		return nil, err
	}
	if err := a.step(plan, StateAccountsEnsured, log); err != nil {
		return nil, err
	}

	core, err := a.proto.BuildCoreInstructions(req, snap, derived, plan.Tokens)
	if err != nil {
		return nil, err
	}
	if len(core) == 0 {
		return nil, fmt.Errorf("%s %s produced no instructions", a.proto.Name(), req.Op)
	}
	if err := plan.append(core...); err != nil {
		return nil, err
	}
	if err := a.step(plan, StateCoreOpBuilt, log); err != nil {
		return nil, err
	}

	if req.UnwrapSOL {
		if wsol, ok := plan.Tokens[sol.WSOL]; ok {
			if err := plan.append(sol.NewCloseAccountInstruction(wsol.Address, req.Owner.PublicKey())); err != nil {
				return nil, err
			}
			if err := a.step(plan, StateOptionalUnwrap, log); err != nil {
				return nil, err
			}
		}
	}

	if err := a.step(plan, StateReady, log); err != nil {
		return nil, err
	}
	return plan, nil
}

func (a *Assembler) step(plan *Plan, next State, log *zap.Logger) error {
	if err := plan.advance(next); err != nil {
		return err
	}
	log.Debug("plan advanced", zap.String("state", next.String()), zap.Int("instructions", len(plan.instructions)))
	return nil
}

// snapshot 读取并解析本次操作依赖的池子和仓位
func (a *Assembler) snapshot(ctx context.Context, req *pkg.Request) (*pkg.Snapshot, error) {
	snap := &pkg.Snapshot{}
	poolAddr := req.Pool

	if req.Op == pkg.OpAdd || req.Op == pkg.OpRemove {
		posAddr := a.proto.PositionAddress(req.Position)
		acct, err := a.reader.GetAccount(ctx, posAddr)
		if err != nil {
			return nil, fmt.Errorf("read position %s: %w", posAddr, err)
		}
		pos, err := a.proto.DecodePosition(acct)
		if err != nil {
			return nil, err
		}
		st := pos.State()
		snap.Position = pos
		snap.Lower, snap.Upper = st.Lower, st.Upper
		poolAddr = st.Pool
	}

	acct, err := a.reader.GetAccount(ctx, poolAddr)
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w", poolAddr, err)
	}
	pool, err := a.proto.DecodePool(acct)
	if err != nil {
		return nil, err
	}
	snap.Pool = pool

	if req.Op == pkg.OpOpen {
		lower, upper, err := a.proto.ResolveRange(pool, req.Range)
		if err != nil {
			return nil, err
		}
		snap.Lower, snap.Upper = lower, upper
	}
	return snap, nil
}

// ensureAccounts 为每个 mint 解析 token 程序并补齐缺失的 ATA; 仓位 NFT 账户必须已存在
func (a *Assembler) ensureAccounts(ctx context.Context, req *pkg.Request, plan *Plan) error {
	owner := req.Owner.PublicKey()
	programs := sol.NewTokenPrograms(a.reader)
	plan.Tokens = make(pkg.TokenAccounts, len(plan.Derived.Mints))

	for _, mint := range plan.Derived.Mints {
		if _, done := plan.Tokens[mint]; done {
			continue
		}
		program, err := programs.ProgramOf(ctx, mint)
		if err != nil {
			return err
		}
		ata, ixs, err := sol.EnsureAssociatedTokenAccount(ctx, a.reader, owner, owner, mint, program)
		if err != nil {
			return err
		}
		if err := plan.append(ixs...); err != nil {
			return err
		}
		plan.Tokens[mint] = pkg.TokenAccount{Mint: mint, Address: ata, Program: program}
	}

	if req.Op == pkg.OpAdd || req.Op == pkg.OpRemove {
		return a.checkPositionToken(ctx, owner, plan.Derived)
	}
	return nil
}

func (a *Assembler) checkPositionToken(ctx context.Context, owner solana.PublicKey, d *pkg.Derived) error {
	if d.PositionTokenAccount.IsZero() {
		return nil
	}
	acct, err := a.reader.GetAccount(ctx, d.PositionTokenAccount)
	if errors.Is(err, pkg.ErrAccountNotFound) {
		return pkg.InputError("position", "NFT account %s for mint %s does not exist", d.PositionTokenAccount, d.PositionMint)
	}
	if err != nil {
		return fmt.Errorf("read position NFT account %s: %w", d.PositionTokenAccount, err)
	}
	ta, err := sol.DecodeTokenAccount(acct.Data)
	if err != nil {
		return fmt.Errorf("position NFT account %s: %w", d.PositionTokenAccount, err)
	}
	if !ta.Mint.Equals(d.PositionMint) || !ta.Owner.Equals(owner) || ta.Amount != 1 {
		return pkg.InputError("position", "%s does not hold the position NFT %s for %s", d.PositionTokenAccount, d.PositionMint, owner)
	}
	return nil
}

// validateRequest 在任何网络读取之前检查输入
func validateRequest(req *pkg.Request) error {
	if len(req.Owner) == 0 {
		return pkg.InputError("private-key", "owner key is required")
	}
	switch req.Op {
	case pkg.OpOpen:
		if req.Pool.IsZero() {
			return pkg.InputError("pool", "required for open")
		}
		if err := validateRange(req.Range); err != nil {
			return err
		}
		if req.Amount0 == 0 && req.Amount1 == 0 {
			return pkg.InputError("amount", "at least one of amount0 and amount1 must be nonzero")
		}
	case pkg.OpAdd:
		if req.Position.IsZero() {
			return pkg.InputError("add-position", "required for add")
		}
		if req.Amount0 == 0 && req.Amount1 == 0 {
			return pkg.InputError("amount", "at least one of amount0 and amount1 must be nonzero")
		}
	case pkg.OpRemove:
		if req.Position.IsZero() {
			return pkg.InputError("remove-position", "required for remove")
		}
	case pkg.OpSwap:
		if req.Pool.IsZero() {
			return pkg.InputError("swap-pool", "required for swap")
		}
		if req.SwapAmountIn == 0 {
			return pkg.InputError("swap-amount-in", "must be nonzero")
		}
	default:
		return pkg.InputError("op", "unknown operation %s", req.Op)
	}
	return nil
}

func validateRange(r pkg.RangeSpec) error {
	if r.ByPrice {
		if r.PriceMin <= 0 || r.PriceMax <= 0 {
			return pkg.InputError("price", "prices must be positive, got [%g, %g]", r.PriceMin, r.PriceMax)
		}
		if r.PriceMin >= r.PriceMax {
			return pkg.InputError("price", "price-min %g must be below price-max %g", r.PriceMin, r.PriceMax)
		}
		return nil
	}
	if r.Lower > r.Upper {
		return pkg.InputError("range", "lower %d above upper %d", r.Lower, r.Upper)
	}
	return nil
}
