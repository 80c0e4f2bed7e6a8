package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/quote"
)

// RangeStatus 描述当前价格相对仓位区间的位置
type RangeStatus string

const (
	StatusBelow   RangeStatus = "below"    // price under the range, position is all token A
	StatusInRange RangeStatus = "in_range" // both tokens
	StatusAbove   RangeStatus = "above"    // price over the range, position is all token B
)

const (
	kindPool     = "pool"
	kindPosition = "position"
)

// Event 是一次报告, 以 JSON 发布到 sink
type Event struct {
	Label        string           `json:"label"`
	Dex          pkg.ProtocolName `json:"dex"`
	Pool         string           `json:"pool"`
	Position     string           `json:"position"`
	Slot         uint64           `json:"slot"`
	CurrentIndex int32            `json:"current_index"`
	Lower        int32            `json:"lower"`
	Upper        int32            `json:"upper"`
	Status       RangeStatus      `json:"status"`
	// Amount0 and Amount1 are only set for tick based pools.
	Amount0   uint64 `json:"amount0,omitempty"`
	Amount1   uint64 `json:"amount1,omitempty"`
	Liquidity string `json:"liquidity"`
	// Crossed is set when Status differs from the previous report.
	Crossed bool `json:"crossed"`
	// Filled is set when a side that held nothing in the previous report now holds tokens.
	Filled bool      `json:"filled"`
	At     time.Time `json:"at"`
}

// Tracker 保存一个目标的最新池子和仓位状态
type Tracker struct {
	target   Target
	proto    pkg.Protocol
	poolAddr solana.PublicKey
	posAddr  solana.PublicKey

	pool     pkg.Pool
	position pkg.Position
	slot     uint64
	last     *Event
}

func NewTracker(target Target, proto pkg.Protocol) (*Tracker, error) {
	id, err := solana.PublicKeyFromBase58(target.Position)
	if err != nil {
		return nil, pkg.InputError("position", "%v", err)
	}
	t := &Tracker{
		target:  target,
		proto:   proto,
		posAddr: proto.PositionAddress(id),
	}
	if target.Pool != "" {
		if t.poolAddr, err = solana.PublicKeyFromBase58(target.Pool); err != nil {
			return nil, pkg.InputError("pool", "%v", err)
		}
	}
	return t, nil
}

func (t *Tracker) Label() string {
	return t.target.Label
}

// Accounts returns the accounts to subscribe to. The pool is known after Prime.
func (t *Tracker) Accounts() []solana.PublicKey {
	if t.poolAddr.IsZero() {
		return []solana.PublicKey{t.posAddr}
	}
	return []solana.PublicKey{t.poolAddr, t.posAddr}
}

// Prime 先通过 RPC 读一次仓位和池子, 流上第一条更新到来前就能报告
func (t *Tracker) Prime(ctx context.Context, reader pkg.AccountReader) error {
	acct, err := reader.GetAccount(ctx, t.posAddr)
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}
	if _, err := t.apply(acct); err != nil {
		return err
	}
	acct, err = reader.GetAccount(ctx, t.poolAddr)
	if err != nil {
		return fmt.Errorf("read pool: %w", err)
	}
	_, err = t.apply(acct)
	return err
}

// apply 解析一次账户更新, 返回账户种类
func (t *Tracker) apply(acct *pkg.Account) (string, error) {
	switch {
	case acct.Address.Equals(t.posAddr):
		pos, err := t.proto.DecodePosition(acct)
		if err != nil {
			return kindPosition, err
		}
		st := pos.State()
		if !t.poolAddr.IsZero() && !st.Pool.Equals(t.poolAddr) {
			return kindPosition, pkg.InputError("pool", "position %s belongs to pool %s, not %s", t.posAddr, st.Pool, t.poolAddr)
		}
		t.poolAddr = st.Pool
		t.position = pos
	case acct.Address.Equals(t.poolAddr):
		p, err := t.proto.DecodePool(acct)
		if err != nil {
			return kindPool, err
		}
		t.pool = p
	default:
		return "", fmt.Errorf("account %s is not watched by %s", acct.Address, t.target.Label)
	}
	if acct.Slot > t.slot {
		t.slot = acct.Slot
	}
	return t.kindOf(acct.Address), nil
}

func (t *Tracker) kindOf(addr solana.PublicKey) string {
	if addr.Equals(t.posAddr) {
		return kindPosition
	}
	return kindPool
}

// Report 在池子和仓位都已知时计算当前状态. ok 为 false 表示还缺数据
func (t *Tracker) Report(now time.Time) (ev Event, ok bool, err error) {
	if t.pool == nil || t.position == nil {
		return Event{}, false, nil
	}
	ps, pos := t.pool.State(), t.position.State()
	ev = Event{
		Label:        t.target.Label,
		Dex:          t.proto.Name(),
		Pool:         ps.Address.String(),
		Position:     pos.Address.String(),
		Slot:         t.slot,
		CurrentIndex: ps.CurrentIndex,
		Lower:        pos.Lower,
		Upper:        pos.Upper,
		Liquidity:    pos.Liquidity.String(),
		At:           now.UTC(),
	}

	if ps.SqrtPriceX64.IsZero() {
		// bin 池子: active bin 本身在区间内
		switch {
		case ps.CurrentIndex < pos.Lower:
			ev.Status = StatusBelow
		case ps.CurrentIndex > pos.Upper:
			ev.Status = StatusAbove
		default:
			ev.Status = StatusInRange
		}
	} else {
		switch {
		case ps.CurrentIndex < pos.Lower:
			ev.Status = StatusBelow
		case ps.CurrentIndex >= pos.Upper:
			ev.Status = StatusAbove
		default:
			ev.Status = StatusInRange
		}
		if !pos.Liquidity.IsZero() {
			sqrtLower, err := quote.SqrtPriceX64FromTick(pos.Lower)
			if err != nil {
				return Event{}, false, fmt.Errorf("tick %d: %w", pos.Lower, err)
			}
			sqrtUpper, err := quote.SqrtPriceX64FromTick(pos.Upper)
			if err != nil {
				return Event{}, false, fmt.Errorf("tick %d: %w", pos.Upper, err)
			}
			q, err := quote.QuoteLiquidity(quote.FromUint128(ps.SqrtPriceX64), sqrtLower, sqrtUpper, pos.Liquidity)
			if err != nil {
				return Event{}, false, fmt.Errorf("amounts for %s: %w", pos.Address, err)
			}
			ev.Amount0, ev.Amount1 = q.Amount0, q.Amount1
		}
	}

	if prev := t.last; prev != nil {
		ev.Crossed = prev.Status != ev.Status
		ev.Filled = (prev.Amount0 == 0 && ev.Amount0 > 0) || (prev.Amount1 == 0 && ev.Amount1 > 0)
	}
	t.last = &ev
	return ev, true, nil
}
