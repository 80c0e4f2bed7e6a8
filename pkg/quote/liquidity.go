// Package quote 把代币预算换算成集中流动性的 liquidity, 以及反向换算.
// 所有价格都是 Q64.64 定点的 sqrt price.
package quote

import (
	"errors"
	"fmt"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"
)

var (
	// ErrNeedsToken1 means the range sits entirely below the price and only token1 can fund it.
	ErrNeedsToken1 = errors.New("current price is at or ABOVE the range; the range needs token1, not token0")
	// ErrNeedsToken0 means the range sits entirely above the price and only token0 can fund it.
	ErrNeedsToken0 = errors.New("current price is at or BELOW the range; the range needs token0, not token1")
	// ErrZeroLiquidity means valid inputs produced no liquidity.
	ErrZeroLiquidity = errors.New("range too far from current price for these amounts: liquidity is zero")
	ErrEmptyBudget   = errors.New("both token budgets are zero")
	ErrInvalidRange  = errors.New("sqrt price lower bound must be below upper bound")
	// ErrNeedsBothTokens means the range contains the current price but one budget is zero.
	ErrNeedsBothTokens = errors.New("range contains the current price and needs both tokens")
)

// QuoteError 报告两种预算都无法覆盖对方需求时的计算结果
type QuoteError struct {
	Budget0, Budget1 uint64
	// Need1 is the token1 requirement of the token0 driven liquidity.
	Need1 cosmath.Int
	// Need0 is the token0 requirement of the token1 driven liquidity.
	Need0 cosmath.Int
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("token amounts too low for both sides at current price: token0 budget %d needs token1 %s (budget %d), token1 budget %d needs token0 %s (budget %d)",
		e.Budget0, e.Need1, e.Budget1, e.Budget1, e.Need0, e.Budget0)
}

// LiquidityQuote 是一次报价的结果
type LiquidityQuote struct {
	Liquidity uint128.Uint128
	// Amount0 and Amount1 are the token amounts the liquidity requires, rounded up.
	Amount0 uint64
	Amount1 uint64
	Budget0 uint64
	Budget1 uint64
}

// MaxAmounts returns the per-token ceilings to put into the deposit instruction.
// They are the budgets; Quote guarantees the requirement fits under them.
func (q LiquidityQuote) MaxAmounts() (uint64, uint64) {
	return q.Budget0, q.Budget1
}

// Quote 根据当前价格和区间把预算换算成 liquidity
func Quote(sqrtPrice, sqrtLower, sqrtUpper cosmath.Int, amount0, amount1 uint64) (LiquidityQuote, error) {
	if !sqrtLower.LT(sqrtUpper) {
		return LiquidityQuote{}, ErrInvalidRange
	}
	a0 := cosmath.NewIntFromUint64(amount0)
	a1 := cosmath.NewIntFromUint64(amount1)

	var liquidity cosmath.Int
	switch {
	case amount0 == 0 && amount1 == 0:
		return LiquidityQuote{}, ErrEmptyBudget

	case amount1 == 0:
		if sqrtPrice.GTE(sqrtUpper) {
			return LiquidityQuote{}, ErrNeedsToken1
		}
		liquidity = LiquidityFromSingleAmount0(sqrtPrice, sqrtLower, sqrtUpper, a0)

	case amount0 == 0:
		if sqrtPrice.LTE(sqrtLower) {
			return LiquidityQuote{}, ErrNeedsToken0
		}
		liquidity = LiquidityFromSingleAmount1(sqrtPrice, sqrtLower, sqrtUpper, a1)

	default:
		need1, need0 := cosmath.Int{}, cosmath.Int{}
		found := false
		if sqrtPrice.LT(sqrtUpper) {
			l := LiquidityFromSingleAmount0(sqrtPrice, sqrtLower, sqrtUpper, a0)
			_, need1 = AmountsForLiquidity(sqrtPrice, sqrtLower, sqrtUpper, l, true)
			if need1.LTE(a1) {
				liquidity, found = l, true
			}
		}
		if !found && sqrtPrice.GT(sqrtLower) {
			l := LiquidityFromSingleAmount1(sqrtPrice, sqrtLower, sqrtUpper, a1)
			need0, _ = AmountsForLiquidity(sqrtPrice, sqrtLower, sqrtUpper, l, true)
			if need0.LTE(a0) {
				liquidity, found = l, true
			}
		}
		if !found {
			if need0.IsNil() {
				need0 = cosmath.ZeroInt()
			}
			if need1.IsNil() {
				need1 = cosmath.ZeroInt()
			}
			return LiquidityQuote{}, &QuoteError{Budget0: amount0, Budget1: amount1, Need0: need0, Need1: need1}
		}
	}

	if liquidity.IsZero() {
		return LiquidityQuote{}, ErrZeroLiquidity
	}
	q, err := quoteForLiquidity(sqrtPrice, sqrtLower, sqrtUpper, liquidity, amount0, amount1)
	if err != nil {
		return LiquidityQuote{}, err
	}
	switch {
	case q.Amount0 > amount0:
		return LiquidityQuote{}, fmt.Errorf("%w: token0 %d required, budget %d", ErrNeedsBothTokens, q.Amount0, amount0)
	case q.Amount1 > amount1:
		return LiquidityQuote{}, fmt.Errorf("%w: token1 %d required, budget %d", ErrNeedsBothTokens, q.Amount1, amount1)
	}
	return q, nil
}

// QuoteLiquidity 计算给定 liquidity 在当前价格下对应的代币数量 (向上取整)
func QuoteLiquidity(sqrtPrice, sqrtLower, sqrtUpper cosmath.Int, liquidity uint128.Uint128) (LiquidityQuote, error) {
	if !sqrtLower.LT(sqrtUpper) {
		return LiquidityQuote{}, ErrInvalidRange
	}
	return quoteForLiquidity(sqrtPrice, sqrtLower, sqrtUpper, FromUint128(liquidity), 0, 0)
}

func quoteForLiquidity(sqrtPrice, sqrtLower, sqrtUpper, liquidity cosmath.Int, budget0, budget1 uint64) (LiquidityQuote, error) {
	l, err := ToUint128(liquidity)
	if err != nil {
		return LiquidityQuote{}, fmt.Errorf("liquidity %s: %w", liquidity, err)
	}
	need0, need1 := AmountsForLiquidity(sqrtPrice, sqrtLower, sqrtUpper, liquidity, true)
	if !need0.IsUint64() || !need1.IsUint64() {
		return LiquidityQuote{}, fmt.Errorf("token requirement overflows u64: token0 %s token1 %s", need0, need1)
	}
	return LiquidityQuote{
		Liquidity: l,
		Amount0:   need0.Uint64(),
		Amount1:   need1.Uint64(),
		Budget0:   budget0,
		Budget1:   budget1,
	}, nil
}

// LiquidityFromAmount0 = amount0 * (sa * sb / Q64) / (sb - sa), rounded down
func LiquidityFromAmount0(sqrtA, sqrtB, amount0 cosmath.Int) cosmath.Int {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	intermediate := sqrtA.Mul(sqrtB).Quo(Q64)
	return amount0.Mul(intermediate).Quo(sqrtB.Sub(sqrtA))
}

// LiquidityFromAmount1 = amount1 * Q64 / (sb - sa), rounded down
func LiquidityFromAmount1(sqrtA, sqrtB, amount1 cosmath.Int) cosmath.Int {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	return amount1.Mul(Q64).Quo(sqrtB.Sub(sqrtA))
}

// LiquidityFromSingleAmount0 返回只用 token0 时能提供的 liquidity, 价格在区间上方时为 0
func LiquidityFromSingleAmount0(sqrtPrice, sqrtLower, sqrtUpper, amount0 cosmath.Int) cosmath.Int {
	switch {
	case sqrtPrice.LTE(sqrtLower):
		return LiquidityFromAmount0(sqrtLower, sqrtUpper, amount0)
	case sqrtPrice.LT(sqrtUpper):
		return LiquidityFromAmount0(sqrtPrice, sqrtUpper, amount0)
	}
	return cosmath.ZeroInt()
}

// LiquidityFromSingleAmount1 返回只用 token1 时能提供的 liquidity, 价格在区间下方时为 0
func LiquidityFromSingleAmount1(sqrtPrice, sqrtLower, sqrtUpper, amount1 cosmath.Int) cosmath.Int {
	switch {
	case sqrtPrice.GTE(sqrtUpper):
		return LiquidityFromAmount1(sqrtLower, sqrtUpper, amount1)
	case sqrtPrice.GT(sqrtLower):
		return LiquidityFromAmount1(sqrtLower, sqrtPrice, amount1)
	}
	return cosmath.ZeroInt()
}

// Amount0Delta = L * Q64 * (sb - sa) / sb / sa
func Amount0Delta(sqrtA, sqrtB, liquidity cosmath.Int, roundUp bool) cosmath.Int {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator1 := liquidity.Mul(Q64)
	numerator2 := sqrtB.Sub(sqrtA)
	if roundUp {
		return divCeil(divCeil(numerator1.Mul(numerator2), sqrtB), sqrtA)
	}
	return numerator1.Mul(numerator2).Quo(sqrtB).Quo(sqrtA)
}

// Amount1Delta = L * (sb - sa) / Q64
func Amount1Delta(sqrtA, sqrtB, liquidity cosmath.Int, roundUp bool) cosmath.Int {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	product := liquidity.Mul(sqrtB.Sub(sqrtA))
	if roundUp {
		return divCeil(product, Q64)
	}
	return product.Quo(Q64)
}

// AmountsForLiquidity 返回 liquidity 在当前价格下对应的两种代币数量
func AmountsForLiquidity(sqrtPrice, sqrtLower, sqrtUpper, liquidity cosmath.Int, roundUp bool) (cosmath.Int, cosmath.Int) {
	switch {
	case sqrtPrice.LT(sqrtLower):
		return Amount0Delta(sqrtLower, sqrtUpper, liquidity, roundUp), cosmath.ZeroInt()
	case sqrtPrice.LT(sqrtUpper):
		return Amount0Delta(sqrtPrice, sqrtUpper, liquidity, roundUp), Amount1Delta(sqrtLower, sqrtPrice, liquidity, roundUp)
	}
	return cosmath.ZeroInt(), Amount1Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
}

func divCeil(a, b cosmath.Int) cosmath.Int {
	q := a.Quo(b)
	if !a.Mod(b).IsZero() {
		q = q.AddRaw(1)
	}
	return q
}
