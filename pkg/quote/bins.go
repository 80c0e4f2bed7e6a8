package quote

import "fmt"

// BasisPointMax is the total share a bin distribution may hand out per token.
const BasisPointMax = 10000

// BinShare 是单个 bin 分到的两种代币比例 (basis points)
type BinShare struct {
	BinID         int32
	DistributionX uint16
	DistributionY uint16
}

// Distribute 在 [lower, upper] 上均匀分配流动性.
// token X 只能放在 active 及以上的 bin, token Y 只能放在 active 及以下的 bin.
func Distribute(lower, upper, active int32, amountX, amountY uint64) ([]BinShare, error) {
	if lower > upper {
		return nil, fmt.Errorf("%w: lower bin %d above upper bin %d", ErrInvalidRange, lower, upper)
	}
	if amountX == 0 && amountY == 0 {
		return nil, ErrEmptyBudget
	}

	xFrom, yTo := max(lower, active), min(upper, active)
	xBins := int64(upper) - int64(xFrom) + 1
	yBins := int64(yTo) - int64(lower) + 1
	if amountX > 0 && xBins <= 0 {
		return nil, fmt.Errorf("%w (active bin %d, range [%d, %d])", ErrNeedsToken1, active, lower, upper)
	}
	if amountY > 0 && yBins <= 0 {
		return nil, fmt.Errorf("%w (active bin %d, range [%d, %d])", ErrNeedsToken0, active, lower, upper)
	}

	var shareX, shareY uint16
	if amountX > 0 {
		shareX = uint16(BasisPointMax / xBins)
	}
	if amountY > 0 {
		shareY = uint16(BasisPointMax / yBins)
	}
	if (amountX > 0 && shareX == 0) || (amountY > 0 && shareY == 0) {
		return nil, ErrZeroLiquidity
	}

	shares := make([]BinShare, 0, int(upper-lower)+1)
	for id := lower; id <= upper; id++ {
		s := BinShare{BinID: id}
		if id >= active {
			s.DistributionX = shareX
		}
		if id <= active {
			s.DistributionY = shareY
		}
		shares = append(shares, s)
	}
	return shares, nil
}
