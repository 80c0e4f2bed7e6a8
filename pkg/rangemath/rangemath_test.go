package rangemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingWOW/clmmctl/pkg"
)

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		dividend, divisor, want int64
	}{
		{0, 70, 0},
		{69, 70, 0},
		{70, 70, 1},
		{-1, 70, -1},
		{-70, 70, -1},
		{-71, 70, -2},
		{-140, 70, -2},
		{7, -2, -4},
		{-7, -2, 3},
		{-5280, 5280, -1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FloorDiv(c.dividend, c.divisor), "FloorDiv(%d, %d)", c.dividend, c.divisor)
	}
	assert.Panics(t, func() { FloorDiv(1, 0) })
}

func TestGroupStartBoundsAndIdempotence(t *testing.T) {
	for _, span := range []int64{1, 60, 70, 3600, 5632} {
		for i := int64(-3 * span); i <= 3*span; i += 7 {
			gs := GroupStart(i, span)
			require.LessOrEqual(t, gs, i, "span %d index %d", span, i)
			require.Less(t, i, gs+span, "span %d index %d", span, i)
			require.Equal(t, gs, GroupStart(gs, span), "span %d index %d", span, i)
			require.Zero(t, gs%span)
		}
	}
}

func TestGroupStartNegativeFloors(t *testing.T) {
	assert.Equal(t, int64(-70), GroupStart(-1, 70))
	assert.Equal(t, int64(-70), GroupStart(-70, 70))
	assert.Equal(t, int64(-140), GroupStart(-71, 70))
	assert.Equal(t, int64(0), GroupStart(0, 70))
}

func TestGroupIndex(t *testing.T) {
	assert.Equal(t, int64(0), GroupIndex(5, 70))
	assert.Equal(t, int64(0), GroupIndex(69, 70))
	assert.Equal(t, int64(1), GroupIndex(70, 70))
	assert.Equal(t, int64(-1), GroupIndex(-1, 70))
	assert.Equal(t, int64(-1), GroupIndex(-70, 70))
	assert.Equal(t, int64(-2), GroupIndex(-71, 70))
}

func TestDistinctGroups(t *testing.T) {
	t.Run("same bin array is perturbed", func(t *testing.T) {
		lo, hi := DistinctGroups(GroupIndex(5, 70), GroupIndex(10, 70))
		assert.Equal(t, int64(0), lo)
		assert.Equal(t, int64(1), hi)
	})
	t.Run("separate tick arrays are kept", func(t *testing.T) {
		span := int64(60 * 60)
		lo, hi := DistinctGroups(GroupStart(-120, span), GroupStart(120, span))
		assert.Equal(t, int64(-3600), lo)
		assert.Equal(t, int64(0), hi)

		lo, hi = DistinctGroups(GroupStart(-120, 60), GroupStart(120, 60))
		assert.Equal(t, int64(-120), lo)
		assert.Equal(t, int64(120), hi)
	})
}

func TestPriceToIndex(t *testing.T) {
	idx, err := PriceToIndex(1, TickBase)
	require.NoError(t, err)
	assert.Equal(t, int32(0), idx)

	idx, err = PriceToIndex(math.Pow(TickBase, 100), TickBase)
	require.NoError(t, err)
	assert.Equal(t, int32(100), idx)

	idx, err = PriceToIndex(math.Pow(TickBase, -50), TickBase)
	require.NoError(t, err)
	assert.Equal(t, int32(-50), idx)

	// 0.4 of a step rounds down, 0.6 rounds up
	idx, err = PriceToIndex(math.Pow(TickBase, 10.4), TickBase)
	require.NoError(t, err)
	assert.Equal(t, int32(10), idx)
	idx, err = PriceToIndex(math.Pow(TickBase, -10.6), TickBase)
	require.NoError(t, err)
	assert.Equal(t, int32(-11), idx)

	idx, err = PriceToIndex(math.Pow(BinBase(25), 37), BinBase(25))
	require.NoError(t, err)
	assert.Equal(t, int32(37), idx)

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := PriceToIndex(bad, TickBase)
		assert.ErrorIs(t, err, pkg.ErrInvalidInput, "price %v", bad)
	}
}

func TestAlignment(t *testing.T) {
	require.NoError(t, CheckAlignment("lower", -120, 60))
	require.NoError(t, CheckAlignment("lower", 0, 60))
	assert.ErrorIs(t, CheckAlignment("lower", -119, 60), pkg.ErrInvalidInput)

	assert.Equal(t, int32(-60), SnapDown(-1, 60))
	assert.Equal(t, int32(0), SnapUp(-1, 60))
	assert.Equal(t, int32(120), SnapUp(61, 60))
	assert.Equal(t, int32(60), SnapUp(60, 60))

	require.NoError(t, CheckRange(-120, 120, 60, -443636, 443636))
	assert.ErrorIs(t, CheckRange(120, 120, 60, -443636, 443636), pkg.ErrInvalidInput)
	assert.ErrorIs(t, CheckRange(-120, 130, 60, -443636, 443636), pkg.ErrInvalidInput)
	assert.ErrorIs(t, CheckRange(-443700, 120, 60, -443636, 443636), pkg.ErrInvalidInput)
}

func TestInitializedGroups(t *testing.T) {
	bitmap := make([]uint64, 16)
	set := func(g int64) {
		bit := g + 512
		bitmap[bit/64] |= 1 << (uint(bit) % 64)
	}
	set(0)
	set(-3)
	set(5)
	set(6)

	ok, known := IsGroupInitialized(bitmap, -3)
	assert.True(t, ok)
	assert.True(t, known)
	_, known = IsGroupInitialized(bitmap, 512)
	assert.False(t, known)

	assert.Equal(t, []int64{0, -3}, InitializedGroups(bitmap, 0, -1, 3))
	assert.Equal(t, []int64{5, 6}, InitializedGroups(bitmap, 1, 1, 2))
	assert.Equal(t, []int64{0, 5, 6}, InitializedGroups(bitmap, 0, 1, 3))
	assert.Empty(t, InitializedGroups(bitmap, -4, -1, 3))
	assert.Equal(t, []int64{600}, InitializedGroups(bitmap, 600, 1, 3))
}
