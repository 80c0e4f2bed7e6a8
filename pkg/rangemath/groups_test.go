package rangemath_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingWOW/clmmctl/internal/testutil"
	"github.com/yimingWOW/clmmctl/pkg/pool/meteora"
	"github.com/yimingWOW/clmmctl/pkg/pool/orca"
	"github.com/yimingWOW/clmmctl/pkg/pool/raydium"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
)

// groupCase 描述一种分组: 每组 index 数量, 以及 index -> 组起点 -> 账户地址
type groupCase struct {
	name    string
	span    int64
	start   func(index int64) int64
	address func(start int64) solana.PublicKey
}

func groupCases() []groupCase {
	poolKey := testutil.Key(77)
	var cases []groupCase
	for _, spacing := range []uint16{1, 10, 60} {
		p := &raydium.CLMMPool{TickSpacing: spacing}
		cases = append(cases, groupCase{
			name:    fmt.Sprintf("raydium spacing %d", spacing),
			span:    int64(spacing) * raydium.TICK_ARRAY_SIZE,
			start:   func(i int64) int64 { return int64(p.TickArrayStartIndex(int32(i))) },
			address: func(s int64) solana.PublicKey { return raydium.DeriveTickArrayPDA(poolKey, int32(s)) },
		})
	}
	for _, spacing := range []int64{1, 8, 64} {
		cases = append(cases, groupCase{
			name:    fmt.Sprintf("orca spacing %d", spacing),
			span:    spacing * orca.TICK_ARRAY_SIZE,
			start:   func(i int64) int64 { return orca.GetWhirlpoolTickArrayStartIndexByTick(i, spacing) },
			address: func(s int64) solana.PublicKey { return orca.DeriveWhirlpoolTickArrayPDA(poolKey, s) },
		})
	}
	cases = append(cases, groupCase{
		name:  "meteora bins",
		span:  meteora.BINS_PER_ARRAY,
		start: func(i int64) int64 { return meteora.BinArrayIndex(int32(i)) * meteora.BINS_PER_ARRAY },
		address: func(s int64) solana.PublicKey {
			return meteora.DeriveBinArrayPDA(poolKey, s/meteora.BINS_PER_ARRAY)
		},
	})
	return cases
}

func TestSameGroupSameAddress(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, c := range groupCases() {
		t.Run(c.name, func(t *testing.T) {
			for n := 0; n < 50; n++ {
				i := rng.Int64N(800_000) - 400_000
				start := c.start(i)
				require.Equal(t, rangemath.GroupStart(i, c.span), start, "index %d", i)
				require.LessOrEqual(t, start, i)
				require.Less(t, i, start+c.span)

				addr := c.address(start)
				other := start + rng.Int64N(c.span)
				assert.Equal(t, start, c.start(other), "index %d vs %d", i, other)
				assert.Equal(t, addr, c.address(c.start(other)), "index %d vs %d", i, other)

				// the neighbouring groups resolve elsewhere
				assert.NotEqual(t, addr, c.address(c.start(start+c.span)))
				assert.NotEqual(t, addr, c.address(c.start(start-1)))
			}
		})
	}
}
