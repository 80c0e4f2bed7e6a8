package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
	"lukechampine.com/uint128"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"open", "add", "remove", "swap", "pools", "cache-pool", "watch"} {
		assert.True(t, names[want], want)
	}
	dex, err := root.PersistentFlags().GetString("dex")
	require.NoError(t, err)
	assert.Equal(t, "raydium", dex)
	limit, err := root.PersistentFlags().GetUint32("cu-limit")
	require.NoError(t, err)
	assert.Equal(t, uint32(1_200_000), limit)
}

func TestSetupSharesMetrics(t *testing.T) {
	t.Chdir(t.TempDir())
	root := newRootCmd()
	for _, name := range []string{"pools", "watch"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.NoError(t, cmd.ParseFlags([]string{"--dex", "orca"}))

		e, err := setup(cmd, false)
		require.NoError(t, err, name)
		assert.NotNil(t, e.metrics, name)
		assert.Equal(t, pkg.ProtocolNameOrcaWhirlpool, e.proto.Name())
		e.close()
	}
}

func TestWatchOnceFlag(t *testing.T) {
	cmd := newWatchCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--once"}))
	once, err := cmd.Flags().GetBool("once")
	require.NoError(t, err)
	assert.True(t, once)
}

func TestRangeSpec(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		want    pkg.RangeSpec
		wantErr bool
	}{
		{name: "ticks", args: []string{"--lower", "-120", "--upper", "120"}, want: pkg.RangeSpec{Lower: -120, Upper: 120}},
		{name: "prices", args: []string{"--price-min", "0.5", "--price-max", "2"}, want: pkg.RangeSpec{ByPrice: true, PriceMin: 0.5, PriceMax: 2}},
		{name: "both", args: []string{"--lower", "0", "--price-max", "2"}, wantErr: true},
		{name: "half", args: []string{"--lower", "0"}, wantErr: true},
		{name: "none", wantErr: true},
		{name: "negative price", args: []string{"--price-min", "-1", "--price-max", "2"}, wantErr: true},
		{name: "garbage price", args: []string{"--price-min", "abc", "--price-max", "2"}, wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cmd := newOpenCmd()
			require.NoError(t, cmd.Flags().Parse(c.args))
			got, err := rangeSpec(cmd.Flags())
			if c.wantErr {
				require.ErrorIs(t, err, pkg.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseFlags(t *testing.T) {
	cmd := newRemoveCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--liquidity", "340282366920938463463374607431768211455"}))
	v, err := parseU128(cmd.Flags(), "liquidity")
	require.NoError(t, err)
	assert.Equal(t, uint128.Max, v)

	_, err = parseKey(cmd.Flags(), "remove-position")
	require.ErrorIs(t, err, pkg.ErrInvalidInput)

	require.NoError(t, cmd.Flags().Parse([]string{"--remove-position", "not-base58!", "--liquidity", "-1"}))
	_, err = parseKey(cmd.Flags(), "remove-position")
	require.ErrorIs(t, err, pkg.ErrInvalidInput)
	_, err = parseU128(cmd.Flags(), "liquidity")
	require.ErrorIs(t, err, pkg.ErrInvalidInput)
}

func TestDisplayPrice(t *testing.T) {
	tick := pkg.PoolState{SqrtPriceX64: uint128.From64(1), CurrentIndex: 0, Granularity: 60}
	assert.Equal(t, "1.0000000000", displayPrice(tick))

	bin := pkg.PoolState{CurrentIndex: 100, Granularity: 25}
	want := decimal.NewFromFloat(rangemath.IndexToPrice(100, rangemath.BinBase(25))).StringFixed(10)
	assert.Equal(t, want, displayPrice(bin))
}
