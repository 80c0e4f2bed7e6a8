package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/cache"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
	"go.uber.org/zap"
)

const defaultCacheDir = ".clmm-cache"

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List pools of the selected dex for a mint pair",
		RunE:  runPools,
	}
	cmd.Flags().String("mint-a", "", "first mint")
	cmd.Flags().String("mint-b", "", "second mint")
	return cmd
}

func newCachePoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache-pool",
		Short: "Fetch a pool and store its snapshot in the cache",
		RunE:  runCachePool,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("cache-dir", "", "snapshot directory (default "+defaultCacheDir+")")
	cmd.Flags().String("cache-redis", "", "redis URL; replaces the directory cache")
	return cmd
}

// displayPrice 把当前 index 换算成原始单位的价格
func displayPrice(st pkg.PoolState) string {
	base := rangemath.TickBase
	if st.SqrtPriceX64.IsZero() {
		base = rangemath.BinBase(st.Granularity)
	}
	return decimal.NewFromFloat(rangemath.IndexToPrice(st.CurrentIndex, base)).StringFixed(10)
}

func runPools(cmd *cobra.Command, _ []string) error {
	mintA, err := parseKey(cmd.Flags(), "mint-a")
	if err != nil {
		return err
	}
	mintB, err := parseKey(cmd.Flags(), "mint-b")
	if err != nil {
		return err
	}
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer e.close()
	ctx, stop := signalContext()
	defer stop()

	pools, err := e.proto.FetchPoolsByPair(ctx, mintA.String(), mintB.String())
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("%s pools", e.proto.Name()))
	t.AppendHeader(table.Row{"Pool", "Mint A", "Mint B", "Spacing / Step", "Current", "Price"})
	for _, p := range pools {
		st := p.State()
		t.AppendRow(table.Row{st.Address, st.MintA, st.MintB, st.Granularity, st.CurrentIndex, displayPrice(st)})
	}
	t.SetCaption("%d pools", len(pools))
	t.Render()
	return nil
}

func openStore(e *env) (cache.Store, error) {
	if e.cfg.CacheRedis != "" {
		return cache.NewRedisStore(e.cfg.CacheRedis, 0)
	}
	dir := e.cfg.CacheDir
	if dir == "" {
		dir = defaultCacheDir
	}
	return cache.NewFileStore(dir)
}

func runCachePool(cmd *cobra.Command, _ []string) error {
	pool, err := parseKey(cmd.Flags(), "pool")
	if err != nil {
		return err
	}
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer e.close()
	ctx, stop := signalContext()
	defer stop()

	acct, err := e.client.GetAccount(ctx, pool)
	if err != nil {
		return err
	}
	decoded, err := e.proto.DecodePool(acct)
	if err != nil {
		return err
	}
	snap := cache.NewSnapshot(acct, decoded, time.Now())

	store, err := openStore(e)
	if err != nil {
		return err
	}
	defer store.Close()
	putCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.Put(putCtx, snap); err != nil {
		return err
	}
	e.log.Info("pool snapshot cached", zap.String("pool", snap.Pool), zap.Uint64("slot", snap.Slot))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(snap.Pool)
	t.AppendHeader(table.Row{"", "Token A", "Token B"})
	t.AppendRow(table.Row{"Mint", snap.MintA, snap.MintB})
	t.AppendRow(table.Row{"Vault", snap.VaultA, snap.VaultB})
	if snap.DecimalsA != nil {
		t.AppendRow(table.Row{"Decimals", *snap.DecimalsA, *snap.DecimalsB})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Dex", snap.Dex, ""})
	t.AppendRow(table.Row{"Program", snap.ProgramID, ""})
	t.AppendRow(table.Row{"Slot", snap.Slot, ""})
	t.AppendRow(table.Row{"Spacing / Step", snap.Granularity, ""})
	t.AppendRow(table.Row{"Current", snap.CurrentIndex, ""})
	t.AppendRow(table.Row{"Price", displayPrice(decoded.State()), ""})
	t.AppendRow(table.Row{"Data length", snap.DataLen, ""})
	t.Render()
	return nil
}
