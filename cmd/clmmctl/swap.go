package main

import (
	"github.com/spf13/cobra"
	"github.com/yimingWOW/clmmctl/pkg"
)

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap an exact input amount through --swap-pool",
		RunE:  runSwap,
	}
	f := cmd.Flags()
	f.String("swap-pool", "", "pool address")
	f.Uint64("swap-amount-in", 0, "input amount in raw units")
	f.Uint64("swap-min-out", 0, "minimum output in raw units")
	f.Bool("swap-a-to-b", true, "swap mint A (token0 / X) for mint B")
	f.String("swap-sqrt-price-limit", "", "Q64.64 sqrt price limit (raydium, orca)")
	f.Bool("unwrap-sol", false, "close the WSOL account at the end")
	return cmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	pool, err := parseKey(flags, "swap-pool")
	if err != nil {
		return err
	}
	limit, err := parseU128(flags, "swap-sqrt-price-limit")
	if err != nil {
		return err
	}
	req := &pkg.Request{Op: pkg.OpSwap, Pool: pool, SqrtPriceLimit: limit}
	req.SwapAmountIn, _ = flags.GetUint64("swap-amount-in")
	req.SwapMinOut, _ = flags.GetUint64("swap-min-out")
	req.AToB, _ = flags.GetBool("swap-a-to-b")
	req.UnwrapSOL, _ = flags.GetBool("unwrap-sol")

	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.close()
	ctx, stop := signalContext()
	defer stop()

	_, err = e.execute(ctx, req)
	return err
}
