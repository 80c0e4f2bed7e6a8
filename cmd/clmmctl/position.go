package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yimingWOW/clmmctl/pkg"
	"lukechampine.com/uint128"
)

func newOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a position on --pool and deposit --amount0/--amount1",
		RunE:  runOpen,
	}
	f := cmd.Flags()
	f.String("pool", "", "pool address")
	f.Int32("lower", 0, "lower tick or bin id")
	f.Int32("upper", 0, "upper tick or bin id")
	f.String("price-min", "", "lower price (token1 per token0, raw units); replaces --lower")
	f.String("price-max", "", "upper price (token1 per token0, raw units); replaces --upper")
	f.Uint64("amount0", 0, "token0 (mint A / X) budget in raw units")
	f.Uint64("amount1", 0, "token1 (mint B / Y) budget in raw units")
	f.Bool("unwrap-sol", false, "close the WSOL account at the end")
	return cmd
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add liquidity to an existing position",
		RunE:  runAdd,
	}
	f := cmd.Flags()
	f.String("add-position", "", "position NFT mint (raydium, orca) or position account (meteora)")
	f.Uint64("amount0", 0, "token0 budget in raw units")
	f.Uint64("amount1", 0, "token1 budget in raw units")
	f.Bool("unwrap-sol", false, "close the WSOL account at the end")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove liquidity, collect fees and optionally close the position",
		RunE:  runRemove,
	}
	f := cmd.Flags()
	f.String("remove-position", "", "position NFT mint (raydium, orca) or position account (meteora)")
	f.String("liquidity", "", "liquidity to remove, default everything")
	f.Uint64("min-out0", 0, "minimum token0 received")
	f.Uint64("min-out1", 0, "minimum token1 received")
	f.Bool("close", false, "close the position after removing all liquidity")
	f.Bool("unwrap-sol", false, "close the WSOL account at the end")
	return cmd
}

func parseKey(flags *pflag.FlagSet, name string) (solana.PublicKey, error) {
	s, _ := flags.GetString(name)
	if s == "" {
		return solana.PublicKey{}, pkg.InputError(name, "is required")
	}
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, pkg.InputError(name, "%v", err)
	}
	return key, nil
}

func parsePrice(flags *pflag.FlagSet, name string) (float64, error) {
	s, _ := flags.GetString(name)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, pkg.InputError(name, "%q is not a number", s)
	}
	if !d.IsPositive() {
		return 0, pkg.InputError(name, "must be positive, got %s", d)
	}
	return d.InexactFloat64(), nil
}

func parseU128(flags *pflag.FlagSet, name string) (uint128.Uint128, error) {
	s, _ := flags.GetString(name)
	if s == "" {
		return uint128.Zero, nil
	}
	v, err := uint128.FromString(s)
	if err != nil {
		return uint128.Zero, pkg.InputError(name, "%q is not a u128", s)
	}
	return v, nil
}

// rangeSpec 读取 --lower/--upper 或 --price-min/--price-max, 两者只能选一种
func rangeSpec(flags *pflag.FlagSet) (pkg.RangeSpec, error) {
	byIndex := flags.Changed("lower") || flags.Changed("upper")
	byPrice := flags.Changed("price-min") || flags.Changed("price-max")
	switch {
	case byIndex && byPrice:
		return pkg.RangeSpec{}, pkg.InputError("range", "use either --lower/--upper or --price-min/--price-max")
	case byPrice:
		lo, err := parsePrice(flags, "price-min")
		if err != nil {
			return pkg.RangeSpec{}, err
		}
		hi, err := parsePrice(flags, "price-max")
		if err != nil {
			return pkg.RangeSpec{}, err
		}
		return pkg.RangeSpec{ByPrice: true, PriceMin: lo, PriceMax: hi}, nil
	case byIndex:
		if !flags.Changed("lower") || !flags.Changed("upper") {
			return pkg.RangeSpec{}, pkg.InputError("range", "--lower and --upper must be given together")
		}
		lower, _ := flags.GetInt32("lower")
		upper, _ := flags.GetInt32("upper")
		return pkg.RangeSpec{Lower: lower, Upper: upper}, nil
	}
	return pkg.RangeSpec{}, pkg.InputError("range", "--lower/--upper or --price-min/--price-max is required")
}

func runOpen(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	pool, err := parseKey(flags, "pool")
	if err != nil {
		return err
	}
	spec, err := rangeSpec(flags)
	if err != nil {
		return err
	}
	req := &pkg.Request{Op: pkg.OpOpen, Pool: pool, Range: spec}
	req.Amount0, _ = flags.GetUint64("amount0")
	req.Amount1, _ = flags.GetUint64("amount1")
	req.UnwrapSOL, _ = flags.GetBool("unwrap-sol")

	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.close()
	ctx, stop := signalContext()
	defer stop()

	plan, err := e.execute(ctx, req)
	if err != nil {
		return err
	}
	id := plan.Derived.PositionMint
	if id.IsZero() {
		id = plan.Derived.Position
	}
	fmt.Printf("position: %s range [%d, %d]\n", id, plan.Snapshot.Lower, plan.Snapshot.Upper)
	return nil
}

func runAdd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	position, err := parseKey(flags, "add-position")
	if err != nil {
		return err
	}
	req := &pkg.Request{Op: pkg.OpAdd, Position: position}
	req.Amount0, _ = flags.GetUint64("amount0")
	req.Amount1, _ = flags.GetUint64("amount1")
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

func runRemove(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	position, err := parseKey(flags, "remove-position")
	if err != nil {
		return err
	}
	liquidity, err := parseU128(flags, "liquidity")
	if err != nil {
		return err
	}
	req := &pkg.Request{Op: pkg.OpRemove, Position: position, Liquidity: liquidity}
	req.MinOut0, _ = flags.GetUint64("min-out0")
	req.MinOut1, _ = flags.GetUint64("min-out1")
	req.Close, _ = flags.GetBool("close")
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
