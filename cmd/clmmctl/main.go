package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/yimingWOW/clmmctl/internal/config"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/assembler"
	"github.com/yimingWOW/clmmctl/pkg/metrics"
	"github.com/yimingWOW/clmmctl/pkg/protocol"
	"github.com/yimingWOW/clmmctl/pkg/sol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var simErr *pkg.SimulationError
		if errors.As(err, &simErr) {
			fmt.Fprintln(os.Stderr, "simulation logs:")
			for _, l := range simErr.Logs {
				fmt.Fprintln(os.Stderr, "  "+l)
			}
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clmmctl",
		Short:         "Open, manage and watch concentrated liquidity positions on Raydium, Orca and Meteora",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("dex", string(pkg.ProtocolNameRaydiumClmm), "raydium | orca | meteora")
	pf.String("rpc", config.DefaultRPC, "Solana RPC URL (env RPC_URL)")
	pf.Uint64("cu-price", sol.DefaultComputeUnitPrice, "compute unit price in micro-lamports")
	pf.Uint32("cu-limit", sol.DefaultComputeUnitLimit, "compute unit limit")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("config", "", "config file path")
	pf.Bool("dry-run", false, "simulate only, never send")

	root.AddCommand(
		newOpenCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newSwapCmd(),
		newPoolsCmd(),
		newCachePoolCmd(),
		newWatchCmd(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// env 是每个子命令共享的运行时依赖
type env struct {
	cfg     config.Config
	log     *zap.Logger
	client  *sol.Client
	proto   pkg.Protocol
	owner   solana.PrivateKey
	metrics *metrics.Metrics
}

func setup(cmd *cobra.Command, needSigner bool) (*env, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if needSigner {
		if err := cfg.RequireSigner(); err != nil {
			return nil, err
		}
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.Debug("configuration", zap.Stringer("config", cfg))

	client := sol.NewClient(cfg.RPC, cfg.Commitment)
	proto, err := protocol.New(cfg.Dex, client)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: logger, client: client, proto: proto, metrics: metrics.New()}
	if needSigner {
		if e.owner, err = sol.LoadPrivateKey(cfg.PrivateKey); err != nil {
			return nil, fmt.Errorf("load private key: %w", err)
		}
		logger.Info("wallet loaded", zap.Stringer("owner", e.owner.PublicKey()))
	}
	return e, nil
}

func (e *env) close() {
	_ = e.client.Close()
	_ = e.log.Sync()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// execute 组装指令, 模拟, 非 dry-run 时发送并等待确认
func (e *env) execute(ctx context.Context, req *pkg.Request) (*assembler.Plan, error) {
	req.Owner = e.owner
	plan, err := assembler.New(e.proto, e.client,
		assembler.WithComputeBudget(e.cfg.CULimit, e.cfg.CUPrice),
		assembler.WithLogger(e.log),
		assembler.WithMetrics(e.metrics),
	).Assemble(ctx, req)
	if err != nil {
		return nil, err
	}
	e.log.Info("plan ready",
		zap.String("dex", string(plan.Protocol)),
		zap.String("op", plan.Op.String()),
		zap.Int("instructions", len(plan.Instructions())),
		zap.Int32("lower", plan.Snapshot.Lower),
		zap.Int32("upper", plan.Snapshot.Upper),
	)

	submitter := sol.NewSubmitter(e.client.RpcClient, e.cfg.Commitment, e.log,
		sol.WithConfirmTimeout(e.cfg.ConfirmTimeout),
		sol.WithSubmitterMetrics(e.metrics),
	)
	res, err := submitter.Submit(ctx, plan.Instructions(), plan.Payer(), plan.Signers, e.cfg.DryRun)
	if err != nil {
		return nil, err
	}
	switch {
	case !res.Sent:
		fmt.Printf("simulation ok: %d compute units, not sent (dry run)\n", res.UnitsConsumed)
	case res.Confirmed:
		fmt.Printf("confirmed: %s\n", res.Signature)
	}
	return plan, nil
}
