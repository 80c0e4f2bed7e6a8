package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/protocol"
	"github.com/yimingWOW/clmmctl/pkg/watch"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow pool and position accounts over Yellowstone gRPC and report the token split",
		RunE:  runWatch,
	}
	f := cmd.Flags()
	f.String("pool", "", "pool address (read from the position when empty)")
	f.String("position", "", "position NFT mint (raydium, orca) or position account (meteora)")
	f.String("targets", "", "YAML file listing several targets; replaces --pool/--position")
	f.String("geyser-endpoint", "", "Yellowstone gRPC endpoint (env YELLOWSTONE_ENDPOINT)")
	f.String("geyser-token", "", "Yellowstone x-token (env YELLOWSTONE_TOKEN)")
	f.String("metrics-addr", "", "serve /metrics and /healthz on this address")
	f.String("nats-url", "", "also publish reports to NATS")
	f.String("nats-subject", "", "NATS subject prefix")
	f.Bool("once", false, "exit after the first reported update")
	return cmd
}

func watchTargets(cmd *cobra.Command, dex pkg.ProtocolName) ([]watch.Target, error) {
	path, _ := cmd.Flags().GetString("targets")
	if path != "" {
		return watch.LoadTargets(path)
	}
	position, _ := cmd.Flags().GetString("position")
	if position == "" {
		return nil, errors.New("--position or --targets is required")
	}
	pool, _ := cmd.Flags().GetString("pool")
	return []watch.Target{{Label: string(dex), Dex: dex, Pool: pool, Position: position}}, nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.cfg.RequireGeyser(); err != nil {
		return err
	}
	targets, err := watchTargets(cmd, e.cfg.Dex)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	trackers := make([]*watch.Tracker, 0, len(targets))
	for _, target := range targets {
		proto, err := protocol.New(target.Dex, e.client)
		if err != nil {
			return err
		}
		tr, err := watch.NewTracker(target, proto)
		if err != nil {
			return fmt.Errorf("target %s: %w", target.Label, err)
		}
		if err := tr.Prime(ctx, e.client); err != nil {
			return fmt.Errorf("target %s: %w", target.Label, err)
		}
		trackers = append(trackers, tr)
	}

	sinks := []watch.Sink{watch.NewLogSink(e.log)}
	if e.cfg.NATSURL != "" {
		ns, err := watch.NewNATSSink(e.cfg.NATSURL, e.cfg.NATSSubject, e.log)
		if err != nil {
			return err
		}
		defer ns.Close()
		sinks = append(sinks, ns)
	}

	conn, client, err := watch.Dial(watch.DialConfig{Endpoint: e.cfg.GeyserEndpoint, Token: e.cfg.GeyserToken})
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := []watch.Option{
		watch.WithLogger(e.log),
		watch.WithMetrics(e.metrics),
		watch.WithSinks(sinks...),
	}
	if once, _ := cmd.Flags().GetBool("once"); once {
		opts = append(opts, watch.WithOnce())
	}
	w := watch.New(trackers, opts...)
	if err := w.ReportAll(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.metrics.Serve(gctx, e.cfg.MetricsAddr, e.log)
	})
	g.Go(func() error {
		err := w.Run(gctx, client)
		stop()
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	e.log.Info("watch stopped", zap.Int("targets", len(trackers)))
	return nil
}
