package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/protojson"
)

const updateBuffer = 100

type Watcher struct {
	trackers  []*Tracker
	byAccount map[solana.PublicKey][]*Tracker
	sinks     []Sink
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	once      bool
	// reports counts events handed to the sinks
	reports int
}

type Option func(*Watcher)

func WithLogger(log *zap.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

func WithSinks(sinks ...Sink) Option {
	return func(w *Watcher) { w.sinks = append(w.sinks, sinks...) }
}

// WithOnce makes Run return after the first stream update that produces a report.
func WithOnce() Option {
	return func(w *Watcher) { w.once = true }
}

// New indexes the trackers by account. Prime them first so pool addresses are known.
func New(trackers []*Tracker, opts ...Option) *Watcher {
	w := &Watcher{
		trackers:  trackers,
		byAccount: make(map[solana.PublicKey][]*Tracker),
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	for _, t := range trackers {
		for _, addr := range t.Accounts() {
			w.byAccount[addr] = append(w.byAccount[addr], t)
		}
	}
	return w
}

// Request 订阅所有目标的池子和仓位账户, PROCESSED 级别
func (w *Watcher) Request() *pb.SubscribeRequest {
	accounts := make(map[string]*pb.SubscribeRequestFilterAccounts, len(w.trackers))
	for _, t := range w.trackers {
		addrs := t.Accounts()
		keys := make([]string, len(addrs))
		for i, a := range addrs {
			keys[i] = a.String()
		}
		accounts[t.Label()] = &pb.SubscribeRequestFilterAccounts{
			Account: keys,
			Owner:   []string{},
			Filters: []*pb.SubscribeRequestFilterAccountsFilter{},
		}
	}
	commitment := pb.CommitmentLevel_PROCESSED
	return &pb.SubscribeRequest{
		Accounts:   accounts,
		Commitment: &commitment,
	}
}

// ReportAll 发布每个目标当前的状态, 用于启动时的第一次报告
func (w *Watcher) ReportAll(ctx context.Context) error {
	for _, t := range w.trackers {
		if err := w.report(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// HandleUpdate applies one stream message. Decode failures are logged and counted, not returned.
func (w *Watcher) HandleUpdate(ctx context.Context, update *pb.SubscribeUpdate) error {
	if ce := w.log.Check(zapcore.DebugLevel, "raw update"); ce != nil {
		ce.Write(zap.String("update", protojson.Format(update)))
	}
	u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Account)
	if !ok || u.Account.GetAccount() == nil {
		return nil
	}
	info := u.Account.GetAccount()
	if len(info.GetPubkey()) != solana.PublicKeyLength || len(info.GetOwner()) != solana.PublicKeyLength {
		return fmt.Errorf("malformed account update at slot %d", u.Account.GetSlot())
	}
	acct := &pkg.Account{
		Address: solana.PublicKeyFromBytes(info.GetPubkey()),
		Owner:   solana.PublicKeyFromBytes(info.GetOwner()),
		Data:    info.GetData(),
		Slot:    u.Account.GetSlot(),
	}

	for _, t := range w.byAccount[acct.Address] {
		kind, err := t.apply(acct)
		w.metrics.ObserveUpdate(kind, err)
		if err != nil {
			w.log.Warn("decode account update",
				zap.String("target", t.Label()),
				zap.String("kind", kind),
				zap.Stringer("account", acct.Address),
				zap.Error(err))
			continue
		}
		if err := w.report(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) report(ctx context.Context, t *Tracker) error {
	ev, ok, err := t.Report(w.now())
	if err != nil {
		w.log.Warn("compute position amounts", zap.String("target", t.Label()), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	w.metrics.SetPositionAmounts(float64(ev.Amount0), float64(ev.Amount1))
	for _, s := range w.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			return fmt.Errorf("publish %s: %w", ev.Label, err)
		}
	}
	w.reports++
	return nil
}

// Run 打开订阅流, 一个 goroutine 收消息, 另一个处理, 直到 ctx 结束或流出错.
// WithOnce 时处理完第一条产生报告的更新就返回.
func (w *Watcher) Run(ctx context.Context, client pb.GeyserClient) error {
	if len(w.trackers) == 0 {
		return errors.New("nothing to watch")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	stream, err := client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	if err := stream.Send(w.Request()); err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	w.log.Info("subscribed, waiting for pool and position updates", zap.Int("targets", len(w.trackers)))

	updates := make(chan *pb.SubscribeUpdate, updateBuffer)
	g.Go(func() error {
		defer close(updates)
		for {
			update, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("stream recv failed: %w", err)
			}
			if _, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Ping); ok {
				if err := stream.Send(&pb.SubscribeRequest{Ping: &pb.SubscribeRequestPing{Id: 1}}); err != nil {
					return fmt.Errorf("send pong failed: %w", err)
				}
				continue
			}
			select {
			case updates <- update:
			case <-ctx.Done():
				return nil
			}
		}
	})
	g.Go(func() error {
		for update := range updates {
			before := w.reports
			if err := w.HandleUpdate(ctx, update); err != nil {
				return err
			}
			if w.once && w.reports > before {
				w.log.Info("first update reported, stopping")
				cancel()
				return nil
			}
		}
		return nil
	})
	return g.Wait()
}
