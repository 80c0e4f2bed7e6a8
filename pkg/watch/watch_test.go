package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingWOW/clmmctl/internal/fixtures"
	"github.com/yimingWOW/clmmctl/internal/testutil"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/metrics"
	"github.com/yimingWOW/clmmctl/pkg/pool/meteora"
	"github.com/yimingWOW/clmmctl/pkg/pool/raydium"
	"github.com/yimingWOW/clmmctl/pkg/protocol"
	"github.com/yimingWOW/clmmctl/pkg/quote"
	"google.golang.org/grpc"
	"lukechampine.com/uint128"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *memorySink) Publish(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *memorySink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func accountUpdate(addr, owner solana.PublicKey, data []byte, slot uint64) *pb.SubscribeUpdate {
	return &pb.SubscribeUpdate{
		UpdateOneof: &pb.SubscribeUpdate_Account{Account: &pb.SubscribeUpdateAccount{
			Slot: slot,
			Account: &pb.SubscribeUpdateAccountInfo{
				Pubkey: addr.Bytes(),
				Owner:  owner.Bytes(),
				Data:   data,
			},
		}},
	}
}

func sqrtAt(t *testing.T, tick int32) uint128.Uint128 {
	t.Helper()
	v, err := quote.SqrtPriceX64FromTick(tick)
	require.NoError(t, err)
	u, err := quote.ToUint128(v)
	require.NoError(t, err)
	return u
}

type raydiumScenario struct {
	pool     fixtures.RaydiumPool
	position fixtures.RaydiumPosition
	tracker  *Tracker
}

func newRaydiumScenario(t *testing.T) *raydiumScenario {
	t.Helper()
	s := &raydiumScenario{
		pool: fixtures.RaydiumPool{
			Address:      testutil.Key(1),
			Mint0:        testutil.Key(2),
			Mint1:        testutil.Key(3),
			TickSpacing:  60,
			TickCurrent:  0,
			SqrtPriceX64: fixtures.Q64,
			Liquidity:    uint128.From64(1_000_000_000),
		},
		position: fixtures.RaydiumPosition{
			NftMint:   testutil.Key(20),
			Pool:      testutil.Key(1),
			Lower:     -120,
			Upper:     120,
			Liquidity: uint128.From64(1_000_000_000),
		},
	}
	reader := testutil.NewReader()
	s.pool.Put(reader)
	s.position.Put(reader)

	tr, err := NewTracker(Target{Label: "sol-usdc", Dex: pkg.ProtocolNameRaydiumClmm, Position: s.position.NftMint.String()}, protocol.NewRaydiumClmm(nil))
	require.NoError(t, err)
	require.Len(t, tr.Accounts(), 1)
	require.NoError(t, tr.Prime(context.Background(), reader))
	require.Len(t, tr.Accounts(), 2)
	s.tracker = tr
	return s
}

func (s *raydiumScenario) poolAt(t *testing.T, tick int32, slot uint64) *pb.SubscribeUpdate {
	p := s.pool
	p.TickCurrent = tick
	p.SqrtPriceX64 = sqrtAt(t, tick)
	return accountUpdate(p.Address, raydium.RAYDIUM_CLMM_PROGRAM_ID, p.Bytes(), slot)
}

func TestHandleUpdateReportsSplit(t *testing.T) {
	ctx := context.Background()
	s := newRaydiumScenario(t)
	sink := &memorySink{}
	w := New([]*Tracker{s.tracker}, WithSinks(sink), WithMetrics(metrics.New()))

	require.NoError(t, w.ReportAll(ctx))
	require.NoError(t, w.HandleUpdate(ctx, s.poolAt(t, 200, 10)))
	require.NoError(t, w.HandleUpdate(ctx, s.poolAt(t, 0, 11)))

	events := sink.all()
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, StatusInRange, first.Status)
	assert.Positive(t, first.Amount0)
	assert.Positive(t, first.Amount1)
	assert.False(t, first.Crossed)
	assert.Equal(t, s.pool.Address.String(), first.Pool)
	assert.Equal(t, raydium.DerivePersonalPositionPDA(s.position.NftMint).String(), first.Position)

	above := events[1]
	assert.Equal(t, StatusAbove, above.Status)
	assert.Equal(t, uint64(10), above.Slot)
	assert.Equal(t, int32(200), above.CurrentIndex)
	assert.Zero(t, above.Amount0)
	assert.Positive(t, above.Amount1)
	assert.True(t, above.Crossed)
	assert.False(t, above.Filled)

	back := events[2]
	assert.Equal(t, StatusInRange, back.Status)
	assert.True(t, back.Crossed)
	assert.True(t, back.Filled)
}

func TestHandleUpdateSkipsBadAccounts(t *testing.T) {
	ctx := context.Background()
	s := newRaydiumScenario(t)
	sink := &memorySink{}
	w := New([]*Tracker{s.tracker}, WithSinks(sink))

	// undecodable pool data is counted and skipped
	require.NoError(t, w.HandleUpdate(ctx, accountUpdate(s.pool.Address, raydium.RAYDIUM_CLMM_PROGRAM_ID, []byte{1, 2, 3}, 5)))
	// accounts nobody watches are ignored
	require.NoError(t, w.HandleUpdate(ctx, accountUpdate(testutil.Key(99), raydium.RAYDIUM_CLMM_PROGRAM_ID, nil, 5)))
	// non-account updates are ignored
	require.NoError(t, w.HandleUpdate(ctx, &pb.SubscribeUpdate{UpdateOneof: &pb.SubscribeUpdate_Slot{Slot: &pb.SubscribeUpdateSlot{Slot: 6}}}))
	assert.Empty(t, sink.all())

	bad := &pb.SubscribeUpdate{UpdateOneof: &pb.SubscribeUpdate_Account{Account: &pb.SubscribeUpdateAccount{
		Account: &pb.SubscribeUpdateAccountInfo{Pubkey: []byte{1}},
	}}}
	require.Error(t, w.HandleUpdate(ctx, bad))
}

func TestTrackerPoolMismatch(t *testing.T) {
	s := newRaydiumScenario(t)
	reader := testutil.NewReader()
	s.position.Put(reader)

	tr, err := NewTracker(Target{Label: "x", Dex: pkg.ProtocolNameRaydiumClmm, Pool: testutil.Key(7).String(), Position: s.position.NftMint.String()}, protocol.NewRaydiumClmm(nil))
	require.NoError(t, err)
	err = tr.Prime(context.Background(), reader)
	require.ErrorIs(t, err, pkg.ErrInvalidInput)
}

func TestDlmmActiveBinStatus(t *testing.T) {
	ctx := context.Background()
	pair := fixtures.LbPair{Address: testutil.Key(30), ActiveId: 7, BinStep: 25}
	pos := fixtures.DlmmPosition{Address: testutil.Key(31), LbPair: pair.Address, Owner: testutil.Key(32), Lower: 5, Upper: 10, Shares: 100}
	reader := testutil.NewReader()
	pair.Put(reader)
	pos.Put(reader)

	tr, err := NewTracker(Target{Label: "dlmm", Dex: pkg.ProtocolNameMeteoraDlmm, Position: pos.Address.String()}, protocol.NewMeteoraDlmm(nil))
	require.NoError(t, err)
	require.NoError(t, tr.Prime(ctx, reader))

	sink := &memorySink{}
	w := New([]*Tracker{tr}, WithSinks(sink))
	require.NoError(t, w.ReportAll(ctx))

	for _, active := range []int32{10, 11, 4} {
		p := pair
		p.ActiveId = active
		require.NoError(t, w.HandleUpdate(ctx, accountUpdate(p.Address, meteora.METEORA_DLMM_PROGRAM_ID, p.Bytes(), 1)))
	}

	events := sink.all()
	require.Len(t, events, 4)
	want := []RangeStatus{StatusInRange, StatusInRange, StatusAbove, StatusBelow}
	for i, ev := range events {
		assert.Equal(t, want[i], ev.Status, "event %d", i)
		assert.Zero(t, ev.Amount0)
		assert.Equal(t, "600", ev.Liquidity)
	}
	assert.True(t, events[2].Crossed)
}

type fakeStream struct {
	grpc.ClientStream
	mu      sync.Mutex
	sent    []*pb.SubscribeRequest
	updates []*pb.SubscribeUpdate
	// hold keeps the stream open after the queued updates, like a live server
	hold bool
	ctx  context.Context
}

func (f *fakeStream) Send(req *pb.SubscribeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeStream) Recv() (*pb.SubscribeUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		if !f.hold {
			return nil, io.EOF
		}
		f.mu.Unlock()
		<-f.ctx.Done()
		f.mu.Lock()
		return nil, f.ctx.Err()
	}
	u := f.updates[0]
	f.updates = f.updates[1:]
	return u, nil
}

type fakeGeyser struct {
	pb.GeyserClient
	stream *fakeStream
}

func (f *fakeGeyser) Subscribe(ctx context.Context, opts ...grpc.CallOption) (pb.Geyser_SubscribeClient, error) {
	f.stream.ctx = ctx
	return f.stream, nil
}

func TestRunSubscribesAndDrains(t *testing.T) {
	s := newRaydiumScenario(t)
	stream := &fakeStream{updates: []*pb.SubscribeUpdate{
		{UpdateOneof: &pb.SubscribeUpdate_Ping{Ping: &pb.SubscribeUpdatePing{}}},
		s.poolAt(t, -600, 20),
	}}
	sink := &memorySink{}
	w := New([]*Tracker{s.tracker}, WithSinks(sink))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Run(ctx, &fakeGeyser{stream: stream}))

	require.Len(t, stream.sent, 2)
	req := stream.sent[0]
	assert.Equal(t, pb.CommitmentLevel_PROCESSED, req.GetCommitment())
	filter := req.GetAccounts()["sol-usdc"]
	require.NotNil(t, filter)
	assert.ElementsMatch(t, []string{
		s.pool.Address.String(),
		raydium.DerivePersonalPositionPDA(s.position.NftMint).String(),
	}, filter.GetAccount())
	assert.NotNil(t, stream.sent[1].GetPing())

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, StatusBelow, events[0].Status)
	assert.Zero(t, events[0].Amount1)
}

func TestRunOnceStopsAfterFirstReport(t *testing.T) {
	s := newRaydiumScenario(t)
	stream := &fakeStream{hold: true, updates: []*pb.SubscribeUpdate{
		s.poolAt(t, -600, 20),
		s.poolAt(t, 600, 21),
	}}
	sink := &memorySink{}
	w := New([]*Tracker{s.tracker}, WithSinks(sink), WithOnce())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Run(ctx, &fakeGeyser{stream: stream}))
	assert.NoError(t, ctx.Err(), "Run must return before the deadline")

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(20), events[0].Slot)
	assert.Equal(t, StatusBelow, events[0].Status)
}

func TestLoadTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	pos := testutil.Key(5).String()
	require.NoError(t, os.WriteFile(path, []byte(`targets:
  - label: a
    dex: raydium
    position: `+pos+`
  - dex: meteora
    position: `+pos+`
`), 0o600))

	targets, err := LoadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "a", targets[0].Label)
	assert.Equal(t, "target-1", targets[1].Label)
	assert.Equal(t, pkg.ProtocolNameMeteoraDlmm, targets[1].Dex)

	require.NoError(t, os.WriteFile(path, []byte(`targets:
  - label: a
    dex: uniswap
    pool: "0OIl"
    position: nope
  - label: a
    dex: orca
    position: `+pos+`
`), 0o600))
	_, err = LoadTargets(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dex")
	assert.Contains(t, err.Error(), "duplicate label")
	assert.Contains(t, err.Error(), "target a: position")
	assert.Contains(t, err.Error(), "target a: pool")
}

func TestDialConfigTarget(t *testing.T) {
	cases := []struct {
		endpoint string
		target   string
		secure   bool
	}{
		{"https://grpc.example.com", "grpc.example.com:443", true},
		{"http://localhost:10000/", "localhost:10000", false},
		{"grpc.example.com:2053", "grpc.example.com:2053", true},
	}
	for _, c := range cases {
		target, secure, err := DialConfig{Endpoint: c.endpoint}.target()
		require.NoError(t, err)
		assert.Equal(t, c.target, target, c.endpoint)
		assert.Equal(t, c.secure, secure, c.endpoint)
	}
	_, _, err := DialConfig{}.target()
	require.Error(t, err)
}
