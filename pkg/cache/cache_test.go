package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingWOW/clmmctl/internal/fixtures"
	"github.com/yimingWOW/clmmctl/internal/testutil"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/pool/meteora"
	"github.com/yimingWOW/clmmctl/pkg/pool/raydium"
	"lukechampine.com/uint128"
)

func raydiumSnapshot(t *testing.T) PoolSnapshot {
	t.Helper()
	f := fixtures.RaydiumPool{
		Address:      testutil.Key(1),
		Mint0:        testutil.Key(2),
		Mint1:        testutil.Key(3),
		Vault0:       testutil.Key(4),
		Vault1:       testutil.Key(5),
		TickSpacing:  60,
		TickCurrent:  -17,
		SqrtPriceX64: fixtures.Q64,
		Liquidity:    uint128.From64(42),
	}
	acct := &pkg.Account{Address: f.Address, Owner: raydium.RAYDIUM_CLMM_PROGRAM_ID, Data: f.Bytes(), Slot: 300}
	pool, err := raydium.DecodePool(acct)
	require.NoError(t, err)
	return NewSnapshot(acct, pool, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestNewSnapshot(t *testing.T) {
	snap := raydiumSnapshot(t)
	assert.Equal(t, testutil.Key(1).String(), snap.Pool)
	assert.Equal(t, pkg.ProtocolNameRaydiumClmm, snap.Dex)
	assert.Equal(t, uint64(300), snap.Slot)
	assert.Equal(t, raydium.POOL_STATE_SIZE, snap.DataLen)
	assert.Equal(t, uint16(60), snap.Granularity)
	assert.Equal(t, int32(-17), snap.CurrentIndex)
	assert.Equal(t, "18446744073709551616", snap.SqrtPriceX64)
	require.NotNil(t, snap.DecimalsA)
	assert.Equal(t, uint8(9), *snap.DecimalsA)
	assert.Equal(t, uint8(6), *snap.DecimalsB)

	f := fixtures.LbPair{Address: testutil.Key(9), ActiveId: 3, BinStep: 25}
	acct := &pkg.Account{Address: f.Address, Owner: meteora.METEORA_DLMM_PROGRAM_ID, Data: f.Bytes()}
	pair, err := meteora.DecodeLbPair(acct)
	require.NoError(t, err)
	dlmm := NewSnapshot(acct, pair, time.Now())
	assert.Nil(t, dlmm.DecimalsA)
	assert.Empty(t, dlmm.SqrtPriceX64)
	assert.Equal(t, uint16(25), dlmm.Granularity)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	snap := raydiumSnapshot(t)
	_, err = store.Get(ctx, snap.Pool)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, snap))
	got, err := store.Get(ctx, snap.Pool)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("CLMM_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CLMM_TEST_REDIS_URL is not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(url, time.Minute)
	require.NoError(t, err)
	defer store.Close()

	snap := raydiumSnapshot(t)
	require.NoError(t, store.Put(ctx, snap))
	got, err := store.Get(ctx, snap.Pool)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	_, err = store.Get(ctx, testutil.Key(77).String())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStoreRejectsURL(t *testing.T) {
	_, err := NewRedisStore("not a url", 0)
	require.Error(t, err)
}
