// Package cache stores decoded pool snapshots on disk or in redis so they can be
// inspected without another RPC round trip.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/yimingWOW/clmmctl/pkg"
)

// ErrNotFound is returned when no snapshot is stored for a pool.
var ErrNotFound = errors.New("pool snapshot not found")

// PoolSnapshot 是写入缓存的池子摘要
type PoolSnapshot struct {
	Pool         string           `yaml:"pool" json:"pool"`
	Dex          pkg.ProtocolName `yaml:"dex" json:"dex"`
	Slot         uint64           `yaml:"slot" json:"slot"`
	ProgramID    string           `yaml:"program_id" json:"program_id"`
	MintA        string           `yaml:"mint_a" json:"mint_a"`
	MintB        string           `yaml:"mint_b" json:"mint_b"`
	VaultA       string           `yaml:"vault_a" json:"vault_a"`
	VaultB       string           `yaml:"vault_b" json:"vault_b"`
	DecimalsA    *uint8           `yaml:"decimals_a,omitempty" json:"decimals_a,omitempty"`
	DecimalsB    *uint8           `yaml:"decimals_b,omitempty" json:"decimals_b,omitempty"`
	Granularity  uint16           `yaml:"granularity" json:"granularity"`
	CurrentIndex int32            `yaml:"current_index" json:"current_index"`
	SqrtPriceX64 string           `yaml:"sqrt_price_x64,omitempty" json:"sqrt_price_x64,omitempty"`
	Liquidity    string           `yaml:"liquidity,omitempty" json:"liquidity,omitempty"`
	DataLen      int              `yaml:"data_len" json:"data_len"`
	FetchedAt    time.Time        `yaml:"fetched_at" json:"fetched_at"`
}

// decimaler is implemented by pools that carry their mint decimals.
type decimaler interface {
	Decimals() (uint8, uint8)
}

// NewSnapshot 从刚读取的账户和解析后的池子构造快照
func NewSnapshot(acct *pkg.Account, pool pkg.Pool, now time.Time) PoolSnapshot {
	st := pool.State()
	snap := PoolSnapshot{
		Pool:         st.Address.String(),
		Dex:          pool.ProtocolName(),
		Slot:         acct.Slot,
		ProgramID:    st.ProgramID.String(),
		MintA:        st.MintA.String(),
		MintB:        st.MintB.String(),
		VaultA:       st.VaultA.String(),
		VaultB:       st.VaultB.String(),
		Granularity:  st.Granularity,
		CurrentIndex: st.CurrentIndex,
		DataLen:      len(acct.Data),
		FetchedAt:    now.UTC(),
	}
	if !st.SqrtPriceX64.IsZero() {
		snap.SqrtPriceX64 = st.SqrtPriceX64.String()
	}
	if !st.Liquidity.IsZero() {
		snap.Liquidity = st.Liquidity.String()
	}
	if d, ok := pool.(decimaler); ok {
		a, b := d.Decimals()
		snap.DecimalsA, snap.DecimalsB = &a, &b
	}
	return snap
}

// Store 由文件缓存和 redis 缓存实现
type Store interface {
	Put(ctx context.Context, snap PoolSnapshot) error
	Get(ctx context.Context, pool string) (PoolSnapshot, error)
	Close() error
}
