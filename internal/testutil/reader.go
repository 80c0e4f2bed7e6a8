// Package testutil holds in-memory fakes shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
)

// Reader is an in-memory pkg.AccountReader that records every read.
type Reader struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*pkg.Account
	Reads    []solana.PublicKey
	Err      error
}

func NewReader() *Reader {
	return &Reader{accounts: make(map[solana.PublicKey]*pkg.Account)}
}

func (r *Reader) Put(address, owner solana.PublicKey, data []byte) *Reader {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[address] = &pkg.Account{Address: address, Owner: owner, Data: data}
	return r
}

func (r *Reader) GetAccount(_ context.Context, address solana.PublicKey) (*pkg.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reads = append(r.Reads, address)
	if r.Err != nil {
		return nil, r.Err
	}
	acct, ok := r.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pkg.ErrAccountNotFound, address)
	}
	cp := *acct
	return &cp, nil
}

// ReadCount reports how many times address was read.
func (r *Reader) ReadCount(address solana.PublicKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.Reads {
		if a.Equals(address) {
			n++
		}
	}
	return n
}

// Key returns a deterministic public key for test fixtures.
func Key(seed byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = seed
	}
	k[0] = seed ^ 0x5a
	return k
}
