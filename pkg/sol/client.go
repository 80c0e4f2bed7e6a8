package sol

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/yimingWOW/clmmctl/pkg"
)

// Client 封装 rpc.Client, 供各协议读取账户和发送交易
type Client struct {
	RpcClient  *rpc.Client
	Commitment rpc.CommitmentType
}

func NewClient(endpoint string, commitment rpc.CommitmentType) *Client {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{
		RpcClient:  rpc.New(endpoint),
		Commitment: commitment,
	}
}

// GetAccount 读取单个账户, 不存在时返回 pkg.ErrAccountNotFound
func (c *Client) GetAccount(ctx context.Context, address solana.PublicKey) (*pkg.Account, error) {
	out, err := c.RpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.Commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (out == nil || out.Value == nil)) {
		return nil, fmt.Errorf("%w: %s", pkg.ErrAccountNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &pkg.Account{
		Address: address,
		Owner:   out.Value.Owner,
		Data:    out.Value.Data.GetBinary(),
		Slot:    out.Context.Slot,
	}, nil
}

func (c *Client) Close() error {
	return c.RpcClient.Close()
}
