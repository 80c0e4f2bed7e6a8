// Package watch follows pool and position accounts over a Yellowstone gRPC
// stream and reports how the position's token split moves with the price.
package watch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

const maxRecvMsgSize = 64 * 1024 * 1024

// tokenAuth 把 x-token 放进每个请求的 metadata
type tokenAuth struct {
	token  string
	secure bool
}

func (t tokenAuth) GetRequestMetadata(ctx context.Context, in ...string) (map[string]string, error) {
	return map[string]string{"x-token": t.token}, nil
}

func (t tokenAuth) RequireTransportSecurity() bool {
	return t.secure
}

type DialConfig struct {
	// Endpoint is host:port, or a URL whose scheme picks the transport: http:// dials without TLS.
	Endpoint string
	Token    string
}

// target 去掉 scheme, 返回 grpc 地址和是否使用 TLS
func (c DialConfig) target() (string, bool, error) {
	endpoint := strings.TrimSuffix(c.Endpoint, "/")
	if endpoint == "" {
		return "", false, errors.New("geyser endpoint is empty")
	}
	secure := true
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		secure = false
	}
	if !strings.Contains(endpoint, ":") {
		if secure {
			endpoint += ":443"
		} else {
			endpoint += ":80"
		}
	}
	return endpoint, secure, nil
}

// Dial opens the gRPC connection. The caller closes it.
func Dial(cfg DialConfig) (*grpc.ClientConn, pb.GeyserClient, error) {
	target, secure, err := cfg.target()
	if err != nil {
		return nil, nil, err
	}
	creds := insecure.NewCredentials()
	if secure {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             time.Second,
			PermitWithoutStream: true,
		}),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecvMsgSize)),
	}
	if cfg.Token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(tokenAuth{token: cfg.Token, secure: secure}))
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial geyser %s: %w", target, err)
	}
	return conn, pb.NewGeyserClient(conn), nil
}
