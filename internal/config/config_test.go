package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingWOW/clmmctl/pkg"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envAliases {
		for _, n := range names {
			t.Setenv(n, "")
			os.Unsetenv(n)
		}
	}
	for _, n := range []string{"CLMM_DEX", "CLMM_RPC", "CLMM_NATS_URL", "CLMM_COMMITMENT", "CLMM_CACHE_DIR"} {
		t.Setenv(n, "")
		os.Unsetenv(n)
	}
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("dex", "raydium", "")
	fs.String("rpc", DefaultRPC, "")
	fs.Uint64("cu-price", 1000, "")
	fs.Uint32("cu-limit", 1_200_000, "")
	fs.Bool("dry-run", false, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, pkg.ProtocolNameRaydiumClmm, cfg.Dex)
	assert.Equal(t, DefaultRPC, cfg.RPC)
	assert.Equal(t, uint64(1000), cfg.CUPrice)
	assert.Equal(t, uint32(1_200_000), cfg.CULimit)
	assert.Equal(t, rpc.CommitmentConfirmed, cfg.Commitment)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, DefaultNATSSubject, cfg.NATSSubject)
	require.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "clmm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dex: orca\nrpc: https://file.example\ncache-dir: /tmp/pools\n"), 0o600))
	t.Setenv("RPC_URL", "https://env.example")
	t.Setenv("YELLOWSTONE_TOKEN", "secret-token-value")
	t.Setenv("CLMM_NATS_URL", "nats://127.0.0.1:4222")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--dex", "meteora", "--dry-run"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, pkg.ProtocolNameMeteoraDlmm, cfg.Dex, "flag beats file")
	assert.Equal(t, "https://env.example", cfg.RPC, "env beats file")
	assert.Equal(t, "/tmp/pools", cfg.CacheDir)
	assert.Equal(t, "secret-token-value", cfg.GeyserToken)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.True(t, cfg.DryRun)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Config{
		Dex:        "uniswap",
		RPC:        "ws://localhost",
		Commitment: "recent",
		NATSURL:    "nats://x",
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"dex", "rpc url", "cu-limit", "commitment", "confirm-timeout", "nats-subject"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRequire(t *testing.T) {
	assert.Error(t, Config{}.RequireSigner())
	assert.NoError(t, Config{PrivateKey: "abc"}.RequireSigner())
	assert.Error(t, Config{}.RequireGeyser())
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := Config{
		Dex:            pkg.ProtocolNameOrcaWhirlpool,
		RPC:            DefaultRPC,
		PrivateKey:     "4Z7cXSyeFR8wNGMVXUE1TwtKn5D5Vu7FzEv69dokLv7KrQk7h6pu4LF8ZRR9yQBhc7uSM6RTTZtU1fmaxiNrxXrs",
		GeyserEndpoint: "https://grpc.example",
		GeyserToken:    "abcdefghijklmnop",
	}
	s := cfg.String()
	assert.NotContains(t, s, cfg.PrivateKey)
	assert.NotContains(t, s, cfg.GeyserToken)
	assert.Contains(t, s, "private-key=4Z7c****xXrs")
	assert.Contains(t, s, "geyser-token=abcd****mnop")
	assert.Contains(t, s, "dex=orca")
}
