package sol

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestLoadPrivateKey(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	cases := map[string]string{
		"base58 keypair": key.String(),
		"base58 seed":    base58.Encode(key[:32]),
		"json array":     jsonBytes(key),
		"padded":         "  " + key.String() + "\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := LoadPrivateKey(input)
			require.NoError(t, err)
			assert.Equal(t, key.PublicKey(), got.PublicKey())
		})
	}

	t.Run("keygen file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "id.json")
		require.NoError(t, os.WriteFile(path, []byte(jsonBytes(key)), 0o600))
		got, err := LoadPrivateKey(path)
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey(), got.PublicKey())
	})

	t.Run("base58 file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.txt")
		require.NoError(t, os.WriteFile(path, []byte(key.String()+"\n"), 0o600))
		got, err := LoadPrivateKey(path)
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey(), got.PublicKey())
	})
}

func TestLoadPrivateKeyRejects(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	_, err = LoadPrivateKey("")
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = LoadPrivateKey(base58.Encode(key[:40]))
	assert.ErrorContains(t, err, "must be 32 or 64 bytes")

	tampered := make([]byte, 64)
	copy(tampered, key)
	tampered[63] ^= 0xff
	_, err = LoadPrivateKey(base58.Encode(tampered))
	assert.ErrorContains(t, err, "does not match")

	_, err = LoadPrivateKey("[1,2,300]")
	assert.ErrorContains(t, err, "invalid byte")

	_, err = LoadPrivateKey("0OIl")
	assert.ErrorContains(t, err, "invalid base58")
}
