package sol

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var ErrEmptyKey = errors.New("private key is empty")

// LoadPrivateKey 接受 base58 字符串 (32 字节 seed 或 64 字节 keypair), JSON 字节数组, 或指向前两者的文件路径
func LoadPrivateKey(input string) (solana.PrivateKey, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, ErrEmptyKey
	}
	if !strings.HasPrefix(s, "[") {
		if raw, err := os.ReadFile(s); err == nil {
			key, err := parseKey(string(bytes.TrimSpace(raw)))
			if err != nil {
				return nil, fmt.Errorf("key file %s: %w", s, err)
			}
			return key, nil
		}
	}
	return parseKey(s)
}

func parseKey(s string) (solana.PrivateKey, error) {
	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("invalid JSON key array: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("invalid byte %d at position %d", v, i)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base58 key: %w", err)
		}
		raw = decoded
	}
	return keyFromBytes(raw)
}

func keyFromBytes(raw []byte) (solana.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return solana.PrivateKey(ed25519.NewKeyFromSeed(raw)), nil
	case ed25519.PrivateKeySize:
		expected := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(expected, raw) {
			return nil, errors.New("keypair public half does not match its seed")
		}
		return solana.PrivateKey(raw), nil
	}
	return nil, fmt.Errorf("key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
}
