// Package config merges flags, environment, .env and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/sol"
)

const (
	DefaultRPC         = "https://api.mainnet-beta.solana.com"
	DefaultNATSSubject = "clmm.watch"
)

// 这些 key 沿用原有的环境变量名, 不加 CLMM_ 前缀
var envAliases = map[string][]string{
	"rpc":             {"RPC_URL"},
	"private-key":     {"PRIVATE_KEY_B58", "PRIVATE_KEY"},
	"geyser-endpoint": {"YELLOWSTONE_ENDPOINT"},
	"geyser-token":    {"YELLOWSTONE_TOKEN"},
}

type Config struct {
	Dex        pkg.ProtocolName
	RPC        string
	PrivateKey string
	CUPrice    uint64
	CULimit    uint32
	LogLevel   string
	DryRun     bool

	Commitment     rpc.CommitmentType
	ConfirmTimeout time.Duration

	GeyserEndpoint string
	GeyserToken    string
	MetricsAddr    string

	CacheDir    string
	CacheRedis  string
	NATSURL     string
	NATSSubject string
}

// LoadDotEnv 加载当前目录的 .env, 文件不存在不算错误
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load merges config file, environment variables, and flags into Config.
// Flags win over environment, environment over the file.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("dex", string(pkg.ProtocolNameRaydiumClmm))
	v.SetDefault("rpc", DefaultRPC)
	v.SetDefault("cu-price", uint64(sol.DefaultComputeUnitPrice))
	v.SetDefault("cu-limit", uint32(sol.DefaultComputeUnitLimit))
	v.SetDefault("log-level", "info")
	v.SetDefault("commitment", string(rpc.CommitmentConfirmed))
	v.SetDefault("confirm-timeout", 60*time.Second)
	v.SetDefault("nats-subject", DefaultNATSSubject)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("clmmctl")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return Config{
		Dex:            pkg.ProtocolName(strings.ToLower(v.GetString("dex"))),
		RPC:            v.GetString("rpc"),
		PrivateKey:     v.GetString("private-key"),
		CUPrice:        v.GetUint64("cu-price"),
		CULimit:        v.GetUint32("cu-limit"),
		LogLevel:       v.GetString("log-level"),
		DryRun:         v.GetBool("dry-run"),
		Commitment:     rpc.CommitmentType(strings.ToLower(v.GetString("commitment"))),
		ConfirmTimeout: v.GetDuration("confirm-timeout"),
		GeyserEndpoint: v.GetString("geyser-endpoint"),
		GeyserToken:    v.GetString("geyser-token"),
		MetricsAddr:    v.GetString("metrics-addr"),
		CacheDir:       v.GetString("cache-dir"),
		CacheRedis:     v.GetString("cache-redis"),
		NATSURL:        v.GetString("nats-url"),
		NATSSubject:    v.GetString("nats-subject"),
	}, nil
}

// Validate 检查所有命令共用的字段, 一次报告全部问题
func (c Config) Validate() error {
	var problems []string

	known := false
	for _, name := range pkg.ProtocolNames {
		if c.Dex == name {
			known = true
		}
	}
	if !known {
		problems = append(problems, fmt.Sprintf("dex %q is not one of raydium, orca, meteora", c.Dex))
	}
	if c.RPC == "" {
		problems = append(problems, "rpc url is required")
	} else if !strings.HasPrefix(c.RPC, "http://") && !strings.HasPrefix(c.RPC, "https://") {
		problems = append(problems, fmt.Sprintf("rpc url %q must start with http:// or https://", c.RPC))
	}
	if c.CULimit == 0 {
		problems = append(problems, "cu-limit must be positive")
	}
	switch c.Commitment {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		problems = append(problems, fmt.Sprintf("commitment %q is not processed, confirmed or finalized", c.Commitment))
	}
	if c.ConfirmTimeout <= 0 {
		problems = append(problems, "confirm-timeout must be positive")
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		problems = append(problems, "nats-subject is required when nats-url is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// RequireSigner 给需要签名的命令使用
func (c Config) RequireSigner() error {
	if strings.TrimSpace(c.PrivateKey) == "" {
		return errors.New("private key is required: set PRIVATE_KEY_B58 or private-key in the config file")
	}
	return nil
}

// RequireGeyser 给 watch 命令使用
func (c Config) RequireGeyser() error {
	if c.GeyserEndpoint == "" {
		return errors.New("geyser endpoint is required: set YELLOWSTONE_ENDPOINT or --geyser-endpoint")
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// String 打印配置时隐藏私钥和 geyser token
func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dex=%s rpc=%s commitment=%s cu-price=%d cu-limit=%d dry-run=%t",
		c.Dex, c.RPC, c.Commitment, c.CUPrice, c.CULimit, c.DryRun)
	if c.PrivateKey != "" {
		fmt.Fprintf(&b, " private-key=%s", mask(c.PrivateKey))
	}
	if c.GeyserEndpoint != "" {
		fmt.Fprintf(&b, " geyser-endpoint=%s geyser-token=%s", c.GeyserEndpoint, mask(c.GeyserToken))
	}
	if c.MetricsAddr != "" {
		fmt.Fprintf(&b, " metrics-addr=%s", c.MetricsAddr)
	}
	if c.CacheDir != "" {
		fmt.Fprintf(&b, " cache-dir=%s", c.CacheDir)
	}
	if c.CacheRedis != "" {
		fmt.Fprintf(&b, " cache-redis=%s", c.CacheRedis)
	}
	if c.NATSURL != "" {
		fmt.Fprintf(&b, " nats-url=%s nats-subject=%s", c.NATSURL, c.NATSSubject)
	}
	return b.String()
}
