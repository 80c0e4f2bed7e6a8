package watch

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
	"gopkg.in/yaml.v3"
)

// Target 是一个被监听的仓位; Pool 为空时从仓位账户读出
type Target struct {
	Label    string           `yaml:"label"`
	Dex      pkg.ProtocolName `yaml:"dex"`
	Pool     string           `yaml:"pool,omitempty"`
	Position string           `yaml:"position"`
}

type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadTargets reads a YAML file of the form
//
//	targets:
//	  - label: sol-usdc
//	    dex: raydium
//	    position: <nft mint or position account>
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	var f targetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}
	if len(f.Targets) == 0 {
		return nil, fmt.Errorf("targets file %s lists no targets", path)
	}
	var errs []error
	seen := make(map[string]bool)
	for i := range f.Targets {
		t := &f.Targets[i]
		if t.Label == "" {
			t.Label = fmt.Sprintf("target-%d", i)
		}
		if seen[t.Label] {
			errs = append(errs, fmt.Errorf("target %s: duplicate label", t.Label))
		}
		seen[t.Label] = true
		if err := t.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return f.Targets, nil
}

// validate 返回该 target 的全部问题
func (t Target) validate() error {
	var errs []error
	if !slices.Contains(pkg.ProtocolNames, t.Dex) {
		errs = append(errs, fmt.Errorf("target %s: unknown dex %q", t.Label, t.Dex))
	}
	if _, err := solana.PublicKeyFromBase58(t.Position); err != nil {
		errs = append(errs, fmt.Errorf("target %s: position: %w", t.Label, err))
	}
	if t.Pool != "" {
		if _, err := solana.PublicKeyFromBase58(t.Pool); err != nil {
			errs = append(errs, fmt.Errorf("target %s: pool: %w", t.Label, err))
		}
	}
	return errors.Join(errs...)
}
