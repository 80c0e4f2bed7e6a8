package pkg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrInvalidInput marks user input rejected before any network access.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAccountNotFound is returned by AccountReader for missing accounts.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUnsupported marks an operation the selected backend cannot build.
	ErrUnsupported = errors.New("unsupported")
)

// InputError wraps ErrInvalidInput with the offending field.
func InputError(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, fmt.Sprintf(format, args...))
}

// DecodeError reports account bytes that do not match the expected record.
type DecodeError struct {
	Kind    string
	Address solana.PublicKey
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %s: %s", e.Kind, e.Address, e.Reason)
}

// SimulationError carries the program logs of a rejected simulation.
type SimulationError struct {
	Err  any
	Logs []string
}

func (e *SimulationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "simulation failed: %v", e.Err)
	for _, l := range e.Logs {
		b.WriteString("\n  ")
		b.WriteString(l)
	}
	return b.String()
}
