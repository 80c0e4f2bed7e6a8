package sol

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

const (
	DefaultComputeUnitLimit = 1_200_000
	DefaultComputeUnitPrice = 1_000
)

// ComputeBudgetInstructions returns the unit limit followed by the unit price directive.
func ComputeBudgetInstructions(unitLimit uint32, microLamports uint64) []solana.Instruction {
	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(unitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build(),
	}
}
