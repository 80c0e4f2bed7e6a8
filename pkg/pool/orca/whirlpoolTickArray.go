package orca

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
)

// getWhirlpoolTickCount returns the number of ticks in tick array - Whirlpool uses 88 instead of 60
func getWhirlpoolTickCount(tickSpacing int64) int64 {
	return tickSpacing * TICK_ARRAY_SIZE
}

// GetWhirlpoolTickArrayStartIndexByTick gets tick array start index by tick (floor semantics)
func GetWhirlpoolTickArrayStartIndexByTick(tickIndex int64, tickSpacing int64) int64 {
	return rangemath.GroupStart(tickIndex, getWhirlpoolTickCount(tickSpacing))
}

// DeriveWhirlpoolTickArrayPDA derives PDA address for Whirlpool tick array
// Based on Whirlpool source code implementation: seeds = ["tick_array", whirlpool_pubkey, start_tick_index.to_string()]
func DeriveWhirlpoolTickArrayPDA(whirlpoolPubkey solana.PublicKey, startTickIndex int64) solana.PublicKey {
	pda, _ := pool.MustFindProgramAddress([][]byte{
		[]byte(TICK_ARRAY_SEED),
		whirlpoolPubkey.Bytes(),
		[]byte(strconv.FormatInt(startTickIndex, 10)),
	}, ORCA_WHIRLPOOL_PROGRAM_ID)
	return pda
}

// SwapTickArrayStarts returns the start indexes of tick_array0..2 for a swap
// Implements correct tick array sequence calculation based on Whirlpool source code
func SwapTickArrayStarts(currentTick int32, tickSpacing uint16, aToB bool) [3]int64 {
	ticksInArray := getWhirlpoolTickCount(int64(tickSpacing))
	startTickIndexBase := GetWhirlpoolTickArrayStartIndexByTick(int64(currentTick), int64(tickSpacing))

	// Calculate offset based on swap direction
	var offsets [3]int64
	if aToB {
		// A -> B: price decreases, need current and previous tick arrays
		offsets = [3]int64{0, -1, -2}
	} else if int64(currentTick)+int64(tickSpacing) >= startTickIndexBase+ticksInArray {
		// B -> A: already crossed to next tick array
		offsets = [3]int64{1, 2, 3}
	} else {
		offsets = [3]int64{0, 1, 2}
	}

	var starts [3]int64
	for i, o := range offsets {
		starts[i] = startTickIndexBase + o*ticksInArray
	}
	return starts
}

// DeriveMultipleWhirlpoolTickArrayPDAs derives tick_array0, tick_array1, tick_array2 needed in swap instructions
func DeriveMultipleWhirlpoolTickArrayPDAs(whirlpoolPubkey solana.PublicKey, currentTick int32, tickSpacing uint16, aToB bool) [3]solana.PublicKey {
	var arrays [3]solana.PublicKey
	for i, start := range SwapTickArrayStarts(currentTick, tickSpacing, aToB) {
		arrays[i] = DeriveWhirlpoolTickArrayPDA(whirlpoolPubkey, start)
	}
	return arrays
}

// DeriveWhirlpoolOraclePDA derives PDA address for Whirlpool Oracle
// seeds = ["oracle", whirlpool_pubkey]
func DeriveWhirlpoolOraclePDA(whirlpoolPubkey solana.PublicKey) solana.PublicKey {
	pda, _ := pool.MustFindProgramAddress([][]byte{
		[]byte(ORACLE_SEED),
		whirlpoolPubkey.Bytes(),
	}, ORCA_WHIRLPOOL_PROGRAM_ID)
	return pda
}

// DeriveWhirlpoolPositionPDA seeds = ["position", position_mint]; the bump goes into open_position
func DeriveWhirlpoolPositionPDA(positionMint solana.PublicKey) (solana.PublicKey, uint8) {
	return pool.MustFindProgramAddress([][]byte{
		[]byte(POSITION_SEED),
		positionMint.Bytes(),
	}, ORCA_WHIRLPOOL_PROGRAM_ID)
}
