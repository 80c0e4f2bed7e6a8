package raydium

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg/pool"
)

// DeriveTickArrayPDA seeds = ["tick_array", pool, start_index.to_be_bytes()]
func DeriveTickArrayPDA(poolId solana.PublicKey, startIndex int32) solana.PublicKey {
	var start [4]byte
	binary.BigEndian.PutUint32(start[:], uint32(startIndex))
	pda, _ := pool.MustFindProgramAddress([][]byte{
		[]byte(TICK_ARRAY_SEED),
		poolId.Bytes(),
		start[:],
	}, RAYDIUM_CLMM_PROGRAM_ID)
	return pda
}

// DerivePersonalPositionPDA seeds = ["position", nft_mint]
func DerivePersonalPositionPDA(nftMint solana.PublicKey) solana.PublicKey {
	pda, _ := pool.MustFindProgramAddress([][]byte{
		[]byte(POSITION_SEED),
		nftMint.Bytes(),
	}, RAYDIUM_CLMM_PROGRAM_ID)
	return pda
}

// DeriveProtocolPositionPDA seeds = ["protocol_position", pool, lower.to_le_bytes(), upper.to_le_bytes()]
func DeriveProtocolPositionPDA(poolId solana.PublicKey, tickLower, tickUpper int32) solana.PublicKey {
	var lower, upper [4]byte
	binary.LittleEndian.PutUint32(lower[:], uint32(tickLower))
	binary.LittleEndian.PutUint32(upper[:], uint32(tickUpper))
	pda, _ := pool.MustFindProgramAddress([][]byte{
		[]byte(PROTOCOL_POSITION_SEED),
		poolId.Bytes(),
		lower[:],
		upper[:],
	}, RAYDIUM_CLMM_PROGRAM_ID)
	return pda
}

// DeriveTickArrayBitmapExtensionPDA seeds = ["pool_tick_array_bitmap_extension", pool]
func DeriveTickArrayBitmapExtensionPDA(poolId solana.PublicKey) solana.PublicKey {
	pda, _ := pool.MustFindProgramAddress([][]byte{
		[]byte(TICK_ARRAY_BITMAP_EXT_SEED),
		poolId.Bytes(),
	}, RAYDIUM_CLMM_PROGRAM_ID)
	return pda
}
