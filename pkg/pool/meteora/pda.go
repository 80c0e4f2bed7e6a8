package meteora

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg/pool"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
)

// BinArrayIndex 返回包含 binId 的 bin array 编号 (floor)
func BinArrayIndex(binId int32) int64 {
	return rangemath.GroupIndex(int64(binId), BINS_PER_ARRAY)
}

// DeriveBinArrayPDA seeds = ["bin_array", lb_pair, index.to_le_bytes()]
func DeriveBinArrayPDA(lbPair solana.PublicKey, index int64) solana.PublicKey {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], uint64(index))
	pda, _ := pool.MustFindProgramAddress([][]byte{
		[]byte(BIN_ARRAY_SEED),
		lbPair.Bytes(),
		idx[:],
	}, METEORA_DLMM_PROGRAM_ID)
	return pda
}

// DeriveEventAuthorityPDA seeds = ["__event_authority"]
func DeriveEventAuthorityPDA() solana.PublicKey {
	pda, _ := pool.MustFindProgramAddress([][]byte{
		[]byte(EVENT_AUTHORITY_SEED),
	}, METEORA_DLMM_PROGRAM_ID)
	return pda
}

// PositionBinArrays 返回仓位两端的 bin array 编号; 两端落在同一个 bin array 时上端 +1
func PositionBinArrays(lowerBinId, upperBinId int32) (int64, int64) {
	return rangemath.DistinctGroups(BinArrayIndex(lowerBinId), BinArrayIndex(upperBinId))
}
