// Package rangemath 提供 tick / bin 区间的整数运算.
// 所有除法都是 floor 语义, 负数 index 向负无穷取整.
package rangemath

import (
	"fmt"
	"math"

	"github.com/yimingWOW/clmmctl/pkg"
)

// TickBase is the per-tick price ratio used by tick based pools.
const TickBase = 1.0001

// FloorDiv 实现向下取整的整数除法
func FloorDiv(dividend, divisor int64) int64 {
	if divisor == 0 {
		panic("rangemath: division by zero")
	}
	if (dividend < 0) != (divisor < 0) && dividend%divisor != 0 {
		return dividend/divisor - 1
	}
	return dividend / divisor
}

// GroupStart 返回包含 index 的分组起点, span 为整个分组覆盖的 index 数量
func GroupStart(index, span int64) int64 {
	return FloorDiv(index, span) * span
}

// GroupIndex 返回包含 index 的分组编号
func GroupIndex(index, capacity int64) int64 {
	return FloorDiv(index, capacity)
}

// DistinctGroups 保证两个分组编号不同, 相同时把上界分组 +1
func DistinctGroups(lower, upper int64) (int64, int64) {
	if lower == upper {
		return lower, upper + 1
	}
	return lower, upper
}

// BinBase is the per-bin price ratio of a bin based pool.
func BinBase(binStep uint16) float64 {
	return 1 + float64(binStep)/10000
}

// PriceToIndex 把价格比率映射到最近的 index: round(ln p / ln base), 0.5 远离零取整
func PriceToIndex(price, base float64) (int32, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, pkg.InputError("price", "must be a positive finite number, got %v", price)
	}
	if base <= 1 {
		return 0, pkg.InputError("price", "base %v must be greater than 1", base)
	}
	idx := math.Round(math.Log(price) / math.Log(base))
	if idx > math.MaxInt32 || idx < math.MinInt32 {
		return 0, pkg.InputError("price", "%v is out of index range", price)
	}
	return int32(idx), nil
}

// IndexToPrice is the inverse of PriceToIndex.
func IndexToPrice(index int32, base float64) float64 {
	return math.Pow(base, float64(index))
}

// CheckAlignment 检查 index 是否为 granularity 的整数倍
func CheckAlignment(name string, index int32, granularity uint16) error {
	if granularity == 0 {
		return pkg.InputError(name, "pool granularity is zero")
	}
	if int64(index)%int64(granularity) != 0 {
		return pkg.InputError(name, "%d is not a multiple of %d", index, granularity)
	}
	return nil
}

// SnapDown aligns index to the nearest multiple of granularity at or below it.
func SnapDown(index int32, granularity uint16) int32 {
	return int32(GroupStart(int64(index), int64(granularity)))
}

// SnapUp aligns index to the nearest multiple of granularity at or above it.
func SnapUp(index int32, granularity uint16) int32 {
	down := SnapDown(index, granularity)
	if down == index {
		return index
	}
	return down + int32(granularity)
}

// CheckRange 校验一个已对齐的区间
func CheckRange(lower, upper int32, granularity uint16, minIndex, maxIndex int32) error {
	if lower >= upper {
		return pkg.InputError("range", "lower %d must be below upper %d", lower, upper)
	}
	if lower < minIndex || upper > maxIndex {
		return pkg.InputError("range", "[%d, %d] is outside [%d, %d]", lower, upper, minIndex, maxIndex)
	}
	if err := CheckAlignment("lower", lower, granularity); err != nil {
		return err
	}
	return CheckAlignment("upper", upper, granularity)
}

// IsGroupInitialized 读取分组位图, 位图覆盖 [-len*32, len*32) 的分组编号.
// known 为 false 表示分组超出位图范围.
func IsGroupInitialized(bitmap []uint64, group int64) (initialized, known bool) {
	half := int64(len(bitmap)) * 32
	bit := group + half
	if bit < 0 || bit >= 2*half {
		return false, false
	}
	return bitmap[bit/64]>>(uint(bit)%64)&1 == 1, true
}

// InitializedGroups 从 current 开始沿 step 方向 (+1 / -1) 收集最多 count 个已初始化的分组.
// 遇到位图边界即停止; current 本身在位图之外时只返回 current.
func InitializedGroups(bitmap []uint64, current int64, step int64, count int) []int64 {
	if step != 1 && step != -1 {
		panic(fmt.Sprintf("rangemath: step must be 1 or -1, got %d", step))
	}
	groups := make([]int64, 0, count)
	for g := current; len(groups) < count; g += step {
		initialized, known := IsGroupInitialized(bitmap, g)
		if !known {
			if len(groups) == 0 && g == current {
				groups = append(groups, g)
			}
			break
		}
		if initialized {
			groups = append(groups, g)
		}
	}
	return groups
}
