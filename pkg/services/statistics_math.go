package services

import (
	"math"
	"sort"
)

// calculateMean パッケージ内部用のヘルパー関数：平均値を計算
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateLowerMedian 中央値（偶数件のときは中央2つのうち小さい方）
func calculateLowerMedian(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[(len(sorted)-1)/2]
}

// calculateMinMax 最小値と最大値
func calculateMinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

// clamp v を [lo, hi] に収める。lo > hi のときは hi を優先
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
