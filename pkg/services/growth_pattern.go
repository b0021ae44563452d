package services

import (
	"hourly-forecast-api/pkg/models"
)

const (
	// DefaultGrowthWindowDays 増分パターンを集計する直近日数
	DefaultGrowthWindowDays = 5

	recentIncrementCount = 3
	trendChangeThreshold = 0.15
)

// fallbackGrowthSample is used when no increment could be collected for an hour.
// The constants are fixed and do not depend on the data.
var fallbackGrowthSample = models.GrowthSample{
	Average:        20,
	Median:         20,
	Min:            15,
	Max:            30,
	SampleCount:    0,
	TrendDirection: models.TrendStable,
}

// GrowthPatternAnalyzer 時間帯ごとの増分分布を算出
type GrowthPatternAnalyzer struct {
	windowDays int
}

// NewGrowthPatternAnalyzer 新しい増分パターン分析を作成（windowDays <= 0 はデフォルト）
func NewGrowthPatternAnalyzer(windowDays int) *GrowthPatternAnalyzer {
	if windowDays <= 0 {
		windowDays = DefaultGrowthWindowDays
	}
	return &GrowthPatternAnalyzer{windowDays: windowDays}
}

// Analyze history（予測対象日より前、古い順）の直近 windowDays 日から
// hour-1 → hour の増分を集計する
func (a *GrowthPatternAnalyzer) Analyze(history []models.DailyRecord, hour int) models.GrowthSample {
	if hour < 1 || hour >= models.HoursPerDay {
		return fallbackGrowthSample
	}

	increments := a.collectIncrements(history, hour)
	if len(increments) == 0 {
		return fallbackGrowthSample
	}

	minVal, maxVal := calculateMinMax(increments)
	return models.GrowthSample{
		Average:        calculateMean(increments),
		Median:         calculateLowerMedian(increments),
		Min:            minVal,
		Max:            maxVal,
		SampleCount:    len(increments),
		TrendDirection: incrementTrend(increments),
	}
}

// collectIncrements 古い順に増分を返す。減少・横ばい・欠損のペアは除外
func (a *GrowthPatternAnalyzer) collectIncrements(history []models.DailyRecord, hour int) []float64 {
	window := history
	if len(window) > a.windowDays {
		window = window[len(window)-a.windowDays:]
	}

	var increments []float64
	for _, r := range window {
		prev, okPrev := r.Hours.Value(hour - 1)
		curr, okCurr := r.Hours.Value(hour)
		if okPrev && okCurr && curr > prev {
			increments = append(increments, curr-prev)
		}
	}
	return increments
}

// incrementTrend 直近3件の平均と残りの平均を比較（±15%）
func incrementTrend(increments []float64) models.TrendDirection {
	if len(increments) <= recentIncrementCount {
		return models.TrendStable
	}

	split := len(increments) - recentIncrementCount
	olderMean := calculateMean(increments[:split])
	recentMean := calculateMean(increments[split:])
	if olderMean <= 0 {
		return models.TrendStable
	}

	change := (recentMean - olderMean) / olderMean
	switch {
	case change > trendChangeThreshold:
		return models.TrendIncreasing
	case change < -trendChangeThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}
