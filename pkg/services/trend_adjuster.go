package services

import (
	"math"

	"hourly-forecast-api/pkg/models"
)

const (
	minProgressRatio = 0.5
	maxProgressRatio = 2.0
	minVelocity      = 0.7
	maxVelocity      = 1.5
	minTrendFactor   = 0.8
	maxTrendFactor   = 1.3

	velocityPairs = 3
)

// TrendSignals 当日の進捗に関する指標（予測対象日ごとに1回算出）
type TrendSignals struct {
	ProgressRatio  float64 `json:"progress_ratio"`
	VelocityFactor float64 `json:"velocity_factor"`
}

// TrendAdjuster 当日の推移と過去の平均を比べて補正係数を算出
type TrendAdjuster struct{}

// NewTrendAdjuster 新しいトレンド補正を作成
func NewTrendAdjuster() *TrendAdjuster {
	return &TrendAdjuster{}
}

// Signals 進捗比率と速度係数を計算
func (t *TrendAdjuster) Signals(history []models.DailyRecord, target models.DailyRecord, lastObservedHour int) TrendSignals {
	return TrendSignals{
		ProgressRatio:  t.progressRatio(history, target, lastObservedHour),
		VelocityFactor: t.velocityFactor(target, lastObservedHour),
	}
}

// Factor 指定時間の補正係数（0.8〜1.3）
func (t *TrendAdjuster) Factor(signals TrendSignals, direction models.TrendDirection) float64 {
	factor := 1.0

	switch {
	case signals.ProgressRatio > 1.2:
		factor *= 1.15
	case signals.ProgressRatio < 0.8:
		factor *= 0.9
	}

	factor *= signals.VelocityFactor

	switch direction {
	case models.TrendIncreasing:
		factor *= 1.1
	case models.TrendDecreasing:
		factor *= 0.95
	}

	return clamp(factor, minTrendFactor, maxTrendFactor)
}

// progressRatio 最終観測時刻の値 / 同時刻の過去平均
func (t *TrendAdjuster) progressRatio(history []models.DailyRecord, target models.DailyRecord, lastObservedHour int) float64 {
	current, ok := target.Hours.Value(lastObservedHour)
	if !ok {
		return 1.0
	}
	avg, ok := historicalHourAverage(history, lastObservedHour)
	if !ok || avg <= 0 {
		return 1.0
	}
	return clamp(current/avg, minProgressRatio, maxProgressRatio)
}

// velocityFactor 直近 min(3, lastObservedHour) ペアの平均成長率 + 1
func (t *TrendAdjuster) velocityFactor(target models.DailyRecord, lastObservedHour int) float64 {
	pairs := int(math.Min(velocityPairs, float64(lastObservedHour)))
	if pairs <= 0 {
		return 1.0
	}

	var rates []float64
	for h := lastObservedHour - pairs + 1; h <= lastObservedHour; h++ {
		prev, okPrev := target.Hours.Value(h - 1)
		curr, okCurr := target.Hours.Value(h)
		if okPrev && okCurr && prev > 0 && curr > prev {
			rates = append(rates, (curr-prev)/prev)
		}
	}
	if len(rates) == 0 {
		return 1.0
	}
	return clamp(calculateMean(rates)+1, minVelocity, maxVelocity)
}
