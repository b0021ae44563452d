package services

import (
	"math"

	"hourly-forecast-api/pkg/models"
)

const (
	// DefaultCeilingWindowDays 日次上限の算出に使う直近日数
	DefaultCeilingWindowDays = 7

	ceilingMultiplier   = 1.1
	ceilingMinIncrement = 10.0
	minIncrementFloor   = 5.0
)

// Predictor 当日の途中までの累積値を24時間分に延長する
//
// 処理は OBSERVING（観測済みの時間をそのまま写す）→ FORECASTING（1時間ずつ
// 直前の値に増分を積み上げる）→ DONE の順に進む。各時間の予測は直前の時間の
// 出力に依存するため、必ず順番に計算する。
type Predictor struct {
	growth            *GrowthPatternAnalyzer
	trend             *TrendAdjuster
	ceilingWindowDays int
}

// NewPredictor 新しい予測器を作成
func NewPredictor(growth *GrowthPatternAnalyzer, trend *TrendAdjuster, ceilingWindowDays int) *Predictor {
	if growth == nil {
		growth = NewGrowthPatternAnalyzer(DefaultGrowthWindowDays)
	}
	if trend == nil {
		trend = NewTrendAdjuster()
	}
	if ceilingWindowDays <= 0 {
		ceilingWindowDays = DefaultCeilingWindowDays
	}
	return &Predictor{
		growth:            growth,
		trend:             trend,
		ceilingWindowDays: ceilingWindowDays,
	}
}

// Predict target 日の予測を返す。store からは target より前の日だけを参照する。
// エラーは返さず、統計が取れない場合は既定値で補う
func (p *Predictor) Predict(store *HistoryStore, target models.DailyRecord) models.ForecastResult {
	history := store.Before(target.Date)
	lastObserved := LastObservedHour(target)

	result := models.ForecastResult{
		Date:             target.Date,
		Values:           make([]float64, models.HoursPerDay),
		IsPredicted:      make([]bool, models.HoursPerDay),
		LastObservedHour: lastObserved,
	}

	// OBSERVING: 報告値をそのまま写す。途中の欠損は直前の値で埋める
	previous := 0.0
	for h := 0; h <= lastObserved; h++ {
		if v, ok := target.Hours.Value(h); ok {
			previous = v
		}
		result.Values[h] = previous
	}
	if lastObserved == models.HoursPerDay-1 {
		return result
	}

	start := lastObserved + 1
	if lastObserved < 0 {
		// 観測なし: 0時は過去の0時平均（なければ0）を種にする
		seed, _ := historicalHourAverage(history, 0)
		result.Values[0] = seed
		result.IsPredicted[0] = true
		previous = seed
		start = 1
	}

	// FORECASTING
	signals := p.trend.Signals(history, target, lastObserved)
	ceiling, hasCeiling := p.dailyCeiling(history)

	for h := start; h < models.HoursPerDay; h++ {
		sample := p.growth.Analyze(history, h)
		factor := p.trend.Factor(signals, sample.TrendDirection)

		predicted := previous + boundedIncrement(sample.Median*factor, sample)
		if hasCeiling && predicted > ceiling {
			predicted = math.Max(previous+ceilingMinIncrement, ceiling)
		}

		result.Values[h] = predicted
		result.IsPredicted[h] = true
		previous = predicted
	}

	return result
}

// boundedIncrement clamps to [max(5, 0.8*min), min(1.2*max, 2*avg)]; the upper bound wins on overlap.
func boundedIncrement(raw float64, sample models.GrowthSample) float64 {
	lo := math.Max(minIncrementFloor, 0.8*sample.Min)
	hi := math.Min(1.2*sample.Max, 2*sample.Average)
	if !isFinite(raw) {
		raw = sample.Median
	}
	return clamp(raw, lo, hi)
}

// dailyCeiling 直近 ceilingWindowDays 日の日次合計平均 × 1.1
func (p *Predictor) dailyCeiling(history []models.DailyRecord) (float64, bool) {
	window := history
	if len(window) > p.ceilingWindowDays {
		window = window[len(window)-p.ceilingWindowDays:]
	}

	var totals []float64
	for _, r := range window {
		if total := EndOfDayTotal(r); total > 0 {
			totals = append(totals, total)
		}
	}
	if len(totals) == 0 {
		return 0, false
	}
	return ceilingMultiplier * calculateMean(totals), true
}
