package services

import (
	"hourly-forecast-api/pkg/models"
)

const (
	// DefaultStatsWindowDays 集計対象とする直前の日数
	DefaultStatsWindowDays = 3

	lastHour = models.HoursPerDay - 1
)

// DateRange 範囲モードで使う期間（両端含む）
type DateRange struct {
	From string
	To   string
}

// StatsAggregator 履歴と予測からサマリー指標を算出
type StatsAggregator struct {
	predictor  *Predictor
	windowDays int
}

// NewStatsAggregator 新しい集計器を作成
func NewStatsAggregator(predictor *Predictor, windowDays int) *StatsAggregator {
	if predictor == nil {
		predictor = NewPredictor(nil, nil, DefaultCeilingWindowDays)
	}
	if windowDays <= 0 {
		windowDays = DefaultStatsWindowDays
	}
	return &StatsAggregator{predictor: predictor, windowDays: windowDays}
}

// Summarize target 日のサマリーを計算する。
// window が nil なら target の直前 windowDays 日、指定があればその期間の全日を集計対象にする。
// currentHour は呼び出し側の壁時計の時刻（0〜23）
func (a *StatsAggregator) Summarize(store *HistoryStore, target models.DailyRecord, window *DateRange, currentHour int) models.StatsSummary {
	days := a.selectWindow(store, target, window)

	summary := models.StatsSummary{
		TodayTotal: EndOfDayTotal(target),
		AvgDaily:   averageDailyTotal(days),
		AvgHourly:  averageHourlyIncrement(days),
	}
	if prev, ok := store.Previous(target.Date); ok {
		summary.YesterdayLast = EndOfDayTotal(prev)
	}
	summary.TodayEstimated = a.estimateEndOfDay(store, target, summary, currentHour)

	return summary
}

func (a *StatsAggregator) selectWindow(store *HistoryStore, target models.DailyRecord, window *DateRange) []models.DailyRecord {
	if window != nil {
		return store.Range(window.From, window.To)
	}
	return store.LastN(target.Date, a.windowDays)
}

// estimateEndOfDay 23時以降は当日合計、観測なしなら日次平均、それ以外は予測の23時値
func (a *StatsAggregator) estimateEndOfDay(store *HistoryStore, target models.DailyRecord, summary models.StatsSummary, currentHour int) float64 {
	if currentHour >= lastHour {
		return summary.TodayTotal
	}
	if LastObservedHour(target) < 0 && summary.TodayTotal == 0 {
		return summary.AvgDaily
	}

	forecast := a.predictor.Predict(store, target)
	if len(forecast.Values) == models.HoursPerDay {
		if v := forecast.Values[lastHour]; isFinite(v) && v >= summary.TodayTotal {
			return v
		}
	}

	remaining := lastHour - currentHour
	if remaining < 0 {
		remaining = 0
	}
	return summary.TodayTotal + summary.AvgHourly*float64(remaining)
}

// averageDailyTotal 正の日次合計の平均
func averageDailyTotal(days []models.DailyRecord) float64 {
	var totals []float64
	for _, d := range days {
		if total := EndOfDayTotal(d); total > 0 {
			totals = append(totals, total)
		}
	}
	return calculateMean(totals)
}

// averageHourlyIncrement 全日・全時間の正の増分の平均
func averageHourlyIncrement(days []models.DailyRecord) float64 {
	var increments []float64
	for _, d := range days {
		for h := 1; h < models.HoursPerDay; h++ {
			prev, okPrev := d.Hours.Value(h - 1)
			curr, okCurr := d.Hours.Value(h)
			if okPrev && okCurr && curr > prev {
				increments = append(increments, curr-prev)
			}
		}
	}
	return calculateMean(increments)
}
