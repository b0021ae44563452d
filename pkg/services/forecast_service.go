package services

import (
	"fmt"
	"log"
	"time"

	"hourly-forecast-api/internal/metrics"
	"hourly-forecast-api/pkg/models"
)

// ForecastOptions 予測サービスの設定
type ForecastOptions struct {
	GrowthWindowDays  int
	StatsWindowDays   int
	CeilingWindowDays int
	Location          *time.Location
	Clock             func() time.Time
}

// ForecastService 履歴スナップショットに対して予測・集計・バックテストを実行する
type ForecastService struct {
	history    *HistoryService
	predictor  *Predictor
	aggregator *StatsAggregator
	backtester *Backtester
	location   *time.Location
	now        func() time.Time
}

// NewForecastService 新しい予測サービスを作成
func NewForecastService(history *HistoryService, opts ForecastOptions) *ForecastService {
	predictor := NewPredictor(
		NewGrowthPatternAnalyzer(opts.GrowthWindowDays),
		NewTrendAdjuster(),
		opts.CeilingWindowDays,
	)

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &ForecastService{
		history:    history,
		predictor:  predictor,
		aggregator: NewStatsAggregator(predictor, opts.StatsWindowDays),
		backtester: NewBacktester(predictor),
		location:   loc,
		now:        clock,
	}
}

// Forecast 指定日の24時間予測。date が空なら最新日。履歴にない日は観測なしとして予測する
func (s *ForecastService) Forecast(date string) (models.ForecastResult, error) {
	store := s.history.Snapshot()
	target, err := s.resolveTarget(store, date)
	if err != nil {
		return models.ForecastResult{}, err
	}

	timer := metrics.StartForecastTimer("forecast")
	result := s.predictor.Predict(store, target)
	timer.ObserveDuration()

	predicted := 0
	for _, p := range result.IsPredicted {
		if p {
			predicted++
		}
	}
	metrics.ForecastsTotal.WithLabelValues(forecastKind(result)).Inc()
	metrics.PredictedHoursTotal.Add(float64(predicted))

	return result, nil
}

// Stats 指定日のサマリー。from/to が両方指定されていれば範囲モード
func (s *ForecastService) Stats(date, from, to string) (models.StatsSummary, error) {
	store := s.history.Snapshot()
	target, err := s.resolveTarget(store, date)
	if err != nil {
		return models.StatsSummary{}, err
	}

	window, err := parseRange(from, to)
	if err != nil {
		return models.StatsSummary{}, err
	}

	timer := metrics.StartForecastTimer("stats")
	summary := s.aggregator.Summarize(store, target, window, s.currentHourFor(target.Date))
	timer.ObserveDuration()

	return summary, nil
}

// Backtest 1日・1カットオフのバックテスト
func (s *ForecastService) Backtest(date string, cutoff int) (models.BacktestResult, error) {
	normalized, ok := NormalizeDate(date)
	if !ok {
		return models.BacktestResult{}, ErrInvalidDate
	}

	result, err := s.backtester.Run(s.history.Snapshot(), normalized, cutoff)
	if err != nil {
		return models.BacktestResult{}, err
	}
	metrics.BacktestMeanError.WithLabelValues(fmt.Sprint(cutoff)).Set(result.MeanError)
	return result, nil
}

// BacktestSummary 履歴全体の自己検証
func (s *ForecastService) BacktestSummary(cutoffs []int) (models.BacktestSummary, error) {
	for _, c := range cutoffs {
		if c < 0 || c >= lastHour {
			return models.BacktestSummary{}, fmt.Errorf("cutoff=%d: %w", c, ErrInvalidCutoff)
		}
	}

	store := s.history.Snapshot()
	if store.Len() == 0 {
		return models.BacktestSummary{}, ErrEmptyHistory
	}

	summary := s.backtester.EvaluateHistory(store, cutoffs)
	for _, c := range summary.Cutoffs {
		metrics.BacktestMeanError.WithLabelValues(fmt.Sprint(c.CutoffHour)).Set(c.MeanError)
	}
	log.Printf("🧪 [バックテスト] 全体平均誤差: %.3f（%d種類のカットオフ）", summary.OverallMeanError, len(summary.Cutoffs))
	return summary, nil
}

// resolveTarget 対象日のレコード。履歴にない日付は空のレコードを返す
func (s *ForecastService) resolveTarget(store *HistoryStore, date string) (models.DailyRecord, error) {
	if date == "" {
		latest, ok := store.Latest()
		if !ok {
			return models.DailyRecord{}, ErrEmptyHistory
		}
		return latest, nil
	}

	normalized, ok := NormalizeDate(date)
	if !ok {
		return models.DailyRecord{}, ErrInvalidDate
	}
	if r, ok := store.Find(normalized); ok {
		return r, nil
	}
	return models.DailyRecord{Date: normalized}, nil
}

// currentHourFor 対象日が今日なら現在時刻、過去日は23（確定済み）、未来日は0
func (s *ForecastService) currentHourFor(date string) int {
	now := s.now().In(s.location)
	today := now.Format(dateLayout)
	switch {
	case date < today:
		return lastHour
	case date > today:
		return 0
	default:
		return now.Hour()
	}
}

func parseRange(from, to string) (*DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	f, okFrom := NormalizeDate(from)
	t, okTo := NormalizeDate(to)
	if !okFrom || !okTo {
		return nil, ErrInvalidDate
	}
	if f > t {
		return nil, ErrInvalidDateRange
	}
	return &DateRange{From: f, To: t}, nil
}

func forecastKind(r models.ForecastResult) string {
	switch {
	case r.LastObservedHour == lastHour:
		return "complete"
	case r.LastObservedHour < 0:
		return "seeded"
	default:
		return "partial"
	}
}
