package services

import (
	"fmt"
	"math"

	"hourly-forecast-api/pkg/models"

	"github.com/google/uuid"
)

// insufficientScore データ不足で評価できなかった場合のスコア（誤差100%扱い）
const insufficientScore = 1.0

// DefaultBacktestCutoffs 履歴全体の自己検証で使うカットオフ時刻
var DefaultBacktestCutoffs = []int{6, 12, 18}

// Backtester 過去日の後半を隠して予測し、精度を採点する。
// オフライン検証専用で、通常の予測処理からは呼ばない
type Backtester struct {
	predictor *Predictor
}

// NewBacktester 新しいバックテスターを作成
func NewBacktester(predictor *Predictor) *Backtester {
	if predictor == nil {
		predictor = NewPredictor(nil, nil, DefaultCeilingWindowDays)
	}
	return &Backtester{predictor: predictor}
}

// Run date の cutoff 時より後を隠して予測し、隠した時間ごとの相対誤差を返す
func (b *Backtester) Run(store *HistoryStore, date string, cutoff int) (models.BacktestResult, error) {
	if cutoff < 0 || cutoff >= lastHour {
		return models.BacktestResult{}, fmt.Errorf("cutoff=%d: %w", cutoff, ErrInvalidCutoff)
	}
	actual, ok := store.Find(date)
	if !ok {
		return models.BacktestResult{}, fmt.Errorf("date=%s: %w", date, ErrRecordNotFound)
	}

	forecast := b.predictor.Predict(store, hideAfter(actual, cutoff))

	result := models.BacktestResult{
		RunID:      uuid.NewString(),
		Date:       actual.Date,
		CutoffHour: cutoff,
		Hours:      make([]models.BacktestHourError, 0, lastHour-cutoff),
	}

	var errs []float64
	for h := cutoff + 1; h < models.HoursPerDay; h++ {
		want, ok := actual.Hours.Value(h)
		if !ok || want == 0 {
			continue
		}
		got := forecast.Values[h]
		e := math.Abs(got-want) / want
		if !isFinite(e) {
			continue
		}
		errs = append(errs, e)
		result.Hours = append(result.Hours, models.BacktestHourError{
			Hour:      h,
			Actual:    want,
			Predicted: got,
			Error:     e,
		})
	}

	result.ScoredHours = len(errs)
	if len(errs) == 0 {
		result.MeanError = insufficientScore
		return result, nil
	}
	result.MeanError = calculateMean(errs)
	result.Sufficient = true
	return result, nil
}

// EvaluateHistory 全時間が観測済みの日をすべて cutoffs ごとに再生して平均誤差を集計
func (b *Backtester) EvaluateHistory(store *HistoryStore, cutoffs []int) models.BacktestSummary {
	if len(cutoffs) == 0 {
		cutoffs = DefaultBacktestCutoffs
	}

	summary := models.BacktestSummary{Cutoffs: make([]models.CutoffScore, 0, len(cutoffs))}
	var overall []float64

	for _, cutoff := range cutoffs {
		score := models.CutoffScore{CutoffHour: cutoff, MeanError: insufficientScore}
		var errs []float64

		for _, r := range store.Records() {
			if LastObservedHour(r) != lastHour {
				continue
			}
			res, err := b.Run(store, r.Date, cutoff)
			if err != nil || !res.Sufficient {
				score.DaysSkipped++
				continue
			}
			errs = append(errs, res.MeanError)
		}

		score.DaysEvaluated = len(errs)
		if len(errs) > 0 {
			score.MeanError = calculateMean(errs)
			overall = append(overall, score.MeanError)
		}
		summary.Cutoffs = append(summary.Cutoffs, score)
	}

	summary.OverallMeanError = insufficientScore
	if len(overall) > 0 {
		summary.OverallMeanError = calculateMean(overall)
		summary.Sufficient = true
	}
	return summary
}

// hideAfter cutoff より後の時間と自己申告の合計を隠したコピー
func hideAfter(r models.DailyRecord, cutoff int) models.DailyRecord {
	partial := r
	partial.Total = nil
	for h := cutoff + 1; h < models.HoursPerDay; h++ {
		partial.Hours[h] = nil
	}
	return partial
}
