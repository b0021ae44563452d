package services

import (
	"errors"
	"math"
	"testing"

	"hourly-forecast-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearHistory(dates ...string) *HistoryStore {
	var records []models.DailyRecord
	for _, d := range dates {
		records = append(records, linearDay(d, 100, 20))
	}
	return NewHistoryStore(records)
}

func TestBacktestScoresHiddenHours(t *testing.T) {
	store := linearHistory("2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04")

	result, err := NewBacktester(nil).Run(store, "2024-05-04", 18)

	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "2024-05-04", result.Date)
	assert.Equal(t, 18, result.CutoffHour)
	assert.True(t, result.Sufficient)
	assert.Equal(t, 5, result.ScoredHours)
	require.Len(t, result.Hours, 5)
	assert.Equal(t, 20, result.Hours[1].Hour)
	assert.Equal(t, 500.0, result.Hours[1].Actual)
	assert.GreaterOrEqual(t, result.MeanError, 0.0)
	assert.Less(t, result.MeanError, 0.1)
}

func TestBacktestRejectsInvalidInput(t *testing.T) {
	store := linearHistory("2024-05-01")
	backtester := NewBacktester(nil)

	for _, cutoff := range []int{-1, 23, 30} {
		_, err := backtester.Run(store, "2024-05-01", cutoff)
		assert.True(t, errors.Is(err, ErrInvalidCutoff), "cutoff %d", cutoff)
	}

	_, err := backtester.Run(store, "2024-06-01", 12)
	assert.True(t, errors.Is(err, ErrRecordNotFound))
}

func TestBacktestSparseDayIsInsufficient(t *testing.T) {
	store := NewHistoryStore([]models.DailyRecord{
		partialDay("2024-05-01", map[int]float64{0: 10, 6: 80, 12: 150}),
	})

	result, err := NewBacktester(nil).Run(store, "2024-05-01", 18)

	require.NoError(t, err)
	assert.False(t, result.Sufficient)
	assert.Equal(t, 1.0, result.MeanError)
	assert.Equal(t, 0, result.ScoredHours)
	assert.Empty(t, result.Hours)
}

func TestBacktestDoesNotMutateStore(t *testing.T) {
	store := linearHistory("2024-05-01", "2024-05-02")

	_, err := NewBacktester(nil).Run(store, "2024-05-02", 6)
	require.NoError(t, err)

	r, ok := store.Find("2024-05-02")
	require.True(t, ok)
	assert.Equal(t, 23, LastObservedHour(r))
}

func TestHideAfter(t *testing.T) {
	r := linearDay("2024-05-01", 100, 20)
	r.Total = models.Count(560)

	partial := hideAfter(r, 6)

	assert.Nil(t, partial.Total)
	assert.Equal(t, 6, LastObservedHour(partial))
	assert.NotNil(t, r.Hours[23])
}

func TestEvaluateHistory(t *testing.T) {
	records := linearHistory("2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04").Records()
	records = append(records, partialDay("2024-05-05", map[int]float64{0: 100, 10: 300}))
	store := NewHistoryStore(records)

	summary := NewBacktester(nil).EvaluateHistory(store, []int{6, 12})

	require.Len(t, summary.Cutoffs, 2)
	for _, score := range summary.Cutoffs {
		assert.Equal(t, 4, score.DaysEvaluated, "cutoff %d", score.CutoffHour)
		assert.Equal(t, 0, score.DaysSkipped)
		assert.Less(t, score.MeanError, 1.0)
	}
	assert.True(t, summary.Sufficient)
	assert.Less(t, summary.OverallMeanError, 1.0)
}

func TestEvaluateHistoryEmpty(t *testing.T) {
	summary := NewBacktester(nil).EvaluateHistory(NewHistoryStore(nil), nil)

	require.Len(t, summary.Cutoffs, len(DefaultBacktestCutoffs))
	assert.False(t, summary.Sufficient)
	assert.Equal(t, 1.0, summary.OverallMeanError)
	for _, score := range summary.Cutoffs {
		assert.Equal(t, 1.0, score.MeanError)
	}
}

func TestBacktestSingleDayUsesFallbackSamples(t *testing.T) {
	// 過去日がないので増分は既定値（中央値20）で予測される
	store := linearHistory("2024-05-01")

	result, err := NewBacktester(nil).Run(store, "2024-05-01", 18)

	require.NoError(t, err)
	assert.True(t, result.Sufficient)
	require.Len(t, result.Hours, 5)

	hour20 := result.Hours[1]
	assert.Equal(t, 20, hour20.Hour)
	assert.Equal(t, 500.0, hour20.Actual)
	assert.Greater(t, hour20.Predicted, 460.0)
	assert.False(t, math.IsNaN(hour20.Error) || math.IsInf(hour20.Error, 0))
	assert.GreaterOrEqual(t, hour20.Error, 0.0)
	assert.InDelta(t, math.Abs(hour20.Predicted-500)/500, hour20.Error, 1e-12)
}
