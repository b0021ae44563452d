package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// HoursPerDay 1日あたりの時間スロット数
const HoursPerDay = 24

// HourlySeries 1日分の累積カウント（0〜23時）。nil は「未報告」を表す
type HourlySeries [HoursPerDay]*float64

// Count 値からスロット用のポインタを作成
func Count(v float64) *float64 {
	return &v
}

// Value 指定時間の報告値を返す。未報告・負数・非有限値は報告なしとして扱う
func (s HourlySeries) Value(hour int) (float64, bool) {
	if hour < 0 || hour >= HoursPerDay || s[hour] == nil {
		return 0, false
	}
	v := *s[hour]
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// UnmarshalJSON accepts numbers, numeric strings and null. Any other value
// (or a short array) leaves the slot unreported instead of failing.
func (s *HourlySeries) UnmarshalJSON(data []byte) error {
	*s = HourlySeries{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("hours は配列である必要があります: %w", err)
	}

	for i, item := range raw {
		if i >= HoursPerDay {
			break
		}
		s[i] = parseSlot(item)
	}
	return nil
}

func parseSlot(item json.RawMessage) *float64 {
	if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
		return nil
	}

	var num float64
	if err := json.Unmarshal(item, &num); err == nil {
		if num < 0 {
			return nil
		}
		return Count(num)
	}

	var str string
	if err := json.Unmarshal(item, &str); err != nil {
		return nil
	}
	str = strings.ReplaceAll(strings.TrimSpace(str), ",", "")
	v, err := strconv.ParseFloat(str, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return Count(v)
}

// DailyRecord 1日分の時間別累積カウント
type DailyRecord struct {
	Date      string       `json:"date"`                  // YYYY-MM-DD
	DayOfWeek string       `json:"day_of_week,omitempty"` // 任意
	Total     *float64     `json:"total,omitempty"`       // 自己申告の日次合計（古い場合あり）
	Hours     HourlySeries `json:"hours"`
}

// TrendDirection 直近の増分傾向
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// GrowthSample 特定時間帯の時間増分の集計
type GrowthSample struct {
	Average        float64        `json:"average"`
	Median         float64        `json:"median"`
	Min            float64        `json:"min"`
	Max            float64        `json:"max"`
	SampleCount    int            `json:"sample_count"`
	TrendDirection TrendDirection `json:"trend_direction"`
}

// ForecastResult 24時間分の予測結果
type ForecastResult struct {
	Date             string    `json:"date"`
	Values           []float64 `json:"values"`
	IsPredicted      []bool    `json:"is_predicted"`
	LastObservedHour int       `json:"last_observed_hour"` // -1 = 観測なし
}

// StatsSummary 描画層に渡すサマリー指標
type StatsSummary struct {
	TodayTotal     float64 `json:"today_total"`
	YesterdayLast  float64 `json:"yesterday_last"`
	AvgDaily       float64 `json:"avg_daily"`
	AvgHourly      float64 `json:"avg_hourly"`
	TodayEstimated float64 `json:"today_estimated"`
}

// BacktestHourError 隠した1時間分の評価
type BacktestHourError struct {
	Hour      int     `json:"hour"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
	Error     float64 `json:"error"` // |predicted-actual|/actual
}

// BacktestResult 1日・1カットオフのバックテスト結果
type BacktestResult struct {
	RunID       string              `json:"run_id"`
	Date        string              `json:"date"`
	CutoffHour  int                 `json:"cutoff_hour"`
	Hours       []BacktestHourError `json:"hours"`
	MeanError   float64             `json:"mean_error"`
	ScoredHours int                 `json:"scored_hours"`
	Sufficient  bool                `json:"sufficient"` // false = データ不足で評価できず
}

// CutoffScore カットオフ時刻ごとの集計スコア
type CutoffScore struct {
	CutoffHour    int     `json:"cutoff_hour"`
	DaysEvaluated int     `json:"days_evaluated"`
	DaysSkipped   int     `json:"days_skipped"`
	MeanError     float64 `json:"mean_error"`
}

// BacktestSummary 履歴全体のバックテスト集計
type BacktestSummary struct {
	Cutoffs          []CutoffScore `json:"cutoffs"`
	OverallMeanError float64       `json:"overall_mean_error"`
	Sufficient       bool          `json:"sufficient"`
}

// BacktestRequest バックテストのリクエスト
type BacktestRequest struct {
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
	CutoffHour *int   `json:"cutoff_hour" binding:"required"`
}

// HistoryReplaceRequest 履歴の一括置き換えリクエスト
type HistoryReplaceRequest struct {
	Records []DailyRecord `json:"records" binding:"required"`
}

// HistoryImportSummary 取り込み結果
type HistoryImportSummary struct {
	FileName        string `json:"file_name,omitempty"`
	RowsRead        int    `json:"rows_read"`
	RecordsImported int    `json:"records_imported"`
	RowsSkipped     int    `json:"rows_skipped"`
	Duplicates      int    `json:"duplicates"`
	FirstDate       string `json:"first_date,omitempty"`
	LastDate        string `json:"last_date,omitempty"`
}
