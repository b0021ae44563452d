package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"hourly-forecast-api/pkg/models"
)

const dateLayout = "2006-01-02"

var (
	ErrEmptyHistory     = errors.New("履歴データがありません")
	ErrRecordNotFound   = errors.New("指定日のレコードが見つかりません")
	ErrInvalidDate      = errors.New("日付の形式が不正です（YYYY-MM-DD）")
	ErrInvalidDateRange = errors.New("期間の指定が不正です（from <= to）")
	ErrInvalidCutoff    = errors.New("カットオフ時刻は0〜22で指定してください")
)

// acceptedDateLayouts 取り込み時に受け付ける日付形式
var acceptedDateLayouts = []string{
	dateLayout,
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"20060102",
	time.RFC3339,
}

// NormalizeDate 任意の日付文字列を YYYY-MM-DD に正規化
func NormalizeDate(s string) (string, bool) {
	t, ok := parseAnyDate(s, acceptedDateLayouts)
	if !ok {
		return "", false
	}
	return t.Format(dateLayout), true
}

// HistoryStore 日付順に並んだ日次レコードのスナップショット。生成後は変更しない
type HistoryStore struct {
	records []models.DailyRecord
}

// NewHistoryStore 日付を正規化し、重複は後勝ちで除去して日付順に並べる
func NewHistoryStore(records []models.DailyRecord) *HistoryStore {
	byDate := make(map[string]models.DailyRecord, len(records))
	for _, r := range records {
		date, ok := NormalizeDate(r.Date)
		if !ok {
			continue
		}
		r.Date = date
		byDate[date] = r
	}

	sorted := make([]models.DailyRecord, 0, len(byDate))
	for _, r := range byDate {
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	return &HistoryStore{records: sorted}
}

// Len レコード数
func (s *HistoryStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records 全レコードのコピー
func (s *HistoryStore) Records() []models.DailyRecord {
	if s == nil {
		return nil
	}
	return cloneRecords(s.records)
}

// Find 指定日のレコード
func (s *HistoryStore) Find(date string) (models.DailyRecord, bool) {
	if s == nil {
		return models.DailyRecord{}, false
	}
	i := s.indexOf(date)
	if i < len(s.records) && s.records[i].Date == date {
		return s.records[i], true
	}
	return models.DailyRecord{}, false
}

// Latest 最新日のレコード
func (s *HistoryStore) Latest() (models.DailyRecord, bool) {
	if s.Len() == 0 {
		return models.DailyRecord{}, false
	}
	return s.records[len(s.records)-1], true
}

// Before 指定日より前の全レコード（古い順）
func (s *HistoryStore) Before(date string) []models.DailyRecord {
	if s == nil {
		return nil
	}
	return cloneRecords(s.records[:s.indexOf(date)])
}

// LastN 指定日より前の直近n日分（古い順）
func (s *HistoryStore) LastN(date string, n int) []models.DailyRecord {
	before := s.Before(date)
	if n <= 0 {
		return nil
	}
	if len(before) > n {
		before = before[len(before)-n:]
	}
	return before
}

// Previous 指定日の直前のレコード
func (s *HistoryStore) Previous(date string) (models.DailyRecord, bool) {
	if s == nil {
		return models.DailyRecord{}, false
	}
	i := s.indexOf(date)
	if i == 0 {
		return models.DailyRecord{}, false
	}
	return s.records[i-1], true
}

// Range from〜to（両端含む）のレコード
func (s *HistoryStore) Range(from, to string) []models.DailyRecord {
	if s == nil || from > to {
		return nil
	}
	var out []models.DailyRecord
	for _, r := range s.records[s.indexOf(from):] {
		if r.Date > to {
			break
		}
		out = append(out, r)
	}
	return out
}

// indexOf 指定日以上となる最初の位置
func (s *HistoryStore) indexOf(date string) int {
	return sort.Search(len(s.records), func(i int) bool { return s.records[i].Date >= date })
}

func cloneRecords(in []models.DailyRecord) []models.DailyRecord {
	out := make([]models.DailyRecord, len(in))
	copy(out, in)
	return out
}

// LastObservedHour 報告済みかつ0より大きい最後の時間。なければ -1
// 0件の時間と未報告を区別しない（既存データとの互換のため）
func LastObservedHour(r models.DailyRecord) int {
	for h := models.HoursPerDay - 1; h >= 0; h-- {
		if v, ok := r.Hours.Value(h); ok && v > 0 {
			return h
		}
	}
	return -1
}

// EndOfDayTotal 23時から遡って最初の正の報告値、なければ total、それもなければ 0
func EndOfDayTotal(r models.DailyRecord) float64 {
	if h := LastObservedHour(r); h >= 0 {
		v, _ := r.Hours.Value(h)
		return v
	}
	if r.Total != nil && *r.Total > 0 {
		return *r.Total
	}
	return 0
}

// historicalHourAverage 各日の指定時間の報告値の平均（未報告日は除外）
func historicalHourAverage(history []models.DailyRecord, hour int) (float64, bool) {
	var values []float64
	for _, r := range history {
		if v, ok := r.Hours.Value(hour); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	return calculateMean(values), true
}

// parseAnyDate tries each layout, then retries on the date part when a time is attached.
func parseAnyDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t), true
		}
	}
	if i := strings.IndexAny(s, " T"); i > 0 {
		part := s[:i]
		for _, layout := range layouts {
			if t, err := time.Parse(layout, part); err == nil {
				return day(t), true
			}
		}
	}
	return time.Time{}, false
}

func day(t time.Time) time.Time { return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC) }
