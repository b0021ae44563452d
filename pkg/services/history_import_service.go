package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hourly-forecast-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("サポートされていないファイル形式です。.xlsxまたは.csvを指定してください")
	ErrNoDateColumn      = errors.New("日付列が見つかりません")
	ErrNoHourColumns     = errors.New("時間列（0〜23）が見つかりません")
)

var (
	dateHeaders  = []string{"date", "日付", "年月日"}
	dayHeaders   = []string{"day_of_week", "dayofweek", "weekday", "day", "曜日"}
	totalHeaders = []string{"total", "合計", "日計", "daily_total"}
)

// HistoryImportService CSV/Excel から日次レコードを読み込む
// 数値は通貨記号・桁区切りを除去して解釈し、解釈できない値は未報告とする
type HistoryImportService struct{}

// NewHistoryImportService 新しい取り込みサービスを作成
func NewHistoryImportService() *HistoryImportService {
	return &HistoryImportService{}
}

// LoadFile ローカルファイルを読み込む（起動時のプリロード用）
func (s *HistoryImportService) LoadFile(path string) ([]models.DailyRecord, models.HistoryImportSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.HistoryImportSummary{}, fmt.Errorf("履歴ファイルを開けません: %w", err)
	}
	defer f.Close()

	return s.Parse(filepath.Base(path), f)
}

// Parse ファイル名の拡張子で形式を判定して読み込む
func (s *HistoryImportService) Parse(fileName string, r io.Reader) ([]models.DailyRecord, models.HistoryImportSummary, error) {
	var rows [][]string
	var err error

	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		rows, err = readExcelRows(r)
	case strings.HasSuffix(lower, ".csv"):
		rows, err = readCSVRows(r)
	default:
		return nil, models.HistoryImportSummary{FileName: fileName}, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, models.HistoryImportSummary{FileName: fileName}, err
	}

	records, summary, err := s.ParseRows(rows)
	summary.FileName = fileName
	return records, summary, err
}

// ParseRows ヘッダー行＋データ行を日次レコードに変換
func (s *HistoryImportService) ParseRows(rows [][]string) ([]models.DailyRecord, models.HistoryImportSummary, error) {
	var summary models.HistoryImportSummary
	if len(rows) < 2 {
		return nil, summary, errors.New("ファイルにはヘッダー行と少なくとも1行のデータが必要です")
	}

	header := normalizeHeader(rows[0])
	dateIdx := findIndex(header, dateHeaders)
	if dateIdx == -1 {
		return nil, summary, fmt.Errorf("%w（ヘッダー: %v）", ErrNoDateColumn, rows[0])
	}
	dayIdx := findIndex(header, dayHeaders)
	totalIdx := findIndex(header, totalHeaders)

	hourIdx := make(map[int]int)
	for i, h := range header {
		if i == dateIdx || i == dayIdx || i == totalIdx {
			continue
		}
		if hour, ok := parseHourHeader(h); ok {
			if _, dup := hourIdx[hour]; !dup {
				hourIdx[hour] = i
			}
		}
	}
	if len(hourIdx) == 0 {
		return nil, summary, fmt.Errorf("%w（ヘッダー: %v）", ErrNoHourColumns, rows[0])
	}

	seen := make(map[string]bool)
	var records []models.DailyRecord
	for _, row := range rows[1:] {
		summary.RowsRead++
		date, ok := NormalizeDate(cell(row, dateIdx))
		if !ok {
			summary.RowsSkipped++
			continue
		}

		rec := models.DailyRecord{
			Date:      date,
			DayOfWeek: cell(row, dayIdx),
			Total:     parseCount(cell(row, totalIdx)),
		}
		for hour, idx := range hourIdx {
			rec.Hours[hour] = parseCount(cell(row, idx))
		}

		if seen[date] {
			summary.Duplicates++
		}
		seen[date] = true
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, summary, errors.New("有効な行がありません")
	}

	records = NewHistoryStore(records).Records()
	summary.RecordsImported = len(records)
	summary.FirstDate = records[0].Date
	summary.LastDate = records[len(records)-1].Date

	log.Printf("📥 [取り込み] %d行読み込み / %d日分取り込み / %d行スキップ / 重複%d件",
		summary.RowsRead, summary.RecordsImported, summary.RowsSkipped, summary.Duplicates)

	return records, summary, nil
}

func readExcelRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("Excelファイルの読み込みに失敗しました: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("Excelシートの行取得に失敗しました: %w", err)
	}
	return rows, nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVファイルの解析に失敗しました: %w", err)
	}
	return rows, nil
}

// parseHourHeader "0", "h7", "hour_7", "7時", "07:00" を時間番号に変換
func parseHourHeader(h string) (int, bool) {
	h = strings.TrimSpace(h)
	h = strings.TrimPrefix(h, "hour_")
	h = strings.TrimPrefix(h, "hour")
	h = strings.TrimPrefix(h, "h")
	h = strings.TrimSuffix(h, "時")
	h = strings.TrimSuffix(h, ":00")
	if h == "" {
		return 0, false
	}
	n, err := strconv.Atoi(h)
	if err != nil || n < 0 || n >= models.HoursPerDay {
		return 0, false
	}
	return n, true
}

// parseCount "1,234円" などを数値にする。空・負数・非数値は nil（未報告）
func parseCount(s string) *float64 {
	s = stripNumberDecorations(s)
	if s == "" || strings.Trim(s, "0123456789.") != "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || !isFinite(v) {
		return nil
	}
	return models.Count(v)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func normalizeHeader(hdr []string) []string {
	out := make([]string, len(hdr))
	for i, v := range hdr {
		// Remove UTF-8 BOM if present, then trim and lowercase
		v = strings.TrimPrefix(v, "\ufeff")
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func findIndex(hdr []string, candidates []string) int {
	for i, v := range hdr {
		for _, c := range candidates {
			if v == c {
				return i
			}
		}
	}
	return -1
}

// numberDecorations 数値セルから取り除く通貨記号・桁区切り・空白
var numberDecorations = strings.NewReplacer(
	",", "", "，", "",
	"¥", "", "￥", "", "円", "", "$", "", "€", "", "£", "",
	" ", "", "\u00a0", "", "\u3000", "",
)

// stripNumberDecorations "35,000円" -> "35000"。それ以外の文字は残す
func stripNumberDecorations(s string) string {
	return numberDecorations.Replace(strings.TrimSpace(s))
}
