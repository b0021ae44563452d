package services

import (
	"hourly-forecast-api/pkg/models"
)

// linearDay 0時 = start、以降1時間ごとに step ずつ増える全時間観測済みの日
func linearDay(date string, start, step float64) models.DailyRecord {
	r := models.DailyRecord{Date: date}
	for h := 0; h < models.HoursPerDay; h++ {
		r.Hours[h] = models.Count(start + step*float64(h))
	}
	return r
}

// partialDay 指定した時間だけ報告済みの日
func partialDay(date string, values map[int]float64) models.DailyRecord {
	r := models.DailyRecord{Date: date}
	for h, v := range values {
		r.Hours[h] = models.Count(v)
	}
	return r
}

// scenarioHistory 10→11時の増分が increments になる日を連続した日付で作る。
// 10時は常に300、その他の時間は1時間30ずつ増える
func scenarioHistory(increments []float64) []models.DailyRecord {
	dates := []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04", "2024-05-05", "2024-05-06", "2024-05-07"}
	var out []models.DailyRecord
	for i, inc := range increments {
		r := models.DailyRecord{Date: dates[i]}
		for h := 0; h <= 10; h++ {
			r.Hours[h] = models.Count(30 * float64(h))
		}
		r.Hours[11] = models.Count(300 + inc)
		for h := 12; h < models.HoursPerDay; h++ {
			r.Hours[h] = models.Count(300 + inc + 30*float64(h-11))
		}
		out = append(out, r)
	}
	return out
}
