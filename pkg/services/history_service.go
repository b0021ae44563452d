package services

import (
	"log"
	"sync"
	"time"

	"hourly-forecast-api/internal/metrics"
	"hourly-forecast-api/pkg/models"
)

// HistoryService 現在の履歴スナップショットを保持する。
// 更新はデータ取り込みごとに丸ごと差し替え、読み取り側は不変のスナップショットを受け取る
type HistoryService struct {
	mu        sync.RWMutex
	store     *HistoryStore
	updatedAt time.Time
}

// NewHistoryService 空の履歴で初期化
func NewHistoryService() *HistoryService {
	return &HistoryService{store: NewHistoryStore(nil)}
}

// Replace 履歴を丸ごと差し替えて新しいスナップショットを返す
func (s *HistoryService) Replace(records []models.DailyRecord) *HistoryStore {
	store := NewHistoryStore(records)

	s.mu.Lock()
	s.store = store
	s.updatedAt = time.Now()
	s.mu.Unlock()

	metrics.HistoryRecords.Set(float64(store.Len()))
	log.Printf("✅ [履歴] スナップショットを更新しました: %d日分", store.Len())
	return store
}

// Snapshot 現在のスナップショット
func (s *HistoryService) Snapshot() *HistoryStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// UpdatedAt 最終更新時刻（未更新ならゼロ値）
func (s *HistoryService) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
