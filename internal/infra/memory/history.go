package memory

import (
	"context"
	"sync"

	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// HistoryStore keeps per-student attempt summaries, most recent first.
type HistoryStore struct {
	mu        sync.RWMutex
	summaries map[string][]domain.AttemptSummary
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{summaries: make(map[string][]domain.AttemptSummary)}
}

func (s *HistoryStore) AppendSummary(_ context.Context, studentID string, summary domain.AttemptSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[studentID] = append([]domain.AttemptSummary{summary}, s.summaries[studentID]...)
	return nil
}

func (s *HistoryStore) ListSummaries(_ context.Context, studentID string) ([]domain.AttemptSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptSummary, len(s.summaries[studentID]))
	copy(out, s.summaries[studentID])
	return out, nil
}
