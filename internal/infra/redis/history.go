package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// HistoryStore keeps each student's attempt summaries in a Redis list,
// newest first. Summaries are a convenience duplicate of the ledger, so a
// lost write costs a dashboard row, never a score.
type HistoryStore struct {
	client *redis.Client
}

func NewHistoryStore(client *redis.Client) *HistoryStore {
	return &HistoryStore{client: client}
}

func (s *HistoryStore) AppendSummary(ctx context.Context, studentID string, summary domain.AttemptSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := s.client.LPush(ctx, s.key(studentID), data).Err(); err != nil {
		return fmt.Errorf("append summary: %w: %s", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ListSummaries returns the student's summaries, most recent first.
func (s *HistoryStore) ListSummaries(ctx context.Context, studentID string) ([]domain.AttemptSummary, error) {
	raws, err := s.client.LRange(ctx, s.key(studentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w: %s", domain.ErrStoreUnavailable, err)
	}
	summaries := make([]domain.AttemptSummary, 0, len(raws))
	for _, raw := range raws {
		var summary domain.AttemptSummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			continue // skip rows older code may have written differently
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *HistoryStore) key(studentID string) string {
	return "student:" + studentID + ":results"
}
