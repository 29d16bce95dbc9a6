package memory

import (
	"context"
	"sync"

	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// ContentStore is an in-memory quiz store used in tests, demos, and as the
// write target for the faculty editor when no Postgres is configured.
type ContentStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewContentStore(quizzes map[string]domain.Quiz) *ContentStore {
	if quizzes == nil {
		quizzes = make(map[string]domain.Quiz)
	}
	return &ContentStore{quizzes: quizzes}
}

func (s *ContentStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *ContentStore) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	return nil
}
