package app

import (
	"context"

	"github.com/vibhuti45/vishwaas-academy/internal/attempt"
	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// Ledger extends the machine's ledger port with the faculty read path.
type Ledger interface {
	attempt.Ledger
	ListForQuiz(ctx context.Context, quizID string) ([]domain.AttemptResult, error)
}

// History extends the machine's history port with the student read path.
type History interface {
	attempt.History
	ListSummaries(ctx context.Context, studentID string) ([]domain.AttemptSummary, error)
}

// AttemptService hosts attempt machines and the read paths around them.
// It is invoked in-process by whatever screen or transport fronts it.
type AttemptService struct {
	content attempt.ContentStore
	ledger  Ledger
	history History
	clock   attempt.Clock
}

func NewAttemptService(content attempt.ContentStore, ledger Ledger, history History, clock attempt.Clock) *AttemptService {
	if clock == nil {
		clock = attempt.SystemClock{}
	}
	return &AttemptService{content: content, ledger: ledger, history: history, clock: clock}
}

// BeginAttempt resolves the access decision and returns a machine in
// Replaying or InProgress. studentID arrives verified from the identity
// provider; studentName is the display name recorded on the result.
func (s *AttemptService) BeginAttempt(ctx context.Context, studentID, studentName, quizID string) (*attempt.Machine, error) {
	deps := attempt.Deps{
		Ledger:  s.ledger,
		Content: s.content,
		History: s.history,
		Clock:   s.clock,
	}
	return attempt.Begin(ctx, deps, studentID, studentName, quizID)
}

// LeaderboardRow is one line of the faculty results table.
type LeaderboardRow struct {
	Rank        int     `json:"rank"`
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName,omitempty"`
	RawScore    float64 `json:"rawScore"`
	Percentage  float64 `json:"percentage"`
}

// Leaderboard returns the quiz's recorded attempts ranked by raw score,
// submission order breaking ties.
func (s *AttemptService) Leaderboard(ctx context.Context, quizID string) ([]LeaderboardRow, error) {
	results, err := s.ledger.ListForQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	rows := make([]LeaderboardRow, len(results))
	for i, r := range results {
		rows[i] = LeaderboardRow{
			Rank:        i + 1,
			StudentID:   r.StudentID,
			StudentName: r.StudentName,
			RawScore:    r.RawScore,
			Percentage:  r.DisplayPercentage(),
		}
	}
	return rows, nil
}

// StudentHistory returns the student's personal summaries, newest first.
func (s *AttemptService) StudentHistory(ctx context.Context, studentID string) ([]domain.AttemptSummary, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListSummaries(ctx, studentID)
}
