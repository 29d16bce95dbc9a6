package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// ContentStore reads and writes quiz JSONB in Postgres. Reads normalize
// historical document shapes into the canonical domain.Quiz exactly once,
// at this boundary; nothing downstream ever sees a legacy key.
type ContentStore struct {
	pool *pgxpool.Pool
}

func NewContentStore(pool *pgxpool.Pool) *ContentStore {
	return &ContentStore{pool: pool}
}

func (s *ContentStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w: %s", domain.ErrStoreUnavailable, err)
	}
	quiz, err := decodeQuiz(quizID, raw)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz %s: %w", quizID, err)
	}
	return quiz, nil
}

// SaveQuiz upserts the canonical form. Used by the faculty editor and by
// test seeding; the attempt engine never calls it.
func (s *ContentStore) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		quiz.ID, data)
	if err != nil {
		return fmt.Errorf("save quiz: %w: %s", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// rawQuestion tolerates both key-naming generations found in the academy's
// documents: newer ones carry prompt/correctOption, older ones
// question/correctAnswer.
type rawQuestion struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	LegacyPrompt  string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correctOption"`
	LegacyCorrect *int     `json:"correctAnswer"`
}

type rawQuiz struct {
	CourseID        string               `json:"courseId"`
	Title           string               `json:"title"`
	DurationMinutes int                  `json:"durationMinutes"`
	LegacyDuration  int                  `json:"duration"`
	Marking         domain.MarkingScheme `json:"marking"`
	// Legacy flat marking fields predate the marking object.
	LegacyPositive float64       `json:"positiveMarks"`
	LegacyNegative float64       `json:"negativeMarks"`
	Published      bool          `json:"published"`
	Questions      []rawQuestion `json:"questions"`
}

func decodeQuiz(quizID string, data []byte) (domain.Quiz, error) {
	var raw rawQuiz
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:              quizID,
		CourseID:        raw.CourseID,
		Title:           raw.Title,
		DurationMinutes: raw.DurationMinutes,
		Marking:         raw.Marking,
		Published:       raw.Published,
		Questions:       make([]domain.Question, len(raw.Questions)),
	}
	if quiz.DurationMinutes == 0 {
		quiz.DurationMinutes = raw.LegacyDuration
	}
	if quiz.Marking.PointsForCorrect == 0 {
		if raw.LegacyPositive > 0 {
			quiz.Marking = domain.MarkingScheme{
				PointsForCorrect:   raw.LegacyPositive,
				PointsForIncorrect: raw.LegacyNegative,
			}
		} else {
			quiz.Marking = domain.DefaultMarking()
		}
	}

	for i, q := range raw.Questions {
		prompt := q.Prompt
		if prompt == "" {
			prompt = q.LegacyPrompt
		}
		correct := 0
		switch {
		case q.CorrectOption != nil:
			correct = *q.CorrectOption
		case q.LegacyCorrect != nil:
			correct = *q.LegacyCorrect
		}
		if correct < 0 || correct >= len(q.Options) {
			return domain.Quiz{}, fmt.Errorf("question %d: correct option %d out of range", i, correct)
		}
		quiz.Questions[i] = domain.Question{
			ID:            q.ID,
			Prompt:        prompt,
			Options:       q.Options,
			CorrectOption: correct,
		}
	}
	return quiz, nil
}
