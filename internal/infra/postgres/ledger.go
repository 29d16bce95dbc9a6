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

// Ledger is the Postgres attempt ledger. The at-most-one invariant is
// enforced by the UNIQUE (quiz_id, student_id) constraint: TryRecord is a
// single conditional insert, never a read-then-write.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) TryRecord(ctx context.Context, result domain.AttemptResult) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := l.pool.Exec(ctx,
		`INSERT INTO attempt_results
		   (id, quiz_id, student_id, student_name, answers,
		    correct_count, incorrect_count, attempted_count,
		    raw_score, max_score, percentage, submitted_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT ON CONSTRAINT attempt_results_one_per_student DO NOTHING`,
		result.ID, result.QuizID, result.StudentID, result.StudentName, answers,
		result.CorrectCount, result.IncorrectCount, result.AttemptedCount,
		result.RawScore, result.MaxScore, result.Percentage, result.SubmittedAt)
	if err != nil {
		return fmt.Errorf("record attempt: %w: %s", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptExists
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, studentID, quizID string) (domain.AttemptResult, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT id, quiz_id, student_id, student_name, answers,
		        correct_count, incorrect_count, attempted_count,
		        raw_score, max_score, percentage, submitted_at
		 FROM attempt_results WHERE student_id=$1 AND quiz_id=$2`,
		studentID, quizID)
	result, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttemptResult{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.AttemptResult{}, fmt.Errorf("get attempt: %w: %s", domain.ErrStoreUnavailable, err)
	}
	return result, nil
}

func (l *Ledger) ListForQuiz(ctx context.Context, quizID string) ([]domain.AttemptResult, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, quiz_id, student_id, student_name, answers,
		        correct_count, incorrect_count, attempted_count,
		        raw_score, max_score, percentage, submitted_at
		 FROM attempt_results WHERE quiz_id=$1
		 ORDER BY raw_score DESC, recorded_seq ASC`,
		quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w: %s", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var results []domain.AttemptResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w: %s", domain.ErrStoreUnavailable, err)
	}
	return results, nil
}

func scanResult(row pgx.Row) (domain.AttemptResult, error) {
	var (
		result  domain.AttemptResult
		answers []byte
	)
	err := row.Scan(&result.ID, &result.QuizID, &result.StudentID, &result.StudentName, &answers,
		&result.CorrectCount, &result.IncorrectCount, &result.AttemptedCount,
		&result.RawScore, &result.MaxScore, &result.Percentage, &result.SubmittedAt)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if err := json.Unmarshal(answers, &result.Answers); err != nil {
		return domain.AttemptResult{}, err
	}
	return result, nil
}
