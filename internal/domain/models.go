package domain

import (
	"math"
	"time"
)

// Question is a single multiple-choice question. Immutable once authored;
// the attempt engine only ever reads it.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// MarkingScheme holds the per-question point values for one quiz.
// PointsForIncorrect is the amount subtracted per wrong answer, so zero
// means "no negative marking". Unattempted questions always contribute
// zero either way.
type MarkingScheme struct {
	PointsForCorrect   float64 `json:"pointsForCorrect"`
	PointsForIncorrect float64 `json:"pointsForIncorrect"`
	// ClampToZero keeps the raw score from going below zero. The academy's
	// historical behavior is no clamping, so it defaults to false.
	ClampToZero bool `json:"clampToZero,omitempty"`
}

// DefaultMarking is applied when faculty never configured a scheme.
func DefaultMarking() MarkingScheme {
	return MarkingScheme{PointsForCorrect: 1, PointsForIncorrect: 0}
}

// Validate rejects schemes that cannot score anything sensibly.
func (m MarkingScheme) Validate() error {
	if m.PointsForCorrect <= 0 || m.PointsForIncorrect < 0 {
		return ErrInvalidMarking
	}
	return nil
}

// Quiz is the content-store view of one timed assessment.
type Quiz struct {
	ID              string        `json:"id"`
	CourseID        string        `json:"courseId,omitempty"`
	Title           string        `json:"title"`
	DurationMinutes int           `json:"durationMinutes"`
	Marking         MarkingScheme `json:"marking"`
	Published       bool          `json:"published"`
	Questions       []Question    `json:"questions"`
}

// AttemptAnswers maps question index to selected option index. A missing
// key means the question was left unattempted, which is distinct from
// picking any option.
type AttemptAnswers map[int]int

// Clone returns an independent copy so a frozen submission snapshot
// cannot be mutated afterwards.
func (a AttemptAnswers) Clone() AttemptAnswers {
	out := make(AttemptAnswers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// AttemptResult is the ledger entry written exactly once per
// (student, quiz) pair and never updated or deleted after creation.
type AttemptResult struct {
	ID             string         `json:"id"`
	StudentID      string         `json:"studentId"`
	StudentName    string         `json:"studentName,omitempty"`
	QuizID         string         `json:"quizId"`
	Answers        AttemptAnswers `json:"answers"`
	CorrectCount   int            `json:"correctCount"`
	IncorrectCount int            `json:"incorrectCount"`
	AttemptedCount int            `json:"attemptedCount"`
	RawScore       float64        `json:"rawScore"`
	MaxScore       float64        `json:"maxScore"`
	Percentage     float64        `json:"percentage"`
	SubmittedAt    time.Time      `json:"submittedAt"`
}

// DisplayPercentage rounds to one decimal place for rendering. The stored
// Percentage stays exact.
func (r AttemptResult) DisplayPercentage() float64 {
	return math.Round(r.Percentage*10) / 10
}

// AttemptSummary is the lightweight duplicate written to a student's
// personal history after each submission.
type AttemptSummary struct {
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	CourseID    string    `json:"courseId,omitempty"`
	RawScore    float64   `json:"rawScore"`
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submittedAt"`
}
