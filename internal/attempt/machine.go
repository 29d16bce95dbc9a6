// Package attempt implements the state machine for one student taking one
// quiz: access check, countdown, answer selection, single sealed
// submission, and read-only replay of a recorded result.
package attempt

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibhuti45/vishwaas-academy/internal/domain"
	"github.com/vibhuti45/vishwaas-academy/internal/scoring"
)

// State enumerates the attempt lifecycle. Replaying and Submitted are
// terminal; Submitting is only observable from another goroutine while a
// submit is in flight.
type State int

const (
	StateCheckingAccess State = iota
	StateReplaying
	StateLoading
	StateInProgress
	StateSubmitting
	StateSubmitted
	// StateAbandoned models the student closing the page mid-attempt:
	// everything in memory is discarded and nothing is persisted.
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateCheckingAccess:
		return "checking-access"
	case StateReplaying:
		return "replaying"
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in-progress"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Ledger is the append-only attempt record store. TryRecord must behave as
// a conditional insert keyed on (studentID, quizID) and return
// domain.ErrAttemptExists on collision.
type Ledger interface {
	TryRecord(ctx context.Context, result domain.AttemptResult) error
	Get(ctx context.Context, studentID, quizID string) (domain.AttemptResult, error)
}

// ContentStore is the read-only quiz source.
type ContentStore interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// History receives the per-student summary duplicate. Writes are
// best-effort from the machine's point of view.
type History interface {
	AppendSummary(ctx context.Context, studentID string, summary domain.AttemptSummary) error
}

// Deps bundles the collaborators a Machine needs. Clock defaults to
// SystemClock when nil.
type Deps struct {
	Ledger  Ledger
	Content ContentStore
	History History
	Clock   Clock
}

// Machine drives a single attempt. All methods are safe for concurrent use
// by the countdown goroutine and the caller.
type Machine struct {
	deps        Deps
	studentID   string
	studentName string
	quizID      string

	mu        sync.Mutex
	state     State
	quiz      domain.Quiz
	answers   domain.AttemptAnswers
	remaining int
	result    *domain.AttemptResult
	timerStop chan struct{}
}

// Begin resolves the access decision for (studentID, quizID) and returns a
// machine in either Replaying (result already on the ledger) or InProgress
// (quiz loaded, countdown running).
//
// The ledger lookup happens before any countdown starts. A transient
// lookup failure propagates; it is never treated as "no existing attempt".
func Begin(ctx context.Context, deps Deps, studentID, studentName, quizID string) (*Machine, error) {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	m := &Machine{
		deps:        deps,
		studentID:   studentID,
		studentName: studentName,
		quizID:      quizID,
		state:       StateCheckingAccess,
		answers:     make(domain.AttemptAnswers),
	}

	prior, err := deps.Ledger.Get(ctx, studentID, quizID)
	switch {
	case err == nil:
		quiz, err := deps.Content.GetQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		m.quiz = normalizeQuiz(quiz)
		m.result = &prior
		m.state = StateReplaying
		return m, nil
	case errors.Is(err, domain.ErrAttemptNotFound):
		// First attempt; fall through to loading.
	default:
		return nil, err
	}

	m.state = StateLoading
	quiz, err := deps.Content.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.Published {
		// Unpublished quizzes are invisible to students.
		return nil, domain.ErrQuizNotFound
	}
	m.quiz = normalizeQuiz(quiz)
	m.remaining = m.quiz.DurationMinutes * 60
	m.state = StateInProgress
	m.timerStop = make(chan struct{})
	go m.runCountdown(m.timerStop)
	return m, nil
}

// normalizeQuiz fills in the default marking scheme when faculty never
// configured one. The marking is frozen here for the whole attempt.
func normalizeQuiz(q domain.Quiz) domain.Quiz {
	if q.Marking.PointsForCorrect == 0 {
		q.Marking = domain.DefaultMarking()
	}
	return q
}

// SelectOption records the student's choice for a question, overwriting
// any prior selection. Rejected with ErrAttemptClosed once submission has
// begun, and with ErrInvalidSelection for out-of-range indexes.
func (m *Machine) SelectOption(questionIndex, optionIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateInProgress {
		return domain.ErrAttemptClosed
	}
	if m.remaining <= 0 {
		// Deadline passed; the sealing write may still be retrying.
		return domain.ErrAttemptClosed
	}
	if questionIndex < 0 || questionIndex >= len(m.quiz.Questions) {
		return domain.ErrInvalidSelection
	}
	if optionIndex < 0 || optionIndex >= len(m.quiz.Questions[questionIndex].Options) {
		return domain.ErrInvalidSelection
	}
	m.answers[questionIndex] = optionIndex
	return nil
}

// Submit seals the attempt: scores the frozen answers once, records the
// result on the ledger, and fires the best-effort history write. Both the
// student's button and the countdown reaching zero funnel through here, so
// a second call while or after the first returns the recorded result
// without another ledger write.
func (m *Machine) Submit(ctx context.Context) (domain.AttemptResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateReplaying, StateSubmitted:
		return *m.result, nil
	case StateInProgress:
		// proceed
	default:
		return domain.AttemptResult{}, domain.ErrAttemptClosed
	}

	m.state = StateSubmitting

	snapshot := m.answers.Clone()
	out := scoring.Score(m.quiz.Questions, m.quiz.Marking, snapshot)
	result := domain.AttemptResult{
		ID:             uuid.NewString(),
		StudentID:      m.studentID,
		StudentName:    m.studentName,
		QuizID:         m.quizID,
		Answers:        snapshot,
		CorrectCount:   out.CorrectCount,
		IncorrectCount: out.IncorrectCount,
		AttemptedCount: out.AttemptedCount,
		RawScore:       out.RawScore,
		MaxScore:       out.MaxScore,
		Percentage:     out.Percentage,
		SubmittedAt:    m.deps.Clock.Now(),
	}

	err := m.deps.Ledger.TryRecord(ctx, result)
	switch {
	case err == nil:
		// recorded below
	case errors.Is(err, domain.ErrAttemptExists):
		// Another session won the race; adopt its result and replay it.
		prior, getErr := m.deps.Ledger.Get(ctx, m.studentID, m.quizID)
		if getErr != nil {
			m.state = StateInProgress
			return domain.AttemptResult{}, getErr
		}
		m.result = &prior
		m.stopTimerLocked()
		m.state = StateReplaying
		return prior, nil
	default:
		// A failed primary write must not be reported as success. The
		// countdown keeps running so the deadline still stands and an
		// expired attempt retries the write on the next tick.
		m.state = StateInProgress
		return domain.AttemptResult{}, err
	}

	m.result = &result
	m.stopTimerLocked()
	m.state = StateSubmitted

	if m.deps.History != nil {
		summary := domain.AttemptSummary{
			QuizID:      m.quizID,
			QuizTitle:   m.quiz.Title,
			CourseID:    m.quiz.CourseID,
			RawScore:    result.RawScore,
			Percentage:  result.Percentage,
			SubmittedAt: result.SubmittedAt,
		}
		if err := m.deps.History.AppendSummary(ctx, m.studentID, summary); err != nil {
			// Best-effort: the primary record is already committed.
			log.Printf("history write failed for student %s quiz %s: %v", m.studentID, m.quizID, err)
		}
	}
	return result, nil
}

func (m *Machine) runCountdown(stop <-chan struct{}) {
	ticker := m.deps.Clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if m.tick() {
				return
			}
		}
	}
}

// tick decrements the countdown and reports whether the goroutine should
// exit. Expiry submits with whatever answers are recorded at that instant;
// if the sealing write fails the attempt stays at zero and every following
// tick retries until the store recovers or the session is abandoned.
func (m *Machine) tick() bool {
	m.mu.Lock()
	if m.state != StateInProgress {
		m.mu.Unlock()
		return true
	}
	if m.remaining > 0 {
		m.remaining--
	}
	expired := m.remaining <= 0
	m.mu.Unlock()

	if !expired {
		return false
	}
	if _, err := m.Submit(context.Background()); err != nil {
		log.Printf("timeout submit failed for student %s quiz %s, will retry: %v", m.studentID, m.quizID, err)
		return false
	}
	return true
}

// Abandon discards an in-progress attempt without recording anything and
// stops the countdown. No-op once the attempt is sealed or replaying.
func (m *Machine) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return
	}
	m.stopTimerLocked()
	m.state = StateAbandoned
}

func (m *Machine) stopTimerLocked() {
	if m.timerStop != nil {
		close(m.timerStop)
		m.timerStop = nil
	}
}

// State reports the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RemainingSeconds reports the countdown; zero once terminal.
func (m *Machine) RemainingSeconds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return 0
	}
	return m.remaining
}

// Quiz returns the quiz under attempt, for display purposes.
func (m *Machine) Quiz() domain.Quiz {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quiz
}

// Result returns the recorded result once the machine is terminal.
func (m *Machine) Result() (domain.AttemptResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return domain.AttemptResult{}, false
	}
	return *m.result, true
}

// QuestionView is the per-question rendering payload for a terminal
// attempt: the stored selection plus the final option classifications.
type QuestionView struct {
	Prompt   string                `json:"prompt"`
	Options  []string              `json:"options"`
	Selected int                   `json:"selected"` // -1 when unattempted
	Classes  []scoring.OptionClass `json:"classes"`
}

// ResultView renders the recorded attempt. Replaying and Submitted produce
// identical output for the same result, with no scoring side effects and
// no ledger writes.
func (m *Machine) ResultView() (domain.AttemptResult, []QuestionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result == nil {
		return domain.AttemptResult{}, nil, domain.ErrAttemptNotFound
	}
	views := make([]QuestionView, len(m.quiz.Questions))
	for i, q := range m.quiz.Questions {
		selected, ok := m.result.Answers[i]
		if !ok {
			selected = -1
		}
		views[i] = QuestionView{
			Prompt:   q.Prompt,
			Options:  q.Options,
			Selected: selected,
			Classes:  scoring.ClassifyOptions(q, selected),
		}
	}
	return *m.result, views, nil
}
