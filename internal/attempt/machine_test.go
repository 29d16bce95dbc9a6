package attempt_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vibhuti45/vishwaas-academy/internal/attempt"
	"github.com/vibhuti45/vishwaas-academy/internal/domain"
	"github.com/vibhuti45/vishwaas-academy/internal/infra/memory"
)

// manualClock drives the countdown by hand for deterministic tests.
type manualClock struct {
	now   time.Time
	ticks chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{
		now:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		ticks: make(chan time.Time),
	}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) NewTicker(time.Duration) attempt.Ticker { return manualTicker{c.ticks} }

// tick blocks until the countdown goroutine has consumed the signal.
func (c *manualClock) tick() {
	c.now = c.now.Add(time.Second)
	c.ticks <- c.now
}

type manualTicker struct {
	ch chan time.Time
}

func (t manualTicker) C() <-chan time.Time { return t.ch }
func (t manualTicker) Stop()               {}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		Title:           "Mechanics Basics",
		DurationMinutes: 1,
		Published:       true,
		Marking:         domain.MarkingScheme{PointsForCorrect: 4, PointsForIncorrect: 1},
		Questions: []domain.Question{
			{Prompt: "q0", Options: []string{"a", "b", "c", "d"}, CorrectOption: 0},
			{Prompt: "q1", Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
			{Prompt: "q2", Options: []string{"a", "b", "c", "d"}, CorrectOption: 2},
			{Prompt: "q3", Options: []string{"a", "b", "c", "d"}, CorrectOption: 3},
		},
	}
}

func testDeps(clock attempt.Clock) (attempt.Deps, *memory.Ledger, *memory.HistoryStore) {
	ledger := memory.NewLedger()
	history := memory.NewHistoryStore()
	content := memory.NewContentStore(map[string]domain.Quiz{"quiz-1": testQuiz()})
	return attempt.Deps{
		Ledger:  ledger,
		Content: content,
		History: history,
		Clock:   clock,
	}, ledger, history
}

func TestFullAttemptFlow(t *testing.T) {
	ctx := context.Background()
	deps, ledger, history := testDeps(newManualClock())

	m, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if m.State() != attempt.StateInProgress {
		t.Fatalf("state = %v, want in-progress", m.State())
	}
	if m.RemainingSeconds() != 60 {
		t.Fatalf("remaining = %d, want 60", m.RemainingSeconds())
	}

	// Last choice wins.
	if err := m.SelectOption(0, 2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := m.SelectOption(0, 0); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if err := m.SelectOption(1, 0); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := m.SelectOption(2, 2); err != nil {
		t.Fatalf("select: %v", err)
	}

	result, err := m.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.RawScore != 7 || result.CorrectCount != 2 || result.IncorrectCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if m.State() != attempt.StateSubmitted {
		t.Fatalf("state = %v, want submitted", m.State())
	}

	stored, err := ledger.Get(ctx, "s1", "quiz-1")
	if err != nil {
		t.Fatalf("ledger get: %v", err)
	}
	if stored.RawScore != 7 {
		t.Fatalf("stored raw score = %v, want 7", stored.RawScore)
	}

	summaries, err := history.ListSummaries(ctx, "s1")
	if err != nil || len(summaries) != 1 {
		t.Fatalf("expected one history summary, got %d (err %v)", len(summaries), err)
	}
	if summaries[0].QuizTitle != "Mechanics Basics" {
		t.Fatalf("summary title = %q", summaries[0].QuizTitle)
	}
}

func TestSelectValidation(t *testing.T) {
	ctx := context.Background()
	deps, _, _ := testDeps(newManualClock())

	m, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := m.SelectOption(9, 0); !errors.Is(err, domain.ErrInvalidSelection) {
		t.Fatalf("question range: got %v", err)
	}
	if err := m.SelectOption(0, 4); !errors.Is(err, domain.ErrInvalidSelection) {
		t.Fatalf("option range: got %v", err)
	}
	if err := m.SelectOption(0, -1); !errors.Is(err, domain.ErrInvalidSelection) {
		t.Fatalf("negative option: got %v", err)
	}
}

func TestIdempotentSubmit(t *testing.T) {
	ctx := context.Background()
	deps, ledger, _ := testDeps(newManualClock())

	m, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = m.SelectOption(0, 0)

	var wg sync.WaitGroup
	results := make([]domain.AttemptResult, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := m.Submit(ctx)
			if err != nil {
				t.Errorf("submit %d: %v", i, err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		if r.ID != results[0].ID {
			t.Fatalf("submits produced different records: %q vs %q", r.ID, results[0].ID)
		}
	}
	if n := ledger.CountForQuiz("quiz-1"); n != 1 {
		t.Fatalf("ledger writes = %d, want 1", n)
	}

	if err := m.SelectOption(1, 1); !errors.Is(err, domain.ErrAttemptClosed) {
		t.Fatalf("select after submit: got %v", err)
	}
}

func TestCountdownExpirySubmits(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock()
	deps, ledger, _ := testDeps(clock)

	m, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	// No answers: pure timeout at start is still a valid, final attempt.
	for i := 0; i < 60; i++ {
		clock.tick()
	}

	waitForState(t, m, attempt.StateSubmitted)
	stored, err := ledger.Get(ctx, "s1", "quiz-1")
	if err != nil {
		t.Fatalf("ledger get: %v", err)
	}
	if stored.RawScore != 0 || stored.AttemptedCount != 0 || stored.Percentage != 0 {
		t.Fatalf("timeout result = %+v, want all zero", stored)
	}
}

// flakyLedger fails the first n writes, then delegates.
type flakyLedger struct {
	*memory.Ledger
	mu       sync.Mutex
	failures int
}

func (l *flakyLedger) TryRecord(ctx context.Context, result domain.AttemptResult) error {
	l.mu.Lock()
	if l.failures > 0 {
		l.failures--
		l.mu.Unlock()
		return fmt.Errorf("ledger insert: %w", domain.ErrStoreUnavailable)
	}
	l.mu.Unlock()
	return l.Ledger.TryRecord(ctx, result)
}

func TestExpiryRetriesFailedWrite(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock()
	ledger := &flakyLedger{Ledger: memory.NewLedger(), failures: 2}
	deps := attempt.Deps{
		Ledger:  ledger,
		Content: memory.NewContentStore(map[string]domain.Quiz{"quiz-1": testQuiz()}),
		Clock:   clock,
	}

	m, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = m.SelectOption(0, 0)

	// Tick 60 expires the attempt and hits the first failed write; tick 61
	// is consumed only after that write attempt has finished.
	for i := 0; i < 61; i++ {
		clock.tick()
	}

	// The deadline stands while the store is down: no late answers, no
	// recorded result yet.
	if err := m.SelectOption(1, 1); !errors.Is(err, domain.ErrAttemptClosed) {
		t.Fatalf("select after deadline: got %v", err)
	}
	if n := ledger.Ledger.CountForQuiz("quiz-1"); n != 0 {
		t.Fatalf("ledger writes = %d, want 0 while store is down", n)
	}

	// The next tick retries and the store has recovered.
	clock.tick()
	waitForState(t, m, attempt.StateSubmitted)

	stored, err := ledger.Ledger.Get(ctx, "s1", "quiz-1")
	if err != nil {
		t.Fatalf("ledger get: %v", err)
	}
	if stored.RawScore != 4 || stored.AttemptedCount != 1 {
		t.Fatalf("recovered result = %+v, want raw score 4 from one correct answer", stored)
	}
}

func TestReplayOnExistingResult(t *testing.T) {
	ctx := context.Background()
	deps, ledger, _ := testDeps(newManualClock())

	first, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = first.SelectOption(0, 0)
	_ = first.SelectOption(1, 3)
	submitted, err := first.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	firstResult, firstViews, err := first.ResultView()
	if err != nil {
		t.Fatalf("result view: %v", err)
	}

	// Re-opening the quiz must replay the stored attempt identically,
	// with zero additional ledger writes.
	replay, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("replay begin: %v", err)
	}
	if replay.State() != attempt.StateReplaying {
		t.Fatalf("state = %v, want replaying", replay.State())
	}
	replayResult, replayViews, err := replay.ResultView()
	if err != nil {
		t.Fatalf("replay view: %v", err)
	}
	if replayResult.ID != submitted.ID || replayResult.RawScore != firstResult.RawScore {
		t.Fatalf("replay result differs: %+v vs %+v", replayResult, firstResult)
	}
	if len(replayViews) != len(firstViews) {
		t.Fatalf("view length mismatch")
	}
	for i := range firstViews {
		if firstViews[i].Selected != replayViews[i].Selected {
			t.Fatalf("question %d selection differs", i)
		}
		for j := range firstViews[i].Classes {
			if firstViews[i].Classes[j] != replayViews[i].Classes[j] {
				t.Fatalf("question %d option %d class differs", i, j)
			}
		}
	}
	if n := ledger.CountForQuiz("quiz-1"); n != 1 {
		t.Fatalf("ledger writes = %d, want 1", n)
	}

	// Submit on a replay is a no-op returning the stored record.
	again, err := replay.Submit(ctx)
	if err != nil || again.ID != submitted.ID {
		t.Fatalf("replay submit: %+v %v", again, err)
	}
}

func TestRecordRaceAdoptsWinner(t *testing.T) {
	ctx := context.Background()
	deps, ledger, _ := testDeps(newManualClock())

	// Two tabs: both pass the access check before either submits.
	tabA, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin a: %v", err)
	}
	tabB, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin b: %v", err)
	}

	_ = tabA.SelectOption(0, 0)
	winner, err := tabA.Submit(ctx)
	if err != nil {
		t.Fatalf("submit a: %v", err)
	}

	_ = tabB.SelectOption(0, 1)
	adopted, err := tabB.Submit(ctx)
	if err != nil {
		t.Fatalf("submit b: %v", err)
	}
	if adopted.ID != winner.ID {
		t.Fatalf("loser did not adopt winner's record: %q vs %q", adopted.ID, winner.ID)
	}
	if tabB.State() != attempt.StateReplaying {
		t.Fatalf("loser state = %v, want replaying", tabB.State())
	}
	if n := ledger.CountForQuiz("quiz-1"); n != 1 {
		t.Fatalf("ledger writes = %d, want 1", n)
	}
}

func TestUnpublishedQuizHidden(t *testing.T) {
	ctx := context.Background()
	quiz := testQuiz()
	quiz.Published = false
	deps := attempt.Deps{
		Ledger:  memory.NewLedger(),
		Content: memory.NewContentStore(map[string]domain.Quiz{"quiz-1": quiz}),
		Clock:   newManualClock(),
	}

	if _, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz hidden, got %v", err)
	}
}

func TestAbandonDiscardsAttempt(t *testing.T) {
	ctx := context.Background()
	deps, ledger, _ := testDeps(newManualClock())

	m, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = m.SelectOption(0, 0)
	m.Abandon()

	if m.State() != attempt.StateAbandoned {
		t.Fatalf("state = %v, want abandoned", m.State())
	}
	if n := ledger.CountForQuiz("quiz-1"); n != 0 {
		t.Fatalf("ledger writes = %d, want 0", n)
	}
	if _, err := m.Submit(ctx); !errors.Is(err, domain.ErrAttemptClosed) {
		t.Fatalf("submit after abandon: got %v", err)
	}

	// The slate is clean: a fresh session starts over as a first attempt.
	again, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if again.State() != attempt.StateInProgress {
		t.Fatalf("second state = %v, want in-progress", again.State())
	}
}

func TestHistoryFailureDoesNotBlockCommit(t *testing.T) {
	ctx := context.Background()
	deps, ledger, _ := testDeps(newManualClock())
	deps.History = failingHistory{}

	m, err := attempt.Begin(ctx, deps, "s1", "Asha", "quiz-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := m.Submit(ctx); err != nil {
		t.Fatalf("submit should succeed despite history failure: %v", err)
	}
	if _, err := ledger.Get(ctx, "s1", "quiz-1"); err != nil {
		t.Fatalf("primary record missing: %v", err)
	}
}

type failingHistory struct{}

func (failingHistory) AppendSummary(context.Context, string, domain.AttemptSummary) error {
	return errors.New("history store down")
}

func waitForState(t *testing.T, m *attempt.Machine, want attempt.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", m.State(), want)
}
