package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// Ledger is the in-memory attempt ledger. The conditional insert happens
// under one lock, so two sessions racing on the same (student, quiz) key
// resolve to exactly one stored record, same as the Postgres constraint.
type Ledger struct {
	mu      sync.RWMutex
	records map[ledgerKey]ledgerEntry
	seq     int
}

type ledgerKey struct {
	studentID string
	quizID    string
}

type ledgerEntry struct {
	result domain.AttemptResult
	seq    int // insertion order, for the stable leaderboard tie-break
}

func NewLedger() *Ledger {
	return &Ledger{records: make(map[ledgerKey]ledgerEntry)}
}

func (l *Ledger) TryRecord(_ context.Context, result domain.AttemptResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{studentID: result.StudentID, quizID: result.QuizID}
	if _, ok := l.records[key]; ok {
		return domain.ErrAttemptExists
	}
	l.seq++
	l.records[key] = ledgerEntry{result: result, seq: l.seq}
	return nil
}

func (l *Ledger) Get(_ context.Context, studentID, quizID string) (domain.AttemptResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.records[ledgerKey{studentID: studentID, quizID: quizID}]
	if !ok {
		return domain.AttemptResult{}, domain.ErrAttemptNotFound
	}
	return entry.result, nil
}

// ListForQuiz returns results ordered by raw score descending, ties broken
// by submission order.
func (l *Ledger) ListForQuiz(_ context.Context, quizID string) ([]domain.AttemptResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]ledgerEntry, 0)
	for key, entry := range l.records {
		if key.quizID == quizID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].result.RawScore != entries[j].result.RawScore {
			return entries[i].result.RawScore > entries[j].result.RawScore
		}
		return entries[i].seq < entries[j].seq
	})

	results := make([]domain.AttemptResult, len(entries))
	for i, entry := range entries {
		results[i] = entry.result
	}
	return results, nil
}

// CountForQuiz is a test helper for asserting write counts.
func (l *Ledger) CountForQuiz(quizID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for key := range l.records {
		if key.quizID == quizID {
			n++
		}
	}
	return n
}
