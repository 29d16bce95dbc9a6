// Package scoring holds the pure marking logic for quiz attempts.
//
// Score is deterministic and side-effect free: the same
// (questions, marking, answers) triple always produces the same outcome,
// which is what lets a recorded attempt be replayed as a value instead of
// re-derived from mutable state.
package scoring

import "github.com/vibhuti45/vishwaas-academy/internal/domain"

// Outcome carries the computed fields of an attempt result. Identity and
// timestamps are attached by the caller.
type Outcome struct {
	CorrectCount   int
	IncorrectCount int
	AttemptedCount int
	RawScore       float64
	MaxScore       float64
	Percentage     float64
}

// Score marks answers against questions under the given scheme.
//
// Total over valid input: out-of-range question indexes in answers are
// ignored (selection validation happens at input time, not here), and an
// empty answer set yields a zero outcome regardless of the scheme.
func Score(questions []domain.Question, marking domain.MarkingScheme, answers domain.AttemptAnswers) Outcome {
	var out Outcome
	for i, q := range questions {
		selected, ok := answers[i]
		if !ok {
			continue
		}
		if selected == q.CorrectOption {
			out.CorrectCount++
			out.RawScore += marking.PointsForCorrect
		} else {
			out.IncorrectCount++
			out.RawScore -= marking.PointsForIncorrect
		}
	}
	out.AttemptedCount = out.CorrectCount + out.IncorrectCount
	if marking.ClampToZero && out.RawScore < 0 {
		out.RawScore = 0
	}
	out.MaxScore = float64(len(questions)) * marking.PointsForCorrect
	if out.MaxScore > 0 {
		out.Percentage = out.RawScore / out.MaxScore * 100
	}
	return out
}

// OptionClass is the replay classification of a single option.
type OptionClass int

const (
	// ClassDimmed is every option that is neither the answer key nor the
	// student's wrong pick.
	ClassDimmed OptionClass = iota
	// ClassCorrect marks the answer key; shown whether or not it was picked.
	ClassCorrect
	// ClassWrongPick marks the student's incorrect selection.
	ClassWrongPick
)

// ClassifyOptions computes the per-option rendering classes for one
// question given the recorded selection (selected < 0 means unattempted).
// Both the just-submitted view and a later replay go through this, so the
// two renderings cannot drift apart.
func ClassifyOptions(q domain.Question, selected int) []OptionClass {
	classes := make([]OptionClass, len(q.Options))
	for i := range classes {
		switch {
		case i == q.CorrectOption:
			classes[i] = ClassCorrect
		case i == selected:
			classes[i] = ClassWrongPick
		default:
			classes[i] = ClassDimmed
		}
	}
	return classes
}
