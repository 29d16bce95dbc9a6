package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// ContentWriter is the faculty-facing write side of the content store.
type ContentWriter interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// EditorService owns quiz mutation for faculty: create, append questions,
// configure marking, publish. The attempt core never mutates content.
//
// Marking changes affect only attempts scored after the change; recorded
// results are never rescored.
type EditorService struct {
	content ContentWriter
	// AllowUnpublish gates the un-publish path. The academy historically
	// treated publishing as one-way, so it defaults to off.
	AllowUnpublish bool
}

func NewEditorService(content ContentWriter) *EditorService {
	return &EditorService{content: content}
}

// CreateQuiz registers an empty, unpublished quiz and returns its id.
func (s *EditorService) CreateQuiz(ctx context.Context, courseID, title string, durationMinutes int) (domain.Quiz, error) {
	if title == "" || durationMinutes <= 0 {
		return domain.Quiz{}, fmt.Errorf("create quiz: title and a positive duration are required")
	}
	quiz := domain.Quiz{
		ID:              uuid.NewString(),
		CourseID:        courseID,
		Title:           title,
		DurationMinutes: durationMinutes,
		Marking:         domain.DefaultMarking(),
	}
	if err := s.content.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// AddQuestion appends a question to the quiz.
func (s *EditorService) AddQuestion(ctx context.Context, quizID, prompt string, options []string, correctOption int) error {
	if len(options) < 2 {
		return domain.ErrInvalidSelection
	}
	if correctOption < 0 || correctOption >= len(options) {
		return domain.ErrInvalidSelection
	}
	quiz, err := s.content.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	quiz.Questions = append(quiz.Questions, domain.Question{
		ID:            uuid.NewString(),
		Prompt:        prompt,
		Options:       options,
		CorrectOption: correctOption,
	})
	return s.content.SaveQuiz(ctx, quiz)
}

// SetMarkingScheme replaces the quiz's marking configuration.
func (s *EditorService) SetMarkingScheme(ctx context.Context, quizID string, marking domain.MarkingScheme) error {
	if err := marking.Validate(); err != nil {
		return err
	}
	quiz, err := s.content.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	quiz.Marking = marking
	return s.content.SaveQuiz(ctx, quiz)
}

// SetPublished flips quiz visibility. Un-publishing requires the
// AllowUnpublish policy to be enabled.
func (s *EditorService) SetPublished(ctx context.Context, quizID string, published bool) error {
	quiz, err := s.content.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.Published && !published && !s.AllowUnpublish {
		return fmt.Errorf("quiz %s: un-publish disabled", quizID)
	}
	quiz.Published = published
	return s.content.SaveQuiz(ctx, quiz)
}
