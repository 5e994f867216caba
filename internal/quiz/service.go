package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"quizgate/internal/apperr"
	"quizgate/internal/models"
)

// Cache holds loaded quiz graphs keyed by id.
type Cache interface {
	GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error)
	SetQuiz(ctx context.Context, quiz *models.Quiz) error
}

// Notifier pushes live events to whoever watches a quiz.
type Notifier interface {
	BroadcastMessage(room string, messageType string, data interface{})
}

// Service owns quiz content: loading graphs for delivery and grading, and the
// minimal authoring calls teachers need to have something to gate.
type Service struct {
	repo  Store
	cache Cache
}

func NewService(repo Store, cache Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// GetQuiz returns the full graph, answer key included. Callers project it
// before anything reaches a student.
func (s *Service) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	if s.cache != nil {
		quiz, err := s.cache.GetQuiz(ctx, quizID)
		if err == nil && quiz != nil {
			return quiz, nil
		}
	}

	quiz, err := s.repo.GetQuizGraph(ctx, quizID)
	if err != nil {
		return nil, classify(err, "load quiz")
	}

	if s.cache != nil {
		if err := s.cache.SetQuiz(ctx, quiz); err != nil {
			log.Printf("Error caching quiz %d: %v", quizID, err)
		}
	}
	return quiz, nil
}

func (s *Service) QuizOwner(ctx context.Context, quizID uint) (uint, error) {
	owner, err := s.repo.QuizOwner(ctx, quizID)
	if err != nil {
		return 0, classify(err, "load quiz owner")
	}
	return owner, nil
}

func (s *Service) CreatePlanner(ctx context.Context, teacherID uint, title string) (*models.LessonPlanner, error) {
	planner := &models.LessonPlanner{
		TeacherID: teacherID,
		Title:     title,
	}
	if err := s.repo.CreatePlanner(ctx, planner); err != nil {
		return nil, apperr.Unexpected(err, "create lesson planner")
	}
	return planner, nil
}

func (s *Service) CreateQuiz(ctx context.Context, teacherID uint, quiz *models.Quiz) error {
	planner, err := s.repo.GetPlanner(ctx, quiz.LessonPlannerID)
	if err != nil {
		return classify(err, "load lesson planner")
	}
	if planner.TeacherID != teacherID {
		return apperr.Forbidden("lesson planner %d belongs to another teacher", planner.ID)
	}
	for i := range quiz.Questions {
		quiz.Questions[i].Position = i
	}
	if err := s.repo.CreateQuiz(ctx, quiz); err != nil {
		return apperr.Unexpected(err, "create quiz")
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func room(quizID uint) string {
	return fmt.Sprint(quizID)
}

// classify keeps already classified errors and marks the rest unexpected.
func classify(err error, op string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Unexpected(err, "%s", op)
}
