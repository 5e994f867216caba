package quiz

import (
	"context"
	"log"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/models"
)

type Submission struct {
	QuestionID uint `json:"questionId" validate:"required"`
	AnswerID   uint `json:"answerId"`
}

// Evaluation is the outcome of scoring one submission set. It has no side effects.
type Evaluation struct {
	Score      int
	Total      int
	Percentage float64
	Details    []models.QuestionResultDTO
	Answers    []models.UserAnswer
}

type GradeResult struct {
	ResultID    uint                       `json:"resultId"`
	Score       int                        `json:"score"`
	Total       int                        `json:"total"`
	Percentage  float64                    `json:"percentage"`
	CompletedAt time.Time                  `json:"completedAt"`
	Details     []models.QuestionResultDTO `json:"details"`
}

type QuizLoader interface {
	GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error)
}

// AccessGate reports whether a student entered a quiz through a redeemed code.
type AccessGate interface {
	HasQuizAccess(ctx context.Context, studentID, quizID uint) (bool, error)
}

func requireAccess(ctx context.Context, gate AccessGate, studentID, quizID uint) error {
	ok, err := gate.HasQuizAccess(ctx, studentID, quizID)
	if err != nil {
		return classify(err, "check quiz access")
	}
	if !ok {
		return apperr.Forbidden("quiz %d has not been unlocked with an access code", quizID)
	}
	return nil
}

// Grader scores submissions and records them as results.
type Grader struct {
	repo     Store
	quizzes  QuizLoader
	gate     AccessGate
	notifier Notifier
	now      func() time.Time
}

func NewGrader(repo Store, quizzes QuizLoader, gate AccessGate, notifier Notifier) *Grader {
	return &Grader{
		repo:     repo,
		quizzes:  quizzes,
		gate:     gate,
		notifier: notifier,
		now:      time.Now,
	}
}

// Percentage is correct/total as a percent rounded to two places. An empty
// quiz scores 0.
func Percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(correct) / float64(total) * 100)
}

// Evaluate walks the quiz's questions in order. A question with no submission
// is wrong. A chosen answer counts only if it belongs to that question and is
// flagged correct. When a question is submitted twice the last one wins.
func Evaluate(quiz *models.Quiz, submissions []Submission) Evaluation {
	chosen := make(map[uint]uint, len(submissions))
	for _, sub := range submissions {
		chosen[sub.QuestionID] = sub.AnswerID
	}

	eval := Evaluation{
		Total:   len(quiz.Questions),
		Details: make([]models.QuestionResultDTO, 0, len(quiz.Questions)),
	}
	for _, question := range quiz.Questions {
		detail := models.QuestionResultDTO{
			QuestionID: question.ID,
			Question:   question.Content,
		}
		if key := question.CorrectAnswer(); key != nil {
			detail.CorrectAnswer = key.Content
		}

		if answerID, ok := chosen[question.ID]; ok {
			if answer := question.FindAnswer(answerID); answer != nil {
				detail.ChosenAnswer = answer.Content
				detail.IsCorrect = answer.IsCorrect
				eval.Answers = append(eval.Answers, models.UserAnswer{
					QuestionID: question.ID,
					AnswerID:   answer.ID,
				})
			}
		}

		if detail.IsCorrect {
			eval.Score++
		}
		eval.Details = append(eval.Details, detail)
	}
	eval.Percentage = Percentage(eval.Score, eval.Total)
	return eval
}

// Grade scores a submission and stores it as a new result. Every call creates
// a new row; earlier results are left alone. Only students who redeemed a
// code for the quiz may submit.
func (g *Grader) Grade(ctx context.Context, quizID, studentID uint, submissions []Submission) (*GradeResult, error) {
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, classify(err, "load quiz")
	}
	if err := requireAccess(ctx, g.gate, studentID, quizID); err != nil {
		return nil, err
	}

	eval := Evaluate(quiz, submissions)
	result := &models.QuizResult{
		StudentID:   studentID,
		QuizID:      quizID,
		Score:       eval.Score,
		CompletedAt: g.now().UTC(),
		Answers:     eval.Answers,
	}

	err = g.repo.Transaction(ctx, func(tx Store) error {
		return tx.CreateResult(ctx, result)
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "save result for quiz %d", quizID)
	}

	log.Printf("Student %d scored %d/%d on quiz %d", studentID, eval.Score, eval.Total, quizID)
	if g.notifier != nil {
		g.notifier.BroadcastMessage(room(quizID), "quiz_submitted", map[string]interface{}{
			"studentId":  studentID,
			"resultId":   result.ID,
			"score":      eval.Score,
			"total":      eval.Total,
			"percentage": eval.Percentage,
		})
	}

	return &GradeResult{
		ResultID:    result.ID,
		Score:       eval.Score,
		Total:       eval.Total,
		Percentage:  eval.Percentage,
		CompletedAt: result.CompletedAt,
		Details:     eval.Details,
	}, nil
}
