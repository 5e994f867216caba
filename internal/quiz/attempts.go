package quiz

import (
	"context"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/models"
)

// Tracker answers attempt questions per student and quiz. A result with a
// positive score is a completed attempt and a zero score is in progress, so a
// fully wrong submission reads as not attempted. That is the established
// behaviour and is kept as is.
type Tracker struct {
	repo Store
	gate AccessGate
	now  func() time.Time
}

func NewTracker(repo Store, gate AccessGate) *Tracker {
	return &Tracker{repo: repo, gate: gate, now: time.Now}
}

func completed(r models.QuizResult) bool {
	return r.Score > 0
}

func (t *Tracker) results(ctx context.Context, studentID, quizID uint) ([]models.QuizResult, error) {
	results, err := t.repo.ResultsFor(ctx, studentID, quizID)
	if err != nil {
		return nil, apperr.Unexpected(err, "load results for quiz %d", quizID)
	}
	return results, nil
}

func (t *Tracker) HasAttempted(ctx context.Context, studentID, quizID uint) (bool, error) {
	n, err := t.AttemptCount(ctx, studentID, quizID)
	return n > 0, err
}

// LatestResult is the newest result of any kind, or nil.
func (t *Tracker) LatestResult(ctx context.Context, studentID, quizID uint) (*models.QuizResult, error) {
	results, err := t.results(ctx, studentID, quizID)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

func (t *Tracker) InProgressResult(ctx context.Context, studentID, quizID uint) (*models.QuizResult, error) {
	results, err := t.results(ctx, studentID, quizID)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if !completed(results[i]) {
			return &results[i], nil
		}
	}
	return nil, nil
}

// CompletedResults are newest first.
func (t *Tracker) CompletedResults(ctx context.Context, studentID, quizID uint) ([]models.QuizResult, error) {
	results, err := t.results(ctx, studentID, quizID)
	if err != nil {
		return nil, err
	}
	return completedOnly(results), nil
}

func (t *Tracker) BestScore(ctx context.Context, studentID, quizID uint) (int, error) {
	done, err := t.CompletedResults(ctx, studentID, quizID)
	if err != nil {
		return 0, err
	}
	return bestScore(done), nil
}

func (t *Tracker) AttemptCount(ctx context.Context, studentID, quizID uint) (int, error) {
	done, err := t.CompletedResults(ctx, studentID, quizID)
	if err != nil {
		return 0, err
	}
	return len(done), nil
}

// StartAttempt reuses the newest in-progress result or opens a new one. The
// student must have redeemed a code for the quiz.
func (t *Tracker) StartAttempt(ctx context.Context, studentID, quizID uint) (*models.QuizResult, error) {
	if err := requireAccess(ctx, t.gate, studentID, quizID); err != nil {
		return nil, err
	}
	existing, err := t.InProgressResult(ctx, studentID, quizID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	result := &models.QuizResult{
		StudentID:   studentID,
		QuizID:      quizID,
		CompletedAt: t.now().UTC(),
	}
	if err := t.repo.CreateResult(ctx, result); err != nil {
		return nil, apperr.Unexpected(err, "start attempt on quiz %d", quizID)
	}
	return result, nil
}

// History lists a student's completed attempts across all quizzes, newest first.
func (t *Tracker) History(ctx context.Context, studentID uint) ([]models.ResultSummaryDTO, error) {
	results, err := t.repo.ResultsForStudent(ctx, studentID)
	if err != nil {
		return nil, apperr.Unexpected(err, "load history for student %d", studentID)
	}

	var quizIDs []uint
	seen := make(map[uint]bool)
	for _, r := range results {
		if completed(r) && !seen[r.QuizID] {
			seen[r.QuizID] = true
			quizIDs = append(quizIDs, r.QuizID)
		}
	}
	quizzes, err := t.repo.QuizzesByIDs(ctx, quizIDs)
	if err != nil {
		return nil, apperr.Unexpected(err, "load quizzes for history")
	}
	byID := make(map[uint]models.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}

	history := make([]models.ResultSummaryDTO, 0, len(results))
	for _, r := range results {
		if !completed(r) {
			continue
		}
		quiz := byID[r.QuizID]
		history = append(history, models.ResultSummaryDTO{
			ResultID:    r.ID,
			QuizID:      r.QuizID,
			QuizTitle:   quiz.Title,
			Score:       r.Score,
			Total:       quiz.TotalQuestions(),
			Percentage:  Percentage(r.Score, quiz.TotalQuestions()),
			CompletedAt: r.CompletedAt,
		})
	}
	return history, nil
}

func bestScore(results []models.QuizResult) int {
	best := 0
	for _, r := range results {
		if r.Score > best {
			best = r.Score
		}
	}
	return best
}
