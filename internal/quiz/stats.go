package quiz

import (
	"context"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/models"
)

const recentQuizLimit = 5

type QuizStatistics struct {
	QuizID           uint    `json:"quizId"`
	TotalQuestions   int     `json:"totalQuestions"`
	TotalAttempts    int     `json:"totalAttempts"`
	AverageScore     float64 `json:"averageScore"`
	HighestScore     int     `json:"highestScore"`
	StudentBestScore int     `json:"studentBestScore"`
	StudentAttempts  int     `json:"studentAttempts"`
}

type RecentQuiz struct {
	QuizID       uint      `json:"quizId"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	TimesTaken   int       `json:"timesTaken"`
	AverageScore float64   `json:"averageScore"`
}

type DashboardSummary struct {
	QuizzesCreated    int          `json:"quizzesCreated"`
	CompletedAttempts int          `json:"completedAttempts"`
	AverageScore      float64      `json:"averageScore"`
	RecentQuizzes     []RecentQuiz `json:"recentQuizzes"`
}

// Stats aggregates completed results. Only positive scores count, matching
// the Tracker's notion of a completed attempt.
type Stats struct {
	repo    Store
	tracker *Tracker
}

func NewStats(repo Store, tracker *Tracker) *Stats {
	return &Stats{repo: repo, tracker: tracker}
}

func (s *Stats) QuizStatistics(ctx context.Context, quizID, studentID uint) (*QuizStatistics, error) {
	quizzes, err := s.repo.QuizzesByIDs(ctx, []uint{quizID})
	if err != nil {
		return nil, apperr.Unexpected(err, "load quiz %d", quizID)
	}
	if len(quizzes) == 0 {
		return nil, apperr.NotFound("quiz %d not found", quizID)
	}

	results, err := s.repo.ResultsForQuizzes(ctx, []uint{quizID})
	if err != nil {
		return nil, apperr.Unexpected(err, "load results for quiz %d", quizID)
	}
	done := completedOnly(results)

	stats := &QuizStatistics{
		QuizID:         quizID,
		TotalQuestions: quizzes[0].TotalQuestions(),
		TotalAttempts:  len(done),
		AverageScore:   averageScore(done),
		HighestScore:   bestScore(done),
	}

	if stats.StudentBestScore, err = s.tracker.BestScore(ctx, studentID, quizID); err != nil {
		return nil, err
	}
	if stats.StudentAttempts, err = s.tracker.AttemptCount(ctx, studentID, quizID); err != nil {
		return nil, err
	}
	return stats, nil
}

// TeacherDashboardSummary covers every quiz reachable through the teacher's
// lesson planners.
func (s *Stats) TeacherDashboardSummary(ctx context.Context, teacherID uint) (*DashboardSummary, error) {
	quizzes, err := s.repo.QuizzesForTeacher(ctx, teacherID)
	if err != nil {
		return nil, apperr.Unexpected(err, "load quizzes for teacher %d", teacherID)
	}

	ids := make([]uint, len(quizzes))
	for i, q := range quizzes {
		ids[i] = q.ID
	}
	results, err := s.repo.ResultsForQuizzes(ctx, ids)
	if err != nil {
		return nil, apperr.Unexpected(err, "load results for teacher %d", teacherID)
	}
	done := completedOnly(results)

	byQuiz := make(map[uint][]models.QuizResult)
	for _, r := range done {
		byQuiz[r.QuizID] = append(byQuiz[r.QuizID], r)
	}

	summary := &DashboardSummary{
		QuizzesCreated:    len(quizzes),
		CompletedAttempts: len(done),
		AverageScore:      averageScore(done),
		RecentQuizzes:     make([]RecentQuiz, 0, recentQuizLimit),
	}
	for i, q := range quizzes {
		if i == recentQuizLimit {
			break
		}
		summary.RecentQuizzes = append(summary.RecentQuizzes, RecentQuiz{
			QuizID:       q.ID,
			Title:        q.Title,
			CreatedAt:    q.CreatedAt,
			TimesTaken:   len(byQuiz[q.ID]),
			AverageScore: averageScore(byQuiz[q.ID]),
		})
	}
	return summary, nil
}

func completedOnly(results []models.QuizResult) []models.QuizResult {
	done := make([]models.QuizResult, 0, len(results))
	for _, r := range results {
		if completed(r) {
			done = append(done, r)
		}
	}
	return done
}

func averageScore(results []models.QuizResult) float64 {
	if len(results) == 0 {
		return 0
	}
	total := 0
	for _, r := range results {
		total += r.Score
	}
	return round2(float64(total) / float64(len(results)))
}
