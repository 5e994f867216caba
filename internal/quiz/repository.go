package quiz

import (
	"context"
	"errors"
	"log"

	"quizgate/internal/apperr"
	"quizgate/internal/models"

	"gorm.io/gorm"
)

// Store is the persistence contract for quiz content and results. Reads return
// detached value graphs; nothing is lazily loaded afterwards.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetQuizGraph(ctx context.Context, quizID uint) (*models.Quiz, error)
	QuizOwner(ctx context.Context, quizID uint) (uint, error)
	QuizzesByIDs(ctx context.Context, ids []uint) ([]models.Quiz, error)
	QuizzesForTeacher(ctx context.Context, teacherID uint) ([]models.Quiz, error)
	CreatePlanner(ctx context.Context, planner *models.LessonPlanner) error
	GetPlanner(ctx context.Context, id uint) (*models.LessonPlanner, error)
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error

	CreateResult(ctx context.Context, result *models.QuizResult) error
	ResultsFor(ctx context.Context, studentID, quizID uint) ([]models.QuizResult, error)
	ResultsForStudent(ctx context.Context, studentID uint) ([]models.QuizResult, error)
	ResultsForQuizzes(ctx context.Context, quizIDs []uint) ([]models.QuizResult, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) GetQuizGraph(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&quiz, quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("quiz %d not found", quizID)
	}
	if err != nil {
		log.Printf("Error loading quiz %d: %v", quizID, err)
		return nil, err
	}
	return &quiz, nil
}

func (r *Repository) QuizOwner(ctx context.Context, quizID uint) (uint, error) {
	var owner struct {
		TeacherID uint
	}
	result := r.db.WithContext(ctx).
		Table("quizzes").
		Select("lesson_planners.teacher_id").
		Joins("JOIN lesson_planners ON lesson_planners.id = quizzes.lesson_planner_id").
		Where("quizzes.id = ?", quizID).
		Limit(1).
		Scan(&owner)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, apperr.NotFound("quiz %d not found", quizID)
	}
	return owner.TeacherID, nil
}

func (r *Repository) QuizzesByIDs(ctx context.Context, ids []uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if len(ids) == 0 {
		return quizzes, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Questions").
		Where("id IN ?", ids).
		Find(&quizzes).Error
	return quizzes, err
}

func (r *Repository) QuizzesForTeacher(ctx context.Context, teacherID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).
		Select("quizzes.*").
		Joins("JOIN lesson_planners ON lesson_planners.id = quizzes.lesson_planner_id").
		Where("lesson_planners.teacher_id = ?", teacherID).
		Order("quizzes.created_at DESC").
		Order("quizzes.id DESC").
		Find(&quizzes).Error
	if err != nil {
		log.Printf("Error getting quizzes for teacher %d: %v", teacherID, err)
	}
	return quizzes, err
}

func (r *Repository) CreatePlanner(ctx context.Context, planner *models.LessonPlanner) error {
	return r.db.WithContext(ctx).Create(planner).Error
}

func (r *Repository) GetPlanner(ctx context.Context, id uint) (*models.LessonPlanner, error) {
	var planner models.LessonPlanner
	err := r.db.WithContext(ctx).First(&planner, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("lesson planner %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &planner, nil
}

// CreateQuiz inserts the quiz with its questions and answers in one statement batch.
func (r *Repository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	if err := r.db.WithContext(ctx).Create(quiz).Error; err != nil {
		log.Printf("Error creating quiz: %v", err)
		return err
	}
	log.Printf("Created quiz with ID: %d", quiz.ID)
	return nil
}

func (r *Repository) CreateResult(ctx context.Context, result *models.QuizResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *Repository) ResultsFor(ctx context.Context, studentID, quizID uint) ([]models.QuizResult, error) {
	var results []models.QuizResult
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Order("completed_at DESC").
		Order("id DESC").
		Find(&results).Error
	return results, err
}

func (r *Repository) ResultsForStudent(ctx context.Context, studentID uint) ([]models.QuizResult, error) {
	var results []models.QuizResult
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("completed_at DESC").
		Order("id DESC").
		Find(&results).Error
	return results, err
}

func (r *Repository) ResultsForQuizzes(ctx context.Context, quizIDs []uint) ([]models.QuizResult, error) {
	var results []models.QuizResult
	if len(quizIDs) == 0 {
		return results, nil
	}
	err := r.db.WithContext(ctx).
		Where("quiz_id IN ?", quizIDs).
		Order("completed_at DESC").
		Find(&results).Error
	return results, err
}
