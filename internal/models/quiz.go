package models

import (
	"time"
)

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email"`
	Password  string    `json:"-" gorm:"not null"`
	Role      string    `json:"role" gorm:"not null;default:student"`
}

// LessonPlanner groups quizzes under a teacher. Quiz ownership is resolved through it.
type LessonPlanner struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	TeacherID uint      `json:"teacher_id" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Quizzes   []Quiz    `json:"quizzes,omitempty" gorm:"foreignKey:LessonPlannerID;constraint:OnDelete:CASCADE"`
}

type Quiz struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	CreatedAt       time.Time  `json:"created_at"`
	LessonPlannerID uint       `json:"lesson_planner_id" gorm:"index;not null"`
	Title           string     `json:"title" gorm:"not null"`
	Description     string     `json:"description"`
	Questions       []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

type Question struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	QuizID   uint     `json:"quiz_id" gorm:"index;not null"`
	Content  string   `json:"content" gorm:"not null"`
	Position int      `json:"position"`
	Answers  []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	Content    string `json:"content" gorm:"not null"`
	IsCorrect  bool   `json:"is_correct"`
}

// QuizResult is one attempt. Score 0 is read as "in progress".
type QuizResult struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	StudentID   uint         `json:"student_id" gorm:"index:idx_result_student_quiz;not null"`
	QuizID      uint         `json:"quiz_id" gorm:"index:idx_result_student_quiz;not null"`
	Score       int          `json:"score"`
	CompletedAt time.Time    `json:"completed_at"`
	Answers     []UserAnswer `json:"answers,omitempty" gorm:"foreignKey:ResultID;constraint:OnDelete:CASCADE"`
}

type UserAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ResultID   uint `json:"result_id" gorm:"index;not null"`
	QuestionID uint `json:"question_id" gorm:"not null"`
	AnswerID   uint `json:"answer_id" gorm:"not null"`
}

// TotalQuestions counts the questions loaded with the quiz.
func (q Quiz) TotalQuestions() int {
	return len(q.Questions)
}

// CorrectAnswer returns the first answer flagged correct, or nil.
func (q Question) CorrectAnswer() *Answer {
	for i := range q.Answers {
		if q.Answers[i].IsCorrect {
			return &q.Answers[i]
		}
	}
	return nil
}

// FindAnswer returns the answer with the given id if it belongs to the question.
func (q Question) FindAnswer(id uint) *Answer {
	for i := range q.Answers {
		if q.Answers[i].ID == id {
			return &q.Answers[i]
		}
	}
	return nil
}
