package models

import "time"

type QuizDTO struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Questions   []QuestionDTO `json:"questions"`
}

type QuestionDTO struct {
	ID      uint        `json:"id"`
	Content string      `json:"content"`
	Options []OptionDTO `json:"options"`
}

// OptionDTO carries IsCorrect only for the answer-key projection.
type OptionDTO struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// ToDTO maps a question for the wire. withKey=false strips correctness so the
// payload is safe to hand to a student.
func (q Question) ToDTO(withKey bool) QuestionDTO {
	options := make([]OptionDTO, len(q.Answers))
	for i, a := range q.Answers {
		options[i] = OptionDTO{
			ID:      a.ID,
			Content: a.Content,
		}
		if withKey {
			correct := a.IsCorrect
			options[i].IsCorrect = &correct
		}
	}
	return QuestionDTO{
		ID:      q.ID,
		Content: q.Content,
		Options: options,
	}
}

func (q Quiz) ToDTO(withKey bool) QuizDTO {
	questions := make([]QuestionDTO, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = question.ToDTO(withKey)
	}
	return QuizDTO{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Questions:   questions,
	}
}

// ToStudentDTO is the projection served after an OTP is redeemed.
func (q Quiz) ToStudentDTO() QuizDTO {
	return q.ToDTO(false)
}

type OTPDTO struct {
	ID          uint      `json:"id"`
	Code        string    `json:"code"`
	QuizID      uint      `json:"quiz_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsActive    bool      `json:"is_active"`
	UsageCount  int       `json:"usage_count"`
	MaxUsage    *int      `json:"max_usage,omitempty"`
	Status      string    `json:"status"`
	AccessCount int64     `json:"access_count"`
}

func (o QuizOTP) ToDTO(now time.Time, accessCount int64) OTPDTO {
	return OTPDTO{
		ID:          o.ID,
		Code:        o.Code,
		QuizID:      o.QuizID,
		CreatedAt:   o.CreatedAt,
		ExpiresAt:   o.ExpiresAt,
		IsActive:    o.IsActive,
		UsageCount:  o.UsageCount,
		MaxUsage:    o.MaxUsage,
		Status:      o.Status(now),
		AccessCount: accessCount,
	}
}

type QuestionResultDTO struct {
	QuestionID    uint   `json:"question_id"`
	Question      string `json:"question"`
	ChosenAnswer  string `json:"chosen_answer,omitempty"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

type ResultSummaryDTO struct {
	ResultID    uint      `json:"result_id"`
	QuizID      uint      `json:"quiz_id"`
	QuizTitle   string    `json:"quiz_title"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
	CompletedAt time.Time `json:"completed_at"`
}
