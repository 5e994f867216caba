package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestQuizOTPStatus(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	two := 2

	tests := []struct {
		name string
		otp  QuizOTP
		want string
	}{
		{"active", QuizOTP{IsActive: true, ExpiresAt: now.Add(time.Minute)}, OTPStatusActive},
		{"active at expiry instant", QuizOTP{IsActive: true, ExpiresAt: now}, OTPStatusActive},
		{"expired", QuizOTP{IsActive: true, ExpiresAt: now.Add(-time.Second)}, OTPStatusExpired},
		{"exhausted", QuizOTP{IsActive: true, ExpiresAt: now.Add(time.Hour), UsageCount: 2, MaxUsage: &two}, OTPStatusMaxUsage},
		{"expired wins over exhausted", QuizOTP{IsActive: true, ExpiresAt: now.Add(-time.Hour), UsageCount: 2, MaxUsage: &two}, OTPStatusExpired},
		{"revoked wins over everything", QuizOTP{IsActive: false, ExpiresAt: now.Add(-time.Hour), UsageCount: 5, MaxUsage: &two}, OTPStatusRevoked},
		{"unlimited never exhausts", QuizOTP{IsActive: true, ExpiresAt: now.Add(time.Hour), UsageCount: 1000}, OTPStatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.otp.Status(now); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStudentProjectionStripsAnswerKey(t *testing.T) {
	quiz := Quiz{
		ID:    3,
		Title: "Capitals",
		Questions: []Question{{
			ID:      1,
			Content: "Capital of France?",
			Answers: []Answer{
				{ID: 1, Content: "Paris", IsCorrect: true},
				{ID: 2, Content: "Lyon"},
			},
		}},
	}

	student := quiz.ToStudentDTO()
	payload, err := json.Marshal(student)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(payload), "is_correct") {
		t.Fatalf("student payload leaks answer key: %s", payload)
	}
	if len(student.Questions[0].Options) != 2 {
		t.Fatalf("options dropped: %+v", student.Questions[0])
	}

	keyed := quiz.ToDTO(true)
	if c := keyed.Questions[0].Options[0].IsCorrect; c == nil || !*c {
		t.Fatalf("answer key missing from keyed projection")
	}
}

func TestQuestionLookups(t *testing.T) {
	q := Question{Answers: []Answer{{ID: 4}, {ID: 5, IsCorrect: true}, {ID: 6, IsCorrect: true}}}

	if a := q.CorrectAnswer(); a == nil || a.ID != 5 {
		t.Fatalf("CorrectAnswer() = %+v, want first correct", a)
	}
	if q.FindAnswer(6) == nil || q.FindAnswer(9) != nil {
		t.Fatalf("FindAnswer mismatch")
	}
	if (Question{}).CorrectAnswer() != nil {
		t.Fatalf("question without answers has no key")
	}
}
