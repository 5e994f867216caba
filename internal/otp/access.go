package otp

import (
	"context"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/models"
)

// AccessLog is the append-only record of students entering a quiz through a
// code. It never gates access; the usage cap on the code does that.
type AccessLog struct {
	store Store
	now   func() time.Time
}

func NewAccessLog(store Store) *AccessLog {
	return &AccessLog{store: store, now: time.Now}
}

// With binds the log to another store, typically one inside a transaction.
func (a *AccessLog) With(store Store) *AccessLog {
	return &AccessLog{store: store, now: a.now}
}

func (a *AccessLog) LogAccess(ctx context.Context, otpID, studentID uint) (*models.QuizOTPAccess, error) {
	access := &models.QuizOTPAccess{
		OTPID:      otpID,
		StudentID:  studentID,
		AccessedAt: a.now().UTC(),
	}
	if err := a.store.CreateAccess(ctx, access); err != nil {
		return nil, apperr.Unexpected(err, "log access for otp %d", otpID)
	}
	return access, nil
}

func (a *AccessLog) HasAccessed(ctx context.Context, otpID, studentID uint) (bool, error) {
	ok, err := a.store.AccessExists(ctx, otpID, studentID)
	if err != nil {
		return false, apperr.Unexpected(err, "check access for otp %d", otpID)
	}
	return ok, nil
}

// LatestAccess returns nil when the student never used the code.
func (a *AccessLog) LatestAccess(ctx context.Context, otpID, studentID uint) (*models.QuizOTPAccess, error) {
	access, err := a.store.LatestAccess(ctx, otpID, studentID)
	if err != nil {
		return nil, apperr.Unexpected(err, "load latest access for otp %d", otpID)
	}
	return access, nil
}

func (a *AccessLog) CountForOtp(ctx context.Context, otpID uint) (int64, error) {
	n, err := a.store.CountAccesses(ctx, otpID)
	if err != nil {
		return 0, apperr.Unexpected(err, "count accesses for otp %d", otpID)
	}
	return n, nil
}

// HasQuizAccess reports whether the student entered the quiz through any of
// its codes. Attempts and submissions are gated on it.
func (a *AccessLog) HasQuizAccess(ctx context.Context, studentID, quizID uint) (bool, error) {
	ok, err := a.store.QuizAccessExists(ctx, studentID, quizID)
	if err != nil {
		return false, apperr.Unexpected(err, "check access to quiz %d", quizID)
	}
	return ok, nil
}
