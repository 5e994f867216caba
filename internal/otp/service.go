package otp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/models"
)

// QuizSource is the read side of quiz content the OTP flow depends on.
type QuizSource interface {
	GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error)
	QuizOwner(ctx context.Context, quizID uint) (uint, error)
}

// Notifier pushes live events to whoever watches a quiz.
type Notifier interface {
	BroadcastMessage(room string, messageType string, data interface{})
}

type Service struct {
	store     Store
	quizzes   QuizSource
	notifier  Notifier
	generator *Generator
	accessLog *AccessLog
	now       func() time.Time
}

func NewService(store Store, quizzes QuizSource, notifier Notifier, codeLength int) *Service {
	s := &Service{
		store:     store,
		quizzes:   quizzes,
		notifier:  notifier,
		accessLog: NewAccessLog(store),
		now:       time.Now,
	}
	s.generator = NewGenerator(codeLength, store.ActiveCodeExists)
	return s
}

type GenerateRequest struct {
	QuizID        uint
	ExpiryMinutes int
	MaxUsage      *int
}

// Redemption is what a student gets back after presenting a valid code.
type Redemption struct {
	OTP              models.QuizOTP
	Quiz             models.QuizDTO
	FirstAccess      bool
	PreviousAccessAt *time.Time
}

func (s *Service) Generate(ctx context.Context, teacherID uint, req GenerateRequest) (*models.QuizOTP, error) {
	if req.ExpiryMinutes <= 0 {
		return nil, apperr.Validation("expiry minutes must be positive")
	}
	if req.MaxUsage != nil && *req.MaxUsage <= 0 {
		return nil, apperr.Validation("max usage must be positive when set")
	}
	if err := s.checkOwner(ctx, teacherID, req.QuizID); err != nil {
		return nil, err
	}

	code, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err, "generate code for quiz %d", req.QuizID)
	}

	now := s.now().UTC()
	otp := &models.QuizOTP{
		Code:      code,
		QuizID:    req.QuizID,
		CreatorID: teacherID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(req.ExpiryMinutes) * time.Minute),
		IsActive:  true,
		MaxUsage:  req.MaxUsage,
	}
	if err := s.store.CreateOTP(ctx, otp); err != nil {
		return nil, apperr.Unexpected(err, "persist code for quiz %d", req.QuizID)
	}
	log.Printf("Generated access code %d for quiz %d by teacher %d", otp.ID, otp.QuizID, teacherID)
	return otp, nil
}

// ValidateAndConsume redeems a code. The checks, the usage increment and the
// access log row commit together while the code row is locked, so a code with
// one use left is handed out exactly once. The quiz is loaded before the lock
// is taken.
func (s *Service) ValidateAndConsume(ctx context.Context, code string, studentID uint) (*Redemption, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperr.Validation("code is required")
	}

	current, err := s.store.FindOTPByCode(ctx, code)
	if err != nil {
		return nil, classify(err, "look up code")
	}
	if err := checkUsable(current, s.now()); err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, current.QuizID)
	if err != nil {
		return nil, classify(err, "load quiz")
	}

	var redemption *Redemption
	err = s.store.Transaction(ctx, func(tx Store) error {
		otp, err := tx.LockOTPByCode(ctx, code)
		if err != nil {
			return err
		}
		if err := checkUsable(otp, s.now()); err != nil {
			return err
		}
		if otp.QuizID != current.QuizID {
			// The code was reissued for another quiz since the lookup.
			return apperr.NotFound("access code not found")
		}

		accessLog := s.accessLog.With(tx)
		previous, err := accessLog.LatestAccess(ctx, otp.ID, studentID)
		if err != nil {
			return err
		}
		if err := tx.IncrementUsage(ctx, otp.ID); err != nil {
			return apperr.Unexpected(err, "consume code %d", otp.ID)
		}
		otp.UsageCount++
		if _, err := accessLog.LogAccess(ctx, otp.ID, studentID); err != nil {
			return err
		}

		redemption = &Redemption{
			OTP:         *otp,
			Quiz:        quiz.ToStudentDTO(),
			FirstAccess: previous == nil,
		}
		if previous != nil {
			at := previous.AccessedAt
			redemption.PreviousAccessAt = &at
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "validate code")
	}

	log.Printf("Student %d redeemed code %d for quiz %d (%d uses)", studentID, redemption.OTP.ID, redemption.OTP.QuizID, redemption.OTP.UsageCount)
	s.notify(redemption.OTP.QuizID, "otp_access", map[string]interface{}{
		"otpId":       redemption.OTP.ID,
		"studentId":   studentID,
		"usageCount":  redemption.OTP.UsageCount,
		"firstAccess": redemption.FirstAccess,
	})
	return redemption, nil
}

// checkUsable applies the validation order: expiry, then revocation, then cap.
func checkUsable(otp *models.QuizOTP, now time.Time) error {
	switch {
	case otp.Expired(now):
		return apperr.ErrExpired
	case !otp.IsActive:
		return apperr.ErrRevoked
	case otp.Exhausted():
		return apperr.ErrUsageExceeded
	}
	return nil
}

func (s *Service) Revoke(ctx context.Context, teacherID, otpID uint) (*models.QuizOTP, error) {
	otp, err := s.store.GetOTP(ctx, otpID)
	if err != nil {
		return nil, classify(err, "load code")
	}
	if otp.CreatorID != teacherID {
		return nil, apperr.Forbidden("access code %d belongs to another teacher", otpID)
	}
	if !otp.IsActive {
		return otp, nil
	}
	if err := s.store.Deactivate(ctx, otpID); err != nil {
		return nil, apperr.Unexpected(err, "revoke code %d", otpID)
	}
	otp.IsActive = false
	log.Printf("Teacher %d revoked access code %d", teacherID, otpID)
	return otp, nil
}

func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeactivateExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, apperr.Unexpected(err, "sweep expired codes")
	}
	log.Printf("Swept %d expired access code(s)", n)
	return n, nil
}

// PurgeExpired deletes expired codes and their access history for good.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.Transaction(ctx, func(tx Store) error {
		var err error
		n, err = tx.DeleteExpired(ctx, s.now().UTC())
		return err
	})
	if err != nil {
		return 0, apperr.Unexpected(err, "purge expired codes")
	}
	log.Printf("Purged %d expired access code(s)", n)
	return n, nil
}

func (s *Service) ListForQuiz(ctx context.Context, teacherID, quizID uint) ([]models.OTPDTO, error) {
	if err := s.checkOwner(ctx, teacherID, quizID); err != nil {
		return nil, err
	}
	otps, err := s.store.ListOTPsForQuiz(ctx, quizID)
	if err != nil {
		return nil, apperr.Unexpected(err, "list codes for quiz %d", quizID)
	}
	now := s.now()
	out := make([]models.OTPDTO, 0, len(otps))
	for _, otp := range otps {
		count, err := s.accessLog.CountForOtp(ctx, otp.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, otp.ToDTO(now, count))
	}
	return out, nil
}

// Status is the derived state of a code at this moment.
func (s *Service) Status(otp models.QuizOTP) string {
	return otp.Status(s.now())
}

func (s *Service) AccessLog() *AccessLog {
	return s.accessLog
}

func (s *Service) checkOwner(ctx context.Context, teacherID, quizID uint) error {
	owner, err := s.quizzes.QuizOwner(ctx, quizID)
	if err != nil {
		return classify(err, "load quiz owner")
	}
	if owner != teacherID {
		return apperr.Forbidden("quiz %d belongs to another teacher", quizID)
	}
	return nil
}

func (s *Service) notify(quizID uint, messageType string, data interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastMessage(fmt.Sprint(quizID), messageType, data)
}

// NormalizeCode makes lookups case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// classify keeps already classified errors and marks the rest unexpected.
func classify(err error, op string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Unexpected(err, "%s", op)
}
