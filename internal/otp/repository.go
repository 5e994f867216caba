package otp

import (
	"context"
	"errors"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence contract of the OTP subsystem. Transaction hands the
// callback a Store bound to a single database transaction, which is the unit of
// work every multi-step operation runs in.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	ActiveCodeExists(ctx context.Context, code string) (bool, error)
	CreateOTP(ctx context.Context, otp *models.QuizOTP) error
	GetOTP(ctx context.Context, id uint) (*models.QuizOTP, error)
	// FindOTPByCode loads the record for code, active first, without locking.
	FindOTPByCode(ctx context.Context, code string) (*models.QuizOTP, error)
	// LockOTPByCode is FindOTPByCode holding a row lock until the surrounding
	// transaction ends.
	LockOTPByCode(ctx context.Context, code string) (*models.QuizOTP, error)
	IncrementUsage(ctx context.Context, id uint) error
	Deactivate(ctx context.Context, id uint) error
	ListOTPsForQuiz(ctx context.Context, quizID uint) ([]models.QuizOTP, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	CreateAccess(ctx context.Context, access *models.QuizOTPAccess) error
	AccessExists(ctx context.Context, otpID, studentID uint) (bool, error)
	LatestAccess(ctx context.Context, otpID, studentID uint) (*models.QuizOTPAccess, error)
	CountAccesses(ctx context.Context, otpID uint) (int64, error)
	QuizAccessExists(ctx context.Context, studentID, quizID uint) (bool, error)
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

func (r *Repository) ActiveCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizOTP{}).
		Where("code = ? AND is_active = ?", code, true).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateOTP(ctx context.Context, otp *models.QuizOTP) error {
	return r.db.WithContext(ctx).Create(otp).Error
}

func (r *Repository) GetOTP(ctx context.Context, id uint) (*models.QuizOTP, error) {
	var otp models.QuizOTP
	err := r.db.WithContext(ctx).First(&otp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("access code %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// Inactive rows may share a code with a newer active one, so the active row
// wins, then the most recent.
func (r *Repository) byCode(db *gorm.DB, code string) (*models.QuizOTP, error) {
	var otp models.QuizOTP
	err := db.
		Where("code = ?", code).
		Order("is_active DESC").
		Order("created_at DESC").
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("access code not found")
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *Repository) FindOTPByCode(ctx context.Context, code string) (*models.QuizOTP, error) {
	return r.byCode(r.db.WithContext(ctx), code)
}

func (r *Repository) LockOTPByCode(ctx context.Context, code string) (*models.QuizOTP, error) {
	return r.byCode(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), code)
}

func (r *Repository) IncrementUsage(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.QuizOTP{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

func (r *Repository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.QuizOTP{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false).Error
}

func (r *Repository) ListOTPsForQuiz(ctx context.Context, quizID uint) ([]models.QuizOTP, error) {
	var otps []models.QuizOTP
	err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("created_at DESC").
		Find(&otps).Error
	return otps, err
}

func (r *Repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.QuizOTP{}).
		Where("is_active = ? AND expires_at <= ?", true, now).
		UpdateColumn("is_active", false)
	return result.RowsAffected, result.Error
}

// DeleteExpired removes the access log of the purged codes first so no
// orphaned rows are left even where the FK has no cascade.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db := r.db.WithContext(ctx)
	expired := db.Model(&models.QuizOTP{}).Select("id").Where("expires_at <= ?", now)
	if err := db.Where("otp_id IN (?)", expired).Delete(&models.QuizOTPAccess{}).Error; err != nil {
		return 0, err
	}
	result := db.Where("expires_at <= ?", now).Delete(&models.QuizOTP{})
	return result.RowsAffected, result.Error
}

func (r *Repository) CreateAccess(ctx context.Context, access *models.QuizOTPAccess) error {
	return r.db.WithContext(ctx).Create(access).Error
}

func (r *Repository) AccessExists(ctx context.Context, otpID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizOTPAccess{}).
		Where("otp_id = ? AND student_id = ?", otpID, studentID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) LatestAccess(ctx context.Context, otpID, studentID uint) (*models.QuizOTPAccess, error) {
	var access models.QuizOTPAccess
	err := r.db.WithContext(ctx).
		Where("otp_id = ? AND student_id = ?", otpID, studentID).
		Order("accessed_at DESC").
		Order("id DESC").
		First(&access).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &access, nil
}

func (r *Repository) CountAccesses(ctx context.Context, otpID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizOTPAccess{}).
		Where("otp_id = ?", otpID).
		Count(&count).Error
	return count, err
}

// QuizAccessExists reports whether the student redeemed any code of the quiz.
func (r *Repository) QuizAccessExists(ctx context.Context, studentID, quizID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizOTPAccess{}).
		Joins("JOIN quiz_otps ON quiz_otps.id = quiz_otp_accesses.otp_id").
		Where("quiz_otp_accesses.student_id = ? AND quiz_otps.quiz_id = ?", studentID, quizID).
		Count(&count).Error
	return count > 0, err
}
