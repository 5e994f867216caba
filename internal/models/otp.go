package models

import "time"

const (
	OTPStatusActive   = "Active"
	OTPStatusExpired  = "Expired"
	OTPStatusRevoked  = "Revoked"
	OTPStatusMaxUsage = "Max Usage Reached"
)

type QuizOTP struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Code       string          `json:"code" gorm:"size:16;index;not null"`
	QuizID     uint            `json:"quiz_id" gorm:"index;not null"`
	CreatorID  uint            `json:"creator_id" gorm:"not null"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at" gorm:"index;not null"`
	IsActive   bool            `json:"is_active" gorm:"not null;default:true"`
	UsageCount int             `json:"usage_count" gorm:"not null;default:0"`
	MaxUsage   *int            `json:"max_usage"`
	Accesses   []QuizOTPAccess `json:"-" gorm:"foreignKey:OTPID;constraint:OnDelete:CASCADE"`
}

// TableName keeps the acronym readable in the schema.
func (QuizOTP) TableName() string {
	return "quiz_otps"
}

type QuizOTPAccess struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OTPID      uint      `json:"otp_id" gorm:"column:otp_id;index:idx_access_otp_student;not null"`
	StudentID  uint      `json:"student_id" gorm:"index:idx_access_otp_student;not null"`
	AccessedAt time.Time `json:"accessed_at" gorm:"not null"`
}

func (QuizOTPAccess) TableName() string {
	return "quiz_otp_accesses"
}

// Status derives the display state. Order matters: an inactive code is always
// reported as revoked, even when it is also expired or exhausted.
func (o QuizOTP) Status(now time.Time) string {
	switch {
	case !o.IsActive:
		return OTPStatusRevoked
	case o.Expired(now):
		return OTPStatusExpired
	case o.Exhausted():
		return OTPStatusMaxUsage
	default:
		return OTPStatusActive
	}
}

func (o QuizOTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

func (o QuizOTP) Exhausted() bool {
	return o.MaxUsage != nil && o.UsageCount >= *o.MaxUsage
}
