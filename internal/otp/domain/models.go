package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Purpose string

const PurposeRegister Purpose = "register"

// OTP is a one-time verification code bound to an email address.
type OTP struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Email     string       `json:"email" gorm:"type:varchar(320);not null;index:ix_otps_email_purpose,priority:1"`
	Purpose   Purpose      `json:"purpose" gorm:"type:varchar(32);not null;index:ix_otps_email_purpose,priority:2"`
	Code      string       `json:"-" gorm:"type:varchar(12);not null"`
	Attempts  int          `json:"attempts" gorm:"not null;default:0"`
	ExpiresAt time.Time    `json:"expiresAt" gorm:"not null;index"`
	CreatedAt time.Time    `json:"createdAt" gorm:"not null"`
}

func (OTP) TableName() string { return "otps" }

func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
