package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is a registered user. DailyThreshold is the allowance used for
// band classification and alert generation.
type Account struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	Name           string       `json:"name" gorm:"type:text;not null"`
	Email          string       `json:"email" gorm:"type:varchar(320);not null;uniqueIndex:ux_accounts_email"`
	PasswordHash   string       `json:"-" gorm:"column:password_hash;type:text;not null"`
	DailyThreshold float64      `json:"dailyThreshold" gorm:"column:daily_threshold;not null;default:200"`
	Role           Role         `json:"role" gorm:"type:varchar(16);not null;default:'user';index"`
	IsVerified     bool         `json:"isVerified" gorm:"column:is_verified;not null;default:false"`
	CreatedAt      time.Time    `json:"createdAt" gorm:"not null"`
	UpdatedAt      time.Time    `json:"updatedAt" gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail lowercases and trims email, rejecting malformed addresses.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}
