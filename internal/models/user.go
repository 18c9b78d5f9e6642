package models

import (
	"time"
)

// User represents a registered shop owner. Accounts are only created after
// the registration OTP has been verified.
type User struct {
	BaseModel
	Username     string `json:"username"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `json:"-"`
}

// OneTimeCode is the single live OTP record for an email address. Each
// send overwrites the previous record, so at most one code per email can
// be live at any time.
type OneTimeCode struct {
	BaseModel
	Email          string     `gorm:"uniqueIndex" json:"email"`
	Code           string     `json:"-"`
	ExpiresAt      time.Time  `json:"expires_at"`
	FailedAttempts int        `json:"failed_attempts"`
	BannedUntil    *time.Time `json:"banned_until"`
}

// Banned reports whether the record carries an active lockout.
func (o *OneTimeCode) Banned(now time.Time) bool {
	return o.BannedUntil != nil && o.BannedUntil.After(now)
}

// ResetGrant authorizes exactly one password reset for an email. It is
// created when the reset OTP verifies and deleted by the reset that
// consumes it.
type ResetGrant struct {
	BaseModel
	Email     string    `gorm:"uniqueIndex" json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
