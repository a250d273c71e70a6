package models

import "time"

// BannedForever is the sentinel used for permanent bans (no duration given).
var BannedForever = time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)

// User represents an authenticated account.
type User struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"unique;not null" json:"email"`
	Phone        *string    `gorm:"unique" json:"phone,omitempty"`
	Role         string     `gorm:"not null;default:'user'" json:"role"`
	PasswordHash string     `gorm:"not null" json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	MutedUntil   *time.Time `json:"mutedUntil,omitempty"`
	BannedUntil  *time.Time `json:"bannedUntil,omitempty"`
}

// IsBanned reports whether the account is banned at the given instant.
// Banned accounts cannot authenticate.
func (u *User) IsBanned(now time.Time) bool {
	return u != nil && u.BannedUntil != nil && u.BannedUntil.After(now)
}

// IsMuted reports whether the account is muted at the given instant.
// Muted accounts can authenticate but are blocked from content writes.
func (u *User) IsMuted(now time.Time) bool {
	return u != nil && u.MutedUntil != nil && u.MutedUntil.After(now)
}

// AuthIdentity is 1:1 with User and tracks the phone verification state
// machine plus the Telegram link-code challenge.
type AuthIdentity struct {
	UserID                string     `gorm:"primaryKey" json:"userId"`
	EmailVerified         bool       `gorm:"not null;default:true" json:"emailVerified"`
	Phone                 *string    `json:"phone,omitempty"`
	PhoneVerified         bool       `gorm:"not null;default:false" json:"phoneVerified"`
	PendingPhone          *string    `json:"pendingPhone,omitempty"`
	PhoneOTPHash          *string    `json:"-"`
	PhoneOTPExpiresAt     *time.Time `json:"phoneOtpExpiresAt,omitempty"`
	PhoneOTPAttempts      int        `gorm:"not null;default:0" json:"phoneOtpAttempts"`
	TelegramLinkCode      *string    `gorm:"index" json:"telegramLinkCode,omitempty"`
	TelegramCodeExpiresAt *time.Time `json:"telegramCodeExpiresAt,omitempty"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// TelegramLink records a completed account link to a Telegram user.
type TelegramLink struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"unique;not null" json:"userId"`
	TelegramUserID   string    `gorm:"unique;not null" json:"telegramUserId"`
	TelegramUsername *string   `json:"telegramUsername,omitempty"`
	Status           string    `gorm:"not null;default:'linked'" json:"status"`
	LinkedAt         time.Time `json:"linkedAt"`
}
