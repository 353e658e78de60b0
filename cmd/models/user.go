package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	SubscriptionNone    = "none"
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

type User struct {
	gorm.Model
	FullName     string `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email        string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         string `gorm:"column:role;size:50;not null;default:user" json:"role"`
	Active       bool   `gorm:"column:active;default:true" json:"active"`

	SubscriptionStatus string     `gorm:"column:subscription_status;size:50;not null;default:none" json:"subscription_status"`
	SubscriptionExpiry *time.Time `gorm:"column:subscription_expiry" json:"subscription_expiry,omitempty"`

	// Reset token and its expiry are set and cleared together.
	ResetToken       *string    `gorm:"column:reset_token;size:64;index" json:"-"`
	ResetTokenExpiry *time.Time `gorm:"column:reset_token_expiry" json:"-"`

	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`
}

// HasActiveSubscription reports whether the user can read the signal feed.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u.SubscriptionStatus != SubscriptionActive {
		return false
	}
	return u.SubscriptionExpiry != nil && u.SubscriptionExpiry.After(now)
}
