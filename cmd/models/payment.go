package models

import (
	"gorm.io/gorm"
)

const (
	PaymentStatusCreated  = "created"
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
)

type Payment struct {
	gorm.Model
	UserID   uint    `gorm:"column:user_id;not null;index" json:"user_id"`
	Amount   float64 `gorm:"column:amount;not null" json:"amount"`
	Currency string  `gorm:"column:currency;size:10;not null;default:INR" json:"currency"`
	Plan     string  `gorm:"column:plan;size:50" json:"plan"`
	Status   string  `gorm:"column:status;size:20;not null;default:created" json:"status"`

	Receipt   string `gorm:"column:receipt;size:64;uniqueIndex" json:"receipt"`
	OrderID   string `gorm:"column:order_id;size:64;index" json:"order_id"`
	PaymentID string `gorm:"column:payment_id;size:64" json:"payment_id,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
