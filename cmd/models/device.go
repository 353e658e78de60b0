package models

import (
	"gorm.io/gorm"
)

// Device holds an Expo push token registered by a user's app install.
type Device struct {
	gorm.Model
	Token      string `gorm:"not null;uniqueIndex:idx_token_user" json:"token"`
	UserID     uint   `gorm:"not null;index;uniqueIndex:idx_token_user" json:"user_id"`
	DeviceType string `gorm:"type:varchar(50)" json:"device_type"`
	DeviceName string `gorm:"type:varchar(100)" json:"device_name,omitempty"`
}
