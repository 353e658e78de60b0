package models

import (
	"gorm.io/gorm"
)

// ActivityLog is append-only; no handler mutates or deletes rows.
type ActivityLog struct {
	gorm.Model
	UserID    *uint  `gorm:"column:user_id;index" json:"user_id,omitempty"`
	Action    string `gorm:"column:action;size:100;not null" json:"action"`
	Details   string `gorm:"column:details;type:text" json:"details,omitempty"`
	IPAddress string `gorm:"column:ip_address;size:64" json:"ip_address,omitempty"`
	UserAgent string `gorm:"column:user_agent;size:255" json:"user_agent,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
