package models

import (
	"time"
)

// DefaultSettingsID is the fixed id of the one and only settings row.
const DefaultSettingsID = "default"

type AppSettings struct {
	ID                 string    `gorm:"primaryKey;size:32" json:"id"`
	SiteName           string    `gorm:"column:site_name;size:255;default:SignalDesk" json:"site_name"`
	SupportEmail       string    `gorm:"column:support_email;size:255" json:"support_email"`
	MaintenanceMode    bool      `gorm:"column:maintenance_mode;default:false" json:"maintenance_mode"`
	AllowRegistrations bool      `gorm:"column:allow_registrations;default:true" json:"allow_registrations"`
	Announcement       string    `gorm:"column:announcement;type:text" json:"announcement"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (AppSettings) TableName() string {
	return "app_settings"
}
