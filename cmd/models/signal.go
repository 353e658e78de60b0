package models

import (
	"gorm.io/gorm"
)

const (
	SignalStatusPending      = "PENDING"
	SignalStatusActive       = "ACTIVE"
	SignalStatusTargetHit    = "TARGET_HIT"
	SignalStatusStopLoss     = "STOP_LOSS"
	SignalStatusClosedManual = "CLOSED_MANUAL"
)

const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

type Signal struct {
	gorm.Model
	Pair        string  `gorm:"column:pair;size:50;not null;index" json:"pair"`
	Direction   string  `gorm:"column:direction;size:10;not null" json:"direction"`
	EntryPrice  float64 `gorm:"column:entry_price;not null" json:"entry_price"`
	TargetPrice float64 `gorm:"column:target_price;not null" json:"target_price"`
	StopLoss    float64 `gorm:"column:stop_loss;not null" json:"stop_loss"`
	Status      string  `gorm:"column:status;size:20;not null;default:PENDING;index" json:"status"`

	// Non-null only once the signal reaches a closed status.
	ReturnPercent *float64 `gorm:"column:return_percent" json:"return_percent,omitempty"`

	Commentary string `gorm:"column:commentary;type:text" json:"commentary,omitempty"`

	CreatedByID uint  `gorm:"column:created_by_id;not null" json:"created_by_id"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// ClosedSignalStatuses are the statuses of signals that are no longer open.
var ClosedSignalStatuses = []string{
	SignalStatusTargetHit,
	SignalStatusStopLoss,
	SignalStatusClosedManual,
}

// IsClosedStatus reports whether status belongs to the closed set.
func IsClosedStatus(status string) bool {
	for _, s := range ClosedSignalStatuses {
		if s == status {
			return true
		}
	}
	return false
}
