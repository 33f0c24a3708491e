package schedule

import "time"

const (
	StatusScheduled = "scheduled"
	StatusTriggered = "triggered"
)

// PayoutSchedule is a deferred trigger to process a placement's payouts at a
// future point. The sweep claims a row (scheduled to triggered) before doing
// anything else, so an interrupted sweep never reconsiders it.
type PayoutSchedule struct {
	ID            string     `gorm:"column:id;primaryKey" json:"id"`
	PlacementID   string     `gorm:"column:placement_id;index;not null" json:"placement_id"`
	ScheduledDate time.Time  `gorm:"column:scheduled_date;index;not null" json:"scheduled_date"`
	TriggerEvent  string     `gorm:"column:trigger_event;not null" json:"trigger_event"`
	Status        string     `gorm:"column:status;index;default:'scheduled'" json:"status"`
	TriggeredAt   *time.Time `gorm:"column:triggered_at" json:"triggered_at,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
