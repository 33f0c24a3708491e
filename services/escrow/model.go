package escrow

import "time"

const (
	StatusActive   = "active"
	StatusReleased = "released"
)

// EscrowHold is a temporary withholding of funds tied to a placement. The
// PayoutID link is optional: when set, the hold represents that payout's
// holdback and releasing it also stamps the payout.
type EscrowHold struct {
	ID          string     `gorm:"column:id;primaryKey" json:"id"`
	PlacementID string     `gorm:"column:placement_id;index;not null" json:"placement_id"`
	PayoutID    string     `gorm:"column:payout_id;index" json:"payout_id,omitempty"`
	Amount      float64    `gorm:"column:amount;not null" json:"amount"`
	Reason      string     `gorm:"column:reason" json:"reason"`
	Status      string     `gorm:"column:status;index;default:'active'" json:"status"`
	HeldAt      time.Time  `gorm:"column:held_at" json:"held_at"`
	ReleaseDate *time.Time `gorm:"column:release_date" json:"release_date,omitempty"`
	ReleasedAt  *time.Time `gorm:"column:released_at" json:"released_at,omitempty"`
	ReleasedBy  string     `gorm:"column:released_by" json:"released_by,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
