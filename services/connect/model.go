package connect

import "time"

// PayoutAccount maps a recruiter to their connected payment-network account.
// PayoutsEnabled is a snapshot from the last status check, not a live value.
type PayoutAccount struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id"`
	RecruiterID     string    `gorm:"column:recruiter_id;uniqueIndex;not null" json:"recruiter_id"`
	StripeAccountID string    `gorm:"column:stripe_account_id;uniqueIndex;not null" json:"stripe_account_id"`
	PayoutsEnabled  bool      `gorm:"column:payouts_enabled;default:false" json:"payouts_enabled"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
