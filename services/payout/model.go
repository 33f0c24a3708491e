package payout

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	SplitStatusPending = "pending"
	SplitStatusSettled = "settled"
)

// Audit event types. The audit log is append-only: rows are never updated or
// deleted, and every state-changing operation appends exactly one row.
const (
	EventCreated          = "created"
	EventStatusChanged    = "status_changed"
	EventTransferCreated  = "stripe_transfer_created"
	EventFailed           = "failed"
	EventSplitsAdded      = "splits_added"
	EventHoldbackReleased = "holdback_released"
)

// Payout is one funds-transfer obligation tied to a (placement, recruiter)
// pair. Amount is the actual transfer amount supplied by the caller; it is
// deliberately not derived from PlacementFee and RecruiterSharePct.
type Payout struct {
	ID                 string     `gorm:"column:id;primaryKey" json:"id"`
	ReferenceCode      string     `gorm:"column:reference_code;index" json:"reference_code,omitempty"`
	PlacementID        string     `gorm:"column:placement_id;index;not null" json:"placement_id"`
	RecruiterID        string     `gorm:"column:recruiter_id;index;not null" json:"recruiter_id"`
	PlacementFee       float64    `gorm:"column:placement_fee;not null" json:"placement_fee"`
	RecruiterSharePct  float64    `gorm:"column:recruiter_share_pct;not null" json:"recruiter_share_pct"`
	Amount             float64    `gorm:"column:amount;not null" json:"amount"`
	HoldbackAmount     float64    `gorm:"column:holdback_amount;default:0" json:"holdback_amount"`
	Status             string     `gorm:"column:status;index;default:'pending'" json:"status"`
	CreatedBy          string     `gorm:"column:created_by" json:"created_by,omitempty"`
	TransferRef        string     `gorm:"column:transfer_ref" json:"transfer_ref,omitempty"`
	FailureReason      string     `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	FailedAt           *time.Time `gorm:"column:failed_at" json:"failed_at,omitempty"`
	HoldbackReleasedAt *time.Time `gorm:"column:holdback_released_at" json:"holdback_released_at,omitempty"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// PayoutSplit is a collaborator recruiter's share of one payout.
type PayoutSplit struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	PayoutID    string    `gorm:"column:payout_id;index;not null" json:"payout_id"`
	RecruiterID string    `gorm:"column:recruiter_id;index;not null" json:"recruiter_id"`
	Percentage  float64   `gorm:"column:percentage;not null" json:"percentage"`
	Amount      float64   `gorm:"column:amount;not null" json:"amount"`
	Status      string    `gorm:"column:status;default:'pending'" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// AuditEntry is one event in a payout's history.
type AuditEntry struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	PayoutID  string         `gorm:"column:payout_id;index;not null" json:"payout_id"`
	EventType string         `gorm:"column:event_type;not null" json:"event_type"`
	OldStatus string         `gorm:"column:old_status" json:"old_status,omitempty"`
	NewStatus string         `gorm:"column:new_status" json:"new_status,omitempty"`
	Reason    string         `gorm:"column:reason" json:"reason,omitempty"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	Actor     string         `gorm:"column:actor" json:"actor,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditEntry) TableName() string {
	return "payout_audit_log"
}

func auditMetadata(m map[string]any) datatypes.JSON {
	if len(m) == 0 {
		return nil
	}
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}

func processable(status string) bool {
	return status == StatusPending || status == StatusFailed
}
