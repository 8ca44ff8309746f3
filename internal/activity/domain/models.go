package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ActionPaymentStatusChanged = "payment_status_changed"
	ActionPaymentAmountChanged = "payment_amount_changed"
	ActionAssignmentChanged    = "assignment_changed"
)

// ActivityLog is append-only.
type ActivityLog struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	JobID        snowflake.ID      `gorm:"not null;index" json:"job_id"`
	ContractorID *snowflake.ID     `json:"contractor_id,omitempty"`
	Action       string            `gorm:"not null" json:"action"`
	Description  string            `gorm:"not null" json:"description"`
	OldValues    datatypes.JSONMap `gorm:"type:jsonb" json:"old_values"`
	NewValues    datatypes.JSONMap `gorm:"type:jsonb" json:"new_values"`
	ActorID      string            `json:"actor_id"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	JobID  snowflake.ID
	Cursor *Cursor
	Limit  int
}
