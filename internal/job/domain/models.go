package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/internal/payment"
)

type Trade string

const (
	TradeHVAC     Trade = "hvac"
	TradePlumbing Trade = "plumbing"
)

type AssignmentType string

const (
	AssignmentUnassigned AssignmentType = "unassigned"
	AssignmentInHouse    AssignmentType = "in_house"
	AssignmentContractor AssignmentType = "contractor"
)

// InstallJob is keyed by ExternalID; ID is the local surrogate.
type InstallJob struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID       int64        `gorm:"not null;uniqueIndex" json:"external_id"`
	JobNumber        string       `json:"job_number"`
	Status           string       `json:"status"`
	Trade            Trade        `json:"trade"`
	BusinessUnitID   *int64       `json:"business_unit_id,omitempty"`
	BusinessUnitName *string      `json:"business_unit_name,omitempty"`
	JobTypeName      *string      `json:"job_type_name,omitempty"`

	CustomerID      *int64  `json:"customer_id,omitempty"`
	CustomerName    *string `json:"customer_name,omitempty"`
	CustomerPhone   *string `json:"customer_phone,omitempty"`
	CustomerEmail   *string `json:"customer_email,omitempty"`
	LocationID      *int64  `json:"location_id,omitempty"`
	LocationAddress *string `json:"location_address,omitempty"`

	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	Total         *float64   `json:"total,omitempty"`

	InvoiceID         *int64     `json:"invoice_id,omitempty"`
	InvoiceNumber     *string    `json:"invoice_number,omitempty"`
	InvoiceDate       *time.Time `json:"invoice_date,omitempty"`
	InvoiceSyncStatus *string    `json:"invoice_sync_status,omitempty"`

	AssignmentType AssignmentType `json:"assignment_type"`
	ContractorID   *snowflake.ID  `json:"contractor_id,omitempty"`
	ContractorName *string        `gorm:"->;-:migration" json:"contractor_name,omitempty"`

	PaymentStatus       payment.Status         `json:"payment_status"`
	PaymentAmount       *float64               `json:"payment_amount,omitempty"`
	PaymentExpectedDate *time.Time             `json:"payment_expected_date,omitempty"`
	PaymentNotes        *string                `json:"payment_notes,omitempty"`
	InvoiceSource       *payment.InvoiceSource `json:"invoice_source,omitempty"`
	PaymentReceivedAt   *time.Time             `json:"payment_received_at,omitempty"`
	PaymentApprovedAt   *time.Time             `json:"payment_approved_at,omitempty"`
	PaymentApprovedBy   *string                `json:"payment_approved_by,omitempty"`
	PaymentPaidAt       *time.Time             `json:"payment_paid_at,omitempty"`

	LaborHours      *float64 `json:"labor_hours,omitempty"`
	LaborCost       *float64 `json:"labor_cost,omitempty"`
	TechnicianID    *int64   `json:"technician_id,omitempty"`
	TechnicianCount *int     `json:"technician_count,omitempty"`

	LastSyncedAt time.Time `json:"last_synced_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (InstallJob) TableName() string { return "install_jobs" }

// Payment extracts the payment sub-record.
func (j InstallJob) Payment() payment.Record {
	return payment.Record{
		Status:        j.PaymentStatus,
		Amount:        j.PaymentAmount,
		ExpectedDate:  j.PaymentExpectedDate,
		Notes:         j.PaymentNotes,
		InvoiceSource: j.InvoiceSource,
		ReceivedAt:    j.PaymentReceivedAt,
		ApprovedAt:    j.PaymentApprovedAt,
		ApprovedBy:    j.PaymentApprovedBy,
		PaidAt:        j.PaymentPaidAt,
	}
}

// PaymentColumns maps a payment record onto install_jobs columns.
func PaymentColumns(r payment.Record) map[string]any {
	return map[string]any{
		"payment_status":        r.Status,
		"payment_amount":        r.Amount,
		"payment_expected_date": r.ExpectedDate,
		"payment_notes":         r.Notes,
		"invoice_source":        r.InvoiceSource,
		"payment_received_at":   r.ReceivedAt,
		"payment_approved_at":   r.ApprovedAt,
		"payment_approved_by":   r.ApprovedBy,
		"payment_paid_at":       r.PaidAt,
	}
}

type Contractor struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `json:"name"`
	Email     *string      `json:"email,omitempty"`
	Phone     *string      `json:"phone,omitempty"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Contractor) TableName() string { return "contractors" }

func ParseAssignmentType(raw string) (AssignmentType, error) {
	switch a := AssignmentType(raw); a {
	case AssignmentUnassigned, AssignmentInHouse, AssignmentContractor:
		return a, nil
	default:
		return "", ErrInvalidAssignmentType
	}
}
