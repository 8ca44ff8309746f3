package payment

import (
	"errors"
	"strings"
)

type Status string

const (
	StatusNone            Status = "none"
	StatusReceived        Status = "received"
	StatusPendingApproval Status = "pending_approval"
	StatusReadyToPay      Status = "ready_to_pay"
	StatusPaid            Status = "paid"
)

type InvoiceSource string

const (
	SourceManagerText InvoiceSource = "manager_text"
	SourceAPEmail     InvoiceSource = "ap_email"
)

var (
	ErrInvalidStatus        = errors.New("invalid_payment_status")
	ErrInvalidInvoiceSource = errors.New("invalid_invoice_source")
	ErrInvalidAmount        = errors.New("invalid_payment_amount")
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusNone, StatusReceived, StatusPendingApproval, StatusReadyToPay, StatusPaid:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

func ParseInvoiceSource(raw string) (InvoiceSource, error) {
	switch s := InvoiceSource(strings.ToLower(strings.TrimSpace(raw))); s {
	case SourceManagerText, SourceAPEmail:
		return s, nil
	default:
		return "", ErrInvalidInvoiceSource
	}
}
