package payment

import "time"

// Record is the payment sub-record carried on an install job.
type Record struct {
	Status        Status
	Amount        *float64
	ExpectedDate  *time.Time
	Notes         *string
	InvoiceSource *InvoiceSource
	ReceivedAt    *time.Time
	ApprovedAt    *time.Time
	ApprovedBy    *string
	PaidAt        *time.Time
}

// Reset returns the empty record used for jobs that are not contractor work.
func Reset() Record {
	return Record{Status: StatusNone}
}

// Request carries the optional fields of a payment update. Nil means unchanged.
type Request struct {
	Status        *Status
	Amount        *float64
	ExpectedDate  *time.Time
	Notes         *string
	InvoiceSource *InvoiceSource
	ActorID       string
}

// Outcome is the result of applying a Request to a Record.
type Outcome struct {
	Previous      Record
	Next          Record
	StatusChanged bool
	AmountChanged bool
	// Audit is true when exactly one activity entry must be written.
	Audit bool
	// Notify asks for a contractor notification after the change is stored.
	Notify bool
}

// Transition computes the effective next record. It performs no I/O.
func Transition(current Record, req Request, hasContractor bool, now time.Time) Outcome {
	next := current
	now = now.UTC()

	if req.Amount != nil {
		next.Amount = copyPtr(req.Amount)
	}
	if req.ExpectedDate != nil {
		next.ExpectedDate = copyPtr(req.ExpectedDate)
	}
	if req.Notes != nil {
		next.Notes = copyPtr(req.Notes)
	}
	if req.InvoiceSource != nil {
		next.InvoiceSource = copyPtr(req.InvoiceSource)
	}

	if req.Status != nil {
		effective := effectiveStatus(*req.Status, next.InvoiceSource)
		if effective != current.Status || effective == StatusNone {
			applyTimestamps(&next, current.Status, *req.Status, effective, req.ActorID, now)
			clearLaterTimestamps(&next, effective)
		}
		next.Status = effective
	}

	if next.Status == StatusNone {
		clearTimestamps(&next)
	}

	out := Outcome{
		Previous:      current,
		Next:          next,
		StatusChanged: next.Status != current.Status,
		AmountChanged: !equalAmount(current.Amount, next.Amount),
	}
	out.Audit = out.StatusChanged || out.AmountChanged
	out.Notify = out.StatusChanged && next.Status != StatusNone && hasContractor
	return out
}

func effectiveStatus(requested Status, source *InvoiceSource) Status {
	if requested != StatusReceived {
		return requested
	}
	if source != nil && *source == SourceManagerText {
		return StatusReadyToPay
	}
	return StatusPendingApproval
}

func applyTimestamps(next *Record, from, requested, effective Status, actor string, now time.Time) {
	switch requested {
	case StatusReceived:
		next.ReceivedAt = &now
		if effective == StatusReadyToPay {
			setApproval(next, actor, now)
		}
	case StatusReadyToPay:
		if from == StatusPendingApproval {
			setApproval(next, actor, now)
		}
	case StatusPaid:
		next.PaidAt = &now
	case StatusNone:
		clearTimestamps(next)
	}
}

// clearLaterTimestamps drops timestamps of stages after effective, so moving
// a job back never leaves a stale approval or payment behind.
func clearLaterTimestamps(r *Record, effective Status) {
	switch effective {
	case StatusReceived, StatusPendingApproval:
		r.ApprovedAt = nil
		r.ApprovedBy = nil
		r.PaidAt = nil
	case StatusReadyToPay:
		r.PaidAt = nil
	}
}

func setApproval(next *Record, actor string, now time.Time) {
	next.ApprovedAt = &now
	if actor != "" {
		next.ApprovedBy = &actor
	} else {
		next.ApprovedBy = nil
	}
}

func clearTimestamps(r *Record) {
	r.ReceivedAt = nil
	r.ApprovedAt = nil
	r.ApprovedBy = nil
	r.PaidAt = nil
	r.InvoiceSource = nil
}

func equalAmount(a, b *float64) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return *a == *b
	}
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
