package domain

import (
	"strings"
	"time"
)

// DateRange is a half-open [From, To) interval of calendar days in UTC.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Pad widens the range by days on both sides.
func (r DateRange) Pad(days int) DateRange {
	return DateRange{
		From: r.From.AddDate(0, 0, -days),
		To:   r.To.AddDate(0, 0, days),
	}
}

type BusinessUnit struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type JobType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Technician struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Job struct {
	ID             int64      `json:"id"`
	JobNumber      string     `json:"jobNumber"`
	JobStatus      string     `json:"jobStatus"`
	BusinessUnitID int64      `json:"businessUnitId"`
	JobTypeID      int64      `json:"jobTypeId"`
	CustomerID     int64      `json:"customerId"`
	LocationID     int64      `json:"locationId"`
	InvoiceID      *int64     `json:"invoiceId"`
	Total          *float64   `json:"total"`
	CompletedOn    *time.Time `json:"completedOn"`
	CreatedOn      time.Time  `json:"createdOn"`
}

type Appointment struct {
	ID     int64     `json:"id"`
	JobID  int64     `json:"jobId"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

// Hours is the scheduled length of the appointment window.
func (a Appointment) Hours() float64 {
	if a.End.Before(a.Start) {
		return 0
	}
	return a.End.Sub(a.Start).Hours()
}

type AppointmentAssignment struct {
	ID             int64  `json:"id"`
	AppointmentID  int64  `json:"appointmentId"`
	JobID          int64  `json:"jobId"`
	TechnicianID   int64  `json:"technicianId"`
	TechnicianName string `json:"technicianName"`
	Active         bool   `json:"active"`
}

// TimesheetEntry is one recorded labor interval posted against a job.
type TimesheetEntry struct {
	ID           int64      `json:"id"`
	JobID        int64      `json:"jobId"`
	TechnicianID int64      `json:"technicianId"`
	StartedOn    *time.Time `json:"startedOn"`
	EndedOn      *time.Time `json:"endedOn"`
	// PaidDuration is in hours; when absent the clocked interval is used.
	PaidDuration *float64 `json:"paidDuration"`
}

func (e TimesheetEntry) Hours() float64 {
	if e.PaidDuration != nil {
		if *e.PaidDuration < 0 {
			return 0
		}
		return *e.PaidDuration
	}
	if e.StartedOn == nil || e.EndedOn == nil || e.EndedOn.Before(*e.StartedOn) {
		return 0
	}
	return e.EndedOn.Sub(*e.StartedOn).Hours()
}

type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Format joins the non-empty address parts.
func (a Address) Format() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type Location struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

type Invoice struct {
	ID              int64      `json:"id"`
	ReferenceNumber string     `json:"referenceNumber"`
	InvoiceDate     *time.Time `json:"invoiceDate"`
	SyncStatus      string     `json:"syncStatus"`
}
