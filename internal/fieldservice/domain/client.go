package domain

import (
	"context"
	"errors"
	"fmt"
)

//go:generate mockgen -destination=../mock/client_mock.go -package=mock github.com/smallbiznis/fieldops/internal/fieldservice/domain Client

// Client is the read-only boundary to the external field-service platform.
type Client interface {
	ListBusinessUnits(ctx context.Context) ([]BusinessUnit, error)
	ListJobTypes(ctx context.Context) ([]JobType, error)
	ListTechnicians(ctx context.Context) ([]Technician, error)

	// ListJobs returns jobs completed inside the range.
	ListJobs(ctx context.Context, r DateRange) ([]Job, error)
	ListJobsByID(ctx context.Context, ids []int64) ([]Job, error)
	// ListAppointments returns appointments starting inside the range.
	ListAppointments(ctx context.Context, r DateRange) ([]Appointment, error)
	ListAppointmentAssignments(ctx context.Context, appointmentIDs []int64) ([]AppointmentAssignment, error)
	ListTimesheets(ctx context.Context, r DateRange) ([]TimesheetEntry, error)

	GetCustomer(ctx context.Context, id int64) (Customer, error)
	GetLocation(ctx context.Context, id int64) (Location, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
}

var (
	ErrNotConfigured = errors.New("fieldservice_not_configured")
	ErrNotFound      = errors.New("fieldservice_not_found")
)

// APIError is returned for non-2xx responses. StatusCode 0 means the request
// never produced a response.
type APIError struct {
	Resource   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fieldservice %s: no response", e.Resource)
	}
	return fmt.Sprintf("fieldservice %s: status %d", e.Resource, e.StatusCode)
}
