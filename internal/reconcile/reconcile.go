package reconcile

import (
	"time"

	"github.com/bwmarrin/snowflake"
	fsdomain "github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	jobdomain "github.com/smallbiznis/fieldops/internal/job/domain"
	"github.com/smallbiznis/fieldops/internal/labor"
	"github.com/smallbiznis/fieldops/internal/payment"
)

type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// Candidate holds the values observed for one job in the current pass.
// Nil pointers mean the source had nothing.
type Candidate struct {
	ExternalID       int64
	JobNumber        string
	Status           string
	Trade            jobdomain.Trade
	BusinessUnitID   *int64
	BusinessUnitName *string
	JobTypeName      *string
	CustomerID       *int64
	LocationID       *int64
	ScheduledDate    *time.Time
	CompletedDate    *time.Time
	Total            *float64
	InvoiceID        *int64
	Labor            labor.Result
	SyncedAt         time.Time
}

// Plan is the write the sync engine must perform.
type Plan struct {
	Op     Operation
	Create *jobdomain.InstallJob
	Fields map[string]any
}

// Reconcile decides between insert and partial update.
func Reconcile(c Candidate, existing *jobdomain.InstallJob, newID func() snowflake.ID) Plan {
	if existing == nil {
		return Plan{Op: OpCreate, Create: BuildCreate(c, newID())}
	}
	return Plan{Op: OpUpdate, Fields: Merge(existing, c)}
}

func BuildCreate(c Candidate, id snowflake.ID) *jobdomain.InstallJob {
	return &jobdomain.InstallJob{
		ID:               id,
		ExternalID:       c.ExternalID,
		JobNumber:        c.JobNumber,
		Status:           c.Status,
		Trade:            c.Trade,
		BusinessUnitID:   c.BusinessUnitID,
		BusinessUnitName: c.BusinessUnitName,
		JobTypeName:      c.JobTypeName,
		CustomerID:       c.CustomerID,
		LocationID:       c.LocationID,
		ScheduledDate:    c.ScheduledDate,
		CompletedDate:    c.CompletedDate,
		Total:            c.Total,
		InvoiceID:        c.InvoiceID,
		AssignmentType:   jobdomain.AssignmentUnassigned,
		PaymentStatus:    payment.StatusNone,
		LaborHours:       c.Labor.Hours,
		LaborCost:        c.Labor.Cost,
		TechnicianID:     c.Labor.PrimaryTechnicianID,
		TechnicianCount:  c.Labor.TechnicianCount,
		LastSyncedAt:     c.SyncedAt,
		CreatedAt:        c.SyncedAt,
		UpdatedAt:        c.SyncedAt,
	}
}

// Merge returns the columns to update on existing. Source-owned fields are
// always refreshed. Dates, labor and the business unit name are written only
// when the new value is known, so a gap in upstream data never erases what
// was stored before.
func Merge(existing *jobdomain.InstallJob, c Candidate) map[string]any {
	fields := map[string]any{
		"job_number":       c.JobNumber,
		"status":           c.Status,
		"business_unit_id": c.BusinessUnitID,
		"job_type_name":    c.JobTypeName,
		"total":            c.Total,
		"invoice_id":       c.InvoiceID,
		"last_synced_at":   c.SyncedAt,
	}

	// An unresolved business unit would classify on the job type alone.
	if c.BusinessUnitID == nil || c.BusinessUnitName != nil {
		fields["trade"] = c.Trade
	}
	retain(fields, "business_unit_name", c.BusinessUnitName)
	retain(fields, "scheduled_date", c.ScheduledDate)
	retain(fields, "completed_date", c.CompletedDate)
	retain(fields, "labor_hours", c.Labor.Hours)
	retain(fields, "labor_cost", c.Labor.Cost)
	retain(fields, "technician_id", c.Labor.PrimaryTechnicianID)
	retain(fields, "technician_count", c.Labor.TechnicianCount)

	// Enrichment owns these; only fill ids that were never set.
	if existing.CustomerID == nil && c.CustomerID != nil {
		fields["customer_id"] = c.CustomerID
	}
	if existing.LocationID == nil && c.LocationID != nil {
		fields["location_id"] = c.LocationID
	}
	return fields
}

func retain[T any](fields map[string]any, column string, v *T) {
	if v != nil {
		fields[column] = v
	}
}

// ScheduledDate is the earliest appointment start for the job.
func ScheduledDate(appointments []fsdomain.Appointment) *time.Time {
	var earliest *time.Time
	for i := range appointments {
		start := appointments[i].Start
		if start.IsZero() {
			continue
		}
		if earliest == nil || start.Before(*earliest) {
			s := start.UTC()
			earliest = &s
		}
	}
	return earliest
}

// NewCandidate assembles the candidate values for one fetched job.
func NewCandidate(job fsdomain.Job, ref References, classifier Classifier, appointments []fsdomain.Appointment, lab labor.Result, now time.Time) Candidate {
	c := Candidate{
		ExternalID:    job.ID,
		JobNumber:     job.JobNumber,
		Status:        job.JobStatus,
		Total:         job.Total,
		InvoiceID:     job.InvoiceID,
		ScheduledDate: ScheduledDate(appointments),
		Labor:         lab,
		SyncedAt:      now.UTC(),
	}
	if job.CompletedOn != nil {
		completed := job.CompletedOn.UTC()
		c.CompletedDate = &completed
	}
	if job.CustomerID != 0 {
		c.CustomerID = &job.CustomerID
	}
	if job.LocationID != 0 {
		c.LocationID = &job.LocationID
	}

	var buName, jtName string
	if job.BusinessUnitID != 0 {
		c.BusinessUnitID = &job.BusinessUnitID
		if name, ok := ref.BusinessUnits[job.BusinessUnitID]; ok {
			buName = name
			c.BusinessUnitName = &name
		}
	}
	if name, ok := ref.JobTypes[job.JobTypeID]; ok {
		jtName = name
		c.JobTypeName = &name
	}
	c.Trade = classifier.Classify(buName, jtName)
	return c
}

// References are id to name lookups fetched once per window.
type References struct {
	BusinessUnits map[int64]string
	JobTypes      map[int64]string
}

func NewReferences(units []fsdomain.BusinessUnit, types []fsdomain.JobType) References {
	ref := References{
		BusinessUnits: make(map[int64]string, len(units)),
		JobTypes:      make(map[int64]string, len(types)),
	}
	for _, u := range units {
		ref.BusinessUnits[u.ID] = u.Name
	}
	for _, t := range types {
		ref.JobTypes[t.ID] = t.Name
	}
	return ref
}
