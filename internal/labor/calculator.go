package labor

import (
	"math"

	"github.com/smallbiznis/fieldops/internal/fieldservice/domain"
)

type Source string

const (
	SourceNone        Source = ""
	SourceTimesheet   Source = "timesheet"
	SourceAppointment Source = "appointment"
)

// Rates maps external technician id to hourly rate. Missing or non-positive
// entries are unknown rates.
type Rates map[int64]float64

func (r Rates) known(techID int64) (float64, bool) {
	rate, ok := r[techID]
	return rate, ok && rate > 0
}

type Input struct {
	Timesheets    []domain.TimesheetEntry
	Appointments  []domain.Appointment
	DispatchTechs []int64
	Rates         Rates
}

// Result fields are nil when unknown. Zero means zero.
type Result struct {
	Hours               *float64
	Cost                *float64
	TechnicianCount     *int
	PrimaryTechnicianID *int64
	Source              Source
}

// Calculate attributes labor for one job. Timesheets win over the appointment
// estimate whenever at least one entry exists.
func Calculate(in Input) Result {
	if len(in.Timesheets) > 0 {
		return fromTimesheets(in)
	}
	if res, ok := fromAppointments(in); ok {
		return res
	}
	return Result{}
}

func fromTimesheets(in Input) Result {
	var (
		total     float64
		order     []int64
		perTech   = make(map[int64]float64)
		costTotal float64
	)
	for _, e := range in.Timesheets {
		h := e.Hours()
		total += h
		if _, seen := perTech[e.TechnicianID]; !seen {
			order = append(order, e.TechnicianID)
		}
		perTech[e.TechnicianID] += h
	}
	for _, techID := range order {
		if rate, ok := in.Rates.known(techID); ok {
			costTotal += perTech[techID] * rate
		}
	}

	count := len(order)
	res := Result{
		Hours:           ptr(Round2(total)),
		TechnicianCount: &count,
		Source:          SourceTimesheet,
	}
	// Partial cost is accepted here; unknown rates count as zero.
	if cost := Round2(costTotal); cost > 0 {
		res.Cost = &cost
	}

	switch {
	case len(in.DispatchTechs) > 0:
		res.PrimaryTechnicianID = ptr(in.DispatchTechs[0])
	case len(order) > 0:
		res.PrimaryTechnicianID = ptr(order[0])
	}
	return res
}

func fromAppointments(in Input) (Result, bool) {
	var window float64
	for _, a := range in.Appointments {
		window += a.Hours()
	}
	if window <= 0 {
		return Result{}, false
	}
	window = RoundQuarter(window)

	techs := distinct(in.DispatchTechs)
	if len(techs) == 0 {
		return Result{Hours: ptr(Round2(window)), Source: SourceAppointment}, true
	}

	n := len(techs)
	res := Result{
		Hours:               ptr(Round2(window * float64(n))),
		TechnicianCount:     &n,
		PrimaryTechnicianID: ptr(techs[0]),
		Source:              SourceAppointment,
	}

	// Every technician needs a rate, otherwise the estimate stays unset.
	var cost float64
	for _, techID := range techs {
		rate, ok := in.Rates.known(techID)
		if !ok {
			return res, true
		}
		cost += window * rate
	}
	if cost = Round2(cost); cost > 0 {
		res.Cost = &cost
	}
	return res, true
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func RoundQuarter(v float64) float64 {
	return math.Round(v*4) / 4
}

func ptr[T any](v T) *T { return &v }
