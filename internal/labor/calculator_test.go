package labor

import (
	"testing"
	"time"

	"github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hours(v float64) *float64 { return &v }

func appointment(start time.Time, d time.Duration) domain.Appointment {
	return domain.Appointment{ID: 1, JobID: 10, Start: start, End: start.Add(d)}
}

func TestTimesheetSingleTechnician(t *testing.T) {
	res := Calculate(Input{
		Timesheets: []domain.TimesheetEntry{
			{ID: 1, JobID: 10, TechnicianID: 5, PaidDuration: hours(3.0)},
			{ID: 2, JobID: 10, TechnicianID: 5, PaidDuration: hours(2.5)},
		},
		Rates: Rates{5: 40},
	})

	require.NotNil(t, res.Hours)
	require.NotNil(t, res.Cost)
	require.NotNil(t, res.TechnicianCount)
	assert.Equal(t, 5.5, *res.Hours)
	assert.Equal(t, 220.0, *res.Cost)
	assert.Equal(t, 1, *res.TechnicianCount)
	assert.EqualValues(t, 5, *res.PrimaryTechnicianID)
	assert.Equal(t, SourceTimesheet, res.Source)
}

func TestAppointmentEstimateWithUnknownRates(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	res := Calculate(Input{
		Appointments:  []domain.Appointment{appointment(start, 2*time.Hour+10*time.Minute)},
		DispatchTechs: []int64{7, 8},
	})

	require.NotNil(t, res.Hours)
	assert.Equal(t, 4.5, *res.Hours)
	assert.Equal(t, 2, *res.TechnicianCount)
	assert.Nil(t, res.Cost)
	assert.EqualValues(t, 7, *res.PrimaryTechnicianID)
	assert.Equal(t, SourceAppointment, res.Source)
}

func TestAppointmentEstimateRequiresEveryRate(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	in := Input{
		Appointments:  []domain.Appointment{appointment(start, 2*time.Hour)},
		DispatchTechs: []int64{7, 8},
		Rates:         Rates{7: 30},
	}
	assert.Nil(t, Calculate(in).Cost)

	in.Rates[8] = 50
	res := Calculate(in)
	require.NotNil(t, res.Cost)
	assert.Equal(t, 160.0, *res.Cost)
}

func TestAppointmentEstimateWithoutTechnicians(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	res := Calculate(Input{Appointments: []domain.Appointment{appointment(start, 90*time.Minute)}})

	require.NotNil(t, res.Hours)
	assert.Equal(t, 1.5, *res.Hours)
	assert.Nil(t, res.TechnicianCount)
	assert.Nil(t, res.Cost)
	assert.Nil(t, res.PrimaryTechnicianID)
}

func TestTimesheetsIgnoreDispatchForCount(t *testing.T) {
	res := Calculate(Input{
		Timesheets: []domain.TimesheetEntry{
			{ID: 1, TechnicianID: 5, PaidDuration: hours(1)},
			{ID: 2, TechnicianID: 6, PaidDuration: hours(1)},
			{ID: 3, TechnicianID: 5, PaidDuration: hours(1)},
		},
		DispatchTechs: []int64{9, 10, 11},
		Rates:         Rates{5: 20, 6: 0},
	})

	assert.Equal(t, 2, *res.TechnicianCount)
	assert.EqualValues(t, 9, *res.PrimaryTechnicianID)
	// Partial cost: technician 6 has no rate.
	assert.Equal(t, 40.0, *res.Cost)
}

func TestTimesheetCostUnsetWhenNoRates(t *testing.T) {
	res := Calculate(Input{
		Timesheets: []domain.TimesheetEntry{{ID: 1, TechnicianID: 5, PaidDuration: hours(2)}},
	})
	assert.Equal(t, 2.0, *res.Hours)
	assert.Nil(t, res.Cost)
}

func TestTimesheetClockedInterval(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(100 * time.Minute)
	res := Calculate(Input{
		Timesheets: []domain.TimesheetEntry{{ID: 1, TechnicianID: 5, StartedOn: &start, EndedOn: &end}},
	})
	assert.Equal(t, 1.67, *res.Hours)
}

func TestNoDataLeavesEverythingUnset(t *testing.T) {
	res := Calculate(Input{DispatchTechs: []int64{1}, Rates: Rates{1: 10}})
	assert.Nil(t, res.Hours)
	assert.Nil(t, res.Cost)
	assert.Nil(t, res.TechnicianCount)
	assert.Nil(t, res.PrimaryTechnicianID)
	assert.Equal(t, SourceNone, res.Source)
}
