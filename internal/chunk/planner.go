package chunk

import (
	"errors"
	"time"

	"github.com/smallbiznis/fieldops/internal/fieldservice/domain"
)

const DefaultWindowDays = 14

var ErrIndexOutOfRange = errors.New("chunk_index_out_of_range")

// Planner splits [epoch, today) into consecutive windows of WindowDays.
// The last window ends at today and never reaches into the future.
type Planner struct {
	epoch      time.Time
	today      time.Time
	windowDays int
}

func NewPlanner(epoch, today time.Time, windowDays int) Planner {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return Planner{
		epoch:      Day(epoch),
		today:      Day(today),
		windowDays: windowDays,
	}
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (p Planner) WindowCount() int {
	if !p.today.After(p.epoch) {
		return 0
	}
	days := int(p.today.Sub(p.epoch).Hours() / 24)
	return (days + p.windowDays - 1) / p.windowDays
}

func (p Planner) WindowAt(index int) (domain.DateRange, error) {
	if index < 0 || index >= p.WindowCount() {
		return domain.DateRange{}, ErrIndexOutOfRange
	}
	from := p.epoch.AddDate(0, 0, index*p.windowDays)
	to := from.AddDate(0, 0, p.windowDays)
	if to.After(p.today) {
		to = p.today
	}
	return domain.DateRange{From: from, To: to}, nil
}

// Done reports whether index is past the final window.
func (p Planner) Done(index int) bool {
	return index >= p.WindowCount()
}

// IsFirst and IsLast drive the SyncRun lifecycle across invocations.
func (p Planner) IsFirst(index int) bool { return index == 0 }

func (p Planner) IsLast(index int) bool { return index == p.WindowCount()-1 }
