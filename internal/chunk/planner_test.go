package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowsAreContiguousAndEndAtToday(t *testing.T) {
	epoch := date(2024, 1, 1)
	today := time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC)
	p := NewPlanner(epoch, today, 14)

	require.Equal(t, 5, p.WindowCount())

	prevEnd := epoch
	for i := 0; i < p.WindowCount(); i++ {
		w, err := p.WindowAt(i)
		require.NoError(t, err)
		assert.True(t, w.From.Equal(prevEnd), "window %d starts at %s", i, w.From)
		assert.True(t, w.To.After(w.From))
		assert.False(t, w.To.After(date(2024, 3, 5)))
		prevEnd = w.To
	}
	assert.True(t, prevEnd.Equal(date(2024, 3, 5)))
}

func TestExactMultipleOfWindow(t *testing.T) {
	p := NewPlanner(date(2024, 1, 1), date(2024, 1, 29), 14)
	assert.Equal(t, 2, p.WindowCount())

	last, err := p.WindowAt(1)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 15), last.From)
	assert.Equal(t, date(2024, 1, 29), last.To)
	assert.True(t, p.IsLast(1))
	assert.True(t, p.Done(2))
}

func TestTodayBeforeEpoch(t *testing.T) {
	p := NewPlanner(date(2025, 1, 1), date(2024, 12, 1), 14)
	assert.Equal(t, 0, p.WindowCount())
	assert.True(t, p.Done(0))

	_, err := p.WindowAt(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestNegativeIndex(t *testing.T) {
	p := NewPlanner(date(2024, 1, 1), date(2024, 2, 1), 14)
	_, err := p.WindowAt(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
