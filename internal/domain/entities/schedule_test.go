package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-19 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 10, 19, hour, minute, 0, 0, time.UTC)
}

func TestWeeklySchedule_StatusAt_WindowBoundaries(t *testing.T) {
	schedule := WeeklySchedule{Mon: []TimeWindow{{Open: "09:00", Close: "17:00"}}}

	tests := []struct {
		name     string
		now      time.Time
		open     bool
		closesIn *int
	}{
		{name: "before opening", now: monday(8, 59), open: false},
		{name: "at opening", now: monday(9, 0), open: true, closesIn: intPtr(480)},
		{name: "at closing", now: monday(17, 0), open: true, closesIn: intPtr(0)},
		{name: "after closing", now: monday(17, 1), open: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := schedule.StatusAt(tt.now)
			assert.Equal(t, tt.open, status.Open)
			assert.Equal(t, tt.closesIn, status.ClosesInMinutes)
		})
	}
}

func TestWeeklySchedule_StatusAt_EmptyDayAlwaysClosed(t *testing.T) {
	schedule := WeeklySchedule{
		Mon: []TimeWindow{},
		Tue: []TimeWindow{{Open: "00:00", Close: "23:59"}},
	}

	for _, hm := range [][2]int{{0, 0}, {9, 30}, {12, 0}, {23, 59}} {
		status := schedule.StatusAt(monday(hm[0], hm[1]))
		assert.False(t, status.Open)
		assert.Nil(t, status.ClosesInMinutes)
	}
}

func TestWeeklySchedule_StatusAt_FirstMatchingWindowWins(t *testing.T) {
	schedule := WeeklySchedule{Mon: []TimeWindow{
		{Open: "08:00", Close: "20:00"},
		{Open: "09:00", Close: "12:00"},
	}}

	status := schedule.StatusAt(monday(10, 0))
	require.True(t, status.Open)
	assert.Equal(t, 600, *status.ClosesInMinutes)
}

func TestWeeklySchedule_StatusAt_UnsortedWindows(t *testing.T) {
	schedule := WeeklySchedule{Mon: []TimeWindow{
		{Open: "14:00", Close: "18:00"},
		{Open: "08:00", Close: "12:00"},
	}}

	status := schedule.StatusAt(monday(11, 30))
	require.True(t, status.Open)
	assert.Equal(t, 30, *status.ClosesInMinutes)

	assert.False(t, schedule.StatusAt(monday(13, 0)).Open)
}

func TestWeeklySchedule_StatusAt_UsesSundayFirstWeekday(t *testing.T) {
	schedule := WeeklySchedule{Sun: []TimeWindow{{Open: "10:00", Close: "16:00"}}}

	sunday := time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC)
	assert.True(t, schedule.StatusAt(sunday).Open)
	assert.False(t, schedule.StatusAt(monday(11, 0)).Open)
}

func TestWeeklySchedule_StatusAt_UsesLocationOfNow(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skip("tzdata not available")
	}
	schedule := WeeklySchedule{Mon: []TimeWindow{{Open: "09:00", Close: "17:00"}}}

	// 08:30 UTC on a BST date is 09:30 in London.
	instant := time.Date(2026, 6, 15, 8, 30, 0, 0, time.UTC)
	assert.False(t, schedule.StatusAt(instant).Open)
	assert.True(t, schedule.StatusAt(instant.In(london)).Open)
}

func TestWeeklySchedule_StatusAt_IgnoresMalformedWindow(t *testing.T) {
	schedule := WeeklySchedule{Mon: []TimeWindow{
		{Open: "nine", Close: "17:00"},
		{Open: "09:00", Close: "17:00"},
	}}

	status := schedule.StatusAt(monday(10, 0))
	require.True(t, status.Open)
	assert.Equal(t, 420, *status.ClosesInMinutes)
}

func TestWeeklySchedule_Validate(t *testing.T) {
	assert.NoError(t, WeeklySchedule{Mon: []TimeWindow{{Open: "00:00", Close: "24:00"}}}.Validate())
	assert.Error(t, WeeklySchedule{Fri: []TimeWindow{{Open: "22:00", Close: "06:00"}}}.Validate())
	assert.Error(t, WeeklySchedule{Sat: []TimeWindow{{Open: "9am", Close: "17:00"}}}.Validate())
	assert.Error(t, WeeklySchedule{Sun: []TimeWindow{{Open: "09:00", Close: "17:60"}}}.Validate())
}

func TestParseClock(t *testing.T) {
	tests := map[string]struct {
		minutes int
		ok      bool
	}{
		"00:00": {0, true},
		"9:05":  {545, true},
		"23:59": {1439, true},
		"24:00": {1440, true},
		"24:01": {0, false},
		"12":    {0, false},
		"12:5":  {0, false},
		"ab:cd": {0, false},
	}
	for in, want := range tests {
		got, ok := parseClock(in)
		assert.Equal(t, want.ok, ok, in)
		assert.Equal(t, want.minutes, got, in)
	}
}

func intPtr(v int) *int { return &v }
