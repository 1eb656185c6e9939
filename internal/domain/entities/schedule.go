package entities

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// TimeWindow is one opening period within a day, as "HH:MM" strings.
// Close must not be before Open; windows never span midnight.
type TimeWindow struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// WeeklySchedule holds the opening windows for each day of the week.
// Days are addressed with time.Weekday, so Sunday is index 0.
type WeeklySchedule struct {
	Mon []TimeWindow `json:"mon"`
	Tue []TimeWindow `json:"tue"`
	Wed []TimeWindow `json:"wed"`
	Thu []TimeWindow `json:"thu"`
	Fri []TimeWindow `json:"fri"`
	Sat []TimeWindow `json:"sat"`
	Sun []TimeWindow `json:"sun"`
}

// OpenStatus is the result of evaluating a schedule at an instant.
type OpenStatus struct {
	Open            bool `json:"open"`
	ClosesInMinutes *int `json:"closesInMins,omitempty"`
}

// Clone copies every day's window slice.
func (s WeeklySchedule) Clone() WeeklySchedule {
	return WeeklySchedule{
		Mon: slices.Clone(s.Mon),
		Tue: slices.Clone(s.Tue),
		Wed: slices.Clone(s.Wed),
		Thu: slices.Clone(s.Thu),
		Fri: slices.Clone(s.Fri),
		Sat: slices.Clone(s.Sat),
		Sun: slices.Clone(s.Sun),
	}
}

// Windows returns the windows declared for day.
func (s WeeklySchedule) Windows(day time.Weekday) []TimeWindow {
	switch day {
	case time.Sunday:
		return s.Sun
	case time.Monday:
		return s.Mon
	case time.Tuesday:
		return s.Tue
	case time.Wednesday:
		return s.Wed
	case time.Thursday:
		return s.Thu
	case time.Friday:
		return s.Fri
	case time.Saturday:
		return s.Sat
	}
	return nil
}

// StatusAt reports whether the schedule is open at now, using now's own location
// for the weekday and wall-clock time. Both window ends are inclusive and the first
// matching window in declaration order decides closesInMins.
func (s WeeklySchedule) StatusAt(now time.Time) OpenStatus {
	nowMinutes := now.Hour()*60 + now.Minute()
	for _, w := range s.Windows(now.Weekday()) {
		open, ok := parseClock(w.Open)
		if !ok {
			continue
		}
		closing, ok := parseClock(w.Close)
		if !ok {
			continue
		}
		if open <= nowMinutes && nowMinutes <= closing {
			remaining := closing - nowMinutes
			return OpenStatus{Open: true, ClosesInMinutes: &remaining}
		}
	}
	return OpenStatus{Open: false}
}

// Validate rejects malformed clock strings and windows that close before they open.
func (s WeeklySchedule) Validate() error {
	for day := time.Sunday; day <= time.Saturday; day++ {
		for i, w := range s.Windows(day) {
			open, ok := parseClock(w.Open)
			if !ok {
				return fmt.Errorf("%s window %d: invalid open time %q", day, i, w.Open)
			}
			closing, ok := parseClock(w.Close)
			if !ok {
				return fmt.Errorf("%s window %d: invalid close time %q", day, i, w.Close)
			}
			if closing < open {
				return fmt.Errorf("%s window %d: closes (%s) before it opens (%s)", day, i, w.Close, w.Open)
			}
		}
	}
	return nil
}

// parseClock converts "HH:MM" to minutes since midnight. "24:00" is accepted as end of day.
func parseClock(v string) (int, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(v), ":")
	if !found || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	if hours < 0 || minutes < 0 || minutes > 59 {
		return 0, false
	}
	if hours > 23 && !(hours == 24 && minutes == 0) {
		return 0, false
	}
	return hours*60 + minutes, true
}
