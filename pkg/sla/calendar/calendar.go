package calendar

import (
	"fmt"
	"time"
)

// Calendar defines a recurring weekly business-hours window.
type Calendar struct {
	// Timezone is the IANA timezone identifier the daily window is
	// anchored in (e.g. "Europe/Berlin", "UTC").
	Timezone string `yaml:"timezone"`

	// DayStart is the daily window start in "HH:MM" form.
	DayStart string `yaml:"day_start"`

	// DayEnd is the daily window end in "HH:MM" form. Must be after
	// DayStart.
	DayEnd string `yaml:"day_end"`

	// Weekdays are the active days, 1 = Monday through 7 = Sunday.
	Weekdays []int `yaml:"weekdays"`
}

// Default returns a Monday-to-Friday 09:00-17:00 UTC calendar.
func Default() Calendar {
	return Calendar{
		Timezone: "UTC",
		DayStart: "09:00",
		DayEnd:   "17:00",
		Weekdays: []int{1, 2, 3, 4, 5},
	}
}

// Validate checks the calendar definition: the timezone must load, the
// daily window must be well-formed with start before end, and at least
// one weekday must be active.
func (c Calendar) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	start, err := parseClock(c.DayStart)
	if err != nil {
		return fmt.Errorf("invalid day start: %w", err)
	}
	end, err := parseClock(c.DayEnd)
	if err != nil {
		return fmt.Errorf("invalid day end: %w", err)
	}
	if start >= end {
		return fmt.Errorf("day start %q must be before day end %q", c.DayStart, c.DayEnd)
	}
	if len(c.Weekdays) == 0 {
		return fmt.Errorf("at least one active weekday is required")
	}
	for _, d := range c.Weekdays {
		if d < 1 || d > 7 {
			return fmt.Errorf("weekday %d out of range (1 = Monday .. 7 = Sunday)", d)
		}
	}
	return nil
}

// AddBusinessMinutes walks forward from start, consuming the minute
// budget only inside active windows, and returns the instant at which the
// budget is exhausted. If start falls inside an active window the budget
// is consumed from that point, not from the window's start. A start
// outside any window is first moved to the next window start.
func (c Calendar) AddBusinessMinutes(start time.Time, minutes int) time.Time {
	loc := c.location()
	t := c.nextActive(start.In(loc))
	remaining := time.Duration(minutes) * time.Minute

	for {
		avail := c.windowEnd(t).Sub(t)
		if remaining <= avail {
			return t.Add(remaining)
		}
		remaining -= avail
		t = c.nextActive(c.windowEnd(t))
	}
}

// BusinessMinutesElapsed sums the minutes of [from, to) that fall inside
// active windows. It is the inverse of AddBusinessMinutes:
// AddBusinessMinutes(start, BusinessMinutesElapsed(start, to)) == to
// whenever to itself lies inside a window or exactly at a window start.
func (c Calendar) BusinessMinutesElapsed(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}

	loc := c.location()
	t := from.In(loc)
	end := to.In(loc)

	var total time.Duration
	for t.Before(end) {
		t = c.nextActive(t)
		if !t.Before(end) {
			break
		}
		windowEnd := c.windowEnd(t)
		if windowEnd.After(end) {
			windowEnd = end
		}
		total += windowEnd.Sub(t)
		t = windowEnd
	}

	return int(total / time.Minute)
}

// IsBusinessTime reports whether t falls inside an active window.
func (c Calendar) IsBusinessTime(t time.Time) bool {
	lt := t.In(c.location())
	if !c.activeDay(lt) {
		return false
	}
	return !lt.Before(c.windowStart(lt)) && lt.Before(c.windowEnd(lt))
}

// nextActive normalizes t to the nearest instant at or after t that lies
// inside an active window.
func (c Calendar) nextActive(t time.Time) time.Time {
	for {
		if c.activeDay(t) {
			start := c.windowStart(t)
			if t.Before(start) {
				return start
			}
			if t.Before(c.windowEnd(t)) {
				return t
			}
		}
		// Past today's window (or inactive day): jump to next midnight.
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
	}
}

// activeDay reports whether t's weekday is active.
func (c Calendar) activeDay(t time.Time) bool {
	day := int(t.Weekday())
	if day == 0 {
		day = 7 // Sunday
	}
	for _, d := range c.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// windowStart returns the daily window start on t's date.
func (c Calendar) windowStart(t time.Time) time.Time {
	m, _ := parseClock(c.DayStart)
	return time.Date(t.Year(), t.Month(), t.Day(), m/60, m%60, 0, 0, t.Location())
}

// windowEnd returns the daily window end on t's date.
func (c Calendar) windowEnd(t time.Time) time.Time {
	m, _ := parseClock(c.DayEnd)
	return time.Date(t.Year(), t.Month(), t.Day(), m/60, m%60, 0, 0, t.Location())
}

// location loads the configured timezone, falling back to UTC. Validate
// rejects unknown timezones eagerly, so the fallback only applies to
// calendars that bypassed validation.
func (c Calendar) location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseClock parses an "HH:MM" clock string into minutes of day.
func parseClock(s string) (int, error) {
	var hour, min int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return hour*60 + min, nil
}
