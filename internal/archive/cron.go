package archive

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed five-field cron expression:
// minute hour day-of-month month day-of-week. Each field accepts "*",
// "*/step", a number, or a comma-separated list of numbers.
type Schedule struct {
	fields [5]cronField
}

type cronField struct {
	any    bool
	step   int
	values map[int]bool
}

func (f cronField) matches(v int) bool {
	switch {
	case f.any:
		return true
	case f.step > 0:
		return v%f.step == 0
	default:
		return f.values[v]
	}
}

var fieldBounds = [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}

var fieldNames = [5]string{"minute", "hour", "day-of-month", "month", "day-of-week"}

// ParseCron parses expr.
func ParseCron(expr string) (Schedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return Schedule{}, fmt.Errorf("cron %q: want 5 fields, got %d", expr, len(parts))
	}
	var s Schedule
	for i, p := range parts {
		f, err := parseField(p, fieldBounds[i][0], fieldBounds[i][1])
		if err != nil {
			return Schedule{}, fmt.Errorf("cron %q: %s field: %w", expr, fieldNames[i], err)
		}
		s.fields[i] = f
	}
	return s, nil
}

func parseField(p string, lo, hi int) (cronField, error) {
	if p == "*" {
		return cronField{any: true}, nil
	}
	if rest, ok := strings.CutPrefix(p, "*/"); ok {
		step, err := strconv.Atoi(rest)
		if err != nil || step <= 0 {
			return cronField{}, fmt.Errorf("bad step %q", p)
		}
		return cronField{step: step}, nil
	}
	f := cronField{values: map[int]bool{}}
	for _, v := range strings.Split(p, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return cronField{}, fmt.Errorf("bad value %q", v)
		}
		if n < lo || n > hi {
			return cronField{}, fmt.Errorf("value %d outside [%d, %d]", n, lo, hi)
		}
		f.values[n] = true
	}
	return f, nil
}

// Matches reports whether t (truncated to the minute) fires.
func (s Schedule) Matches(t time.Time) bool {
	return s.fields[0].matches(t.Minute()) &&
		s.fields[1].matches(t.Hour()) &&
		s.fields[2].matches(t.Day()) &&
		s.fields[3].matches(int(t.Month())) &&
		s.fields[4].matches(int(t.Weekday()))
}

// Next returns the first matching minute strictly after t, searching at
// most one year ahead.
func (s Schedule) Next(t time.Time) (time.Time, error) {
	c := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(1, 0, 1)
	for ; c.Before(limit); c = c.Add(time.Minute) {
		if s.Matches(c) {
			return c, nil
		}
	}
	return time.Time{}, fmt.Errorf("cron: no match within a year after %s", t.Format(time.RFC3339))
}
