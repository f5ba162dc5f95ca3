// Package schedule decides whether a scheduled unit (a whole issue, a source,
// or a sub-section) runs today. Pure calendar math, no I/O.
package schedule

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Frequency describes a delivery cadence. The zero value is not meaningful;
// absence is modeled as a nil pointer plus an explicit MissingPolicy.
type Frequency struct {
	Cadence    string `yaml:"frequency"`    // daily, weekdays, weekly, every_other_week, monthly
	DayOfWeek  string `yaml:"day_of_week"`  // For weekly/every_other_week, defaults to Monday
	OddWeeks   bool   `yaml:"odd_weeks"`    // every_other_week: fire on odd ISO week numbers
	DayOfMonth int    `yaml:"day_of_month"` // For monthly, defaults to 1
}

// MissingPolicy states what a nil Frequency means at a given call site. The
// caller always declares intent; absence is never interpreted implicitly.
type MissingPolicy int

const (
	// MissingMeansAlways treats a nil spec as "always eligible". Used for
	// general-purpose content sources where a cadence is optional.
	MissingMeansAlways MissingPolicy = iota
	// MissingMeansNever treats a nil spec as a config error: it is logged
	// and the unit is excluded. Used where a cadence is structurally
	// required, e.g. whole-issue delivery.
	MissingMeansNever
)

// dayNumbers maps spelled-out day names to ISO weekday numbers (Monday=1).
var dayNumbers = map[string]int{
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
	"sunday":    7,
}

func dayNameToNumber(name string) (int, error) {
	if name == "" {
		name = "Monday"
	}
	n, ok := dayNumbers[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown day of week %q", name)
	}
	return n, nil
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// IsScheduled reports whether today falls on the requested cadence. context
// names the caller's scenario for the warning emitted under MissingMeansNever.
func IsScheduled(freq *Frequency, today time.Time, policy MissingPolicy, context string, log *slog.Logger) bool {
	if freq == nil || freq.Cadence == "" {
		if policy == MissingMeansAlways {
			return true
		}
		log.Warn("missing frequency spec where one was required; unit excluded", "context", context)
		return false
	}

	switch freq.Cadence {
	case "daily":
		return true

	case "weekdays":
		return isoWeekday(today) < 6

	case "weekly":
		want, err := dayNameToNumber(freq.DayOfWeek)
		if err != nil {
			log.Warn("frequency not parsed", "error", err, "context", context)
			return false
		}
		return isoWeekday(today) == want

	case "every_other_week":
		want, err := dayNameToNumber(freq.DayOfWeek)
		if err != nil {
			log.Warn("frequency not parsed", "error", err, "context", context)
			return false
		}
		_, week := today.ISOWeek()
		weekMatch := (freq.OddWeeks && week%2 == 1) || (!freq.OddWeeks && week%2 == 0)
		return weekMatch && isoWeekday(today) == want

	case "monthly":
		dom := freq.DayOfMonth
		if dom == 0 {
			dom = 1
		}
		return today.Day() == dom

	default:
		log.Warn("unexpected frequency value, not parsed", "frequency", freq.Cadence, "context", context)
		return false
	}
}

// boundLayouts are the accepted date formats for season window bounds.
// Layouts without a year inherit the year of "today".
var boundLayouts = []struct {
	layout  string
	hasYear bool
}{
	{"1/2/2006", true},
	{"January 2, 2006", true},
	{"Jan 2, 2006", true},
	{"January 2 2006", true},
	{"Jan 2 2006", true},
	{"1/2", false},
	{"January 2", false},
	{"Jan 2", false},
}

func parseBound(s string, today time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range boundLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if !l.hasYear {
			t = time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date bound %q", s)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InSeason reports whether today falls inside any of the configured season
// windows. Windows are "start - end" strings; an open bound defaults to
// today, which makes the window currently active on that side. An empty list
// means no restriction. A malformed or unparseable window is skipped with a
// warning and only disqualifies itself.
func InSeason(windows []string, today time.Time, log *slog.Logger) bool {
	if len(windows) == 0 {
		return true
	}
	today = dateOnly(today)
	for _, window := range windows {
		if strings.Count(window, "-") != 1 {
			log.Warn("couldn't parse season window: expected exactly one '-'", "window", window)
			continue
		}
		parts := strings.SplitN(window, "-", 2)

		start := today
		if s := strings.TrimSpace(parts[0]); s != "" {
			parsed, err := parseBound(s, today)
			if err != nil {
				log.Warn("couldn't parse season window", "window", window, "error", err)
				continue
			}
			start = dateOnly(parsed)
		}
		end := today
		if s := strings.TrimSpace(parts[1]); s != "" {
			parsed, err := parseBound(s, today)
			if err != nil {
				log.Warn("couldn't parse season window", "window", window, "error", err)
				continue
			}
			end = dateOnly(parsed)
		}

		if end.Before(start) {
			continue
		}
		if !today.Before(start) && !today.After(end) {
			return true
		}
	}
	return false
}
