package servicemanager

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/leefowlercu/dron/internal/jobs"
)

// shorthandPeriods are the systemd calendar shorthands with a fixed period.
var shorthandPeriods = map[string]int{
	"minutely": 60,
	"hourly":   60 * 60,
	"daily":    60 * 60 * 24,
}

var (
	minuteDivisor = regexp.MustCompile(`^\*:0/(\d+)$`)
	secondDivisor = regexp.MustCompile(`^\*:\*:0/(\d+)$`)
	wallClock     = regexp.MustCompile(`^(\d\d):(\d\d)$`)
)

// CalendarPeriod returns the fixed period in seconds of a calendar expression,
// if it has one: a shorthand name, "*:0/N" (every N minutes) or "*:*:0/N" (every N seconds).
func CalendarPeriod(expr string) (int, bool) {
	if secs, ok := shorthandPeriods[expr]; ok {
		return secs, true
	}
	if m := minuteDivisor.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n * 60, true
		}
	}
	if m := secondDivisor.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// WallClock parses an "HH:MM" daily trigger.
func WallClock(expr string) (hour, minute int, ok bool) {
	m := wallClock.FindStringSubmatch(expr)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// launchdSchedule is a translated launchd trigger. Exactly one field is set.
type launchdSchedule struct {
	StartInterval int
	Calendar      *calendarInterval
	KeepAlive     bool
}

type calendarInterval struct {
	Hour   int
	Minute int
}

// translateLaunchd maps a job schedule onto launchd keys. Expressions that cannot be
// expressed on launchd are rejected, never defaulted.
func translateLaunchd(j jobs.Job) (launchdSchedule, error) {
	s := j.Schedule
	if s == nil {
		return launchdSchedule{}, jobs.ValidationError{
			Job:     j.Name,
			Field:   "schedule",
			Message: "manual jobs are not supported on launchd",
		}
	}

	switch s.Kind {
	case jobs.ScheduleAlways:
		return launchdSchedule{KeepAlive: true}, nil
	case jobs.ScheduleInterval:
		return launchdSchedule{StartInterval: s.Seconds}, nil
	case jobs.ScheduleCalendar:
		if secs, ok := CalendarPeriod(s.Expression); ok {
			return launchdSchedule{StartInterval: secs}, nil
		}
		if hour, minute, ok := WallClock(s.Expression); ok {
			return launchdSchedule{Calendar: &calendarInterval{Hour: hour, Minute: minute}}, nil
		}
		return launchdSchedule{}, jobs.ValidationError{
			Job:     j.Name,
			Field:   "schedule",
			Message: fmt.Sprintf("cannot translate %q to a launchd schedule", s.Expression),
		}
	default:
		return launchdSchedule{}, jobs.ValidationError{
			Job:     j.Name,
			Field:   "timer",
			Message: "timer properties are only supported on systemd",
		}
	}
}
