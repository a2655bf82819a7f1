package monitor

import (
	"fmt"
	"time"

	"github.com/leefowlercu/dron/internal/servicemanager"
)

const day = 24 * time.Hour

// FormatDelta renders a duration compactly so the monitor does not tick every
// second: exact below one minute, whole minutes up to a day, then days and hours.
// Rounded values are prefixed with ">". The sign is dropped.
func FormatDelta(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	d = d.Truncate(time.Second)

	switch {
	case d > day:
		return fmt.Sprintf(">%dd %dh", d/day, (d%day)/time.Hour)
	case d > time.Minute:
		return ">" + clock(d.Truncate(time.Minute))
	default:
		return clock(d)
	}
}

func clock(d time.Duration) string {
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FromUSec converts realtime epoch microseconds to a time. ok is false for zero
// and for the never-elapses sentinel.
func FromUSec(usec uint64) (t time.Time, ok bool) {
	if usec == 0 || usec == servicemanager.NeverUSec {
		return time.Time{}, false
	}
	// Anything past the int64 range is treated like the sentinel.
	if usec > uint64(1<<63-1) {
		return time.Time{}, false
	}
	return time.UnixMicro(int64(usec)), true
}

// FormatNext renders the next fire time and the time left until it.
func FormatNext(usec uint64, now time.Time) (next, left string) {
	if usec == servicemanager.NeverUSec {
		return LabelNever, LabelNone
	}
	t, ok := FromUSec(usec)
	if !ok {
		return LabelNA, LabelNone
	}
	return t.Local().Format("2006-01-02T15:04:05"), FormatDelta(t.Sub(now))
}

// FormatLast renders the time since the last fire.
func FormatLast(usec uint64, now time.Time) string {
	t, ok := FromUSec(usec)
	if !ok {
		return LabelNever
	}
	return FormatDelta(now.Sub(t))
}
