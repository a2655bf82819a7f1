package wrapper

import "sync"

// truncatedPrefix marks a report whose output lost its head.
const truncatedPrefix = "[...]\n"

// tailBuffer keeps the last max bytes written to it. Long-running jobs can
// print without bound; only the tail ends up in the failure report.
type tailBuffer struct {
	mu        sync.Mutex
	max       int
	buf       []byte
	truncated bool
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = DefaultReportTail
	}
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(p) >= t.max {
		t.truncated = t.truncated || len(p) > t.max || len(t.buf) > 0
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return len(p), nil
	}

	if excess := len(t.buf) + len(p) - t.max; excess > 0 {
		t.truncated = true
		// Compact in place so the backing array stays at max bytes.
		n := copy(t.buf, t.buf[excess:])
		t.buf = t.buf[:n]
	}
	t.buf = append(t.buf, p...)
	return len(p), nil
}

// Bytes returns a copy of the kept output, prefixed with a marker when the
// head was dropped.
func (t *tailBuffer) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]byte, 0, len(truncatedPrefix)+len(t.buf))
	if t.truncated {
		out = append(out, truncatedPrefix...)
	}
	return append(out, t.buf...)
}
