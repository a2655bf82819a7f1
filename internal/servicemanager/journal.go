package servicemanager

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// journalEntry is one line of `journalctl -o json`. Journal JSON encodes numbers as strings.
type journalEntry struct {
	RealtimeTimestamp string `json:"__REALTIME_TIMESTAMP"`
	Message           string `json:"MESSAGE"`
	JobType           string `json:"JOB_TYPE"`
	UnitResult        string `json:"UNIT_RESULT"`
}

// parseJournal converts journal output into run events. A JOB_TYPE field marks a
// started run and a UNIT_RESULT field marks a failed one. Non-JSON lines are skipped.
func parseJournal(out []byte) ([]RunEvent, error) {
	var events []RunEvent

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var e journalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry; %w", err)
		}

		ts, _ := strconv.ParseUint(e.RealtimeTimestamp, 10, 64)
		events = append(events, RunEvent{
			TimeUSec: ts,
			Message:  e.Message,
			Started:  e.JobType != "",
			Failed:   e.JobType == "" && e.UnitResult != "",
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan journal output; %w", err)
	}

	return events, nil
}

// SuccessRate returns (started - failed) / started over events, exactly 1.0 when
// nothing has started.
func SuccessRate(events []RunEvent) float64 {
	started, failed := 0, 0
	for _, e := range events {
		if e.Started {
			started++
		}
		if e.Failed {
			failed++
		}
	}
	if started == 0 {
		return 1.0
	}
	if failed > started {
		failed = started
	}
	return float64(started-failed) / float64(started)
}
