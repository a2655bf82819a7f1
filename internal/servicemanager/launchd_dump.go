package servicemanager

import (
	"bufio"
	"strings"
)

// dumpParseState is the position of the dumpstate parser.
type dumpParseState int

const (
	// seekingBlock waits for a "name = {" line.
	seekingBlock dumpParseState = iota
	// readingFields reads the flat "key = value" lines of a block.
	readingFields
	// readingArguments reads the lines of the nested "arguments = {" sub-block.
	readingArguments
)

const calendarIntervalMarker = "com.apple.launchd.calendarinterval"

// dumpFields are the flat block fields that are kept.
var dumpFields = []string{"path", "last exit code", "pid", "run interval"}

// dumpBlock is one service entry of `launchctl dumpstate`.
type dumpBlock struct {
	Name      string
	Fields    map[string]string
	Arguments []string
	// Calendar is set when the block references a calendar-interval trigger.
	Calendar bool
}

// parseDumpstate parses `launchctl dumpstate` output. Blocks are top-level
// "name = {" ... "}" groups; argument lines differ from field lines only by
// nesting depth, so the parser tracks which of the two it is inside.
func parseDumpstate(out string) []dumpBlock {
	var (
		blocks []dumpBlock
		cur    dumpBlock
		state  = seekingBlock
	)

	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()

		switch state {
		case seekingBlock:
			name, ok := strings.CutSuffix(line, " = {")
			if !ok || strings.HasPrefix(line, "\t") {
				continue
			}
			cur = dumpBlock{Name: name, Fields: make(map[string]string)}
			state = readingFields

		case readingFields:
			if line == "}" {
				blocks = append(blocks, cur)
				state = seekingBlock
				continue
			}
			if strings.Contains(line, calendarIntervalMarker) {
				cur.Calendar = true
			}
			field := strings.TrimPrefix(line, "\t")
			if field == "arguments = {" {
				cur.Arguments = []string{}
				state = readingArguments
				continue
			}
			for _, f := range dumpFields {
				if v, ok := strings.CutPrefix(field, f+" = "); ok {
					cur.Fields[f] = v
					break
				}
			}

		case readingArguments:
			if line == "\t}" {
				state = readingFields
				continue
			}
			cur.Arguments = append(cur.Arguments, strings.TrimPrefix(line, "\t\t"))
		}
	}

	return blocks
}

// schedule describes how launchd triggers the block.
func (b dumpBlock) schedule() string {
	if interval, ok := b.Fields["run interval"]; ok {
		return "every " + interval
	}
	if b.Calendar {
		return "calendar"
	}
	// KeepAlive is not surfaced by dumpstate.
	return "always"
}

// managed reports whether the block is a dron agent: a dron-prefixed label
// running through the wrapper. dumpstate does not show the plist Comment, so
// this stands in for the marker when unit files are not read.
func (b dumpBlock) managed() bool {
	label := b.Name[strings.LastIndex(b.Name, "/")+1:]
	if !strings.HasPrefix(label, launchdLabelPrefix) {
		return false
	}
	return len(b.Arguments) > 1 && b.Arguments[1] == WrapperCommand
}
