package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a jobs file encoding.
type Format string

const (
	// FormatYAML is the default jobs file encoding.
	FormatYAML Format = "yaml"
	// FormatTOML is selected for files ending in .toml.
	FormatTOML Format = "toml"
)

// FormatFor returns the encoding implied by a file name.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// fileDoc mirrors the on-disk jobs file before resolution.
type fileDoc struct {
	Defaults struct {
		OnFailure []string `yaml:"on_failure" toml:"on_failure"`
	} `yaml:"defaults" toml:"defaults"`
	Jobs []rawJob `yaml:"jobs" toml:"jobs"`
}

type rawJob struct {
	Name       string         `yaml:"name" toml:"name"`
	Command    any            `yaml:"command" toml:"command"`
	Schedule   any            `yaml:"schedule" toml:"schedule"`
	Interval   any            `yaml:"interval" toml:"interval"`
	Timer      map[string]any `yaml:"timer" toml:"timer"`
	OnFailure  *[]string      `yaml:"on_failure" toml:"on_failure"`
	Properties map[string]any `yaml:"properties" toml:"properties"`
}

// Load reads, resolves and validates the jobs file at path.
func Load(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file %s; %w", path, err)
	}

	list, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("invalid jobs file %s; %w", path, err)
	}
	return list, nil
}

// Parse decodes jobs from data and validates them.
func Parse(data []byte, format Format) ([]Job, error) {
	var doc fileDoc

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode toml; %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml; %w", err)
		}
	}

	list := make([]Job, 0, len(doc.Jobs))
	var errs ValidationErrors
	for _, raw := range doc.Jobs {
		j, verrs := raw.resolve(doc.Defaults.OnFailure)
		errs = append(errs, verrs...)
		list = append(list, j)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if err := Validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r rawJob) resolve(defaultOnFailure []string) (Job, ValidationErrors) {
	var errs ValidationErrors
	j := Job{Name: r.Name}

	switch c := r.Command.(type) {
	case nil:
	case string:
		j.Command = Shell(c)
	case []any:
		argv := make([]string, 0, len(c))
		for _, a := range c {
			argv = append(argv, fmt.Sprint(a))
		}
		j.Command = Args(argv...)
	default:
		errs = append(errs, ValidationError{Job: r.Name, Field: "command", Message: "must be a string or a list"})
	}

	// schedule takes a calendar string or a table of timer properties;
	// timer is the older spelling of the table form.
	forms := 0
	switch s := r.Schedule.(type) {
	case nil:
	case string:
		if s != "" {
			forms++
			j.Schedule = Calendar(s)
		}
	case map[string]any:
		if len(s) > 0 {
			forms++
			j.Schedule = TimerSpec(toProperties(s)...)
		}
	default:
		errs = append(errs, ValidationError{Job: r.Name, Field: "schedule", Message: "must be a calendar string or a table of timer properties"})
	}
	if r.Interval != nil {
		forms++
		secs, err := parseSeconds(r.Interval)
		if err != nil {
			errs = append(errs, ValidationError{Job: r.Name, Field: "interval", Message: err.Error()})
		} else {
			j.Schedule = Interval(secs)
		}
	}
	if len(r.Timer) > 0 {
		forms++
		j.Schedule = TimerSpec(toProperties(r.Timer)...)
	}
	if forms > 1 {
		errs = append(errs, ValidationError{
			Job:     r.Name,
			Field:   "schedule",
			Message: "only one of schedule, interval and timer may be set",
		})
	}

	if r.OnFailure != nil {
		j.OnFailure = *r.OnFailure
	} else {
		j.OnFailure = defaultOnFailure
	}

	j.Properties = sortProperties(toProperties(r.Properties))
	return j, errs
}

func parseSeconds(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("must be a whole number of seconds, got %v", n)
		}
		return int(n), nil
	case string:
		d, err := time.ParseDuration(n)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", n)
		}
		if d%time.Second != 0 {
			return 0, fmt.Errorf("must be a whole number of seconds, got %s", d)
		}
		return int(d / time.Second), nil
	default:
		return 0, fmt.Errorf("must be seconds or a duration string, got %T", v)
	}
}

func toProperties(m map[string]any) []Property {
	props := make([]Property, 0, len(m))
	for k, v := range m {
		props = append(props, Property{Key: k, Value: fmt.Sprint(v)})
	}
	return sortProperties(props)
}
