package jobs

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ValidationError describes an invalid job declaration.
type ValidationError struct {
	Job     string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Job == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("job %q: %s: %s", e.Job, e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("jobs validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.@-]*$`)

var reservedSuffixes = []string{".service", ".timer", ".plist"}

// Validate checks a job list before any unit is generated.
// Duplicate names are always reported, regardless of other errors.
func Validate(list []Job) error {
	var errs ValidationErrors
	seen := make(map[string]bool, len(list))

	for i, j := range list {
		if j.Name == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("jobs[%d].name", i),
				Message: "must not be empty",
			})
			continue
		}

		if seen[j.Name] {
			errs = append(errs, ValidationError{
				Job:     j.Name,
				Field:   "name",
				Message: "duplicate job name",
			})
		}
		seen[j.Name] = true

		if !validName.MatchString(j.Name) {
			errs = append(errs, ValidationError{
				Job:     j.Name,
				Field:   "name",
				Message: "may only contain letters, digits, '_', '.', '@' and '-'",
			})
		}
		for _, suffix := range reservedSuffixes {
			if strings.HasSuffix(j.Name, suffix) {
				errs = append(errs, ValidationError{
					Job:     j.Name,
					Field:   "name",
					Message: fmt.Sprintf("must not end with %q", suffix),
				})
			}
		}

		if j.Command.IsZero() {
			errs = append(errs, ValidationError{
				Job:     j.Name,
				Field:   "command",
				Message: "must not be empty",
			})
		}

		if s := j.Schedule; s != nil {
			switch s.Kind {
			case ScheduleCalendar:
				if strings.TrimSpace(s.Expression) == "" {
					errs = append(errs, ValidationError{Job: j.Name, Field: "schedule", Message: "must not be empty"})
				}
			case ScheduleInterval:
				if s.Seconds <= 0 {
					errs = append(errs, ValidationError{
						Job:     j.Name,
						Field:   "interval",
						Message: fmt.Sprintf("must be positive, got %d", s.Seconds),
					})
				}
			case ScheduleTimerSpec:
				if len(s.Timer) == 0 {
					errs = append(errs, ValidationError{Job: j.Name, Field: "timer", Message: "must not be empty"})
				}
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func sortProperties(props []Property) []Property {
	out := make([]Property, len(props))
	copy(out, props)
	sort.SliceStable(out, func(i, k int) bool { return out[i].Key < out[k].Key })
	return out
}
