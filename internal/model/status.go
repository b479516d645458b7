package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the lifecycle state of an appointment. The integer values are the
// wire and storage codes and must not be reordered.
type Status int

const (
	StatusNotSet    Status = -1
	StatusScheduled Status = 0
	StatusCheckedIn Status = 1
	StatusServing   Status = 2
	StatusServed    Status = 3
	StatusCancelled Status = 4

	// StatusUnknown stands in for input that names no status.
	StatusUnknown Status = -2
)

var statusNames = map[Status]string{
	StatusNotSet:    "NotSet",
	StatusScheduled: "Scheduled",
	StatusCheckedIn: "CheckedIn",
	StatusServing:   "Serving",
	StatusServed:    "Served",
	StatusCancelled: "Cancelled",
}

var transitions = map[Status][]Status{
	StatusScheduled: {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusServing, StatusCancelled},
	StatusServing:   {StatusServed, StatusCancelled},
}

// OpenStatuses are the statuses that count against the one open appointment
// per user rule. They are also the default admin queue filter.
var OpenStatuses = []Status{StatusScheduled, StatusCheckedIn, StatusServing}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// IsValid reports whether s may be persisted.
func (s Status) IsValid() bool {
	return s >= StatusScheduled && s <= StatusCancelled
}

func (s Status) IsTerminal() bool {
	return s == StatusServed || s == StatusCancelled
}

func (s Status) IsOpen() bool {
	return s.IsValid() && !s.IsTerminal()
}

// AllowedNext returns the statuses reachable from s in one step.
func (s Status) AllowedNext() []Status {
	return transitions[s]
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus accepts an integer code or a case-insensitive status name.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if code, err := strconv.Atoi(raw); err == nil {
		s := Status(code)
		if s == StatusNotSet || s.IsValid() {
			return s, nil
		}
		return StatusNotSet, fmt.Errorf("unknown status code %d", code)
	}

	for s, name := range statusNames {
		if strings.EqualFold(name, raw) {
			return s, nil
		}
	}
	return StatusNotSet, fmt.Errorf("unknown status %q", raw)
}
