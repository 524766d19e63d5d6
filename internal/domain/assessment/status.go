package assessment

import "fmt"

// Status is the lifecycle stage of an assessment process.
type Status string

const (
	StatusInDefinition              Status = "in_definition"
	StatusInSelfAssessment          Status = "in_self_assessment"
	StatusAwaitingManagerAssessment Status = "awaiting_manager_assessment"
	StatusCompleted                 Status = "completed"
)

// progression is the only legal order of stages.
var progression = []Status{
	StatusInDefinition,
	StatusInSelfAssessment,
	StatusAwaitingManagerAssessment,
	StatusCompleted,
}

// Statuses returns every status in progression order.
func Statuses() []Status {
	out := make([]Status, len(progression))
	copy(out, progression)
	return out
}

// StatusNames is Statuses as plain strings.
func StatusNames() []string {
	out := make([]string, 0, len(progression))
	for _, s := range progression {
		out = append(out, string(s))
	}
	return out
}

func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown assessment status %q", value)
	}
	return status, nil
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	return s.rank() >= 0
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Active is false only once the process is completed.
func (s Status) Active() bool {
	return s.IsValid() && !s.IsTerminal()
}

// Next returns the immediate successor. The second value is false for
// completed and for unknown statuses.
func (s Status) Next() (Status, bool) {
	idx := s.rank()
	if idx < 0 || idx+1 >= len(progression) {
		return "", false
	}
	return progression[idx+1], true
}

// CanTransitionTo allows exactly one forward step: no skips, no regressions
// and no self loops.
func (s Status) CanTransitionTo(target Status) bool {
	next, ok := s.Next()
	return ok && next == target
}

func (s Status) rank() int {
	for i, candidate := range progression {
		if candidate == s {
			return i
		}
	}
	return -1
}
