package assessment

import "testing"

func TestStatusProgression(t *testing.T) {
	tests := []struct {
		from Status
		next Status
		ok   bool
	}{
		{from: StatusInDefinition, next: StatusInSelfAssessment, ok: true},
		{from: StatusInSelfAssessment, next: StatusAwaitingManagerAssessment, ok: true},
		{from: StatusAwaitingManagerAssessment, next: StatusCompleted, ok: true},
		{from: StatusCompleted, ok: false},
		{from: Status("archived"), ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.from), func(t *testing.T) {
			next, ok := tc.from.Next()
			if ok != tc.ok || next != tc.next {
				t.Fatalf("expected (%q,%v), got (%q,%v)", tc.next, tc.ok, next, ok)
			}
		})
	}
}

func TestCanTransitionToOnlyImmediateSuccessor(t *testing.T) {
	all := Statuses()
	for i, from := range all {
		for j, to := range all {
			want := j == i+1
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, name := range StatusNames() {
		if _, err := ParseStatus(name); err != nil {
			t.Fatalf("unexpected error for %s: %v", name, err)
		}
	}
	if _, err := ParseStatus("In_Definition"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if _, err := ParseStatus(""); err == nil {
		t.Fatal("expected error for empty status")
	}
}

func TestActiveDerivedFromStatus(t *testing.T) {
	if !StatusInDefinition.Active() || !StatusAwaitingManagerAssessment.Active() {
		t.Fatal("expected open stages to be active")
	}
	if StatusCompleted.Active() {
		t.Fatal("completed must not be active")
	}
}

func TestDefaultPolicy(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		role string
		want bool
	}{
		{name: "manager starts", from: StatusInDefinition, to: StatusInSelfAssessment, role: "manager", want: true},
		{name: "employee cannot start", from: StatusInDefinition, to: StatusInSelfAssessment, role: "employee"},
		{name: "employee submits self assessment", from: StatusInSelfAssessment, to: StatusAwaitingManagerAssessment, role: "employee", want: true},
		{name: "manager submits on behalf", from: StatusInSelfAssessment, to: StatusAwaitingManagerAssessment, role: "manager", want: true},
		{name: "employee cannot complete", from: StatusAwaitingManagerAssessment, to: StatusCompleted, role: "employee"},
		{name: "manager completes", from: StatusAwaitingManagerAssessment, to: StatusCompleted, role: "manager", want: true},
		{name: "no edge for skips", from: StatusInDefinition, to: StatusCompleted, role: "manager"},
		{name: "unknown role", from: StatusInDefinition, to: StatusInSelfAssessment, role: "guest"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultPolicy.Allow(tc.from, tc.to, tc.role); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
