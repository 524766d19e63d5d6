package shared

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{"2026-04-30", "2026-04-30T18:45:00+02:00"} {
		got, err := ParseDate(input)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: expected %v, got %v", input, want, got)
		}
	}
	if got, err := ParseDate(""); err != nil || !got.IsZero() {
		t.Fatalf("expected zero time for empty input, got %v (%v)", got, err)
	}
	if _, err := ParseDate("30.04.2026"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if FormatDate(want) != "2026-04-30" || FormatDate(time.Time{}) != "" {
		t.Fatal("unexpected FormatDate output")
	}
}
