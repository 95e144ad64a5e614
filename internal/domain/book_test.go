package domain

import (
	"testing"
	"time"
)

func TestKeyFor(t *testing.T) {
	a := KeyFor("Dune", "Frank Herbert")
	b := KeyFor("  DUNE ", "FRANK HERBERT")
	if a != b {
		t.Errorf("expected keys to match: %+v vs %+v", a, b)
	}
	c := KeyFor("Dune Messiah", "Frank Herbert")
	if a == c {
		t.Error("different titles must produce different keys")
	}
}

func TestFormatReadingTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{3*time.Hour + 25*time.Minute + 45*time.Second, "03:25:45"},
		{105 * time.Hour, "105:00:00"},
		{-time.Minute, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatReadingTime(tt.d); got != tt.want {
			t.Errorf("FormatReadingTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSortAnnotations(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	anns := []AnnotationRecord{
		{Chapter: "Two", Text: "c", Progress: 0.5, Position: 4},
		{Chapter: "One", Text: "a", Progress: 0.1, Position: 2},
		{Chapter: "One", Text: "b", Progress: 0.1, Position: 8},
		{Chapter: "Two", Text: "d", Progress: 0.5, Position: 4, CreatedAt: base},
	}
	SortAnnotations(anns)

	got := make([]string, 0, len(anns))
	for _, a := range anns {
		got = append(got, a.Text)
	}
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
