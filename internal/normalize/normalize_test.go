package normalize

import (
	"reflect"
	"testing"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase passthrough", "dune", "dune"},
		{"uppercase", "DUNE", "dune"},
		{"mixed case with spaces", "  Frank Herbert ", "frank herbert"},
		{"empty", "", ""},
		{"accented", "García Márquez", "garcía márquez"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fold(tt.input); got != tt.want {
				t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFoldMatchesAcrossCase(t *testing.T) {
	if Fold("The Left Hand of Darkness") != Fold("THE LEFT HAND OF DARKNESS") {
		t.Error("expected folded forms to match across case")
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"en", "English"},
		{"en-US", "English"},
		{"es-ES", "Spanish"},
		{"ES", "Spanish"},
		{"fr_FR", "French"},
		{"", "English"},
		{"xx", "English"},
	}

	for _, tt := range tests {
		if got := LanguageName(tt.tag); got != tt.want {
			t.Errorf("LanguageName(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestSplitGenres(t *testing.T) {
	tests := []struct {
		name     string
		subjects []string
		want     []string
	}{
		{
			name:     "already split",
			subjects: []string{"Science Fiction", "Adventure"},
			want:     []string{"Science Fiction", "Adventure"},
		},
		{
			name:     "single packed subject",
			subjects: []string{"Science Fiction, Adventure, Classics"},
			want:     []string{"Science Fiction", "Adventure", "Classics"},
		},
		{
			name:     "blank entries dropped",
			subjects: []string{"Fantasy", "  ", ""},
			want:     []string{"Fantasy"},
		},
		{
			name:     "nil",
			subjects: nil,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitGenres(tt.subjects); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitGenres(%v) = %v, want %v", tt.subjects, got, tt.want)
			}
		})
	}
}
