package profile

import (
	"testing"
	"time"
)

func TestParseDateOfBirth(t *testing.T) {
	if got := ParseDateOfBirth("1990-01-01"); got == nil || got.Year() != 1990 {
		t.Errorf("expected 1990-01-01, got %v", got)
	}
	for _, bad := range []string{"", "   ", "01/01/1990", "1990-13-01", "yesterday"} {
		if got := ParseDateOfBirth(bad); got != nil {
			t.Errorf("ParseDateOfBirth(%q) = %v, want nil", bad, got)
		}
	}
}

func TestAgeAt(t *testing.T) {
	dob := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"day before birthday", time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC), 33},
		{"on birthday", time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), 34},
		{"earlier month", time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC), 33},
		{"later month", time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), 34},
		{"future dob", time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AgeAt(&dob, tt.now); got != tt.want {
				t.Errorf("AgeAt = %d, want %d", got, tt.want)
			}
		})
	}

	if got := AgeAt(nil, time.Now()); got != 0 {
		t.Errorf("expected 0 for nil dob, got %d", got)
	}
}
