package utils

import (
	"testing"
	"time"
)

func TestMillisRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)

	millis := TimeToMillis(now)
	back := MillisToTime(millis)

	if !back.Equal(now) {
		t.Errorf("round trip mismatch: got %v, want %v", back, now)
	}
}

func TestGetCurrentTimeMillis(t *testing.T) {
	before := TimeToMillis(time.Now())
	current := GetCurrentTimeMillis()
	after := TimeToMillis(time.Now())

	if current < before || current > after {
		t.Errorf("GetCurrentTimeMillis() = %d, want between %d and %d", current, before, after)
	}
}

func TestElapsedMinutes(t *testing.T) {
	tests := []struct {
		name     string
		from     int64
		to       int64
		expected float64
	}{
		{
			name:     "One minute",
			from:     0,
			to:       60000,
			expected: 1,
		},
		{
			name:     "Ninety seconds",
			from:     0,
			to:       90000,
			expected: 1.5,
		},
		{
			name:     "Same instant",
			from:     1700000000000,
			to:       1700000000000,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ElapsedMinutes(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("ElapsedMinutes(%d, %d) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	original := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	formatted := FormatTime(original)
	parsed, err := ParseTime(formatted)
	if err != nil {
		t.Fatalf("ParseTime(%q) returned error: %v", formatted, err)
	}

	if !parsed.Equal(original) {
		t.Errorf("round trip mismatch: got %v, want %v", parsed, original)
	}
}
