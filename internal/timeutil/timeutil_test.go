package timeutil

import (
	"testing"
	"time"

	"github.com/mmrzaf/rowgen/internal/errors"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{" 1h", time.Hour},
		{"2d", 2 * Day},
		{"1w", Week},
		{"1w2d", Week + 2*Day},
		{"2d12h30m", 2*Day + 12*time.Hour + 30*time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDurationRejects(t *testing.T) {
	for _, in := range []string{"", "d", "3y", "xd", "2d3q", "w2"} {
		_, err := ParseDuration(in)
		if err == nil {
			t.Fatalf("ParseDuration(%q) should fail", in)
		}
		if !errors.Is(err, errors.ErrConfiguration) {
			t.Fatalf("ParseDuration(%q) code = %q", in, errors.CodeOf(err))
		}
	}
}

func TestParseRelativeTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"now", now},
		{"-1d", now.Add(-Day)},
		{"+2h", now.Add(2 * time.Hour)},
		{"-1w1d", now.Add(-8 * Day)},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-01-01T10:00:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseRelativeTime(tt.in, now)
		if err != nil {
			t.Fatalf("ParseRelativeTime(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("ParseRelativeTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, in := range []string{"", "yesterday", "-", "+3y"} {
		if _, err := ParseRelativeTime(in, now); err == nil {
			t.Fatalf("ParseRelativeTime(%q) should fail", in)
		}
	}
}
