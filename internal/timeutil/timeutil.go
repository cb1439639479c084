// Package timeutil parses the duration and instant notations scenario files
// use: Go durations extended with day ("d") and week ("w") units, RFC3339 or
// YYYY-MM-DD instants, "now", and offsets from now such as "-30d" or "+1w2d".
package timeutil

import (
	"strconv"
	"strings"
	"time"

	"github.com/mmrzaf/rowgen/internal/errors"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var calendarUnits = map[byte]time.Duration{
	'd': Day,
	'w': Week,
}

var instantLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDuration accepts anything time.ParseDuration does, plus leading
// calendar terms: "3d", "1w2d", "2d12h30m".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New(errors.ErrConfiguration, "empty duration")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	var total time.Duration
	rest := s
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			break
		}
		unit, ok := calendarUnits[rest[i]]
		if !ok {
			break
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, errors.Newf(errors.ErrConfiguration, "duration %q: %v", s, err)
		}
		total += time.Duration(n) * unit
		rest = rest[i+1:]
	}
	if rest == s {
		return 0, errors.Newf(errors.ErrConfiguration, "invalid duration %q", s)
	}
	if rest != "" {
		tail, err := time.ParseDuration(rest)
		if err != nil {
			return 0, errors.Newf(errors.ErrConfiguration, "invalid duration %q", s)
		}
		total += tail
	}
	return total, nil
}

// ParseRelativeTime resolves s against now. Absolute instants ignore now.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return time.Time{}, errors.New(errors.ErrConfiguration, "empty time")
	case s == "now":
		return now, nil
	case s[0] == '-' || s[0] == '+':
		d, err := ParseDuration(s[1:])
		if err != nil {
			return time.Time{}, err
		}
		if s[0] == '-' {
			d = -d
		}
		return now.Add(d), nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf(errors.ErrConfiguration, "time %q is neither an instant nor an offset like -30d", s)
}

