package provider

import (
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/random"
)

// MaxAttempts bounds every retry-until-unique loop. Running out of attempts is
// a hard failure, never a silent fallback.
const MaxAttempts = 10

// MaxScanDomain is the largest finite domain PickFree will enumerate when
// random probing keeps hitting excluded values.
const MaxScanDomain = 1 << 20

// Exhausted builds the error returned when no admissible value was found.
func Exhausted(kind string, excluded Excluded) error {
	return errors.Newf(errors.ErrExhausted,
		"%s: cannot generate unique value after %d attempts (%d values excluded)", kind, MaxAttempts, excluded.Len())
}

// Retry calls produce until it returns a value outside excluded, at most
// MaxAttempts times. produce receives the zero-based attempt number so that
// input-driven providers can perturb later attempts.
func Retry(kind string, excluded Excluded, produce func(attempt int) (interface{}, error)) (interface{}, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		v, err := produce(attempt)
		if err != nil {
			return nil, err
		}
		if !excluded.Contains(v) {
			return v, nil
		}
	}
	return nil, Exhausted(kind, excluded)
}

// PickFree chooses an index in [0, n) whose value is not excluded.
//
// With nothing excluded it is a single draw. Small domains are scanned so
// that exhaustion is detected exactly; large ones are sampled MaxAttempts times
// first and only scanned when n <= MaxScanDomain.
func PickFree(kind string, rnd *random.Randomizer, n int, valueAt func(i int) interface{}, excluded Excluded) (int, error) {
	if n <= 0 {
		return -1, errors.Newf(errors.ErrConfiguration, "%s: empty value domain", kind)
	}
	if excluded.Len() == 0 {
		return rnd.NextInt(0, n), nil
	}

	if n > 64 {
		for attempt := 0; attempt < MaxAttempts; attempt++ {
			i := rnd.NextInt(0, n)
			if !excluded.Contains(valueAt(i)) {
				return i, nil
			}
		}
		if n > MaxScanDomain {
			return -1, Exhausted(kind, excluded)
		}
	}

	free := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !excluded.Contains(valueAt(i)) {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return -1, Exhausted(kind, excluded)
	}
	return free[rnd.NextInt(0, len(free))], nil
}
