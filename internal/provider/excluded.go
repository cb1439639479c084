package provider

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
)

// Excluded is the set of values a provider must not return.
type Excluded interface {
	Contains(v interface{}) bool
	Len() int
}

// Key returns the canonical key used to compare values for uniqueness.
// Values are keyed by the form sinks store, so two records that are written
// as the same string (two extensions of one media type) collide. Integer
// widths collapse to one key space so 5 and int64(5) collide.
func Key(v interface{}) string {
	switch val := domain.SinkValue(v).(type) {
	case nil:
		return "n:"
	case string:
		return "s:" + val
	case []byte:
		return "s:" + string(val)
	case int:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case int32:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case int64:
		return "i:" + strconv.FormatInt(val, 10)
	case uint64:
		return "i:" + strconv.FormatUint(val, 10)
	case float32:
		return "f:" + strconv.FormatFloat(float64(val), 'g', -1, 64)
	case float64:
		return "f:" + strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(val)
	case time.Time:
		return "t:" + val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

type noneExcluded struct{}

func (noneExcluded) Contains(interface{}) bool { return false }
func (noneExcluded) Len() int                  { return 0 }

// None is the empty excluded set handed to non-unique properties.
var None Excluded = noneExcluded{}

// ValueSet is an in-memory Excluded keyed by Key.
type ValueSet map[string]struct{}

func NewValueSet(values ...interface{}) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (s ValueSet) Add(v interface{}) {
	s[Key(v)] = struct{}{}
}

func (s ValueSet) Contains(v interface{}) bool {
	_, ok := s[Key(v)]
	return ok
}

func (s ValueSet) Len() int {
	return len(s)
}
