package providers

import (
	"sort"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/random"
)

// interval is an inclusive [lo, hi] span of ordinals.
type interval struct {
	lo, hi int64
}

func (iv interval) size() int64 {
	return iv.hi - iv.lo + 1
}

func totalSize(ivs []interval) int64 {
	var n int64
	for _, iv := range ivs {
		n += iv.size()
	}
	return n
}

// at maps an offset in [0, totalSize) onto the ordinal it addresses.
func at(ivs []interval, off int64) int64 {
	for _, iv := range ivs {
		if off < iv.size() {
			return iv.lo + off
		}
		off -= iv.size()
	}
	panic("offset outside intervals")
}

// pickOrdinal draws one ordinal uniformly from ivs whose value is not
// excluded. Every attempt costs exactly one draw; the fallback scan costs one.
func pickOrdinal(kind string, rnd *random.Randomizer, ivs []interval, valueOf func(int64) interface{}, excluded provider.Excluded) (int64, error) {
	total := totalSize(ivs)
	if total <= 0 {
		return 0, errors.Newf(errors.ErrConfiguration, "%s: empty value domain", kind)
	}
	if excluded.Len() == 0 {
		return at(ivs, rnd.NextInt64(0, total)), nil
	}
	for attempt := 0; attempt < provider.MaxAttempts; attempt++ {
		o := at(ivs, rnd.NextInt64(0, total))
		if !excluded.Contains(valueOf(o)) {
			return o, nil
		}
	}
	if total > provider.MaxScanDomain {
		return 0, provider.Exhausted(kind, excluded)
	}
	var free []int64
	for _, iv := range ivs {
		for o := iv.lo; o <= iv.hi; o++ {
			if !excluded.Contains(valueOf(o)) {
				free = append(free, o)
			}
		}
	}
	if len(free) == 0 {
		return 0, provider.Exhausted(kind, excluded)
	}
	return free[rnd.NextInt(0, len(free))], nil
}

// complement returns the parts of dom not covered by any of excl. Excluded
// intervals must not overlap; gaps are the ordinals strictly between them.
func complement(kind string, dom interval, excl []interval) ([]interval, error) {
	sorted := append([]interval(nil), excl...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].lo < sorted[j].lo })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].lo <= sorted[i-1].hi {
			return nil, errors.Newf(errors.ErrConfiguration, "%s: excluded ranges overlap", kind)
		}
	}

	var out []interval
	next := dom.lo
	for _, iv := range sorted {
		if iv.hi < next {
			continue
		}
		if iv.lo > dom.hi {
			break
		}
		if iv.lo > next {
			out = append(out, interval{next, iv.lo - 1})
		}
		next = iv.hi + 1
	}
	if next <= dom.hi {
		out = append(out, interval{next, dom.hi})
	}
	if len(out) == 0 {
		return nil, errors.Newf(errors.ErrConfiguration, "%s: excluded ranges cover the whole domain", kind)
	}
	return out, nil
}

// toIntervals converts weighted ranges with conv and checks min <= max.
func toIntervals(kind string, ranges []domain.WeightedRange, conv func(interface{}) (int64, error)) ([]interval, error) {
	out := make([]interval, 0, len(ranges))
	for _, r := range ranges {
		iv, err := toInterval(kind, r.Min, r.Max, conv)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

func toInterval(kind string, min, max interface{}, conv func(interface{}) (int64, error)) (interval, error) {
	lo, err := conv(min)
	if err != nil {
		return interval{}, err
	}
	hi, err := conv(max)
	if err != nil {
		return interval{}, err
	}
	if lo > hi {
		return interval{}, errors.Newf(errors.ErrConfiguration, "%s: range min %v is greater than max %v", kind, min, max)
	}
	return interval{lo, hi}, nil
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
