package providers

import (
	"math"
	"sort"
	"strconv"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
)

const (
	KindUniformInt   = "uniform_int"
	KindUniformFloat = "uniform_float"
	KindNormal       = "normal"
)

// UniformIntProvider draws integers from [min, max). Ranges passed to it are
// inclusive on both ends.
type UniformIntProvider struct {
	provider.Lifecycle
	cfg struct {
		Min int64 `mapstructure:"min"`
		Max int64 `mapstructure:"max"`
	}
}

func NewUniformInt() *UniformIntProvider {
	return &UniformIntProvider{Lifecycle: provider.NewLifecycle(KindUniformInt)}
}

func (p *UniformIntProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *UniformIntProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindUniformInt, prop, "min", "max"); err != nil {
		return err
	}
	if err := provider.DecodeParams(KindUniformInt, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	if p.cfg.Max <= p.cfg.Min {
		return errors.Newf(errors.ErrConfiguration, "%s: max (%d) must be greater than min (%d)", KindUniformInt, p.cfg.Max, p.cfg.Min)
	}
	p.MarkLoaded()
	return nil
}

func (p *UniformIntProvider) domain() interval {
	return interval{p.cfg.Min, p.cfg.Max - 1}
}

func (p *UniformIntProvider) pick(ivs []interval, excluded provider.Excluded) (interface{}, error) {
	o, err := pickOrdinal(KindUniformInt, p.Rand(), ivs, func(o int64) interface{} { return o }, excluded)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (p *UniformIntProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	return p.pick([]interval{p.domain()}, excluded)
}

func (p *UniformIntProvider) RangedRowValue(min, max interface{}, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	iv, err := toInterval(KindUniformInt, min, max, p.ordinal)
	if err != nil {
		return nil, err
	}
	return p.pick([]interval{iv}, excluded)
}

func (p *UniformIntProvider) RowValueOutsideRanges(ctx *provider.Context, excludedRanges []domain.WeightedRange, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	excl, err := toIntervals(KindUniformInt, excludedRanges, p.ordinal)
	if err != nil {
		return nil, err
	}
	ivs, err := complement(KindUniformInt, p.domain(), excl)
	if err != nil {
		return nil, err
	}
	return p.pick(ivs, excluded)
}

func (p *UniformIntProvider) ordinal(v interface{}) (int64, error) {
	n, ok := provider.ToInt64(v)
	if !ok {
		return 0, errors.Newf(errors.ErrConfiguration, "%s: %v is not an integer", KindUniformInt, v)
	}
	return n, nil
}

func (p *UniformIntProvider) Compare(a, b interface{}) (int, error) {
	x, err := p.ordinal(a)
	if err != nil {
		return 0, err
	}
	y, err := p.ordinal(b)
	if err != nil {
		return 0, err
	}
	return compareInt64(x, y), nil
}

func (p *UniformIntProvider) RowValueByID(id string) (interface{}, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errors.Newf(errors.ErrArgumentResolution, "%s: invalid id %q", KindUniformInt, id)
	}
	return n, nil
}

func (p *UniformIntProvider) ValueID(v interface{}) (string, error) {
	n, err := p.ordinal(v)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// UniformFloatProvider draws floats from [min, max).
type UniformFloatProvider struct {
	provider.Lifecycle
	cfg struct {
		Min float64 `mapstructure:"min"`
		Max float64 `mapstructure:"max"`
	}
}

func NewUniformFloat() *UniformFloatProvider {
	return &UniformFloatProvider{Lifecycle: provider.NewLifecycle(KindUniformFloat)}
}

func (p *UniformFloatProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *UniformFloatProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindUniformFloat, prop, "min", "max"); err != nil {
		return err
	}
	if err := provider.DecodeParams(KindUniformFloat, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	if !(p.cfg.Max > p.cfg.Min) {
		return errors.Newf(errors.ErrConfiguration, "%s: max (%g) must be greater than min (%g)", KindUniformFloat, p.cfg.Max, p.cfg.Min)
	}
	p.MarkLoaded()
	return nil
}

func (p *UniformFloatProvider) between(lo, hi float64, excluded provider.Excluded) (interface{}, error) {
	return provider.Retry(KindUniformFloat, excluded, func(int) (interface{}, error) {
		return lo + p.Rand().NextFloat()*(hi-lo), nil
	})
}

func (p *UniformFloatProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	return p.between(p.cfg.Min, p.cfg.Max, excluded)
}

func (p *UniformFloatProvider) RangedRowValue(min, max interface{}, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	lo, hi, err := p.bounds(min, max)
	if err != nil {
		return nil, err
	}
	return p.between(lo, hi, excluded)
}

// RowValueOutsideRanges picks a gap weighted by its width, then a point
// inside it.
func (p *UniformFloatProvider) RowValueOutsideRanges(ctx *provider.Context, excludedRanges []domain.WeightedRange, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	type span struct{ lo, hi float64 }
	excl := make([]span, 0, len(excludedRanges))
	for _, r := range excludedRanges {
		lo, hi, err := p.bounds(r.Min, r.Max)
		if err != nil {
			return nil, err
		}
		excl = append(excl, span{lo, hi})
	}
	sort.Slice(excl, func(i, j int) bool { return excl[i].lo < excl[j].lo })

	var gaps []span
	next := p.cfg.Min
	for i, s := range excl {
		if i > 0 && s.lo <= excl[i-1].hi {
			return nil, errors.Newf(errors.ErrConfiguration, "%s: excluded ranges overlap", KindUniformFloat)
		}
		if s.lo > next {
			gaps = append(gaps, span{next, math.Min(s.lo, p.cfg.Max)})
		}
		if s.hi > next {
			next = math.Nextafter(s.hi, math.Inf(1))
		}
	}
	if next < p.cfg.Max {
		gaps = append(gaps, span{next, p.cfg.Max})
	}
	weights := make([]float64, len(gaps))
	for i, g := range gaps {
		weights[i] = g.hi - g.lo
	}

	return provider.Retry(KindUniformFloat, excluded, func(int) (interface{}, error) {
		i := p.Rand().WeightedIndex(weights)
		if i < 0 {
			return nil, errors.Newf(errors.ErrConfiguration, "%s: excluded ranges cover the whole domain", KindUniformFloat)
		}
		g := gaps[i]
		return g.lo + p.Rand().NextFloat()*(g.hi-g.lo), nil
	})
}

func (p *UniformFloatProvider) bounds(min, max interface{}) (float64, float64, error) {
	lo, ok := provider.ToFloat64(min)
	if !ok {
		return 0, 0, errors.Newf(errors.ErrConfiguration, "%s: %v is not a number", KindUniformFloat, min)
	}
	hi, ok := provider.ToFloat64(max)
	if !ok {
		return 0, 0, errors.Newf(errors.ErrConfiguration, "%s: %v is not a number", KindUniformFloat, max)
	}
	if lo > hi {
		return 0, 0, errors.Newf(errors.ErrConfiguration, "%s: range min %g is greater than max %g", KindUniformFloat, lo, hi)
	}
	return lo, hi, nil
}

func (p *UniformFloatProvider) Compare(a, b interface{}) (int, error) {
	x, ok := provider.ToFloat64(a)
	if !ok {
		return 0, errors.Newf(errors.ErrConfiguration, "%s: %v is not a number", KindUniformFloat, a)
	}
	y, ok := provider.ToFloat64(b)
	if !ok {
		return 0, errors.Newf(errors.ErrConfiguration, "%s: %v is not a number", KindUniformFloat, b)
	}
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	}
	return 0, nil
}

func (p *UniformFloatProvider) RowValueByID(id string) (interface{}, error) {
	f, err := strconv.ParseFloat(id, 64)
	if err != nil {
		return nil, errors.Newf(errors.ErrArgumentResolution, "%s: invalid id %q", KindUniformFloat, id)
	}
	return f, nil
}

func (p *UniformFloatProvider) ValueID(v interface{}) (string, error) {
	f, ok := provider.ToFloat64(v)
	if !ok {
		return "", errors.Newf(errors.ErrArgumentResolution, "%s: %v is not a number", KindUniformFloat, v)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// NormalProvider draws from N(mean, std²). A bell curve has no useful
// notion of sub-ranges, so range generation is unsupported.
type NormalProvider struct {
	provider.Lifecycle
	provider.Unordered
	provider.NoIdentity
	cfg struct {
		Mean float64 `mapstructure:"mean"`
		Std  float64 `mapstructure:"std"`
	}
}

func NewNormal() *NormalProvider {
	return &NormalProvider{Lifecycle: provider.NewLifecycle(KindNormal)}
}

func (p *NormalProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *NormalProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindNormal, prop, "mean", "std"); err != nil {
		return err
	}
	if err := provider.DecodeParams(KindNormal, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	if p.cfg.Std <= 0 {
		return errors.Newf(errors.ErrConfiguration, "%s: std must be positive, got %g", KindNormal, p.cfg.Std)
	}
	p.MarkLoaded()
	return nil
}

func (p *NormalProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	return provider.Retry(KindNormal, excluded, func(int) (interface{}, error) {
		return p.Rand().NextNormal()*p.cfg.Std + p.cfg.Mean, nil
	})
}
