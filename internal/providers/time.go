package providers

import (
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/timeutil"
)

const (
	KindTimeSeries  = "time_series"
	KindUniformTime = "uniform_time"
)

// Clock returns the instant relative times ("-30d") are resolved against.
type Clock func() time.Time

// TimeSeriesProvider emits start + rowIndex*step, optionally jittered.
type TimeSeriesProvider struct {
	provider.Lifecycle
	provider.Unordered
	now   Clock
	start time.Time
	step  time.Duration
	cfg   struct {
		Start         string `mapstructure:"start"`
		Step          string `mapstructure:"step"`
		JitterSeconds int64  `mapstructure:"jitter_seconds"`
	}
}

func NewTimeSeries(now Clock) *TimeSeriesProvider {
	if now == nil {
		now = time.Now
	}
	return &TimeSeriesProvider{Lifecycle: provider.NewLifecycle(KindTimeSeries), now: now}
}

func (p *TimeSeriesProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *TimeSeriesProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindTimeSeries, prop, "start", "step"); err != nil {
		return err
	}
	if err := provider.DecodeParams(KindTimeSeries, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	start, err := timeutil.ParseRelativeTime(p.cfg.Start, p.now())
	if err != nil {
		return errors.Newf(errors.ErrConfiguration, "time_series: invalid start time: %v", err)
	}
	step, err := timeutil.ParseDuration(p.cfg.Step)
	if err != nil {
		return errors.Newf(errors.ErrConfiguration, "time_series: invalid step duration: %v", err)
	}
	if p.cfg.JitterSeconds < 0 {
		return errors.New(errors.ErrConfiguration, "time_series: jitter_seconds cannot be negative")
	}
	p.start, p.step = start.UTC(), step
	p.MarkLoaded()
	return nil
}

func (p *TimeSeriesProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	var rowIndex int64
	if ctx != nil {
		rowIndex = ctx.RowIndex
	}
	base := p.start.Add(time.Duration(rowIndex) * p.step)
	if p.cfg.JitterSeconds == 0 {
		if excluded.Contains(base) {
			return nil, provider.Exhausted(KindTimeSeries, excluded)
		}
		return base, nil
	}
	j := p.cfg.JitterSeconds
	return provider.Retry(KindTimeSeries, excluded, func(int) (interface{}, error) {
		return base.Add(time.Duration(p.Rand().NextInt64(-j, j+1)) * time.Second), nil
	})
}

func (p *TimeSeriesProvider) RowValueByID(id string) (interface{}, error) {
	return parseTimeID(KindTimeSeries, id)
}

func (p *TimeSeriesProvider) ValueID(v interface{}) (string, error) {
	return timeID(KindTimeSeries, v)
}

// UniformTimeProvider draws instants from [start, end] at a fixed
// resolution. Ranges may be RFC3339 or relative ("-7d").
type UniformTimeProvider struct {
	provider.Lifecycle
	now        Clock
	anchor     time.Time
	resolution time.Duration
	dom        interval
	cfg        struct {
		Start      string `mapstructure:"start"`
		End        string `mapstructure:"end"`
		Resolution string `mapstructure:"resolution"`
	}
}

func NewUniformTime(now Clock) *UniformTimeProvider {
	if now == nil {
		now = time.Now
	}
	return &UniformTimeProvider{Lifecycle: provider.NewLifecycle(KindUniformTime), now: now}
}

func (p *UniformTimeProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *UniformTimeProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindUniformTime, prop, "start", "end"); err != nil {
		return err
	}
	p.cfg.Resolution = "1s"
	if err := provider.DecodeParams(KindUniformTime, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	res, err := timeutil.ParseDuration(p.cfg.Resolution)
	if err != nil || res <= 0 {
		return errors.Newf(errors.ErrConfiguration, "uniform_time: invalid resolution %q", p.cfg.Resolution)
	}
	p.resolution = res
	p.anchor = p.now().UTC()

	lo, err := p.ordinal(p.cfg.Start)
	if err != nil {
		return err
	}
	hi, err := p.ordinal(p.cfg.End)
	if err != nil {
		return err
	}
	if lo > hi {
		return errors.Newf(errors.ErrConfiguration, "uniform_time: start %s is after end %s", p.cfg.Start, p.cfg.End)
	}
	p.dom = interval{lo, hi}
	p.MarkLoaded()
	return nil
}

// ordinal converts a bound to a count of resolution steps since the epoch.
func (p *UniformTimeProvider) ordinal(v interface{}) (int64, error) {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case string:
		parsed, err := timeutil.ParseRelativeTime(val, p.anchor)
		if err != nil {
			return 0, errors.Newf(errors.ErrConfiguration, "uniform_time: %v", err)
		}
		t = parsed
	default:
		return 0, errors.Newf(errors.ErrConfiguration, "uniform_time: %v is not a time", v)
	}
	return t.UnixNano() / int64(p.resolution), nil
}

func (p *UniformTimeProvider) instant(o int64) time.Time {
	return time.Unix(0, o*int64(p.resolution)).UTC()
}

func (p *UniformTimeProvider) pick(ivs []interval, excluded provider.Excluded) (interface{}, error) {
	o, err := pickOrdinal(KindUniformTime, p.Rand(), ivs, func(o int64) interface{} { return p.instant(o) }, excluded)
	if err != nil {
		return nil, err
	}
	return p.instant(o), nil
}

func (p *UniformTimeProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	return p.pick([]interval{p.dom}, excluded)
}

func (p *UniformTimeProvider) RangedRowValue(min, max interface{}, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	iv, err := toInterval(KindUniformTime, min, max, p.ordinal)
	if err != nil {
		return nil, err
	}
	return p.pick([]interval{iv}, excluded)
}

func (p *UniformTimeProvider) RowValueOutsideRanges(ctx *provider.Context, excludedRanges []domain.WeightedRange, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	excl, err := toIntervals(KindUniformTime, excludedRanges, p.ordinal)
	if err != nil {
		return nil, err
	}
	ivs, err := complement(KindUniformTime, p.dom, excl)
	if err != nil {
		return nil, err
	}
	return p.pick(ivs, excluded)
}

func (p *UniformTimeProvider) Compare(a, b interface{}) (int, error) {
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

func (p *UniformTimeProvider) RowValueByID(id string) (interface{}, error) {
	return parseTimeID(KindUniformTime, id)
}

func (p *UniformTimeProvider) ValueID(v interface{}) (string, error) {
	return timeID(KindUniformTime, v)
}

func timeID(kind string, v interface{}) (string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return "", errors.Newf(errors.ErrArgumentResolution, "%s: %v is not a time", kind, v)
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

func parseTimeID(kind, id string) (interface{}, error) {
	t, err := time.Parse(time.RFC3339Nano, id)
	if err != nil {
		return nil, errors.Newf(errors.ErrArgumentResolution, "%s: invalid id %q", kind, id)
	}
	return t.UTC(), nil
}
