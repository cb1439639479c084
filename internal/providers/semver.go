package providers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
)

const KindSemVer = "semver"

type Version struct {
	Major, Minor, Patch int64
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// SemVerProvider orders versions by their ordinal
// major*(maxMinor+1)*(maxPatch+1) + minor*(maxPatch+1) + patch, so ranges and
// excluded ranges reduce to integer intervals.
type SemVerProvider struct {
	provider.Lifecycle
	cfg struct {
		MaxMajor int64 `mapstructure:"max_major"`
		MaxMinor int64 `mapstructure:"max_minor"`
		MaxPatch int64 `mapstructure:"max_patch"`
	}
}

func NewSemVer() *SemVerProvider {
	return &SemVerProvider{Lifecycle: provider.NewLifecycle(KindSemVer)}
}

func (p *SemVerProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *SemVerProvider) Load(prop *domain.Property, rowCount int64) error {
	p.cfg.MaxMajor, p.cfg.MaxMinor, p.cfg.MaxPatch = 9, 19, 29
	if err := provider.DecodeParams(KindSemVer, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	if p.cfg.MaxMajor < 0 || p.cfg.MaxMinor < 0 || p.cfg.MaxPatch < 0 {
		return errors.New(errors.ErrConfiguration, "semver: max_major, max_minor and max_patch cannot be negative")
	}
	// The ordinal domain must fit an int64.
	size := int64(1)
	for _, n := range []int64{p.cfg.MaxMajor, p.cfg.MaxMinor, p.cfg.MaxPatch} {
		if n == math.MaxInt64 || size > math.MaxInt64/(n+1) {
			return errors.Newf(errors.ErrConfiguration, "semver: %d.%d.%d spans more versions than an int64 can count",
				p.cfg.MaxMajor, p.cfg.MaxMinor, p.cfg.MaxPatch)
		}
		size *= n + 1
	}
	p.MarkLoaded()
	return nil
}

func (p *SemVerProvider) domain() interval {
	return interval{0, (p.cfg.MaxMajor+1)*(p.cfg.MaxMinor+1)*(p.cfg.MaxPatch+1) - 1}
}

func (p *SemVerProvider) version(o int64) Version {
	patches := p.cfg.MaxPatch + 1
	minors := p.cfg.MaxMinor + 1
	return Version{
		Major: o / (minors * patches),
		Minor: (o / patches) % minors,
		Patch: o % patches,
	}
}

func (p *SemVerProvider) ordinalOf(v Version) (int64, error) {
	if v.Major > p.cfg.MaxMajor || v.Minor > p.cfg.MaxMinor || v.Patch > p.cfg.MaxPatch {
		return 0, errors.Newf(errors.ErrConfiguration, "semver: %s is outside the configured domain", v)
	}
	return (v.Major*(p.cfg.MaxMinor+1)+v.Minor)*(p.cfg.MaxPatch+1) + v.Patch, nil
}

func (p *SemVerProvider) ordinal(v interface{}) (int64, error) {
	switch val := v.(type) {
	case Version:
		return p.ordinalOf(val)
	case string:
		ver, err := ParseVersion(val)
		if err != nil {
			return 0, err
		}
		return p.ordinalOf(ver)
	default:
		return 0, errors.Newf(errors.ErrConfiguration, "semver: %v is not a version", v)
	}
}

// ParseVersion accepts "M.m.p" with an optional leading "v".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	if len(parts) != 3 {
		return Version{}, errors.Newf(errors.ErrConfiguration, "semver: %q is not <major>.<minor>.<patch>", s)
	}
	var n [3]int64
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil || v < 0 {
			return Version{}, errors.Newf(errors.ErrConfiguration, "semver: %q is not <major>.<minor>.<patch>", s)
		}
		n[i] = v
	}
	return Version{Major: n[0], Minor: n[1], Patch: n[2]}, nil
}

func (p *SemVerProvider) pick(ivs []interval, excluded provider.Excluded) (interface{}, error) {
	o, err := pickOrdinal(KindSemVer, p.Rand(), ivs, func(o int64) interface{} { return p.version(o) }, excluded)
	if err != nil {
		return nil, err
	}
	return p.version(o), nil
}

func (p *SemVerProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	return p.pick([]interval{p.domain()}, excluded)
}

func (p *SemVerProvider) RangedRowValue(min, max interface{}, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	iv, err := toInterval(KindSemVer, min, max, p.ordinal)
	if err != nil {
		return nil, err
	}
	return p.pick([]interval{iv}, excluded)
}

// RowValueOutsideRanges treats every excluded range as inclusive; the
// admissible versions are the ordinals strictly between them.
func (p *SemVerProvider) RowValueOutsideRanges(ctx *provider.Context, excludedRanges []domain.WeightedRange, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	excl, err := toIntervals(KindSemVer, excludedRanges, p.ordinal)
	if err != nil {
		return nil, err
	}
	ivs, err := complement(KindSemVer, p.domain(), excl)
	if err != nil {
		return nil, err
	}
	return p.pick(ivs, excluded)
}

func (p *SemVerProvider) Compare(a, b interface{}) (int, error) {
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

func (p *SemVerProvider) RowValueByID(id string) (interface{}, error) {
	v, err := ParseVersion(id)
	if err != nil {
		return nil, errors.Newf(errors.ErrArgumentResolution, "semver: invalid id %q", id)
	}
	return v, nil
}

func (p *SemVerProvider) ValueID(v interface{}) (string, error) {
	ver, ok := v.(Version)
	if !ok {
		return "", errors.Newf(errors.ErrArgumentResolution, "semver: %v is not a version", v)
	}
	return ver.String(), nil
}
