package providers

import (
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/providers/datasets"
)

const (
	KindCountry = "country"
	KindRegion  = "region"
)

// Country is stored by name; its id is the ISO alpha-2 code.
type Country struct {
	Alpha2    string
	Alpha3    string
	Name      string
	Continent string
}

func (c Country) String() string { return c.Name }
func (c Country) ID() string     { return c.Alpha2 }

type CountryProvider struct {
	provider.Lifecycle
	provider.Unordered
	values []Country
	cfg    struct {
		Continents []string `mapstructure:"continents"`
	}
}

func NewCountry() *CountryProvider {
	return &CountryProvider{Lifecycle: provider.NewLifecycle(KindCountry)}
}

func (p *CountryProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *CountryProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := provider.DecodeParams(KindCountry, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	records, err := datasets.Countries()
	if err != nil {
		return errors.Wrap(err, "country")
	}
	p.values = p.values[:0]
	for _, r := range records {
		if len(p.cfg.Continents) > 0 && !containsFold(p.cfg.Continents, r.Continent) {
			continue
		}
		p.values = append(p.values, Country{Alpha2: r.Alpha2, Alpha3: r.Alpha3, Name: r.Name, Continent: r.Continent})
	}
	if len(p.values) == 0 {
		return errors.Newf(errors.ErrConfiguration, "country: no countries on continents %v", p.cfg.Continents)
	}
	p.MarkLoaded()
	return nil
}

func (p *CountryProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	i, err := provider.PickFree(KindCountry, p.Rand(), len(p.values), func(i int) interface{} { return p.values[i] }, excluded)
	if err != nil {
		return nil, err
	}
	return p.values[i], nil
}

func (p *CountryProvider) RowValueByID(id string) (interface{}, error) {
	for _, c := range p.values {
		if strings.EqualFold(c.Alpha2, id) {
			return c, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "country: unknown id %q", id)
}

func (p *CountryProvider) ValueID(v interface{}) (string, error) {
	c, ok := v.(Country)
	if !ok {
		return "", errors.Newf(errors.ErrArgumentResolution, "country: %v is not a country", v)
	}
	return c.Alpha2, nil
}

// Region is stored by name; its id is "<countryAlpha2>|<regionCode>".
type Region struct {
	Country string
	Code    string
	Name    string
}

func (r Region) String() string { return r.Name }
func (r Region) ID() string     { return r.Country + "|" + r.Code }

// RegionProvider draws administrative regions. When the country argument is
// bound, only regions of that row's country are eligible.
type RegionProvider struct {
	provider.Lifecycle
	provider.Unordered
	values    []Region
	byCountry map[string][]Region
	names     map[string]string
	cfg       struct {
		Countries []string `mapstructure:"countries"`
	}
}

func NewRegion() *RegionProvider {
	return &RegionProvider{Lifecycle: provider.NewLifecycle(KindRegion)}
}

func (p *RegionProvider) SupportedArguments() provider.Arguments {
	return provider.Arguments{
		"country": {Type: domain.ValueTypeString},
	}
}

func (p *RegionProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := provider.DecodeParams(KindRegion, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	records, err := datasets.Countries()
	if err != nil {
		return errors.Wrap(err, "region")
	}
	p.values = p.values[:0]
	p.byCountry = make(map[string][]Region)
	p.names = make(map[string]string)
	for _, c := range records {
		if len(p.cfg.Countries) > 0 && !containsFold(p.cfg.Countries, c.Alpha2) {
			continue
		}
		p.names[strings.ToLower(c.Name)] = c.Alpha2
		for _, r := range c.Regions {
			region := Region{Country: c.Alpha2, Code: r.Code, Name: r.Name}
			p.values = append(p.values, region)
			p.byCountry[c.Alpha2] = append(p.byCountry[c.Alpha2], region)
		}
	}
	if len(p.values) == 0 {
		return errors.Newf(errors.ErrConfiguration, "region: no regions for countries %v", p.cfg.Countries)
	}
	p.MarkLoaded()
	return nil
}

// candidates resolves the country argument to the regions it allows.
func (p *RegionProvider) candidates(ctx *provider.Context) ([]Region, error) {
	v, ok := ctx.Argument("country")
	if !ok {
		return p.values, nil
	}
	var code string
	switch c := v.(type) {
	case Country:
		code = c.Alpha2
	case string:
		if len(c) == 2 {
			code = strings.ToUpper(c)
		} else {
			code = p.names[strings.ToLower(c)]
		}
	}
	regions := p.byCountry[code]
	if len(regions) == 0 {
		return nil, errors.Newf(errors.ErrArgumentResolution, "region: no regions for country %v", v)
	}
	return regions, nil
}

func (p *RegionProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	regions, err := p.candidates(ctx)
	if err != nil {
		return nil, err
	}
	i, err := provider.PickFree(KindRegion, p.Rand(), len(regions), func(i int) interface{} { return regions[i] }, excluded)
	if err != nil {
		return nil, err
	}
	return regions[i], nil
}

func (p *RegionProvider) RowValueByID(id string) (interface{}, error) {
	parts := strings.SplitN(id, "|", 2)
	if len(parts) != 2 {
		return nil, errors.Newf(errors.ErrArgumentResolution, "region: id %q is not <countryAlpha2>|<regionCode>", id)
	}
	for _, r := range p.byCountry[strings.ToUpper(parts[0])] {
		if r.Code == parts[1] {
			return r, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "region: unknown id %q", id)
}

func (p *RegionProvider) ValueID(v interface{}) (string, error) {
	r, ok := v.(Region)
	if !ok {
		return "", errors.Newf(errors.ErrArgumentResolution, "region: %v is not a region", v)
	}
	return r.ID(), nil
}
