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

const KindGeo = "geo"

// Coordinate is a point rounded to six decimals (about 11cm).
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

// GeoProvider draws points uniformly inside a lat/lon box. Points in a plane
// have no total order, so ranges are unsupported.
type GeoProvider struct {
	provider.Lifecycle
	provider.Unordered
	cfg struct {
		MinLatitude  float64 `mapstructure:"min_lat"`
		MaxLatitude  float64 `mapstructure:"max_lat"`
		MinLongitude float64 `mapstructure:"min_lon"`
		MaxLongitude float64 `mapstructure:"max_lon"`
	}
}

func NewGeo() *GeoProvider {
	return &GeoProvider{Lifecycle: provider.NewLifecycle(KindGeo)}
}

func (p *GeoProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *GeoProvider) Load(prop *domain.Property, rowCount int64) error {
	p.cfg.MinLatitude, p.cfg.MaxLatitude = -90, 90
	p.cfg.MinLongitude, p.cfg.MaxLongitude = -180, 180
	if err := provider.DecodeParams(KindGeo, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	c := p.cfg
	if c.MinLatitude < -90 || c.MaxLatitude > 90 || c.MinLatitude > c.MaxLatitude {
		return errors.Newf(errors.ErrConfiguration, "geo: invalid latitude bounds [%g, %g]", c.MinLatitude, c.MaxLatitude)
	}
	if c.MinLongitude < -180 || c.MaxLongitude > 180 || c.MinLongitude > c.MaxLongitude {
		return errors.Newf(errors.ErrConfiguration, "geo: invalid longitude bounds [%g, %g]", c.MinLongitude, c.MaxLongitude)
	}
	p.MarkLoaded()
	return nil
}

func (p *GeoProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	rnd := p.Rand()
	c := p.cfg
	return provider.Retry(KindGeo, excluded, func(int) (interface{}, error) {
		lat := c.MinLatitude + rnd.NextFloat()*(c.MaxLatitude-c.MinLatitude)
		lon := c.MinLongitude + rnd.NextFloat()*(c.MaxLongitude-c.MinLongitude)
		return Coordinate{Latitude: round6(lat), Longitude: round6(lon)}, nil
	})
}

// RowValueByID parses "<latitude>,<longitude>".
func (p *GeoProvider) RowValueByID(id string) (interface{}, error) {
	parts := strings.Split(id, ",")
	if len(parts) != 2 {
		return nil, errors.Newf(errors.ErrArgumentResolution, "geo: id %q is not <latitude>,<longitude>", id)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, errors.Newf(errors.ErrArgumentResolution, "geo: invalid id %q", id)
	}
	return Coordinate{Latitude: round6(lat), Longitude: round6(lon)}, nil
}

func (p *GeoProvider) ValueID(v interface{}) (string, error) {
	c, ok := v.(Coordinate)
	if !ok {
		return "", errors.Newf(errors.ErrArgumentResolution, "geo: %v is not a coordinate", v)
	}
	return c.String(), nil
}
