package providers

import (
	"math"
	"math/rand"
	"strconv"
	"sync"

	"github.com/go-faker/faker/v4"
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/random"
)

const (
	KindFakerName       = "faker_name"
	KindFakerCity       = "faker_city"
	KindFakerDeviceName = "faker_device_name"
)

var cities = []string{
	"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
	"Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose",
	"Austin", "Jacksonville", "Fort Worth", "Columbus", "Charlotte",
	"San Francisco", "Indianapolis", "Seattle", "Denver", "Washington",
	"Boston", "Nashville", "Detroit", "Portland", "Las Vegas",
	"London", "Paris", "Tokyo", "Berlin", "Madrid",
	"Rome", "Amsterdam", "Vienna", "Prague", "Barcelona",
	"Munich", "Milan", "Stockholm", "Copenhagen", "Oslo",
}

var (
	devicePrefixes = []string{"Sensor", "Device", "Meter", "Gauge", "Monitor", "Detector", "Reader", "Tracker"}
	deviceSuffixes = []string{"Alpha", "Beta", "Gamma", "Delta", "Prime", "Pro", "Max", "Plus"}
)

// fakerMu guards faker's package level random source.
var fakerMu sync.Mutex

// withFakerSeed reseeds faker from one draw of rnd and runs fn, so faker
// output follows the run seed.
func withFakerSeed(rnd *random.Randomizer, fn func() string) string {
	seed := rnd.NextInt64(0, math.MaxInt64)
	fakerMu.Lock()
	defer fakerMu.Unlock()
	faker.SetRandomSource(faker.NewSafeSource(rand.NewSource(seed)))
	return fn()
}

func noParams(kind string, prop *domain.Property) error {
	if len(prop.Provider.Params) > 0 {
		return errors.Newf(errors.ErrConfiguration, "%s takes no params", kind)
	}
	return nil
}

// FakerNameProvider returns full person names from faker.
type FakerNameProvider struct {
	provider.Lifecycle
	provider.Unordered
}

func NewFakerName() *FakerNameProvider {
	return &FakerNameProvider{Lifecycle: provider.NewLifecycle(KindFakerName)}
}

func (p *FakerNameProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *FakerNameProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := noParams(KindFakerName, prop); err != nil {
		return err
	}
	p.MarkLoaded()
	return nil
}

func (p *FakerNameProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	rnd := p.Rand()
	return provider.Retry(KindFakerName, excluded, func(int) (interface{}, error) {
		return withFakerSeed(rnd, func() string { return faker.Name() }), nil
	})
}

func (p *FakerNameProvider) RowValueByID(id string) (interface{}, error) {
	return id, nil
}

func (p *FakerNameProvider) ValueID(v interface{}) (string, error) {
	return stringID(KindFakerName, v)
}

// FakerCityProvider picks from a fixed city list using the run randomizer.
type FakerCityProvider struct {
	provider.Lifecycle
	provider.Unordered
}

func NewFakerCity() *FakerCityProvider {
	return &FakerCityProvider{Lifecycle: provider.NewLifecycle(KindFakerCity)}
}

func (p *FakerCityProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *FakerCityProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := noParams(KindFakerCity, prop); err != nil {
		return err
	}
	p.MarkLoaded()
	return nil
}

func (p *FakerCityProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	i, err := provider.PickFree(KindFakerCity, p.Rand(), len(cities), func(i int) interface{} { return cities[i] }, excluded)
	if err != nil {
		return nil, err
	}
	return cities[i], nil
}

func (p *FakerCityProvider) RowValueByID(id string) (interface{}, error) {
	for _, c := range cities {
		if c == id {
			return c, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "faker_city: unknown city %q", id)
}

func (p *FakerCityProvider) ValueID(v interface{}) (string, error) {
	return stringID(KindFakerCity, v)
}

// FakerDeviceNameProvider glues a faker username and word to a seeded
// prefix, suffix and number.
type FakerDeviceNameProvider struct {
	provider.Lifecycle
	provider.Unordered
	provider.NoIdentity
}

func NewFakerDeviceName() *FakerDeviceNameProvider {
	return &FakerDeviceNameProvider{Lifecycle: provider.NewLifecycle(KindFakerDeviceName)}
}

func (p *FakerDeviceNameProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *FakerDeviceNameProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := noParams(KindFakerDeviceName, prop); err != nil {
		return err
	}
	p.MarkLoaded()
	return nil
}

func (p *FakerDeviceNameProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	rnd := p.Rand()
	return provider.Retry(KindFakerDeviceName, excluded, func(int) (interface{}, error) {
		prefix := devicePrefixes[rnd.NextInt(0, len(devicePrefixes))]
		suffix := deviceSuffixes[rnd.NextInt(0, len(deviceSuffixes))]
		number := rnd.NextInt(0, 10000)
		words := withFakerSeed(rnd, func() string { return faker.Username() + "-" + prefix + "-" + suffix + "-" + faker.Word() })
		return words + "-" + strconv.Itoa(number), nil
	})
}
