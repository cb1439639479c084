package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/providers"
)

// Factory returns a fresh, unloaded provider. Providers hold per-property
// state, so every property gets its own instance.
type Factory func() provider.Provider

type ProviderRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		factories: make(map[string]Factory),
	}
}

func (r *ProviderRegistry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *ProviderRegistry) New(name string) (provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, errors.Newf(errors.ErrConfiguration, "provider not found: %s", name)
	}
	return f(), nil
}

func (r *ProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns the registered provider names, sorted.
func (r *ProviderRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type options struct {
	avatarFilter providers.AvatarFilter
	clock        providers.Clock
}

type Option func(*options)

// WithAvatarFilter installs a per-row facet filter on avatar and avatar_url.
func WithAvatarFilter(f providers.AvatarFilter) Option {
	return func(o *options) { o.avatarFilter = f }
}

// WithClock fixes the instant relative times are resolved against.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func DefaultProviderRegistry(opts ...Option) *ProviderRegistry {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	r := NewProviderRegistry()
	r.Register(providers.KindConst, func() provider.Provider { return providers.NewConst() })
	r.Register(providers.KindUUID4, func() provider.Provider { return providers.NewUUID4() })
	r.Register(providers.KindUniformInt, func() provider.Provider { return providers.NewUniformInt() })
	r.Register(providers.KindUniformFloat, func() provider.Provider { return providers.NewUniformFloat() })
	r.Register(providers.KindNormal, func() provider.Provider { return providers.NewNormal() })
	r.Register(providers.KindChoice, func() provider.Provider { return providers.NewChoice() })
	r.Register(providers.KindFakerName, func() provider.Provider { return providers.NewFakerName() })
	r.Register(providers.KindFakerCity, func() provider.Provider { return providers.NewFakerCity() })
	r.Register(providers.KindFakerDeviceName, func() provider.Provider { return providers.NewFakerDeviceName() })
	r.Register(providers.KindTimeSeries, func() provider.Provider { return providers.NewTimeSeries(o.clock) })
	r.Register(providers.KindUniformTime, func() provider.Provider { return providers.NewUniformTime(o.clock) })
	r.Register(providers.KindFK, func() provider.Provider { return providers.NewFK() })
	r.Register(providers.KindPassword, func() provider.Provider { return providers.NewPassword() })
	r.Register(providers.KindEmail, func() provider.Provider { return providers.NewEmail() })
	r.Register(providers.KindMimeType, func() provider.Provider { return providers.NewMimeType() })
	r.Register(providers.KindSemVer, func() provider.Provider { return providers.NewSemVer() })
	r.Register(providers.KindGeo, func() provider.Provider { return providers.NewGeo() })
	r.Register(providers.KindCountry, func() provider.Provider { return providers.NewCountry() })
	r.Register(providers.KindRegion, func() provider.Provider { return providers.NewRegion() })
	r.Register(providers.KindFileName, func() provider.Provider { return providers.NewFileName() })
	r.Register(providers.KindAvatar, func() provider.Provider { return providers.NewAvatar(o.avatarFilter) })
	r.Register(providers.KindAvatarURL, func() provider.Provider { return providers.NewAvatarURL(o.avatarFilter) })
	return r
}
