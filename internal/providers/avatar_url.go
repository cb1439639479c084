package providers

import (
	"net/url"
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/random"
)

const defaultAvatarBaseURL = "https://avatars.example.com/render"

// AvatarURLProvider renders avatars as URLs. It owns its inner
// AvatarProvider and forwards the lifecycle calls to it; avatar params other
// than base_url are handed to the inner provider.
type AvatarURLProvider struct {
	provider.Lifecycle
	provider.Unordered
	inner *AvatarProvider
	base  *url.URL
	cfg   struct {
		BaseURL string                 `mapstructure:"base_url"`
		Avatar  map[string]interface{} `mapstructure:",remain"`
	}
}

func NewAvatarURL(filter AvatarFilter) *AvatarURLProvider {
	return &AvatarURLProvider{
		Lifecycle: provider.NewLifecycle(KindAvatarURL),
		inner:     NewAvatar(filter),
	}
}

func (p *AvatarURLProvider) SupportedArguments() provider.Arguments {
	return p.inner.SupportedArguments()
}

func (p *AvatarURLProvider) InitializeRandomizer(r *random.Randomizer) {
	p.Lifecycle.InitializeRandomizer(r)
	p.inner.InitializeRandomizer(r)
}

func (p *AvatarURLProvider) Load(prop *domain.Property, rowCount int64) error {
	p.cfg.BaseURL = defaultAvatarBaseURL
	if err := provider.DecodeParams(KindAvatarURL, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	base, err := url.Parse(p.cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return errors.Newf(errors.ErrConfiguration, "avatar_url: invalid base_url %q", p.cfg.BaseURL)
	}
	p.base = base

	inner := *prop
	inner.Provider = domain.ProviderSpec{Type: KindAvatar, Params: p.cfg.Avatar}
	if err := p.inner.Load(&inner, rowCount); err != nil {
		return err
	}
	p.MarkLoaded()
	return nil
}

func (p *AvatarURLProvider) render(a Avatar) string {
	q := url.Values{}
	for facet, v := range a.Facets() {
		q.Set(facet, v)
	}
	u := *p.base
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *AvatarURLProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	return provider.Retry(KindAvatarURL, excluded, func(int) (interface{}, error) {
		a, err := p.inner.Next(ctx)
		if err != nil {
			return nil, err
		}
		return p.render(a), nil
	})
}

// RowValueByID accepts a URL produced by this provider.
func (p *AvatarURLProvider) RowValueByID(id string) (interface{}, error) {
	u, err := url.Parse(id)
	if err != nil || !strings.HasPrefix(id, p.cfg.BaseURL) {
		return nil, errors.Newf(errors.ErrArgumentResolution, "avatar_url: invalid id %q", id)
	}
	for _, facet := range facetOrder {
		if u.Query().Get(facet) == "" {
			return nil, errors.Newf(errors.ErrArgumentResolution, "avatar_url: id %q lacks %s", id, facet)
		}
	}
	return id, nil
}

func (p *AvatarURLProvider) ValueID(v interface{}) (string, error) {
	return stringID(KindAvatarURL, v)
}
