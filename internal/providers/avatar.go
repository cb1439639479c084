package providers

import (
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/providers/datasets"
)

const (
	KindAvatar    = "avatar"
	KindAvatarURL = "avatar_url"
)

// Avatar facet names, in the order they are drawn.
const (
	FacetHairColor = "hair_color"
	FacetHatColor  = "hat_color"
	FacetSkinColor = "skin_color"
	FacetEyes      = "eyes"
	FacetMouth     = "mouth"
	FacetAccessory = "accessory"
)

var facetOrder = []string{FacetHairColor, FacetHatColor, FacetSkinColor, FacetEyes, FacetMouth, FacetAccessory}

// AvatarFilter narrows the candidates of one facet for the current row. It
// is injected at registry construction; returning an empty slice fails the
// row with an argument resolution error.
type AvatarFilter func(ctx *provider.Context, facet string, candidates []string) []string

// Avatar is one combination of facets.
type Avatar struct {
	HairColor string
	HatColor  string
	SkinColor string
	Eyes      string
	Mouth     string
	Accessory string
}

func (a Avatar) Facets() map[string]string {
	return map[string]string{
		FacetHairColor: a.HairColor,
		FacetHatColor:  a.HatColor,
		FacetSkinColor: a.SkinColor,
		FacetEyes:      a.Eyes,
		FacetMouth:     a.Mouth,
		FacetAccessory: a.Accessory,
	}
}

func (a Avatar) String() string {
	return strings.Join([]string{a.HairColor, a.HatColor, a.SkinColor, a.Eyes, a.Mouth, a.Accessory}, "|")
}

type avatarConfig struct {
	ValidHairColors []string `mapstructure:"valid_hair_colors"`
	ValidHatColors  []string `mapstructure:"valid_hat_colors"`
	ValidSkinColors []string `mapstructure:"valid_skin_colors"`
}

// AvatarProvider composes avatars from independent facets. The domain is a
// product of unrelated enums, so it has neither order nor id.
type AvatarProvider struct {
	provider.Lifecycle
	provider.Unordered
	provider.NoIdentity
	filter AvatarFilter
	facets map[string][]string
	cfg    avatarConfig
}

func NewAvatar(filter AvatarFilter) *AvatarProvider {
	return &AvatarProvider{Lifecycle: provider.NewLifecycle(KindAvatar), filter: filter}
}

func (p *AvatarProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *AvatarProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := provider.DecodeParams(KindAvatar, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	return p.load(p.cfg)
}

func (p *AvatarProvider) load(cfg avatarConfig) error {
	catalog, err := datasets.Avatar()
	if err != nil {
		return errors.Wrap(err, "avatar")
	}
	// Each restriction list is checked against its own catalog. Hat colors
	// are validated against the hat catalog, not the hair one, so a hat-only
	// color such as pastel_blue is accepted here where the older hair-list check
	// rejected it.
	hair, err := restrict(FacetHairColor, catalog.HairColors, cfg.ValidHairColors)
	if err != nil {
		return err
	}
	hat, err := restrict(FacetHatColor, catalog.HatColors, cfg.ValidHatColors)
	if err != nil {
		return err
	}
	skin, err := restrict(FacetSkinColor, catalog.SkinColors, cfg.ValidSkinColors)
	if err != nil {
		return err
	}
	p.facets = map[string][]string{
		FacetHairColor: hair,
		FacetHatColor:  hat,
		FacetSkinColor: skin,
		FacetEyes:      catalog.Eyes,
		FacetMouth:     catalog.Mouths,
		FacetAccessory: catalog.Accessories,
	}
	p.MarkLoaded()
	return nil
}

func restrict(facet string, catalog, valid []string) ([]string, error) {
	if valid == nil {
		return catalog, nil
	}
	if len(valid) == 0 {
		return nil, errors.Newf(errors.ErrConfiguration, "avatar: valid %s list cannot be empty", facet)
	}
	out := make([]string, 0, len(valid))
	for _, v := range valid {
		if !containsFold(catalog, v) {
			return nil, errors.Newf(errors.ErrConfiguration, "avatar: unknown %s %q", facet, v)
		}
		out = append(out, strings.ToLower(v))
	}
	return out, nil
}

// Next draws one avatar, one draw per facet in facetOrder.
func (p *AvatarProvider) Next(ctx *provider.Context) (Avatar, error) {
	if err := p.Ready(); err != nil {
		return Avatar{}, err
	}
	picked := make(map[string]string, len(facetOrder))
	for _, facet := range facetOrder {
		candidates := p.facets[facet]
		if p.filter != nil {
			candidates = p.filter(ctx, facet, candidates)
		}
		if len(candidates) == 0 {
			return Avatar{}, errors.Newf(errors.ErrArgumentResolution, "avatar: filter left no candidates for %s", facet)
		}
		picked[facet] = candidates[p.Rand().NextInt(0, len(candidates))]
	}
	return Avatar{
		HairColor: picked[FacetHairColor],
		HatColor:  picked[FacetHatColor],
		SkinColor: picked[FacetSkinColor],
		Eyes:      picked[FacetEyes],
		Mouth:     picked[FacetMouth],
		Accessory: picked[FacetAccessory],
	}, nil
}

func (p *AvatarProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	return provider.Retry(KindAvatar, excluded, func(int) (interface{}, error) {
		return p.Next(ctx)
	})
}
