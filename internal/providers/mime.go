package providers

import (
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/providers/datasets"
)

const KindMimeType = "mime_type"

// MimeType is one (media type, extension) pair. Sinks store the media type.
type MimeType struct {
	Type      string
	Extension string
	Category  string
	Name      string
}

func (m MimeType) String() string { return m.Type }

// ID is the lookup id "<mimeType>|<extension>". Uniqueness is decided on
// the stored media type alone.
func (m MimeType) ID() string { return m.Type + "|" + m.Extension }

type MimeTypeProvider struct {
	provider.Lifecycle
	provider.Unordered
	values []MimeType
	byID   map[string]MimeType
	cfg    struct {
		IncludeDeprecated    bool     `mapstructure:"include_deprecated"`
		ExcludeUncommon      bool     `mapstructure:"exclude_uncommon"`
		TreatAliasesAsUnique bool     `mapstructure:"treat_aliases_as_unique"`
		Categories           []string `mapstructure:"categories"`
	}
}

func NewMimeType() *MimeTypeProvider {
	return &MimeTypeProvider{Lifecycle: provider.NewLifecycle(KindMimeType)}
}

func (p *MimeTypeProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *MimeTypeProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := provider.DecodeParams(KindMimeType, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	records, err := datasets.MimeTypes()
	if err != nil {
		return errors.Wrap(err, "mime_type")
	}

	p.values = p.values[:0]
	p.byID = make(map[string]MimeType)
	add := func(m MimeType) {
		if _, dup := p.byID[m.ID()]; dup {
			return
		}
		p.byID[m.ID()] = m
		p.values = append(p.values, m)
	}
	for _, r := range records {
		if r.DeprecatedBy != "" && !p.cfg.IncludeDeprecated {
			continue
		}
		if !r.IsCommon && p.cfg.ExcludeUncommon {
			continue
		}
		if len(p.cfg.Categories) > 0 && !containsFold(p.cfg.Categories, r.Category) {
			continue
		}
		add(MimeType{Type: r.MimeType, Extension: r.Extension, Category: r.Category, Name: r.Name})
		if p.cfg.TreatAliasesAsUnique {
			for _, alias := range r.Aliases {
				add(MimeType{Type: alias, Extension: r.Extension, Category: r.Category, Name: r.Name})
			}
		}
	}
	if len(p.values) == 0 {
		return errors.New(errors.ErrConfiguration, "mime_type: filters leave no media types")
	}
	p.MarkLoaded()
	return nil
}

func (p *MimeTypeProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	i, err := provider.PickFree(KindMimeType, p.Rand(), len(p.values), func(i int) interface{} { return p.values[i] }, excluded)
	if err != nil {
		return nil, err
	}
	return p.values[i], nil
}

func (p *MimeTypeProvider) RowValueByID(id string) (interface{}, error) {
	if !strings.Contains(id, "|") {
		return nil, errors.Newf(errors.ErrArgumentResolution, "mime_type: id %q is not <mimeType>|<extension>", id)
	}
	m, ok := p.byID[id]
	if !ok {
		return nil, errors.Newf(errors.ErrNotFound, "mime_type: unknown id %q", id)
	}
	return m, nil
}

func (p *MimeTypeProvider) ValueID(v interface{}) (string, error) {
	m, ok := v.(MimeType)
	if !ok {
		return "", errors.Newf(errors.ErrArgumentResolution, "mime_type: %v is not a media type", v)
	}
	return m.ID(), nil
}
