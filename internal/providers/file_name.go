package providers

import (
	"strconv"
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/providers/datasets"
)

const KindFileName = "file_name"

// FileNameProvider glues a stem to an extension. The stem comes from the
// text argument when bound, otherwise from a word list.
type FileNameProvider struct {
	provider.Lifecycle
	provider.Unordered
	provider.NoIdentity
	extensions []string
	words      []string
	cfg        struct {
		Categories []string `mapstructure:"categories"`
		Extensions []string `mapstructure:"extensions"`
		Separator  string   `mapstructure:"separator"`
	}
}

func NewFileName() *FileNameProvider {
	return &FileNameProvider{Lifecycle: provider.NewLifecycle(KindFileName)}
}

func (p *FileNameProvider) SupportedArguments() provider.Arguments {
	return provider.Arguments{
		"text": {Type: domain.ValueTypeString, Multiple: true},
	}
}

func (p *FileNameProvider) Load(prop *domain.Property, rowCount int64) error {
	p.cfg.Separator = "_"
	if err := provider.DecodeParams(KindFileName, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	types, err := datasets.FileTypes()
	if err != nil {
		return errors.Wrap(err, "file_name")
	}
	words, err := datasets.Words()
	if err != nil {
		return errors.Wrap(err, "file_name")
	}
	p.words = words

	p.extensions = p.extensions[:0]
	for _, ft := range types {
		if len(p.cfg.Categories) > 0 && !containsFold(p.cfg.Categories, ft.Category) {
			continue
		}
		if len(p.cfg.Extensions) > 0 && !containsFold(p.cfg.Extensions, ft.Extension) {
			continue
		}
		p.extensions = append(p.extensions, ft.Extension)
	}
	if len(p.extensions) == 0 {
		return errors.New(errors.ErrConfiguration, "file_name: filters leave no extensions")
	}
	if strings.ContainsAny(p.cfg.Separator, "/\\.") {
		return errors.Newf(errors.ErrConfiguration, "file_name: invalid separator %q", p.cfg.Separator)
	}
	p.MarkLoaded()
	return nil
}

func (p *FileNameProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	parts, err := textArguments(KindFileName, ctx, "text")
	if err != nil {
		return nil, err
	}
	rnd := p.Rand()
	return provider.Retry(KindFileName, excluded, func(attempt int) (interface{}, error) {
		stem := strings.Join(parts, p.cfg.Separator)
		if stem == "" {
			stem = p.words[rnd.NextInt(0, len(p.words))]
		}
		if attempt > 0 {
			stem += p.cfg.Separator + strconv.Itoa(rnd.NextInt(1, 10000))
		}
		return stem + "." + p.extensions[rnd.NextInt(0, len(p.extensions))], nil
	})
}
