package providers

import (
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
)

const KindFK = "fk"

// FKProvider draws from the values a previously generated entity produced
// for one of its properties.
type FKProvider struct {
	provider.Lifecycle
	provider.Unordered
	provider.NoIdentity
	cfg struct {
		Entity string `mapstructure:"entity"`
		Column string `mapstructure:"column"`
	}
}

func NewFK() *FKProvider {
	return &FKProvider{Lifecycle: provider.NewLifecycle(KindFK)}
}

func (p *FKProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *FKProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindFK, prop, "entity", "column"); err != nil {
		return err
	}
	if err := provider.DecodeParams(KindFK, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	if p.cfg.Entity == "" || p.cfg.Column == "" {
		return errors.New(errors.ErrConfiguration, "fk: 'entity' and 'column' must be non-empty strings")
	}
	p.MarkLoaded()
	return nil
}

// Reference returns the "entity.column" key the provider reads from.
func (p *FKProvider) Reference() string {
	return p.cfg.Entity + "." + p.cfg.Column
}

func (p *FKProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	key := p.Reference()
	var values []interface{}
	if ctx != nil {
		values = ctx.EntityValues[key]
	}
	if len(values) == 0 {
		return nil, errors.Newf(errors.ErrArgumentResolution, "fk: no values found for reference %s", key)
	}
	i, err := provider.PickFree(KindFK, p.Rand(), len(values), func(i int) interface{} { return values[i] }, excluded)
	if err != nil {
		return nil, err
	}
	return values[i], nil
}
