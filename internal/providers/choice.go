package providers

import (
	"fmt"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
)

const (
	KindChoice = "choice"
	KindConst  = "const"
)

// ChoiceProvider picks one of a fixed list of values, optionally weighted.
type ChoiceProvider struct {
	provider.Lifecycle
	provider.Unordered
	cfg struct {
		Values  []interface{} `mapstructure:"values"`
		Weights []float64     `mapstructure:"weights"`
	}
}

func NewChoice() *ChoiceProvider {
	return &ChoiceProvider{Lifecycle: provider.NewLifecycle(KindChoice)}
}

func (p *ChoiceProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *ChoiceProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindChoice, prop, "values"); err != nil {
		return err
	}
	if err := provider.DecodeParams(KindChoice, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	if len(p.cfg.Values) == 0 {
		return errors.New(errors.ErrConfiguration, "choice: 'values' cannot be empty")
	}
	if p.cfg.Weights != nil {
		if len(p.cfg.Weights) != len(p.cfg.Values) {
			return errors.New(errors.ErrConfiguration, "choice: 'weights' and 'values' must have the same length")
		}
		total := 0.0
		for _, w := range p.cfg.Weights {
			if w < 0 {
				return errors.Newf(errors.ErrConfiguration, "choice: negative weight: %v", w)
			}
			total += w
		}
		if total == 0 {
			return errors.New(errors.ErrConfiguration, "choice: total weight is zero")
		}
	}
	p.MarkLoaded()
	return nil
}

func (p *ChoiceProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	values := p.cfg.Values
	if p.cfg.Weights == nil {
		i, err := provider.PickFree(KindChoice, p.Rand(), len(values), func(i int) interface{} { return values[i] }, excluded)
		if err != nil {
			return nil, err
		}
		return values[i], nil
	}

	weights := p.cfg.Weights
	if excluded.Len() > 0 {
		weights = make([]float64, len(values))
		for i, v := range values {
			if !excluded.Contains(v) {
				weights[i] = p.cfg.Weights[i]
			}
		}
	}
	i := p.Rand().WeightedIndex(weights)
	if i < 0 {
		return nil, provider.Exhausted(KindChoice, excluded)
	}
	return values[i], nil
}

func (p *ChoiceProvider) RowValueByID(id string) (interface{}, error) {
	for _, v := range p.cfg.Values {
		if fmt.Sprint(v) == id {
			return v, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "choice: no value with id %q", id)
}

func (p *ChoiceProvider) ValueID(v interface{}) (string, error) {
	return fmt.Sprint(v), nil
}

// ConstProvider returns the same value for every row. A unique const column
// can therefore hold at most one row.
type ConstProvider struct {
	provider.Lifecycle
	provider.Unordered
	value interface{}
}

func NewConst() *ConstProvider {
	return &ConstProvider{Lifecycle: provider.NewLifecycle(KindConst)}
}

func (p *ConstProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *ConstProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindConst, prop, "value"); err != nil {
		return err
	}
	for k := range prop.Provider.Params {
		if k != "value" {
			return errors.Newf(errors.ErrConfiguration, "const: unknown param %q", k)
		}
	}
	p.value = prop.Provider.Params["value"]
	p.MarkLoaded()
	return nil
}

func (p *ConstProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	if excluded.Contains(p.value) {
		return nil, provider.Exhausted(KindConst, excluded)
	}
	return p.value, nil
}

func (p *ConstProvider) RowValueByID(id string) (interface{}, error) {
	if fmt.Sprint(p.value) != id {
		return nil, errors.Newf(errors.ErrNotFound, "const: no value with id %q", id)
	}
	return p.value, nil
}

func (p *ConstProvider) ValueID(v interface{}) (string, error) {
	return fmt.Sprint(v), nil
}
