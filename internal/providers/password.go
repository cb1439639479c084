package providers

import (
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
)

const KindPassword = "password"

// PasswordProvider draws a length in [min_length, max_length) and then one
// character per position.
type PasswordProvider struct {
	provider.Lifecycle
	provider.Unordered
	cfg struct {
		MinLength      int  `mapstructure:"min_length"`
		MaxLength      int  `mapstructure:"max_length"`
		IncludeSpecial bool `mapstructure:"include_special"`
	}
}

func NewPassword() *PasswordProvider {
	return &PasswordProvider{Lifecycle: provider.NewLifecycle(KindPassword)}
}

func (p *PasswordProvider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *PasswordProvider) Load(prop *domain.Property, rowCount int64) error {
	p.cfg.MinLength, p.cfg.MaxLength = 8, 16
	if err := provider.DecodeParams(KindPassword, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	if p.cfg.MinLength <= 0 {
		return errors.Newf(errors.ErrConfiguration, "password: min_length must be positive, got %d", p.cfg.MinLength)
	}
	if p.cfg.MaxLength <= p.cfg.MinLength {
		return errors.Newf(errors.ErrConfiguration, "password: max_length (%d) must be greater than min_length (%d)", p.cfg.MaxLength, p.cfg.MinLength)
	}
	p.MarkLoaded()
	return nil
}

func (p *PasswordProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	rnd := p.Rand()
	return provider.Retry(KindPassword, excluded, func(int) (interface{}, error) {
		length := rnd.NextInt(p.cfg.MinLength, p.cfg.MaxLength)
		return rnd.NextString(length, p.cfg.IncludeSpecial), nil
	})
}

func (p *PasswordProvider) RowValueByID(id string) (interface{}, error) {
	return id, nil
}

func (p *PasswordProvider) ValueID(v interface{}) (string, error) {
	return stringID(KindPassword, v)
}
