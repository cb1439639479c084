package providers

import (
	"strconv"
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
)

const KindEmail = "email"

// EmailProvider builds "<local>@<domain>" addresses. The local part joins the
// slugged values bound to the text argument with dots, in binding order; with
// nothing bound it is a random string. Retries after the first collision
// append a number to the local part.
type EmailProvider struct {
	provider.Lifecycle
	provider.Unordered
	cfg struct {
		Domains []string `mapstructure:"domains"`
	}
}

func NewEmail() *EmailProvider {
	return &EmailProvider{Lifecycle: provider.NewLifecycle(KindEmail)}
}

func (p *EmailProvider) SupportedArguments() provider.Arguments {
	return provider.Arguments{
		"text": {Type: domain.ValueTypeString, Multiple: true},
	}
}

func (p *EmailProvider) Load(prop *domain.Property, rowCount int64) error {
	if err := requireParams(KindEmail, prop, "domains"); err != nil {
		return err
	}
	if err := provider.DecodeParams(KindEmail, prop.Provider.Params, &p.cfg); err != nil {
		return err
	}
	if len(p.cfg.Domains) == 0 {
		return errors.New(errors.ErrConfiguration, "email: 'domains' cannot be empty")
	}
	for _, d := range p.cfg.Domains {
		if d == "" || strings.ContainsAny(d, "@ ") {
			return errors.Newf(errors.ErrConfiguration, "email: invalid domain %q", d)
		}
	}
	p.MarkLoaded()
	return nil
}

func (p *EmailProvider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	parts, err := textArguments(KindEmail, ctx, "text")
	if err != nil {
		return nil, err
	}
	rnd := p.Rand()
	return provider.Retry(KindEmail, excluded, func(attempt int) (interface{}, error) {
		host := p.cfg.Domains[rnd.NextInt(0, len(p.cfg.Domains))]
		local := strings.Join(parts, ".")
		if local == "" {
			local = strings.ToLower(rnd.NextString(8, false))
		}
		if attempt > 0 {
			local += strconv.Itoa(rnd.NextInt(1, 10000))
		}
		return local + "@" + host, nil
	})
}

func (p *EmailProvider) RowValueByID(id string) (interface{}, error) {
	if strings.Count(id, "@") != 1 {
		return nil, errors.Newf(errors.ErrArgumentResolution, "email: invalid id %q", id)
	}
	return id, nil
}

func (p *EmailProvider) ValueID(v interface{}) (string, error) {
	return stringID(KindEmail, v)
}
