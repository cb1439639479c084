package providers

import (
	"github.com/google/uuid"
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
)

const KindUUID4 = "uuid4"

// UUID4Provider builds version 4 UUIDs from the seeded randomizer so that
// seeded runs reproduce the same ids.
type UUID4Provider struct {
	provider.Lifecycle
	provider.Unordered
}

func NewUUID4() *UUID4Provider {
	return &UUID4Provider{Lifecycle: provider.NewLifecycle(KindUUID4)}
}

func (p *UUID4Provider) SupportedArguments() provider.Arguments {
	return provider.NoArguments()
}

func (p *UUID4Provider) Load(prop *domain.Property, rowCount int64) error {
	if len(prop.Provider.Params) > 0 {
		return errors.New(errors.ErrConfiguration, "uuid4 takes no params")
	}
	p.MarkLoaded()
	return nil
}

func (p *UUID4Provider) RowValue(ctx *provider.Context, excluded provider.Excluded) (interface{}, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	return provider.Retry(KindUUID4, excluded, func(int) (interface{}, error) {
		b := p.Rand().Bytes(16)
		b[6] = (b[6] & 0x0f) | 0x40
		b[8] = (b[8] & 0x3f) | 0x80
		u, err := uuid.FromBytes(b)
		if err != nil {
			return nil, err
		}
		return u.String(), nil
	})
}

func (p *UUID4Provider) RowValueByID(id string) (interface{}, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Newf(errors.ErrArgumentResolution, "uuid4: invalid id %q", id)
	}
	return u.String(), nil
}

func (p *UUID4Provider) ValueID(v interface{}) (string, error) {
	return stringID(KindUUID4, v)
}
