package provider

import (
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/random"
)

type State int

const (
	Uninitialized State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "uninitialized"
}

// Lifecycle tracks the Uninitialized → Loaded transition and owns the
// randomizer handed to the provider. Providers embed it.
type Lifecycle struct {
	kind  string
	state State
	rnd   *random.Randomizer
}

func NewLifecycle(kind string) Lifecycle {
	return Lifecycle{kind: kind}
}

func (l *Lifecycle) Kind() string {
	return l.kind
}

func (l *Lifecycle) InitializeRandomizer(r *random.Randomizer) {
	l.rnd = r
}

func (l *Lifecycle) Rand() *random.Randomizer {
	return l.rnd
}

func (l *Lifecycle) State() State {
	return l.state
}

func (l *Lifecycle) MarkLoaded() {
	l.state = Loaded
}

// Ready fails fast when a generation method is called out of order.
func (l *Lifecycle) Ready() error {
	if l.state != Loaded {
		return errors.Newf(errors.ErrNotLoaded, "%s provider used before Load", l.kind)
	}
	if l.rnd == nil {
		return errors.Newf(errors.ErrNotLoaded, "%s provider has no randomizer", l.kind)
	}
	return nil
}

// Unordered supplies the range methods for providers whose domain has no
// meaningful order.
type Unordered struct{}

func (Unordered) RangedRowValue(min, max interface{}, excluded Excluded) (interface{}, error) {
	return nil, errors.New(errors.ErrUnsupportedOperation, "ranged generation is not supported by this provider")
}

func (Unordered) RowValueOutsideRanges(ctx *Context, excludedRanges []domain.WeightedRange, excluded Excluded) (interface{}, error) {
	return nil, errors.New(errors.ErrUnsupportedOperation, "excluded ranges are not supported by this provider")
}

// NoIdentity supplies the id methods for providers whose values have no
// natural string identity.
type NoIdentity struct{}

func (NoIdentity) RowValueByID(id string) (interface{}, error) {
	return nil, errors.New(errors.ErrUnsupportedOperation, "lookup by id is not supported by this provider")
}

func (NoIdentity) ValueID(v interface{}) (string, error) {
	return "", errors.New(errors.ErrUnsupportedOperation, "value ids are not supported by this provider")
}
