// Package provider defines the contract every value provider implements and
// the helpers providers share: excluded-value views, the bounded retry loop,
// lifecycle checks and parameter decoding.
package provider

import (
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/random"
)

// Provider produces values of one kind for one property.
//
// The engine calls InitializeRandomizer and Load exactly once, in property
// dependency order, before any row is generated. Every generation method must
// return a value outside excluded or fail; providers whose domain has no order
// or no string identity return an ErrUnsupportedOperation error from the
// corresponding methods instead of an arbitrary value.
type Provider interface {
	SupportedArguments() Arguments
	InitializeRandomizer(r *random.Randomizer)
	Load(prop *domain.Property, rowCount int64) error

	RowValue(ctx *Context, excluded Excluded) (interface{}, error)
	RangedRowValue(min, max interface{}, excluded Excluded) (interface{}, error)
	RowValueOutsideRanges(ctx *Context, excludedRanges []domain.WeightedRange, excluded Excluded) (interface{}, error)

	RowValueByID(id string) (interface{}, error)
	ValueID(v interface{}) (string, error)
}

// Ordered is implemented by providers whose values have a total order. The
// engine uses it to validate range bounds before generation.
type Ordered interface {
	Compare(a, b interface{}) (int, error)
}

type ArgumentSpec struct {
	Type ValueType
	// Multiple allows several upstream properties to be bound to the argument.
	Multiple bool
	// Required arguments fail generation when an upstream value is null.
	Required bool
}

type ValueType = domain.ValueType

// Arguments maps argument name to its declaration.
type Arguments map[string]ArgumentSpec

// NoArguments is returned by providers that take no upstream input.
func NoArguments() Arguments {
	return Arguments{}
}
