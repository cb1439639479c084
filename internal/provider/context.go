package provider

import "github.com/mmrzaf/rowgen/internal/domain"

// Context is the read-only view a provider gets for one (row, property) step.
type Context struct {
	// Row holds the values already generated for this row, in generation order.
	Row       *domain.Row
	RowIndex  int64
	TotalRows int64
	Property  *domain.Property
	// Arguments holds the resolved upstream values per argument name, in
	// binding order. Null upstream values of optional arguments are omitted.
	Arguments map[string][]interface{}
	// EntityValues exposes the values of previously generated entities keyed
	// by "entity.property", for foreign key lookups.
	EntityValues map[string][]interface{}
}

// Argument returns the first resolved value of an argument.
func (c *Context) Argument(name string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	vals := c.Arguments[name]
	if len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

func (c *Context) ArgumentValues(name string) []interface{} {
	if c == nil {
		return nil
	}
	return c.Arguments[name]
}
