package domain

import (
	"fmt"
	"time"
)

// Row is an ordered mapping of property name to value. Insertion order is
// generation order. A nil value is a SQL NULL.
type Row struct {
	Index  int64
	names  []string
	values map[string]interface{}
}

func NewRow(index int64, capacity int) *Row {
	return &Row{
		Index:  index,
		names:  make([]string, 0, capacity),
		values: make(map[string]interface{}, capacity),
	}
}

// Set stores a value. Setting the same name twice is a programming error.
func (r *Row) Set(name string, v interface{}) {
	if _, ok := r.values[name]; ok {
		panic(fmt.Sprintf("domain: property %q set twice in row %d", name, r.Index))
	}
	r.names = append(r.names, name)
	r.values[name] = v
}

func (r *Row) Get(name string) (interface{}, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns property names in generation order.
func (r *Row) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Row) Len() int {
	return len(r.names)
}

// Values returns the row's values laid out in the given column order.
// Columns missing from the row come back as nil.
func (r *Row) Values(columns []string) []interface{} {
	out := make([]interface{}, len(columns))
	for i, c := range columns {
		out[i] = SinkValue(r.values[c])
	}
	return out
}

// Map returns a copy of the row as a plain map.
func (r *Row) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// SinkValue converts provider values that are records (MIME types, versions,
// coordinates) into their scalar string form for storage.
func SinkValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, []byte, time.Time:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return val
	}
}
