// Package uniqueness holds the per-property excluded-value sets the engine
// grows while generating unique columns.
package uniqueness

import "github.com/mmrzaf/rowgen/internal/provider"

// Set is a monotonically growing set of canonical value keys. It is handed to
// providers as their Excluded view.
//
// Contains has no error return because providers call it in tight loops. A
// backing store failure makes Contains report true, so a provider can never
// return a duplicate, and the failure is surfaced by Err and by the next Add.
type Set interface {
	provider.Excluded
	Add(v interface{}) error
	Err() error
}

// Store creates the sets of one run. Closing the store releases every set it
// created.
type Store interface {
	NewSet(entity, property string) (Set, error)
	Close() error
}

const (
	KindMemory = "memory"
	KindBolt   = "bolt"
)
