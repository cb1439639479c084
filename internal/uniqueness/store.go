package uniqueness

import "github.com/mmrzaf/rowgen/internal/errors"

// Open returns the store for the configured kind.
func Open(kind, spillDir string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindBolt:
		return OpenBoltStore(spillDir)
	default:
		return nil, errors.Newf(errors.ErrConfiguration, "unknown excluded store %q (want %s or %s)", kind, KindMemory, KindBolt)
	}
}
