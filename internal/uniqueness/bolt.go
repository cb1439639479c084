package uniqueness

import (
	"os"

	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	bolt "go.etcd.io/bbolt"
)

// flushEvery is the number of pending keys buffered before a write
// transaction.
const flushEvery = 4096

var present = []byte{1}

// BoltStore spills excluded sets to a temporary bbolt file so unique columns
// of very large entities do not have to fit in memory.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// OpenBoltStore creates a fresh database file in dir. The file is removed on
// Close.
func OpenBoltStore(dir string) (*BoltStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create spill dir")
	}
	f, err := os.CreateTemp(dir, "rowgen-excluded-*.db")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create spill file")
	}
	path := f.Name()
	f.Close()

	db, err := bolt.Open(path, 0o600, &bolt.Options{NoSync: true})
	if err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "failed to open bbolt database")
	}
	return &BoltStore{db: db, path: path}, nil
}

func (b *BoltStore) NewSet(entity, property string) (Set, error) {
	name := []byte(entity + "." + property)
	err := b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(name)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create bucket %s", name)
	}
	return &BoltSet{db: b.db, bucket: name, pending: make(map[string]struct{})}, nil
}

func (b *BoltStore) Path() string {
	return b.path
}

func (b *BoltStore) Close() error {
	err := b.db.Close()
	if rmErr := os.Remove(b.path); err == nil && rmErr != nil && !os.IsNotExist(rmErr) {
		err = rmErr
	}
	return err
}

// BoltSet buffers added keys in memory and writes them in batches.
type BoltSet struct {
	db      *bolt.DB
	bucket  []byte
	pending map[string]struct{}
	n       int
	err     error
}

func (s *BoltSet) Contains(v interface{}) bool {
	if s.err != nil {
		return true
	}
	key := provider.Key(v)
	if _, ok := s.pending[key]; ok {
		return true
	}
	found, err := s.stored(key)
	if err != nil {
		s.err = err
		return true
	}
	return found
}

func (s *BoltSet) stored(key string) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if bkt == nil {
			return errors.Newf(errors.ErrNotFound, "bucket not found: %s", s.bucket)
		}
		found = bkt.Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

func (s *BoltSet) Add(v interface{}) error {
	if s.err != nil {
		return s.err
	}
	key := provider.Key(v)
	if _, ok := s.pending[key]; ok {
		return nil
	}
	found, err := s.stored(key)
	if err != nil {
		s.err = err
		return err
	}
	if found {
		return nil
	}
	s.pending[key] = struct{}{}
	s.n++
	if len(s.pending) >= flushEvery {
		return s.Flush()
	}
	return nil
}

// Flush writes pending keys to the database.
func (s *BoltSet) Flush() error {
	if s.err != nil {
		return s.err
	}
	if len(s.pending) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if bkt == nil {
			return errors.Newf(errors.ErrNotFound, "bucket not found: %s", s.bucket)
		}
		for k := range s.pending {
			if err := bkt.Put([]byte(k), present); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.err = errors.Wrap(err, "failed to flush excluded values")
		return s.err
	}
	s.pending = make(map[string]struct{})
	return nil
}

func (s *BoltSet) Len() int {
	return s.n
}

func (s *BoltSet) Err() error {
	return s.err
}
