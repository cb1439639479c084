package uniqueness

import (
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/zeebo/xxh3"
)

// MemorySet buckets keys by their xxh3 hash; each bucket keeps the full keys
// so hash collisions never merge distinct values.
type MemorySet struct {
	buckets map[uint64][]string
	n       int
}

func NewMemorySet() *MemorySet {
	return &MemorySet{buckets: make(map[uint64][]string)}
}

func (s *MemorySet) Contains(v interface{}) bool {
	key := provider.Key(v)
	for _, k := range s.buckets[xxh3.HashString(key)] {
		if k == key {
			return true
		}
	}
	return false
}

func (s *MemorySet) Add(v interface{}) error {
	key := provider.Key(v)
	h := xxh3.HashString(key)
	for _, k := range s.buckets[h] {
		if k == key {
			return nil
		}
	}
	s.buckets[h] = append(s.buckets[h], key)
	s.n++
	return nil
}

func (s *MemorySet) Len() int {
	return s.n
}

func (s *MemorySet) Err() error {
	return nil
}

type memoryStore struct{}

func NewMemoryStore() Store {
	return memoryStore{}
}

func (memoryStore) NewSet(entity, property string) (Set, error) {
	return NewMemorySet(), nil
}

func (memoryStore) Close() error {
	return nil
}
