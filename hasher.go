package chainmap

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// HashFunc computes a bucket hash for a key. The seed is the per-map seed
// generated at construction time; hashers derived from hash/maphash should
// use it, while keyed hashers such as xxhash may ignore it.
//
// A HashFunc must be deterministic for the lifetime of a map and free of side
// effects. It may panic for keys it cannot hash; the map recovers the panic
// and reports it as an ErrHash failure.
type HashFunc[K comparable] func(seed maphash.Seed, key K) uint64

// defaultHasher selects the hasher used when none is supplied: xxhash for
// string keys, maphash.Comparable for everything else.
func defaultHasher[K comparable]() HashFunc[K] {
	switch any(*new(K)).(type) {
	case string:
		return func(_ maphash.Seed, key K) uint64 {
			return xxhash.Sum64String(any(key).(string))
		}
	default:
		return maphash.Comparable[K]
	}
}

// hashKey runs the configured hasher, converting a hasher panic into an
// ErrHash-wrapped error so that callers never unwind.
func (m *Map[K, V]) hashKey(key K) (h uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrHash, "hasher panic: %v", r)
		}
	}()
	return m.hash(m.seed, key), nil
}
