// Package chainmap provides Map, a generic key-value container built on
// separate chaining, fully serialized behind a single reentrant guard.
package chainmap

import (
	"encoding/json"
	"fmt"
	"hash/maphash"
	"iter"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
)

// Map is a generic associative container using a bucket-of-chains layout:
// an ordered sequence of collision chains addressed by hash(key) modulo the
// chain count. Every public operation, read or write, acquires a single
// per-instance reentrant lock, so the observable effect of concurrent use is
// a total order of whole operations; no partial write is ever visible.
//
// The table grows by doubling whenever an insert or upsert observes
// size >= capacity, replaying all entries into the new bucket store through
// the upsert path. A failed replay restores the captured pre-resize state,
// so the table is never left partially rehashed. Shrinking happens only
// through the explicit Trim operation.
//
// Because the guard is reentrant, a caller may take it explicitly with Lock
// and nest any number of map operations to make a compound sequence (such as
// ContainsKey followed by Add) atomic with respect to other goroutines.
//
// The zero value is an empty, usable map with one bucket and the built-in
// hasher. A Map must not be copied after first use.
type Map[K comparable, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		guard   RMutex
		seed    maphash.Seed
		hash    func(maphash.Seed, struct{}) uint64
		buckets [][]struct{}
		size    int
	}{})%CacheLineSize) % CacheLineSize]byte

	guard   RMutex
	seed    maphash.Seed
	hash    HashFunc[K]
	buckets [][]Entry[K, V]
	size    int
}

// Entry is an owned key-value pair. Entries are stored by value: once
// inserted, the table holds its own copy and nothing else aliases it. An
// entry does not outlive the table and does not survive being overwritten
// or removed.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Config defines configurable Map options.
type Config struct {
	capacity int
}

// WithCapacity configures the initial number of buckets. Values below 1 are
// ignored; the bucket store never has fewer than one chain.
func WithCapacity(n int) func(*Config) {
	return func(c *Config) {
		if n >= 1 {
			c.capacity = n
		}
	}
}

// New creates an empty Map.
//
// Parameters:
//   - WithCapacity option for the initial bucket count (default 1)
func New[K comparable, V any](options ...func(*Config)) *Map[K, V] {
	return NewWithHasher[K, V](nil, options...)
}

// NewWithHasher creates a Map with a custom key hasher.
//
// Parameters:
//   - hash: nil selects the built-in hasher (xxhash for string keys,
//     maphash.Comparable for everything else)
//   - WithCapacity option for the initial bucket count
func NewWithHasher[K comparable, V any](
	hash HashFunc[K],
	options ...func(*Config),
) *Map[K, V] {
	c := &Config{capacity: 1}
	for _, o := range options {
		o(c)
	}
	if hash == nil {
		hash = defaultHasher[K]()
	}
	return &Map[K, V]{
		seed:    maphash.MakeSeed(),
		hash:    hash,
		buckets: make([][]Entry[K, V], c.capacity),
	}
}

// NewFromEntries creates a Map seeded from a collection of entries. A
// capacity below 1 auto-sizes the bucket store to the collection length,
// minimum one bucket. Seeding runs through the upsert path, so when the
// collection contains duplicate keys the last occurrence wins; entries whose
// keys fail to hash are dropped.
func NewFromEntries[K comparable, V any](
	entries []Entry[K, V],
	capacity int,
	options ...func(*Config),
) *Map[K, V] {
	if capacity < 1 {
		capacity = max(len(entries), 1)
	}
	m := New[K, V](append(options, WithCapacity(capacity))...)
	for _, e := range entries {
		_ = m.Assign(e.Key, e.Value)
	}
	return m
}

// lazyInit brings a zero-value Map to its default state. Callers must hold
// the guard.
func (m *Map[K, V]) lazyInit() {
	if m.hash == nil {
		m.seed = maphash.MakeSeed()
		m.hash = defaultHasher[K]()
	}
	if m.buckets == nil {
		m.buckets = make([][]Entry[K, V], 1)
	}
}

// bucketFor maps a hash to a chain index under the current capacity.
func (m *Map[K, V]) bucketFor(hash uint64) int {
	return int(hash % uint64(len(m.buckets)))
}

// scan returns the position of the entry for key within the chain, or -1.
// Full key equality decides, so distinct keys that collide on a hash remain
// distinct entries; the hash only selects the chain.
func scan[K comparable, V any](chain []Entry[K, V], key K) int {
	for i := range chain {
		if chain[i].Key == key {
			return i
		}
	}
	return -1
}

// Size returns the number of entries in the map.
func (m *Map[K, V]) Size() int {
	m.guard.Lock()
	defer m.guard.Unlock()
	return m.size
}

// IsEmpty reports whether the map contains no entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.Size() == 0
}

// Capacity returns the current number of buckets.
func (m *Map[K, V]) Capacity() int {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.lazyInit()
	return len(m.buckets)
}

// Lock acquires the map's guard for a compound critical section. The guard
// is reentrant, so any map operation may be nested inside; individual
// operations are always atomic on their own, but a check-then-act sequence
// is not unless the caller brackets it:
//
//	m.Lock()
//	defer m.Unlock()
//	if !m.ContainsKey(k) {
//		m.Add(k, v)
//	}
func (m *Map[K, V]) Lock() {
	m.guard.Lock()
}

// Unlock releases the guard taken by Lock.
func (m *Map[K, V]) Unlock() {
	m.guard.Unlock()
}

// Add inserts a new entry if no entry with the same key exists and reports
// whether the insert happened. A duplicate key is a normal false outcome,
// not an error. A non-nil error means the key failed to hash or a triggered
// resize aborted; the table is unchanged in either case.
func (m *Map[K, V]) Add(key K, value V) (bool, error) {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.lazyInit()

	hash, err := m.hashKey(key)
	if err != nil {
		return false, err
	}
	if m.size >= len(m.buckets) {
		if err := m.grow(len(m.buckets) * 2); err != nil {
			return false, err
		}
	}
	idx := m.bucketFor(hash)
	chain := m.buckets[idx]
	if scan(chain, key) >= 0 {
		return false, nil
	}
	m.buckets[idx] = append(chain, Entry[K, V]{Key: key, Value: value})
	m.size++
	return true, nil
}

// Assign inserts or replaces the entry for key. Unlike Add it never fails on
// duplication; a non-nil error means the key failed to hash or a triggered
// resize aborted, leaving the table unchanged.
func (m *Map[K, V]) Assign(key K, value V) error {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.lazyInit()

	hash, err := m.hashKey(key)
	if err != nil {
		return err
	}
	if m.size >= len(m.buckets) {
		if err := m.grow(len(m.buckets) * 2); err != nil {
			return err
		}
	}
	m.upsert(hash, key, value)
	return nil
}

// assign is the upsert primitive used by the resize replay and bulk seeding.
// It performs no growth check; callers guarantee capacity and hold the guard.
func (m *Map[K, V]) assign(key K, value V) error {
	hash, err := m.hashKey(key)
	if err != nil {
		return err
	}
	m.upsert(hash, key, value)
	return nil
}

// upsert places key under its chain for the current capacity, replacing in
// place on a duplicate.
func (m *Map[K, V]) upsert(hash uint64, key K, value V) {
	idx := m.bucketFor(hash)
	chain := m.buckets[idx]
	if i := scan(chain, key); i >= 0 {
		chain[i].Value = value
		return
	}
	m.buckets[idx] = append(chain, Entry[K, V]{Key: key, Value: value})
	m.size++
}

// Remove excises the entry for key and reports whether one existed. The
// false outcome leaves the table untouched. A non-nil error means the key
// failed to hash.
func (m *Map[K, V]) Remove(key K) (bool, error) {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.lazyInit()

	hash, err := m.hashKey(key)
	if err != nil {
		return false, err
	}
	idx := m.bucketFor(hash)
	chain := m.buckets[idx]
	i := scan(chain, key)
	if i < 0 {
		return false, nil
	}
	m.buckets[idx] = append(chain[:i], chain[i+1:]...)
	m.size--
	return true, nil
}

// Get returns a copy of the value stored for key. It is non-throwing: an
// internal hashing failure collapses to a miss. Use Lookup when the cause
// matters.
func (m *Map[K, V]) Get(key K) (V, bool) {
	value, ok, _ := m.Lookup(key)
	return value, ok
}

// Lookup is the error-carrying form of Get. Absence is reported as
// ok == false with a nil error; a non-nil error means the key failed to
// hash.
func (m *Map[K, V]) Lookup(key K) (value V, ok bool, err error) {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.lazyInit()

	hash, err := m.hashKey(key)
	if err != nil {
		return value, false, err
	}
	chain := m.buckets[m.bucketFor(hash)]
	if i := scan(chain, key); i >= 0 {
		return chain[i].Value, true, nil
	}
	return value, false, nil
}

// MustGet returns the value stored for key and panics with an
// ErrNotFound-wrapped error when absent. It is intended for call sites that
// have already verified presence or accept the failure mode; use Get
// everywhere else.
func (m *Map[K, V]) MustGet(key K) V {
	value, ok, err := m.Lookup(key)
	if err != nil {
		panic(err)
	}
	if !ok {
		panic(errors.Wrapf(ErrNotFound, "key %v", key))
	}
	return value
}

// ContainsKey reports whether an entry exists for key. Non-throwing; a
// hashing failure collapses to false.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok, _ := m.Lookup(key)
	return ok
}

// grow rebuilds the bucket store with target chains (never fewer than one)
// and replays every entry through the upsert path, which preserves per-entry
// collisions exactly. If any replay step fails, the captured store and size
// are restored: callers never observe a partially rehashed table.
func (m *Map[K, V]) grow(target int) (err error) {
	if target < 1 {
		target = 1
	}
	prev := m.buckets
	prevSize := m.size
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrAllocation, "rehash panic: %v", r)
		}
		if err != nil {
			m.buckets = prev
			m.size = prevSize
		}
	}()

	m.size = 0
	m.buckets = make([][]Entry[K, V], target)
	for _, chain := range prev {
		for i := range chain {
			if err = m.assign(chain[i].Key, chain[i].Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reserve grows the bucket store to at least minCapacity chains, rehashing
// all entries. It never shrinks; trailing capacity is released only by Trim.
// On failure the table is left exactly as it was.
func (m *Map[K, V]) Reserve(minCapacity int) error {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.lazyInit()

	if minCapacity <= len(m.buckets) {
		return nil
	}
	return m.grow(minCapacity)
}

// Trim releases unused trailing buckets. It scans from the second bucket for
// the last non-empty chain and shrinks the store to end one slot past it,
// replaying the entries through the resize engine so every key stays
// retrievable under the reduced capacity. Bucket zero is never removed and
// no entry is removed, so size is unaffected. On failure the table is left
// exactly as it was.
func (m *Map[K, V]) Trim() error {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.lazyInit()

	end := 1
	for i := 1; i < len(m.buckets); i++ {
		if len(m.buckets[i]) != 0 {
			end = i + 1
		}
	}
	if end >= len(m.buckets) {
		return nil
	}
	return m.grow(end)
}

// Clear removes every entry and resets the bucket store to a single empty
// chain.
func (m *Map[K, V]) Clear() {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.buckets = make([][]Entry[K, V], 1)
	m.size = 0
}

// Keys returns a snapshot of all keys in bucket-then-chain order. The slice
// is independent of the map; later mutation does not affect it.
func (m *Map[K, V]) Keys() []K {
	m.guard.Lock()
	defer m.guard.Unlock()
	out := make([]K, 0, m.size)
	for _, chain := range m.buckets {
		for i := range chain {
			out = append(out, chain[i].Key)
		}
	}
	return out
}

// Values returns a snapshot of all values in bucket-then-chain order.
func (m *Map[K, V]) Values() []V {
	m.guard.Lock()
	defer m.guard.Unlock()
	out := make([]V, 0, m.size)
	for _, chain := range m.buckets {
		for i := range chain {
			out = append(out, chain[i].Value)
		}
	}
	return out
}

// Entries returns a snapshot of all entries in bucket-then-chain order.
func (m *Map[K, V]) Entries() []Entry[K, V] {
	m.guard.Lock()
	defer m.guard.Unlock()
	out := make([]Entry[K, V], 0, m.size)
	for _, chain := range m.buckets {
		out = append(out, chain...)
	}
	return out
}

// Range calls yield for every entry in bucket-then-chain order until yield
// returns false. The guard is held for the whole walk; because it is
// reentrant the callback may perform read operations on the same map, but
// structural mutation (insert, remove, resize, trim, clear) from inside the
// callback is undefined.
func (m *Map[K, V]) Range(yield func(key K, value V) bool) {
	m.guard.Lock()
	defer m.guard.Unlock()
	for _, chain := range m.buckets {
		for i := range chain {
			if !yield(chain[i].Key, chain[i].Value) {
				return
			}
		}
	}
}

// All is the range-over-func form of Range.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return m.Range
}

// ToMap collects all entries into a plain map[K]V.
func (m *Map[K, V]) ToMap() map[K]V {
	m.guard.Lock()
	defer m.guard.Unlock()
	out := make(map[K]V, m.size)
	for _, chain := range m.buckets {
		for i := range chain {
			out[chain[i].Key] = chain[i].Value
		}
	}
	return out
}

// FromMap upserts every pair from source into the map as one guarded bulk
// operation. Pairs whose keys fail to hash are dropped, matching the
// non-throwing seeding semantics.
func (m *Map[K, V]) FromMap(source map[K]V) {
	m.guard.Lock()
	defer m.guard.Unlock()
	for k, v := range source {
		_ = m.Assign(k, v)
	}
}

// Clone returns a structurally identical copy. The clone shares the hasher
// and seed, so entries keep their bucket layout.
func (m *Map[K, V]) Clone() *Map[K, V] {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.lazyInit()

	c := &Map[K, V]{
		seed:    m.seed,
		hash:    m.hash,
		buckets: make([][]Entry[K, V], len(m.buckets)),
		size:    m.size,
	}
	for i, chain := range m.buckets {
		if len(chain) != 0 {
			c.buckets[i] = append([]Entry[K, V](nil), chain...)
		}
	}
	return c
}

// String implements fmt.Stringer.
func (m *Map[K, V]) String() string {
	return strings.Replace(fmt.Sprint(m.ToMap()), "map[", "Map[", 1)
}

// MarshalJSON encodes the map as a plain JSON object.
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToMap())
}

// UnmarshalJSON decodes a JSON object and upserts every pair into the map.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	var source map[K]V
	if err := json.Unmarshal(data, &source); err != nil {
		return err
	}
	m.FromMap(source)
	return nil
}
