package chainmap

// Iterator is a forward-only, read-only cursor over a Map's entries in
// bucket-then-chain order. It holds an (outer, inner) position pair and
// skips empty buckets transparently on advance.
//
// An Iterator takes no locks. The caller must ensure no structural mutation
// of the map occurs while a cursor is in use; insert, remove, resize, trim
// and clear all invalidate it. A fresh cursor can be obtained from Begin at
// any time.
type Iterator[K comparable, V any] struct {
	m     *Map[K, V]
	outer int
	inner int
}

// Begin returns a cursor positioned at the first entry, or a cursor equal to
// End when the map is empty.
func (m *Map[K, V]) Begin() Iterator[K, V] {
	it := Iterator[K, V]{m: m}
	it.skipEmpty()
	return it
}

// End returns the past-the-end cursor.
func (m *Map[K, V]) End() Iterator[K, V] {
	return Iterator[K, V]{m: m, outer: len(m.buckets)}
}

// skipEmpty moves the cursor forward past empty buckets until it rests on an
// entry or reaches the end.
func (it *Iterator[K, V]) skipEmpty() {
	for it.outer < len(it.m.buckets) && it.inner >= len(it.m.buckets[it.outer]) {
		it.outer++
		it.inner = 0
	}
}

// Next advances the cursor to the following entry. Advancing the end cursor
// is a no-op.
func (it *Iterator[K, V]) Next() {
	if it.outer >= len(it.m.buckets) {
		return
	}
	it.inner++
	it.skipEmpty()
}

// Entry dereferences the cursor. It must not be called on the end cursor.
func (it Iterator[K, V]) Entry() Entry[K, V] {
	return it.m.buckets[it.outer][it.inner]
}

// Key returns the key at the cursor position.
func (it Iterator[K, V]) Key() K {
	return it.Entry().Key
}

// Value returns the value at the cursor position.
func (it Iterator[K, V]) Value() V {
	return it.Entry().Value
}

// Equal reports whether two cursors over the same map denote the same
// position. The outer position is compared first; the inner position only
// matters when the cursor is not at the logical end.
func (it Iterator[K, V]) Equal(other Iterator[K, V]) bool {
	if it.outer != other.outer {
		return false
	}
	return it.outer >= len(it.m.buckets) || it.inner == other.inner
}
