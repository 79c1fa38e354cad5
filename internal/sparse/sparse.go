// Package sparse provides a sparse set data structure for efficient membership testing.
//
// A sparse set is a data structure that supports O(1) insertion, deletion, and membership
// testing while maintaining a dense list of elements in insertion order. It's particularly
// useful for graph traversals over a known, bounded universe of indices — visited-state
// tracking during Tarjan's algorithm, worklists during subset construction, and partition
// refinement during DFA minimization all walk a fixed-size index space repeatedly.
package sparse

// SparseSet is a set of uint32 values that supports O(1) operations.
// It maintains both a sparse array (for membership testing) and a dense array
// (for iteration in insertion order). The sparse array maps values to indices
// in the dense array.
//
// This implementation is optimized for cases where the universe of possible
// values is known and relatively small (e.g., NFA or DFA state indices).
type SparseSet struct {
	sparse []uint32 // Maps value -> index in dense
	dense  []uint32 // Contains the actual values, in insertion order
	size   uint32   // Current number of elements
}

// NewSparseSet creates a new sparse set with the given capacity.
// The capacity represents the maximum value that can be stored (exclusive).
func NewSparseSet(capacity uint32) *SparseSet {
	return &SparseSet{
		sparse: make([]uint32, capacity),
		dense:  make([]uint32, 0, capacity),
		size:   0,
	}
}

// Insert adds a value to the set, returning true if it was newly inserted
// and false if it was already present.
// Panics if value >= capacity.
func (s *SparseSet) Insert(value uint32) bool {
	if s.Contains(value) {
		return false
	}

	s.dense = append(s.dense, value)
	s.sparse[value] = s.size
	s.size++
	return true
}

// Contains returns true if the value is in the set.
func (s *SparseSet) Contains(value uint32) bool {
	if value >= uint32(len(s.sparse)) {
		return false
	}
	idx := s.sparse[value]
	return idx < s.size && s.dense[idx] == value
}

// Remove removes a value from the set.
// If the value is not present, this is a no-op.
func (s *SparseSet) Remove(value uint32) {
	if !s.Contains(value) {
		return
	}

	idx := s.sparse[value]

	// Move last element to this position (swap and pop)
	lastValue := s.dense[s.size-1]
	s.dense[idx] = lastValue
	s.sparse[lastValue] = idx

	s.size--
	s.dense = s.dense[:s.size]
}

// Clear removes all elements from the set in O(1) time.
func (s *SparseSet) Clear() {
	s.size = 0
	s.dense = s.dense[:0]
}

// Len returns the number of elements in the set.
func (s *SparseSet) Len() int {
	return int(s.size)
}

// IsEmpty returns true if the set contains no elements.
func (s *SparseSet) IsEmpty() bool {
	return s.size == 0
}

// Capacity returns the maximum value (exclusive) the set can currently hold.
func (s *SparseSet) Capacity() int {
	return len(s.sparse)
}

// Resize changes the set's capacity. Growing preserves existing elements;
// shrinking clears the set, since the sparse array can no longer vouch for
// indices beyond the new capacity.
func (s *SparseSet) Resize(capacity uint32) {
	if capacity >= uint32(len(s.sparse)) {
		grown := make([]uint32, capacity)
		copy(grown, s.sparse)
		s.sparse = grown
		return
	}
	s.sparse = make([]uint32, capacity)
	s.Clear()
}

// Clone returns an independent copy of the set.
func (s *SparseSet) Clone() *SparseSet {
	clone := &SparseSet{
		sparse: make([]uint32, len(s.sparse)),
		dense:  make([]uint32, len(s.dense)),
		size:   s.size,
	}
	copy(clone.sparse, s.sparse)
	copy(clone.dense, s.dense)
	return clone
}

// Values returns a slice of all values in the set, in insertion order.
// The returned slice is valid until the next mutation.
func (s *SparseSet) Values() []uint32 {
	return s.dense[:s.size]
}

// Iter calls the given function for each value in the set, in insertion order.
func (s *SparseSet) Iter(f func(uint32)) {
	for i := uint32(0); i < s.size; i++ {
		f(s.dense[i])
	}
}

// SparseSets holds a pair of sparse sets that can be swapped cheaply.
// This is the common shape needed by worklist algorithms that alternate
// between a "current frontier" and a "next frontier" set without reallocating.
type SparseSets struct {
	Set1 *SparseSet
	Set2 *SparseSet
}

// NewSparseSets creates a pair of sparse sets, each with the given capacity.
func NewSparseSets(capacity uint32) *SparseSets {
	return &SparseSets{
		Set1: NewSparseSet(capacity),
		Set2: NewSparseSet(capacity),
	}
}

// Swap exchanges Set1 and Set2.
func (ss *SparseSets) Swap() {
	ss.Set1, ss.Set2 = ss.Set2, ss.Set1
}

// Clear clears both sets.
func (ss *SparseSets) Clear() {
	ss.Set1.Clear()
	ss.Set2.Clear()
}
