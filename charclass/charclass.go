// Package charclass implements the character class data type: a subset of
// the 256-byte alphabet, represented as a fixed-size bitset.
//
// The input alphabet of this lexer generator is exactly the 256 byte
// values (no Unicode normalization, per the input grammar contract) so a
// 4-word bitset gives O(1) set algebra — union, intersection, difference,
// complement — at the cost of four uint64 ops per operation, regardless of
// how many bytes are actually in the class.
package charclass

// Set is a subset of the 256-byte alphabet.
//
// The zero value is the empty set. Ordering of members carries no meaning;
// all operations treat Set purely as a set.
type Set struct {
	bits [4]uint64
}

// All returns the set containing every byte value 0..255.
func All() Set {
	return Set{bits: [4]uint64{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}}
}

// Byte returns the singleton set containing only b.
func Byte(b byte) Set {
	var s Set
	s.Add(b)
	return s
}

// Range returns the set of bytes in [lo, hi] inclusive. Panics if hi < lo.
func Range(lo, hi byte) Set {
	if hi < lo {
		panic("charclass: invalid range")
	}
	var s Set
	for b := int(lo); b <= int(hi); b++ {
		s.Add(byte(b))
	}
	return s
}

// FromBytes returns the set containing exactly the given bytes.
func FromBytes(bs []byte) Set {
	var s Set
	for _, b := range bs {
		s.Add(b)
	}
	return s
}

func wordBit(b byte) (word int, bit uint) {
	return int(b / 64), uint(b % 64)
}

// Add inserts b into the set.
func (s *Set) Add(b byte) {
	w, bit := wordBit(b)
	s.bits[w] |= 1 << bit
}

// AddRange inserts every byte in [lo, hi] inclusive.
func (s *Set) AddRange(lo, hi byte) {
	for b := int(lo); b <= int(hi); b++ {
		s.Add(byte(b))
	}
}

// Contains reports whether b is a member of the set.
func (s Set) Contains(b byte) bool {
	w, bit := wordBit(b)
	return s.bits[w]&(1<<bit) != 0
}

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool {
	return s.bits[0] == 0 && s.bits[1] == 0 && s.bits[2] == 0 && s.bits[3] == 0
}

// Len returns the number of member bytes.
func (s Set) Len() int {
	n := 0
	for _, w := range s.bits {
		n += popcount(w)
	}
	return n
}

func popcount(w uint64) int {
	n := 0
	for w != 0 {
		w &= w - 1
		n++
	}
	return n
}

// Union returns the set of bytes in s or other.
func (s Set) Union(other Set) Set {
	var r Set
	for i := range s.bits {
		r.bits[i] = s.bits[i] | other.bits[i]
	}
	return r
}

// Intersect returns the set of bytes in both s and other.
func (s Set) Intersect(other Set) Set {
	var r Set
	for i := range s.bits {
		r.bits[i] = s.bits[i] & other.bits[i]
	}
	return r
}

// Difference returns the set of bytes in s but not in other.
func (s Set) Difference(other Set) Set {
	var r Set
	for i := range s.bits {
		r.bits[i] = s.bits[i] &^ other.bits[i]
	}
	return r
}

// Complement returns the set of bytes in 0..255 not in s.
func (s Set) Complement() Set {
	var r Set
	for i := range s.bits {
		r.bits[i] = ^s.bits[i]
	}
	return r
}

// Equal reports whether s and other contain the same bytes.
func (s Set) Equal(other Set) bool {
	return s.bits == other.bits
}

// Bytes returns the members of the set in ascending order.
func (s Set) Bytes() []byte {
	out := make([]byte, 0, s.Len())
	for b := 0; b < 256; b++ {
		if s.Contains(byte(b)) {
			out = append(out, byte(b))
		}
	}
	return out
}

// Min returns the smallest member byte and true, or (0, false) if empty.
// Used wherever a single representative byte is needed to probe a
// transition that is known to agree across the whole class (equivalence
// class lookups, §4.5 of the design).
func (s Set) Min() (byte, bool) {
	for b := 0; b < 256; b++ {
		if s.Contains(byte(b)) {
			return byte(b), true
		}
	}
	return 0, false
}
