package descriptor

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"
)

// BitVector is a fixed-size hashed fingerprint. A nil *BitVector is the null
// descriptor; a zero-length vector is the failed sentinel.
type BitVector struct {
	size uint
	bits *bitset.BitSet
}

// FailedBitVector is the shared failed sentinel. It is never mutated.
var FailedBitVector = &BitVector{bits: bitset.New(0)}

// NewBitVector returns an all-zero vector of size bits.
func NewBitVector(size int) *BitVector {
	return &BitVector{size: uint(size), bits: bitset.New(uint(size))}
}

// BitVectorFromWords rebuilds a vector from its 64-bit words.
func BitVectorFromWords(words []uint64) *BitVector {
	if len(words) == 0 {
		return FailedBitVector
	}
	buf := make([]uint64, len(words))
	copy(buf, words)
	return &BitVector{size: uint(64 * len(words)), bits: bitset.From(buf)}
}

// Size is the configured number of bits.
func (v *BitVector) Size() int { return int(v.size) }

// Set turns on bit i. Out-of-range indices are ignored.
func (v *BitVector) Set(i int) {
	if i < 0 || uint(i) >= v.size {
		return
	}
	v.bits.Set(uint(i))
}

// Test reports whether bit i is on.
func (v *BitVector) Test(i int) bool {
	if i < 0 || uint(i) >= v.size {
		return false
	}
	return v.bits.Test(uint(i))
}

// Count is the number of set bits.
func (v *BitVector) Count() int { return int(v.bits.Count()) }

// Words returns a copy of the underlying words, ceil(size/64) of them.
func (v *BitVector) Words() []uint64 {
	n := int((v.size + 63) / 64)
	out := make([]uint64, n)
	copy(out, v.bits.Bytes())
	return out
}

// Bytes packs the words big-endian, size/8 bytes, the layout of the encoded
// form and of binary vector stores.
func (v *BitVector) Bytes() []byte {
	words := v.Words()
	out := make([]byte, 0, 8*len(words))
	for _, w := range words {
		out = binary.BigEndian.AppendUint64(out, w)
	}
	return out
}

// Equal compares size and content.
func (v *BitVector) Equal(o *BitVector) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.size != o.size {
		return false
	}
	return v.bits.Equal(o.bits)
}

// IsFailed reports the failed sentinel state (zero length).
func (v *BitVector) IsFailed() bool { return v != nil && v.size == 0 }

//Personal.AI order the ending
