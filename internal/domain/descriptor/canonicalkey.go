// Package descriptor computes molecular descriptors and the similarity and
// codec routines that operate on them.
package descriptor

const (
	keyWords   = 3
	usableBits = 63
)

// CanonicalKey packs variable-width fields into up to three 63-bit words so
// that atoms can be ranked by comparing keys. Bit 63 of every word stays
// clear. Exceeding three words is a caller bug and panics.
type CanonicalKey struct {
	atom      int
	words     [keyWords]uint64
	index     int
	available int
}

// NewCanonicalKey returns a key initialised for atom.
func NewCanonicalKey(atom int) *CanonicalKey {
	k := &CanonicalKey{}
	k.Init(atom)
	return k
}

// Init resets the key to zero words for atom.
func (k *CanonicalKey) Init(atom int) {
	k.atom = atom
	k.words = [keyWords]uint64{}
	k.index = 0
	k.available = usableBits
}

// Atom returns the atom index the key belongs to.
func (k *CanonicalKey) Atom() int { return k.atom }

// AddRaw adds value to the current word without shifting.
func (k *CanonicalKey) AddRaw(value uint64) {
	k.words[k.index] += value
}

// Add appends the low bits of value. A field that does not fit is split: its
// high-order bits complete the current word, its low-order bits open the next.
func (k *CanonicalKey) Add(bits int, value uint64) {
	value &= mask(bits)
	if k.available >= bits {
		k.words[k.index] = k.words[k.index]<<uint(bits) | value
		k.available -= bits
		return
	}
	overflow := bits - k.available
	k.words[k.index] = k.words[k.index]<<uint(k.available) | value>>uint(overflow)
	k.index++
	k.words[k.index] = value & mask(overflow)
	k.available = usableBits - overflow
}

// Compare orders keys: more populated words first, then word by word as
// unsigned values. It returns -1, 0 or 1.
func (k *CanonicalKey) Compare(o *CanonicalKey) int {
	if k.index != o.index {
		if k.index < o.index {
			return -1
		}
		return 1
	}
	for i := 0; i <= k.index; i++ {
		switch {
		case k.words[i] < o.words[i]:
			return -1
		case k.words[i] > o.words[i]:
			return 1
		}
	}
	return 0
}

// Words returns a copy of the populated words.
func (k *CanonicalKey) Words() []uint64 {
	out := make([]uint64, k.index+1)
	copy(out, k.words[:k.index+1])
	return out
}

func mask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(bits) - 1
}

//Personal.AI order the ending
