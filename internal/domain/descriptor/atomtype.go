package descriptor

import (
	"fmt"
	"strings"

	"github.com/turtacn/molfp/internal/domain/molecule"
	"github.com/turtacn/molfp/pkg/errors"
)

// PropertyMask selects which properties ComputeAtomType folds into a type.
type PropertyMask uint32

const (
	PropAtomRingSize PropertyMask = 1 << iota
	PropAtomSmallRing
	PropAtomAromatic
	PropAtomAllylic
	PropAtomStabilized
	PropAtomCharged
	PropConnBondOrder
	PropConnAtomType
	PropConnAtomNeighbours
	// PropConnAtomNeighboursSimple collapses the neighbour substituent count
	// to "has substituents".
	PropConnAtomNeighboursSimple
	PropConnAtomSmallRing
	PropConnAtomAromatic
)

const (
	// PropertiesAll enables every property except the simple collapse.
	PropertiesAll = PropAtomRingSize | PropAtomSmallRing | PropAtomAromatic | PropAtomAllylic |
		PropAtomStabilized | PropAtomCharged | PropConnBondOrder | PropConnAtomType |
		PropConnAtomNeighbours | PropConnAtomSmallRing | PropConnAtomAromatic

	// PropertiesBasic distinguishes elements, bond orders and aromaticity only.
	PropertiesBasic = PropAtomAromatic | PropConnBondOrder | PropConnAtomType | PropConnAtomAromatic
)

// Reserved high bits of an atom type.
const (
	AtomTypeChargeImbalance uint64 = 1 << 50
	AtomTypeAmpholytic      uint64 = 1 << 51
)

const (
	atomFieldBits       = 10
	maxFoldedNeighbours = 4
	atomClassMask       = 0x0F

	atomRingSizeShift = 4
	atomSmallRingBit  = 1 << 4
	atomAromaticBit   = 1 << 7
	atomAllylicBit    = 1 << 8
	atomStabilizedBit = 1 << 9

	connSubstituentShift = 4
	connSmallRingBit     = 1 << 6
	connAromaticBit      = 1 << 7
	connBondOrderShift   = 8
)

var atomClassCodes = map[int]uint64{
	5:  1,  // B
	6:  2,  // C
	7:  3,  // N
	8:  4,  // O
	9:  5,  // F
	14: 6,  // Si
	15: 7,  // P
	16: 8,  // S
	17: 9,  // Cl
	33: 10, // As
	34: 11, // Se
	35: 12, // Br
	50: 13, // Sn
	52: 14, // Te
	53: 15, // I
}

var classAtomicNo = func() [16]int {
	var out [16]int
	for no, code := range atomClassCodes {
		out[code] = no
	}
	return out
}()

// AtomClass returns the 4-bit class code for an atomic number.
func AtomClass(atomicNo int) (uint64, error) {
	code, ok := atomClassCodes[atomicNo]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeUnsupportedElement,
			"no atom class for %s (atomic number %d)", molecule.Symbol(atomicNo), atomicNo)
	}
	return code, nil
}

// ComputeAtomType encodes atom and up to four of its heavy neighbours into a
// canonical 64-bit type. Neighbour order does not matter: neighbour values are
// inserted in descending order before folding, extra neighbours are dropped.
func ComputeAtomType(g molecule.Graph, atom int, mode PropertyMask) (uint64, error) {
	if atom < 0 || atom >= g.AtomCount() {
		return 0, errors.Newf(errors.ErrCodeAtomIndexOutOfRange, "atom %d of %d", atom, g.AtomCount())
	}
	class, err := AtomClass(g.AtomicNo(atom))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeUnsupportedElement, fmt.Sprintf("atom %d", atom))
	}

	neighbours := make([]uint64, g.ConnAtoms(atom)+1)
	count := 0
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		if g.AtomicNo(nb) == atomH {
			continue
		}
		var v uint64
		if mode&PropConnBondOrder != 0 {
			order := uint64(g.ConnBondOrder(atom, i))
			if g.IsAromaticBond(g.ConnBond(atom, i)) {
				order = 0
			}
			v |= order << connBondOrderShift
		}
		if mode&PropConnAtomType != 0 {
			nbClass, err := AtomClass(g.AtomicNo(nb))
			if err != nil {
				return 0, errors.Wrap(err, errors.ErrCodeUnsupportedElement, fmt.Sprintf("neighbour %d of atom %d", nb, atom))
			}
			v |= nbClass
		}
		if mode&PropConnAtomNeighbours != 0 {
			subs := uint64(min(g.ConnAtoms(nb)-1, 3))
			if mode&PropConnAtomNeighboursSimple != 0 && subs > 1 {
				subs = 1
			}
			v |= subs << connSubstituentShift
		}
		if mode&PropConnAtomSmallRing != 0 && g.IsSmallRingAtom(nb) {
			v |= connSmallRingBit
		}
		if mode&PropConnAtomAromatic != 0 && g.IsAromaticAtom(nb) {
			v |= connAromaticBit
		}

		index := 0
		for v < neighbours[index] {
			index++
		}
		copy(neighbours[index+1:count+1], neighbours[index:count])
		neighbours[index] = v
		count++
	}

	var atomType uint64
	for i := 0; i < min(count, maxFoldedNeighbours); i++ {
		atomType = atomType<<atomFieldBits | neighbours[i]
	}
	atomType <<= atomFieldBits
	atomType |= class

	if mode&PropAtomRingSize != 0 {
		if rs := g.RingSize(atom); rs != 0 {
			atomType |= uint64(min(rs, 9)-2) << atomRingSizeShift
		}
	} else if mode&PropAtomSmallRing != 0 && g.IsSmallRingAtom(atom) {
		atomType |= atomSmallRingBit
	}
	if mode&PropAtomAromatic != 0 && g.IsAromaticAtom(atom) {
		atomType |= atomAromaticBit
	}
	if mode&PropAtomAllylic != 0 && g.IsAllylicAtom(atom) {
		atomType |= atomAllylicBit
	}
	if mode&PropAtomStabilized != 0 && g.IsStabilizedAtom(atom) {
		atomType |= atomStabilizedBit
	}
	if mode&PropAtomCharged != 0 {
		if HasUnbalancedAtomCharge(g, atom) {
			atomType |= AtomTypeChargeImbalance
		}
		if IsBasicNitrogen(g, atom) && MoleculeHasAcidicOxygen(g) {
			atomType |= AtomTypeAmpholytic
		}
	}
	return atomType, nil
}

// AtomTypes computes the type of every atom in g.
func AtomTypes(g molecule.Graph, mode PropertyMask) ([]uint64, error) {
	types := make([]uint64, g.AtomCount())
	for atom := range types {
		t, err := ComputeAtomType(g, atom, mode)
		if err != nil {
			return nil, err
		}
		types[atom] = t
	}
	return types, nil
}

// AtomTypeHistogram counts how often each distinct atom type occurs in g.
func AtomTypeHistogram(g molecule.Graph, mode PropertyMask) (map[uint64]int, error) {
	types, err := AtomTypes(g, mode)
	if err != nil {
		return nil, err
	}
	hist := make(map[uint64]int, len(types))
	for _, t := range types {
		hist[t]++
	}
	return hist, nil
}

// DescribeAtomType renders an atom type for people, e.g. "C:r6:ar {:C+1@*, :C+1@*, -O}".
func DescribeAtomType(t uint64) string {
	var sb strings.Builder
	sb.WriteString(classSymbol(t & atomClassMask))
	if code := (t >> atomRingSizeShift) & 0x7; code != 0 {
		fmt.Fprintf(&sb, ":r%d", code+2)
	}
	for _, f := range []struct {
		bit  uint64
		name string
	}{
		{atomAromaticBit, "ar"},
		{atomAllylicBit, "allyl"},
		{atomStabilizedBit, "stab"},
		{AtomTypeChargeImbalance, "unbal"},
		{AtomTypeAmpholytic, "ampho"},
	} {
		if t&f.bit != 0 {
			sb.WriteString(":" + f.name)
		}
	}

	var conns []string
	// The first folded neighbour sits in the highest occupied field.
	for k := maxFoldedNeighbours; k >= 1; k-- {
		v := (t >> uint(atomFieldBits*k)) & 0x3FF
		if v == 0 {
			continue
		}
		var c strings.Builder
		c.WriteString(bondSymbol(int(v >> connBondOrderShift)))
		c.WriteString(classSymbol(v & atomClassMask))
		if subs := (v >> connSubstituentShift) & 0x3; subs != 0 {
			fmt.Fprintf(&c, "+%d", subs)
		}
		if v&connSmallRingBit != 0 {
			c.WriteString("@")
		}
		if v&connAromaticBit != 0 {
			c.WriteString("*")
		}
		conns = append(conns, c.String())
	}
	if len(conns) > 0 {
		sb.WriteString(" {" + strings.Join(conns, ", ") + "}")
	}
	return sb.String()
}

func classSymbol(code uint64) string {
	if code == 0 {
		return "?"
	}
	return molecule.Symbol(classAtomicNo[code])
}

//Personal.AI order the ending
