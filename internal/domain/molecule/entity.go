// Package molecule provides the molecular graph consumed by the descriptor
// subsystem: atoms, bonds, ring and aromaticity perception, plus readers that
// build graphs from SMILES and V2000 molfiles.
package molecule

import (
	"sync"
	"sync/atomic"

	"github.com/turtacn/molfp/pkg/errors"
)

// Bond orders as stored on a Bond. Aromatic bonds keep order 1 unless the
// input supplied a Kekulé order.
const (
	BondSingle   = 1
	BondDouble   = 2
	BondTriple   = 3
	BondAromatic = 4
)

// SmallRingLimit is the largest ring size that still counts as a small ring.
const SmallRingLimit = 7

// Graph is the read-only view of a molecule used by descriptor computation.
// Atom and bond indices are dense and zero based.
type Graph interface {
	AtomCount() int
	BondCount() int

	AtomicNo(atom int) int
	Charge(atom int) int
	ImplicitHydrogens(atom int) int
	IsAromaticAtom(atom int) bool
	// RingSize is the size of the smallest ring containing atom, 0 if none.
	RingSize(atom int) int
	IsSmallRingAtom(atom int) bool
	// RingAtoms returns the atoms of the smallest ring through atom in ring
	// order, starting with atom itself. Nil when atom is not in a ring.
	RingAtoms(atom int) []int
	IsAllylicAtom(atom int) bool
	IsStabilizedAtom(atom int) bool
	// PiElectrons counts non-aromatic π bonds of atom (double = 1, triple = 2).
	PiElectrons(atom int) int

	ConnAtoms(atom int) int
	ConnAtom(atom, i int) int
	ConnBond(atom, i int) int
	ConnBondOrder(atom, i int) int

	BondAtom(bond, end int) int
	BondOrder(bond int) int
	IsAromaticBond(bond int) bool
}

// Atom is a heavy atom of a Molecule.
type Atom struct {
	AtomicNo          int
	Charge            int
	ImplicitHydrogens int
	// Aromatic marks atoms flagged aromatic by the input (lowercase SMILES
	// symbols, fragments of aromatic parents).
	Aromatic bool
}

// Bond connects two atoms.
type Bond struct {
	Atom1    int
	Atom2    int
	Order    int
	Aromatic bool
}

// Molecule is the mutable Graph implementation. Mutators are not safe for
// concurrent use; once built, a Molecule may be read from many goroutines.
type Molecule struct {
	Name  string
	atoms []Atom
	bonds []Bond

	mu      sync.Mutex
	ready   atomic.Bool
	helpers *helpers
}

// helpers holds everything derived from atoms and bonds.
type helpers struct {
	connAtom     [][]int
	connBond     [][]int
	ringSize     []int
	ringAtoms    [][]int
	aromaticAtom []bool
	aromaticBond []bool
	allylic      []bool
	stabilized   []bool
	pi           []int
}

// NewMolecule returns an empty molecule.
func NewMolecule() *Molecule {
	return &Molecule{}
}

// AddAtom appends an atom and returns its index.
func (m *Molecule) AddAtom(atomicNo int) int {
	m.atoms = append(m.atoms, Atom{AtomicNo: atomicNo})
	m.invalidate()
	return len(m.atoms) - 1
}

// AddAromaticAtom appends an atom that is aromatic regardless of perception.
func (m *Molecule) AddAromaticAtom(atomicNo int) int {
	m.atoms = append(m.atoms, Atom{AtomicNo: atomicNo, Aromatic: true})
	m.invalidate()
	return len(m.atoms) - 1
}

// AddBond connects atom1 and atom2. Order BondAromatic stores a single bond
// flagged aromatic.
func (m *Molecule) AddBond(atom1, atom2, order int) (int, error) {
	if atom1 < 0 || atom1 >= len(m.atoms) || atom2 < 0 || atom2 >= len(m.atoms) {
		return -1, errors.Newf(errors.ErrCodeAtomIndexOutOfRange, "bond %d-%d references a missing atom", atom1, atom2)
	}
	if atom1 == atom2 {
		return -1, errors.Newf(errors.ErrCodeInvalidMolecule, "bond from atom %d to itself", atom1)
	}
	if order < BondSingle || order > BondAromatic {
		return -1, errors.Newf(errors.ErrCodeInvalidMolecule, "unsupported bond order %d", order)
	}
	b := Bond{Atom1: atom1, Atom2: atom2, Order: order}
	if order == BondAromatic {
		b.Order = BondSingle
		b.Aromatic = true
	}
	m.bonds = append(m.bonds, b)
	m.invalidate()
	return len(m.bonds) - 1, nil
}

// SetCharge sets the formal charge of atom.
func (m *Molecule) SetCharge(atom, charge int) {
	m.atoms[atom].Charge = charge
	m.invalidate()
}

// SetImplicitHydrogens sets the implicit hydrogen count of atom.
func (m *Molecule) SetImplicitHydrogens(atom, count int) {
	m.atoms[atom].ImplicitHydrogens = count
	m.invalidate()
}

// Atom returns a copy of the atom record.
func (m *Molecule) Atom(atom int) Atom { return m.atoms[atom] }

// Bond returns a copy of the bond record.
func (m *Molecule) Bond(bond int) Bond { return m.bonds[bond] }

func (m *Molecule) invalidate() {
	m.ready.Store(false)
}

// ensure runs perception once per mutation generation.
func (m *Molecule) ensure() *helpers {
	if m.ready.Load() {
		return m.helpers
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready.Load() {
		m.helpers = perceive(m.atoms, m.bonds)
		m.ready.Store(true)
	}
	return m.helpers
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph implementation
// ─────────────────────────────────────────────────────────────────────────────

func (m *Molecule) AtomCount() int { return len(m.atoms) }
func (m *Molecule) BondCount() int { return len(m.bonds) }

func (m *Molecule) AtomicNo(atom int) int          { return m.atoms[atom].AtomicNo }
func (m *Molecule) Charge(atom int) int            { return m.atoms[atom].Charge }
func (m *Molecule) ImplicitHydrogens(atom int) int { return m.atoms[atom].ImplicitHydrogens }

func (m *Molecule) IsAromaticAtom(atom int) bool { return m.ensure().aromaticAtom[atom] }
func (m *Molecule) RingSize(atom int) int        { return m.ensure().ringSize[atom] }

func (m *Molecule) IsSmallRingAtom(atom int) bool {
	rs := m.ensure().ringSize[atom]
	return rs != 0 && rs <= SmallRingLimit
}

func (m *Molecule) RingAtoms(atom int) []int {
	ring := m.ensure().ringAtoms[atom]
	if ring == nil {
		return nil
	}
	out := make([]int, len(ring))
	copy(out, ring)
	return out
}

func (m *Molecule) IsAllylicAtom(atom int) bool    { return m.ensure().allylic[atom] }
func (m *Molecule) IsStabilizedAtom(atom int) bool { return m.ensure().stabilized[atom] }
func (m *Molecule) PiElectrons(atom int) int       { return m.ensure().pi[atom] }

func (m *Molecule) ConnAtoms(atom int) int   { return len(m.ensure().connAtom[atom]) }
func (m *Molecule) ConnAtom(atom, i int) int { return m.ensure().connAtom[atom][i] }
func (m *Molecule) ConnBond(atom, i int) int { return m.ensure().connBond[atom][i] }

func (m *Molecule) ConnBondOrder(atom, i int) int {
	return m.bonds[m.ensure().connBond[atom][i]].Order
}

func (m *Molecule) BondAtom(bond, end int) int {
	if end == 0 {
		return m.bonds[bond].Atom1
	}
	return m.bonds[bond].Atom2
}

func (m *Molecule) BondOrder(bond int) int       { return m.bonds[bond].Order }
func (m *Molecule) IsAromaticBond(bond int) bool { return m.ensure().aromaticBond[bond] }

// ─────────────────────────────────────────────────────────────────────────────
// Derived views
// ─────────────────────────────────────────────────────────────────────────────

// Induce copies the atoms marked in include, and the bonds between them, into
// a standalone fragment. Aromatic flags of the parent are carried over.
func Induce(g Graph, include []bool) *Molecule {
	frag := NewMolecule()
	index := make([]int, g.AtomCount())
	for atom := 0; atom < g.AtomCount(); atom++ {
		index[atom] = -1
		if !include[atom] {
			continue
		}
		index[atom] = len(frag.atoms)
		frag.atoms = append(frag.atoms, Atom{
			AtomicNo:          g.AtomicNo(atom),
			Charge:            g.Charge(atom),
			ImplicitHydrogens: g.ImplicitHydrogens(atom),
			Aromatic:          g.IsAromaticAtom(atom),
		})
	}
	for bond := 0; bond < g.BondCount(); bond++ {
		a1, a2 := index[g.BondAtom(bond, 0)], index[g.BondAtom(bond, 1)]
		if a1 < 0 || a2 < 0 {
			continue
		}
		frag.bonds = append(frag.bonds, Bond{
			Atom1:    a1,
			Atom2:    a2,
			Order:    g.BondOrder(bond),
			Aromatic: g.IsAromaticBond(bond),
		})
	}
	return frag
}

// FoldHydrogens returns a copy of m where every uncharged hydrogen bonded to
// exactly one heavy atom is removed and counted on that atom instead.
func FoldHydrogens(m *Molecule) *Molecule {
	h := m.ensure()
	drop := make([]bool, len(m.atoms))
	extra := make([]int, len(m.atoms))
	for atom, a := range m.atoms {
		if a.AtomicNo != 1 || a.Charge != 0 || len(h.connAtom[atom]) != 1 {
			continue
		}
		heavy := h.connAtom[atom][0]
		if m.atoms[heavy].AtomicNo == 1 {
			continue
		}
		drop[atom] = true
		extra[heavy]++
	}

	out := &Molecule{Name: m.Name}
	index := make([]int, len(m.atoms))
	for atom, a := range m.atoms {
		if drop[atom] {
			index[atom] = -1
			continue
		}
		a.ImplicitHydrogens += extra[atom]
		index[atom] = len(out.atoms)
		out.atoms = append(out.atoms, a)
	}
	for _, b := range m.bonds {
		if index[b.Atom1] < 0 || index[b.Atom2] < 0 {
			continue
		}
		b.Atom1, b.Atom2 = index[b.Atom1], index[b.Atom2]
		out.bonds = append(out.bonds, b)
	}
	return out
}

//Personal.AI order the ending
