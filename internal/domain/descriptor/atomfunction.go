package descriptor

import (
	"slices"

	"github.com/turtacn/molfp/internal/domain/molecule"
)

// Atomic numbers used by the predicates below.
const (
	atomH  = 1
	atomC  = 6
	atomN  = 7
	atomO  = 8
	atomF  = 9
	atomP  = 15
	atomS  = 16
	atomCl = 17
	atomBr = 35
	atomI  = 53
)

// ring positions relative to the nitrogen at index 0.
type ringInfluence struct {
	orthoPara []int
	meta      []int
}

var enablerPositions = map[int]ringInfluence{
	5: {orthoPara: []int{1, 4}, meta: []int{2, 3}},
	6: {orthoPara: []int{1, 3, 5}, meta: []int{2, 4}},
}

type substituentEffect int

const (
	effectNone substituentEffect = iota
	effectDonor
	effectWithdrawing
	effectHalogen
)

// ─────────────────────────────────────────────────────────────────────────────
// Nitrogen predicates
// ─────────────────────────────────────────────────────────────────────────────

// IsAmine reports an uncharged sp3 nitrogen that is neither part of an amide
// nor attached to a sulfonyl or phosphoryl group.
func IsAmine(g molecule.Graph, atom int) bool {
	if g.AtomicNo(atom) != atomN || g.IsAromaticAtom(atom) || g.PiElectrons(atom) != 0 || g.Charge(atom) != 0 {
		return false
	}
	if IsAmide(g, atom) {
		return false
	}
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		switch g.AtomicNo(nb) {
		case atomS, atomP:
			if doubleBonds(g, nb, atomO) > 0 {
				return false
			}
		}
	}
	return true
}

// IsAmide reports a nitrogen bonded to a C=O or C=S carbon.
func IsAmide(g molecule.Graph, atom int) bool {
	if g.AtomicNo(atom) != atomN {
		return false
	}
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		if g.AtomicNo(nb) == atomC && doubleBonds(g, nb, atomO)+doubleBonds(g, nb, atomS) > 0 {
			return true
		}
	}
	return false
}

// IsArylAmine reports an amine with at least one aromatic neighbour.
func IsArylAmine(g molecule.Graph, atom int) bool {
	if !IsAmine(g, atom) {
		return false
	}
	for i := 0; i < g.ConnAtoms(atom); i++ {
		if g.IsAromaticAtom(g.ConnAtom(atom, i)) {
			return true
		}
	}
	return false
}

// IsAlkylAmine reports an amine whose neighbours are all sp3 carbons.
func IsAlkylAmine(g molecule.Graph, atom int) bool {
	if !IsAmine(g, atom) || g.ConnAtoms(atom) == 0 {
		return false
	}
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		if g.AtomicNo(nb) != atomC || g.IsAromaticAtom(nb) || g.PiElectrons(nb) != 0 {
			return false
		}
	}
	return true
}

// IsBasicNitrogen decides whether a nitrogen is likely protonated at
// physiological pH. Aromatic nitrogens are scored from ring substituents by
// position; others by counting groups that support or withdraw the lone pair.
func IsBasicNitrogen(g molecule.Graph, atom int) bool {
	if g.AtomicNo(atom) != atomN || g.Charge(atom) != 0 {
		return false
	}
	if g.IsAromaticAtom(atom) {
		return isBasicAromaticNitrogen(g, atom)
	}
	switch g.PiElectrons(atom) {
	case 0:
		return isBasicAmine(g, atom)
	case 1:
		return isBasicImine(g, atom)
	}
	return false
}

// isBasicAromaticNitrogen only scores 5- and 6-membered rings. The smallest
// ring through the atom is used, so fused systems are judged by that ring.
func isBasicAromaticNitrogen(g molecule.Graph, atom int) bool {
	ring := g.RingAtoms(atom)
	influence, ok := enablerPositions[len(ring)]
	if !ok {
		return false
	}

	score := 0
	if g.ConnAtoms(atom) == 2 && g.ImplicitHydrogens(atom) == 0 {
		score = 2
	}
	for pos := 1; pos < len(ring); pos++ {
		ringAtom := ring[pos]
		orthoPara := slices.Contains(influence.orthoPara, pos)
		for i := 0; i < g.ConnAtoms(ringAtom); i++ {
			sub := g.ConnAtom(ringAtom, i)
			if slices.Contains(ring, sub) || g.IsAromaticBond(g.ConnBond(ringAtom, i)) {
				continue
			}
			switch ringSubstituentEffect(g, ringAtom, i) {
			case effectDonor:
				if orthoPara {
					score += 2
				}
			case effectWithdrawing:
				if orthoPara {
					score -= 2
				} else {
					score--
				}
			case effectHalogen:
				score--
			}
		}
	}
	return score > 0
}

func ringSubstituentEffect(g molecule.Graph, ringAtom, conn int) substituentEffect {
	sub := g.ConnAtom(ringAtom, conn)
	if g.ConnBondOrder(ringAtom, conn) >= molecule.BondDouble {
		return effectWithdrawing
	}
	switch g.AtomicNo(sub) {
	case atomF, atomCl, atomBr, atomI:
		return effectHalogen
	case atomC:
		if doubleBonds(g, sub, atomO)+doubleBonds(g, sub, atomN)+doubleBonds(g, sub, atomS) > 0 || tripleBonds(g, sub, atomN) > 0 {
			return effectWithdrawing
		}
		if halogenCount(g, sub) >= 3 {
			return effectWithdrawing
		}
	case atomN:
		if IsMemberOfNitroGroup(g, sub) {
			return effectWithdrawing
		}
		if IsAmine(g, sub) {
			return effectDonor
		}
	case atomO:
		if g.PiElectrons(sub) == 0 && g.Charge(sub) <= 0 && !IsAcidicOxygen(g, sub) {
			return effectDonor
		}
	case atomS:
		if doubleBonds(g, sub, atomO) > 0 {
			return effectWithdrawing
		}
	}
	return effectNone
}

// isBasicAmine scores an sp3 nitrogen: start at 1, subtract one per
// conjugating neighbour, add one when at least two alkyl carbons are attached.
func isBasicAmine(g molecule.Graph, atom int) bool {
	if IsAmide(g, atom) {
		return false
	}
	conjugated, alkyl := 0, 0
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		switch {
		case g.AtomicNo(nb) != atomC:
			return false
		case g.IsAromaticAtom(nb) || g.PiElectrons(nb) > 0:
			conjugated++
		default:
			alkyl++
		}
	}
	score := 1 - conjugated
	if alkyl >= 2 {
		score++
	}
	return score > 0
}

// isBasicImine scores C=N nitrogens. Amidines and guanidines gain support from
// amine nitrogens on the imine carbon; oximes, hydrazones and imines
// conjugated with aryl, carbonyl or sulfonyl groups lose it.
func isBasicImine(g molecule.Graph, atom int) bool {
	partner := -1
	for i := 0; i < g.ConnAtoms(atom); i++ {
		if g.ConnBondOrder(atom, i) == molecule.BondDouble && !g.IsAromaticBond(g.ConnBond(atom, i)) {
			partner = g.ConnAtom(atom, i)
		}
	}
	if partner < 0 || g.AtomicNo(partner) != atomC {
		return false
	}

	score := 1
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		if nb != partner && isHeteroAtom(g.AtomicNo(nb)) {
			score--
		}
	}
	for i := 0; i < g.ConnAtoms(partner); i++ {
		nb := g.ConnAtom(partner, i)
		if nb == atom {
			continue
		}
		switch {
		case IsAmine(g, nb):
			score++
		case g.IsAromaticAtom(nb):
			score--
		case g.AtomicNo(nb) == atomC && doubleBonds(g, nb, atomO)+doubleBonds(g, nb, atomS) > 0:
			score--
		case g.AtomicNo(nb) == atomS && doubleBonds(g, nb, atomO) > 0:
			score--
		}
	}
	return score > 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Oxygen and charge predicates
// ─────────────────────────────────────────────────────────────────────────────

// IsAcidicOxygen reports the OH (or O-) of a carboxylic, sulfonic or
// phosphoric acid. The attached atom is checked as carbon, else sulfur, else
// phosphorus; any other element is not acidic.
func IsAcidicOxygen(g molecule.Graph, atom int) bool {
	if g.AtomicNo(atom) != atomO || g.ConnAtoms(atom) != 1 || g.Charge(atom) > 0 {
		return false
	}
	if g.PiElectrons(atom) != 0 || g.IsAromaticAtom(atom) {
		return false
	}
	x := g.ConnAtom(atom, 0)
	if g.AtomicNo(x) == atomC {
		return doubleBonds(g, x, atomO) >= 1
	} else if g.AtomicNo(x) == atomS {
		return doubleBonds(g, x, atomO) >= 2
	} else if g.AtomicNo(x) == atomP {
		return doubleBonds(g, x, atomO) >= 1
	}
	return false
}

// IsMemberOfNitroGroup reports the nitrogen or either oxygen of a nitro group.
func IsMemberOfNitroGroup(g molecule.Graph, atom int) bool {
	switch g.AtomicNo(atom) {
	case atomN:
		return isNitroNitrogen(g, atom)
	case atomO:
		if g.ConnAtoms(atom) != 1 {
			return false
		}
		n := g.ConnAtom(atom, 0)
		return g.AtomicNo(n) == atomN && isNitroNitrogen(g, n)
	}
	return false
}

func isNitroNitrogen(g molecule.Graph, atom int) bool {
	if g.ConnAtoms(atom) != 3 {
		return false
	}
	oxygens := 0
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		if g.AtomicNo(nb) == atomO && g.ConnAtoms(nb) == 1 {
			oxygens++
		}
	}
	return oxygens == 2 && doubleBonds(g, atom, atomO) >= 1
}

// HasUnbalancedAtomCharge reports a charged atom whose neighbours do not
// compensate it. The compensating charge is the negated sum of neighbour
// charges; it balances when it has the atom's sign and at least its magnitude.
func HasUnbalancedAtomCharge(g molecule.Graph, atom int) bool {
	charge := g.Charge(atom)
	if charge == 0 {
		return false
	}
	compensation := 0
	for i := 0; i < g.ConnAtoms(atom); i++ {
		compensation -= g.Charge(g.ConnAtom(atom, i))
	}
	balanced := sign(compensation) == sign(charge) && abs(compensation) >= abs(charge)
	return !balanced
}

// MoleculeHasAcidicOxygen scans every atom with IsAcidicOxygen.
func MoleculeHasAcidicOxygen(g molecule.Graph) bool {
	for atom := 0; atom < g.AtomCount(); atom++ {
		if IsAcidicOxygen(g, atom) {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func doubleBonds(g molecule.Graph, atom, atomicNo int) int {
	return bondsTo(g, atom, atomicNo, molecule.BondDouble)
}

func tripleBonds(g molecule.Graph, atom, atomicNo int) int {
	return bondsTo(g, atom, atomicNo, molecule.BondTriple)
}

func bondsTo(g molecule.Graph, atom, atomicNo, order int) int {
	n := 0
	for i := 0; i < g.ConnAtoms(atom); i++ {
		if g.IsAromaticBond(g.ConnBond(atom, i)) {
			continue
		}
		if g.ConnBondOrder(atom, i) == order && g.AtomicNo(g.ConnAtom(atom, i)) == atomicNo {
			n++
		}
	}
	return n
}

func halogenCount(g molecule.Graph, atom int) int {
	n := 0
	for i := 0; i < g.ConnAtoms(atom); i++ {
		switch g.AtomicNo(g.ConnAtom(atom, i)) {
		case atomF, atomCl, atomBr, atomI:
			n++
		}
	}
	return n
}

func isHeteroAtom(atomicNo int) bool {
	return atomicNo == atomN || atomicNo == atomO || atomicNo == atomS
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

//Personal.AI order the ending
