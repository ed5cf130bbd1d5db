package descriptor

import (
	"math/rand/v2"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/turtacn/molfp/internal/domain/molecule"
	"github.com/turtacn/molfp/pkg/errors"
)

// MaxPathBonds is the longest linear path enumerated by the path fingerprint.
const MaxPathBonds = 6

// ComputePathFingerprint sets one bit for every distinct linear path of up to
// MaxPathBonds bonds, single atoms included. A path and its reverse are the
// same feature. size must be a positive multiple of 64.
func ComputePathFingerprint(g molecule.Graph, size int) (*BitVector, error) {
	if size <= 0 || size%64 != 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidFingerprintSize, "path fingerprint size %d is not a positive multiple of 64", size)
	}
	if g == nil || g.AtomCount() == 0 {
		return FailedBitVector, nil
	}

	fp := NewBitVector(size)
	for path := range LinearPaths(g, MaxPathBonds) {
		seed := xxhash.Sum64String(path)
		r := rand.New(rand.NewPCG(seed, seed))
		fp.Set(r.IntN(size))
	}
	return fp, nil
}

// LinearPaths returns the canonical token string of every distinct simple path
// of up to maxBonds bonds.
func LinearPaths(g molecule.Graph, maxBonds int) map[string]struct{} {
	paths := make(map[string]struct{})
	onPath := make([]bool, g.AtomCount())

	var walk func(atom, depth int, fwd, rev string)
	walk = func(atom, depth int, fwd, rev string) {
		paths[min(fwd, rev)] = struct{}{}
		if depth == maxBonds {
			return
		}
		onPath[atom] = true
		for i := 0; i < g.ConnAtoms(atom); i++ {
			nb := g.ConnAtom(atom, i)
			if onPath[nb] {
				continue
			}
			bond := pathBondLabel(g, g.ConnBond(atom, i))
			label := pathAtomLabel(g, nb)
			walk(nb, depth+1, fwd+bond+label, label+bond+rev)
		}
		onPath[atom] = false
	}

	for atom := 0; atom < g.AtomCount(); atom++ {
		label := pathAtomLabel(g, atom)
		walk(atom, 0, label, label)
	}
	return paths
}

func pathAtomLabel(g molecule.Graph, atom int) string {
	sym := molecule.Symbol(g.AtomicNo(atom))
	if g.IsAromaticAtom(atom) {
		return strings.ToLower(sym)
	}
	return sym
}

func pathBondLabel(g molecule.Graph, bond int) string {
	if g.IsAromaticBond(bond) {
		return bondSymbol(0)
	}
	return bondSymbol(g.BondOrder(bond))
}

// bondSymbol maps a bond order to its token; 0 stands for aromatic.
func bondSymbol(order int) string {
	switch order {
	case molecule.BondSingle:
		return "-"
	case molecule.BondDouble:
		return "="
	case molecule.BondTriple:
		return "#"
	}
	return ":"
}

//Personal.AI order the ending
