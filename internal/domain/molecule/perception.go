package molecule

import (
	"slices"
	"strconv"
	"strings"
)

// perceive derives adjacency, rings, aromaticity and the allylic/stabilized
// flags from the raw atom and bond lists.
func perceive(atoms []Atom, bonds []Bond) *helpers {
	n := len(atoms)
	h := &helpers{
		connAtom:     make([][]int, n),
		connBond:     make([][]int, n),
		ringSize:     make([]int, n),
		ringAtoms:    make([][]int, n),
		aromaticAtom: make([]bool, n),
		aromaticBond: make([]bool, len(bonds)),
		allylic:      make([]bool, n),
		stabilized:   make([]bool, n),
		pi:           make([]int, n),
	}
	for i, b := range bonds {
		h.connAtom[b.Atom1] = append(h.connAtom[b.Atom1], b.Atom2)
		h.connBond[b.Atom1] = append(h.connBond[b.Atom1], i)
		h.connAtom[b.Atom2] = append(h.connAtom[b.Atom2], b.Atom1)
		h.connBond[b.Atom2] = append(h.connBond[b.Atom2], i)
	}

	rings := findRings(h, bonds)
	for _, ring := range rings {
		for idx, atom := range ring {
			if h.ringSize[atom] == 0 || len(ring) < h.ringSize[atom] {
				h.ringSize[atom] = len(ring)
				h.ringAtoms[atom] = rotate(ring, idx)
			}
		}
	}

	for i, a := range atoms {
		h.aromaticAtom[i] = a.Aromatic
	}
	for i, b := range bonds {
		if b.Aromatic {
			h.aromaticBond[i] = true
			h.aromaticAtom[b.Atom1] = true
			h.aromaticAtom[b.Atom2] = true
		}
	}
	perceiveAromaticity(atoms, bonds, h, rings)

	for i, b := range bonds {
		if h.aromaticBond[i] || b.Order <= BondSingle {
			continue
		}
		h.pi[b.Atom1] += b.Order - 1
		h.pi[b.Atom2] += b.Order - 1
	}

	for atom := range atoms {
		if h.aromaticAtom[atom] || h.pi[atom] != 0 {
			continue
		}
		for _, nb := range h.connAtom[atom] {
			if h.aromaticAtom[nb] || h.pi[nb] == 0 {
				continue
			}
			h.allylic[atom] = true
			if hasPolarPiBond(atoms, bonds, h, nb) {
				h.stabilized[atom] = true
			}
		}
	}
	return h
}

// findRings returns the shortest cycle through every ring bond, deduplicated,
// in bond order. Each ring lists its atoms in ring order.
func findRings(h *helpers, bonds []Bond) [][]int {
	var rings [][]int
	seen := make(map[string]struct{})
	for bond := range bonds {
		ring := shortestCycle(h, bonds, bond)
		if ring == nil {
			continue
		}
		key := ringKey(ring)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rings = append(rings, ring)
	}
	return rings
}

// shortestCycle runs a BFS from one end of bond to the other without using
// bond itself. The returned path closes into a ring through bond.
func shortestCycle(h *helpers, bonds []Bond, bond int) []int {
	start, goal := bonds[bond].Atom1, bonds[bond].Atom2
	parent := make([]int, len(h.connAtom))
	for i := range parent {
		parent[i] = -1
	}
	parent[start] = start
	queue := []int{start}
	for len(queue) > 0 {
		atom := queue[0]
		queue = queue[1:]
		for i, nb := range h.connAtom[atom] {
			if h.connBond[atom][i] == bond || parent[nb] != -1 {
				continue
			}
			parent[nb] = atom
			if nb == goal {
				path := []int{goal}
				for x := goal; x != start; x = parent[x] {
					path = append(path, parent[x])
				}
				slices.Reverse(path)
				return path
			}
			queue = append(queue, nb)
		}
	}
	return nil
}

func ringKey(ring []int) string {
	sorted := slices.Clone(ring)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, a := range sorted {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, ",")
}

func rotate(ring []int, start int) []int {
	out := make([]int, 0, len(ring))
	out = append(out, ring[start:]...)
	return append(out, ring[:start]...)
}

// perceiveAromaticity marks 5- and 6-membered Kekulé rings aromatic. Rings are
// revisited until nothing changes so that fused systems resolve through atoms
// already known to be aromatic.
func perceiveAromaticity(atoms []Atom, bonds []Bond, h *helpers, rings [][]int) {
	for changed := true; changed; {
		changed = false
		for _, ring := range rings {
			if len(ring) != 5 && len(ring) != 6 {
				continue
			}
			ringBonds := make([]int, len(ring))
			allAromatic := true
			for i := range ring {
				ringBonds[i] = bondBetween(h, ring[i], ring[(i+1)%len(ring)])
				allAromatic = allAromatic && h.aromaticBond[ringBonds[i]]
			}
			if allAromatic || !isKekuleAromatic(atoms, bonds, h, ring) {
				continue
			}
			for i, b := range ringBonds {
				h.aromaticBond[b] = true
				h.aromaticAtom[ring[i]] = true
			}
			changed = true
		}
	}
}

func isKekuleAromatic(atoms []Atom, bonds []Bond, h *helpers, ring []int) bool {
	donors := 0
	for _, atom := range ring {
		if h.aromaticAtom[atom] {
			continue
		}
		partner, doubles := -1, 0
		for i, nb := range h.connAtom[atom] {
			b := bonds[h.connBond[atom][i]]
			if b.Aromatic {
				continue
			}
			switch b.Order {
			case BondDouble:
				doubles++
				partner = nb
			case BondTriple:
				return false
			}
		}
		switch {
		case doubles == 1 && slices.Contains(ring, partner):
		case doubles == 0 && len(ring) == 5 && isLonePairDonor(atoms[atom], len(h.connAtom[atom])):
			donors++
		default:
			return false
		}
	}
	if len(ring) == 5 {
		return donors == 1
	}
	return donors == 0
}

func isLonePairDonor(a Atom, conns int) bool {
	if a.Charge != 0 {
		return false
	}
	switch a.AtomicNo {
	case 7:
		return conns == 3 || a.ImplicitHydrogens > 0
	case 8, 16:
		return true
	}
	return false
}

func hasPolarPiBond(atoms []Atom, bonds []Bond, h *helpers, atom int) bool {
	for i, nb := range h.connAtom[atom] {
		b := bonds[h.connBond[atom][i]]
		if h.aromaticBond[h.connBond[atom][i]] {
			continue
		}
		switch atoms[nb].AtomicNo {
		case 7:
			if b.Order >= BondDouble {
				return true
			}
		case 8, 16:
			if b.Order == BondDouble {
				return true
			}
		}
	}
	return false
}

func bondBetween(h *helpers, a1, a2 int) int {
	for i, nb := range h.connAtom[a1] {
		if nb == a2 {
			return h.connBond[a1][i]
		}
	}
	return -1
}

//Personal.AI order the ending
