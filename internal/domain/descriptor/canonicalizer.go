package descriptor

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/turtacn/molfp/internal/domain/molecule"
	"github.com/turtacn/molfp/pkg/errors"
)

// Canonicalizer renders a graph as a string that is identical for every atom
// ordering of the same graph.
type Canonicalizer interface {
	Canonicalize(g molecule.Graph) (string, error)
}

// RankCanonicalizer ranks atoms by iterative refinement of local invariants,
// breaks remaining ties deterministically and writes a SMILES-like string by
// depth-first traversal in rank order.
type RankCanonicalizer struct{}

// NewRankCanonicalizer returns the default Canonicalizer.
func NewRankCanonicalizer() *RankCanonicalizer {
	return &RankCanonicalizer{}
}

// Canonicalize implements Canonicalizer. An empty graph yields "".
func (c *RankCanonicalizer) Canonicalize(g molecule.Graph) (string, error) {
	ranks, err := c.Ranks(g)
	if err != nil {
		return "", err
	}
	w := newSmilesWriter(g, ranks)
	return w.write(), nil
}

// Ranks returns a unique rank per atom, 0 being the lowest.
func (c *RankCanonicalizer) Ranks(g molecule.Graph) ([]int, error) {
	n := g.AtomCount()
	if n == 0 {
		return nil, nil
	}

	keys := make([]*CanonicalKey, n)
	for atom := 0; atom < n; atom++ {
		no := g.AtomicNo(atom)
		if no <= 0 || no > 255 {
			return nil, errors.Newf(errors.ErrCodeCanonicalizationFailed, "atom %d has atomic number %d", atom, no)
		}
		charge := g.Charge(atom)
		if charge < -7 || charge > 8 {
			return nil, errors.Newf(errors.ErrCodeCanonicalizationFailed, "atom %d has charge %d", atom, charge)
		}
		k := NewCanonicalKey(atom)
		k.Add(8, uint64(no))
		k.Add(4, uint64(charge+7))
		k.Add(1, boolBit(g.IsAromaticAtom(atom)))
		k.Add(6, uint64(min(g.ConnAtoms(atom), 63)))
		k.Add(4, uint64(min(g.ImplicitHydrogens(atom), 15)))
		k.Add(5, uint64(min(g.RingSize(atom), 31)))
		keys[atom] = k
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return keys[a].Compare(keys[b]) })
	ranks := make([]int, n)
	rank := 0
	for i, atom := range order {
		if i > 0 && keys[atom].Compare(keys[order[i-1]]) != 0 {
			rank++
		}
		ranks[atom] = rank
	}

	ranks, distinct := refine(g, ranks)
	for distinct < n {
		ranks = breakTie(ranks)
		ranks, distinct = refine(g, ranks)
	}
	return ranks, nil
}

// refine splits rank classes by the sorted (rank, bond) pairs of neighbours
// until no class splits further. It returns dense ranks and their count.
func refine(g molecule.Graph, ranks []int) ([]int, int) {
	n := len(ranks)
	distinct := countDistinct(ranks)
	for {
		sigs := make([][]int, n)
		for atom := 0; atom < n; atom++ {
			sig := make([]int, 0, g.ConnAtoms(atom)+1)
			for i := 0; i < g.ConnAtoms(atom); i++ {
				sig = append(sig, ranks[g.ConnAtom(atom, i)]*8+bondCode(g, g.ConnBond(atom, i)))
			}
			slices.Sort(sig)
			sigs[atom] = append([]int{ranks[atom]}, sig...)
		}

		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int { return slices.Compare(sigs[a], sigs[b]) })
		next := make([]int, n)
		rank := 0
		for i, atom := range order {
			if i > 0 && slices.Compare(sigs[atom], sigs[order[i-1]]) != 0 {
				rank++
			}
			next[atom] = rank
		}
		nextDistinct := rank + 1
		if nextDistinct == distinct {
			return next, distinct
		}
		ranks, distinct = next, nextDistinct
	}
}

// breakTie promotes the lowest-indexed atom of the lowest tied rank class.
func breakTie(ranks []int) []int {
	counts := make(map[int]int, len(ranks))
	for _, r := range ranks {
		counts[r]++
	}
	tied := -1
	for _, r := range ranks {
		if counts[r] > 1 && (tied < 0 || r < tied) {
			tied = r
		}
	}
	out := make([]int, len(ranks))
	promoted := false
	for atom, r := range ranks {
		out[atom] = 2*r + 1
		if r == tied && !promoted {
			out[atom] = 2 * r
			promoted = true
		}
	}
	return out
}

func countDistinct(ranks []int) int {
	seen := make(map[int]struct{}, len(ranks))
	for _, r := range ranks {
		seen[r] = struct{}{}
	}
	return len(seen)
}

func bondCode(g molecule.Graph, bond int) int {
	if g.IsAromaticBond(bond) {
		return 4
	}
	return g.BondOrder(bond)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// ─────────────────────────────────────────────────────────────────────────────
// SMILES-like writer
// ─────────────────────────────────────────────────────────────────────────────

type ringBond struct {
	bond   int
	opener int
	closer int
}

type smilesWriter struct {
	g        molecule.Graph
	ranks    []int
	visited  []bool
	children [][]int
	rings    map[int][]ringBond
	seenBond map[int]bool
	digits   map[int]int
	inUse    []bool
	sb       strings.Builder
}

func newSmilesWriter(g molecule.Graph, ranks []int) *smilesWriter {
	n := g.AtomCount()
	return &smilesWriter{
		g:        g,
		ranks:    ranks,
		visited:  make([]bool, n),
		children: make([][]int, n),
		rings:    make(map[int][]ringBond),
		seenBond: make(map[int]bool),
		digits:   make(map[int]int),
	}
}

func (w *smilesWriter) write() string {
	n := w.g.AtomCount()
	byRank := make([]int, n)
	for atom, r := range w.ranks {
		byRank[r] = atom
	}

	var parts []string
	for _, root := range byRank {
		if w.visited[root] {
			continue
		}
		w.plan(root, -1)
		w.sb.Reset()
		w.emit(root)
		parts = append(parts, w.sb.String())
	}
	slices.Sort(parts)
	return strings.Join(parts, ".")
}

// sortedConns lists connection indexes of atom by ascending neighbour rank.
func (w *smilesWriter) sortedConns(atom int) []int {
	conns := make([]int, w.g.ConnAtoms(atom))
	for i := range conns {
		conns[i] = i
	}
	slices.SortFunc(conns, func(a, b int) int {
		return cmp.Compare(w.ranks[w.g.ConnAtom(atom, a)], w.ranks[w.g.ConnAtom(atom, b)])
	})
	return conns
}

// plan runs the traversal once to split bonds into tree and ring-closure bonds.
func (w *smilesWriter) plan(atom, viaBond int) {
	w.visited[atom] = true
	if viaBond >= 0 {
		w.seenBond[viaBond] = true
	}
	for _, i := range w.sortedConns(atom) {
		nb, bond := w.g.ConnAtom(atom, i), w.g.ConnBond(atom, i)
		if w.seenBond[bond] {
			continue
		}
		if w.visited[nb] {
			w.seenBond[bond] = true
			rb := ringBond{bond: bond, opener: nb, closer: atom}
			w.rings[nb] = append(w.rings[nb], rb)
			w.rings[atom] = append(w.rings[atom], rb)
			continue
		}
		w.children[atom] = append(w.children[atom], i)
		w.plan(nb, bond)
	}
}

func (w *smilesWriter) emit(atom int) {
	w.sb.WriteString(w.atomLabel(atom))
	for _, rb := range w.rings[atom] {
		if rb.opener == atom {
			d := w.allocDigit()
			w.digits[rb.bond] = d
			w.sb.WriteString(w.bondLabel(rb.bond))
			w.sb.WriteString(digitLabel(d))
			continue
		}
		d := w.digits[rb.bond]
		w.inUse[d] = false
		w.sb.WriteString(digitLabel(d))
	}
	for k, i := range w.children[atom] {
		nb, bond := w.g.ConnAtom(atom, i), w.g.ConnBond(atom, i)
		last := k == len(w.children[atom])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondLabel(bond))
		w.emit(nb)
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) allocDigit() int {
	for d := 1; ; d++ {
		if d >= len(w.inUse) {
			w.inUse = append(w.inUse, make([]bool, d-len(w.inUse)+1)...)
		}
		if !w.inUse[d] {
			w.inUse[d] = true
			return d
		}
	}
}

func digitLabel(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

func (w *smilesWriter) bondLabel(bond int) string {
	if w.g.IsAromaticBond(bond) {
		return ":"
	}
	if w.g.BondOrder(bond) == molecule.BondSingle {
		return ""
	}
	return bondSymbol(w.g.BondOrder(bond))
}

func (w *smilesWriter) atomLabel(atom int) string {
	sym := molecule.Symbol(w.g.AtomicNo(atom))
	if w.g.IsAromaticAtom(atom) {
		sym = strings.ToLower(sym)
	}
	h, charge := w.g.ImplicitHydrogens(atom), w.g.Charge(atom)
	if h == 0 && charge == 0 {
		return sym
	}
	var sb strings.Builder
	sb.WriteString("[" + sym)
	if h > 0 {
		sb.WriteString("H")
		if h > 1 {
			sb.WriteString(strconv.Itoa(h))
		}
	}
	switch {
	case charge > 0:
		sb.WriteString("+" + strconv.Itoa(charge))
	case charge < 0:
		sb.WriteString(strconv.Itoa(charge))
	}
	sb.WriteString("]")
	return sb.String()
}

//Personal.AI order the ending
