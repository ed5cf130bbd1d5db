package descriptor

import (
	"slices"

	"github.com/samber/lo"

	"github.com/turtacn/molfp/internal/domain/molecule"
)

// Functional group classes, bits 16-23 of a group label.
const (
	GroupAmine int32 = iota + 1
	GroupAmide
	GroupAcid
	GroupCarbonyl
	GroupHydroxyl
	GroupEther
	GroupNitro
	GroupHalide
	GroupAromaticNitrogen
	GroupNitrile
	GroupImine
)

// Subclasses, bits 8-15. Their meaning depends on the class.
const (
	SubAlkyl int32 = 1
	SubAryl  int32 = 2

	SubCarboxamide int32 = 1
	SubSulfonamide int32 = 2

	SubCarboxylic int32 = 1
	SubSulfonic   int32 = 2
	SubPhosphoric int32 = 3

	SubKetone   int32 = 1
	SubAldehyde int32 = 2
	SubEster    int32 = 3

	SubAlcohol int32 = 1
	SubPhenol  int32 = 2

	SubBasic    int32 = 1
	SubNonBasic int32 = 2
)

// GroupCount is one (label, count) pair of a functional group descriptor.
type GroupCount struct {
	Label int32
	Count int32
}

// FunctionalGroups lists group counts sorted by label, each label once. Nil is
// the null descriptor.
type FunctionalGroups []GroupCount

// FailedFunctionalGroups is the failed sentinel: a single (-1, -1) pair.
var FailedFunctionalGroups = FunctionalGroups{{Label: -1, Count: -1}}

// IsFailed reports the sentinel pair.
func (fg FunctionalGroups) IsFailed() bool {
	return len(fg) == 1 && fg[0].Label == -1 && fg[0].Count == -1
}

// TotalCount sums the group counts.
func (fg FunctionalGroups) TotalCount() int32 {
	return lo.SumBy(fg, func(g GroupCount) int32 { return g.Count })
}

// GroupLabel packs class, subclass and variant into a label.
func GroupLabel(class, subclass, variant int32) int32 {
	return class<<16 | subclass<<8 | variant
}

// SplitGroupLabel is the inverse of GroupLabel.
func SplitGroupLabel(label int32) (class, subclass, variant int32) {
	return label >> 16, (label >> 8) & 0xFF, label & 0xFF
}

// EquivalenceLevel is 0 for identical labels, 1 when class and subclass agree,
// 2 when only the class agrees and -1 otherwise.
func EquivalenceLevel(a, b int32) int {
	if a == b {
		return 0
	}
	ca, sa, _ := SplitGroupLabel(a)
	cb, sb, _ := SplitGroupLabel(b)
	switch {
	case ca != cb:
		return -1
	case sa == sb:
		return 1
	}
	return 2
}

// ClassifyFunctionalGroups finds the functional groups of g. A nil or empty
// graph is the failed sentinel.
func ClassifyFunctionalGroups(g molecule.Graph) FunctionalGroups {
	if g == nil || g.AtomCount() == 0 {
		return FailedFunctionalGroups
	}

	var labels []int32
	for atom := 0; atom < g.AtomCount(); atom++ {
		labels = append(labels, classifyAtom(g, atom)...)
	}

	counts := lo.CountValues(labels)
	keys := lo.Keys(counts)
	slices.Sort(keys)
	out := make(FunctionalGroups, 0, len(keys))
	for _, k := range keys {
		out = append(out, GroupCount{Label: k, Count: int32(counts[k])})
	}
	return out
}

func classifyAtom(g molecule.Graph, atom int) []int32 {
	switch g.AtomicNo(atom) {
	case atomN:
		return classifyNitrogen(g, atom)
	case atomO:
		return classifyOxygen(g, atom)
	case atomC, atomS, atomP:
		return classifyCentre(g, atom)
	case atomF, atomCl, atomBr, atomI:
		if g.ConnAtoms(atom) != 1 {
			return nil
		}
		sub := SubAlkyl
		if g.IsAromaticAtom(g.ConnAtom(atom, 0)) {
			sub = SubAryl
		}
		return []int32{GroupLabel(GroupHalide, sub, int32(g.AtomicNo(atom)))}
	}
	return nil
}

func classifyNitrogen(g molecule.Graph, atom int) []int32 {
	basic := SubNonBasic
	if IsBasicNitrogen(g, atom) {
		basic = SubBasic
	}
	switch {
	case g.IsAromaticAtom(atom):
		return []int32{GroupLabel(GroupAromaticNitrogen, basic, 0)}
	case isNitroNitrogen(g, atom):
		return []int32{GroupLabel(GroupNitro, 0, 0)}
	case tripleBonds(g, atom, atomC) > 0:
		return []int32{GroupLabel(GroupNitrile, 0, 0)}
	case doubleBonds(g, atom, atomC) > 0:
		return []int32{GroupLabel(GroupImine, basic, 0)}
	case IsAmide(g, atom):
		return []int32{GroupLabel(GroupAmide, SubCarboxamide, int32(g.ConnAtoms(atom)))}
	case isSulfonamide(g, atom):
		return []int32{GroupLabel(GroupAmide, SubSulfonamide, int32(g.ConnAtoms(atom)))}
	case IsAmine(g, atom):
		sub := SubAlkyl
		if IsArylAmine(g, atom) {
			sub = SubAryl
		}
		return []int32{GroupLabel(GroupAmine, sub, int32(g.ConnAtoms(atom)))}
	}
	return nil
}

func isSulfonamide(g molecule.Graph, atom int) bool {
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		if g.AtomicNo(nb) == atomS && doubleBonds(g, nb, atomO) >= 2 {
			return true
		}
	}
	return false
}

func classifyOxygen(g molecule.Graph, atom int) []int32 {
	if g.IsAromaticAtom(atom) || g.PiElectrons(atom) != 0 || IsAcidicOxygen(g, atom) || IsMemberOfNitroGroup(g, atom) {
		return nil
	}
	switch g.ConnAtoms(atom) {
	case 1:
		nb := g.ConnAtom(atom, 0)
		if g.AtomicNo(nb) != atomC || g.ImplicitHydrogens(atom) == 0 {
			return nil
		}
		if g.IsAromaticAtom(nb) {
			return []int32{GroupLabel(GroupHydroxyl, SubPhenol, 0)}
		}
		if g.PiElectrons(nb) == 0 {
			return []int32{GroupLabel(GroupHydroxyl, SubAlcohol, 0)}
		}
	case 2:
		a, b := g.ConnAtom(atom, 0), g.ConnAtom(atom, 1)
		if g.AtomicNo(a) != atomC || g.AtomicNo(b) != atomC || isCarbonylCarbon(g, a) || isCarbonylCarbon(g, b) {
			return nil
		}
		sub := SubAlkyl
		if g.IsAromaticAtom(a) || g.IsAromaticAtom(b) {
			sub = SubAryl
		}
		return []int32{GroupLabel(GroupEther, sub, 0)}
	}
	return nil
}

// classifyCentre reports acids on their central C, S or P atom, and
// carbonyl groups on their carbon.
func classifyCentre(g molecule.Graph, atom int) []int32 {
	for i := 0; i < g.ConnAtoms(atom); i++ {
		if !IsAcidicOxygen(g, g.ConnAtom(atom, i)) {
			continue
		}
		switch g.AtomicNo(atom) {
		case atomC:
			return []int32{GroupLabel(GroupAcid, SubCarboxylic, 0)}
		case atomS:
			return []int32{GroupLabel(GroupAcid, SubSulfonic, 0)}
		case atomP:
			return []int32{GroupLabel(GroupAcid, SubPhosphoric, 0)}
		}
	}
	if g.AtomicNo(atom) != atomC || !isCarbonylCarbon(g, atom) {
		return nil
	}

	carbons := 0
	for i := 0; i < g.ConnAtoms(atom); i++ {
		nb := g.ConnAtom(atom, i)
		switch g.AtomicNo(nb) {
		case atomN:
			return nil // amide, counted on the nitrogen
		case atomO:
			if g.ConnBondOrder(atom, i) == molecule.BondSingle && g.ConnAtoms(nb) == 2 {
				return []int32{GroupLabel(GroupCarbonyl, SubEster, 0)}
			}
		case atomC:
			carbons++
		}
	}
	if carbons >= 2 {
		return []int32{GroupLabel(GroupCarbonyl, SubKetone, 0)}
	}
	return []int32{GroupLabel(GroupCarbonyl, SubAldehyde, 0)}
}

func isCarbonylCarbon(g molecule.Graph, atom int) bool {
	return g.AtomicNo(atom) == atomC && doubleBonds(g, atom, atomO) > 0
}

//Personal.AI order the ending
