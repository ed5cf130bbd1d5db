package descriptor

import (
	"cmp"
	"math"
	"slices"
)

// Tanimoto is |A∩B| / |A∪B| over set bits. Null or failed operands, and two
// vectors without set bits, score 0.
func Tanimoto(a, b *BitVector) float64 {
	if a == nil || b == nil || a.IsFailed() || b.IsFailed() {
		return 0
	}
	union := a.bits.UnionCardinality(b.bits)
	if union == 0 {
		return 0
	}
	return float64(a.bits.IntersectionCardinality(b.bits)) / float64(union)
}

// NormalizeValue applies 1 - (1 - v^f)^(1/f) to flatten the low-end bias of
// hashed fingerprint scores. Input and output are clamped to [0, 1]; f <= 0
// leaves v unchanged apart from clamping.
func NormalizeValue(v, f float64) float64 {
	v = clamp01(v)
	if f <= 0 {
		return v
	}
	return clamp01(1 - math.Pow(1-math.Pow(v, f), 1/f))
}

type groupPair struct {
	i, j  int
	level int
}

// FunctionalGroupSimilarity matches groups of a and b greedily, closest
// equivalence level first, and scores the weighted overlap like Tanimoto
// before applying NormalizeValue with f. A nil operand yields NaN, a failed
// operand 0. Two empty lists are identical (1); one empty list scores 0.
func FunctionalGroupSimilarity(a, b FunctionalGroups, f float64) float64 {
	if a == nil || b == nil {
		return math.NaN()
	}
	if a.IsFailed() || b.IsFailed() {
		return 0
	}
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var pairs []groupPair
	for i := range a {
		for j := range b {
			if level := EquivalenceLevel(a[i].Label, b[j].Label); level >= 0 {
				pairs = append(pairs, groupPair{i: i, j: j, level: level})
			}
		}
	}
	slices.SortStableFunc(pairs, func(x, y groupPair) int {
		return cmp.Or(
			cmp.Compare(x.level, y.level),
			cmp.Compare(x.i+x.j, y.i+y.j),
			cmp.Compare(x.i, y.i),
		)
	})

	usedA := make([]bool, len(a))
	usedB := make([]bool, len(b))
	var matching float64
	for _, p := range pairs {
		if usedA[p.i] || usedB[p.j] {
			continue
		}
		usedA[p.i], usedB[p.j] = true, true
		matching += (1 - 0.1*float64(p.level)) * float64(min(a[p.i].Count, b[p.j].Count))
	}

	total := float64(a.TotalCount() + b.TotalCount())
	if denom := total - matching; denom > 0 {
		return NormalizeValue(matching/denom, f)
	}
	return 0
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

//Personal.AI order the ending
