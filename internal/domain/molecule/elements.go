package molecule

var elementSymbols = []string{
	"?",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
}

var atomicNumbers = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for no, sym := range elementSymbols[1:] {
		m[sym] = no + 1
	}
	return m
}()

// Symbol returns the element symbol for atomicNo, "?" when unknown.
func Symbol(atomicNo int) string {
	if atomicNo <= 0 || atomicNo >= len(elementSymbols) {
		return "?"
	}
	return elementSymbols[atomicNo]
}

// AtomicNumber looks up an element symbol; ok is false for unknown symbols.
func AtomicNumber(symbol string) (int, bool) {
	no, ok := atomicNumbers[symbol]
	return no, ok
}

// defaultValences lists the valence states used to fill implicit hydrogens.
var defaultValences = map[int][]int{
	5:  {3},
	6:  {4},
	7:  {3, 5},
	8:  {2},
	9:  {1},
	15: {3, 5},
	16: {2, 4, 6},
	17: {1},
	35: {1},
	53: {1},
}

// implicitHydrogens fills the lowest valence state that accommodates
// bondSum. Aromatic atoms give one valence to the delocalized system. The
// charge shifts the valence of N, O, S, P like isoelectronic neighbours.
func implicitHydrogens(atomicNo, charge, bondSum int, aromatic bool) int {
	valences, ok := defaultValences[atomicNo]
	if !ok {
		return 0
	}
	used := bondSum
	if aromatic {
		used++
	}
	shift := -abs(charge)
	switch atomicNo {
	case 7, 8, 15, 16:
		shift = charge
	}
	for _, v := range valences {
		if v+shift >= used {
			return v + shift - used
		}
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
