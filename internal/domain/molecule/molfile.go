package molecule

import (
	"strconv"
	"strings"

	"github.com/turtacn/molfp/pkg/errors"
)

// ParseMolfile reads a V2000 connection table. Only the data descriptors
// need: element, charge (atom block ccc field or M  CHG), bond order and the
// aromatic bond type 4. Coordinates are ignored. Explicit hydrogens are folded
// into implicit counts and the remaining atoms are hydrogenated.
func ParseMolfile(text string) (*Molecule, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 4 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidMolfile, "too few lines")
	}

	countsAt := -1
	for i, line := range lines {
		if len(line) >= 39 && strings.Contains(line[30:39], "V2000") {
			countsAt = i
			break
		}
	}
	if countsAt < 0 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidMolfile, "V2000 counts line not found")
	}

	counts := lines[countsAt]
	numAtoms := parseField(counts, 0, 3)
	numBonds := parseField(counts, 3, 6)
	if numAtoms < 0 || numBonds < 0 {
		return nil, errors.Newf(errors.ErrCodeMoleculeInvalidMolfile,
			"negative counts: %d atoms, %d bonds", numAtoms, numBonds)
	}
	body := lines[countsAt+1:]
	if len(body) < numAtoms+numBonds {
		return nil, errors.Newf(errors.ErrCodeMoleculeInvalidMolfile,
			"expected %d atom and %d bond lines, found %d lines", numAtoms, numBonds, len(body))
	}

	mol := NewMolecule()
	if countsAt > 0 {
		mol.Name = strings.TrimSpace(lines[0])
	}

	for i := 0; i < numAtoms; i++ {
		l := body[i]
		if len(l) < 34 {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalidMolfile, "atom line %d too short", i+1)
		}
		sym := strings.TrimSpace(l[31:34])
		no, ok := AtomicNumber(sym)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalidMolfile, "unknown element %q on atom line %d", sym, i+1)
		}
		atom := mol.AddAtom(no)
		if ccc := parseField(l, 36, 39); ccc != 0 && ccc != 4 {
			// 1..7 map to +3..-3; 4 is a doublet radical.
			mol.atoms[atom].Charge = 4 - ccc
		}
	}

	for i := 0; i < numBonds; i++ {
		l := body[numAtoms+i]
		if len(l) < 9 {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalidMolfile, "bond line %d too short", i+1)
		}
		from := parseField(l, 0, 3) - 1
		to := parseField(l, 3, 6) - 1
		order := parseField(l, 6, 9)
		if _, err := mol.AddBond(from, to, order); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidMolfile, "bad bond line "+strconv.Itoa(i+1))
		}
	}

	for _, l := range body[numAtoms+numBonds:] {
		if strings.HasPrefix(l, "M  END") {
			break
		}
		if strings.HasPrefix(l, "M  CHG") {
			if err := applyChargeLine(mol, l); err != nil {
				return nil, err
			}
		}
	}

	hydrogenate(mol)
	return FoldHydrogens(mol), nil
}

// applyChargeLine handles "M  CHGnn8 aaa vvv ...". An M  CHG line resets the
// atom block charges of the atoms it lists.
func applyChargeLine(mol *Molecule, l string) error {
	fields := strings.Fields(l[6:])
	if len(fields) == 0 {
		return errors.New(errors.ErrCodeMoleculeInvalidMolfile, "empty M  CHG line")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 || n > len(fields) || len(fields) < 1+2*n {
		return errors.Newf(errors.ErrCodeMoleculeInvalidMolfile, "malformed M  CHG line %q", l)
	}
	for k := 0; k < n; k++ {
		atom, err1 := strconv.Atoi(fields[1+2*k])
		charge, err2 := strconv.Atoi(fields[2+2*k])
		if err1 != nil || err2 != nil || atom < 1 || atom > mol.AtomCount() {
			return errors.Newf(errors.ErrCodeMoleculeInvalidMolfile, "malformed M  CHG entry in %q", l)
		}
		mol.atoms[atom-1].Charge = charge
	}
	mol.invalidate()
	return nil
}

// hydrogenate fills implicit hydrogens of every atom from its valence. Explicit
// H atoms still count as bonds here and are folded afterwards.
func hydrogenate(mol *Molecule) {
	h := mol.ensure()
	for atom, a := range mol.atoms {
		sum := 0
		aromatic := false
		for i := range h.connAtom[atom] {
			b := mol.bonds[h.connBond[atom][i]]
			sum += b.Order
			aromatic = aromatic || b.Aromatic
		}
		mol.atoms[atom].ImplicitHydrogens = implicitHydrogens(a.AtomicNo, a.Charge, sum, aromatic)
	}
	mol.invalidate()
}

func parseField(line string, from, to int) int {
	if from >= len(line) {
		return 0
	}
	if to > len(line) {
		to = len(line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[from:to]))
	if err != nil {
		return 0
	}
	return n
}

//Personal.AI order the ending
