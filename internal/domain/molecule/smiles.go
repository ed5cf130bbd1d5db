package molecule

import (
	"strings"
	"unicode"

	"github.com/turtacn/molfp/pkg/errors"
)

// aromaticSymbols are the lowercase symbols accepted for aromatic atoms.
var aromaticSymbols = map[string]int{
	"b": 5, "c": 6, "n": 7, "o": 8, "p": 15, "s": 16, "se": 34, "as": 33,
}

type ringOpening struct {
	atom  int
	order int
}

type smilesParser struct {
	src  string
	pos  int
	mol  *Molecule
	prev int
	bond int

	branches []int
	rings    map[int]ringOpening
	bracket  []bool
	implicit []int
}

// ParseSMILES builds a Molecule from a SMILES string. Text after the first
// whitespace is taken as the molecule name. Stereo marks are accepted and
// ignored; explicit hydrogen atoms are folded into implicit counts.
func ParseSMILES(smiles string) (*Molecule, error) {
	smiles = strings.TrimSpace(smiles)
	name := ""
	if i := strings.IndexFunc(smiles, unicode.IsSpace); i >= 0 {
		smiles, name = smiles[:i], strings.TrimSpace(smiles[i:])
	}
	if smiles == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty SMILES")
	}

	p := &smilesParser{
		src:   smiles,
		mol:   NewMolecule(),
		prev:  -1,
		rings: make(map[int]ringOpening),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	p.fillHydrogens()
	p.demoteChainAromaticBonds()

	mol := FoldHydrogens(p.mol)
	mol.Name = name
	return mol, nil
}

func (p *smilesParser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, format, args...).
		WithDetail(p.src)
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch opened before any atom at position %d", p.pos)
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case c == ')':
			if len(p.branches) == 0 {
				return p.fail("unbalanced ')' at position %d", p.pos)
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case c == '-' || c == '/' || c == '\\':
			p.bond = BondSingle
			p.pos++
		case c == '=':
			p.bond = BondDouble
			p.pos++
		case c == '#':
			p.bond = BondTriple
			p.pos++
		case c == ':':
			p.bond = BondAromatic
			p.pos++
		case c == '.':
			p.prev, p.bond = -1, 0
			p.pos++
		case c == '%' || (c >= '0' && c <= '9'):
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.branches) != 0 {
		return p.fail("unclosed branch")
	}
	if len(p.rings) != 0 {
		return p.fail("unclosed ring bond")
	}
	return nil
}

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return p.fail("ring bond before any atom at position %d", p.pos)
	}
	num := int(p.src[p.pos] - '0')
	p.pos++
	if p.src[p.pos-1] == '%' {
		if p.pos+2 > len(p.src) || !isDigit(p.src[p.pos]) || !isDigit(p.src[p.pos+1]) {
			return p.fail("malformed %%nn ring bond at position %d", p.pos)
		}
		num = int(p.src[p.pos]-'0')*10 + int(p.src[p.pos+1]-'0')
		p.pos += 2
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpening{atom: p.prev, order: p.bond}
		p.bond = 0
		return nil
	}
	delete(p.rings, num)
	order := p.bond
	if order == 0 {
		order = open.order
	}
	p.bond = 0
	return p.connect(open.atom, p.prev, order)
}

func (p *smilesParser) organicAtom() error {
	rest := p.src[p.pos:]
	for _, sym := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, sym) {
			no, _ := AtomicNumber(sym)
			p.pos += 2
			return p.addAtom(no, false, false)
		}
	}
	sym := rest[:1]
	switch sym {
	case "B", "C", "N", "O", "P", "S", "F", "I":
		no, _ := AtomicNumber(sym)
		p.pos++
		return p.addAtom(no, false, false)
	case "b", "c", "n", "o", "p", "s":
		p.pos++
		return p.addAtom(aromaticSymbols[sym], true, false)
	}
	return p.fail("unexpected character %q at position %d", rest[0], p.pos)
}

func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return p.fail("unclosed bracket atom at position %d", p.pos)
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	i := 0
	for i < len(body) && isDigit(body[i]) {
		i++
	}

	var (
		atomicNo int
		aromatic bool
	)
	switch {
	case i+2 <= len(body) && (body[i:i+2] == "se" || body[i:i+2] == "as"):
		atomicNo, aromatic = aromaticSymbols[body[i:i+2]], true
		i += 2
	case i < len(body) && aromaticSymbols[body[i:i+1]] != 0:
		atomicNo, aromatic = aromaticSymbols[body[i:i+1]], true
		i++
	default:
		if i >= len(body) || !unicode.IsUpper(rune(body[i])) {
			return p.fail("missing element symbol in [%s]", body)
		}
		if i+2 <= len(body) && unicode.IsLower(rune(body[i+1])) {
			if no, ok := AtomicNumber(body[i : i+2]); ok {
				atomicNo = no
				i += 2
				break
			}
		}
		no, ok := AtomicNumber(body[i : i+1])
		if !ok {
			return p.fail("unknown element in [%s]", body)
		}
		atomicNo = no
		i++
	}

	if i < len(body) && body[i] == '@' {
		for i < len(body) && body[i] == '@' {
			i++
		}
		// chirality classes such as @TH1 or @OH12
		if i+2 <= len(body) && strings.Contains("TH AL SP TB OH", body[i:i+2]) {
			i += 2
			for i < len(body) && isDigit(body[i]) {
				i++
			}
		}
	}

	hCount := 0
	if i < len(body) && body[i] == 'H' {
		i++
		hCount = 1
		if i < len(body) && isDigit(body[i]) {
			hCount = int(body[i] - '0')
			i++
		}
	}

	charge := 0
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sym := body[i]
		i++
		switch {
		case i < len(body) && isDigit(body[i]):
			charge = sign * int(body[i]-'0')
			i++
		default:
			charge = sign
			for i < len(body) && body[i] == sym {
				charge += sign
				i++
			}
		}
	}

	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && isDigit(body[i]) {
			i++
		}
	}
	if i != len(body) {
		return p.fail("unexpected %q in [%s]", body[i:], body)
	}

	if err := p.addAtom(atomicNo, aromatic, true); err != nil {
		return err
	}
	atom := p.prev
	p.mol.atoms[atom].Charge = charge
	p.mol.atoms[atom].ImplicitHydrogens = hCount
	return nil
}

func (p *smilesParser) addAtom(atomicNo int, aromatic, bracket bool) error {
	var atom int
	if aromatic {
		atom = p.mol.AddAromaticAtom(atomicNo)
	} else {
		atom = p.mol.AddAtom(atomicNo)
	}
	p.bracket = append(p.bracket, bracket)
	if p.prev >= 0 {
		if err := p.connect(p.prev, atom, p.bond); err != nil {
			return err
		}
	}
	p.prev, p.bond = atom, 0
	return nil
}

// connect adds a bond; order 0 means "unspecified" and becomes aromatic
// between two aromatic atoms, single otherwise.
func (p *smilesParser) connect(a1, a2, order int) error {
	implicit := false
	if order == 0 {
		order = BondSingle
		if p.mol.atoms[a1].Aromatic && p.mol.atoms[a2].Aromatic {
			order = BondAromatic
			implicit = true
		}
	}
	bond, err := p.mol.AddBond(a1, a2, order)
	if err != nil {
		return p.fail("%v", err)
	}
	if implicit {
		p.implicit = append(p.implicit, bond)
	}
	return nil
}

func (p *smilesParser) fillHydrogens() {
	bondSum := make([]int, len(p.mol.atoms))
	for _, b := range p.mol.bonds {
		bondSum[b.Atom1] += b.Order
		bondSum[b.Atom2] += b.Order
	}
	for atom, a := range p.mol.atoms {
		if p.bracket[atom] {
			continue
		}
		p.mol.atoms[atom].ImplicitHydrogens = implicitHydrogens(a.AtomicNo, a.Charge, bondSum[atom], a.Aromatic)
	}
	p.mol.invalidate()
}

// demoteChainAromaticBonds turns implicit bonds between aromatic atoms into
// single bonds when they are not part of any ring, as in c1ccccc1c1ccccc1.
func (p *smilesParser) demoteChainAromaticBonds() {
	if len(p.implicit) == 0 {
		return
	}
	h := p.mol.ensure()
	for _, bond := range p.implicit {
		if shortestCycle(h, p.mol.bonds, bond) == nil {
			p.mol.bonds[bond].Aromatic = false
		}
	}
	p.mol.invalidate()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

//Personal.AI order the ending
