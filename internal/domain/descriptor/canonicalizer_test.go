package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfp/internal/domain/molecule"
	"github.com/turtacn/molfp/pkg/errors"
)

func canonical(t *testing.T, smiles string) string {
	t.Helper()
	out, err := NewRankCanonicalizer().Canonicalize(parse(t, smiles))
	require.NoError(t, err)
	return out
}

func TestRankCanonicalizer_Ethanol(t *testing.T) {
	assert.Equal(t, "[CH3][CH2][OH]", canonical(t, "OCC"))
	assert.Equal(t, "[CH3][CH2][OH]", canonical(t, "CCO"))
}

func TestRankCanonicalizer_AtomOrderInvariance(t *testing.T) {
	pairs := [][2]string{
		{"c1ccncc1", "n1ccccc1"},
		{"CC(=O)O", "OC(C)=O"},
		{"C1CCC2CCCCC2C1", "C1CCC2CCCCC2C1"},
		{"c1ccc2ccccc2c1", "c1cc2ccccc2cc1"},
		{"[Na+].[Cl-]", "[Cl-].[Na+]"},
		{"CC(C)(C)N", "NC(C)(C)C"},
		{"C1CC1C2CC2", "C2CC2C1CC1"},
	}
	for _, p := range pairs {
		t.Run(p[0], func(t *testing.T) {
			assert.Equal(t, canonical(t, p[0]), canonical(t, p[1]))
		})
	}
}

func TestRankCanonicalizer_DistinguishesIsomers(t *testing.T) {
	assert.NotEqual(t, canonical(t, "CCCO"), canonical(t, "CC(C)O"))
	assert.NotEqual(t, canonical(t, "C=CC"), canonical(t, "CCC"))
	assert.NotEqual(t, canonical(t, "Cc1ccccc1O"), canonical(t, "Cc1ccc(O)cc1"))
}

func TestRankCanonicalizer_RingClosures(t *testing.T) {
	out := canonical(t, "C1CCCCC1")
	assert.Equal(t, "[CH2]1[CH2][CH2][CH2][CH2][CH2]1", out)

	out = canonical(t, "c1ccccc1")
	assert.Equal(t, "[cH]:1:[cH]:[cH]:[cH]:[cH]:[cH]1", out)
}

func TestRankCanonicalizer_RanksAreUnique(t *testing.T) {
	ranks, err := NewRankCanonicalizer().Ranks(parse(t, "C1CCCCC1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5}, ranks)
}

func TestRankCanonicalizer_Empty(t *testing.T) {
	out, err := NewRankCanonicalizer().Canonicalize(molecule.NewMolecule())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRankCanonicalizer_RejectsOddCharge(t *testing.T) {
	m := molecule.NewMolecule()
	m.SetCharge(m.AddAtom(6), 12)
	_, err := NewRankCanonicalizer().Canonicalize(m)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCanonicalizationFailed))
}

//Personal.AI order the ending
