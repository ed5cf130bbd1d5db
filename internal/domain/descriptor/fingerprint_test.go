package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfp/internal/domain/molecule"
	"github.com/turtacn/molfp/pkg/errors"
)

type failingCanonicalizer struct{}

func (failingCanonicalizer) Canonicalize(molecule.Graph) (string, error) {
	return "", errors.New(errors.ErrCodeCanonicalizationFailed, "boom")
}

func TestComputeSphereFingerprint_SizeValidation(t *testing.T) {
	m := parse(t, "CCO")
	for _, size := range []int{0, 32, 100, 513} {
		_, err := ComputeSphereFingerprint(m, size)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFingerprintSize), "size %d", size)
	}
	fp, err := ComputeSphereFingerprint(m, 64)
	require.NoError(t, err)
	assert.Equal(t, 64, fp.Size())
}

func TestComputeSphereFingerprint_FailedInputs(t *testing.T) {
	fp, err := ComputeSphereFingerprint(molecule.NewMolecule(), 512)
	require.NoError(t, err)
	assert.True(t, fp.IsFailed())

	fp, err = ComputeSphereFingerprint(nil, 512)
	require.NoError(t, err)
	assert.True(t, fp.IsFailed())

	fp, err = computeSphereFingerprint(parse(t, "CC"), 512, failingCanonicalizer{})
	require.NoError(t, err)
	assert.Same(t, FailedBitVector, fp)
}

func TestComputeSphereFingerprint_AtomOrderInvariant(t *testing.T) {
	a, err := ComputeSphereFingerprint(parse(t, "OCC(=O)N"), 512)
	require.NoError(t, err)
	b, err := ComputeSphereFingerprint(parse(t, "NC(=O)CO"), 512)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.NotZero(t, a.Count())
}

func TestComputeSphereFingerprint_SingleAtom(t *testing.T) {
	fp, err := ComputeSphereFingerprint(parse(t, "C"), 512)
	require.NoError(t, err)
	assert.Equal(t, 1, fp.Count())

	fp, err = ComputeSphereFingerprint(parse(t, "CC"), 512)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fp.Count(), 1)
	assert.LessOrEqual(t, fp.Count(), 2, "both roots yield the same two fragments")
}

func TestComputePathFingerprint_SizeValidation(t *testing.T) {
	m := parse(t, "CCO")
	for _, size := range []int{0, -64, 100} {
		_, err := ComputePathFingerprint(m, size)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFingerprintSize), "size %d", size)
	}
	fp, err := ComputePathFingerprint(m, 192)
	require.NoError(t, err)
	assert.Equal(t, 192, fp.Size())
	assert.Len(t, fp.Words(), 3)
}

func TestComputePathFingerprint_FailedInputs(t *testing.T) {
	fp, err := ComputePathFingerprint(molecule.NewMolecule(), 512)
	require.NoError(t, err)
	assert.True(t, fp.IsFailed())

	fp, err = ComputePathFingerprint(nil, 512)
	require.NoError(t, err)
	assert.True(t, fp.IsFailed())
}

func TestComputePathFingerprint_Deterministic(t *testing.T) {
	a, err := ComputePathFingerprint(parse(t, "c1ccccc1CO"), 512)
	require.NoError(t, err)
	b, err := ComputePathFingerprint(parse(t, "OCc1ccccc1"), 512)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.LessOrEqual(t, a.Count(), len(LinearPaths(parse(t, "OCc1ccccc1"), MaxPathBonds)))
}

func TestLinearPaths(t *testing.T) {
	paths := LinearPaths(parse(t, "CCO"), MaxPathBonds)
	assert.Equal(t, map[string]struct{}{
		"C": {}, "O": {}, "C-C": {}, "C-O": {}, "C-C-O": {},
	}, paths)

	paths = LinearPaths(parse(t, "c1ccccc1"), MaxPathBonds)
	assert.Len(t, paths, 6)
	assert.Contains(t, paths, "c:c:c:c:c:c")

	paths = LinearPaths(parse(t, "CCCCCCCCCC"), MaxPathBonds)
	assert.Len(t, paths, MaxPathBonds+1)
	assert.NotContains(t, paths, "C-C-C-C-C-C-C-C")

	paths = LinearPaths(parse(t, "C=CC#N"), MaxPathBonds)
	assert.Contains(t, paths, "C=C-C#N")
}

func TestBondSymbol(t *testing.T) {
	assert.Equal(t, ":", bondSymbol(0))
	assert.Equal(t, "-", bondSymbol(molecule.BondSingle))
	assert.Equal(t, "=", bondSymbol(molecule.BondDouble))
	assert.Equal(t, "#", bondSymbol(molecule.BondTriple))
}

//Personal.AI order the ending
