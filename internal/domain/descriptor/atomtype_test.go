package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfp/internal/domain/molecule"
	"github.com/turtacn/molfp/pkg/errors"
)

func TestComputeAtomType_Ethane(t *testing.T) {
	m := parse(t, "CC")
	got, err := ComputeAtomType(m, 0, PropertiesAll)
	require.NoError(t, err)

	neighbour := uint64(molecule.BondSingle)<<connBondOrderShift | 2
	assert.Equal(t, neighbour<<10|2, got)
	assert.Equal(t, uint64(2), got&atomClassMask)
	assert.Zero(t, got&(AtomTypeChargeImbalance|AtomTypeAmpholytic))

	got, err = ComputeAtomType(m, 0, PropConnAtomType)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x802), got, "one neighbour folds one field")
}

func TestComputeAtomType_Benzene(t *testing.T) {
	m := parse(t, "c1ccccc1")
	got, err := ComputeAtomType(m, 0, PropertiesAll)
	require.NoError(t, err)

	neighbour := uint64(2 | 1<<connSubstituentShift | connSmallRingBit | connAromaticBit)
	want := neighbour<<20 | neighbour<<10 | uint64(6-2)<<atomRingSizeShift | atomAromaticBit | 2
	assert.Equal(t, want, got)
	assert.Equal(t, "C:r6:ar {:C+1@*, :C+1@*}", DescribeAtomType(got))
}

func TestComputeAtomType_SmallRingWithoutSize(t *testing.T) {
	m := parse(t, "C1CCCCC1")
	got, err := ComputeAtomType(m, 0, PropAtomSmallRing)
	require.NoError(t, err)
	assert.Equal(t, uint64(atomSmallRingBit|2), got)

	got, err = ComputeAtomType(m, 0, PropAtomSmallRing|PropAtomRingSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(4)<<atomRingSizeShift|2, got, "ring size wins over the small ring bit")
}

func TestComputeAtomType_NeighbourOrderIndependent(t *testing.T) {
	build := func(order []int) *molecule.Molecule {
		m := molecule.NewMolecule()
		centre := m.AddAtom(6)
		for _, no := range order {
			nb := m.AddAtom(no)
			_, err := m.AddBond(centre, nb, molecule.BondSingle)
			require.NoError(t, err)
		}
		return m
	}

	a, err := ComputeAtomType(build([]int{8, 7, 17, 6}), 0, PropertiesAll)
	require.NoError(t, err)
	b, err := ComputeAtomType(build([]int{6, 17, 8, 7}), 0, PropertiesAll)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeAtomType_DropsFifthNeighbour(t *testing.T) {
	m := parse(t, "CC(C)(C)(C)C") // hypervalent, parsing only counts bonds
	got, err := ComputeAtomType(m, 1, PropConnAtomType)
	require.NoError(t, err)
	assert.Equal(t, uint64(2)<<40|uint64(2)<<30|uint64(2)<<20|uint64(2)<<10|2, got)
}

func TestComputeAtomType_FieldCountFollowsNeighbours(t *testing.T) {
	m := parse(t, "CC(C)C")
	centre, err := ComputeAtomType(m, 1, PropConnAtomType)
	require.NoError(t, err)
	assert.Equal(t, uint64(2)<<30|uint64(2)<<20|uint64(2)<<10|2, centre)
	assert.Equal(t, "C {:C, :C, :C}", DescribeAtomType(centre))

	methane := parse(t, "C")
	alone, err := ComputeAtomType(methane, 0, PropConnAtomType)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), alone)
	assert.Equal(t, "C", DescribeAtomType(alone))
}

func TestComputeAtomType_NeighboursSimple(t *testing.T) {
	m := parse(t, "CC(C)(C)C")
	full, err := ComputeAtomType(m, 0, PropConnAtomNeighbours)
	require.NoError(t, err)
	simple, err := ComputeAtomType(m, 0, PropConnAtomNeighbours|PropConnAtomNeighboursSimple)
	require.NoError(t, err)

	assert.Equal(t, uint64(3)<<connSubstituentShift, full>>10)
	assert.Equal(t, uint64(1)<<connSubstituentShift, simple>>10)
}

func TestComputeAtomType_ChargeBits(t *testing.T) {
	quat := parse(t, "C[N+](C)(C)C")
	got, err := ComputeAtomType(quat, 1, PropertiesAll)
	require.NoError(t, err)
	assert.NotZero(t, got&AtomTypeChargeImbalance)

	nitro := parse(t, "C[N+](=O)[O-]")
	got, err = ComputeAtomType(nitro, 1, PropertiesAll)
	require.NoError(t, err)
	assert.Zero(t, got&AtomTypeChargeImbalance)

	glycine := parse(t, "NCC(=O)O")
	got, err = ComputeAtomType(glycine, 0, PropertiesAll)
	require.NoError(t, err)
	assert.NotZero(t, got&AtomTypeAmpholytic)

	got, err = ComputeAtomType(glycine, 0, PropertiesBasic)
	require.NoError(t, err)
	assert.Zero(t, got&AtomTypeAmpholytic, "charge properties not requested")

	ethylamine := parse(t, "NCC")
	got, err = ComputeAtomType(ethylamine, 0, PropertiesAll)
	require.NoError(t, err)
	assert.Zero(t, got&AtomTypeAmpholytic)
}

func TestComputeAtomType_UnsupportedElement(t *testing.T) {
	m := parse(t, "[Fe]C")

	_, err := ComputeAtomType(m, 0, PropertiesAll)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedElement))

	_, err = ComputeAtomType(m, 1, PropertiesAll)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedElement), "neighbour class")

	_, err = ComputeAtomType(m, 1, PropConnBondOrder)
	assert.NoError(t, err, "neighbour class not requested")

	_, err = ComputeAtomType(m, 5, PropertiesAll)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAtomIndexOutOfRange))
}

func TestComputeAtomType_SkipsHydrogenNeighbours(t *testing.T) {
	m := molecule.NewMolecule()
	c := m.AddAtom(6)
	h := m.AddAtom(1)
	_, err := m.AddBond(c, h, molecule.BondSingle)
	require.NoError(t, err)

	got, err := ComputeAtomType(m, c, PropertiesAll)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got)
}

func TestAtomTypeHistogram(t *testing.T) {
	hist, err := AtomTypeHistogram(parse(t, "c1ccccc1"), PropertiesAll)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
	for _, n := range hist {
		assert.Equal(t, 6, n)
	}

	_, err = AtomTypes(parse(t, "C[Fe]"), PropertiesAll)
	assert.Error(t, err)
}

func TestDescribeAtomType(t *testing.T) {
	m := parse(t, "CC(=O)O")
	got, err := ComputeAtomType(m, 1, PropertiesAll)
	require.NoError(t, err)
	assert.Equal(t, "C {=O, -O, -C}", DescribeAtomType(got))

	assert.Equal(t, "C:unbal", DescribeAtomType(2|AtomTypeChargeImbalance))
}

//Personal.AI order the ending
