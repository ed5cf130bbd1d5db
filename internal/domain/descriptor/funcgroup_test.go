package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/molfp/internal/domain/molecule"
)

func TestGroupLabel(t *testing.T) {
	label := GroupLabel(GroupHalide, SubAryl, 17)
	assert.Equal(t, int32(8<<16|2<<8|17), label)

	class, sub, variant := SplitGroupLabel(label)
	assert.Equal(t, GroupHalide, class)
	assert.Equal(t, SubAryl, sub)
	assert.Equal(t, int32(17), variant)
}

func TestEquivalenceLevel(t *testing.T) {
	a := GroupLabel(GroupAmine, SubAlkyl, 1)
	assert.Equal(t, 0, EquivalenceLevel(a, a))
	assert.Equal(t, 1, EquivalenceLevel(a, GroupLabel(GroupAmine, SubAlkyl, 3)))
	assert.Equal(t, 2, EquivalenceLevel(a, GroupLabel(GroupAmine, SubAryl, 1)))
	assert.Equal(t, -1, EquivalenceLevel(a, GroupLabel(GroupAmide, SubAlkyl, 1)))
}

func TestClassifyFunctionalGroups(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
		want   FunctionalGroups
	}{
		{"acetic acid", "CC(=O)O", FunctionalGroups{{GroupLabel(GroupAcid, SubCarboxylic, 0), 1}}},
		{"methanesulfonic acid", "CS(=O)(=O)O", FunctionalGroups{{GroupLabel(GroupAcid, SubSulfonic, 0), 1}}},
		{"ethyl acetate", "CCOC(C)=O", FunctionalGroups{{GroupLabel(GroupCarbonyl, SubEster, 0), 1}}},
		{"acetone", "CC(C)=O", FunctionalGroups{{GroupLabel(GroupCarbonyl, SubKetone, 0), 1}}},
		{"acetaldehyde", "CC=O", FunctionalGroups{{GroupLabel(GroupCarbonyl, SubAldehyde, 0), 1}}},
		{"ethylene glycol", "OCCO", FunctionalGroups{{GroupLabel(GroupHydroxyl, SubAlcohol, 0), 2}}},
		{"phenol", "Oc1ccccc1", FunctionalGroups{{GroupLabel(GroupHydroxyl, SubPhenol, 0), 1}}},
		{"diethyl ether", "CCOCC", FunctionalGroups{{GroupLabel(GroupEther, SubAlkyl, 0), 1}}},
		{"anisole", "COc1ccccc1", FunctionalGroups{{GroupLabel(GroupEther, SubAryl, 0), 1}}},
		{"nitromethane", "C[N+](=O)[O-]", FunctionalGroups{{GroupLabel(GroupNitro, 0, 0), 1}}},
		{"acetonitrile", "CC#N", FunctionalGroups{{GroupLabel(GroupNitrile, 0, 0), 1}}},
		{"pyridine", "c1ccncc1", FunctionalGroups{{GroupLabel(GroupAromaticNitrogen, SubBasic, 0), 1}}},
		{"pyrrole", "c1cc[nH]c1", FunctionalGroups{{GroupLabel(GroupAromaticNitrogen, SubNonBasic, 0), 1}}},
		{"acetamide", "CC(N)=O", FunctionalGroups{{GroupLabel(GroupAmide, SubCarboxamide, 1), 1}}},
		{"methanesulfonamide", "CS(=O)(=O)N", FunctionalGroups{{GroupLabel(GroupAmide, SubSulfonamide, 1), 1}}},
		{"oxime", "CC=NO", FunctionalGroups{{GroupLabel(GroupImine, SubNonBasic, 0), 1}}},
		{"4-chloroaniline", "Nc1ccc(Cl)cc1", FunctionalGroups{
			{GroupLabel(GroupAmine, SubAryl, 1), 1},
			{GroupLabel(GroupHalide, SubAryl, 17), 1},
		}},
		{"glycine", "NCC(=O)O", FunctionalGroups{
			{GroupLabel(GroupAmine, SubAlkyl, 1), 1},
			{GroupLabel(GroupAcid, SubCarboxylic, 0), 1},
		}},
		{"ethane", "CC", FunctionalGroups{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFunctionalGroups(parse(t, tt.smiles)))
		})
	}
}

func TestClassifyFunctionalGroups_Failed(t *testing.T) {
	assert.True(t, ClassifyFunctionalGroups(molecule.NewMolecule()).IsFailed())
	assert.True(t, ClassifyFunctionalGroups(nil).IsFailed())
}

func TestFunctionalGroups_Helpers(t *testing.T) {
	fg := FunctionalGroups{{1, 2}, {2, 5}}
	assert.Equal(t, int32(7), fg.TotalCount())
	assert.False(t, fg.IsFailed())
	assert.False(t, FunctionalGroups{}.IsFailed())
	assert.True(t, FailedFunctionalGroups.IsFailed())
}

//Personal.AI order the ending
