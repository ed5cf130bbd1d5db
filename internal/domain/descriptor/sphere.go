package descriptor

import (
	"math/bits"

	"github.com/spaolacci/murmur3"

	"github.com/turtacn/molfp/internal/domain/molecule"
	"github.com/turtacn/molfp/pkg/errors"
)

const (
	// SphereCount is the number of spheres, sphere 0 being the root alone.
	SphereCount = 5
	sphereSeed  = 13
)

// ComputeSphereFingerprint hashes the canonical form of every fragment grown
// sphere by sphere around each atom. size must be a power of two, at least 64.
// A nil or empty graph, or a fragment that cannot be canonicalized, yields
// FailedBitVector.
func ComputeSphereFingerprint(g molecule.Graph, size int) (*BitVector, error) {
	return computeSphereFingerprint(g, size, NewRankCanonicalizer())
}

func computeSphereFingerprint(g molecule.Graph, size int, canon Canonicalizer) (*BitVector, error) {
	if err := validateSphereSize(size); err != nil {
		return nil, err
	}
	if g == nil || g.AtomCount() == 0 {
		return FailedBitVector, nil
	}

	n := g.AtomCount()
	mask := uint32(size - 1)
	fp := NewBitVector(size)
	for root := 0; root < n; root++ {
		include := make([]bool, n)
		include[root] = true
		frontier := []int{root}
		covered := 1

		for sphere := 0; sphere < SphereCount; sphere++ {
			if sphere > 0 {
				var next []int
				for _, atom := range frontier {
					for i := 0; i < g.ConnAtoms(atom); i++ {
						nb := g.ConnAtom(atom, i)
						if !include[nb] {
							include[nb] = true
							next = append(next, nb)
						}
					}
				}
				if len(next) == 0 {
					break
				}
				frontier = next
				covered += len(next)
			}

			key, err := canon.Canonicalize(molecule.Induce(g, include))
			if err != nil {
				return FailedBitVector, nil
			}
			fp.Set(int(murmur3.Sum32WithSeed([]byte(key), sphereSeed) & mask))

			if covered == n {
				break
			}
		}
	}
	return fp, nil
}

func validateSphereSize(size int) error {
	if size < 64 || bits.OnesCount(uint(size)) != 1 {
		return errors.Newf(errors.ErrCodeInvalidFingerprintSize, "sphere fingerprint size %d is not a power of two >= 64", size)
	}
	return nil
}

//Personal.AI order the ending
