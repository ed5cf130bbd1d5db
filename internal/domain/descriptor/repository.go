package descriptor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StoredMolecule is a structure persisted once per canonical form.
type StoredMolecule struct {
	ID        uuid.UUID
	Canonical string
	Input     string
	AtomCount int
	CreatedAt time.Time
}

// StoredDescriptor is one encoded descriptor of a stored molecule.
type StoredDescriptor struct {
	MoleculeID uuid.UUID
	Canonical  string
	Family     string
	Encoded    string
	Failed     bool
	ComputedAt time.Time
}

// Repository persists molecules and their encoded descriptors.
type Repository interface {
	// UpsertMolecule inserts m or, when its canonical form already exists,
	// refreshes the input. ID and CreatedAt are filled from the stored row.
	UpsertMolecule(ctx context.Context, m *StoredMolecule) error

	// SaveDescriptors writes all records in one transaction, replacing any
	// earlier value of the same family.
	SaveDescriptors(ctx context.Context, moleculeID uuid.UUID, ds []StoredDescriptor) error

	// FindDescriptor returns errors.ErrCodeNotFound when absent.
	FindDescriptor(ctx context.Context, canonical, family string) (*StoredDescriptor, error)

	// ListDescriptors pages through non-failed descriptors of a family in
	// insertion order.
	ListDescriptors(ctx context.Context, family string, limit, offset int) ([]StoredDescriptor, error)

	// DeleteMolecule removes a molecule and its descriptors.
	DeleteMolecule(ctx context.Context, id uuid.UUID) error
}

// FingerprintIndex serves nearest-neighbour candidates for binary fingerprint
// families. Search returns candidates ordered by the index metric; callers
// score them with the family handler.
type FingerprintIndex interface {
	Upsert(ctx context.Context, family string, ds []StoredDescriptor) error
	Search(ctx context.Context, family, encoded string, topK int) ([]StoredDescriptor, error)
}

//Personal.AI order the ending
