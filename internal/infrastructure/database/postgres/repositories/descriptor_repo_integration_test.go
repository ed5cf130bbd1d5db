//go:build integration

package repositories_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfp/internal/domain/descriptor"
	"github.com/turtacn/molfp/internal/infrastructure/database/postgres/postgrestest"
	"github.com/turtacn/molfp/internal/infrastructure/database/postgres/repositories"
	apperrors "github.com/turtacn/molfp/pkg/errors"
)

func TestPostgresDescriptorRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewPostgresDescriptorRepo(postgrestest.Connect(t), nil)

	ethanol := &descriptor.StoredMolecule{Canonical: "CCO", Input: "OCC", AtomCount: 3}
	require.NoError(t, repo.UpsertMolecule(ctx, ethanol))
	require.NotEqual(t, uuid.Nil, ethanol.ID)
	assert.False(t, ethanol.CreatedAt.IsZero())

	again := &descriptor.StoredMolecule{Canonical: "CCO", Input: "C(O)C", AtomCount: 3}
	require.NoError(t, repo.UpsertMolecule(ctx, again))
	assert.Equal(t, ethanol.ID, again.ID, "canonical form is unique")

	require.NoError(t, repo.SaveDescriptors(ctx, ethanol.ID, []descriptor.StoredDescriptor{
		{Family: descriptor.CodePathFingerprint, Encoded: "AAAA"},
		{Family: descriptor.CodeFunctionalGroups, Encoded: descriptor.FailedToken, Failed: true},
	}))
	require.NoError(t, repo.SaveDescriptors(ctx, ethanol.ID, []descriptor.StoredDescriptor{
		{Family: descriptor.CodePathFingerprint, Encoded: "BBBB"},
	}))

	got, err := repo.FindDescriptor(ctx, "CCO", descriptor.CodePathFingerprint)
	require.NoError(t, err)
	assert.Equal(t, "BBBB", got.Encoded)
	assert.Equal(t, ethanol.ID, got.MoleculeID)

	page, err := repo.ListDescriptors(ctx, descriptor.CodeFunctionalGroups, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, page, "failed descriptors are not listed")

	require.NoError(t, repo.DeleteMolecule(ctx, ethanol.ID))
	_, err = repo.FindDescriptor(ctx, "CCO", descriptor.CodePathFingerprint)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	assert.True(t, apperrors.IsCode(repo.DeleteMolecule(ctx, ethanol.ID), apperrors.ErrCodeNotFound))
}

//Personal.AI order the ending
