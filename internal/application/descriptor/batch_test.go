package descriptor

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/turtacn/molfp/internal/domain/descriptor"
	kafkainfra "github.com/turtacn/molfp/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfp/pkg/errors"
)

func TestBatchCompute(t *testing.T) {
	svc := newTestService(t)
	items, err := svc.BatchCompute(context.Background(), []*ComputeRequest{
		{Structure: "CCO"},
		{Structure: "C1CC"},
		{Structure: "c1ccccc1"},
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, 0, items[0].Index)
	require.NotNil(t, items[0].Result)
	assert.Nil(t, items[1].Result)
	assert.Equal(t, string(errors.ErrCodeMoleculeInvalidSMILES), items[1].ErrorCode)
	assert.Equal(t, 2, items[2].Index)
	assert.NotNil(t, items[2].Result)
}

func TestBatchCompute_Limits(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.BatchCompute(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	reqs := make([]*ComputeRequest, 11)
	for i := range reqs {
		reqs[i] = &ComputeRequest{Structure: "C"}
	}
	_, err = svc.BatchCompute(context.Background(), reqs)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestBatchCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestService(t).BatchCompute(ctx, []*ComputeRequest{{Structure: "CCO"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank(t *testing.T) {
	svc := newTestService(t)
	results, err := svc.Rank(context.Background(), &RankRequest{
		Query:      "Oc1ccccc1",
		Candidates: []string{"CCCC", "c1ccccc1O", "C1CC", "Nc1ccccc1"},
		Family:     domain.CodePathFingerprint,
		Threshold:  0,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].Index)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, 3, results[1].Index)
	assert.Greater(t, results[1].Score, results[2].Score)

	strict, err := svc.Rank(context.Background(), &RankRequest{
		Query: "Oc1ccccc1", Candidates: []string{"CCCC", "c1ccccc1O"}, Family: domain.CodePathFingerprint, Threshold: 0.99,
	})
	require.NoError(t, err)
	require.Len(t, strict, 1)
	assert.Equal(t, 1, strict[0].Index)
}

func TestScoringDoesNotAnnounceComputedDescriptors(t *testing.T) {
	pub := &mockPublisher{}
	svc := newTestService(t, WithPublisher(pub))
	ctx := context.Background()

	_, err := svc.Compare(ctx, &CompareRequest{Query: "CCO", Target: "CCN"})
	require.NoError(t, err)
	_, err = svc.Rank(ctx, &RankRequest{Query: "CCO", Candidates: []string{"CCN", "CCC"}, Family: domain.CodePathFingerprint})
	require.NoError(t, err)
	assert.Empty(t, pub.byTopic(kafkainfra.TopicDescriptorComputed))

	_, err = svc.BatchCompute(ctx, []*ComputeRequest{{Structure: "CCO"}, {Structure: "CCN"}})
	require.NoError(t, err)
	assert.Len(t, pub.byTopic(kafkainfra.TopicDescriptorComputed), 2)
}

func TestRank_Errors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Rank(context.Background(), &RankRequest{Query: "CCO", Family: domain.CodePathFingerprint, Threshold: 1.5})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSimilarityThresholdInvalid))

	_, err = svc.Rank(context.Background(), &RankRequest{Query: "CCO", Family: "Nope"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownDescriptorFamily))
}

func TestRankStored(t *testing.T) {
	svc := newTestService(t)
	encode := func(s string) string {
		res, err := svc.Compute(context.Background(), &ComputeRequest{Structure: s, Families: []string{domain.CodePathFingerprint}})
		require.NoError(t, err)
		return res.Descriptors[0].Encoded
	}
	exact, other := uuid.New(), uuid.New()
	repo := &mockRepository{}
	repo.On("ListDescriptors", mock.Anything, domain.CodePathFingerprint, storedPageSize, 0).Return([]domain.StoredDescriptor{
		{MoleculeID: other, Canonical: "CCCCCC", Encoded: encode("CCCCCC")},
		{MoleculeID: uuid.New(), Canonical: "broken", Encoded: "%%%"},
		{MoleculeID: exact, Canonical: "CCO", Encoded: encode("OCC")},
	}, nil)

	stored := newTestService(t, WithRepository(repo))
	matches, err := stored.RankStored(context.Background(), &RankStoredRequest{
		Query: "CCO", Family: domain.CodePathFingerprint, Threshold: 0.1, Limit: 5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, exact.String(), matches[0].MoleculeID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	repo.AssertExpectations(t)
}

func TestRankStored_UsesIndexForLimitedBinaryQueries(t *testing.T) {
	svc := newTestService(t)
	encode := func(s string) string {
		res, err := svc.Compute(context.Background(), &ComputeRequest{Structure: s, Families: []string{domain.CodePathFingerprint}})
		require.NoError(t, err)
		return res.Descriptors[0].Encoded
	}
	exact, near := uuid.New(), uuid.New()
	idx := &mockIndex{}
	idx.On("Search", mock.Anything, domain.CodePathFingerprint, encode("CCO"), 2*indexOverfetch).Return([]domain.StoredDescriptor{
		{MoleculeID: near, Canonical: "CCCO", Encoded: encode("CCCO")},
		{MoleculeID: exact, Canonical: "CCO", Encoded: encode("CCO")},
		{MoleculeID: uuid.New(), Canonical: "broken", Encoded: "%%%"},
		{MoleculeID: uuid.New(), Canonical: "c1ccccc1", Encoded: encode("c1ccccc1")},
	}, nil)

	repo := &mockRepository{}
	stored := newTestService(t, WithRepository(repo), WithIndex(idx))
	matches, err := stored.RankStored(context.Background(), &RankStoredRequest{
		Query: "CCO", Family: domain.CodePathFingerprint, Threshold: 0.1, Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, exact.String(), matches[0].MoleculeID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, near.String(), matches[1].MoleculeID)
	idx.AssertExpectations(t)
	repo.AssertNotCalled(t, "ListDescriptors", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRankStored_ScansWhenIndexCannotAnswer(t *testing.T) {
	exact := uuid.New()
	svc := newTestService(t)
	res, err := svc.Compute(context.Background(), &ComputeRequest{Structure: "CCO"})
	require.NoError(t, err)
	encoded := lo.SliceToMap(res.Descriptors, func(d DescriptorValue) (string, string) { return d.Family, d.Encoded })

	cases := []struct {
		name   string
		family string
		limit  int
		search func(idx *mockIndex)
	}{
		{"index error", domain.CodeSphereFingerprint, 3, func(idx *mockIndex) {
			idx.On("Search", mock.Anything, domain.CodeSphereFingerprint, mock.Anything, 3*indexOverfetch).
				Return(nil, errors.New(errors.ErrCodeDatabaseError, "timeout"))
		}},
		{"empty index", domain.CodeSphereFingerprint, 3, func(idx *mockIndex) {
			idx.On("Search", mock.Anything, domain.CodeSphereFingerprint, mock.Anything, 3*indexOverfetch).
				Return([]domain.StoredDescriptor{}, nil)
		}},
		{"no limit", domain.CodeSphereFingerprint, 0, func(*mockIndex) {}},
		{"count family", domain.CodeFunctionalGroups, 3, func(*mockIndex) {}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idx := &mockIndex{}
			tc.search(idx)
			repo := &mockRepository{}
			repo.On("ListDescriptors", mock.Anything, tc.family, storedPageSize, 0).Return([]domain.StoredDescriptor{
				{MoleculeID: exact, Canonical: "CCO", Encoded: encoded[tc.family]},
			}, nil)

			stored := newTestService(t, WithRepository(repo), WithIndex(idx))
			matches, err := stored.RankStored(context.Background(), &RankStoredRequest{
				Query: "CCO", Family: tc.family, Limit: tc.limit,
			})
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, exact.String(), matches[0].MoleculeID)
			repo.AssertExpectations(t)
			idx.AssertExpectations(t)
		})
	}
}

func TestRankStored_NoStore(t *testing.T) {
	_, err := newTestService(t).RankStored(context.Background(), &RankStoredRequest{Query: "CCO", Family: domain.CodePathFingerprint})
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

//Personal.AI order the ending
