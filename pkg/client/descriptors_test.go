package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	httpserver "github.com/turtacn/molfp/internal/interfaces/http"
	"github.com/turtacn/molfp/internal/interfaces/http/handlers"
	"github.com/turtacn/molfp/pkg/errors"
)

// newServedClient runs the real route tree with an in-memory service.
func newServedClient(t *testing.T) *Client {
	t.Helper()
	svc := appdesc.NewService(nil, appdesc.Config{BatchConcurrency: 2, MaxBatchSize: 10}, nil)
	srv := httptest.NewServer(httpserver.NewRouter(httpserver.RouterConfig{
		DescriptorHandler: handlers.NewDescriptorHandler(svc, 0),
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithRetryMax(0))
	require.NoError(t, err)
	return c
}

func TestDescriptors_Compute(t *testing.T) {
	c := newServedClient(t)
	res, err := c.Descriptors().Compute(context.Background(), &ComputeRequest{Structure: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.AtomCount)
	assert.NotEmpty(t, res.Canonical)

	for _, fam := range []string{FamilySphereFp, FamilyPathFp, FamilyFunctionalGroups} {
		d, ok := res.Descriptor(fam)
		require.True(t, ok, fam)
		assert.False(t, d.Failed)
		_, err := d.Bytes()
		assert.NoError(t, err, fam)
	}
	_, ok := res.Descriptor("Nope")
	assert.False(t, ok)
}

func TestDescriptors_ComputeErrors(t *testing.T) {
	c := newServedClient(t)
	ctx := context.Background()

	_, err := c.Descriptors().Compute(ctx, &ComputeRequest{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidMolecule))

	_, err = c.Descriptors().Compute(ctx, &ComputeRequest{Structure: "CCO", Families: []string{"Nope"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, errors.ErrCodeUnknownDescriptorFamily, apiErr.ErrorCode())
}

func TestDescriptors_Batch(t *testing.T) {
	c := newServedClient(t)
	res, err := c.Descriptors().Batch(context.Background(), &BatchRequest{
		Items:    []ComputeRequest{{Structure: "CCO"}, {Structure: "C1CC"}, {Structure: "c1ccccc1"}},
		Families: []string{FamilyPathFp},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Items, 3)
	assert.NotEmpty(t, res.Items[1].Error)
	assert.NotEmpty(t, res.Items[1].ErrorCode)
	require.NotNil(t, res.Items[2].Result)
	assert.Len(t, res.Items[2].Result.Descriptors, 1)

	_, err = c.Descriptors().Batch(context.Background(), &BatchRequest{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestDescriptors_FamiliesAndAtomTypes(t *testing.T) {
	c := newServedClient(t)
	ctx := context.Background()

	fams, err := c.Descriptors().Families(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(fams))
	for _, f := range fams {
		names = append(names, f.ShortName)
	}
	assert.ElementsMatch(t, []string{FamilySphereFp, FamilyPathFp, FamilyFunctionalGroups}, names)

	atoms, err := c.Descriptors().AtomTypes(ctx, "CCO", nil)
	require.NoError(t, err)
	require.Len(t, atoms, 3)
	assert.Equal(t, "O", atoms[2].Symbol)
	assert.NotEmpty(t, atoms[2].Description)
}

func TestSimilarity_CompareAndRank(t *testing.T) {
	c := newServedClient(t)
	ctx := context.Background()

	cmp, err := c.Similarity().Compare(ctx, &CompareRequest{Query: "CCO", Target: "OCC"})
	require.NoError(t, err)
	require.NotEmpty(t, cmp.Scores)
	for _, s := range cmp.Scores {
		assert.InDelta(t, 1.0, s.Score, 1e-9, s.Family)
	}
	assert.Equal(t, cmp.QueryCanonical, cmp.TargetCanonical)

	ranked, err := c.Similarity().Rank(ctx, &RankRequest{
		Query:      "CCO",
		Candidates: []string{"c1ccccc1", "OCC", "C1CC"},
		Family:     FamilyPathFp,
	})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Index)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)

	_, err = c.Similarity().Rank(ctx, &RankRequest{Query: "CCO", Candidates: []string{"C"}, Threshold: 2})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSimilarityThresholdInvalid))
	_, err = c.Similarity().Compare(ctx, &CompareRequest{Query: "CCO"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestSimilarity_SearchWithoutStore(t *testing.T) {
	c := newServedClient(t)
	_, err := c.Similarity().Search(context.Background(), &SearchRequest{Query: "CCO", Family: FamilyPathFp})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.StatusCode)
	assert.Equal(t, errors.ErrCodeServiceUnavailable, apiErr.ErrorCode())
}

func TestDescriptorValue_Bytes(t *testing.T) {
	_, err := DescriptorValue{Family: FamilyPathFp, Failed: true, Encoded: "Failed", Error: "boom"}.Bytes()
	assert.True(t, errors.IsCode(err, errors.ErrCodeDescriptorCalculationFailed))
	_, err = DescriptorValue{Encoded: "!!"}.Bytes()
	assert.True(t, errors.IsCode(err, errors.ErrCodeDescriptorDecodeFailed))
	b, err := DescriptorValue{Encoded: "AQI"}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
}

//Personal.AI order the ending
