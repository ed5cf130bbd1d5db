package descriptor

import (
	"cmp"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/pkg/errors"
)

// storedPageSize is the page size used when scanning the descriptor store.
const storedPageSize = 500

// indexOverfetch widens the index candidate pool ahead of exact rescoring.
const indexOverfetch = 4

// BatchItem is the outcome of one request of a batch. Exactly one of Result
// and Error is set.
type BatchItem struct {
	Index     int            `json:"index"`
	Result    *ComputeResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
}

// RankRequest scores candidates against a query under one family.
type RankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Family     string   `json:"family"`
	Threshold  float64  `json:"threshold"`
}

// RankResult is one scored candidate. Candidates that fail to parse carry
// Error and score 0.
type RankResult struct {
	Index     int     `json:"index"`
	Structure string  `json:"structure"`
	Canonical string  `json:"canonical,omitempty"`
	Score     float64 `json:"score"`
	Error     string  `json:"error,omitempty"`
}

// RankStoredRequest scores the stored molecules against a query.
type RankStoredRequest struct {
	Query     string  `json:"query"`
	Family    string  `json:"family"`
	Threshold float64 `json:"threshold"`
	Limit     int     `json:"limit"`
}

// StoredMatch is a stored molecule scoring at or above the threshold.
type StoredMatch struct {
	MoleculeID string  `json:"molecule_id"`
	Canonical  string  `json:"canonical"`
	Score      float64 `json:"score"`
}

// BatchCompute runs Compute for every request with bounded concurrency.
// Per-item failures are reported in the items; only cancellation fails the
// whole batch.
func (s *serviceImpl) BatchCompute(ctx context.Context, reqs []*ComputeRequest) ([]BatchItem, error) {
	if len(reqs) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "batch is empty")
	}
	if len(reqs) > s.cfg.MaxBatchSize {
		return nil, errors.Newf(errors.ErrCodeValidation, "batch of %d exceeds limit %d", len(reqs), s.cfg.MaxBatchSize)
	}
	s.metrics.RecordBatch("compute", len(reqs))

	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i].Index = i
			res, err := s.Compute(gctx, req)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				items[i].Error = err.Error()
				items[i].ErrorCode = string(errors.GetCode(err))
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func validateThreshold(t float64) error {
	if t < 0 || t > 1 {
		return errors.Newf(errors.ErrCodeSimilarityThresholdInvalid, "threshold %.3f is outside [0, 1]", t)
	}
	return nil
}

// Rank scores every candidate against the query and returns those at or
// above the threshold, best first. Ties keep input order.
func (s *serviceImpl) Rank(ctx context.Context, req *RankRequest) ([]RankResult, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeValidation, "request is required")
	}
	if err := validateThreshold(req.Threshold); err != nil {
		return nil, err
	}
	if len(req.Candidates) > s.cfg.MaxBatchSize {
		return nil, errors.Newf(errors.ErrCodeValidation, "%d candidates exceed limit %d", len(req.Candidates), s.cfg.MaxBatchSize)
	}
	query, err := s.compute(ctx, &ComputeRequest{Structure: req.Query, Families: []string{req.Family}})
	if err != nil {
		return nil, err
	}
	qEnc := query.Descriptors[0].Encoded
	s.metrics.RecordBatch("rank", len(req.Candidates))

	results := make([]RankResult, len(req.Candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, cand := range req.Candidates {
		g.Go(func() error {
			r := RankResult{Index: i, Structure: cand}
			res, err := s.compute(gctx, &ComputeRequest{Structure: cand, Families: []string{req.Family}})
			switch {
			case gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				r.Error = err.Error()
			default:
				r.Canonical = res.Canonical
				if r.Score, err = s.similarity(req.Family, qEnc, res.Descriptors[0].Encoded); err != nil {
					return err
				}
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]RankResult, 0, len(results))
	for _, r := range results {
		if r.Error == "" && r.Score >= req.Threshold {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b RankResult) int { return cmp.Compare(b.Score, a.Score) })
	return out, nil
}

// RankStored scans the stored descriptors of a family and returns up to
// Limit matches at or above the threshold, best first.
func (s *serviceImpl) RankStored(ctx context.Context, req *RankStoredRequest) ([]StoredMatch, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeValidation, "request is required")
	}
	if s.repo == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "descriptor store is not configured")
	}
	if err := validateThreshold(req.Threshold); err != nil {
		return nil, err
	}
	query, err := s.compute(ctx, &ComputeRequest{Structure: req.Query, Families: []string{req.Family}})
	if err != nil {
		return nil, err
	}
	qEnc := query.Descriptors[0].Encoded

	if matches, ok := s.rankIndexed(ctx, req, qEnc); ok {
		return matches, nil
	}

	var matches []StoredMatch
	for offset := 0; ; offset += storedPageSize {
		page, err := s.repo.ListDescriptors(ctx, req.Family, storedPageSize, offset)
		s.metrics.RecordStore("list_descriptors", err)
		if err != nil {
			return nil, err
		}
		for _, d := range page {
			score, err := s.similarity(req.Family, qEnc, d.Encoded)
			if err != nil {
				s.logger.Warn("skipping undecodable stored descriptor",
					logging.String("molecule_id", d.MoleculeID.String()), logging.Family(req.Family), logging.Err(err))
				continue
			}
			if score >= req.Threshold {
				matches = append(matches, StoredMatch{MoleculeID: d.MoleculeID.String(), Canonical: d.Canonical, Score: score})
			}
		}
		if len(page) < storedPageSize {
			break
		}
	}

	return rankMatches(matches, req.Limit), nil
}

// rankIndexed answers a limited query for a binary family from the
// fingerprint index, rescoring every candidate with the family similarity.
// It reports false when the scan must run instead: no index, no limit, a
// non-binary family, an index error or an empty candidate set.
func (s *serviceImpl) rankIndexed(ctx context.Context, req *RankStoredRequest, qEnc string) ([]StoredMatch, bool) {
	if s.index == nil || req.Limit <= 0 {
		return nil, false
	}
	f, err := s.registry.Get(req.Family)
	if err != nil || !f.Info().IsBinary {
		return nil, false
	}
	candidates, err := s.index.Search(ctx, req.Family, qEnc, req.Limit*indexOverfetch)
	s.metrics.RecordStore("index_search", err)
	if err != nil {
		s.logger.Warn("fingerprint index search failed, scanning store", logging.Family(req.Family), logging.Err(err))
		return nil, false
	}
	if len(candidates) == 0 {
		return nil, false
	}

	matches := make([]StoredMatch, 0, len(candidates))
	for _, d := range candidates {
		score, err := s.similarity(req.Family, qEnc, d.Encoded)
		if err != nil {
			continue
		}
		if score >= req.Threshold {
			matches = append(matches, StoredMatch{MoleculeID: d.MoleculeID.String(), Canonical: d.Canonical, Score: score})
		}
	}
	return rankMatches(matches, req.Limit), true
}

func rankMatches(matches []StoredMatch, limit int) []StoredMatch {
	slices.SortStableFunc(matches, func(a, b StoredMatch) int { return cmp.Compare(b.Score, a.Score) })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

//Personal.AI order the ending
