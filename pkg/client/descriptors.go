package client

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/turtacn/molfp/pkg/errors"
)

// Family short names understood by the server.
const (
	FamilySphereFp         = "SphereFp"
	FamilyPathFp           = "PathFp"
	FamilyFunctionalGroups = "FunctionalGroups"
)

// ─────────────────────────────────────────────────────────────────────────────
// Wire types
// ─────────────────────────────────────────────────────────────────────────────

// ComputeRequest asks for descriptors of one structure. Format is "smiles",
// "molfile" or empty for detection.
type ComputeRequest struct {
	Structure string   `json:"structure"`
	Format    string   `json:"format,omitempty"`
	Families  []string `json:"families,omitempty"`
	Persist   bool     `json:"persist,omitempty"`
}

type DescriptorValue struct {
	Family  string `json:"family"`
	Encoded string `json:"encoded"`
	Failed  bool   `json:"failed"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Bytes decodes the unpadded base64 payload.
func (v DescriptorValue) Bytes() ([]byte, error) {
	if v.Failed {
		return nil, errors.Newf(errors.ErrCodeDescriptorCalculationFailed, "client: %s failed: %s", v.Family, v.Error)
	}
	b, err := base64.RawStdEncoding.DecodeString(v.Encoded)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDescriptorDecodeFailed, "client: descriptor is not base64")
	}
	return b, nil
}

type ComputeResult struct {
	Canonical   string            `json:"canonical"`
	AtomCount   int               `json:"atom_count"`
	MoleculeID  string            `json:"molecule_id,omitempty"`
	Descriptors []DescriptorValue `json:"descriptors"`
}

// Descriptor returns the value computed for family.
func (r *ComputeResult) Descriptor(family string) (DescriptorValue, bool) {
	for _, d := range r.Descriptors {
		if strings.EqualFold(d.Family, family) {
			return d, true
		}
	}
	return DescriptorValue{}, false
}

type BatchRequest struct {
	Items    []ComputeRequest `json:"items"`
	Families []string         `json:"families,omitempty"`
	Persist  bool             `json:"persist,omitempty"`
}

type BatchItem struct {
	Index     int            `json:"index"`
	Result    *ComputeResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
}

type BatchResponse struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

type FamilyInfo struct {
	Name             string `json:"name"`
	ShortName        string `json:"short_name"`
	Version          string `json:"version"`
	Applicability    string `json:"applicability"`
	IsBinary         bool   `json:"is_binary"`
	IsVector         bool   `json:"is_vector"`
	NeedsCoordinates bool   `json:"needs_coordinates"`
}

type AtomType struct {
	Index       int    `json:"index"`
	Symbol      string `json:"symbol"`
	Type        uint64 `json:"type"`
	Description string `json:"description"`
}

type CompareRequest struct {
	Query    string   `json:"query"`
	Target   string   `json:"target"`
	Families []string `json:"families,omitempty"`
}

type FamilyScore struct {
	Family string  `json:"family"`
	Score  float64 `json:"score"`
}

type CompareResult struct {
	QueryCanonical  string        `json:"query_canonical"`
	TargetCanonical string        `json:"target_canonical"`
	Scores          []FamilyScore `json:"scores"`
}

type RankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Family     string   `json:"family"`
	Threshold  float64  `json:"threshold"`
}

type RankResult struct {
	Index     int     `json:"index"`
	Structure string  `json:"structure"`
	Canonical string  `json:"canonical,omitempty"`
	Score     float64 `json:"score"`
	Error     string  `json:"error,omitempty"`
}

type SearchRequest struct {
	Query     string  `json:"query"`
	Family    string  `json:"family"`
	Threshold float64 `json:"threshold"`
	Limit     int     `json:"limit"`
}

type StoredMatch struct {
	MoleculeID string  `json:"molecule_id"`
	Canonical  string  `json:"canonical"`
	Score      float64 `json:"score"`
}

// ─────────────────────────────────────────────────────────────────────────────
// DescriptorsClient
// ─────────────────────────────────────────────────────────────────────────────

// DescriptorsClient covers /descriptors.
type DescriptorsClient struct {
	client *Client
}

func (d *DescriptorsClient) Compute(ctx context.Context, req *ComputeRequest) (*ComputeResult, error) {
	if req == nil || strings.TrimSpace(req.Structure) == "" {
		return nil, errors.New(errors.ErrCodeInvalidMolecule, "structure is required")
	}
	var out ComputeResult
	if err := d.client.post(ctx, "/descriptors", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Batch computes many structures in one call. Per-item failures are reported
// in the response, not as an error.
func (d *DescriptorsClient) Batch(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "batch is empty")
	}
	var out BatchResponse
	if err := d.client.post(ctx, "/descriptors/batch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *DescriptorsClient) Families(ctx context.Context) ([]FamilyInfo, error) {
	var out struct {
		Families []FamilyInfo `json:"families"`
	}
	if err := d.client.get(ctx, "/descriptors/families", &out); err != nil {
		return nil, err
	}
	return out.Families, nil
}

// AtomTypes returns per-atom types. A nil mode selects every property.
func (d *DescriptorsClient) AtomTypes(ctx context.Context, structure string, mode *uint32) ([]AtomType, error) {
	body := struct {
		Structure string  `json:"structure"`
		Mode      *uint32 `json:"mode,omitempty"`
	}{structure, mode}
	var out struct {
		Atoms []AtomType `json:"atoms"`
	}
	if err := d.client.post(ctx, "/descriptors/atom-types", body, &out); err != nil {
		return nil, err
	}
	return out.Atoms, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// SimilarityClient
// ─────────────────────────────────────────────────────────────────────────────

// SimilarityClient covers /similarity.
type SimilarityClient struct {
	client *Client
}

func (s *SimilarityClient) Compare(ctx context.Context, req *CompareRequest) (*CompareResult, error) {
	if req == nil || req.Query == "" || req.Target == "" {
		return nil, errors.New(errors.ErrCodeValidation, "query and target are required")
	}
	var out CompareResult
	if err := s.client.post(ctx, "/similarity", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SimilarityClient) Rank(ctx context.Context, req *RankRequest) ([]RankResult, error) {
	if req == nil || len(req.Candidates) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "candidates must not be empty")
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return nil, errors.Newf(errors.ErrCodeSimilarityThresholdInvalid, "threshold %.3f outside [0, 1]", req.Threshold)
	}
	var out struct {
		Results []RankResult `json:"results"`
	}
	if err := s.client.post(ctx, "/similarity/rank", req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Search ranks the molecules stored on the server against a query.
func (s *SimilarityClient) Search(ctx context.Context, req *SearchRequest) ([]StoredMatch, error) {
	if req == nil || req.Query == "" {
		return nil, errors.New(errors.ErrCodeValidation, "query is required")
	}
	var out struct {
		Matches []StoredMatch `json:"matches"`
	}
	if err := s.client.post(ctx, "/similarity/search", req, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

//Personal.AI order the ending
