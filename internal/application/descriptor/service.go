// Package descriptor is the application service for descriptor computation.
// It sits between the HTTP, CLI and worker surfaces and the domain handlers,
// adding caching, persistence, event publication and metrics.
package descriptor

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/turtacn/molfp/internal/config"
	domain "github.com/turtacn/molfp/internal/domain/descriptor"
	"github.com/turtacn/molfp/internal/domain/molecule"
	kafkainfra "github.com/turtacn/molfp/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molfp/pkg/errors"
)

// Input formats accepted by ComputeRequest.Format.
const (
	FormatAuto    = ""
	FormatSMILES  = "smiles"
	FormatMolfile = "molfile"
)

const eventSource = "molfp"

// Service defines the descriptor application operations.
type Service interface {
	Compute(ctx context.Context, req *ComputeRequest) (*ComputeResult, error)
	Compare(ctx context.Context, req *CompareRequest) (*CompareResult, error)
	BatchCompute(ctx context.Context, reqs []*ComputeRequest) ([]BatchItem, error)
	Rank(ctx context.Context, req *RankRequest) ([]RankResult, error)
	RankStored(ctx context.Context, req *RankStoredRequest) ([]StoredMatch, error)
	AtomTypes(ctx context.Context, structure string, mode domain.PropertyMask) ([]AtomTypeInfo, error)
	AtomTypeHistogram(ctx context.Context, structure string, mode domain.PropertyMask) ([]AtomTypeCount, error)
	Families() []domain.DescriptorInfo
	InvalidateCache(ctx context.Context, family string) (int64, error)
	HandleMessage(ctx context.Context, msg *kafkainfra.Message) error
}

// Cache stores encoded descriptors by cache scope and canonical structure.
// InvalidateFamily drops every scope of a family code.
type Cache interface {
	GetOrCompute(ctx context.Context, scope, structure string, compute func(context.Context) (string, error)) (string, bool, error)
	InvalidateFamily(ctx context.Context, family string) (int64, error)
}

// JobClaimer deduplicates redelivered jobs.
type JobClaimer interface {
	Claim(ctx context.Context, jobID string) (bool, error)
	Release(ctx context.Context, jobID string) error
}

// Config tunes the service.
type Config struct {
	// DefaultFamilies are computed when a request names none.
	DefaultFamilies  []string
	BatchConcurrency int
	MaxBatchSize     int
	// MaxAtoms rejects larger molecules; 0 disables the check.
	MaxAtoms int
}

// ComputeRequest asks for descriptors of one structure.
type ComputeRequest struct {
	Structure string   `json:"structure"`
	Format    string   `json:"format,omitempty"`
	Families  []string `json:"families,omitempty"`
	Persist   bool     `json:"persist,omitempty"`
}

// DescriptorValue is one encoded descriptor.
type DescriptorValue struct {
	Family  string `json:"family"`
	Encoded string `json:"encoded"`
	Failed  bool   `json:"failed"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ComputeResult is the outcome of Compute.
type ComputeResult struct {
	Canonical   string            `json:"canonical"`
	AtomCount   int               `json:"atom_count"`
	MoleculeID  string            `json:"molecule_id,omitempty"`
	Descriptors []DescriptorValue `json:"descriptors"`
}

// Encoded returns the descriptors keyed by family.
func (r *ComputeResult) Encoded() map[string]string {
	return lo.SliceToMap(r.Descriptors, func(d DescriptorValue) (string, string) { return d.Family, d.Encoded })
}

// CompareRequest scores two structures against each other.
type CompareRequest struct {
	Query    string   `json:"query"`
	Target   string   `json:"target"`
	Families []string `json:"families,omitempty"`
}

// FamilyScore is the similarity under one family.
type FamilyScore struct {
	Family string  `json:"family"`
	Score  float64 `json:"score"`
}

// CompareResult is the outcome of Compare.
type CompareResult struct {
	QueryCanonical  string        `json:"query_canonical"`
	TargetCanonical string        `json:"target_canonical"`
	Scores          []FamilyScore `json:"scores"`
}

// AtomTypeInfo is the type of one heavy atom.
type AtomTypeInfo struct {
	Index       int    `json:"index"`
	Symbol      string `json:"symbol"`
	Type        uint64 `json:"type"`
	Description string `json:"description"`
}

// AtomTypeCount is how often one atom type occurs in a molecule.
type AtomTypeCount struct {
	Type        uint64 `json:"type"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

// Option configures optional collaborators.
type Option func(*serviceImpl)

func WithCache(c Cache) Option { return func(s *serviceImpl) { s.cache = c } }

func WithRepository(r domain.Repository) Option { return func(s *serviceImpl) { s.repo = r } }

// WithPublisher enables descriptor.computed events and job results.
func WithPublisher(p kafkainfra.Publisher) Option { return func(s *serviceImpl) { s.publisher = p } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(s *serviceImpl) { s.metrics = m } }

func WithClaims(c JobClaimer) Option { return func(s *serviceImpl) { s.claims = c } }

// WithIndex serves RankStored candidates for binary families from idx and
// keeps it current on persist.
func WithIndex(idx domain.FingerprintIndex) Option { return func(s *serviceImpl) { s.index = idx } }

type serviceImpl struct {
	registry  *domain.Registry
	canon     domain.Canonicalizer
	cfg       Config
	logger    logging.Logger
	cache     Cache
	repo      domain.Repository
	index     domain.FingerprintIndex
	publisher kafkainfra.Publisher
	claims    JobClaimer
	metrics   *prometheus.AppMetrics
	now       func() time.Time
}

// NewService returns a Service over registry. Cache, repository, publisher,
// claims and metrics are optional.
func NewService(registry *domain.Registry, cfg Config, log logging.Logger, opts ...Option) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if registry == nil {
		registry = domain.DefaultRegistry()
	}
	if len(cfg.DefaultFamilies) == 0 {
		cfg.DefaultFamilies = registry.Codes()
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 1000
	}
	s := &serviceImpl{
		registry: registry,
		canon:    domain.NewRankCanonicalizer(),
		cfg:      cfg,
		logger:   log.Named("descriptor"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRegistry builds the built-in families with the given fingerprint sizes.
func NewRegistry(sphereSize, pathSize int) (*domain.Registry, error) {
	sphere, err := domain.NewSphereFingerprintHandler(sphereSize)
	if err != nil {
		return nil, err
	}
	path, err := domain.NewPathFingerprintHandler(pathSize)
	if err != nil {
		return nil, err
	}
	return domain.NewRegistry(
		domain.AsFamily[*domain.BitVector](sphere),
		domain.AsFamily[*domain.BitVector](path),
		domain.AsFamily[domain.FunctionalGroups](domain.DefaultFunctionalGroups()),
	), nil
}

// NewServiceFromConfig builds the registry and service described by cfg.
func NewServiceFromConfig(cfg config.DescriptorConfig, log logging.Logger, opts ...Option) (Service, error) {
	registry, err := NewRegistry(cfg.SphereSize, cfg.PathSize)
	if err != nil {
		return nil, err
	}
	return NewService(registry, Config{
		DefaultFamilies:  cfg.Families,
		BatchConcurrency: cfg.BatchConcurrency,
		MaxBatchSize:     cfg.MaxBatchSize,
		MaxAtoms:         cfg.MaxAtoms,
	}, log, opts...), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Parsing
// ─────────────────────────────────────────────────────────────────────────────

type parsed struct {
	mol       *molecule.Molecule
	canonical string
}

func (s *serviceImpl) parse(structure, format string) (*parsed, error) {
	if strings.TrimSpace(structure) == "" {
		return nil, errors.New(errors.ErrCodeInvalidMolecule, "structure is required")
	}
	var (
		mol *molecule.Molecule
		err error
	)
	switch strings.ToLower(format) {
	case FormatSMILES:
		mol, err = molecule.ParseSMILES(structure)
	case FormatMolfile:
		mol, err = molecule.ParseMolfile(structure)
	case FormatAuto:
		if looksLikeMolfile(structure) {
			mol, err = molecule.ParseMolfile(structure)
		} else {
			mol, err = molecule.ParseSMILES(structure)
		}
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unsupported format %q", format)
	}
	if err != nil {
		if errors.GetCode(err) == errors.CodeUnknown {
			err = errors.Wrap(err, errors.ErrCodeMoleculeParsingFailed, "parse structure")
		}
		return nil, err
	}
	if mol.AtomCount() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidMolecule, "structure has no atoms")
	}
	if s.cfg.MaxAtoms > 0 && mol.AtomCount() > s.cfg.MaxAtoms {
		return nil, errors.Newf(errors.ErrCodeInvalidMolecule, "molecule has %d atoms, limit is %d", mol.AtomCount(), s.cfg.MaxAtoms)
	}
	canonical, err := s.canon.Canonicalize(mol)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCanonicalizationFailed, "canonicalize structure")
	}
	return &parsed{mol: mol, canonical: canonical}, nil
}

func looksLikeMolfile(s string) bool {
	return strings.Contains(s, "\n") && strings.Contains(s, "V2000")
}

func (s *serviceImpl) families(codes []string) ([]domain.Family, error) {
	if len(codes) == 0 {
		codes = s.cfg.DefaultFamilies
	}
	out := make([]domain.Family, 0, len(codes))
	for _, code := range lo.Uniq(codes) {
		f, err := s.registry.Get(code)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Compute
// ─────────────────────────────────────────────────────────────────────────────

// Compute computes, persists on request and announces the descriptors of one
// structure.
func (s *serviceImpl) Compute(ctx context.Context, req *ComputeRequest) (*ComputeResult, error) {
	res, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}
	s.publishComputed(ctx, res)
	return res, nil
}

// compute is Compute without the descriptor.computed event, for scoring paths.
func (s *serviceImpl) compute(ctx context.Context, req *ComputeRequest) (*ComputeResult, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeValidation, "request is required")
	}
	fams, err := s.families(req.Families)
	if err != nil {
		return nil, err
	}
	p, err := s.parse(req.Structure, req.Format)
	if err != nil {
		s.metrics.RecordError("descriptor", string(errors.GetCode(err)))
		return nil, err
	}

	res := &ComputeResult{Canonical: p.canonical, AtomCount: p.mol.AtomCount()}
	for _, f := range fams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Descriptors = append(res.Descriptors, s.computeOne(ctx, f, p))
	}

	if req.Persist && s.repo != nil {
		if err := s.persist(ctx, req.Structure, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *serviceImpl) computeOne(ctx context.Context, f domain.Family, p *parsed) DescriptorValue {
	code := f.Info().ShortName
	start := time.Now()
	var calcErr error
	compute := func(context.Context) (string, error) {
		enc, _, err := f.ComputeEncoded(p.mol)
		if err != nil {
			calcErr = err
			return "", err
		}
		return enc, nil
	}

	var (
		enc string
		hit bool
		err error
	)
	if s.cache != nil {
		enc, hit, err = s.cache.GetOrCompute(ctx, f.Info().CacheScope(), p.canonical, compute)
		s.metrics.RecordCache(code, hit)
	} else {
		enc, err = compute(ctx)
	}
	if err != nil {
		if calcErr == nil {
			calcErr = err
		}
		s.logger.Warn("descriptor calculation failed", logging.Family(code), logging.Structure(p.canonical), logging.Err(calcErr))
		s.metrics.RecordDescriptor(code, true, time.Since(start))
		s.metrics.RecordFailure(code, string(errors.GetCode(calcErr)))
		return DescriptorValue{Family: code, Encoded: domain.FailedToken, Failed: true, Error: calcErr.Error()}
	}

	failed := enc == domain.FailedToken || enc == ""
	if !hit {
		s.metrics.RecordDescriptor(code, failed, time.Since(start))
		if failed {
			s.metrics.RecordFailure(code, "empty_result")
		}
	}
	return DescriptorValue{Family: code, Encoded: enc, Failed: failed, Cached: hit}
}

func (s *serviceImpl) persist(ctx context.Context, input string, res *ComputeResult) error {
	m := &domain.StoredMolecule{Canonical: res.Canonical, Input: input, AtomCount: res.AtomCount}
	err := s.repo.UpsertMolecule(ctx, m)
	s.metrics.RecordStore("upsert_molecule", err)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	records := lo.Map(res.Descriptors, func(d DescriptorValue, _ int) domain.StoredDescriptor {
		return domain.StoredDescriptor{
			MoleculeID: m.ID,
			Canonical:  res.Canonical,
			Family:     d.Family,
			Encoded:    d.Encoded,
			Failed:     d.Failed,
			ComputedAt: now,
		}
	})
	err = s.repo.SaveDescriptors(ctx, m.ID, records)
	s.metrics.RecordStore("save_descriptors", err)
	if err != nil {
		return err
	}
	res.MoleculeID = m.ID.String()
	s.indexRecords(ctx, records)
	return nil
}

// indexRecords is best effort; postgres stays the source of truth.
func (s *serviceImpl) indexRecords(ctx context.Context, records []domain.StoredDescriptor) {
	if s.index == nil {
		return
	}
	for family, group := range lo.GroupBy(records, func(d domain.StoredDescriptor) string { return d.Family }) {
		f, err := s.registry.Get(family)
		if err != nil || !f.Info().IsBinary {
			continue
		}
		err = s.index.Upsert(ctx, family, group)
		s.metrics.RecordStore("index_upsert", err)
		if err != nil {
			s.logger.Warn("fingerprint index upsert failed", logging.Family(family), logging.Err(err))
		}
	}
}

// publishComputed is best effort; a failed publish is only logged.
func (s *serviceImpl) publishComputed(ctx context.Context, res *ComputeResult) {
	if s.publisher == nil {
		return
	}
	env, err := kafkainfra.NewEventEnvelope(kafkainfra.EventDescriptorComputed, eventSource, kafkainfra.DescriptorComputedPayload{
		MoleculeID: res.MoleculeID,
		Canonical:  res.Canonical,
		Families:   lo.Map(res.Descriptors, func(d DescriptorValue, _ int) string { return d.Family }),
		ComputedAt: s.now().UTC(),
	})
	if err == nil {
		var msg *kafkainfra.ProducerMessage
		if msg, err = env.ToMessage(kafkainfra.TopicDescriptorComputed, res.Canonical); err == nil {
			err = s.publisher.Publish(ctx, msg)
		}
	}
	if err != nil {
		s.logger.Warn("publish computed event", logging.Structure(res.Canonical), logging.Err(err))
		s.metrics.RecordError("publisher", string(errors.GetCode(err)))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Compare
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Compare(ctx context.Context, req *CompareRequest) (*CompareResult, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeValidation, "request is required")
	}
	q, err := s.compute(ctx, &ComputeRequest{Structure: req.Query, Families: req.Families})
	if err != nil {
		return nil, err
	}
	t, err := s.compute(ctx, &ComputeRequest{Structure: req.Target, Families: req.Families})
	if err != nil {
		return nil, err
	}

	out := &CompareResult{QueryCanonical: q.Canonical, TargetCanonical: t.Canonical}
	targets := t.Encoded()
	for _, d := range q.Descriptors {
		score, err := s.similarity(d.Family, d.Encoded, targets[d.Family])
		if err != nil {
			return nil, err
		}
		out.Scores = append(out.Scores, FamilyScore{Family: d.Family, Score: score})
	}
	return out, nil
}

// similarity scores two encoded descriptors of family. NaN is reported as 0.
func (s *serviceImpl) similarity(family, a, b string) (float64, error) {
	f, err := s.registry.Get(family)
	if err != nil {
		return 0, err
	}
	score, err := f.SimilarityEncoded(a, b)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(score) {
		score = 0
	}
	s.metrics.RecordSimilarity(family, score)
	return score, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Atom types and families
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) AtomTypes(_ context.Context, structure string, mode domain.PropertyMask) ([]AtomTypeInfo, error) {
	p, err := s.parse(structure, FormatAuto)
	if err != nil {
		return nil, err
	}
	types, err := domain.AtomTypes(p.mol, mode)
	if err != nil {
		return nil, err
	}
	return lo.Map(types, func(t uint64, i int) AtomTypeInfo {
		return AtomTypeInfo{
			Index:       i,
			Symbol:      molecule.Symbol(p.mol.AtomicNo(i)),
			Type:        t,
			Description: domain.DescribeAtomType(t),
		}
	}), nil
}

// AtomTypeHistogram counts the distinct atom types of a structure, most
// frequent first. Equal counts are ordered by type value.
func (s *serviceImpl) AtomTypeHistogram(_ context.Context, structure string, mode domain.PropertyMask) ([]AtomTypeCount, error) {
	p, err := s.parse(structure, FormatAuto)
	if err != nil {
		return nil, err
	}
	hist, err := domain.AtomTypeHistogram(p.mol, mode)
	if err != nil {
		return nil, err
	}
	out := lo.MapToSlice(hist, func(t uint64, n int) AtomTypeCount {
		return AtomTypeCount{Type: t, Count: n, Description: domain.DescribeAtomType(t)}
	})
	slices.SortFunc(out, func(a, b AtomTypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return out, nil
}

func (s *serviceImpl) Families() []domain.DescriptorInfo {
	return s.registry.Infos()
}

// InvalidateCache drops the cached descriptors of a registered family and
// returns how many entries were removed.
func (s *serviceImpl) InvalidateCache(ctx context.Context, family string) (int64, error) {
	if _, err := s.registry.Get(family); err != nil {
		return 0, err
	}
	if s.cache == nil {
		return 0, errors.New(errors.ErrCodeServiceUnavailable, "descriptor cache is not configured")
	}
	n, err := s.cache.InvalidateFamily(ctx, family)
	if err != nil {
		return 0, err
	}
	s.logger.Info("descriptor cache invalidated", logging.Family(family), logging.Int64("entries", n))
	return n, nil
}

//Personal.AI order the ending
