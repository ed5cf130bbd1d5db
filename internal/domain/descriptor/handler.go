package descriptor

import (
	"slices"
	"strconv"
	"sync"

	"github.com/samber/lo"

	"github.com/turtacn/molfp/internal/domain/molecule"
	"github.com/turtacn/molfp/pkg/errors"
)

// Short codes of the built-in descriptor families.
const (
	CodeSphereFingerprint = "SphereFp"
	CodePathFingerprint   = "PathFp"
	CodeFunctionalGroups  = "FunctionalGroups"
)

// Defaults of the built-in families.
const (
	DefaultFingerprintSize = 512
	SphereCorrection       = 0.6
	FunctionalGroupFactor  = 0.7
)

// Applicability tells whether a descriptor describes molecules or reactions.
type Applicability string

const (
	ApplicableMolecule Applicability = "molecule"
	ApplicableReaction Applicability = "reaction"
)

// DescriptorInfo describes a descriptor family. The capability flags are for
// callers; nothing in this package interprets them.
type DescriptorInfo struct {
	Name             string        `json:"name"`
	ShortName        string        `json:"short_name"`
	Version          string        `json:"version"`
	Applicability    Applicability `json:"applicability"`
	IsBinary         bool          `json:"is_binary"`
	IsVector         bool          `json:"is_vector"`
	NeedsCoordinates bool          `json:"needs_coordinates"`

	// Size is the bit width of fingerprint families, zero otherwise.
	Size int `json:"size,omitempty"`
}

// CacheScope identifies encodings that are interchangeable: same family,
// version and size.
func (i DescriptorInfo) CacheScope() string {
	return i.ShortName + ":" + i.Version + ":" + strconv.Itoa(i.Size)
}

// Handler computes, compares and serializes one descriptor family. Handlers
// hold immutable configuration only and are safe for concurrent use.
type Handler[D any] interface {
	Info() DescriptorInfo
	CreateDescriptor(g molecule.Graph) (D, error)
	Similarity(a, b D) float64
	Encode(d D) string
	Decode(s string) (D, error)
	EncodeBytes(d D) []byte
	DecodeBytes(b []byte) (D, error)
	CalculationFailed(d D) bool
}

// Family is a Handler with the descriptor type erased to its encoded string.
type Family interface {
	Info() DescriptorInfo
	// ComputeEncoded returns the encoded descriptor and whether its
	// calculation failed.
	ComputeEncoded(g molecule.Graph) (encoded string, failed bool, err error)
	SimilarityEncoded(a, b string) (float64, error)
}

type family[D any] struct {
	h Handler[D]
}

// AsFamily wraps a typed handler.
func AsFamily[D any](h Handler[D]) Family {
	return family[D]{h: h}
}

func (f family[D]) Info() DescriptorInfo { return f.h.Info() }

func (f family[D]) ComputeEncoded(g molecule.Graph) (string, bool, error) {
	d, err := f.h.CreateDescriptor(g)
	if err != nil {
		return "", true, err
	}
	return f.h.Encode(d), f.h.CalculationFailed(d), nil
}

func (f family[D]) SimilarityEncoded(a, b string) (float64, error) {
	da, err := f.h.Decode(a)
	if err != nil {
		return 0, err
	}
	db, err := f.h.Decode(b)
	if err != nil {
		return 0, err
	}
	return f.h.Similarity(da, db), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Sphere fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// SphereFingerprintHandler hashes canonical sphere fragments around atoms.
type SphereFingerprintHandler struct {
	size   int
	factor float64
	canon  Canonicalizer
}

// NewSphereFingerprintHandler validates size and returns a handler scoring
// with the sphere correction factor.
func NewSphereFingerprintHandler(size int) (*SphereFingerprintHandler, error) {
	if err := validateSphereSize(size); err != nil {
		return nil, err
	}
	return &SphereFingerprintHandler{size: size, factor: SphereCorrection, canon: NewRankCanonicalizer()}, nil
}

var defaultSphere = sync.OnceValue(func() *SphereFingerprintHandler {
	h, _ := NewSphereFingerprintHandler(DefaultFingerprintSize)
	return h
})

// DefaultSphereFingerprint returns the shared 512-bit handler.
func DefaultSphereFingerprint() *SphereFingerprintHandler { return defaultSphere() }

func (h *SphereFingerprintHandler) Info() DescriptorInfo {
	return DescriptorInfo{
		Name:          "Sphere Fingerprint",
		ShortName:     CodeSphereFingerprint,
		Version:       "1.0",
		Applicability: ApplicableMolecule,
		IsBinary:      true,
		Size:          h.size,
	}
}

func (h *SphereFingerprintHandler) CreateDescriptor(g molecule.Graph) (*BitVector, error) {
	return computeSphereFingerprint(g, h.size, h.canon)
}

func (h *SphereFingerprintHandler) Similarity(a, b *BitVector) float64 {
	return NormalizeValue(Tanimoto(a, b), h.factor)
}

func (h *SphereFingerprintHandler) Encode(d *BitVector) string          { return EncodeBitVector(d) }
func (h *SphereFingerprintHandler) Decode(s string) (*BitVector, error) { return DecodeBitVector(s) }
func (h *SphereFingerprintHandler) EncodeBytes(d *BitVector) []byte     { return EncodeBitVectorBytes(d) }
func (h *SphereFingerprintHandler) DecodeBytes(b []byte) (*BitVector, error) {
	return DecodeBitVectorBytes(b)
}
func (h *SphereFingerprintHandler) CalculationFailed(d *BitVector) bool {
	return BitVectorCalculationFailed(d)
}

// ─────────────────────────────────────────────────────────────────────────────
// Path fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// PathFingerprintHandler hashes linear paths. Scores are plain Tanimoto.
type PathFingerprintHandler struct {
	size int
}

// NewPathFingerprintHandler validates size, a positive multiple of 64.
func NewPathFingerprintHandler(size int) (*PathFingerprintHandler, error) {
	if size <= 0 || size%64 != 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidFingerprintSize, "path fingerprint size %d is not a positive multiple of 64", size)
	}
	return &PathFingerprintHandler{size: size}, nil
}

var defaultPath = sync.OnceValue(func() *PathFingerprintHandler {
	h, _ := NewPathFingerprintHandler(DefaultFingerprintSize)
	return h
})

// DefaultPathFingerprint returns the shared 512-bit handler.
func DefaultPathFingerprint() *PathFingerprintHandler { return defaultPath() }

func (h *PathFingerprintHandler) Info() DescriptorInfo {
	return DescriptorInfo{
		Name:          "Path Fingerprint",
		ShortName:     CodePathFingerprint,
		Version:       "1.0",
		Applicability: ApplicableMolecule,
		IsBinary:      true,
		Size:          h.size,
	}
}

func (h *PathFingerprintHandler) CreateDescriptor(g molecule.Graph) (*BitVector, error) {
	return ComputePathFingerprint(g, h.size)
}

func (h *PathFingerprintHandler) Similarity(a, b *BitVector) float64 { return Tanimoto(a, b) }

func (h *PathFingerprintHandler) Encode(d *BitVector) string          { return EncodeBitVector(d) }
func (h *PathFingerprintHandler) Decode(s string) (*BitVector, error) { return DecodeBitVector(s) }
func (h *PathFingerprintHandler) EncodeBytes(d *BitVector) []byte     { return EncodeBitVectorBytes(d) }
func (h *PathFingerprintHandler) DecodeBytes(b []byte) (*BitVector, error) {
	return DecodeBitVectorBytes(b)
}
func (h *PathFingerprintHandler) CalculationFailed(d *BitVector) bool {
	return BitVectorCalculationFailed(d)
}

// ─────────────────────────────────────────────────────────────────────────────
// Functional groups
// ─────────────────────────────────────────────────────────────────────────────

// FunctionalGroupHandler counts functional groups and matches them by
// equivalence level.
type FunctionalGroupHandler struct {
	factor float64
}

var defaultFunctionalGroups = sync.OnceValue(func() *FunctionalGroupHandler {
	return &FunctionalGroupHandler{factor: FunctionalGroupFactor}
})

// DefaultFunctionalGroups returns the shared handler.
func DefaultFunctionalGroups() *FunctionalGroupHandler { return defaultFunctionalGroups() }

func (h *FunctionalGroupHandler) Info() DescriptorInfo {
	return DescriptorInfo{
		Name:          "Functional Groups",
		ShortName:     CodeFunctionalGroups,
		Version:       "1.0",
		Applicability: ApplicableMolecule,
		IsVector:      true,
	}
}

func (h *FunctionalGroupHandler) CreateDescriptor(g molecule.Graph) (FunctionalGroups, error) {
	return ClassifyFunctionalGroups(g), nil
}

func (h *FunctionalGroupHandler) Similarity(a, b FunctionalGroups) float64 {
	return FunctionalGroupSimilarity(a, b, h.factor)
}

func (h *FunctionalGroupHandler) Encode(d FunctionalGroups) string { return EncodeFunctionalGroups(d) }
func (h *FunctionalGroupHandler) Decode(s string) (FunctionalGroups, error) {
	return DecodeFunctionalGroups(s)
}
func (h *FunctionalGroupHandler) EncodeBytes(d FunctionalGroups) []byte {
	return EncodeFunctionalGroupsBytes(d)
}
func (h *FunctionalGroupHandler) DecodeBytes(b []byte) (FunctionalGroups, error) {
	return DecodeFunctionalGroupsBytes(b)
}
func (h *FunctionalGroupHandler) CalculationFailed(d FunctionalGroups) bool {
	return FunctionalGroupsCalculationFailed(d)
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

// Registry looks up families by short code.
type Registry struct {
	mu       sync.RWMutex
	families map[string]Family
}

// NewRegistry returns a registry holding families. A repeated short code
// replaces the earlier family.
func NewRegistry(families ...Family) *Registry {
	r := &Registry{families: make(map[string]Family, len(families))}
	for _, f := range families {
		r.families[f.Info().ShortName] = f
	}
	return r
}

// Register adds f. A short code can only be registered once.
func (r *Registry) Register(f Family) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := f.Info().ShortName
	if _, ok := r.families[code]; ok {
		return errors.Newf(errors.ErrCodeConflict, "descriptor family %q already registered", code)
	}
	r.families[code] = f
	return nil
}

// Get returns the family for code.
func (r *Registry) Get(code string) (Family, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.families[code]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownDescriptorFamily, "unknown descriptor family %q", code)
	}
	return f, nil
}

// Codes lists the registered short codes in sorted order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := lo.Keys(r.families)
	slices.Sort(codes)
	return codes
}

// Infos lists the registered families' info sorted by short code.
func (r *Registry) Infos() []DescriptorInfo {
	codes := r.Codes()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(codes, func(code string, _ int) DescriptorInfo { return r.families[code].Info() })
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(
		AsFamily[*BitVector](DefaultSphereFingerprint()),
		AsFamily[*BitVector](DefaultPathFingerprint()),
		AsFamily[FunctionalGroups](DefaultFunctionalGroups()),
	)
})

// DefaultRegistry holds the built-in families with default settings.
func DefaultRegistry() *Registry { return defaultRegistry() }

//Personal.AI order the ending
