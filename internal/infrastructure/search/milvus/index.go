package milvus

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/samber/lo"

	domain "github.com/turtacn/molfp/internal/domain/descriptor"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/pkg/errors"
)

const (
	fieldMoleculeID  = "molecule_id"
	fieldCanonical   = "canonical"
	fieldEncoded     = "encoded"
	fieldFingerprint = "fingerprint"

	shardsNum = int32(2)

	// maxTopK is the server-side search limit.
	maxTopK = 16384
)

// FingerprintIndex stores binary fingerprints in one collection per family
// and bit width, indexed BIN_IVF_FLAT under JACCARD. Jaccard distance on bit
// vectors is one minus the Tanimoto similarity.
type FingerprintIndex struct {
	client *Client
	logger logging.Logger

	mu    sync.Mutex
	ready map[string]bool
}

// NewFingerprintIndex binds the index to an open client.
func NewFingerprintIndex(c *Client, log logging.Logger) *FingerprintIndex {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FingerprintIndex{client: c, logger: log.Named("milvus"), ready: map[string]bool{}}
}

var _ domain.FingerprintIndex = (*FingerprintIndex)(nil)

// CollectionName is prefix + lower-cased family + "_" + bit width.
func (x *FingerprintIndex) CollectionName(family string, dim int) string {
	return x.client.cfg.CollectionPrefix + strings.ToLower(family) + "_" + strconv.Itoa(dim)
}

// Upsert writes every non-failed record, grouped by bit width. Records that
// do not decode as bit vectors are rejected.
func (x *FingerprintIndex) Upsert(ctx context.Context, family string, ds []domain.StoredDescriptor) error {
	type row struct {
		d   domain.StoredDescriptor
		raw []byte
		dim int
	}
	rows := make([]row, 0, len(ds))
	for _, d := range ds {
		if d.Failed || d.Family != family {
			continue
		}
		v, err := domain.DecodeBitVector(d.Encoded)
		if err != nil {
			return err
		}
		if v == nil || v.IsFailed() {
			continue
		}
		rows = append(rows, row{d: d, raw: v.Bytes(), dim: v.Size()})
	}
	if len(rows) == 0 {
		return nil
	}
	mc, err := x.client.sdk()
	if err != nil {
		return err
	}

	for dim, group := range lo.GroupBy(rows, func(r row) int { return r.dim }) {
		name := x.CollectionName(family, dim)
		if err := x.ensureCollection(ctx, name, dim); err != nil {
			return err
		}
		ids := make([]string, len(group))
		canon := make([]string, len(group))
		enc := make([]string, len(group))
		vecs := make([][]byte, len(group))
		for i, r := range group {
			ids[i] = r.d.MoleculeID.String()
			canon[i] = r.d.Canonical
			enc[i] = r.d.Encoded
			vecs[i] = r.raw
		}
		_, err := mc.Upsert(ctx, name, "",
			entity.NewColumnVarChar(fieldMoleculeID, ids),
			entity.NewColumnVarChar(fieldCanonical, canon),
			entity.NewColumnVarChar(fieldEncoded, enc),
			entity.NewColumnBinaryVector(fieldFingerprint, dim, vecs),
		)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "milvus upsert")
		}
		x.logger.Debug("fingerprints indexed",
			logging.Family(family), logging.String("collection", name), logging.Int("count", len(group)))
	}
	return nil
}

// Search returns up to topK stored fingerprints nearest to encoded, closest
// first. A family with nothing indexed yields an empty result.
func (x *FingerprintIndex) Search(ctx context.Context, family, encoded string, topK int) ([]domain.StoredDescriptor, error) {
	v, err := domain.DecodeBitVector(encoded)
	if err != nil {
		return nil, err
	}
	if v == nil || v.IsFailed() || topK <= 0 {
		return nil, nil
	}
	mc, err := x.client.sdk()
	if err != nil {
		return nil, err
	}

	name := x.CollectionName(family, v.Size())
	has, err := mc.HasCollection(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "milvus has collection")
	}
	if !has {
		return nil, nil
	}

	sp, err := entity.NewIndexBinIvfFlatSearchParam(x.client.cfg.NProbe)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "milvus search param")
	}
	results, err := mc.Search(ctx, name, nil, "",
		[]string{fieldCanonical, fieldEncoded},
		[]entity.Vector{entity.BinaryVector(v.Bytes())},
		fieldFingerprint, entity.JACCARD, min(topK, maxTopK), sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "milvus search")
	}

	var out []domain.StoredDescriptor
	for _, res := range results {
		if res.Err != nil {
			return nil, errors.Wrap(res.Err, errors.ErrCodeDatabaseError, "milvus search")
		}
		canon := res.Fields.GetColumn(fieldCanonical)
		enc := res.Fields.GetColumn(fieldEncoded)
		if res.IDs == nil || canon == nil || enc == nil {
			continue
		}
		for j := 0; j < res.ResultCount; j++ {
			sd, err := hit(res.IDs, canon, enc, j)
			if err != nil {
				return nil, err
			}
			sd.Family = family
			out = append(out, sd)
		}
	}
	return out, nil
}

func hit(ids, canon, enc entity.Column, j int) (domain.StoredDescriptor, error) {
	idStr, err := ids.GetAsString(j)
	if err != nil {
		return domain.StoredDescriptor{}, errors.Wrap(err, errors.ErrCodeSerialization, "milvus result id")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return domain.StoredDescriptor{}, errors.Wrap(err, errors.ErrCodeSerialization, "milvus result id")
	}
	c, err := canon.GetAsString(j)
	if err != nil {
		return domain.StoredDescriptor{}, errors.Wrap(err, errors.ErrCodeSerialization, "milvus result canonical")
	}
	e, err := enc.GetAsString(j)
	if err != nil {
		return domain.StoredDescriptor{}, errors.Wrap(err, errors.ErrCodeSerialization, "milvus result encoded")
	}
	return domain.StoredDescriptor{MoleculeID: id, Canonical: c, Encoded: e}, nil
}

// ensureCollection creates, indexes and loads name once per process.
func (x *FingerprintIndex) ensureCollection(ctx context.Context, name string, dim int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ready[name] {
		return nil
	}
	mc, err := x.client.sdk()
	if err != nil {
		return err
	}

	has, err := mc.HasCollection(ctx, name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "milvus has collection")
	}
	if !has {
		schema := entity.NewSchema().
			WithName(name).
			WithDescription("molfp binary fingerprints").
			WithField(entity.NewField().WithName(fieldMoleculeID).WithDataType(entity.FieldTypeVarChar).
				WithIsPrimaryKey(true).WithMaxLength(36)).
			WithField(entity.NewField().WithName(fieldCanonical).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(65535)).
			WithField(entity.NewField().WithName(fieldEncoded).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(65535)).
			WithField(entity.NewField().WithName(fieldFingerprint).WithDataType(entity.FieldTypeBinaryVector).
				WithDim(int64(dim)))
		if err := mc.CreateCollection(ctx, schema, shardsNum); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "milvus create collection")
		}
		idx, err := entity.NewIndexBinIvfFlat(entity.JACCARD, x.client.cfg.NList)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "milvus index params")
		}
		if err := mc.CreateIndex(ctx, name, fieldFingerprint, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "milvus create index")
		}
		x.logger.Info("fingerprint collection created", logging.String("collection", name), logging.Int("dim", dim))
	}
	if err := mc.LoadCollection(ctx, name, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "milvus load collection")
	}
	x.ready[name] = true
	return nil
}

//Personal.AI order the ending
