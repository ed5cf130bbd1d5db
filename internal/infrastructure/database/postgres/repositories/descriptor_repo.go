package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/turtacn/molfp/internal/domain/descriptor"
	"github.com/turtacn/molfp/internal/infrastructure/database/postgres"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/molfp/pkg/errors"
)

const (
	upsertMoleculeSQL = `
		INSERT INTO molecules (id, canonical, input, atom_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (canonical) DO UPDATE SET input = EXCLUDED.input
		RETURNING id, created_at`

	upsertDescriptorSQL = `
		INSERT INTO descriptors (molecule_id, family, encoded, failed, computed_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (molecule_id, family) DO UPDATE
		SET encoded = EXCLUDED.encoded, failed = EXCLUDED.failed, computed_at = EXCLUDED.computed_at`

	selectDescriptorSQL = `
		SELECT d.molecule_id, m.canonical, d.family, d.encoded, d.failed, d.computed_at
		FROM descriptors d JOIN molecules m ON m.id = d.molecule_id`

	deleteMoleculeSQL = `DELETE FROM molecules WHERE id = $1`
)

// PostgresDescriptorRepo implements descriptor.Repository.
type PostgresDescriptorRepo struct {
	conn   *postgres.Connection
	logger logging.Logger
}

var _ descriptor.Repository = (*PostgresDescriptorRepo)(nil)

func NewPostgresDescriptorRepo(conn *postgres.Connection, log logging.Logger) *PostgresDescriptorRepo {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PostgresDescriptorRepo{conn: conn, logger: log.Named("descriptor_repo")}
}

func (r *PostgresDescriptorRepo) UpsertMolecule(ctx context.Context, m *descriptor.StoredMolecule) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.conn.DB().QueryRowContext(ctx, upsertMoleculeSQL, m.ID, m.Canonical, m.Input, m.AtomCount).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "upsert molecule")
	}
	return nil
}

func (r *PostgresDescriptorRepo) SaveDescriptors(ctx context.Context, moleculeID uuid.UUID, ds []descriptor.StoredDescriptor) error {
	if len(ds) == 0 {
		return nil
	}
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertDescriptorSQL)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "prepare descriptor upsert")
	}
	defer stmt.Close()

	for _, d := range ds {
		if _, err := stmt.ExecContext(ctx, moleculeID, d.Family, d.Encoded, d.Failed); err != nil {
			r.logger.Error("save descriptor", logging.Family(d.Family), logging.Err(err))
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "upsert descriptor")
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "commit descriptors")
	}
	return nil
}

func (r *PostgresDescriptorRepo) FindDescriptor(ctx context.Context, canonical, family string) (*descriptor.StoredDescriptor, error) {
	row := r.conn.DB().QueryRowContext(ctx, selectDescriptorSQL+` WHERE m.canonical = $1 AND d.family = $2`, canonical, family)
	d, err := scanDescriptor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "no %s descriptor for %q", family, canonical)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "find descriptor")
	}
	return d, nil
}

func (r *PostgresDescriptorRepo) ListDescriptors(ctx context.Context, family string, limit, offset int) ([]descriptor.StoredDescriptor, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(ctx, r.conn.DB(), family, limit, max(offset, 0))
}

func (r *PostgresDescriptorRepo) list(ctx context.Context, q queryExecutor, family string, limit, offset int) ([]descriptor.StoredDescriptor, error) {
	rows, err := q.QueryContext(ctx,
		selectDescriptorSQL+` WHERE d.family = $1 AND NOT d.failed ORDER BY m.created_at, m.id LIMIT $2 OFFSET $3`,
		family, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "list descriptors")
	}
	defer rows.Close()

	var out []descriptor.StoredDescriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "scan descriptor")
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "iterate descriptors")
	}
	return out, nil
}

func (r *PostgresDescriptorRepo) DeleteMolecule(ctx context.Context, id uuid.UUID) error {
	res, err := r.conn.DB().ExecContext(ctx, deleteMoleculeSQL, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "delete molecule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.Newf(apperrors.ErrCodeNotFound, "molecule %s not found", id)
	}
	return nil
}

func scanDescriptor(s scanner) (*descriptor.StoredDescriptor, error) {
	var d descriptor.StoredDescriptor
	if err := s.Scan(&d.MoleculeID, &d.Canonical, &d.Family, &d.Encoded, &d.Failed, &d.ComputedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

//Personal.AI order the ending
