package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// DeadlineRepository persists computed deadlines.  Rows are append-only: a
// record is never updated, and superseding is expressed by the newer row's
// supersedes_id column.
type DeadlineRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewDeadlineRepository constructs a DeadlineRepository.
func NewDeadlineRepository(conn *Connection, log logging.Logger) *DeadlineRepository {
	return &DeadlineRepository{db: conn.DB(), logger: log.Named("deadline_repo")}
}

// SaveCtx inserts one computed deadline.
func (r *DeadlineRepository) SaveCtx(ctx context.Context, d deadline.ComputedDeadline) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding computed deadline")
	}

	const q = `
		INSERT INTO computed_deadlines (id, due_date, rule_version, supersedes_id, document, computed_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`
	_, err = r.db.ExecContext(ctx, q,
		string(d.ID), d.DueDate, d.RuleVersion, string(d.SupersedesID), doc, d.ComputedAt.Time())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting computed deadline")
	}
	return nil
}

// GetCtx loads one computed deadline by ID.
func (r *DeadlineRepository) GetCtx(ctx context.Context, id common.ID) (deadline.ComputedDeadline, error) {
	const q = `SELECT document FROM computed_deadlines WHERE id = $1`
	var doc []byte
	err := r.db.QueryRowContext(ctx, q, string(id)).Scan(&doc)
	if err == sql.ErrNoRows {
		return deadline.ComputedDeadline{}, errors.Newf(errors.ErrCodeDeadlineNotFound, "deadline %s not found", id)
	}
	if err != nil {
		return deadline.ComputedDeadline{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying computed deadline")
	}
	return decodeDeadline(doc)
}

// ListCtx returns all deadlines ordered by due date, then computation time.
// The ordering matches the audit-export contract.
func (r *DeadlineRepository) ListCtx(ctx context.Context) ([]deadline.ComputedDeadline, error) {
	const q = `SELECT document FROM computed_deadlines ORDER BY due_date ASC, computed_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying computed deadlines")
	}
	defer rows.Close()

	var out []deadline.ComputedDeadline
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning deadline row")
		}
		d, err := decodeDeadline(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating deadline rows")
	}
	return out, nil
}

func decodeDeadline(doc []byte) (deadline.ComputedDeadline, error) {
	var d deadline.ComputedDeadline
	if err := json.Unmarshal(doc, &d); err != nil {
		return deadline.ComputedDeadline{}, errors.Wrap(err, errors.ErrCodeSerialization, "decoding deadline document")
	}
	return d, nil
}

// Save implements deadline.Store.
func (r *DeadlineRepository) Save(d deadline.ComputedDeadline) error {
	return r.SaveCtx(context.Background(), d)
}

// Get implements deadline.Store.
func (r *DeadlineRepository) Get(id common.ID) (deadline.ComputedDeadline, error) {
	return r.GetCtx(context.Background(), id)
}

// List implements deadline.Store.
func (r *DeadlineRepository) List() ([]deadline.ComputedDeadline, error) {
	return r.ListCtx(context.Background())
}
