package postgres

import (
	"context"
	"database/sql"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// SuspensionRepository persists suspension periods as entered; merging stays
// an evaluation-time concern in the domain registry.
type SuspensionRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewSuspensionRepository constructs a SuspensionRepository.
func NewSuspensionRepository(conn *Connection, log logging.Logger) *SuspensionRepository {
	return &SuspensionRepository{db: conn.DB(), logger: log.Named("suspension_repo")}
}

// Save inserts one suspension period.  Validation happens in the registry
// before anything reaches this layer.
func (r *SuspensionRepository) Save(ctx context.Context, p suspension.Period) error {
	const q = `
		INSERT INTO suspension_periods (id, scope, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, string(p.ID), string(p.Scope), p.Start, p.End, p.Reason)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting suspension period")
	}
	return nil
}

// LoadAll returns every persisted period, for rehydrating the registry on
// startup.
func (r *SuspensionRepository) LoadAll(ctx context.Context) ([]suspension.Period, error) {
	const q = `SELECT id, scope, start_date, end_date, reason FROM suspension_periods ORDER BY start_date ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying suspension periods")
	}
	defer rows.Close()

	var out []suspension.Period
	for rows.Next() {
		var (
			p     suspension.Period
			id    string
			scope string
		)
		if err := rows.Scan(&id, &scope, &p.Start, &p.End, &p.Reason); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning suspension row")
		}
		p.ID = common.ID(id)
		p.Scope = calendar.Scope(scope)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating suspension rows")
	}
	return out, nil
}
