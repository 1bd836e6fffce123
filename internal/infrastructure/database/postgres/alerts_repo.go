package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jurisflow/prazo/internal/domain/notify"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// AlertStateRepository persists each deadline's notification state so the
// scheduler survives restarts without re-alerting.
type AlertStateRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewAlertStateRepository constructs an AlertStateRepository.
func NewAlertStateRepository(conn *Connection, log logging.Logger) *AlertStateRepository {
	return &AlertStateRepository{db: conn.DB(), logger: log.Named("alerts_repo")}
}

// Upsert records a state transition.
func (r *AlertStateRepository) Upsert(ctx context.Context, id common.ID, state notify.AlertState) error {
	const q = `
		INSERT INTO alert_states (deadline_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (deadline_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, string(id), string(state), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "upserting alert state")
	}
	return nil
}

// LoadAll returns every tracked state, for seeding the scheduler on startup.
func (r *AlertStateRepository) LoadAll(ctx context.Context) (map[common.ID]notify.AlertState, error) {
	const q = `SELECT deadline_id, state FROM alert_states`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying alert states")
	}
	defer rows.Close()

	out := make(map[common.ID]notify.AlertState)
	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning alert state row")
		}
		out[common.ID(id)] = notify.AlertState(state)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating alert state rows")
	}
	return out, nil
}
