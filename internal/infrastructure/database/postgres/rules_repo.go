package postgres

import (
	"context"
	"database/sql"

	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
)

// RuleSetRepository persists published rule-set versions as versioned JSON
// documents.  Versions are immutable rows; only the active pointer moves.
type RuleSetRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewRuleSetRepository constructs a RuleSetRepository.
func NewRuleSetRepository(conn *Connection, log logging.Logger) *RuleSetRepository {
	return &RuleSetRepository{db: conn.DB(), logger: log.Named("rules_repo")}
}

// SaveVersion stores one published rule-set version.  The row is insert-only;
// republishing an existing version is a conflict.
func (r *RuleSetRepository) SaveVersion(ctx context.Context, rs *rules.RuleSet) error {
	doc, err := rules.EncodeDocument(rs)
	if err != nil {
		return err
	}

	// Idempotent so a retry after a failed publish-persist converges.
	const q = `
		INSERT INTO rule_sets (version, schema_version, document, published_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (version) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			document       = EXCLUDED.document,
			published_at   = EXCLUDED.published_at`
	if _, err := r.db.ExecContext(ctx, q, rs.Version, rs.SchemaVersion, doc, rs.PublishedAt); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting rule set version")
	}

	const activate = `
		INSERT INTO rule_set_active (singleton, version) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET version = EXCLUDED.version`
	if _, err := r.db.ExecContext(ctx, activate, rs.Version); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "updating active rule set version")
	}

	r.logger.Info("rule set version persisted", logging.Int("version", rs.Version))
	return nil
}

// LoadAll returns every persisted version in ascending order, for rehydrating
// the in-memory repository on startup.
func (r *RuleSetRepository) LoadAll(ctx context.Context) ([]*rules.RuleSet, error) {
	const q = `SELECT document FROM rule_sets ORDER BY version ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying rule set versions")
	}
	defer rows.Close()

	var out []*rules.RuleSet
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning rule set row")
		}
		rs, err := rules.DecodeDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating rule set rows")
	}
	return out, nil
}

// ActiveVersion returns the persisted active version pointer, zero when no
// version has ever been published.
func (r *RuleSetRepository) ActiveVersion(ctx context.Context) (int, error) {
	const q = `SELECT version FROM rule_set_active WHERE singleton`
	var version int
	err := r.db.QueryRowContext(ctx, q).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying active rule set version")
	}
	return version, nil
}
