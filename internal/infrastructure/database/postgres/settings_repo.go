package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
)

// ConfigurationRepository persists every configuration version as an
// append-only row, so superseded versions stay available for audit.
type ConfigurationRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewConfigurationRepository constructs a ConfigurationRepository.
func NewConfigurationRepository(conn *Connection, log logging.Logger) *ConfigurationRepository {
	return &ConfigurationRepository{db: conn.DB(), logger: log.Named("settings_repo")}
}

// Save appends one configuration version.
func (r *ConfigurationRepository) Save(ctx context.Context, cfg settings.ConfigurationSet) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding configuration")
	}

	const q = `
		INSERT INTO configuration_versions (version, schema_version, document, updated_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, q, cfg.Version, cfg.SchemaVersion, doc, cfg.UpdatedAt.Time()); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting configuration version")
	}
	return nil
}

// Latest returns the most recent configuration version.  sql.ErrNoRows maps
// to a NotFound so callers can fall back to defaults on first run.
func (r *ConfigurationRepository) Latest(ctx context.Context) (settings.ConfigurationSet, error) {
	const q = `
		SELECT document FROM configuration_versions
		ORDER BY version DESC LIMIT 1`
	var doc []byte
	err := r.db.QueryRowContext(ctx, q).Scan(&doc)
	if err == sql.ErrNoRows {
		return settings.ConfigurationSet{}, errors.NotFound("no configuration persisted yet")
	}
	if err != nil {
		return settings.ConfigurationSet{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying latest configuration")
	}
	return decodeConfiguration(doc)
}

// History returns superseded configuration versions, newest first, excluding
// the current one.
func (r *ConfigurationRepository) History(ctx context.Context) ([]settings.ConfigurationSet, error) {
	const q = `
		SELECT document FROM configuration_versions
		ORDER BY version DESC OFFSET 1`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying configuration history")
	}
	defer rows.Close()

	var out []settings.ConfigurationSet
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning configuration row")
		}
		cfg, err := decodeConfiguration(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating configuration rows")
	}
	return out, nil
}

// decodeConfiguration rejects persisted documents with an unrecognized schema
// version instead of guessing a compatible shape.
func decodeConfiguration(doc []byte) (settings.ConfigurationSet, error) {
	var cfg settings.ConfigurationSet
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return settings.ConfigurationSet{}, errors.Wrap(err, errors.ErrCodeSerialization, "decoding configuration document")
	}
	if cfg.SchemaVersion != settings.CurrentSchemaVersion {
		return settings.ConfigurationSet{}, errors.Newf(errors.ErrCodeUnknownSchemaVersion,
			"persisted configuration carries schema version %d (want %d)", cfg.SchemaVersion, settings.CurrentSchemaVersion)
	}
	return cfg, nil
}
