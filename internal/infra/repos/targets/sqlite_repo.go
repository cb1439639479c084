package targets

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

// SQLiteRepository stores targets in the metadata database. The schema is
// created by the runs repository that owns the handle.
type SQLiteRepository struct {
	db *sqlx.DB
}

func NewSQLiteRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type targetRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Kind        string         `db:"kind"`
	DSN         string         `db:"dsn"`
	Database    sql.NullString `db:"database"`
	Schema      sql.NullString `db:"schema"`
	OptionsJSON sql.NullString `db:"options_json"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row *targetRow) toDomain() *domain.TargetConfig {
	t := &domain.TargetConfig{
		ID:       row.ID,
		Name:     row.Name,
		Kind:     row.Kind,
		DSN:      row.DSN,
		Database: row.Database.String,
		Schema:   row.Schema.String,
	}
	if row.OptionsJSON.Valid && row.OptionsJSON.String != "" {
		_ = json.Unmarshal([]byte(row.OptionsJSON.String), &t.Options)
	}
	return t
}

func fromDomain(t *domain.TargetConfig) (*targetRow, error) {
	row := &targetRow{
		ID:       t.ID,
		Name:     t.Name,
		Kind:     t.Kind,
		DSN:      t.DSN,
		Database: nullString(t.Database),
		Schema:   nullString(t.Schema),
	}
	if len(t.Options) > 0 {
		b, err := json.Marshal(t.Options)
		if err != nil {
			return nil, err
		}
		row.OptionsJSON = nullString(string(b))
	}
	return row, nil
}

func (r *SQLiteRepository) List() ([]*domain.TargetConfig, error) {
	var rows []targetRow
	if err := r.db.Select(&rows, `SELECT * FROM targets ORDER BY name ASC`); err != nil {
		return nil, err
	}
	out := make([]*domain.TargetConfig, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// Get matches on id, then on name.
func (r *SQLiteRepository) Get(id string) (*domain.TargetConfig, error) {
	var row targetRow
	err := r.db.Get(&row, `SELECT * FROM targets WHERE id = ? OR name = ? ORDER BY id = ? DESC LIMIT 1`, id, id, id)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrNotFound, "target not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *SQLiteRepository) Create(t *domain.TargetConfig) error {
	if t == nil {
		return errors.New(errors.ErrConfiguration, "nil target")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row, err := fromDomain(t)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now
	_, err = r.db.NamedExec(`
		INSERT INTO targets (id, name, kind, dsn, database, schema, options_json, created_at, updated_at)
		VALUES (:id, :name, :kind, :dsn, :database, :schema, :options_json, :created_at, :updated_at)`, row)
	return err
}

func (r *SQLiteRepository) Update(t *domain.TargetConfig) error {
	if t == nil || t.ID == "" {
		return errors.New(errors.ErrConfiguration, "target id is required")
	}
	row, err := fromDomain(t)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExec(`
		UPDATE targets
		SET name = :name, kind = :kind, dsn = :dsn, database = :database, schema = :schema,
		    options_json = :options_json, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return err
	}
	return affected(res, t.ID)
}

func (r *SQLiteRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, id)
}

type checkRow struct {
	ID               string         `db:"id"`
	TargetID         string         `db:"target_id"`
	CheckedAt        time.Time      `db:"checked_at"`
	OK               bool           `db:"ok"`
	LatencyMS        int64          `db:"latency_ms"`
	ServerVersion    sql.NullString `db:"server_version"`
	CapabilitiesJSON sql.NullString `db:"capabilities_json"`
	Error            sql.NullString `db:"error"`
}

func (r *SQLiteRepository) RecordCheck(c *domain.TargetCheck) error {
	if c == nil {
		return errors.New(errors.ErrConfiguration, "nil check")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	caps, err := json.Marshal(c.Capabilities)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExec(`
		INSERT INTO target_checks (id, target_id, checked_at, ok, latency_ms, server_version, capabilities_json, error)
		VALUES (:id, :target_id, :checked_at, :ok, :latency_ms, :server_version, :capabilities_json, :error)`,
		checkRow{
			ID:               c.ID,
			TargetID:         c.TargetID,
			CheckedAt:        c.CheckedAt.UTC(),
			OK:               c.OK,
			LatencyMS:        c.LatencyMS,
			ServerVersion:    nullString(c.ServerVer),
			CapabilitiesJSON: nullString(string(caps)),
			Error:            nullString(c.Error),
		})
	return err
}

func (r *SQLiteRepository) ListChecks(targetID string, limit int) ([]*domain.TargetCheck, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []checkRow
	err := r.db.Select(&rows, `
		SELECT * FROM target_checks
		WHERE target_id = ?
		ORDER BY checked_at DESC
		LIMIT ?`, targetID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.TargetCheck, len(rows))
	for i, row := range rows {
		c := &domain.TargetCheck{
			ID:        row.ID,
			TargetID:  row.TargetID,
			CheckedAt: row.CheckedAt.UTC(),
			OK:        row.OK,
			LatencyMS: row.LatencyMS,
			ServerVer: row.ServerVersion.String,
			Error:     row.Error.String,
		}
		if row.CapabilitiesJSON.Valid {
			_ = json.Unmarshal([]byte(row.CapabilitiesJSON.String), &c.Capabilities)
		}
		out[i] = c
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func affected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Newf(errors.ErrNotFound, "target not found: %s", id)
	}
	return nil
}
