package runs

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

// SQLiteRepository is the metadata database. It also owns the schema of the
// targets tables, which share its handle.
type SQLiteRepository struct {
	dbPath string
	db     *sqlx.DB
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{dbPath: dbPath}
}

func (r *SQLiteRepository) Init() error {
	if dir := filepath.Dir(r.dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := sqlx.Open("sqlite3", r.dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return err
	}
	// one writer: run goroutines and API handlers share the file
	db.SetMaxOpenConns(1)
	r.db = db
	return r.migrate()
}

func (r *SQLiteRepository) DB() *sqlx.DB { return r.db }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario_id TEXT NOT NULL,
		scenario_name TEXT NOT NULL,
		scenario_version TEXT NOT NULL DEFAULT '',
		target_id TEXT NOT NULL,
		target_name TEXT NOT NULL,
		target_kind TEXT NOT NULL,
		seed INTEGER NOT NULL,
		config_hash TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		stats TEXT,
		error TEXT NOT NULL DEFAULT '',
		progress_rows_generated INTEGER NOT NULL DEFAULT 0,
		progress_rows_total INTEGER NOT NULL DEFAULT 0,
		progress_entities_done INTEGER NOT NULL DEFAULT 0,
		progress_entities_total INTEGER NOT NULL DEFAULT 0,
		progress_current_entity TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS targets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		dsn TEXT NOT NULL,
		database TEXT,
		schema TEXT,
		options_json TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS target_checks (
		id TEXT PRIMARY KEY,
		target_id TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
		checked_at TIMESTAMP NOT NULL,
		ok INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		server_version TEXT,
		capabilities_json TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_target_checks_target_time ON target_checks(target_id, checked_at DESC)`,
	`CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_logs_run ON run_logs(run_id, id DESC)`,
}

// migrate applies every migration newer than the recorded schema version.
func (r *SQLiteRepository) migrate() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var cur int
	if err := r.db.Get(&cur, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return err
	}
	for i, stmt := range migrations {
		v := i + 1
		if cur >= v {
			continue
		}
		tx, err := r.db.Beginx()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "migration %d", v)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, v); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

type runRow struct {
	ID                    string         `db:"id"`
	ScenarioID            string         `db:"scenario_id"`
	ScenarioName          string         `db:"scenario_name"`
	ScenarioVersion       string         `db:"scenario_version"`
	TargetID              string         `db:"target_id"`
	TargetName            string         `db:"target_name"`
	TargetKind            string         `db:"target_kind"`
	Seed                  int64          `db:"seed"`
	ConfigHash            string         `db:"config_hash"`
	Mode                  string         `db:"mode"`
	Status                string         `db:"status"`
	StartedAt             time.Time      `db:"started_at"`
	CompletedAt           sql.NullTime   `db:"completed_at"`
	Stats                 sql.NullString `db:"stats"`
	Error                 string         `db:"error"`
	ProgressRowsGenerated int64          `db:"progress_rows_generated"`
	ProgressRowsTotal     int64          `db:"progress_rows_total"`
	ProgressEntitiesDone  int            `db:"progress_entities_done"`
	ProgressEntitiesTotal int            `db:"progress_entities_total"`
	ProgressCurrentEntity string         `db:"progress_current_entity"`
}

func (row *runRow) toDomain() *domain.Run {
	run := &domain.Run{
		ID:                    row.ID,
		ScenarioID:            row.ScenarioID,
		ScenarioName:          row.ScenarioName,
		ScenarioVersion:       row.ScenarioVersion,
		TargetID:              row.TargetID,
		TargetName:            row.TargetName,
		TargetKind:            row.TargetKind,
		Seed:                  row.Seed,
		ConfigHash:            row.ConfigHash,
		Mode:                  row.Mode,
		Status:                domain.RunStatus(row.Status),
		StartedAt:             row.StartedAt.UTC(),
		Error:                 row.Error,
		ProgressRowsGenerated: row.ProgressRowsGenerated,
		ProgressRowsTotal:     row.ProgressRowsTotal,
		ProgressEntitiesDone:  row.ProgressEntitiesDone,
		ProgressEntitiesTotal: row.ProgressEntitiesTotal,
		ProgressCurrentEntity: row.ProgressCurrentEntity,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time.UTC()
		run.CompletedAt = &t
	}
	if row.Stats.Valid && row.Stats.String != "" {
		run.Stats = json.RawMessage(row.Stats.String)
	}
	return run
}

func (r *SQLiteRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	row := runRow{
		ID:                    run.ID,
		ScenarioID:            run.ScenarioID,
		ScenarioName:          run.ScenarioName,
		ScenarioVersion:       run.ScenarioVersion,
		TargetID:              run.TargetID,
		TargetName:            run.TargetName,
		TargetKind:            run.TargetKind,
		Seed:                  run.Seed,
		ConfigHash:            run.ConfigHash,
		Mode:                  run.Mode,
		Status:                string(run.Status),
		StartedAt:             run.StartedAt.UTC(),
		Error:                 run.Error,
		ProgressRowsGenerated: run.ProgressRowsGenerated,
		ProgressRowsTotal:     run.ProgressRowsTotal,
		ProgressEntitiesDone:  run.ProgressEntitiesDone,
		ProgressEntitiesTotal: run.ProgressEntitiesTotal,
		ProgressCurrentEntity: run.ProgressCurrentEntity,
	}
	if len(run.Stats) > 0 {
		row.Stats = sql.NullString{String: string(run.Stats), Valid: true}
	}
	_, err := r.db.NamedExec(`
		INSERT INTO runs (
			id, scenario_id, scenario_name, scenario_version,
			target_id, target_name, target_kind,
			seed, config_hash, mode, status, started_at, stats, error,
			progress_rows_generated, progress_rows_total,
			progress_entities_done, progress_entities_total, progress_current_entity
		) VALUES (
			:id, :scenario_id, :scenario_name, :scenario_version,
			:target_id, :target_name, :target_kind,
			:seed, :config_hash, :mode, :status, :started_at, :stats, :error,
			:progress_rows_generated, :progress_rows_total,
			:progress_entities_done, :progress_entities_total, :progress_current_entity
		)`, row)
	return err
}

func (r *SQLiteRepository) Get(id string) (*domain.Run, error) {
	var row runRow
	err := r.db.Get(&row, `SELECT * FROM runs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrNotFound, "run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *SQLiteRepository) List(limit int, status string) ([]*domain.Run, error) {
	query := `SELECT * FROM runs`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY started_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*domain.Run, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// UpdateStatus sets completed_at for terminal statuses. A nil stats keeps
// whatever was stored.
func (r *SQLiteRepository) UpdateStatus(id string, status domain.RunStatus, errMsg string, stats *domain.RunStats) error {
	var completed sql.NullTime
	if status == domain.RunStatusSuccess || status == domain.RunStatusFailed {
		completed = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	var statsJSON sql.NullString
	if stats != nil {
		b, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		statsJSON = sql.NullString{String: string(b), Valid: true}
	}
	res, err := r.db.Exec(`
		UPDATE runs
		SET status = ?, completed_at = ?, stats = COALESCE(?, stats), error = ?
		WHERE id = ?`,
		status, completed, statsJSON, errMsg, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "run", id)
}

func (r *SQLiteRepository) UpdateProgress(id string, rowsGenerated, rowsTotal int64, entitiesDone, entitiesTotal int, currentEntity string) error {
	_, err := r.db.Exec(`
		UPDATE runs
		SET progress_rows_generated = ?, progress_rows_total = ?, progress_entities_done = ?,
		    progress_entities_total = ?, progress_current_entity = ?
		WHERE id = ?`,
		rowsGenerated, rowsTotal, entitiesDone, entitiesTotal, currentEntity, id)
	return err
}

func (r *SQLiteRepository) AppendRunLog(runID, level, message string) error {
	_, err := r.db.Exec(`INSERT INTO run_logs (run_id, created_at, level, message) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UTC(), level, message)
	return err
}

// ListRunLogs returns the newest entries first.
func (r *SQLiteRepository) ListRunLogs(runID string, limit int) ([]*domain.RunLog, error) {
	if limit <= 0 {
		limit = 200
	}
	var out []*domain.RunLog
	err := r.db.Select(&out, `
		SELECT id, run_id, created_at, level, message
		FROM run_logs
		WHERE run_id = ?
		ORDER BY id DESC
		LIMIT ?`, runID, limit)
	return out, err
}

func mustAffect(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Newf(errors.ErrNotFound, "%s not found: %s", what, id)
	}
	return nil
}
