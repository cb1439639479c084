package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

type SQLiteTarget struct {
	path string
	db   *sqlx.DB
	tx   *sqlx.Tx
}

type conn interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewSQLiteTarget(path string) *SQLiteTarget {
	return &SQLiteTarget{path: path}
}

func (t *SQLiteTarget) Kind() string { return domain.TargetKindSQLite }

func (t *SQLiteTarget) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", t.path)
	if err != nil {
		return errors.Wrapf(err, "open sqlite %s", t.path)
	}
	t.db = db
	return nil
}

func (t *SQLiteTarget) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// Begin opens the run transaction. Until Commit or Rollback every statement
// goes through it, including table creation.
func (t *SQLiteTarget) Begin(ctx context.Context) error {
	if t.tx != nil {
		return errors.New(errors.ErrUnsupportedOperation, "sqlite run transaction already open")
	}
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin sqlite transaction")
	}
	t.tx = tx
	return nil
}

func (t *SQLiteTarget) Commit() error {
	if t.tx == nil {
		return nil
	}
	tx := t.tx
	t.tx = nil
	return tx.Commit()
}

func (t *SQLiteTarget) Rollback() error {
	if t.tx == nil {
		return nil
	}
	tx := t.tx
	t.tx = nil
	return tx.Rollback()
}

func (t *SQLiteTarget) conn() conn {
	if t.tx != nil {
		return t.tx
	}
	return t.db
}

func (t *SQLiteTarget) ServerVersion(ctx context.Context) (string, error) {
	var version string
	err := t.db.GetContext(ctx, &version, "SELECT sqlite_version()")
	return version, err
}

func (t *SQLiteTarget) CreateTableIfNotExists(ctx context.Context, entity *domain.Entity) error {
	var name string
	err := t.conn().GetContext(ctx, &name, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, entity.TargetTable)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	defs := make([]string, len(entity.Properties))
	for i, p := range entity.Properties {
		def := p.Name + " " + columnType(p.Type)
		if !p.Nullable {
			def += " NOT NULL"
		}
		if p.Unique {
			def += " UNIQUE"
		}
		defs[i] = def
	}
	_, err = t.conn().ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", entity.TargetTable, strings.Join(defs, ", ")))
	return err
}

func columnType(vt domain.ValueType) string {
	switch vt {
	case domain.ValueTypeInt, domain.ValueTypeBigInt, domain.ValueTypeBool:
		return "INTEGER"
	case domain.ValueTypeFloat, domain.ValueTypeDouble:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (t *SQLiteTarget) TruncateTable(ctx context.Context, table string) error {
	_, err := t.conn().ExecContext(ctx, "DELETE FROM "+table)
	return err
}

// InsertBatch writes rows through a prepared statement, inside the run
// transaction when one is open and in a transaction of its own otherwise.
func (t *SQLiteTarget) InsertBatch(ctx context.Context, table string, columns []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	if t.tx != nil {
		return insert(ctx, t.tx, table, columns, rows)
	}
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insert(ctx, tx, table, columns, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func insert(ctx context.Context, tx *sqlx.Tx, table string, columns []string, rows [][]interface{}) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for _, row := range rows {
		for i, val := range row {
			args[i] = bindValue(val)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func bindValue(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return val
	}
}
