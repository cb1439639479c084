package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

type PostgresTarget struct {
	dsn    string
	schema string
	db     *sqlx.DB
	tx     *sqlx.Tx
}

func NewPostgresTarget(dsn, schema string) *PostgresTarget {
	if schema == "" {
		schema = "public"
	}
	return &PostgresTarget{dsn: dsn, schema: schema}
}

func (t *PostgresTarget) Kind() string { return domain.TargetKindPostgres }

func (t *PostgresTarget) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", t.dsn)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	t.db = db
	return nil
}

func (t *PostgresTarget) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// Begin opens the run transaction. DDL and TRUNCATE are transactional in
// postgres, so a rolled back run leaves no tables or rows behind.
func (t *PostgresTarget) Begin(ctx context.Context) error {
	if t.tx != nil {
		return errors.New(errors.ErrUnsupportedOperation, "postgres run transaction already open")
	}
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin postgres transaction")
	}
	t.tx = tx
	return nil
}

func (t *PostgresTarget) Commit() error {
	if t.tx == nil {
		return nil
	}
	tx := t.tx
	t.tx = nil
	return tx.Commit()
}

func (t *PostgresTarget) Rollback() error {
	if t.tx == nil {
		return nil
	}
	tx := t.tx
	t.tx = nil
	return tx.Rollback()
}

func (t *PostgresTarget) exec(ctx context.Context, query string) (sql.Result, error) {
	if t.tx != nil {
		return t.tx.ExecContext(ctx, query)
	}
	return t.db.ExecContext(ctx, query)
}

func (t *PostgresTarget) ServerVersion(ctx context.Context) (string, error) {
	var version string
	err := t.db.GetContext(ctx, &version, "SHOW server_version")
	return version, err
}

func (t *PostgresTarget) qualified(table string) string {
	return pq.QuoteIdentifier(t.schema) + "." + pq.QuoteIdentifier(table)
}

func (t *PostgresTarget) CreateTableIfNotExists(ctx context.Context, entity *domain.Entity) error {
	defs := make([]string, len(entity.Properties))
	for i, p := range entity.Properties {
		def := pq.QuoteIdentifier(p.Name) + " " + ColumnType(p.Type)
		if !p.Nullable {
			def += " NOT NULL"
		}
		if p.Unique {
			def += " UNIQUE"
		}
		defs[i] = def
	}
	_, err := t.exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.qualified(entity.TargetTable), strings.Join(defs, ", ")))
	return err
}

func ColumnType(vt domain.ValueType) string {
	switch vt {
	case domain.ValueTypeInt:
		return "INTEGER"
	case domain.ValueTypeBigInt:
		return "BIGINT"
	case domain.ValueTypeFloat:
		return "REAL"
	case domain.ValueTypeDouble:
		return "DOUBLE PRECISION"
	case domain.ValueTypeString:
		return "VARCHAR(255)"
	case domain.ValueTypeBool:
		return "BOOLEAN"
	case domain.ValueTypeTimestamp:
		return "TIMESTAMPTZ"
	case domain.ValueTypeDate:
		return "DATE"
	case domain.ValueTypeUUID:
		return "UUID"
	default:
		return "TEXT"
	}
}

func (t *PostgresTarget) TruncateTable(ctx context.Context, table string) error {
	_, err := t.exec(ctx, "TRUNCATE TABLE "+t.qualified(table))
	return err
}

// InsertBatch streams rows with COPY FROM STDIN, inside the run transaction
// when one is open and in a transaction of its own otherwise.
func (t *PostgresTarget) InsertBatch(ctx context.Context, table string, columns []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	if t.tx != nil {
		return t.copyIn(ctx, t.tx, table, columns, rows)
	}
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := t.copyIn(ctx, tx, table, columns, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *PostgresTarget) copyIn(ctx context.Context, tx *sqlx.Tx, table string, columns []string, rows [][]interface{}) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(t.schema, table, columns...))
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	return stmt.Close()
}
