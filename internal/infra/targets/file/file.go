// Package file writes generated rows as csv or json lines, one file per table
// or everything to a single stream.
package file

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

type FileTarget struct {
	dir    string
	format string
	stream io.Writer

	mu     sync.Mutex
	tables map[string]*table

	// Set between Begin and Commit/Rollback: tables are written to
	// "<path>.partial" and a stream is spooled to a temp file.
	pending map[string]string
	spool   *os.File
}

type table struct {
	f      *os.File
	w      *bufio.Writer
	csv    *csv.Writer
	header bool
}

// NewFileTarget writes <dir>/<table>.<format>.
func NewFileTarget(dir, format string) *FileTarget {
	if format == "" {
		format = FormatCSV
	}
	return &FileTarget{dir: dir, format: format, tables: map[string]*table{}}
}

// NewStreamTarget writes every table to w. CSV output starts each table with
// its header line; json lines carry the table name in "_table". Between Begin
// and Commit nothing reaches w.
func NewStreamTarget(w io.Writer, format string) *FileTarget {
	t := NewFileTarget("", format)
	t.stream = w
	return t
}

func (t *FileTarget) Kind() string { return domain.TargetKindFile }

func (t *FileTarget) Connect(ctx context.Context) error {
	if t.format != FormatCSV && t.format != FormatJSONL {
		return errors.Newf(errors.ErrConfiguration, "unsupported file format %q", t.format)
	}
	if t.stream != nil {
		return nil
	}
	return os.MkdirAll(t.dir, 0o755)
}

func (t *FileTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeTables()
}

// Begin stages everything the run writes. Existing table files stay untouched
// until Commit renames the staged copies over them.
func (t *FileTarget) Begin(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		return errors.New(errors.ErrUnsupportedOperation, "file run already staged")
	}
	if t.stream != nil {
		spool, err := os.CreateTemp("", "rowgen-*.spool")
		if err != nil {
			return errors.Wrap(err, "create stream spool")
		}
		t.spool = spool
	}
	t.pending = map[string]string{}
	return nil
}

func (t *FileTarget) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return nil
	}
	defer t.discard()
	if err := t.closeTables(); err != nil {
		return err
	}
	for name, staged := range t.pending {
		if err := os.Rename(staged, t.Path(name)); err != nil {
			return errors.Wrapf(err, "publish %s", name)
		}
	}
	if t.spool != nil {
		if _, err := t.spool.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if _, err := io.Copy(t.stream, t.spool); err != nil {
			return errors.Wrap(err, "copy stream spool")
		}
	}
	return nil
}

func (t *FileTarget) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return nil
	}
	defer t.discard()
	return t.closeTables()
}

// discard removes whatever staging is left and leaves the target unstaged.
func (t *FileTarget) discard() {
	for _, staged := range t.pending {
		os.Remove(staged)
	}
	if t.spool != nil {
		t.spool.Close()
		os.Remove(t.spool.Name())
	}
	t.pending = nil
	t.spool = nil
}

func (t *FileTarget) closeTables() error {
	var first error
	for name, tb := range t.tables {
		if err := tb.flush(); err != nil && first == nil {
			first = err
		}
		if tb.f != nil {
			if err := tb.f.Close(); err != nil && first == nil {
				first = err
			}
		}
		delete(t.tables, name)
	}
	return first
}

func (t *FileTarget) Path(tableName string) string {
	return filepath.Join(t.dir, tableName+"."+t.format)
}

func (t *FileTarget) open(name string, truncate bool) (*table, error) {
	if tb, ok := t.tables[name]; ok && !truncate {
		return tb, nil
	}
	if old, ok := t.tables[name]; ok && old.f != nil {
		old.f.Close()
	}

	tb := &table{}
	var w io.Writer = t.stream
	if t.spool != nil {
		w = t.spool
	}
	if t.stream == nil {
		path := t.Path(name)
		if t.pending != nil {
			var err error
			if path, err = t.stage(name, truncate); err != nil {
				return nil, err
			}
		}
		flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if truncate {
			flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			return nil, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		tb.f = f
		tb.header = info.Size() > 0
		w = f
	}
	tb.w = bufio.NewWriter(w)
	if t.format == FormatCSV {
		tb.csv = csv.NewWriter(tb.w)
	}
	t.tables[name] = tb
	return tb, nil
}

// stage returns the staging path of a table, seeding it with the current
// file contents the first time unless the table is being truncated.
func (t *FileTarget) stage(name string, truncate bool) (string, error) {
	staged, ok := t.pending[name]
	if ok {
		return staged, nil
	}
	staged = t.Path(name) + ".partial"
	dst, err := os.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	t.pending[name] = staged
	if truncate {
		return staged, nil
	}
	src, err := os.Open(t.Path(name))
	if os.IsNotExist(err) {
		return staged, nil
	}
	if err != nil {
		return "", err
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.Wrapf(err, "stage %s", name)
	}
	return staged, dst.Close()
}

func (tb *table) flush() error {
	if tb.csv != nil {
		tb.csv.Flush()
		if err := tb.csv.Error(); err != nil {
			return err
		}
	}
	return tb.w.Flush()
}

func (t *FileTarget) CreateTableIfNotExists(ctx context.Context, entity *domain.Entity) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.open(entity.TargetTable, false)
	return err
}

func (t *FileTarget) TruncateTable(ctx context.Context, name string) error {
	if t.stream != nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.open(name, true)
	return err
}

func (t *FileTarget) InsertBatch(ctx context.Context, name string, columns []string, rows [][]interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tb, err := t.open(name, false)
	if err != nil {
		return err
	}

	switch t.format {
	case FormatCSV:
		if !tb.header {
			if err := tb.csv.Write(columns); err != nil {
				return err
			}
			tb.header = true
		}
		record := make([]string, len(columns))
		for _, row := range rows {
			for i, v := range row {
				record[i] = formatCSV(v)
			}
			if err := tb.csv.Write(record); err != nil {
				return err
			}
		}
	case FormatJSONL:
		enc := json.NewEncoder(tb.w)
		for _, row := range rows {
			doc := make(map[string]interface{}, len(columns)+1)
			for i, c := range columns {
				doc[c] = row[i]
			}
			if t.stream != nil {
				doc["_table"] = name
			}
			if err := enc.Encode(doc); err != nil {
				return err
			}
		}
	}
	return tb.flush()
}

func formatCSV(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
