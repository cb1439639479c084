package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
)

func TestSQLiteTargetRoundTrip(t *testing.T) {
	ctx := context.Background()
	tgt := NewSQLiteTarget(filepath.Join(t.TempDir(), "out.db"))
	if err := tgt.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer tgt.Close()

	entity := &domain.Entity{
		Name:        "users",
		TargetTable: "users",
		Properties: []domain.Property{
			{Name: "id", Type: domain.ValueTypeInt, Unique: true},
			{Name: "active", Type: domain.ValueTypeBool},
			{Name: "seen_at", Type: domain.ValueTypeTimestamp, Nullable: true},
		},
	}
	for i := 0; i < 2; i++ {
		if err := tgt.CreateTableIfNotExists(ctx, entity); err != nil {
			t.Fatalf("create #%d: %v", i, err)
		}
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := [][]interface{}{{int64(1), true, at}, {int64(2), false, nil}}
	if err := tgt.InsertBatch(ctx, "users", []string{"id", "active", "seen_at"}, rows); err != nil {
		t.Fatal(err)
	}

	var got []struct {
		ID     int64   `db:"id"`
		Active int     `db:"active"`
		SeenAt *string `db:"seen_at"`
	}
	if err := tgt.db.SelectContext(ctx, &got, "SELECT id, active, seen_at FROM users ORDER BY id"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Active != 1 || got[1].SeenAt != nil || *got[0].SeenAt != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected rows: %+v", got)
	}

	if err := tgt.InsertBatch(ctx, "users", []string{"id", "active", "seen_at"}, [][]interface{}{{int64(1), true, nil}}); err == nil {
		t.Fatal("expected unique violation")
	}

	if err := tgt.TruncateTable(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := tgt.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil || n != 0 {
		t.Fatalf("expected empty table, n=%d err=%v", n, err)
	}
	if v, err := tgt.ServerVersion(ctx); err != nil || v == "" {
		t.Fatalf("expected sqlite version, got %q %v", v, err)
	}
}

func TestSQLiteTargetRollbackDiscardsRun(t *testing.T) {
	ctx := context.Background()
	tgt := NewSQLiteTarget(filepath.Join(t.TempDir(), "out.db"))
	if err := tgt.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer tgt.Close()

	entity := &domain.Entity{
		Name:        "tags",
		TargetTable: "tags",
		Properties:  []domain.Property{{Name: "name", Type: domain.ValueTypeString}},
	}
	if err := tgt.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tgt.CreateTableIfNotExists(ctx, entity); err != nil {
		t.Fatal(err)
	}
	if err := tgt.InsertBatch(ctx, "tags", []string{"name"}, [][]interface{}{{"a"}, {"b"}}); err != nil {
		t.Fatal(err)
	}
	if err := tgt.Rollback(); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := tgt.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'tags'"); err != nil || n != 0 {
		t.Fatalf("expected rolled back table to be gone, n=%d err=%v", n, err)
	}

	if err := tgt.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tgt.CreateTableIfNotExists(ctx, entity); err != nil {
		t.Fatal(err)
	}
	if err := tgt.InsertBatch(ctx, "tags", []string{"name"}, [][]interface{}{{"c"}}); err != nil {
		t.Fatal(err)
	}
	if err := tgt.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := tgt.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM tags"); err != nil || n != 1 {
		t.Fatalf("expected one committed row, n=%d err=%v", n, err)
	}
}
