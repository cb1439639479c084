package runs

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

func openRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo := NewSQLiteRepository(filepath.Join(t.TempDir(), "runs.db"))
	if err := repo.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestInitCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", "deeper", "runs.db")
	repo := NewSQLiteRepository(dbPath)

	if err := repo.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if repo.DB() == nil {
		t.Fatal("expected db handle to be initialized")
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
}

func TestInitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	for i := 0; i < 2; i++ {
		repo := NewSQLiteRepository(path)
		if err := repo.Init(); err != nil {
			t.Fatalf("init #%d: %v", i, err)
		}
		var v int
		if err := repo.DB().Get(&v, `SELECT MAX(version) FROM schema_migrations`); err != nil || v != len(migrations) {
			t.Fatalf("expected schema version %d, got %d (%v)", len(migrations), v, err)
		}
		repo.Close()
	}
}

func TestRunLifecycle(t *testing.T) {
	repo := openRepo(t)
	run := &domain.Run{
		ScenarioID:   "people",
		ScenarioName: "people",
		TargetID:     "t1",
		TargetName:   "local",
		TargetKind:   "sqlite",
		Seed:         42,
		ConfigHash:   "abc",
		Mode:         "create",
		Status:       domain.RunStatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	if err := repo.Create(run); err != nil {
		t.Fatal(err)
	}
	if run.ID == "" {
		t.Fatal("expected generated id")
	}

	if err := repo.UpdateProgress(run.ID, 50, 100, 1, 2, "users"); err != nil {
		t.Fatal(err)
	}
	if err := repo.AppendRunLog(run.ID, "info", "started"); err != nil {
		t.Fatal(err)
	}
	if err := repo.AppendRunLog(run.ID, "info", "done"); err != nil {
		t.Fatal(err)
	}
	stats := &domain.RunStats{EntitiesGenerated: 2, TotalRows: 100}
	if err := repo.UpdateStatus(run.ID, domain.RunStatusSuccess, "", stats); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.RunStatusSuccess || got.CompletedAt == nil || got.Mode != "create" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.ProgressRowsGenerated != 50 || got.ProgressCurrentEntity != "users" {
		t.Fatalf("progress not stored: %+v", got)
	}
	var decoded domain.RunStats
	if err := json.Unmarshal(got.Stats, &decoded); err != nil || decoded.TotalRows != 100 {
		t.Fatalf("stats not stored: %s (%v)", got.Stats, err)
	}

	logs, err := repo.ListRunLogs(run.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 || logs[0].Message != "done" || logs[0].RunID != run.ID {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	list, err := repo.List(10, string(domain.RunStatusSuccess))
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one successful run, got %d (%v)", len(list), err)
	}
	list, _ = repo.List(10, string(domain.RunStatusFailed))
	if len(list) != 0 {
		t.Fatalf("expected no failed runs, got %d", len(list))
	}
}

func TestGetMissingRun(t *testing.T) {
	repo := openRepo(t)
	if _, err := repo.Get("nope"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.UpdateStatus("nope", domain.RunStatusFailed, "x", nil); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
