package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mmrzaf/rowgen/internal/errors"
)

const okScenario = `id: ok
name: ok
entities:
  - name: e
    target_table: e
    rows: 1
    properties:
      - name: id
        type: int
        provider:
          type: uniform_int
          params: {min: 1, max: 2}
`

func TestGetByPath_RejectsPathTraversal(t *testing.T) {
	base := t.TempDir()
	repo := NewFileRepository(base)

	if err := os.WriteFile(filepath.Join(base, "ok.yaml"), []byte(okScenario), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := repo.GetByPath("ok.yaml")
	if err != nil {
		t.Fatalf("expected scenario load inside base dir, got %v", err)
	}
	if len(sc.Entities) != 1 || sc.Entities[0].Properties[0].Provider.Type != "uniform_int" {
		t.Fatalf("unexpected scenario: %+v", sc)
	}

	outsideFile := filepath.Join(t.TempDir(), "outside.yaml")
	if err := os.WriteFile(outsideFile, []byte("id: bad"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByPath(outsideFile); err == nil {
		t.Fatal("expected traversal rejection for outside absolute path")
	}
	if _, err := repo.GetByPath("../outside.yaml"); err == nil {
		t.Fatal("expected traversal rejection for relative path escape")
	}
}

func TestListSkipsBrokenFilesAndDefaultsID(t *testing.T) {
	base := t.TempDir()
	noID := okScenario[len("id: ok\n"):]
	files := map[string]string{
		"people.yaml": noID,
		"broken.yaml": "name: [",
		"legacy.yaml": "name: x\nentities:\n  - name: e\n    columns: []\n",
		"notes.txt":   "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(base, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	repo := NewFileRepository(base)
	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "people" {
		t.Fatalf("expected only people, got %+v", list)
	}
	if _, err := repo.Get("ok"); err != nil {
		t.Fatalf("expected lookup by name, got %v", err)
	}
	if _, err := repo.Get("missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListMissingDir(t *testing.T) {
	list, err := NewFileRepository(filepath.Join(t.TempDir(), "nope")).List()
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v %v", list, err)
	}
}
