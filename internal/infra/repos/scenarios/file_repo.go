package scenarios

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

type Repository interface {
	List() ([]*domain.Scenario, error)
	Get(id string) (*domain.Scenario, error)
	GetByPath(path string) (*domain.Scenario, error)
}

// FileRepository reads scenarios from yaml or json files in one directory.
// Files that fail to decode are skipped by List and reported by GetByPath.
type FileRepository struct {
	baseDir string
}

func NewFileRepository(baseDir string) *FileRepository {
	return &FileRepository{baseDir: baseDir}
}

func isScenarioFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (r *FileRepository) List() ([]*domain.Scenario, error) {
	entries, err := os.ReadDir(r.baseDir)
	if os.IsNotExist(err) {
		return []*domain.Scenario{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Scenario, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}
		sc, err := Load(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get matches on id first, then on name.
func (r *FileRepository) Get(id string) (*domain.Scenario, error) {
	list, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		if s.ID == id {
			return s, nil
		}
	}
	for _, s := range list {
		if s.Name == id {
			return s, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "scenario not found: %s", id)
}

// GetByPath loads a scenario file that must live under the repository
// directory. Relative paths are resolved against it.
func (r *FileRepository) GetByPath(path string) (*domain.Scenario, error) {
	base, err := filepath.Abs(r.baseDir)
	if err != nil {
		return nil, err
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(base, full)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errors.Newf(errors.ErrConfiguration, "scenario path %s is outside %s", path, r.baseDir)
	}
	return Load(full)
}

// Load decodes one scenario file. Unknown fields are rejected. A missing id
// defaults to the file name without extension.
func Load(path string) (*domain.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Decode(data, filepath.Ext(path) == ".json")
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	if sc.ID == "" {
		sc.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

func Decode(data []byte, isJSON bool) (*domain.Scenario, error) {
	var sc domain.Scenario
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&sc); err != nil {
			return nil, errors.Newf(errors.ErrConfiguration, "invalid scenario json: %v", err)
		}
		return &sc, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, errors.Newf(errors.ErrConfiguration, "invalid scenario yaml: %v", err)
	}
	return &sc, nil
}
