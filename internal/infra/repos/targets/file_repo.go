package targets

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

// FileRepository reads target definitions from yaml files. Environment
// variables in the dsn are expanded, so credentials can stay out of the file.
type FileRepository struct {
	baseDir string
}

func NewFileRepository(baseDir string) *FileRepository {
	return &FileRepository{baseDir: baseDir}
}

func (r *FileRepository) List() ([]*domain.TargetConfig, error) {
	entries, err := os.ReadDir(r.baseDir)
	if os.IsNotExist(err) {
		return []*domain.TargetConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]*domain.TargetConfig, 0, len(entries))
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		t, err := loadTarget(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *FileRepository) Get(id string) (*domain.TargetConfig, error) {
	list, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		if t.ID == id || t.Name == id {
			return t, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "target not found: %s", id)
}

func loadTarget(path string) (*domain.TargetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t domain.TargetConfig
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	if t.ID == "" {
		t.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	t.DSN = os.ExpandEnv(t.DSN)
	return &t, nil
}

// Chain looks targets up in each reader in turn; the first hit wins.
type Chain []Reader

func (c Chain) Get(id string) (*domain.TargetConfig, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		t, err := r.Get(id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "target not found: %s", id)
}

// List merges readers, dropping later targets whose name is already taken.
func (c Chain) List() ([]*domain.TargetConfig, error) {
	seen := map[string]bool{}
	var out []*domain.TargetConfig
	for _, r := range c {
		if r == nil {
			continue
		}
		list, err := r.List()
		if err != nil {
			return nil, err
		}
		for _, t := range list {
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// GetByPath loads a single target file, which need not live in the
// repository directory.
func (r *FileRepository) GetByPath(path string) (*domain.TargetConfig, error) {
	return loadTarget(path)
}
