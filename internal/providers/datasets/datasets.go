// Package datasets serves the small reference tables embedded in the binary.
// Each table is parsed once per process.
package datasets

import (
	"embed"
	"encoding/json"
	"sync"

	"github.com/mmrzaf/rowgen/internal/errors"
)

//go:embed data/*.json
var files embed.FS

type MimeType struct {
	MimeType     string   `json:"mimeType"`
	Extension    string   `json:"extension"`
	Category     string   `json:"category"`
	Name         string   `json:"name"`
	Aliases      []string `json:"aliases"`
	DeprecatedBy string   `json:"deprecatedBy"`
	IsCommon     bool     `json:"isCommon"`
}

type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Country struct {
	Alpha2    string   `json:"alpha2"`
	Alpha3    string   `json:"alpha3"`
	Name      string   `json:"name"`
	Continent string   `json:"continent"`
	Capital   string   `json:"capital"`
	Regions   []Region `json:"regions"`
}

type FileType struct {
	Extension string `json:"extension"`
	Category  string `json:"category"`
	MimeType  string `json:"mimeType"`
}

// AvatarFacets lists the candidate values of every avatar facet.
type AvatarFacets struct {
	HairColors  []string `json:"hairColors"`
	HatColors   []string `json:"hatColors"`
	SkinColors  []string `json:"skinColors"`
	Eyes        []string `json:"eyes"`
	Mouths      []string `json:"mouths"`
	Accessories []string `json:"accessories"`
}

var (
	mu    sync.Mutex
	cache = map[string]interface{}{}
)

// load parses data/<name>.json into a fresh T and caches it by name.
func load[T any](name string) (T, error) {
	mu.Lock()
	defer mu.Unlock()

	if v, ok := cache[name]; ok {
		return v.(T), nil
	}

	var out T
	raw, err := files.ReadFile("data/" + name + ".json")
	if err != nil {
		return out, errors.Newf(errors.ErrNotFound, "dataset %s: %v", name, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Newf(errors.ErrConfiguration, "dataset %s: %v", name, err)
	}
	cache[name] = out
	return out, nil
}

// The returned slices are shared; callers must not modify them.

func MimeTypes() ([]MimeType, error) {
	return load[[]MimeType]("mime_types")
}

func Countries() ([]Country, error) {
	return load[[]Country]("countries")
}

func FileTypes() ([]FileType, error) {
	return load[[]FileType]("file_types")
}

func Avatar() (AvatarFacets, error) {
	return load[AvatarFacets]("avatar")
}

func Words() ([]string, error) {
	return load[[]string]("words")
}

// Cached reports whether a table has already been parsed.
func Cached(name string) bool {
	mu.Lock()
	defer mu.Unlock()
	_, ok := cache[name]
	return ok
}
