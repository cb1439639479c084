package hashing

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mmrzaf/rowgen/internal/domain"
)

func scenario() *domain.Scenario {
	return &domain.Scenario{
		ID:      "s1",
		Name:    "scenario",
		Version: "1.0.0",
		Entities: []domain.Entity{
			{
				Name:        "users",
				TargetTable: "users",
				Rows:        10,
				Properties: []domain.Property{
					{Name: "id", Type: domain.ValueTypeInt, Provider: domain.ProviderSpec{Type: "uniform_int", Params: map[string]interface{}{"min": 1, "max": 10}}},
				},
			},
		},
	}
}

func TestHashRunConfig_IncludesModeSeedAndResolvedCounts(t *testing.T) {
	sc := scenario()
	tg := &domain.TargetConfig{Kind: "postgres", DSN: "postgres://localhost:5432/app?sslmode=disable"}

	h1, err := HashRunConfig(sc, tg, "create", 1.0, map[string]int64{"users": 10}, 11)
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := HashRunConfig(sc, tg, "truncate", 1.0, map[string]int64{"users": 10}, 11)
	h3, _ := HashRunConfig(sc, tg, "create", 1.0, map[string]int64{"users": 20}, 11)
	h4, _ := HashRunConfig(sc, tg, "create", 1.0, map[string]int64{"users": 10}, 12)
	h5, _ := HashRunConfig(sc, tg, "create", 1.0, map[string]int64{"users": 10}, 11)

	if h1 == h2 {
		t.Fatal("expected mode to affect hash")
	}
	if h1 == h3 {
		t.Fatal("expected resolved counts to affect hash")
	}
	if h1 == h4 {
		t.Fatal("expected seed to affect hash")
	}
	if h1 != h5 {
		t.Fatal("expected identical inputs to hash identically")
	}
}

func TestHashScenarioIgnoresDescriptionButNotConstraints(t *testing.T) {
	base, err := HashScenario(scenario())
	if err != nil {
		t.Fatal(err)
	}

	described := scenario()
	described.Description = "docs only"
	if h, _ := HashScenario(described); h != base {
		t.Fatal("description must not change the hash")
	}

	unique := scenario()
	unique.Entities[0].Properties[0].Unique = true
	if h, _ := HashScenario(unique); h == base {
		t.Fatal("unique flag must change the hash")
	}

	ranged := scenario()
	ranged.Entities[0].Properties[0].Ranges = []domain.WeightedRange{{Min: 1, Max: 3, Weight: 1}}
	if h, _ := HashScenario(ranged); h == base {
		t.Fatal("ranges must change the hash")
	}
}

func TestHashScenarioSameForYAMLSource(t *testing.T) {
	src := `
id: s1
name: scenario
version: 1.0.0
entities:
  - name: users
    target_table: users
    rows: 10
    properties:
      - name: id
        type: int
        provider: {type: uniform_int, params: {min: 1, max: 10}}
`
	var fromYAML domain.Scenario
	if err := yaml.Unmarshal([]byte(src), &fromYAML); err != nil {
		t.Fatal(err)
	}
	a, _ := HashScenario(&fromYAML)
	b, _ := HashScenario(scenario())
	if a != b {
		t.Fatal("expected yaml and literal scenarios to hash alike")
	}
}
