package hashing

import "github.com/mmrzaf/rowgen/internal/domain"

type runConfigPayload struct {
	ScenarioHash   string           `json:"scenario_hash"`
	TargetKind     string           `json:"target_kind"`
	TargetSchema   string           `json:"target_schema,omitempty"`
	TargetDSN      string           `json:"target_dsn"`
	TargetDatabase string           `json:"target_database,omitempty"`
	Mode           string           `json:"mode"`
	Scale          float64          `json:"scale"`
	ResolvedCounts map[string]int64 `json:"resolved_counts"`
	Seed           int64            `json:"seed"`
}

// HashRunConfig fingerprints a resolved run: scenario, destination, table
// mode, effective row counts and seed.
func HashRunConfig(scenario *domain.Scenario, target *domain.TargetConfig, mode string, scale float64, resolvedCounts map[string]int64, seed int64) (string, error) {
	sh, err := HashScenario(scenario)
	if err != nil {
		return "", err
	}
	if resolvedCounts == nil {
		resolvedCounts = map[string]int64{}
	}
	return digest(runConfigPayload{
		ScenarioHash:   sh,
		TargetKind:     target.Kind,
		TargetSchema:   target.Schema,
		TargetDSN:      target.DSN,
		TargetDatabase: target.Database,
		Mode:           mode,
		Scale:          scale,
		ResolvedCounts: resolvedCounts,
		Seed:           seed,
	})
}
