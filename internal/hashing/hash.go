// Package hashing computes stable fingerprints of scenarios and run
// configurations, so two runs that would write identical data share a hash.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mmrzaf/rowgen/internal/domain"
)

// HashScenario fingerprints everything that influences generated values.
// The description is ignored.
func HashScenario(scenario *domain.Scenario) (string, error) {
	return digest(canonicalScenario(scenario))
}

func digest(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalScenario rebuilds the scenario from maps and slices only.
// encoding/json writes map keys sorted, which makes the output canonical.
func canonicalScenario(scenario *domain.Scenario) map[string]interface{} {
	entities := make([]interface{}, len(scenario.Entities))
	for i, entity := range scenario.Entities {
		props := make([]interface{}, len(entity.Properties))
		for j, p := range entity.Properties {
			props[j] = canonicalProperty(p)
		}
		entities[i] = map[string]interface{}{
			"name":         entity.Name,
			"target_table": entity.TargetTable,
			"rows":         entity.Rows,
			"properties":   props,
		}
	}
	out := map[string]interface{}{
		"id":       scenario.ID,
		"name":     scenario.Name,
		"version":  scenario.Version,
		"entities": entities,
	}
	if scenario.Seed != nil {
		out["seed"] = *scenario.Seed
	}
	return out
}

func canonicalProperty(p domain.Property) map[string]interface{} {
	m := map[string]interface{}{
		"name":     p.Name,
		"type":     p.Type,
		"unique":   p.Unique,
		"nullable": p.Nullable,
		"provider": map[string]interface{}{
			"type":   p.Provider.Type,
			"params": canonicalValue(p.Provider.Params),
		},
	}
	if p.NullRatio != 0 {
		m["null_ratio"] = p.NullRatio
	}
	if len(p.Arguments) > 0 {
		args := make([]interface{}, len(p.Arguments))
		for i, a := range p.Arguments {
			args[i] = map[string]interface{}{"name": a.Name, "properties": a.Properties}
		}
		m["arguments"] = args
	}
	if len(p.Ranges) > 0 {
		m["ranges"] = canonicalRanges(p.Ranges)
	}
	if len(p.ExcludedRanges) > 0 {
		m["excluded_ranges"] = canonicalRanges(p.ExcludedRanges)
	}
	return m
}

func canonicalRanges(rs []domain.WeightedRange) []interface{} {
	out := make([]interface{}, len(rs))
	for i, r := range rs {
		out[i] = map[string]interface{}{"min": canonicalValue(r.Min), "max": canonicalValue(r.Max), "weight": r.Weight}
	}
	return out
}

// canonicalValue normalises yaml's map[interface{}]interface{} and integer
// widths so yaml and json sources hash alike.
func canonicalValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, x := range val {
			out[k] = canonicalValue(x)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, x := range val {
			out[toKey(k)] = canonicalValue(x)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, x := range val {
			out[i] = canonicalValue(x)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}

func toKey(k interface{}) string {
	if s, ok := k.(string); ok {
		return s
	}
	b, _ := json.Marshal(k)
	return string(b)
}
