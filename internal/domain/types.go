package domain

import (
	"encoding/json"
	"time"
)

type Scenario struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description" yaml:"description"`
	Seed        *int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Entities    []Entity `json:"entities" yaml:"entities"`
}

type Entity struct {
	Name        string     `json:"name" yaml:"name"`
	TargetTable string     `json:"target_table" yaml:"target_table"`
	Rows        int64      `json:"rows" yaml:"rows"`
	Properties  []Property `json:"properties" yaml:"properties"`
}

// Property is one generated column: a provider bound to a name, plus the
// constraints the engine enforces around it.
type Property struct {
	Name           string            `json:"name" yaml:"name"`
	Type           ValueType         `json:"type" yaml:"type"`
	Unique         bool              `json:"unique,omitempty" yaml:"unique,omitempty"`
	Nullable       bool              `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	NullRatio      float64           `json:"null_ratio,omitempty" yaml:"null_ratio,omitempty"`
	Provider       ProviderSpec      `json:"provider" yaml:"provider"`
	Arguments      []ArgumentBinding `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Ranges         []WeightedRange   `json:"ranges,omitempty" yaml:"ranges,omitempty"`
	ExcludedRanges []WeightedRange   `json:"excluded_ranges,omitempty" yaml:"excluded_ranges,omitempty"`
}

// Upstream returns the names of every property this one takes arguments
// from, in declaration order.
func (p *Property) Upstream() []string {
	var out []string
	for _, a := range p.Arguments {
		out = append(out, a.Properties...)
	}
	return out
}

// FKReference returns the entity and property an fk-backed property draws
// from. ok is false for any other provider or when params are not strings.
func (p *Property) FKReference() (entity, column string, ok bool) {
	if p.Provider.Type != "fk" {
		return "", "", false
	}
	entity, eok := p.Provider.Params["entity"].(string)
	column, cok := p.Provider.Params["column"].(string)
	if !eok || !cok || entity == "" || column == "" {
		return "", "", false
	}
	return entity, column, true
}

// Property returns the named property or nil.
func (e *Entity) Property(name string) *Property {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i]
		}
	}
	return nil
}

// Columns returns property names in declaration order, which is the column
// order sinks write.
func (e *Entity) Columns() []string {
	out := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		out[i] = p.Name
	}
	return out
}

type ValueType string

const (
	ValueTypeInt       ValueType = "int"
	ValueTypeBigInt    ValueType = "bigint"
	ValueTypeFloat     ValueType = "float"
	ValueTypeDouble    ValueType = "double"
	ValueTypeString    ValueType = "string"
	ValueTypeText      ValueType = "text"
	ValueTypeBool      ValueType = "bool"
	ValueTypeTimestamp ValueType = "timestamp"
	ValueTypeDate      ValueType = "date"
	ValueTypeUUID      ValueType = "uuid"
)

// Compatible reports whether a value declared as t can feed an argument
// declared as want. Integer widths and string flavours are interchangeable.
func (t ValueType) Compatible(want ValueType) bool {
	return t.family() == want.family()
}

func (t ValueType) family() ValueType {
	switch t {
	case ValueTypeBigInt:
		return ValueTypeInt
	case ValueTypeDouble:
		return ValueTypeFloat
	case ValueTypeText, ValueTypeUUID:
		return ValueTypeString
	case ValueTypeDate:
		return ValueTypeTimestamp
	default:
		return t
	}
}

type ProviderSpec struct {
	Type   string                 `json:"type" yaml:"type"`
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
}

// ArgumentBinding feeds the values of upstream properties, in order, into the
// provider argument Name.
type ArgumentBinding struct {
	Name       string   `json:"name" yaml:"name"`
	Properties []string `json:"properties" yaml:"properties"`
}

// WeightedRange is an inclusive [Min, Max] interval. Bounds are raw scenario
// values; the owning provider interprets them.
type WeightedRange struct {
	Min    interface{} `json:"min" yaml:"min"`
	Max    interface{} `json:"max" yaml:"max"`
	Weight float64     `json:"weight,omitempty" yaml:"weight,omitempty"`
}

type TargetConfig struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Kind     string            `json:"kind" yaml:"kind"`
	DSN      string            `json:"dsn" yaml:"dsn"`
	Database string            `json:"database,omitempty" yaml:"database,omitempty"`
	Schema   string            `json:"schema,omitempty" yaml:"schema,omitempty"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

const (
	TargetKindSQLite        = "sqlite"
	TargetKindPostgres      = "postgres"
	TargetKindElasticsearch = "elasticsearch"
	TargetKindFile          = "file"
)

type TargetCapabilities struct {
	CanCreate   bool `json:"can_create"`
	CanInsert   bool `json:"can_insert"`
	CanTruncate bool `json:"can_truncate"`
}

type TargetCheck struct {
	ID           string             `json:"id"`
	TargetID     string             `json:"target_id"`
	CheckedAt    time.Time          `json:"checked_at"`
	OK           bool               `json:"ok"`
	LatencyMS    int64              `json:"latency_ms"`
	ServerVer    string             `json:"server_version,omitempty"`
	Error        string             `json:"error,omitempty"`
	Capabilities TargetCapabilities `json:"capabilities"`
}

type Run struct {
	ID                    string          `json:"id"`
	ScenarioID            string          `json:"scenario_id"`
	ScenarioName          string          `json:"scenario_name"`
	ScenarioVersion       string          `json:"scenario_version"`
	TargetID              string          `json:"target_id"`
	TargetName            string          `json:"target_name"`
	TargetKind            string          `json:"target_kind"`
	Seed                  int64           `json:"seed"`
	ConfigHash            string          `json:"config_hash"`
	Mode                  string          `json:"mode"`
	Status                RunStatus       `json:"status"`
	StartedAt             time.Time       `json:"started_at"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
	Stats                 json.RawMessage `json:"stats,omitempty"`
	Error                 string          `json:"error,omitempty"`
	ProgressRowsGenerated int64           `json:"progress_rows_generated"`
	ProgressRowsTotal     int64           `json:"progress_rows_total"`
	ProgressEntitiesDone  int             `json:"progress_entities_done"`
	ProgressEntitiesTotal int             `json:"progress_entities_total"`
	ProgressCurrentEntity string          `json:"progress_current_entity,omitempty"`
}

type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

type RunLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	Level     string    `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RunStats struct {
	EntitiesGenerated int              `json:"entities_generated"`
	TotalRows         int64            `json:"total_rows"`
	DurationSeconds   float64          `json:"duration_seconds"`
	EntityStats       []EntityRunStats `json:"entity_stats"`
}

type EntityRunStats struct {
	EntityName      string           `json:"entity_name"`
	RowsGenerated   int64            `json:"rows_generated"`
	NullsInjected   map[string]int64 `json:"nulls_injected,omitempty"`
	DurationSeconds float64          `json:"duration_seconds"`
}

type RunRequest struct {
	ScenarioID      string             `json:"scenario_id,omitempty"`
	Scenario        *Scenario          `json:"scenario,omitempty"`
	TargetID        string             `json:"target_id,omitempty"`
	Target          *TargetConfig      `json:"target,omitempty"`
	TargetDatabase  string             `json:"target_database,omitempty"`
	Seed            *int64             `json:"seed,omitempty"`
	Mode            string             `json:"mode,omitempty"`
	Scale           *float64           `json:"scale,omitempty"`
	EntityScales    map[string]float64 `json:"entity_scales,omitempty"`
	EntityCounts    map[string]int64   `json:"entity_counts,omitempty"`
	IncludeEntities []string           `json:"include_entities,omitempty"`
	ExcludeEntities []string           `json:"exclude_entities,omitempty"`
}

// RunPlan is the resolved shape of a run without any side effects.
type RunPlan struct {
	ScenarioID     string              `json:"scenario_id"`
	ScenarioName   string              `json:"scenario_name"`
	TargetName     string              `json:"target_name"`
	TargetKind     string              `json:"target_kind"`
	Mode           string              `json:"mode"`
	Seed           int64               `json:"seed"`
	Scale          float64             `json:"scale"`
	ResolvedCounts map[string]int64    `json:"resolved_counts"`
	ExecutionOrder []string            `json:"execution_order"`
	PropertyOrder  map[string][]string `json:"property_order"`
	TotalRows      int64               `json:"total_rows"`
	ConfigHash     string              `json:"config_hash"`
	Warnings       []string            `json:"warnings,omitempty"`
}

const (
	TableModeCreate   = "create"
	TableModeTruncate = "truncate"
	TableModeAppend   = "append"
)
