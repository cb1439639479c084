package validation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/engine"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/registry"
)

// Validator checks scenarios, targets and run requests before anything touches
// a sink. Provider-level checks are delegated to the engine, so a scenario
// that validates here also prepares.
type Validator struct {
	providers *registry.ProviderRegistry
}

// NewValidator returns a validator. providers may be nil when only targets
// and identifiers are checked.
func NewValidator(providers *registry.ProviderRegistry) *Validator {
	return &Validator{providers: providers}
}

// identifiers end up in DDL unquoted, so only plain SQL identifiers pass.
var (
	identRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reservedWords = map[string]struct{}{}
)

func init() {
	for _, w := range strings.Fields(`
		add all alter and any as asc between by case check column constraint
		create cross current_date current_time current_timestamp database
		default delete desc distinct do drop else end except exists false for
		foreign from full grant group having in index inner insert intersect
		into is join key left like limit natural not null offset on or order
		outer primary references returning revoke right schema select set
		table then to true truncate union unique update user using values view
		when where with`) {
		reservedWords[w] = struct{}{}
	}
}

func IsValidIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || !identRe.MatchString(s) {
		return false
	}
	_, reserved := reservedWords[strings.ToLower(s)]
	return !reserved
}

func IsValidMode(mode string) bool {
	switch mode {
	case domain.TableModeCreate, domain.TableModeTruncate, domain.TableModeAppend:
		return true
	default:
		return false
	}
}

func IsValidValueType(t domain.ValueType) bool {
	switch t {
	case domain.ValueTypeInt, domain.ValueTypeBigInt, domain.ValueTypeFloat,
		domain.ValueTypeDouble, domain.ValueTypeString, domain.ValueTypeText,
		domain.ValueTypeBool, domain.ValueTypeTimestamp, domain.ValueTypeDate,
		domain.ValueTypeUUID:
		return true
	default:
		return false
	}
}

func configErr(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrConfiguration, format, args...)
}

func (v *Validator) ValidateScenario(scenario *domain.Scenario) error {
	if scenario.Name == "" {
		return configErr("scenario name is required")
	}
	if len(scenario.Entities) == 0 {
		return configErr("scenario must have at least one entity")
	}

	entityNames := make(map[string]bool)
	for i := range scenario.Entities {
		entity := &scenario.Entities[i]
		if err := v.validateEntity(entity, entityNames); err != nil {
			return errors.WithMessagef(err, "entity '%s'", entity.Name)
		}
	}

	if err := validateReferences(scenario); err != nil {
		return err
	}
	if _, err := TopologicalSort(scenario); err != nil {
		return err
	}

	if v.providers == nil {
		return nil
	}
	eng := engine.New(v.providers)
	for i := range scenario.Entities {
		if err := eng.Check(&scenario.Entities[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateEntity(entity *domain.Entity, entityNames map[string]bool) error {
	if entity.Name == "" {
		return configErr("entity name is required")
	}
	if !IsValidIdentifier(entity.Name) {
		return configErr("invalid entity identifier: %s", entity.Name)
	}
	if entityNames[entity.Name] {
		return configErr("duplicate entity name: %s", entity.Name)
	}
	entityNames[entity.Name] = true

	if entity.TargetTable == "" {
		return configErr("target_table is required")
	}
	if !IsValidIdentifier(entity.TargetTable) {
		return configErr("invalid target_table identifier: %s", entity.TargetTable)
	}
	if entity.Rows <= 0 {
		return configErr("rows must be > 0, got %d", entity.Rows)
	}
	if len(entity.Properties) == 0 {
		return configErr("entity must have at least one property")
	}

	seen := make(map[string]bool)
	for i := range entity.Properties {
		p := &entity.Properties[i]
		if err := v.validateProperty(p, seen); err != nil {
			return errors.WithMessagef(err, "property '%s'", p.Name)
		}
	}
	return nil
}

func (v *Validator) validateProperty(p *domain.Property, seen map[string]bool) error {
	if p.Name == "" {
		return configErr("property name is required")
	}
	if !IsValidIdentifier(p.Name) {
		return configErr("invalid property identifier: %s", p.Name)
	}
	if seen[p.Name] {
		return configErr("duplicate property name: %s", p.Name)
	}
	seen[p.Name] = true

	if p.Type == "" {
		return configErr("property type is required")
	}
	if !IsValidValueType(p.Type) {
		return configErr("invalid property type: %s", p.Type)
	}
	if p.Provider.Type == "" {
		return configErr("provider type is required")
	}
	if v.providers != nil && !v.providers.Has(p.Provider.Type) {
		return configErr("provider not found: %s", p.Provider.Type)
	}
	if p.Provider.Type == "fk" {
		entity, column, ok := p.FKReference()
		if !ok {
			return configErr("fk params 'entity' and 'column' must be non-empty strings")
		}
		if !IsValidIdentifier(entity) || !IsValidIdentifier(column) {
			return configErr("invalid fk reference %s.%s", entity, column)
		}
	}
	return nil
}

// validateReferences checks that every fk points at a declared property of
// another entity.
func validateReferences(scenario *domain.Scenario) error {
	byName := make(map[string]*domain.Entity, len(scenario.Entities))
	for i := range scenario.Entities {
		byName[scenario.Entities[i].Name] = &scenario.Entities[i]
	}
	for _, entity := range scenario.Entities {
		for i := range entity.Properties {
			p := &entity.Properties[i]
			refEntity, refColumn, ok := p.FKReference()
			if !ok {
				continue
			}
			ref, exists := byName[refEntity]
			if !exists {
				return configErr("entity '%s', property '%s': referenced entity '%s' not found", entity.Name, p.Name, refEntity)
			}
			if ref.Property(refColumn) == nil {
				return configErr("entity '%s', property '%s': referenced property '%s.%s' not found", entity.Name, p.Name, refEntity, refColumn)
			}
		}
	}
	return nil
}

// TopologicalSort orders entities so that every fk target is generated
// before the entities reading from it. Ready entities go in name order.
func TopologicalSort(scenario *domain.Scenario) ([]string, error) {
	dependents := make(map[string][]string)
	inDegree := make(map[string]int, len(scenario.Entities))
	for _, entity := range scenario.Entities {
		if _, ok := inDegree[entity.Name]; !ok {
			inDegree[entity.Name] = 0
		}
	}
	for _, entity := range scenario.Entities {
		deps := map[string]bool{}
		for i := range entity.Properties {
			ref, _, ok := entity.Properties[i].FKReference()
			if !ok || deps[ref] {
				continue
			}
			if _, known := inDegree[ref]; !known {
				continue
			}
			deps[ref] = true
			dependents[ref] = append(dependents[ref], entity.Name)
			inDegree[entity.Name]++
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(inDegree))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		for _, dep := range dependents[node] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
		sort.Strings(queue)
	}

	if len(result) != len(inDegree) {
		var cyclic []string
		for name, degree := range inDegree {
			if degree > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return nil, errors.Newf(errors.ErrDependencyCycle, "cycle in entity references among %s", strings.Join(cyclic, ", "))
	}
	return result, nil
}

func (v *Validator) ValidateTarget(t *domain.TargetConfig) error {
	if t.Name == "" {
		return configErr("target name is required")
	}
	if t.Kind == "" {
		return configErr("target kind is required")
	}
	if t.DSN == "" {
		return configErr("target dsn is required")
	}

	switch t.Kind {
	case domain.TargetKindPostgres:
		if t.Database != "" && !IsValidIdentifier(t.Database) {
			return configErr("invalid target database identifier: %s", t.Database)
		}
		if t.Schema != "" && !IsValidIdentifier(t.Schema) {
			return configErr("invalid target schema identifier: %s", t.Schema)
		}
	case domain.TargetKindSQLite, domain.TargetKindElasticsearch, domain.TargetKindFile:
		if t.Schema != "" {
			return configErr("%s targets must not set schema", t.Kind)
		}
		if t.Database != "" {
			return configErr("%s targets must not set database", t.Kind)
		}
		if t.Kind == domain.TargetKindFile {
			switch t.Options["format"] {
			case "", "csv", "jsonl":
			default:
				return configErr("unsupported file format: %s", t.Options["format"])
			}
		}
	default:
		return configErr("unsupported target kind: %s", t.Kind)
	}
	return nil
}

func (v *Validator) ValidateRunRequest(req *domain.RunRequest) error {
	hasScenarioID := req.ScenarioID != ""
	hasScenario := req.Scenario != nil
	if hasScenarioID == hasScenario {
		return configErr("exactly one of scenario_id or scenario must be provided")
	}

	hasTargetID := req.TargetID != ""
	hasTarget := req.Target != nil
	if hasTargetID == hasTarget {
		return configErr("exactly one of target_id or target must be provided")
	}

	if req.Mode == "" {
		return configErr("mode is required")
	}
	if !IsValidMode(req.Mode) {
		return configErr("invalid mode: %s", req.Mode)
	}
	if req.Scale != nil && *req.Scale <= 0 {
		return configErr("scale must be > 0, got %v", *req.Scale)
	}
	if req.TargetDatabase != "" && !IsValidIdentifier(req.TargetDatabase) {
		return configErr("invalid target_database identifier: %s", req.TargetDatabase)
	}
	for k, s := range req.EntityScales {
		if !IsValidIdentifier(k) {
			return configErr("invalid entity name in entity_scales: %s", k)
		}
		if s <= 0 {
			return configErr("entity_scales[%s] must be > 0, got %v", k, s)
		}
	}
	for k, n := range req.EntityCounts {
		if !IsValidIdentifier(k) {
			return configErr("invalid entity name in entity_counts: %s", k)
		}
		if n <= 0 {
			return configErr("entity_counts[%s] must be > 0, got %d", k, n)
		}
	}
	for _, name := range append(append([]string{}, req.IncludeEntities...), req.ExcludeEntities...) {
		if !IsValidIdentifier(name) {
			return configErr("invalid entity name in include/exclude list: %s", name)
		}
	}

	if req.Scenario != nil {
		if err := v.ValidateScenario(req.Scenario); err != nil {
			return errors.WithMessage(err, "scenario validation failed")
		}
	}
	if req.Target != nil {
		if err := v.ValidateTarget(req.Target); err != nil {
			return errors.WithMessage(err, "target validation failed")
		}
	}
	return nil
}
