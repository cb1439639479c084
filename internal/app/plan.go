package app

import (
	"fmt"
	"math"
	"sort"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/engine"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/hashing"
	"github.com/mmrzaf/rowgen/internal/validation"
)

type resolvedRun struct {
	scenario *domain.Scenario
	target   *domain.TargetConfig
	plan     *domain.RunPlan
}

// PlanRun resolves a request exactly as StartRun would, without creating a
// run or touching the target.
func (s *RunService) PlanRun(req *domain.RunRequest) (*domain.RunPlan, error) {
	resolved, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	return resolved.plan, nil
}

func (s *RunService) resolve(in *domain.RunRequest) (*resolvedRun, error) {
	if in == nil {
		return nil, errors.New(errors.ErrConfiguration, "run request is required")
	}
	req := *in
	if req.Mode == "" {
		req.Mode = s.defaultMode
	}
	if err := s.validator.ValidateRunRequest(&req); err != nil {
		return nil, errors.WithMessage(err, "invalid run request")
	}

	scenario := req.Scenario
	if req.ScenarioID != "" {
		var err error
		scenario, err = s.scenarioRepo.Get(req.ScenarioID)
		if err != nil {
			return nil, errors.WithMessage(err, "load scenario")
		}
		if err := s.validator.ValidateScenario(scenario); err != nil {
			return nil, errors.WithMessage(err, "scenario validation failed")
		}
	}

	base := req.Target
	if req.TargetID != "" {
		var err error
		base, err = s.targetReader().Get(req.TargetID)
		if err != nil {
			return nil, errors.WithMessage(err, "load target")
		}
	}
	target := resolveTargetForRun(base, req.TargetDatabase)
	if err := s.validator.ValidateTarget(target); err != nil {
		return nil, errors.WithMessage(err, "target validation failed")
	}

	var seed int64
	switch {
	case req.Seed != nil:
		seed = *req.Seed
	case scenario.Seed != nil:
		seed = *scenario.Seed
	default:
		seed = generateSeed()
	}

	scale := 1.0
	if req.Scale != nil {
		scale = *req.Scale
	}

	selected, warnings, err := selectEntities(scenario, req.IncludeEntities, req.ExcludeEntities)
	if err != nil {
		return nil, err
	}
	counts, countWarnings := resolveCounts(scenario, selected, scale, req.EntityScales, req.EntityCounts)
	warnings = append(warnings, countWarnings...)

	order, err := validation.TopologicalSort(scenario)
	if err != nil {
		return nil, err
	}
	plan := &domain.RunPlan{
		ScenarioID:     scenario.ID,
		ScenarioName:   scenario.Name,
		TargetName:     target.Name,
		TargetKind:     target.Kind,
		Mode:           req.Mode,
		Seed:           seed,
		Scale:          scale,
		ResolvedCounts: counts,
		PropertyOrder:  map[string][]string{},
		Warnings:       warnings,
	}
	for _, name := range order {
		if !selected[name] {
			continue
		}
		plan.ExecutionOrder = append(plan.ExecutionOrder, name)
		plan.TotalRows += counts[name]
	}
	for i := range scenario.Entities {
		entity := &scenario.Entities[i]
		if !selected[entity.Name] {
			continue
		}
		props, err := engine.OrderProperties(entity)
		if err != nil {
			return nil, errors.WithMessagef(err, "entity '%s'", entity.Name)
		}
		names := make([]string, len(props))
		for j, p := range props {
			names[j] = p.Name
		}
		plan.PropertyOrder[entity.Name] = names
	}

	plan.ConfigHash, err = hashing.HashRunConfig(scenario, target, req.Mode, scale, counts, seed)
	if err != nil {
		return nil, errors.Wrap(err, "hash run config")
	}
	return &resolvedRun{scenario: scenario, target: target, plan: plan}, nil
}

// selectEntities applies include then exclude lists. An entity whose fk
// source is left out cannot be generated, so that is an error.
func selectEntities(scenario *domain.Scenario, include, exclude []string) (map[string]bool, []string, error) {
	known := make(map[string]bool, len(scenario.Entities))
	for _, e := range scenario.Entities {
		known[e.Name] = true
	}

	var warnings []string
	selected := make(map[string]bool, len(scenario.Entities))
	if len(include) == 0 {
		for name := range known {
			selected[name] = true
		}
	}
	for _, name := range include {
		if !known[name] {
			warnings = append(warnings, fmt.Sprintf("include_entities: unknown entity %q ignored", name))
			continue
		}
		selected[name] = true
	}
	for _, name := range exclude {
		if !known[name] {
			warnings = append(warnings, fmt.Sprintf("exclude_entities: unknown entity %q ignored", name))
			continue
		}
		delete(selected, name)
	}
	if len(selected) == 0 {
		return nil, nil, errors.New(errors.ErrConfiguration, "no entities selected")
	}

	for _, e := range scenario.Entities {
		if !selected[e.Name] {
			continue
		}
		for i := range e.Properties {
			ref, _, ok := e.Properties[i].FKReference()
			if ok && !selected[ref] {
				return nil, nil, errors.Newf(errors.ErrConfiguration,
					"entity '%s' references '%s', which is not selected", e.Name, ref)
			}
		}
	}
	return selected, warnings, nil
}

// resolveCounts computes rows per selected entity. Explicit counts win over
// scale * entity scale.
func resolveCounts(scenario *domain.Scenario, selected map[string]bool, scale float64, entityScales map[string]float64, entityCounts map[string]int64) (map[string]int64, []string) {
	known := make(map[string]bool, len(scenario.Entities))
	counts := make(map[string]int64, len(selected))
	for _, e := range scenario.Entities {
		known[e.Name] = true
		if !selected[e.Name] {
			continue
		}
		f := scale
		if es, ok := entityScales[e.Name]; ok {
			f *= es
		}
		n := int64(math.Round(float64(e.Rows) * f))
		if n < 1 {
			n = 1
		}
		if c, ok := entityCounts[e.Name]; ok {
			n = c
		}
		counts[e.Name] = n
	}

	var warnings []string
	for _, name := range sortedKeys(entityScales) {
		warnings = append(warnings, overrideWarning("entity_scales", name, known, selected)...)
	}
	for _, name := range sortedKeys(entityCounts) {
		warnings = append(warnings, overrideWarning("entity_counts", name, known, selected)...)
	}
	return counts, warnings
}

func overrideWarning(field, name string, known, selected map[string]bool) []string {
	switch {
	case !known[name]:
		return []string{fmt.Sprintf("%s: unknown entity %q ignored", field, name)}
	case !selected[name]:
		return []string{fmt.Sprintf("%s: entity %q is not selected and was ignored", field, name)}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
