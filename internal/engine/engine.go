// Package engine turns an entity's property declarations into rows. It
// orders properties by their argument dependencies, drives every provider
// through its lifecycle, and enforces uniqueness and null ratios while
// generating rows one at a time.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/logging"
	"github.com/mmrzaf/rowgen/internal/metrics"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/random"
	"github.com/mmrzaf/rowgen/internal/uniqueness"
)

// Providers creates a fresh provider for a provider type name.
type Providers interface {
	New(name string) (provider.Provider, error)
}

type Engine struct {
	providers    Providers
	logger       *logging.Logger
	store        uniqueness.Store
	entityValues map[string][]interface{}
}

type Option func(*Engine)

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithExcludedStore sets where unique properties keep their excluded sets.
// The caller owns the store and closes it.
func WithExcludedStore(s uniqueness.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithEntityValues exposes values of already generated entities to fk
// providers, keyed by "entity.property".
func WithEntityValues(values map[string][]interface{}) Option {
	return func(e *Engine) { e.entityValues = values }
}

func New(providers Providers, opts ...Option) *Engine {
	e := &Engine{
		providers: providers,
		logger:    logging.Nop(),
		store:     uniqueness.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Stats struct {
	Entity        string           `json:"entity"`
	Rows          int64            `json:"rows"`
	NullsInjected map[string]int64 `json:"nulls_injected,omitempty"`
	Elapsed       time.Duration    `json:"elapsed"`
}

// Plan is a prepared entity: providers loaded, arguments bound, excluded sets
// created. A plan generates its rows once.
type Plan struct {
	entity  *domain.Entity
	rows    int64
	rnd     *random.Randomizer
	steps   []*step
	values  map[string][]interface{}
	logger  *logging.Logger
	started bool
}

type step struct {
	prop     *domain.Property
	provider provider.Provider
	args     []boundArgument
	set      uniqueness.Set
	weights  []float64
}

type boundArgument struct {
	name     string
	spec     provider.ArgumentSpec
	upstream []string
}

func wrap(err error, entity, prop string) error {
	return errors.WithMessagef(err, "entity '%s', property '%s'", entity, prop)
}

// Prepare validates an entity against its providers and loads them in
// dependency order. Every provider shares rnd, so the draw sequence is fixed
// by the property order and the row count.
func (e *Engine) Prepare(entity *domain.Entity, rnd *random.Randomizer, rows int64) (*Plan, error) {
	if rows < 0 {
		return nil, errors.Newf(errors.ErrConfiguration, "entity '%s': row count cannot be negative", entity.Name)
	}
	ordered, err := OrderProperties(entity)
	if err != nil {
		return nil, err
	}
	types := make(map[string]domain.ValueType, len(entity.Properties))
	for _, p := range entity.Properties {
		types[p.Name] = p.Type
	}

	plan := &Plan{
		entity: entity,
		rows:   rows,
		rnd:    rnd,
		values: e.entityValues,
		logger: e.logger.With(map[string]any{"entity": entity.Name}),
	}

	for _, prop := range ordered {
		s, err := e.prepareStep(entity, prop, types, rnd, rows)
		if err != nil {
			return nil, wrap(err, entity.Name, prop.Name)
		}
		plan.steps = append(plan.steps, s)
	}

	plan.logger.Debugw("engine.prepared", map[string]any{"rows": rows, "order": plan.Order()})
	return plan, nil
}

func (e *Engine) prepareStep(entity *domain.Entity, prop *domain.Property, types map[string]domain.ValueType, rnd *random.Randomizer, rows int64) (*step, error) {
	p, err := e.providers.New(prop.Provider.Type)
	if err != nil {
		return nil, err
	}
	s := &step{prop: prop, provider: p}

	supported := p.SupportedArguments()
	bound := map[string]bool{}
	for _, b := range prop.Arguments {
		spec, ok := supported[b.Name]
		if !ok {
			return nil, errors.Newf(errors.ErrConfiguration, "provider %s does not support argument '%s'", prop.Provider.Type, b.Name)
		}
		if bound[b.Name] {
			return nil, errors.Newf(errors.ErrConfiguration, "argument '%s' bound twice", b.Name)
		}
		bound[b.Name] = true
		if len(b.Properties) == 0 {
			return nil, errors.Newf(errors.ErrConfiguration, "argument '%s' binds no properties", b.Name)
		}
		if !spec.Multiple && len(b.Properties) > 1 {
			return nil, errors.Newf(errors.ErrConfiguration, "argument '%s' takes a single property, got %d", b.Name, len(b.Properties))
		}
		for _, up := range b.Properties {
			if !types[up].Compatible(spec.Type) {
				return nil, errors.Newf(errors.ErrConfiguration, "argument '%s' expects %s but property '%s' is %s", b.Name, spec.Type, up, types[up])
			}
		}
		s.args = append(s.args, boundArgument{name: b.Name, spec: spec, upstream: b.Properties})
	}
	for name, spec := range supported {
		if spec.Required && !bound[name] {
			return nil, errors.Newf(errors.ErrConfiguration, "required argument '%s' is not bound", name)
		}
	}

	if prop.NullRatio < 0 || prop.NullRatio > 1 {
		return nil, errors.Newf(errors.ErrConfiguration, "null_ratio %g outside [0,1]", prop.NullRatio)
	}
	if !prop.Nullable && prop.NullRatio > 0 {
		return nil, errors.New(errors.ErrConfiguration, "null_ratio set on a non-nullable property")
	}
	if len(prop.Ranges) > 0 && len(prop.ExcludedRanges) > 0 {
		return nil, errors.New(errors.ErrConfiguration, "ranges and excluded_ranges are mutually exclusive")
	}

	p.InitializeRandomizer(rnd)
	if err := p.Load(prop, rows); err != nil {
		return nil, err
	}

	if err := checkRanges(p, prop); err != nil {
		return nil, err
	}
	for _, r := range prop.Ranges {
		s.weights = append(s.weights, r.Weight)
	}

	if prop.Unique {
		set, err := e.store.NewSet(entity.Name, prop.Name)
		if err != nil {
			return nil, err
		}
		s.set = set
	}
	return s, nil
}

// checkRanges validates range bounds with the provider's ordering.
func checkRanges(p provider.Provider, prop *domain.Property) error {
	if len(prop.Ranges) == 0 && len(prop.ExcludedRanges) == 0 {
		return nil
	}
	ordered, ok := p.(provider.Ordered)
	if !ok {
		return errors.Newf(errors.ErrUnsupportedOperation, "provider %s has no ordered domain; ranges are not supported", prop.Provider.Type)
	}
	for _, r := range prop.Ranges {
		if !(r.Weight > 0) {
			return errors.Newf(errors.ErrConfiguration, "range [%v, %v] needs a positive weight", r.Min, r.Max)
		}
	}
	all := append(append([]domain.WeightedRange(nil), prop.Ranges...), prop.ExcludedRanges...)
	for _, r := range all {
		c, err := ordered.Compare(r.Min, r.Max)
		if err != nil {
			return err
		}
		if c > 0 {
			return errors.Newf(errors.ErrConfiguration, "range min %v is greater than max %v", r.Min, r.Max)
		}
	}

	excl := append([]domain.WeightedRange(nil), prop.ExcludedRanges...)
	var sortErr error
	sort.SliceStable(excl, func(i, j int) bool {
		c, err := ordered.Compare(excl[i].Min, excl[j].Min)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return sortErr
	}
	for i := 1; i < len(excl); i++ {
		c, err := ordered.Compare(excl[i].Min, excl[i-1].Max)
		if err != nil {
			return err
		}
		if c <= 0 {
			return errors.Newf(errors.ErrConfiguration, "excluded ranges [%v, %v] and [%v, %v] overlap",
				excl[i-1].Min, excl[i-1].Max, excl[i].Min, excl[i].Max)
		}
	}
	return nil
}

// Check prepares entity without generating, to surface configuration errors.
func (e *Engine) Check(entity *domain.Entity) error {
	check := &Engine{providers: e.providers, logger: e.logger, store: uniqueness.NewMemoryStore(), entityValues: e.entityValues}
	_, err := check.Prepare(entity, random.NewSeeded(0), entity.Rows)
	return err
}

// GenerateAll prepares and generates entity in memory. On failure no rows
// are returned.
func (e *Engine) GenerateAll(ctx context.Context, entity *domain.Entity, seed *int64) ([]*domain.Row, error) {
	plan, err := e.Prepare(entity, random.New(seed), entity.Rows)
	if err != nil {
		return nil, err
	}
	rows := make([]*domain.Row, 0, entity.Rows)
	if _, err := plan.Generate(ctx, func(r *domain.Row) error {
		rows = append(rows, r)
		return nil
	}); err != nil {
		return nil, err
	}
	return rows, nil
}

// Order returns the property names in generation order.
func (p *Plan) Order() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.prop.Name
	}
	return names
}

func (p *Plan) Rows() int64 {
	return p.rows
}

// Generate produces the plan's rows in order and hands each to emit. The
// context is checked between rows. The first error aborts generation.
func (p *Plan) Generate(ctx context.Context, emit func(*domain.Row) error) (*Stats, error) {
	if p.started {
		return nil, errors.New(errors.ErrConfiguration, "plan already generated")
	}
	p.started = true

	start := time.Now()
	stats := &Stats{Entity: p.entity.Name, NullsInjected: map[string]int64{}}
	defer func() { stats.Elapsed = time.Since(start) }()

	rowsCounter := metrics.CounterRowsGenerated.WithLabelValues(p.entity.Name)
	for i := int64(0); i < p.rows; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		row := domain.NewRow(i, len(p.steps))
		for _, s := range p.steps {
			v, injected, err := p.value(s, row)
			if err != nil {
				metrics.CounterGenerationErrors.WithLabelValues(string(errors.CodeOf(err))).Inc()
				p.logger.Errorw("engine.row_failed", map[string]any{"property": s.prop.Name, "row": i, "error": err})
				return stats, errors.WithMessagef(err, "entity '%s', property '%s', row %d", p.entity.Name, s.prop.Name, i)
			}
			if injected {
				stats.NullsInjected[s.prop.Name]++
			}
			row.Set(s.prop.Name, v)
		}
		if err := emit(row); err != nil {
			return stats, err
		}
		stats.Rows++
		rowsCounter.Inc()
	}

	for name, n := range stats.NullsInjected {
		metrics.CounterNullsInjected.WithLabelValues(p.entity.Name, name).Add(float64(n))
	}
	return stats, nil
}

func (p *Plan) value(s *step, row *domain.Row) (interface{}, bool, error) {
	args, err := resolveArguments(s, row)
	if err != nil {
		return nil, false, err
	}
	ctx := &provider.Context{
		Row:          row,
		RowIndex:     row.Index,
		TotalRows:    p.rows,
		Property:     s.prop,
		Arguments:    args,
		EntityValues: p.values,
	}

	excluded := provider.None
	if s.set != nil {
		excluded = s.set
	}

	var v interface{}
	switch {
	case len(s.prop.Ranges) > 0:
		r := s.prop.Ranges[p.rnd.WeightedIndex(s.weights)]
		v, err = s.provider.RangedRowValue(r.Min, r.Max, excluded)
	case len(s.prop.ExcludedRanges) > 0:
		v, err = s.provider.RowValueOutsideRanges(ctx, s.prop.ExcludedRanges, excluded)
	default:
		v, err = s.provider.RowValue(ctx, excluded)
	}
	if s.set != nil && s.set.Err() != nil {
		return nil, false, s.set.Err()
	}
	if err != nil {
		return nil, false, err
	}

	if s.prop.NullRatio > 0 && p.rnd.NextFloat() < s.prop.NullRatio {
		return nil, true, nil
	}
	if v == nil || s.set == nil {
		return v, false, nil
	}
	if s.set.Contains(v) {
		return nil, false, errors.Newf(errors.ErrExhausted, "provider %s returned an excluded value %v", s.prop.Provider.Type, v)
	}
	if err := s.set.Add(v); err != nil {
		return nil, false, err
	}
	return v, false, nil
}

// resolveArguments collects upstream values from the current row only.
func resolveArguments(s *step, row *domain.Row) (map[string][]interface{}, error) {
	if len(s.args) == 0 {
		return nil, nil
	}
	out := make(map[string][]interface{}, len(s.args))
	for _, a := range s.args {
		vals := make([]interface{}, 0, len(a.upstream))
		for _, up := range a.upstream {
			v, ok := row.Get(up)
			if !ok {
				return nil, errors.Newf(errors.ErrArgumentResolution, "argument '%s': property '%s' has not been generated", a.name, up)
			}
			if v == nil {
				if a.spec.Required {
					return nil, errors.Newf(errors.ErrArgumentResolution, "argument '%s': required upstream property '%s' is null", a.name, up)
				}
				continue
			}
			vals = append(vals, v)
		}
		out[a.name] = vals
	}
	return out, nil
}
