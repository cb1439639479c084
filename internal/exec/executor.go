package exec

import (
	"context"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/engine"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/logging"
	"github.com/mmrzaf/rowgen/internal/metrics"
	"github.com/mmrzaf/rowgen/internal/random"
	"github.com/mmrzaf/rowgen/internal/uniqueness"
	"github.com/mmrzaf/rowgen/internal/validation"
)

// Target is a sink for generated rows. Rows arrive in batches laid out in the
// entity's declared column order.
type Target interface {
	Kind() string
	Connect(ctx context.Context) error
	Close() error
	CreateTableIfNotExists(ctx context.Context, entity *domain.Entity) error
	TruncateTable(ctx context.Context, table string) error
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]interface{}) error
}

// Transactional targets hold everything a run writes until Commit, so a run
// that fails midway leaves the sink as it was before the run started.
type Transactional interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
}

const DefaultBatchSize = 1000

// Progress is reported after every batch a target accepts.
type Progress struct {
	Entity        string
	EntityRows    int64
	EntitiesDone  int
	EntitiesTotal int
	RowsWritten   int64
	RowsTotal     int64
}

type ProgressFunc func(Progress)

type Executor struct {
	providers engine.Providers
	logger    *logging.Logger
	batchSize int
	storeKind string
	spillDir  string
	newStore  func() (uniqueness.Store, error)
}

type Option func(*Executor)

func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func WithBatchSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithExcludedStore selects where unique properties keep their excluded
// values during a run: "memory" or "bolt" spilled under spillDir.
func WithExcludedStore(kind, spillDir string) Option {
	return func(e *Executor) {
		e.storeKind = kind
		e.spillDir = spillDir
	}
}

func NewExecutor(providers engine.Providers, opts ...Option) *Executor {
	e := &Executor{
		providers: providers,
		logger:    logging.Nop(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.newStore = func() (uniqueness.Store, error) { return uniqueness.Open(e.storeKind, e.spillDir) }
	return e
}

// Request describes one execution. Counts, when non-nil, overrides entity row
// counts and restricts the run to the entities it names.
type Request struct {
	Seed     int64
	Mode     string
	Counts   map[string]int64
	Progress ProgressFunc
}

// EntitySeed derives the randomizer seed of one entity from the run seed, so
// adding or removing an entity leaves the others' output unchanged.
func EntitySeed(runSeed int64, entity string) int64 {
	return runSeed ^ int64(xxh3.HashString(entity)>>1)
}

// Execute generates every selected entity in fk order and writes it to target.
func (e *Executor) Execute(ctx context.Context, scenario *domain.Scenario, target Target, req Request) (stats *domain.RunStats, err error) {
	order, err := validation.TopologicalSort(scenario)
	if err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.TableModeCreate
	}
	if !validation.IsValidMode(mode) {
		return nil, errors.Newf(errors.ErrConfiguration, "invalid mode: %s", mode)
	}

	entities := make(map[string]*domain.Entity, len(scenario.Entities))
	for i := range scenario.Entities {
		entities[scenario.Entities[i].Name] = &scenario.Entities[i]
	}
	selected := make([]string, 0, len(order))
	var rowsTotal int64
	for _, name := range order {
		rows := entities[name].Rows
		if req.Counts != nil {
			n, ok := req.Counts[name]
			if !ok {
				continue
			}
			rows = n
		}
		selected = append(selected, name)
		rowsTotal += rows
	}

	if err := target.Connect(ctx); err != nil {
		return nil, errors.Wrapf(err, "connect %s target", target.Kind())
	}
	defer target.Close()

	if tx, ok := target.(Transactional); ok {
		if err := tx.Begin(ctx); err != nil {
			return nil, errors.Wrapf(err, "begin %s target", target.Kind())
		}
		defer func() {
			if err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					e.logger.Warnw("exec.rollback_failed", map[string]any{"target": target.Kind(), "error": rerr.Error()})
				}
				return
			}
			if cerr := tx.Commit(); cerr != nil {
				stats, err = nil, errors.Wrapf(cerr, "commit %s target", target.Kind())
			}
		}()
	}

	store, err := e.newStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	refs := referencedColumns(scenario)
	entityValues := make(map[string][]interface{})
	eng := engine.New(e.providers,
		engine.WithLogger(e.logger),
		engine.WithExcludedStore(store),
		engine.WithEntityValues(entityValues),
	)

	stats = &domain.RunStats{}
	start := time.Now()
	progress := Progress{EntitiesTotal: len(selected), RowsTotal: rowsTotal}

	for _, name := range selected {
		entity := entities[name]
		rows := entity.Rows
		if req.Counts != nil {
			rows = req.Counts[name]
		}
		progress.Entity = name
		progress.EntityRows = 0

		entityStats, err := e.executeEntity(ctx, eng, entity, rows, target, mode, req, refs[name], entityValues, &progress)
		if err != nil {
			return nil, errors.WithMessagef(err, "entity '%s'", name)
		}
		stats.EntityStats = append(stats.EntityStats, *entityStats)
		stats.TotalRows += entityStats.RowsGenerated
		stats.EntitiesGenerated++
		progress.EntitiesDone++
		if req.Progress != nil {
			req.Progress(progress)
		}
	}
	stats.DurationSeconds = time.Since(start).Seconds()
	return stats, nil
}

func (e *Executor) executeEntity(
	ctx context.Context,
	eng *engine.Engine,
	entity *domain.Entity,
	rows int64,
	target Target,
	mode string,
	req Request,
	collect []string,
	entityValues map[string][]interface{},
	progress *Progress,
) (*domain.EntityRunStats, error) {
	logger := e.logger.With(map[string]any{"entity": entity.Name, "table": entity.TargetTable})

	switch mode {
	case domain.TableModeCreate, domain.TableModeTruncate:
		if err := target.CreateTableIfNotExists(ctx, entity); err != nil {
			return nil, errors.Wrap(err, "create table")
		}
		if mode == domain.TableModeTruncate {
			if err := target.TruncateTable(ctx, entity.TargetTable); err != nil {
				return nil, errors.Wrap(err, "truncate table")
			}
		}
	case domain.TableModeAppend:
	}

	plan, err := eng.Prepare(entity, random.NewSeeded(EntitySeed(req.Seed, entity.Name)), rows)
	if err != nil {
		return nil, err
	}
	logger.Infow("exec.entity_start", map[string]any{"rows": rows, "order": plan.Order()})

	columns := entity.Columns()
	collected := make(map[string][]interface{}, len(collect))
	batches := make(chan [][]interface{}, 2)
	g, gctx := errgroup.WithContext(ctx)

	var genStats *engine.Stats
	g.Go(func() error {
		defer close(batches)
		batch := make([][]interface{}, 0, e.batchSize)
		var err error
		genStats, err = plan.Generate(gctx, func(r *domain.Row) error {
			for _, c := range collect {
				if v, _ := r.Get(c); v != nil {
					collected[c] = append(collected[c], v)
				}
			}
			batch = append(batch, r.Values(columns))
			if len(batch) < e.batchSize {
				return nil
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([][]interface{}, 0, e.batchSize)
			return nil
		})
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		kind := target.Kind()
		for batch := range batches {
			begin := time.Now()
			if err := target.InsertBatch(gctx, entity.TargetTable, columns, batch); err != nil {
				return errors.Wrap(err, "insert batch")
			}
			metrics.HistogramSinkBatchSeconds.WithLabelValues(kind).Observe(time.Since(begin).Seconds())
			metrics.CounterSinkBatches.WithLabelValues(kind).Inc()
			progress.EntityRows += int64(len(batch))
			progress.RowsWritten += int64(len(batch))
			if req.Progress != nil {
				req.Progress(*progress)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range collect {
		entityValues[entity.Name+"."+c] = collected[c]
	}

	out := &domain.EntityRunStats{
		EntityName:      entity.Name,
		RowsGenerated:   genStats.Rows,
		DurationSeconds: genStats.Elapsed.Seconds(),
	}
	if len(genStats.NullsInjected) > 0 {
		out.NullsInjected = genStats.NullsInjected
	}
	logger.Infow("exec.entity_done", map[string]any{"rows": out.RowsGenerated, "seconds": out.DurationSeconds})
	return out, nil
}

// referencedColumns maps each entity to the properties other entities read
// through fk, so only those values are kept in memory.
func referencedColumns(scenario *domain.Scenario) map[string][]string {
	out := map[string][]string{}
	seen := map[string]bool{}
	for _, entity := range scenario.Entities {
		for i := range entity.Properties {
			ref, col, ok := entity.Properties[i].FKReference()
			if !ok || seen[ref+"."+col] {
				continue
			}
			seen[ref+"."+col] = true
			out[ref] = append(out[ref], col)
		}
	}
	return out
}
