package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/exec"
	"github.com/mmrzaf/rowgen/internal/infra/repos/runs"
	"github.com/mmrzaf/rowgen/internal/infra/repos/scenarios"
	"github.com/mmrzaf/rowgen/internal/infra/repos/targets"
	"github.com/mmrzaf/rowgen/internal/logging"
	"github.com/mmrzaf/rowgen/internal/metrics"
	"github.com/mmrzaf/rowgen/internal/registry"
	"github.com/mmrzaf/rowgen/internal/validation"
)

// RunService is the control plane: it resolves run requests against the
// scenario and target repositories and executes runs in the background.
type RunService struct {
	scenarioRepo scenarios.Repository
	targetRepo   targets.Repository
	targetFiles  targets.Reader
	runRepo      runs.Repository
	providers    *registry.ProviderRegistry
	validator    *validation.Validator
	executor     *exec.Executor
	logger       *logging.Logger
	defaultMode  string
	execOpts     []exec.Option

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*RunService)

// WithTargetFiles adds file-defined targets behind the database ones.
func WithTargetFiles(r targets.Reader) Option {
	return func(s *RunService) { s.targetFiles = r }
}

func WithDefaultMode(mode string) Option {
	return func(s *RunService) { s.defaultMode = mode }
}

func WithBatchSize(n int) Option {
	return func(s *RunService) { s.execOpts = append(s.execOpts, exec.WithBatchSize(n)) }
}

func WithExcludedStore(kind, spillDir string) Option {
	return func(s *RunService) { s.execOpts = append(s.execOpts, exec.WithExcludedStore(kind, spillDir)) }
}

func NewRunService(
	scenarioRepo scenarios.Repository,
	targetRepo targets.Repository,
	runRepo runs.Repository,
	providers *registry.ProviderRegistry,
	logger *logging.Logger,
	opts ...Option,
) *RunService {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &RunService{
		scenarioRepo: scenarioRepo,
		targetRepo:   targetRepo,
		runRepo:      runRepo,
		providers:    providers,
		validator:    validation.NewValidator(providers),
		logger:       logger.WithComponent("runs"),
		defaultMode:  domain.TableModeCreate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.execOpts = append([]exec.Option{exec.WithLogger(logger.WithComponent("exec"))}, s.execOpts...)
	s.executor = exec.NewExecutor(providers, s.execOpts...)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// targetReader reads database targets first, then files.
func (s *RunService) targetReader() targets.Reader {
	chain := targets.Chain{}
	if s.targetRepo != nil {
		chain = append(chain, s.targetRepo)
	}
	if s.targetFiles != nil {
		chain = append(chain, s.targetFiles)
	}
	return chain
}

func (s *RunService) StartRun(req *domain.RunRequest) (*domain.Run, error) {
	resolved, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	run := &domain.Run{
		ScenarioID:            resolved.scenario.ID,
		ScenarioName:          resolved.scenario.Name,
		ScenarioVersion:       resolved.scenario.Version,
		TargetID:              resolved.target.ID,
		TargetName:            resolved.target.Name,
		TargetKind:            resolved.target.Kind,
		Seed:                  resolved.plan.Seed,
		ConfigHash:            resolved.plan.ConfigHash,
		Mode:                  resolved.plan.Mode,
		Status:                domain.RunStatusRunning,
		StartedAt:             time.Now().UTC(),
		ProgressRowsTotal:     resolved.plan.TotalRows,
		ProgressEntitiesTotal: len(resolved.plan.ExecutionOrder),
	}
	if err := s.runRepo.Create(run); err != nil {
		return nil, errors.Wrap(err, "create run")
	}

	for _, w := range resolved.plan.Warnings {
		s.runLog(run.ID, "warn", w)
	}
	s.runLog(run.ID, "info", fmt.Sprintf("starting run: scenario=%s target=%s mode=%s seed=%d rows=%d",
		run.ScenarioName, run.TargetName, run.Mode, run.Seed, run.ProgressRowsTotal))

	metrics.GaugeRunsActive.Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer metrics.GaugeRunsActive.Dec()
		s.executeRun(s.ctx, run, resolved)
	}()
	return run, nil
}

func (s *RunService) executeRun(ctx context.Context, run *domain.Run, resolved *resolvedRun) {
	target, err := BuildTarget(resolved.target)
	if err != nil {
		s.fail(run, err)
		return
	}

	stats, err := s.executor.Execute(ctx, resolved.scenario, target, exec.Request{
		Seed:   resolved.plan.Seed,
		Mode:   resolved.plan.Mode,
		Counts: resolved.plan.ResolvedCounts,
		Progress: func(p exec.Progress) {
			if err := s.runRepo.UpdateProgress(run.ID, p.RowsWritten, p.RowsTotal, p.EntitiesDone, p.EntitiesTotal, p.Entity); err != nil {
				s.logger.Warnw("runs.progress_update_failed", map[string]any{"run_id": run.ID, "error": err.Error()})
			}
		},
	})
	if err != nil {
		s.fail(run, err)
		return
	}

	if err := s.runRepo.UpdateStatus(run.ID, domain.RunStatusSuccess, "", stats); err != nil {
		s.logger.Error("failed to update run %s: %v", run.ID, err)
	}
	metrics.CounterRuns.WithLabelValues(string(domain.RunStatusSuccess)).Inc()
	s.runLog(run.ID, "info", fmt.Sprintf("run completed: %d entities, %d rows, %.2fs",
		stats.EntitiesGenerated, stats.TotalRows, stats.DurationSeconds))
}

func (s *RunService) fail(run *domain.Run, err error) {
	s.runLog(run.ID, "error", fmt.Sprintf("run failed: %v", err))
	if uerr := s.runRepo.UpdateStatus(run.ID, domain.RunStatusFailed, err.Error(), nil); uerr != nil {
		s.logger.Error("failed to update run %s: %v", run.ID, uerr)
	}
	metrics.CounterRuns.WithLabelValues(string(domain.RunStatusFailed)).Inc()
}

// runLog writes to the process log and to the run's stored log.
func (s *RunService) runLog(runID, level, msg string) {
	fields := map[string]any{"run_id": runID}
	switch level {
	case "error":
		s.logger.Errorw(msg, fields)
	case "warn":
		s.logger.Warnw(msg, fields)
	default:
		s.logger.Infow(msg, fields)
	}
	if err := s.runRepo.AppendRunLog(runID, level, msg); err != nil {
		s.logger.Warnw("runs.append_log_failed", map[string]any{"run_id": runID, "error": err.Error()})
	}
}

func (s *RunService) GetRun(id string) (*domain.Run, error) {
	return s.runRepo.Get(id)
}

func (s *RunService) ListRuns(limit int, status string) ([]*domain.Run, error) {
	return s.runRepo.List(limit, status)
}

func (s *RunService) ListRunLogs(runID string, limit int) ([]*domain.RunLog, error) {
	if _, err := s.runRepo.Get(runID); err != nil {
		return nil, err
	}
	return s.runRepo.ListRunLogs(runID, limit)
}

// Wait blocks until every started run has finished.
func (s *RunService) Wait() {
	s.wg.Wait()
}

// Close cancels running runs and waits for them to record their outcome.
func (s *RunService) Close() {
	s.cancel()
	s.wg.Wait()
}

func generateSeed() int64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

// Providers lists the provider kinds scenarios may use.
func (s *RunService) Providers() []string {
	return s.providers.List()
}
