package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/exec"
	"github.com/mmrzaf/rowgen/internal/infra/repos/targets"
	"github.com/mmrzaf/rowgen/internal/validation"
)

const checkTimeout = 10 * time.Second

type serverVersioner interface {
	ServerVersion(ctx context.Context) (string, error)
}

// CheckTarget connects to t, reads its server version when the sink exposes
// one and tries create, insert and truncate on a scratch table.
func CheckTarget(ctx context.Context, t *domain.TargetConfig) (*domain.TargetCheck, error) {
	check := &domain.TargetCheck{
		ID:        uuid.NewString(),
		TargetID:  t.ID,
		CheckedAt: time.Now().UTC(),
	}

	if err := validation.NewValidator(nil).ValidateTarget(t); err != nil {
		check.Error = err.Error()
		return check, err
	}
	tgt, err := BuildTarget(resolveTargetForRun(t, ""))
	if err != nil {
		check.Error = err.Error()
		return check, err
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	if err := tgt.Connect(ctx); err != nil {
		check.Error = err.Error()
		check.LatencyMS = time.Since(start).Milliseconds()
		return check, err
	}
	check.OK = true
	check.LatencyMS = time.Since(start).Milliseconds()

	if v, ok := tgt.(serverVersioner); ok {
		if ver, err := v.ServerVersion(ctx); err == nil {
			check.ServerVer = ver
		}
	}
	table := fmt.Sprintf("rowgen_check_%d", time.Now().UnixNano())
	check.Capabilities = checkCapabilities(ctx, tgt, table)
	_ = tgt.Close()

	// File targets leave the scratch file behind otherwise.
	if p, ok := tgt.(interface{ Path(string) string }); ok {
		_ = os.Remove(p.Path(table))
	}
	return check, nil
}

func checkCapabilities(ctx context.Context, tgt exec.Target, table string) domain.TargetCapabilities {
	entity := &domain.Entity{
		Name:        "rowgen_check",
		TargetTable: table,
		Rows:        1,
		Properties: []domain.Property{
			{Name: "id", Type: domain.ValueTypeInt},
		},
	}

	var caps domain.TargetCapabilities
	if err := tgt.CreateTableIfNotExists(ctx, entity); err != nil {
		return caps
	}
	caps.CanCreate = true

	if err := tgt.InsertBatch(ctx, table, []string{"id"}, [][]interface{}{{int64(1)}}); err != nil {
		return caps
	}
	caps.CanInsert = true

	if err := tgt.TruncateTable(ctx, table); err != nil {
		return caps
	}
	caps.CanTruncate = true
	return caps
}

// TestTarget checks a stored or file-defined target. Checks of stored
// targets are recorded.
func (s *RunService) TestTarget(ctx context.Context, id string) (*domain.TargetCheck, error) {
	t, err := s.targetReader().Get(id)
	if err != nil {
		return nil, err
	}
	check, checkErr := CheckTarget(ctx, t)
	if s.targetRepo != nil {
		if _, err := s.targetRepo.Get(t.ID); err == nil {
			if err := s.targetRepo.RecordCheck(check); err != nil {
				s.logger.Warnw("targets.record_check_failed", map[string]any{"target_id": t.ID, "error": err.Error()})
			}
		}
	}
	return check, checkErr
}

func (s *RunService) Validator() *validation.Validator {
	return s.validator
}

// Targets lists stored and file-defined targets.
func (s *RunService) Targets() targets.Reader {
	return s.targetReader()
}
