package runs

import "github.com/mmrzaf/rowgen/internal/domain"

// Repository stores run metadata, progress and logs for the control plane.
type Repository interface {
	Create(run *domain.Run) error
	Get(id string) (*domain.Run, error)
	List(limit int, status string) ([]*domain.Run, error)
	UpdateStatus(id string, status domain.RunStatus, errMsg string, stats *domain.RunStats) error
	UpdateProgress(id string, rowsGenerated, rowsTotal int64, entitiesDone, entitiesTotal int, currentEntity string) error
	AppendRunLog(runID, level, message string) error
	ListRunLogs(runID string, limit int) ([]*domain.RunLog, error)
}
