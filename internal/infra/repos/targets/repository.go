package targets

import "github.com/mmrzaf/rowgen/internal/domain"

// Reader is the read side shared by the file and database repositories.
type Reader interface {
	List() ([]*domain.TargetConfig, error)
	Get(id string) (*domain.TargetConfig, error)
}

type Repository interface {
	Reader

	Create(t *domain.TargetConfig) error
	Update(t *domain.TargetConfig) error
	Delete(id string) error

	RecordCheck(c *domain.TargetCheck) error
	ListChecks(targetID string, limit int) ([]*domain.TargetCheck, error)
}
