package app

import (
	"net/url"
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/exec"
	"github.com/mmrzaf/rowgen/internal/infra/targets/elasticsearch"
	"github.com/mmrzaf/rowgen/internal/infra/targets/file"
	"github.com/mmrzaf/rowgen/internal/infra/targets/postgres"
	"github.com/mmrzaf/rowgen/internal/infra/targets/sqlite"
)

// BuildTarget returns an unconnected sink for cfg.
func BuildTarget(cfg *domain.TargetConfig) (exec.Target, error) {
	switch cfg.Kind {
	case domain.TargetKindPostgres:
		return postgres.NewPostgresTarget(cfg.DSN, cfg.Schema), nil
	case domain.TargetKindSQLite:
		return sqlite.NewSQLiteTarget(cfg.DSN), nil
	case domain.TargetKindElasticsearch:
		return elasticsearch.NewElasticsearchTarget(cfg.DSN), nil
	case domain.TargetKindFile:
		return file.NewFileTarget(cfg.DSN, cfg.Options["format"]), nil
	default:
		return nil, errors.Newf(errors.ErrConfiguration, "unsupported target kind: %s", cfg.Kind)
	}
}

// resolveTargetForRun applies a per-run database override. Only postgres
// carries the database in its dsn.
func resolveTargetForRun(base *domain.TargetConfig, dbOverride string) *domain.TargetConfig {
	if base == nil {
		return nil
	}
	t := *base
	if dbOverride != "" {
		t.Database = dbOverride
	}
	if t.Kind == domain.TargetKindPostgres && t.Database != "" {
		t.DSN = withPostgresDatabase(t.DSN, t.Database)
	}
	return &t
}

func withPostgresDatabase(dsn, database string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return dsn
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		u.Path = "/" + database
		return u.String()
	}
	parts := strings.Fields(dsn)
	for i := range parts {
		if strings.HasPrefix(strings.ToLower(parts[i]), "dbname=") {
			parts[i] = "dbname=" + database
			return strings.Join(parts, " ")
		}
	}
	return strings.Join(append(parts, "dbname="+database), " ")
}
