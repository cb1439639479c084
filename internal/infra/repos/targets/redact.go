package targets

import (
	"net/url"
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
)

const mask = "****"

// RedactTarget returns a copy of t safe to print or serve. The input is not
// modified.
func RedactTarget(t *domain.TargetConfig) *domain.TargetConfig {
	if t == nil {
		return nil
	}
	out := *t
	switch t.Kind {
	case domain.TargetKindFile:
		// a directory, never credentials
	case domain.TargetKindSQLite:
		out.DSN = redactSQLitePath(t.DSN)
	default:
		out.DSN = RedactDSN(t.DSN)
	}
	if t.Options != nil {
		out.Options = make(map[string]string, len(t.Options))
		for k, v := range t.Options {
			if secretKey(k) {
				v = mask
			}
			out.Options[k] = v
		}
	}
	return &out
}

func RedactTargets(list []*domain.TargetConfig) []*domain.TargetConfig {
	out := make([]*domain.TargetConfig, len(list))
	for i, t := range list {
		out[i] = RedactTarget(t)
	}
	return out
}

// RedactDSN masks credentials in postgres or elasticsearch URLs and in
// libpq keyword strings. A DSN in neither shape is masked whole.
func RedactDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		if u.User != nil {
			u.User = url.UserPassword(u.User.Username(), mask)
		}
		u.RawQuery = redactQuery(u.Query())
		return u.String()
	}
	if strings.Contains(dsn, "=") {
		fields := strings.Fields(dsn)
		for i, f := range fields {
			if k, _, ok := strings.Cut(f, "="); ok && secretKey(k) {
				fields[i] = k + "=" + mask
			}
		}
		return strings.Join(fields, " ")
	}
	return mask
}

// redactSQLitePath keeps the database path and masks go-sqlite3 auth and
// encryption parameters.
func redactSQLitePath(dsn string) string {
	path, query, ok := strings.Cut(dsn, "?")
	if !ok {
		return dsn
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		return path + "?" + mask
	}
	return path + "?" + redactQuery(q)
}

func redactQuery(q url.Values) string {
	for k := range q {
		if secretKey(k) {
			q.Set(k, mask)
		}
	}
	return q.Encode()
}

func secretKey(key string) bool {
	k := strings.ToLower(strings.TrimLeft(key, "_"))
	switch k {
	case "pass", "pwd", "api_key", "apikey", "key", "auth_pass":
		return true
	}
	for _, s := range []string{"password", "secret", "token"} {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
