package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

type ElasticsearchTarget struct {
	baseURL string
	client  *http.Client

	// Documents indexed since Begin, removed again on Rollback. nil outside
	// a run.
	indexed []docRef
}

type docRef struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

func NewElasticsearchTarget(dsn string) *ElasticsearchTarget {
	return &ElasticsearchTarget{
		baseURL: normalizeURL(dsn),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *ElasticsearchTarget) Kind() string { return domain.TargetKindElasticsearch }

func (t *ElasticsearchTarget) Connect(ctx context.Context) error {
	_, err := t.ServerVersion(ctx)
	return err
}

func (t *ElasticsearchTarget) Close() error { return nil }

func (t *ElasticsearchTarget) do(ctx context.Context, method, path, contentType string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	return resp.StatusCode, payload, err
}

func statusErr(op string, status int, body []byte) error {
	return errors.Errorf("elasticsearch %s failed: status=%d body=%s", op, status, strings.TrimSpace(string(body)))
}

func (t *ElasticsearchTarget) ServerVersion(ctx context.Context) (string, error) {
	status, body, err := t.do(ctx, http.MethodGet, "/", "", nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", statusErr("ping", status, body)
	}
	var root struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", err
	}
	return root.Version.Number, nil
}

// CreateTableIfNotExists creates the index with an explicit mapping derived
// from the property types.
func (t *ElasticsearchTarget) CreateTableIfNotExists(ctx context.Context, entity *domain.Entity) error {
	props := make(map[string]any, len(entity.Properties))
	for _, p := range entity.Properties {
		props[p.Name] = map[string]string{"type": fieldType(p.Type)}
	}
	mapping, err := json.Marshal(map[string]any{"mappings": map[string]any{"properties": props}})
	if err != nil {
		return err
	}
	status, body, err := t.do(ctx, http.MethodPut, "/"+toIndexName(entity.TargetTable), "application/json", bytes.NewReader(mapping))
	if err != nil {
		return err
	}
	if status == http.StatusOK || status == http.StatusCreated {
		return nil
	}
	if status == http.StatusBadRequest && strings.Contains(string(body), "resource_already_exists_exception") {
		return nil
	}
	return statusErr("create index", status, body)
}

func fieldType(vt domain.ValueType) string {
	switch vt {
	case domain.ValueTypeInt:
		return "integer"
	case domain.ValueTypeBigInt:
		return "long"
	case domain.ValueTypeFloat:
		return "float"
	case domain.ValueTypeDouble:
		return "double"
	case domain.ValueTypeBool:
		return "boolean"
	case domain.ValueTypeTimestamp, domain.ValueTypeDate:
		return "date"
	case domain.ValueTypeText:
		return "text"
	default:
		return "keyword"
	}
}

func (t *ElasticsearchTarget) TruncateTable(ctx context.Context, table string) error {
	payload := strings.NewReader(`{"query":{"match_all":{}}}`)
	status, body, err := t.do(ctx, http.MethodPost, "/"+toIndexName(table)+"/_delete_by_query?refresh=true", "application/json", payload)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return statusErr("truncate", status, body)
	}
	return nil
}

// Elasticsearch has no transactions. Begin starts recording the ids of indexed
// documents and Rollback deletes them; documents removed by a truncate in the
// same run are not restored.
func (t *ElasticsearchTarget) Begin(ctx context.Context) error {
	t.indexed = []docRef{}
	return nil
}

func (t *ElasticsearchTarget) Commit() error {
	t.indexed = nil
	return nil
}

const deleteChunk = 1000

func (t *ElasticsearchTarget) Rollback() error {
	refs := t.indexed
	t.indexed = nil
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for start := 0; start < len(refs); start += deleteChunk {
		end := start + deleteChunk
		if end > len(refs) {
			end = len(refs)
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, ref := range refs[start:end] {
			if err := enc.Encode(map[string]docRef{"delete": ref}); err != nil {
				return err
			}
		}
		status, body, err := t.do(ctx, http.MethodPost, "/_bulk?refresh=true", "application/x-ndjson", &buf)
		if err != nil {
			return errors.Wrap(err, "elasticsearch rollback")
		}
		if status < 200 || status > 299 {
			return statusErr("rollback", status, body)
		}
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		docRef
		Status int `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// firstError returns the first failed item of a bulk response.
func (r *bulkResponse) firstError() error {
	for i, item := range r.Items {
		for _, res := range item {
			if res.Status > 299 {
				return errors.Errorf("elasticsearch bulk item %d: %s: %s", i, res.Error.Type, res.Error.Reason)
			}
		}
	}
	return errors.Errorf("elasticsearch bulk insert returned errors")
}

func (t *ElasticsearchTarget) InsertBatch(ctx context.Context, table string, columns []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	action := map[string]any{"index": map[string]string{"_index": toIndexName(table)}}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		if err := enc.Encode(action); err != nil {
			return err
		}
		doc := make(map[string]any, len(columns))
		for i, col := range columns {
			doc[col] = row[i]
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	status, body, err := t.do(ctx, http.MethodPost, "/_bulk", "application/x-ndjson", &buf)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return statusErr("bulk insert", status, body)
	}
	var resp bulkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(err, "decode bulk response")
	}
	if t.indexed != nil {
		for _, item := range resp.Items {
			for _, res := range item {
				if res.Status <= 299 && res.ID != "" {
					t.indexed = append(t.indexed, res.docRef)
				}
			}
		}
	}
	if resp.Errors {
		return resp.firstError()
	}
	return nil
}

func normalizeURL(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "http://localhost:9200"
	}
	if strings.HasPrefix(dsn, "http://") || strings.HasPrefix(dsn, "https://") {
		return strings.TrimRight(dsn, "/")
	}
	return "http://" + strings.TrimRight(dsn, "/")
}

func toIndexName(name string) string {
	return url.PathEscape(strings.ToLower(strings.TrimSpace(name)))
}
