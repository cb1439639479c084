package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mmrzaf/rowgen/internal/domain"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping due to restricted socket sandbox: %v", err)
	}
	ts := httptest.NewUnstartedServer(h)
	ts.Listener = ln
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func TestElasticsearchTarget_BasicFlow(t *testing.T) {
	var mapping map[string]any
	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":{"number":"8.12.0"}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/events":
			_ = json.NewDecoder(r.Body).Decode(&mapping)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		case r.Method == http.MethodPost && r.URL.Path == "/events/_delete_by_query":
			_, _ = w.Write([]byte(`{"deleted":1}`))
		case r.Method == http.MethodPost && r.URL.Path == "/_bulk":
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"event_id":"e1"`) {
				t.Errorf("bulk payload missing expected field: %s", string(body))
			}
			_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	tgt := NewElasticsearchTarget(ts.URL)
	if err := tgt.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	entity := &domain.Entity{Name: "events", TargetTable: "events", Properties: []domain.Property{
		{Name: "event_id", Type: domain.ValueTypeUUID},
		{Name: "at", Type: domain.ValueTypeTimestamp},
	}}
	if err := tgt.CreateTableIfNotExists(ctx, entity); err != nil {
		t.Fatal(err)
	}
	props := mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	if props["at"].(map[string]any)["type"] != "date" || props["event_id"].(map[string]any)["type"] != "keyword" {
		t.Fatalf("unexpected mapping: %v", mapping)
	}
	if err := tgt.InsertBatch(ctx, "events", []string{"event_id", "at"}, [][]interface{}{{"e1", nil}}); err != nil {
		t.Fatal(err)
	}
	if err := tgt.TruncateTable(ctx, "events"); err != nil {
		t.Fatal(err)
	}
	if ver, err := tgt.ServerVersion(ctx); err != nil || ver != "8.12.0" {
		t.Fatalf("unexpected version result ver=%q err=%v", ver, err)
	}
}

func TestElasticsearchTarget_BulkItemError(t *testing.T) {
	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad date"}}}]}`))
	})
	tgt := NewElasticsearchTarget(ts.URL)
	err := tgt.InsertBatch(context.Background(), "events", []string{"at"}, [][]interface{}{{"x"}, {"y"}})
	if err == nil || !strings.Contains(err.Error(), "item 1: mapper_parsing_exception: bad date") {
		t.Fatalf("expected item error, got %v", err)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"":                       "http://localhost:9200",
		"es:9200/":               "http://es:9200",
		"https://es.example.com": "https://es.example.com",
	}
	for in, want := range cases {
		if got := normalizeURL(in); got != want {
			t.Fatalf("normalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestElasticsearchTarget_RollbackDeletesIndexedDocuments(t *testing.T) {
	var deletes []string
	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.URL.Query().Get("refresh") == "true" {
			deletes = append(deletes, strings.TrimSpace(string(body)))
			_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"_index":"events","_id":"a1","status":201}},{"index":{"_index":"events","status":400,"error":{"type":"x","reason":"y"}}}]}`))
	})
	tgt := NewElasticsearchTarget(ts.URL)
	ctx := context.Background()
	if err := tgt.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tgt.InsertBatch(ctx, "events", []string{"at"}, [][]interface{}{{"x"}, {"y"}}); err == nil {
		t.Fatal("expected item error")
	}
	if err := tgt.Rollback(); err != nil {
		t.Fatal(err)
	}
	want := `{"delete":{"_index":"events","_id":"a1"}}`
	if len(deletes) != 1 || deletes[0] != want {
		t.Fatalf("expected one delete of the indexed document, got %q", deletes)
	}
	if err := tgt.Rollback(); err != nil || len(deletes) != 1 {
		t.Fatalf("second rollback should be a no-op, err=%v deletes=%d", err, len(deletes))
	}
}
