package esx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	es8 "github.com/elastic/go-elasticsearch/v8"

	"configtree/internal/model"
)

type fakeTransport struct {
	requests []*http.Request
	bodies   []string
	respond  func(r *http.Request) (int, string)
}

func (f *fakeTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	body := ""
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, body)
	status, out := f.respond(r)
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(strings.NewReader(out))}, nil
}

func newClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	es, err := es8.NewClient(es8.Config{Addresses: []string{"http://es.test:9200"}, Transport: ft})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return es
}

func testSchema() *model.Schema {
	s := model.NewSchema("app", "app", "1.2.3")
	s.Groups = []model.SchemaGroup{{Name: "net", Desc: "n"}}
	s.Items = []model.SchemaItem{
		{Name: "port", Desc: "listen port", Group: "net", Default: json.Number("8080"), Type: model.TypeInteger},
		{Name: "host", Desc: "bind host", Group: "net", Default: "localhost", Type: model.TypeString},
	}
	return s
}

func TestItemDocs(t *testing.T) {
	docs := ItemDocs("app.json", testSchema())
	if len(docs) != 2 {
		t.Fatalf("want 2 docs, got %d", len(docs))
	}
	if docs[0].Default != "8080" || docs[0].Type != "Integer" || docs[0].Version != "1.2.3" {
		t.Fatalf("unexpected doc: %+v", docs[0])
	}
	if docID(docs[1]) != "app.json#host" {
		t.Fatalf("unexpected id %q", docID(docs[1]))
	}
}

func TestIndexSchema_Bulk(t *testing.T) {
	ft := &fakeTransport{respond: func(r *http.Request) (int, string) {
		if strings.HasSuffix(r.URL.Path, "/_delete_by_query") {
			return 200, `{"deleted":2}`
		}
		return 200, `{"errors":false,"items":[]}`
	}}
	if err := IndexSchema(context.Background(), newClient(t, ft), "items", "app.json", testSchema()); err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(ft.requests) != 2 {
		t.Fatalf("want delete + bulk, got %d requests", len(ft.requests))
	}
	bulk := ft.bodies[1]
	if strings.Count(bulk, "\n") != 4 || !strings.Contains(bulk, `"_id":"app.json#port"`) {
		t.Fatalf("unexpected bulk body:\n%s", bulk)
	}
}

func TestIndexSchema_BulkErrors(t *testing.T) {
	ft := &fakeTransport{respond: func(r *http.Request) (int, string) {
		if strings.HasSuffix(r.URL.Path, "/_delete_by_query") {
			return 404, `{"error":{"reason":"no such index"}}`
		}
		return 200, `{"errors":true,"items":[{"index":{"error":{"reason":"mapper_parsing_exception"}}}]}`
	}}
	err := IndexSchema(context.Background(), newClient(t, ft), "items", "app.json", testSchema())
	if err == nil || !strings.Contains(err.Error(), "mapper_parsing_exception") {
		t.Fatalf("want bulk error, got %v", err)
	}
}

func TestSearchItems(t *testing.T) {
	ft := &fakeTransport{respond: func(*http.Request) (int, string) {
		return 200, `{"hits":{"total":{"value":1},"hits":[{"_score":1.5,"_source":{"file":"app.json","name":"port","type":"Integer"}}]}}`
	}}
	hits, total, err := SearchItems(context.Background(), newClient(t, ft), "items", "port", 0, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(hits) != 1 || hits[0].Name != "port" || hits[0].Score != 1.5 {
		t.Fatalf("unexpected hits: total=%d %+v", total, hits)
	}
	if !strings.Contains(ft.bodies[0], `"multi_match"`) {
		t.Fatalf("unexpected query: %s", ft.bodies[0])
	}
}

func TestNilClientIsNoop(t *testing.T) {
	if err := IndexSchema(context.Background(), nil, "items", "f", testSchema()); err != nil {
		t.Fatalf("index: %v", err)
	}
	hits, total, err := SearchItems(context.Background(), nil, "items", "q", 0, 10)
	if err != nil || total != 0 || len(hits) != 0 {
		t.Fatalf("unexpected: %v %d %v", hits, total, err)
	}
}
