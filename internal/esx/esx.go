// Package esx indexes schema items in Elasticsearch so operators can find
// settings across every saved schema.
package esx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"configtree/internal/config"
	"configtree/internal/logx"
	"configtree/internal/model"
)

var esLogger = logx.GetScope("es")

type Client = es8.Client

// Open builds a client from the comma separated ES_ADDRS. It returns a nil
// client when no address is configured.
func Open(cfg *config.Config) (*Client, func(), error) {
	if strings.TrimSpace(cfg.ES.Addrs) == "" {
		return nil, func() {}, nil
	}
	es, err := es8.NewClient(es8.Config{
		Addresses: splitAddrs(cfg.ES.Addrs),
		Username:  cfg.ES.Username,
		Password:  cfg.ES.Password,
	})
	if err != nil {
		return nil, func() {}, err
	}
	return es, func() {}, nil
}

func splitAddrs(raw string) []string {
	return lo.FilterMap(strings.Split(raw, ","), func(s string, _ int) (string, bool) {
		t := strings.TrimSpace(s)
		return t, t != ""
	})
}

// ItemDoc is one schema item as indexed.
type ItemDoc struct {
	File    string `json:"file"`
	Schema  string `json:"schema"`
	Version string `json:"version"`
	Name    string `json:"name"`
	Desc    string `json:"desc"`
	Group   string `json:"group"`
	Type    string `json:"type"`
	Default string `json:"default"`
	Options string `json:"options"`
}

// ItemDocs flattens a schema into index documents.
func ItemDocs(file string, s *model.Schema) []ItemDoc {
	return lo.Map(s.Items, func(it model.SchemaItem, _ int) ItemDoc {
		return ItemDoc{
			File:    file,
			Schema:  s.Name,
			Version: s.Version,
			Name:    it.Name,
			Desc:    it.Desc,
			Group:   it.Group,
			Type:    string(it.Type),
			Default: model.ValueText(it.Default),
			Options: it.Options,
		}
	})
}

func docID(d ItemDoc) string { return d.File + "#" + d.Name }

// IndexSchema replaces the indexed items of file with the items of s in a
// single bulk request.
func IndexSchema(ctx context.Context, es *Client, index, file string, s *model.Schema) error {
	if es == nil {
		return nil
	}
	if err := deleteFile(ctx, es, index, file); err != nil {
		return err
	}
	docs := ItemDocs(file, s)
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, d := range docs {
		meta, _ := json.Marshal(map[string]any{"index": map[string]any{"_index": index, "_id": docID(d)}})
		body, _ := json.Marshal(d)
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(body)
		buf.WriteByte('\n')
	}
	res, err := es.Bulk(&buf, es.Bulk.WithContext(ctx), es.Bulk.WithRefresh("wait_for"))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	raw, err := readBody(res)
	if err != nil {
		return err
	}
	if gjson.GetBytes(raw, "errors").Bool() {
		reason := gjson.GetBytes(raw, "items.#.index.error.reason").Array()
		return fmt.Errorf("es bulk index: %v", reason)
	}
	esLogger.Debug("schema indexed", zap.String("file", file), zap.Int("items", len(docs)))
	return nil
}

func deleteFile(ctx context.Context, es *Client, index, file string) error {
	q := map[string]any{"query": map[string]any{"term": map[string]any{"file.keyword": file}}}
	b, _ := json.Marshal(q)
	res, err := es.DeleteByQuery([]string{index}, bytes.NewReader(b), es.DeleteByQuery.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	_, err = readBody(res)
	return err
}

// Hit is a search result.
type Hit struct {
	Score float64 `json:"score"`
	ItemDoc
}

// SearchItems runs a full text query over item names, descriptions and groups.
func SearchItems(ctx context.Context, es *Client, index, query string, from, size int) ([]Hit, int64, error) {
	if es == nil {
		return []Hit{}, 0, nil
	}
	q := map[string]any{"query": map[string]any{"multi_match": map[string]any{
		"query":  query,
		"fields": []string{"name^3", "desc^2", "group", "schema"},
	}}}
	b, _ := json.Marshal(q)
	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(bytes.NewReader(b)),
		es.Search.WithFrom(from),
		es.Search.WithSize(size),
	)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	raw, err := readBody(res)
	if err != nil {
		return nil, 0, err
	}
	return parseHits(raw)
}

func parseHits(raw []byte) ([]Hit, int64, error) {
	if !gjson.ValidBytes(raw) {
		return nil, 0, fmt.Errorf("es search: invalid response")
	}
	total := gjson.GetBytes(raw, "hits.total.value").Int()
	hits := []Hit{}
	for _, h := range gjson.GetBytes(raw, "hits.hits").Array() {
		var d ItemDoc
		if err := json.Unmarshal([]byte(h.Get("_source").Raw), &d); err != nil {
			return nil, 0, err
		}
		hits = append(hits, Hit{Score: h.Get("_score").Float(), ItemDoc: d})
	}
	return hits, total, nil
}

func readBody(res *esapi.Response) ([]byte, error) {
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("es error: %s %s", res.Status(), gjson.GetBytes(raw, "error.reason").String())
	}
	return raw, nil
}
