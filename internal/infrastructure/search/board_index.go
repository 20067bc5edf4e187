// Package search indexes board metadata in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	"github.com/maplify-tech/whiteboard/internal/domain/repository"
)

const requestTimeout = 3 * time.Second

type BoardIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewBoardIndex(es *elasticsearch.Client, index string) *BoardIndex {
	return &BoardIndex{es: es, index: index}
}

type boardDoc struct {
	ID        string   `json:"id"`
	UserID    string   `json:"user_id"`
	Name      string   `json:"name"`
	Tags      []string `json:"tags"`
	UpdatedAt string   `json:"updated_at"`
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "keyword"},
      "user_id":    {"type": "keyword"},
      "name":       {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "tags":       {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "updated_at": {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist.
func (x *BoardIndex) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: x.index, Body: bytes.NewReader([]byte(indexMapping))}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("create index: %s", res.Status())
	}
	return nil
}

func (x *BoardIndex) Index(ctx context.Context, b *entity.Board) error {
	body, err := json.Marshal(boardDoc{
		ID:        b.ID,
		UserID:    b.UserID,
		Name:      b.Name,
		Tags:      b.Tags,
		UpdatedAt: b.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := esapi.IndexRequest{Index: x.index, DocumentID: b.ID, Body: bytes.NewReader(body), Refresh: "false"}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("index board: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index board: %s", res.Status())
	}
	return nil
}

func (x *BoardIndex) Remove(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.DeleteRequest{Index: x.index, DocumentID: id}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("remove board: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove board: %s", res.Status())
	}
	return nil
}

// Search matches q against name and tags within the user's boards.
func (x *BoardIndex) Search(ctx context.Context, userID, q string, size int) ([]string, error) {
	if size <= 0 || size > 500 {
		size = 100
	}
	query := map[string]any{
		"size":    size,
		"_source": []string{"id"},
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": userID}},
				},
				"must": []any{
					map[string]any{"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"name^2", "tags"},
						"fuzziness": "AUTO",
						"type":      "best_fields",
					}},
				},
			},
		},
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("search boards: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("search boards: %s: %s", res.Status(), msg)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

var _ repository.BoardIndex = (*BoardIndex)(nil)
