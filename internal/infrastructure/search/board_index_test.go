package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newFakeES(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*elasticsearch.Client, *[]recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handle(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es, &reqs
}

func TestBoardIndex_Index(t *testing.T) {
	es, reqs := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})
	idx := NewBoardIndex(es, "boards")

	err := idx.Index(context.Background(), &entity.Board{
		ID: "b1", UserID: "u1", Name: "Sprint plan", Tags: []string{"work"},
		UpdatedAt: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
	})

	require.NoError(t, err)
	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/boards/_doc/b1", got.Path)
	assert.JSONEq(t, `{"id":"b1","user_id":"u1","name":"Sprint plan","tags":["work"],"updated_at":"2024-02-03T04:05:06Z"}`, got.Body)
}

func TestBoardIndex_SearchScopesToUser(t *testing.T) {
	es, reqs := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"b2"},{"_id":"b1"}]}}`))
	})
	idx := NewBoardIndex(es, "boards")

	ids, err := idx.Search(context.Background(), "u1", "plan", 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b1"}, ids)
	require.Len(t, *reqs, 1)
	assert.True(t, strings.HasSuffix((*reqs)[0].Path, "/boards/_search"))

	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte((*reqs)[0].Body), &q))
	assert.EqualValues(t, 100, q["size"])
	assert.Contains(t, (*reqs)[0].Body, `"user_id":"u1"`)
}

func TestBoardIndex_SearchError(t *testing.T) {
	es, _ := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	_, err := NewBoardIndex(es, "boards").Search(context.Background(), "u1", "x", 10)

	assert.Error(t, err)
}

func TestBoardIndex_RemoveIgnoresMissing(t *testing.T) {
	es, reqs := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})

	require.NoError(t, NewBoardIndex(es, "boards").Remove(context.Background(), "gone"))
	assert.Equal(t, http.MethodDelete, (*reqs)[0].Method)
}
