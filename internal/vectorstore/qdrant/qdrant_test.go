package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ragapi/internal/model"
)

func newTestStore(url string) *Store {
	return NewStore(Config{URL: url, Collection: "docs"})
}

func TestEnsureCollection(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/docs" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newTestStore(server.URL).EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	vectors := gotBody["vectors"].(map[string]interface{})
	if vectors["size"].(float64) != 768 || vectors["distance"] != "Cosine" {
		t.Errorf("vectors config = %v", vectors)
	}
}

func collectionInfoBody(size int) map[string]interface{} {
	return map[string]interface{}{
		"result": map[string]interface{}{
			"config": map[string]interface{}{
				"params": map[string]interface{}{
					"vectors": map[string]interface{}{
						"size":     size,
						"distance": "Cosine",
					},
				},
			},
		},
	}
}

func TestEnsureCollectionAlreadyExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusConflict)
			return
		}
		json.NewEncoder(w).Encode(collectionInfoBody(768))
	}))
	defer server.Close()

	if err := newTestStore(server.URL).EnsureCollection(context.Background(), 768); err != nil {
		t.Errorf("an existing collection with the same dimension must not be an error, got %v", err)
	}
}

func TestEnsureCollectionDimensionConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusConflict)
			return
		}
		json.NewEncoder(w).Encode(collectionInfoBody(384))
	}))
	defer server.Close()

	err := newTestStore(server.URL).EnsureCollection(context.Background(), 768)
	if err == nil {
		t.Fatal("a collection created with a different dimension must be rejected")
	}
	if !strings.Contains(err.Error(), "dimension") {
		t.Errorf("error = %v, want a dimension mismatch", err)
	}
}

func TestEnsureCollectionInvalidDimension(t *testing.T) {
	if err := newTestStore("http://unused").EnsureCollection(context.Background(), 0); err == nil {
		t.Error("EnsureCollection(0) should fail")
	}
}

func TestUpsertWaitsAndUsesDeterministicIDs(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Points []struct {
			ID      string    `json:"id"`
			Vector  []float32 `json:"vector"`
			Payload payload   `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	records := []model.ChunkRecord{{
		ChunkID:    "ab12cd34_0",
		Text:       "chunk text",
		Filename:   "doc.txt",
		DocType:    "policy",
		ChunkIndex: 0,
		Vector:     []float32{0.1, 0.2},
	}}
	if err := newTestStore(server.URL).Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if gotPath != "/collections/docs/points?wait=true" {
		t.Errorf("path = %q, want wait=true upsert", gotPath)
	}
	if len(gotBody.Points) != 1 {
		t.Fatalf("got %d points", len(gotBody.Points))
	}
	point := gotBody.Points[0]
	if point.ID != pointID("ab12cd34_0") {
		t.Errorf("point ID = %q, not the deterministic UUID for the chunk", point.ID)
	}
	if point.Payload.ChunkID != "ab12cd34_0" || point.Payload.Filename != "doc.txt" {
		t.Errorf("payload = %+v", point.Payload)
	}
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	if err := newTestStore("http://unused").Upsert(context.Background(), nil); err != nil {
		t.Errorf("Upsert(nil) error = %v", err)
	}
}

func TestSearchForwardsFilterAndMapsHits(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{
					"score": 0.88,
					"payload": map[string]interface{}{
						"chunk_id":    "ab12cd34_1",
						"text":        "second chunk",
						"filename":    "doc.txt",
						"doc_type":    "policy",
						"chunk_index": 1,
					},
				},
			},
		})
	}))
	defer server.Close()

	hits, err := newTestStore(server.URL).Search(context.Background(), []float32{0.1}, 3, map[string]string{"filename": "doc.txt"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotBody["limit"].(float64) != 3 {
		t.Errorf("limit = %v", gotBody["limit"])
	}
	filter := gotBody["filter"].(map[string]interface{})
	must := filter["must"].([]interface{})
	cond := must[0].(map[string]interface{})
	if cond["key"] != "filename" {
		t.Errorf("filter condition = %v", cond)
	}

	if len(hits) != 1 {
		t.Fatalf("got %d hits", len(hits))
	}
	hit := hits[0]
	if hit.ChunkID != "ab12cd34_1" || hit.Score != 0.88 || hit.ChunkIndex != 1 {
		t.Errorf("hit = %+v", hit)
	}
}

func TestDeleteByFilenameWaits(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newTestStore(server.URL).DeleteByFilename(context.Background(), "doc.txt"); err != nil {
		t.Fatalf("DeleteByFilename() error = %v", err)
	}
	if gotPath != "/collections/docs/points/delete?wait=true" {
		t.Errorf("path = %q, delete must wait for completion", gotPath)
	}
	must := gotBody["filter"].(map[string]interface{})["must"].([]interface{})
	match := must[0].(map[string]interface{})["match"].(map[string]interface{})
	if match["value"] != "doc.txt" {
		t.Errorf("delete filter value = %v", match["value"])
	}
}

func TestDocumentsScrollsAndDeduplicates(t *testing.T) {
	page := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/scroll" {
			t.Errorf("path = %q", r.URL.Path)
		}
		page++
		if page == 1 {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]interface{}{
					"points": []map[string]interface{}{
						{"payload": map[string]interface{}{"filename": "a.txt", "doc_type": "general"}},
						{"payload": map[string]interface{}{"filename": "a.txt", "doc_type": "general"}},
						{"payload": map[string]interface{}{"filename": "b.md", "doc_type": "policy"}},
					},
					"next_page_offset": "cursor-1",
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"points": []map[string]interface{}{
					{"payload": map[string]interface{}{"filename": "b.md", "doc_type": "policy"}},
					{"payload": map[string]interface{}{"filename": "c.pdf", "doc_type": "manual"}},
				},
				"next_page_offset": nil,
			},
		})
	}))
	defer server.Close()

	docs, err := newTestStore(server.URL).Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if page != 2 {
		t.Errorf("scrolled %d pages, want 2", page)
	}
	want := []model.DocumentInfo{
		{Filename: "a.txt", DocType: "general"},
		{Filename: "b.md", DocType: "policy"},
		{Filename: "c.pdf", DocType: "manual"},
	}
	if len(docs) != len(want) {
		t.Fatalf("docs = %+v", docs)
	}
	for i := range want {
		if docs[i] != want[i] {
			t.Errorf("docs[%d] = %+v, want %+v", i, docs[i], want[i])
		}
	}
}

func TestHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newTestStore(server.URL).Healthy(context.Background()); err != nil {
		t.Errorf("Healthy() error = %v", err)
	}
}
