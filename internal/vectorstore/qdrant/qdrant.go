package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragapi/internal/model"
)

const scrollPageSize = 1000

// Store is a REST client to a Qdrant collection using cosine distance.
// Qdrant point IDs must be UUIDs or unsigned ints, so each point gets a
// deterministic UUIDv5 derived from its chunk_id; the chunk_id itself
// travels in the payload.
type Store struct {
	url        string
	apiKey     string
	collection string
	httpClient *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type payload struct {
	ChunkID    string `json:"chunk_id"`
	Text       string `json:"text"`
	Filename   string `json:"filename"`
	DocType    string `json:"doc_type"`
	ChunkIndex int    `json:"chunk_index"`
}

// EnsureCollection creates the collection with the given vector dimension
// if it does not exist. Safe to call repeatedly; an already-existing
// collection is not an error, but one created with a different dimension
// is. The check-then-create race is left to Qdrant's own idempotency.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	status, raw, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return s.verifyDimension(ctx, dimension)
	}
	if status >= 300 {
		return fmt.Errorf("create collection failed: status %d: %s", status, raw)
	}
	return nil
}

// verifyDimension compares an existing collection's vector size against the
// configured one.
func (s *Store) verifyDimension(ctx context.Context, dimension int) error {
	status, raw, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("get collection info failed: status %d: %s", status, raw)
	}

	var parsed struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse collection info failed: %w", err)
	}
	if got := parsed.Result.Config.Params.Vectors.Size; got != dimension {
		return fmt.Errorf("collection %s has vector dimension %d, config expects %d", s.collection, got, dimension)
	}
	return nil
}

// Upsert writes all records in one batch and waits for them to be
// persisted. A record whose chunk_id was upserted before replaces the
// previous point (last write wins).
func (s *Store) Upsert(ctx context.Context, records []model.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		points[i] = map[string]interface{}{
			"id":     pointID(rec.ChunkID),
			"vector": rec.Vector,
			"payload": payload{
				ChunkID:    rec.ChunkID,
				Text:       rec.Text,
				Filename:   rec.Filename,
				DocType:    rec.DocType,
				ChunkIndex: rec.ChunkIndex,
			},
		}
	}
	body := map[string]interface{}{"points": points}
	status, raw, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("upsert points failed: status %d: %s", status, raw)
	}
	return nil
}

// Search returns up to topK hits ordered by descending cosine similarity.
// filter entries become payload equality conditions.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := matchFilter(filter); f != nil {
		body["filter"] = f
	}

	var parsed struct {
		Result []struct {
			Score   float32 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	status, raw, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), body)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("search points failed: status %d: %s", status, raw)
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response failed: %w", err)
	}

	hits := make([]model.SearchHit, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		hits = append(hits, model.SearchHit{
			ChunkID:    r.Payload.ChunkID,
			Score:      r.Score,
			Text:       r.Payload.Text,
			Filename:   r.Payload.Filename,
			DocType:    r.Payload.DocType,
			ChunkIndex: r.Payload.ChunkIndex,
		})
	}
	return hits, nil
}

// DeleteByFilename removes every point whose filename payload matches and
// waits for the deletion to be applied, so a search issued after return
// does not see the deleted chunks.
func (s *Store) DeleteByFilename(ctx context.Context, filename string) error {
	body := map[string]interface{}{
		"filter": matchFilter(map[string]string{"filename": filename}),
	}
	status, raw, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("delete points failed: status %d: %s", status, raw)
	}
	return nil
}

// Documents scrolls the collection and returns distinct
// (filename, doc_type) pairs in first-seen order.
func (s *Store) Documents(ctx context.Context) ([]model.DocumentInfo, error) {
	var docs []model.DocumentInfo
	seen := make(map[string]bool)

	var offset interface{}
	for {
		body := map[string]interface{}{
			"limit":        scrollPageSize,
			"with_payload": []string{"filename", "doc_type"},
		}
		if offset != nil {
			body["offset"] = offset
		}

		var parsed struct {
			Result struct {
				Points []struct {
					Payload payload `json:"payload"`
				} `json:"points"`
				NextPageOffset interface{} `json:"next_page_offset"`
			} `json:"result"`
		}
		status, raw, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), body)
		if err != nil {
			return nil, err
		}
		if status >= 300 {
			return nil, fmt.Errorf("scroll points failed: status %d: %s", status, raw)
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("parse scroll response failed: %w", err)
		}

		for _, p := range parsed.Result.Points {
			if p.Payload.Filename == "" || seen[p.Payload.Filename] {
				continue
			}
			seen[p.Payload.Filename] = true
			docs = append(docs, model.DocumentInfo{
				Filename: p.Payload.Filename,
				DocType:  p.Payload.DocType,
			})
		}

		offset = parsed.Result.NextPageOffset
		if offset == nil {
			break
		}
	}
	return docs, nil
}

// Healthy checks that the Qdrant instance answers collection listing.
func (s *Store) Healthy(ctx context.Context) error {
	status, raw, err := s.do(ctx, http.MethodGet, s.url+"/collections", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant unhealthy: status %d: %s", status, raw)
	}
	return nil
}

func (s *Store) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Store) do(ctx context.Context, method, url string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal qdrant request failed: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build qdrant request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read qdrant response failed: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func matchFilter(fields map[string]string) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	must := make([]map[string]interface{}, 0, len(fields))
	for key, value := range fields {
		must = append(must, map[string]interface{}{
			"key":   key,
			"match": map[string]interface{}{"value": value},
		})
	}
	return map[string]interface{}{"must": must}
}

func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}
