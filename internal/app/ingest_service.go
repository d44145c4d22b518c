package app

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ragapi/internal/chunker"
	"ragapi/internal/extract"
	"ragapi/internal/model"
)

const (
	// Chunks shorter than this after trimming are never indexed.
	minChunkChars = 50
	// Stored chunk text is capped at this many runes.
	maxChunkChars = 8000
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the similarity-searchable chunk store.
type VectorIndex interface {
	Upsert(ctx context.Context, records []model.ChunkRecord) error
	Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.SearchHit, error)
	DeleteByFilename(ctx context.Context, filename string) error
	Documents(ctx context.Context) ([]model.DocumentInfo, error)
}

// DocumentRegistry tracks per-document pipeline state.
type DocumentRegistry interface {
	Upsert(doc *model.Document) error
	GetByFilename(filename string) (*model.Document, error)
	UpdateStatus(filename, status string) error
	MarkIndexed(filename string, chunkCount int) error
	MarkFailed(filename, reason string) error
	DeleteByFilename(filename string) error
}

// JobQueue hands staged uploads to the ingest worker.
type JobQueue interface {
	Publish(ctx context.Context, job model.IngestJob) error
}

// EmbedCache memoizes embeddings of previously seen chunk text.
type EmbedCache interface {
	Get(ctx context.Context, text string) ([]float32, bool, error)
	Set(ctx context.Context, text string, vector []float32) error
}

// IngestService owns the per-document pipeline:
// received -> extracting -> chunking -> embedding -> indexed | failed.
// Accept runs at the upload boundary and returns as soon as the job is
// queued; Process runs inside the worker.
type IngestService struct {
	registry  DocumentRegistry
	index     VectorIndex
	embedder  Embedder
	queue     JobQueue
	embCache  EmbedCache // optional
	uploadDir string
	dimension int
}

func NewIngestService(
	registry DocumentRegistry,
	index VectorIndex,
	embedder Embedder,
	queue JobQueue,
	embCache EmbedCache,
	uploadDir string,
	dimension int,
) *IngestService {
	return &IngestService{
		registry:  registry,
		index:     index,
		embedder:  embedder,
		queue:     queue,
		embCache:  embCache,
		uploadDir: uploadDir,
		dimension: dimension,
	}
}

// Accept stages the uploaded bytes, records the document as received, and
// queues the ingest job. Unsupported file types are rejected here, before
// anything is staged.
func (s *IngestService) Accept(ctx context.Context, filename, docType, uploadedBy string, data []byte) (*model.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || len(data) == 0 {
		return nil, ErrInvalidInput
	}
	if !extract.Supported(filename) {
		return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if docType == "" {
		docType = "general"
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	stagedPath := filepath.Join(s.uploadDir, filename)
	if err := os.WriteFile(stagedPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("stage upload failed: %w", err)
	}

	doc := &model.Document{
		Filename:   filename,
		DocType:    docType,
		UploadedBy: uploadedBy,
		Status:     model.StatusReceived,
	}
	if err := s.registry.Upsert(doc); err != nil {
		return nil, err
	}

	job := model.IngestJob{
		Filename:   filename,
		StagedPath: stagedPath,
		DocType:    docType,
		UploadedBy: uploadedBy,
	}
	if err := s.queue.Publish(ctx, job); err != nil {
		_ = s.registry.MarkFailed(filename, "enqueue failed: "+err.Error())
		return nil, err
	}
	return doc, nil
}

// Process drives one staged document through extraction, chunking,
// embedding, and indexing. Embedding is all-or-nothing: any failed chunk
// fails the document and nothing is written to the index. Chunk IDs are
// deterministic, so retrying a failed document re-upserts the same points.
func (s *IngestService) Process(ctx context.Context, job model.IngestJob) error {
	if err := s.registry.UpdateStatus(job.Filename, model.StatusExtracting); err != nil {
		return err
	}
	data, err := os.ReadFile(job.StagedPath)
	if err != nil {
		return s.fail(job.Filename, "read staged file", err)
	}
	text, err := extract.Text(job.Filename, data)
	if err != nil {
		return s.fail(job.Filename, "extract text", err)
	}

	if err := s.registry.UpdateStatus(job.Filename, model.StatusChunking); err != nil {
		return err
	}
	pieces, err := chunker.Split(text, chunker.DefaultSize, chunker.DefaultOverlap)
	if err != nil {
		return s.fail(job.Filename, "chunk text", err)
	}

	if err := s.registry.UpdateStatus(job.Filename, model.StatusEmbedding); err != nil {
		return err
	}
	idPrefix := chunkIDPrefix(job.Filename)
	var records []model.ChunkRecord
	for idx, piece := range pieces {
		if len(strings.TrimSpace(piece)) < minChunkChars {
			continue
		}
		vector, err := s.embed(ctx, piece)
		if err != nil {
			return s.fail(job.Filename, fmt.Sprintf("embed chunk %d", idx), err)
		}
		records = append(records, model.ChunkRecord{
			ChunkID:    fmt.Sprintf("%s_%d", idPrefix, idx),
			Text:       truncateRunes(piece, maxChunkChars),
			Filename:   job.Filename,
			DocType:    job.DocType,
			ChunkIndex: idx,
			Vector:     vector,
		})
	}

	if len(records) > 0 {
		if err := s.index.Upsert(ctx, records); err != nil {
			return s.fail(job.Filename, "upsert chunks", err)
		}
	}
	if err := s.registry.MarkIndexed(job.Filename, len(records)); err != nil {
		return err
	}
	log.Printf("indexed %d chunks from %s", len(records), job.Filename)
	return nil
}

// Delete removes all of a document's chunks from the index and drops its
// registry row. The index delete waits for completion, so a search issued
// after return cannot see the removed chunks.
func (s *IngestService) Delete(ctx context.Context, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ErrInvalidInput
	}
	if err := s.index.DeleteByFilename(ctx, filename); err != nil {
		return err
	}
	return s.registry.DeleteByFilename(filename)
}

// Documents lists distinct (filename, doc_type) pairs from indexed chunks.
func (s *IngestService) Documents(ctx context.Context) ([]model.DocumentInfo, error) {
	return s.index.Documents(ctx)
}

// Status returns the registry row for one filename.
func (s *IngestService) Status(filename string) (*model.Document, error) {
	doc, err := s.registry.GetByFilename(filename)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *IngestService) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embCache != nil {
		vector, ok, err := s.embCache.Get(ctx, text)
		if err != nil {
			log.Printf("embedding cache get failed: %v", err)
		} else if ok && len(vector) == s.dimension {
			return vector, nil
		}
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), s.dimension)
	}

	if s.embCache != nil {
		if err := s.embCache.Set(ctx, text, vector); err != nil {
			log.Printf("embedding cache set failed: %v", err)
		}
	}
	return vector, nil
}

func (s *IngestService) fail(filename, op string, err error) error {
	log.Printf("ingest %s: %s failed: %v", filename, op, err)
	if markErr := s.registry.MarkFailed(filename, op+": "+err.Error()); markErr != nil {
		log.Printf("ingest %s: mark failed: %v", filename, markErr)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// chunkIDPrefix derives the stable per-document ID prefix. The digest only
// namespaces chunk ordinals per filename, so a short prefix is enough.
func chunkIDPrefix(filename string) string {
	sum := md5.Sum([]byte(filename))
	return hex.EncodeToString(sum[:])[:8]
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
