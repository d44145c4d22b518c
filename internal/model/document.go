package model

import "time"

// Ingestion pipeline states for a document.
const (
	StatusReceived   = "received"
	StatusExtracting = "extracting"
	StatusChunking   = "chunking"
	StatusEmbedding  = "embedding"
	StatusIndexed    = "indexed"
	StatusFailed     = "failed"
)

// Document is the registry row tracking one uploaded file through the
// ingestion pipeline. Chunks live in the vector index and reference the
// document by filename, not by this row's ID.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"size:500;not null;uniqueIndex" json:"filename"`
	DocType    string    `gorm:"size:50;not null" json:"doc_type"`
	UploadedBy string    `gorm:"size:128" json:"uploaded_by,omitempty"`
	Status     string    `gorm:"size:16;not null" json:"status"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
