package model

// ChunkRecord is one embedded text segment as stored in the vector index.
type ChunkRecord struct {
	ChunkID    string    `json:"chunk_id"`
	Text       string    `json:"text"`
	Filename   string    `json:"filename"`
	DocType    string    `json:"doc_type"`
	ChunkIndex int       `json:"chunk_index"`
	Vector     []float32 `json:"-"`
}

// ChunkMetadata is the payload subset returned with search hits.
type ChunkMetadata struct {
	Filename   string `json:"filename"`
	DocType    string `json:"doc_type"`
	ChunkIndex int    `json:"chunk_index"`
}

// SearchHit is one raw vector-index match before response shaping.
type SearchHit struct {
	ChunkID    string
	Score      float32
	Text       string
	Filename   string
	DocType    string
	ChunkIndex int
}

// ChunkResult is one ranked search hit.
type ChunkResult struct {
	ChunkID  string        `json:"chunk_id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float32       `json:"score"`
}

// DocumentInfo is a distinct (filename, doc_type) pair derived from
// indexed chunks.
type DocumentInfo struct {
	Filename string `json:"filename"`
	DocType  string `json:"doc_type"`
}

// IngestJob is the queue message describing one staged upload.
type IngestJob struct {
	Filename   string `json:"filename"`
	StagedPath string `json:"staged_path"`
	DocType    string `json:"doc_type"`
	UploadedBy string `json:"uploaded_by,omitempty"`
}
