package model

// EmbeddingRecord is written once to the vector store and never mutated.
// PageNumber is the first entry of the source chunk's PageNumbers.
type EmbeddingRecord struct {
	Embedding    []float32 `json:"-"`
	Text         string    `json:"text"`
	DocumentName string    `json:"document_name"`
	PageNumber   int       `json:"page_number"`
	ChunkIndex   int       `json:"chunk_index"`
	TokenCount   int       `json:"token_count"`
}

// ScoredChunk is a nearest-neighbor search hit.
type ScoredChunk struct {
	Score        float32 `json:"score"`
	Text         string  `json:"text"`
	DocumentName string  `json:"document_name"`
	PageNumber   int     `json:"page_number"`
	ChunkIndex   int     `json:"chunk_index"`
	TokenCount   int     `json:"token_count"`
}
