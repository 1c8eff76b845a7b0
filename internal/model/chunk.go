package model

// PageText is the per-page output of text extraction. It lives only for the
// duration of the ingestion call that produced it.
type PageText struct {
	PageNumber int    `json:"page_number"`
	PageCount  int    `json:"page_count"`
	Text       string `json:"text"`
}

// Chunk is a token-bounded slice of document text. PageNumbers holds every
// page whose token range overlaps the chunk's window, ascending.
type Chunk struct {
	ChunkIndex         int    `json:"chunk_index"`
	Text               string `json:"text"`
	TokenCount         int    `json:"token_count"`
	PageNumbers        []int  `json:"page_numbers"`
	SpansMultiplePages bool   `json:"spans_multiple_pages"`
}
