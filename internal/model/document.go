package model

const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

type Document struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Format         string `json:"format"`
	StorageKey     string `json:"storage_key"`
	Status         string `json:"status"`
	StatusMessage  string `json:"status_message"`
	ChunkCount     int    `json:"chunk_count"`
	EmbeddingCount int    `json:"embedding_count"`
	ProcessedAt    int64  `json:"processed_at"`
	Ctime          int64  `json:"ctime"`
}
