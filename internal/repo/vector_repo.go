package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/kweaver00/askgraph/internal/model"
)

// VectorRepo holds chunk embeddings in a pgvector column and serves
// nearest-neighbor search over them.
type VectorRepo struct {
	db *sql.DB
}

func NewVectorRepo(db *sql.DB) *VectorRepo {
	return &VectorRepo{db: db}
}

// InsertBatch writes one ingestion batch in a single statement. Records are
// written once and never mutated.
func (r *VectorRepo) InsertBatch(ctx context.Context, records []model.EmbeddingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	now := time.Now().UnixMilli()
	var sb strings.Builder
	sb.WriteString(`INSERT INTO chunk_embeddings (embedding, text, document_name, page_number, chunk_index, token_count, ctime) VALUES `)
	args := make([]interface{}, 0, len(records)*7)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args,
			pgvector.NewVector(rec.Embedding),
			rec.Text,
			rec.DocumentName,
			rec.PageNumber,
			rec.ChunkIndex,
			rec.TokenCount,
			now,
		)
	}
	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Search returns the topK nearest chunks by L2 distance.
func (r *VectorRepo) Search(ctx context.Context, embedding []float32, topK int) ([]model.ScoredChunk, error) {
	const query = `
		SELECT embedding <-> $1 AS score, text, document_name, page_number, chunk_index, token_count
		FROM chunk_embeddings
		ORDER BY embedding <-> $1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.ScoredChunk
	for rows.Next() {
		var hit model.ScoredChunk
		var score float64
		if err := rows.Scan(&score, &hit.Text, &hit.DocumentName, &hit.PageNumber, &hit.ChunkIndex, &hit.TokenCount); err != nil {
			return nil, err
		}
		hit.Score = float32(score)
		items = append(items, hit)
	}
	return items, rows.Err()
}

// DeleteByDocument drops every chunk ingested from the named document.
func (r *VectorRepo) DeleteByDocument(ctx context.Context, documentName string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chunk_embeddings WHERE document_name = $1`, documentName)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
