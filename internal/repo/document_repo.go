package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/kweaver00/askgraph/internal/model"
	"github.com/kweaver00/askgraph/internal/pkg/dbutil"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":              doc.ID,
		"user_id":         doc.UserID,
		"name":            doc.Name,
		"description":     doc.Description,
		"format":          doc.Format,
		"storage_key":     doc.StorageKey,
		"status":          doc.Status,
		"status_message":  doc.StatusMessage,
		"chunk_count":     doc.ChunkCount,
		"embedding_count": doc.EmbeddingCount,
		"processed_at":    doc.ProcessedAt,
		"ctime":           doc.Ctime,
	}
	query, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(query), args...)
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*model.Document, error) {
	const query = `
		SELECT id, user_id, name, description, format, storage_key,
		       status, status_message, chunk_count, embedding_count, processed_at, ctime
		FROM documents
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.Description, &doc.Format, &doc.StorageKey,
		&doc.Status, &doc.StatusMessage, &doc.ChunkCount, &doc.EmbeddingCount, &doc.ProcessedAt, &doc.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) List(ctx context.Context) ([]model.Document, error) {
	const query = `
		SELECT id, user_id, name, description, format, storage_key,
		       status, status_message, chunk_count, embedding_count, processed_at, ctime
		FROM documents
		ORDER BY ctime DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.Description, &doc.Format, &doc.StorageKey,
			&doc.Status, &doc.StatusMessage, &doc.ChunkCount, &doc.EmbeddingCount, &doc.ProcessedAt, &doc.Ctime); err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	return items, rows.Err()
}

// UpdateProgress persists the document's live ingestion counters so status
// polling observes incremental progress, not an opaque "processing".
func (r *DocumentRepo) UpdateProgress(ctx context.Context, id, status, message string, chunkCount, embeddingCount int, processedAt int64) error {
	const query = `
		UPDATE documents
		SET status = $1, status_message = $2, chunk_count = $3, embedding_count = $4, processed_at = $5
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, query, status, message, chunkCount, embeddingCount, processedAt, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// FailStaleProcessing marks documents stuck in processing since before the
// cutoff as failed. Used by the reaper job after a crashed ingestion.
func (r *DocumentRepo) FailStaleProcessing(ctx context.Context, cutoff int64, message string) (int64, error) {
	const query = `
		UPDATE documents
		SET status = $1, status_message = $2
		WHERE status = $3 AND ctime < $4
	`
	res, err := r.db.ExecContext(ctx, query, model.DocStatusFailed, message, model.DocStatusProcessing, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
