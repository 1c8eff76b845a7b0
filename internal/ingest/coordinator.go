package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/extract"
	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
)

// Embedder is the batched embedding backend; one call per batch, never one
// call per chunk.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorInserter writes embedding records to the vector store.
type VectorInserter interface {
	InsertBatch(ctx context.Context, records []model.EmbeddingRecord) (int, error)
}

// ProgressStore persists a document's live ingestion counters.
type ProgressStore interface {
	UpdateProgress(ctx context.Context, id, status, message string, chunkCount, embeddingCount int, processedAt int64) error
}

// Coordinator drives extraction, streaming chunking, batched embedding and
// vector insertion for one document, reporting incremental progress.
// Batches of one document are processed strictly in chunk order; different
// documents may run concurrently on separate Coordinators calls.
type Coordinator struct {
	chunker   *Chunker
	embedder  Embedder
	vectors   VectorInserter
	documents ProgressStore
	batchSize int
}

func NewCoordinator(chunker *Chunker, embedder Embedder, vectors VectorInserter, documents ProgressStore, batchSize int) *Coordinator {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Coordinator{
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		documents: documents,
		batchSize: batchSize,
	}
}

// Ingest processes one document end to end. Failures after the first batch
// leave earlier batches in place: partial ingestion is intentional, the
// document's searchable content is incomplete rather than absent.
func (co *Coordinator) Ingest(ctx context.Context, doc *model.Document, data []byte) error {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", doc.ID), zap.String("document", doc.Name))

	co.setProgress(ctx, doc.ID, model.DocStatusProcessing, "Extracting text...", 0, 0, 0)

	extractor, err := extract.ForFormat(doc.Format)
	if err != nil {
		co.setProgress(ctx, doc.ID, model.DocStatusFailed, err.Error(), 0, 0, 0)
		return err
	}
	pages, err := extractor.Extract(ctx, data)
	if err != nil {
		msg := fmt.Sprintf("Failed to extract text: %v", err)
		co.setProgress(ctx, doc.ID, model.DocStatusFailed, msg, 0, 0, 0)
		return err
	}
	if len(pages) == 0 {
		co.setProgress(ctx, doc.ID, model.DocStatusFailed, "No text could be extracted", 0, 0, 0)
		return appErr.ErrNoTextExtracted
	}
	logger.Info("text extracted", zap.Int("pages", len(pages)))

	co.setProgress(ctx, doc.ID, model.DocStatusProcessing, "Chunking text and generating embeddings...", 0, 0, 0)

	stream := co.chunker.Stream(pages)
	var batch []*model.Chunk
	var chunkTotal, embeddingTotal int
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, err := co.processBatch(ctx, doc.Name, batch)
		if err != nil {
			return err
		}
		chunkTotal += len(batch)
		embeddingTotal += inserted
		msg := fmt.Sprintf("Processed %d chunks, inserted %d embeddings...", chunkTotal, embeddingTotal)
		co.setProgress(ctx, doc.ID, model.DocStatusProcessing, msg, chunkTotal, embeddingTotal, 0)
		batch = batch[:0]
		return nil
	}

	for {
		chunk, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			msg := fmt.Sprintf("Internal error while chunking: %v", err)
			co.setProgress(ctx, doc.ID, model.DocStatusFailed, msg, chunkTotal, embeddingTotal, 0)
			return err
		}
		batch = append(batch, chunk)
		if len(batch) >= co.batchSize {
			if err := flush(); err != nil {
				co.setProgress(ctx, doc.ID, model.DocStatusFailed, err.Error(), chunkTotal, embeddingTotal, 0)
				return err
			}
		}
	}
	if err := flush(); err != nil {
		co.setProgress(ctx, doc.ID, model.DocStatusFailed, err.Error(), chunkTotal, embeddingTotal, 0)
		return err
	}

	now := time.Now().UnixMilli()
	msg := fmt.Sprintf("Processing completed: %d chunks, %d embeddings", chunkTotal, embeddingTotal)
	if err := co.documents.UpdateProgress(ctx, doc.ID, model.DocStatusCompleted, msg, chunkTotal, embeddingTotal, now); err != nil {
		return fmt.Errorf("persist final status: %w", err)
	}
	logger.Info("ingestion completed", zap.Int("chunks", chunkTotal), zap.Int("embeddings", embeddingTotal))
	return nil
}

// processBatch embeds the batch texts in one call, pairs vectors with chunk
// metadata and inserts them.
func (co *Coordinator) processBatch(ctx context.Context, documentName string, batch []*model.Chunk) (int, error) {
	texts := make([]string, 0, len(batch))
	for _, chunk := range batch {
		texts = append(texts, chunk.Text)
	}
	vecs, err := co.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vecs) != len(batch) {
		return 0, fmt.Errorf("failed to generate embeddings: expected %d vectors, got %d", len(batch), len(vecs))
	}
	records := make([]model.EmbeddingRecord, 0, len(batch))
	for i, chunk := range batch {
		pageNumber := 1
		if len(chunk.PageNumbers) > 0 {
			pageNumber = chunk.PageNumbers[0]
		}
		records = append(records, model.EmbeddingRecord{
			Embedding:    vecs[i],
			Text:         chunk.Text,
			DocumentName: documentName,
			PageNumber:   pageNumber,
			ChunkIndex:   chunk.ChunkIndex,
			TokenCount:   chunk.TokenCount,
		})
	}
	inserted, err := co.vectors.InsertBatch(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to insert embeddings: %w", err)
	}
	return inserted, nil
}

// setProgress persists counters best-effort; a progress write failure must
// not abort the pipeline itself.
func (co *Coordinator) setProgress(ctx context.Context, id, status, message string, chunkCount, embeddingCount int, processedAt int64) {
	if status == model.DocStatusFailed && processedAt == 0 {
		processedAt = time.Now().UnixMilli()
	}
	if err := co.documents.UpdateProgress(ctx, id, status, message, chunkCount, embeddingCount, processedAt); err != nil {
		logutil.GetLogger(ctx).Warn("failed to persist ingestion progress",
			zap.String("document_id", id), zap.String("status", status), zap.Error(err))
	}
}
