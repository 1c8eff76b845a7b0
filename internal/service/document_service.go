package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/extract"
	"github.com/kweaver00/askgraph/internal/filestore"
	"github.com/kweaver00/askgraph/internal/ingest"
	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
	"github.com/kweaver00/askgraph/internal/repo"
)

const maxUploadBytes = 32 << 20

// DocumentService accepts uploads, stores the raw file and runs ingestion
// in a bounded background pool. Ingestion failures surface through the
// document's status, never as a swallowed goroutine error.
type DocumentService struct {
	docs    *repo.DocumentRepo
	vectors *repo.VectorRepo
	store   filestore.Store
	coord   *ingest.Coordinator
	pool    *ants.Pool
}

func NewDocumentService(docs *repo.DocumentRepo, vectors *repo.VectorRepo, store filestore.Store, coord *ingest.Coordinator, concurrency int) (*DocumentService, error) {
	if concurrency <= 0 {
		concurrency = 2
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, err
	}
	return &DocumentService{docs: docs, vectors: vectors, store: store, coord: coord, pool: pool}, nil
}

// Close drains the ingestion pool. In-flight documents finish; queued ones
// are picked up again by the stale-processing reaper after restart.
func (s *DocumentService) Close() {
	s.pool.Release()
}

func (s *DocumentService) Upload(ctx context.Context, userID, name, description, format string, r io.Reader, size int64) (*model.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: document name is required", appErr.ErrInvalid)
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if _, err := extract.ForFormat(format); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalidFile, err)
	}
	if size > maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", appErr.ErrInvalidFile, maxUploadBytes)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", appErr.ErrInvalidFile)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", appErr.ErrInvalidFile, maxUploadBytes)
	}

	doc := &model.Document{
		ID:          newID(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Format:      format,
		StorageKey:  newID() + "." + format,
		Status:      model.DocStatusPending,
		Ctime:       time.Now().UnixMilli(),
	}
	if err := s.store.Save(ctx, doc.StorageKey, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.submitIngestion(ctx, doc, data)
	return doc, nil
}

// Reprocess re-reads the stored file, drops the document's existing
// embeddings and runs ingestion again.
func (s *DocumentService) Reprocess(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == model.DocStatusProcessing {
		return nil, fmt.Errorf("%w: document is already processing", appErr.ErrConflict)
	}
	f, err := s.store.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if _, err := s.vectors.DeleteByDocument(ctx, doc.Name); err != nil {
		return nil, err
	}
	if err := s.docs.UpdateProgress(ctx, doc.ID, model.DocStatusPending, "Queued for reprocessing", 0, 0, 0); err != nil {
		return nil, err
	}
	s.submitIngestion(ctx, doc, data)
	return doc, nil
}

// submitIngestion hands the document to the background pool. The ingestion
// context is detached from the request so a client disconnect cannot abort
// a half-ingested document.
func (s *DocumentService) submitIngestion(ctx context.Context, doc *model.Document, data []byte) {
	bgCtx := context.WithoutCancel(ctx)
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", doc.ID))
	if err := s.pool.Submit(func() {
		if err := s.coord.Ingest(bgCtx, doc, data); err != nil {
			logutil.GetLogger(bgCtx).Error("document ingestion failed",
				zap.String("document_id", doc.ID), zap.Error(err))
		}
	}); err != nil {
		logger.Error("failed to queue ingestion", zap.Error(err))
		if uerr := s.docs.UpdateProgress(bgCtx, doc.ID, model.DocStatusFailed,
			"Failed to queue ingestion", 0, 0, time.Now().UnixMilli()); uerr != nil {
			logger.Warn("failed to mark document failed", zap.Error(uerr))
		}
	}
}

func (s *DocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	return s.docs.Get(ctx, id)
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.docs.List(ctx)
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.vectors.DeleteByDocument(ctx, doc.Name); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
		logutil.GetLogger(ctx).Warn("failed to delete stored file",
			zap.String("key", doc.StorageKey), zap.Error(err))
	}
	return s.docs.Delete(ctx, id)
}
