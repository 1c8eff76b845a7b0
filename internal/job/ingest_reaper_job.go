package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/repo"
)

// IngestReaperJob fails documents stuck in processing, typically left
// behind by a crash mid-ingestion. Their already-inserted embeddings stay
// queryable; the document can be reprocessed explicitly.
type IngestReaperJob struct {
	docs       *repo.DocumentRepo
	maxAgeMins int
}

func NewIngestReaperJob(docs *repo.DocumentRepo, maxAgeMins int) *IngestReaperJob {
	return &IngestReaperJob{docs: docs, maxAgeMins: maxAgeMins}
}

func (j *IngestReaperJob) Name() string {
	return "ingest_reaper"
}

func (j *IngestReaperJob) Run(ctx context.Context) error {
	maxAge := j.maxAgeMins
	if maxAge <= 0 {
		maxAge = 60
	}
	cutoff := time.Now().Add(-time.Duration(maxAge) * time.Minute).UnixMilli()
	affected, err := j.docs.FailStaleProcessing(ctx, cutoff, "Processing interrupted, reprocess the document to retry")
	if err != nil {
		return err
	}
	if affected > 0 {
		logutil.GetLogger(ctx).Info("failed stale processing documents", zap.Int64("count", affected))
	}
	return nil
}
