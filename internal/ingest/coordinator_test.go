package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kweaver00/askgraph/internal/extract"
	"github.com/kweaver00/askgraph/internal/model"
)

type fakeEmbedder struct {
	calls  [][]string
	failAt int // 1-based call number that fails, 0 means never
	dim    int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	dim := f.dim
	if dim == 0 {
		dim = 4
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = make([]float32, dim)
	}
	return vecs, nil
}

type fakeInserter struct {
	records []model.EmbeddingRecord
}

func (f *fakeInserter) InsertBatch(ctx context.Context, records []model.EmbeddingRecord) (int, error) {
	f.records = append(f.records, records...)
	return len(records), nil
}

type progressUpdate struct {
	status         string
	message        string
	chunkCount     int
	embeddingCount int
	processedAt    int64
}

type fakeProgress struct {
	updates []progressUpdate
}

func (f *fakeProgress) UpdateProgress(ctx context.Context, id, status, message string, chunkCount, embeddingCount int, processedAt int64) error {
	f.updates = append(f.updates, progressUpdate{status, message, chunkCount, embeddingCount, processedAt})
	return nil
}

func (f *fakeProgress) last(t *testing.T) progressUpdate {
	t.Helper()
	require.NotEmpty(t, f.updates)
	return f.updates[len(f.updates)-1]
}

// pagedExtractor serves fixed pages for a test-local format, standing in
// for a source where some pages fail extraction and are skipped.
type pagedExtractor struct {
	format string
	pages  []model.PageText
}

func (p *pagedExtractor) Format() string { return p.format }

func (p *pagedExtractor) Extract(ctx context.Context, data []byte) ([]model.PageText, error) {
	return p.pages, nil
}

func registerPages(format string, pages []model.PageText) {
	extract.Register(&pagedExtractor{format: format, pages: pages})
}

func testDoc(format string) *model.Document {
	return &model.Document{ID: "doc-1", Name: "handbook.txt", Format: format}
}

func TestCoordinatorBatchesEmbeddingCalls(t *testing.T) {
	// 7 three-token chunks with batch size 5: exactly two embed calls.
	var pages []model.PageText
	for i := 1; i <= 7; i++ {
		pages = append(pages, model.PageText{PageNumber: i, PageCount: 7, Text: strings.Repeat(string(rune('a'+i)), 3)})
	}
	registerPages("batch-test", pages)

	embedder := &fakeEmbedder{}
	inserter := &fakeInserter{}
	progress := &fakeProgress{}
	co := NewCoordinator(NewChunker(runeCodec{}, 3, 0), embedder, inserter, progress, 5)

	require.NoError(t, co.Ingest(context.Background(), testDoc("batch-test"), nil))

	require.Len(t, embedder.calls, 2)
	require.Len(t, embedder.calls[0], 5)
	require.Len(t, embedder.calls[1], 2)

	require.Len(t, inserter.records, 7)
	for i, rec := range inserter.records {
		require.Equal(t, i, rec.ChunkIndex)
		require.Equal(t, i+1, rec.PageNumber)
		require.Equal(t, "handbook.txt", rec.DocumentName)
		require.Equal(t, 3, rec.TokenCount)
	}

	final := progress.last(t)
	require.Equal(t, model.DocStatusCompleted, final.status)
	require.Equal(t, 7, final.chunkCount)
	require.Equal(t, 7, final.embeddingCount)
	require.NotZero(t, final.processedAt)
}

func TestCoordinatorReportsIncrementalProgress(t *testing.T) {
	var pages []model.PageText
	for i := 1; i <= 12; i++ {
		pages = append(pages, model.PageText{PageNumber: i, PageCount: 12, Text: "xx"})
	}
	registerPages("progress-test", pages)

	progress := &fakeProgress{}
	co := NewCoordinator(NewChunker(runeCodec{}, 2, 0), &fakeEmbedder{}, &fakeInserter{}, progress, 5)

	require.NoError(t, co.Ingest(context.Background(), testDoc("progress-test"), nil))

	var counts []int
	for _, u := range progress.updates {
		if u.status == model.DocStatusProcessing && u.chunkCount > 0 {
			counts = append(counts, u.chunkCount)
		}
	}
	// One update per flushed batch: 5, 10, then the final partial batch.
	require.Equal(t, []int{5, 10, 12}, counts)
	require.Equal(t, model.DocStatusCompleted, progress.last(t).status)
}

func TestCoordinatorSkipsUnextractablePage(t *testing.T) {
	// The extractor dropped page 2; ingestion proceeds with pages 1 and 3.
	registerPages("skip-test", []model.PageText{
		{PageNumber: 1, PageCount: 3, Text: "alpha"},
		{PageNumber: 3, PageCount: 3, Text: "gamma"},
	})

	inserter := &fakeInserter{}
	progress := &fakeProgress{}
	co := NewCoordinator(NewChunker(runeCodec{}, 5, 0), &fakeEmbedder{}, inserter, progress, 5)

	require.NoError(t, co.Ingest(context.Background(), testDoc("skip-test"), nil))

	require.Len(t, inserter.records, 2)
	require.Equal(t, 1, inserter.records[0].PageNumber)
	require.Equal(t, 3, inserter.records[1].PageNumber)

	final := progress.last(t)
	require.Equal(t, model.DocStatusCompleted, final.status)
	require.Equal(t, 2, final.chunkCount)
}

func TestCoordinatorFailsWhenNoTextExtracted(t *testing.T) {
	registerPages("empty-test", nil)

	embedder := &fakeEmbedder{}
	progress := &fakeProgress{}
	co := NewCoordinator(NewChunker(runeCodec{}, 5, 0), embedder, &fakeInserter{}, progress, 5)

	err := co.Ingest(context.Background(), testDoc("empty-test"), nil)
	require.Error(t, err)
	require.Empty(t, embedder.calls)

	final := progress.last(t)
	require.Equal(t, model.DocStatusFailed, final.status)
	require.Contains(t, final.message, "No text could be extracted")
	require.NotZero(t, final.processedAt)
}

func TestCoordinatorUnknownFormatFails(t *testing.T) {
	progress := &fakeProgress{}
	co := NewCoordinator(NewChunker(runeCodec{}, 5, 0), &fakeEmbedder{}, &fakeInserter{}, progress, 5)

	err := co.Ingest(context.Background(), testDoc("no-such-format"), nil)
	require.Error(t, err)

	final := progress.last(t)
	require.Equal(t, model.DocStatusFailed, final.status)
	require.Contains(t, final.message, "unsupported document format")
}

func TestCoordinatorKeepsEarlierBatchesOnFailure(t *testing.T) {
	var pages []model.PageText
	for i := 1; i <= 8; i++ {
		pages = append(pages, model.PageText{PageNumber: i, PageCount: 8, Text: "yy"})
	}
	registerPages("fail-test", pages)

	embedder := &fakeEmbedder{failAt: 2}
	inserter := &fakeInserter{}
	progress := &fakeProgress{}
	co := NewCoordinator(NewChunker(runeCodec{}, 2, 0), embedder, inserter, progress, 5)

	err := co.Ingest(context.Background(), testDoc("fail-test"), nil)
	require.Error(t, err)

	// The first batch survives; nothing is rolled back.
	require.Len(t, inserter.records, 5)

	final := progress.last(t)
	require.Equal(t, model.DocStatusFailed, final.status)
	require.Contains(t, final.message, "failed to generate embeddings")
	require.Equal(t, 5, final.chunkCount)
	require.Equal(t, 5, final.embeddingCount)
	require.NotZero(t, final.processedAt)
}
