package ingest

import (
	"io"
	"strings"

	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
	"github.com/kweaver00/askgraph/internal/tokenizer"
)

// Chunker slides a fixed token window over a document's concatenated page
// token stream, so chunks (and the overlap between consecutive chunks) can
// span page boundaries.
type Chunker struct {
	codec     tokenizer.Codec
	chunkSize int
	overlap   int
}

func NewChunker(codec tokenizer.Codec, chunkSize, overlap int) *Chunker {
	return &Chunker{codec: codec, chunkSize: chunkSize, overlap: overlap}
}

// Stream starts a lazy chunk iterator over the given pages. The stream is
// restartable per document by calling Stream again, not restartable
// mid-iteration.
func (c *Chunker) Stream(pages []model.PageText) *ChunkStream {
	s := &ChunkStream{
		codec:     c.codec,
		chunkSize: c.chunkSize,
		overlap:   c.overlap,
	}
	for _, page := range pages {
		s.boundaries = append(s.boundaries, len(s.tokens))
		s.pageNumbers = append(s.pageNumbers, page.PageNumber)
		s.tokens = append(s.tokens, c.codec.Encode(page.Text)...)
	}
	// Guards a window that fails to advance (e.g. overlap >= chunk size).
	s.maxIterations = 2 * len(s.tokens)
	return s
}

// ChunkStream yields chunks one at a time so batching downstream can start
// before the whole document is chunked.
type ChunkStream struct {
	codec       tokenizer.Codec
	chunkSize   int
	overlap     int
	tokens      []int
	boundaries  []int
	pageNumbers []int

	start         int
	chunkIndex    int
	iterations    int
	maxIterations int
	err           error
}

// Next returns the next chunk, io.EOF at stream end, or ErrChunkerStalled
// if the window stopped advancing. Whitespace-only windows are dropped
// without consuming a chunk index.
func (s *ChunkStream) Next() (*model.Chunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	total := len(s.tokens)
	for s.start < total {
		s.iterations++
		if s.iterations > s.maxIterations {
			s.err = appErr.ErrChunkerStalled
			return nil, s.err
		}

		end := s.start + s.chunkSize
		if end > total {
			end = total
		}
		window := s.tokens[s.start:end]
		text := s.codec.Decode(window)
		pages := s.pagesIn(s.start, end)

		atEnd := end >= total
		if atEnd {
			s.start = total
		} else {
			s.start = end - s.overlap
		}

		if strings.TrimSpace(text) == "" {
			continue
		}
		chunk := &model.Chunk{
			ChunkIndex:         s.chunkIndex,
			Text:               text,
			TokenCount:         len(window),
			PageNumbers:        pages,
			SpansMultiplePages: len(pages) > 1,
		}
		s.chunkIndex++
		return chunk, nil
	}
	s.err = io.EOF
	return nil, s.err
}

// pagesIn collects every page whose [boundary, nextBoundary) token range
// intersects [start, end). Boundaries are ascending, so the result is too.
func (s *ChunkStream) pagesIn(start, end int) []int {
	var pages []int
	total := len(s.tokens)
	for i, boundary := range s.boundaries {
		next := total
		if i+1 < len(s.boundaries) {
			next = s.boundaries[i+1]
		}
		if start < next && end > boundary {
			pages = append(pages, s.pageNumbers[i])
		}
	}
	return pages
}

// TotalTokens reports the size of the underlying token stream.
func (s *ChunkStream) TotalTokens() int {
	return len(s.tokens)
}
