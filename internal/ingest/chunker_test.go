package ingest

import (
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
)

// runeCodec maps every rune to one token, so tests can reason about token
// offsets directly from the text.
type runeCodec struct{}

func (runeCodec) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (runeCodec) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}

func collect(t *testing.T, s *ChunkStream) []*model.Chunk {
	t.Helper()
	var chunks []*model.Chunk
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
}

func TestChunkerCrossPageWindow(t *testing.T) {
	// Two pages of 6 and 9 tokens, window 10, overlap 2: the first window
	// crosses the page boundary, the second covers only page 2's tail.
	pages := []model.PageText{
		{PageNumber: 1, PageCount: 2, Text: "abcdef"},
		{PageNumber: 2, PageCount: 2, Text: "ghijklmno"},
	}
	chunker := NewChunker(runeCodec{}, 10, 2)
	chunks := collect(t, chunker.Stream(pages))

	require.Len(t, chunks, 2)

	require.Equal(t, 0, chunks[0].ChunkIndex)
	require.Equal(t, "abcdefghij", chunks[0].Text)
	require.Equal(t, 10, chunks[0].TokenCount)
	require.Equal(t, []int{1, 2}, chunks[0].PageNumbers)
	require.True(t, chunks[0].SpansMultiplePages)

	require.Equal(t, 1, chunks[1].ChunkIndex)
	require.Equal(t, "ijklmno", chunks[1].Text)
	require.Equal(t, 7, chunks[1].TokenCount)
	require.Equal(t, []int{2}, chunks[1].PageNumbers)
	require.False(t, chunks[1].SpansMultiplePages)

	// Consecutive chunks share exactly the overlap tokens.
	require.Equal(t, chunks[0].Text[len(chunks[0].Text)-2:], chunks[1].Text[:2])
}

func TestChunkerCoversFullStreamWithoutGaps(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog again and again"
	configs := []struct {
		size    int
		overlap int
	}{
		{10, 2},
		{7, 3},
		{25, 5},
		{100, 10},
	}
	for _, cfg := range configs {
		chunker := NewChunker(runeCodec{}, cfg.size, cfg.overlap)
		chunks := collect(t, chunker.Stream([]model.PageText{{PageNumber: 1, PageCount: 1, Text: text}}))
		require.NotEmpty(t, chunks)

		// Dropping each chunk's leading overlap reconstructs the stream.
		rebuilt := chunks[0].Text
		for _, chunk := range chunks[1:] {
			require.Greater(t, len(chunk.Text), cfg.overlap)
			rebuilt += chunk.Text[cfg.overlap:]
		}
		require.Equal(t, text, rebuilt, "size=%d overlap=%d", cfg.size, cfg.overlap)

		for _, chunk := range chunks {
			require.LessOrEqual(t, chunk.TokenCount, cfg.size)
		}
	}
}

func TestChunkerPageNumbersSortedAndComplete(t *testing.T) {
	pages := []model.PageText{
		{PageNumber: 1, PageCount: 3, Text: "aaa"},
		{PageNumber: 2, PageCount: 3, Text: "bbb"},
		{PageNumber: 3, PageCount: 3, Text: "ccc"},
	}
	// Window larger than all three pages together.
	chunker := NewChunker(runeCodec{}, 20, 4)
	chunks := collect(t, chunker.Stream(pages))

	require.Len(t, chunks, 1)
	require.Equal(t, []int{1, 2, 3}, chunks[0].PageNumbers)
	require.True(t, chunks[0].SpansMultiplePages)
	require.True(t, sort.IntsAreSorted(chunks[0].PageNumbers))
	require.Equal(t, 9, chunks[0].TokenCount)
}

func TestChunkerLazyMatchesEager(t *testing.T) {
	pages := []model.PageText{
		{PageNumber: 1, PageCount: 2, Text: "some text on the first page"},
		{PageNumber: 2, PageCount: 2, Text: "and a little more on the second"},
	}
	chunker := NewChunker(runeCodec{}, 12, 4)

	eager := collect(t, chunker.Stream(pages))

	// A second stream over the same pages, consumed one element at a time,
	// yields the identical sequence.
	lazy := chunker.Stream(pages)
	for i, want := range eager {
		got, err := lazy.Next()
		require.NoError(t, err)
		require.Equal(t, want, got, "chunk %d", i)
	}
	_, err := lazy.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestChunkerDropsWhitespaceWindows(t *testing.T) {
	pages := []model.PageText{
		{PageNumber: 1, PageCount: 3, Text: "ab"},
		{PageNumber: 2, PageCount: 3, Text: "      "},
		{PageNumber: 3, PageCount: 3, Text: "cd"},
	}
	chunker := NewChunker(runeCodec{}, 2, 0)
	chunks := collect(t, chunker.Stream(pages))

	require.Len(t, chunks, 2)
	require.Equal(t, "ab", chunks[0].Text)
	require.Equal(t, "cd", chunks[1].Text)
	// Dropped windows do not consume chunk indices.
	require.Equal(t, 0, chunks[0].ChunkIndex)
	require.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestChunkerStallGuard(t *testing.T) {
	pages := []model.PageText{{PageNumber: 1, PageCount: 1, Text: "abcd"}}
	// overlap == chunk size: the window can never advance.
	chunker := NewChunker(runeCodec{}, 2, 2)
	stream := chunker.Stream(pages)

	var err error
	for i := 0; i < 100; i++ {
		if _, err = stream.Next(); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, appErr.ErrChunkerStalled)

	// The stream stays failed after the guard trips.
	_, err = stream.Next()
	require.ErrorIs(t, err, appErr.ErrChunkerStalled)
}

func TestChunkerEmptyInput(t *testing.T) {
	chunker := NewChunker(runeCodec{}, 10, 2)
	stream := chunker.Stream(nil)
	_, err := stream.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestChunkerFinalChunkEndsExactlyAtStream(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxy"
	chunker := NewChunker(runeCodec{}, 10, 3)
	chunks := collect(t, chunker.Stream([]model.PageText{{PageNumber: 1, PageCount: 1, Text: text}}))

	last := chunks[len(chunks)-1]
	require.Equal(t, text[len(text)-len(last.Text):], last.Text)

	total := 0
	for i, chunk := range chunks {
		if i > 0 {
			total -= 3
		}
		total += chunk.TokenCount
	}
	require.Equal(t, len(text), total)
}
