package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForFormatResolvesAliases(t *testing.T) {
	for _, format := range []string{"plain", "txt", "TEXT", " md ", "markdown", "pdf", "PDF"} {
		e, err := ForFormat(format)
		require.NoError(t, err, format)
		require.NotNil(t, e)
	}
	_, err := ForFormat("docx")
	require.Error(t, err)
}

func TestPlainExtractorSplitsOnFormFeed(t *testing.T) {
	e, err := ForFormat("plain")
	require.NoError(t, err)

	pages, err := e.Extract(context.Background(), []byte("first page\f \t \fthird page"))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	// Page numbers keep their original positions even when the blank
	// middle page is dropped.
	require.Equal(t, 1, pages[0].PageNumber)
	require.Equal(t, "first page", pages[0].Text)
	require.Equal(t, 3, pages[1].PageNumber)
	require.Equal(t, "third page", pages[1].Text)
	require.Equal(t, 3, pages[0].PageCount)
}

func TestPlainExtractorAllBlank(t *testing.T) {
	e, err := ForFormat("plain")
	require.NoError(t, err)

	pages, err := e.Extract(context.Background(), []byte(" \f\t\f "))
	require.NoError(t, err)
	require.Empty(t, pages)
}

func TestMarkdownExtractorSplitsOnThematicBreak(t *testing.T) {
	e, err := ForFormat("markdown")
	require.NoError(t, err)

	src := "# Intro\n\nSome text here.\n\n---\n\n## Second\n\nMore text.\n\n```\ncode line\n```\n"
	pages, err := e.Extract(context.Background(), []byte(src))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	require.Contains(t, pages[0].Text, "Intro")
	require.Contains(t, pages[0].Text, "Some text here.")
	require.Contains(t, pages[1].Text, "More text.")
	require.Contains(t, pages[1].Text, "code line")
	require.Equal(t, 1, pages[0].PageNumber)
	require.Equal(t, 2, pages[1].PageNumber)
}

func TestPDFExtractorRejectsNonPDFData(t *testing.T) {
	e, err := ForFormat("pdf")
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), []byte("definitely not a pdf"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse pdf")
}

func TestMarkdownExtractorSinglePage(t *testing.T) {
	e, err := ForFormat("md")
	require.NoError(t, err)

	pages, err := e.Extract(context.Background(), []byte("just one paragraph"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, 1, pages[0].PageCount)
}
