package ai

import (
	"fmt"
	"strings"

	"github.com/kweaver00/askgraph/internal/model"
)

// AnswerSystemPrompt instructs the model to answer strictly from the
// retrieved chunks and cite sources.
const AnswerSystemPrompt = `You are a helpful assistant that answers questions from document excerpts.
Answer directly and concisely from the provided context. Use markdown for
structure. If the context does not contain the answer, say so instead of
guessing. End with a Sources section naming document and page for every
excerpt you used.`

// BuildAnswerPrompt formats retrieved chunks with their provenance and
// appends the user question.
func BuildAnswerPrompt(question string, chunks []model.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using the context excerpts below.\n\nCONTEXT:\n")
	if len(chunks) == 0 {
		sb.WriteString("No context available.\n")
	}
	for i, chunk := range chunks {
		fmt.Fprintf(&sb, "EXCERPT %d [source: %s, page: %d, score: %.4f]\n%s\n---\n",
			i+1, chunk.DocumentName, chunk.PageNumber, chunk.Score, chunk.Text)
	}
	sb.WriteString("\nQUESTION: ")
	sb.WriteString(question)
	return sb.String()
}
