package extract

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/model"
)

// markdownExtractor renders markdown down to plain text, one page per
// thematic break. A document without breaks is a single page.
type markdownExtractor struct{}

func (e *markdownExtractor) Format() string {
	return "markdown"
}

func (e *markdownExtractor) Extract(ctx context.Context, data []byte) ([]model.PageText, error) {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var pages []string
	var current strings.Builder
	flush := func() {
		pages = append(pages, current.String())
		current.Reset()
	}
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if _, ok := node.(*ast.ThematicBreak); ok {
			flush()
			continue
		}
		txt := blockText(node, data)
		if txt == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(txt)
	}
	flush()

	pageCount := len(pages)
	result := make([]model.PageText, 0, pageCount)
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			logutil.GetLogger(ctx).Debug("skipping empty markdown page", zap.Int("page", i+1))
			continue
		}
		result = append(result, model.PageText{
			PageNumber: i + 1,
			PageCount:  pageCount,
			Text:       strings.TrimSpace(page),
		})
	}
	return result, nil
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
		case *ast.FencedCodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				line := t.Lines().At(i)
				sb.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func init() {
	Register(&markdownExtractor{})
}
