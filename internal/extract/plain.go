package extract

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/model"
)

// plainExtractor treats the input as UTF-8 text with form-feed page breaks.
type plainExtractor struct{}

func (e *plainExtractor) Format() string {
	return "plain"
}

func (e *plainExtractor) Extract(ctx context.Context, data []byte) ([]model.PageText, error) {
	raw := strings.Split(string(data), "\f")
	pageCount := len(raw)
	pages := make([]model.PageText, 0, pageCount)
	for i, text := range raw {
		if strings.TrimSpace(text) == "" {
			logutil.GetLogger(ctx).Debug("skipping empty page", zap.Int("page", i+1))
			continue
		}
		pages = append(pages, model.PageText{
			PageNumber: i + 1,
			PageCount:  pageCount,
			Text:       strings.TrimSpace(text),
		})
	}
	return pages, nil
}

func init() {
	Register(&plainExtractor{})
}
