package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/model"
)

// pdfExtractor reads the embedded text layer page by page. Scanned pages
// without a text layer come back empty and are skipped like any other
// blank page.
type pdfExtractor struct{}

func (e *pdfExtractor) Format() string {
	return "pdf"
}

func (e *pdfExtractor) Extract(ctx context.Context, data []byte) ([]model.PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	pageCount := reader.NumPage()
	pages := make([]model.PageText, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logutil.GetLogger(ctx).Warn("failed to read pdf page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			logutil.GetLogger(ctx).Debug("skipping empty page", zap.Int("page", i))
			continue
		}
		pages = append(pages, model.PageText{
			PageNumber: i,
			PageCount:  pageCount,
			Text:       strings.TrimSpace(text),
		})
	}
	return pages, nil
}

func init() {
	Register(&pdfExtractor{})
}
