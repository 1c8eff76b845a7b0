package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kweaver00/askgraph/internal/model"
)

// Extractor turns raw document bytes into per-page text. Pages that yield
// no usable text are skipped by the implementation, not surfaced as errors;
// a document with zero usable pages is the coordinator's problem.
type Extractor interface {
	Format() string
	Extract(ctx context.Context, data []byte) ([]model.PageText, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Extractor{}
)

// File extensions accepted as format names.
var aliases = map[string]string{
	"txt":      "plain",
	"text":     "plain",
	"md":       "markdown",
	"markdown": "markdown",
}

func Register(e Extractor) {
	key := strings.ToLower(strings.TrimSpace(e.Format()))
	if key == "" {
		return
	}
	registryMu.Lock()
	registry[key] = e
	registryMu.Unlock()
}

func ForFormat(format string) (Extractor, error) {
	key := strings.ToLower(strings.TrimSpace(format))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	registryMu.RLock()
	e := registry[key]
	registryMu.RUnlock()
	if e == nil {
		return nil, fmt.Errorf("unsupported document format: %s", format)
	}
	return e, nil
}
