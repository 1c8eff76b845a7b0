package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kweaver00/askgraph/internal/model"
)

// AnswerCache holds FAQ-tier answers keyed by normalized question text.
// Graph and RAG answers are never cached: their correctness depends on live
// graph or document state.
type AnswerCache struct {
	lru *expirable.LRU[string, model.CachedAnswer]
}

func NewAnswerCache(maxEntries int, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		lru: expirable.NewLRU[string, model.CachedAnswer](maxEntries, nil, ttl),
	}
}

// Normalize maps equivalent question phrasings to one cache slot.
func Normalize(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

func (c *AnswerCache) Get(question string) (model.CachedAnswer, bool) {
	return c.lru.Get(Normalize(question))
}

func (c *AnswerCache) Set(question string, answer model.CachedAnswer) {
	c.lru.Add(Normalize(question), answer)
}

func (c *AnswerCache) Clear() {
	c.lru.Purge()
}

func (c *AnswerCache) Len() int {
	return c.lru.Len()
}
