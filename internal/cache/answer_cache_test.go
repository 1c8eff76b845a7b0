package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kweaver00/askgraph/internal/model"
)

func TestAnswerCacheNormalization(t *testing.T) {
	c := NewAnswerCache(100, time.Minute)
	c.Set("What is X?", model.CachedAnswer{Answer: "x is x", Source: "faq", FAQID: "f1"})

	variants := []string{
		"What is X?",
		" what is x? ",
		"WHAT IS X?",
	}
	for _, q := range variants {
		got, ok := c.Get(q)
		require.True(t, ok, "expected hit for %q", q)
		require.Equal(t, "x is x", got.Answer)
		require.Equal(t, "f1", got.FAQID)
	}
}

func TestAnswerCacheMissIsSilent(t *testing.T) {
	c := NewAnswerCache(100, time.Minute)
	_, ok := c.Get("never seen")
	require.False(t, ok)
}

func TestAnswerCacheClear(t *testing.T) {
	c := NewAnswerCache(100, time.Minute)
	c.Set("a", model.CachedAnswer{Answer: "1"})
	c.Set("b", model.CachedAnswer{Answer: "2"})
	require.Equal(t, 2, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok)
}
