package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kweaver00/askgraph/internal/cache"
	"github.com/kweaver00/askgraph/internal/resolver"
	"github.com/kweaver00/askgraph/internal/task"
)

func TestAskReleasesPendingTaskWithoutSubscriber(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := task.NewMemoryBroker()
	pending := task.NewPendingRegistry()
	res := resolver.New(missGraph{}, missFAQ{}, cache.NewAnswerCache(10, time.Minute), noopHistory{},
		fixedEmbedder{}, fixedSearcher{hits: 3}, task.NewDispatcher(broker, pending), 5)
	h := NewChatHandler(nil, res, pending)

	r := gin.New()
	r.POST("/chat/ask", h.Ask)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/ask",
		strings.NewReader(`{"question":"what about overtime"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(resolver.SourceRAGPending))
	require.Zero(t, pending.Len())

	// The task itself stays queued; the worker writes the answer to chat
	// history even though nobody subscribes to the result channel.
	payload, ok, err := broker.Dequeue(context.Background(), task.QueueName, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	msg, err := task.DecodeMessage(payload)
	require.NoError(t, err)
	require.Equal(t, "what about overtime", msg.Question)
}
