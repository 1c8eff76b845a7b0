package handler

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kweaver00/askgraph/internal/cache"
	"github.com/kweaver00/askgraph/internal/model"
	"github.com/kweaver00/askgraph/internal/resolver"
	"github.com/kweaver00/askgraph/internal/task"
)

// Stores that miss on every tier except vector search, pushing resolution
// into the RAG fallback.
type missGraph struct{}

func (missGraph) GetNodeByText(ctx context.Context, text string) (*model.Node, error) {
	return nil, nil
}
func (missGraph) SearchNodesByText(ctx context.Context, text string) ([]model.Node, error) {
	return nil, nil
}
func (missGraph) GetTargetNodes(ctx context.Context, nodeID string) ([]model.Node, error) {
	return nil, nil
}
func (missGraph) HasOutboundEdges(ctx context.Context, nodeID string) (bool, error) {
	return false, nil
}

type missFAQ struct{}

func (missFAQ) GetByQuestion(ctx context.Context, question string) (*model.FAQ, error) {
	return nil, nil
}
func (missFAQ) SearchPartial(ctx context.Context, question string) ([]model.FAQ, error) {
	return nil, nil
}

type noopHistory struct{}

func (noopHistory) ResolveSessionRef(ctx context.Context, userID, ref string) (string, error) {
	return ref, nil
}
func (noopHistory) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	return nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

type fixedSearcher struct{ hits int }

func (s fixedSearcher) Search(ctx context.Context, embedding []float32, topK int) ([]model.ScoredChunk, error) {
	var chunks []model.ScoredChunk
	for i := 0; i < s.hits && i < topK; i++ {
		chunks = append(chunks, model.ScoredChunk{
			Text:         fmt.Sprintf("excerpt %d", i),
			DocumentName: "handbook.txt",
			PageNumber:   i + 1,
			Score:        0.2,
		})
	}
	return chunks, nil
}

func dialChat(t *testing.T, h *WSHandler) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/chat", h.Chat)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestChatConnectionRAGRoundTrip(t *testing.T) {
	broker := task.NewMemoryBroker()
	pending := task.NewPendingRegistry()
	res := resolver.New(missGraph{}, missFAQ{}, cache.NewAnswerCache(10, time.Minute), noopHistory{},
		fixedEmbedder{}, fixedSearcher{hits: 5}, task.NewDispatcher(broker, pending), 5)
	h := NewWSHandler(res, task.NewFanout(broker, pending))

	conn := dialChat(t, h)
	// Let the connection's result subscriber come up.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, conn.WriteJSON(gin.H{"question": "what about overtime"}))

	frame := readFrame(t, conn)
	require.Equal(t, "processing", frame["type"])

	frame = readFrame(t, conn)
	require.Equal(t, "response", frame["type"])
	require.Equal(t, string(resolver.SourceRAGPending), frame["source"])
	taskID, _ := frame["task_id"].(string)
	require.NotEmpty(t, taskID)

	// Simulate the worker publishing on the waiting client's channel.
	clientID, ok := pending.Complete(taskID)
	require.True(t, ok)
	pending.Register(taskID, clientID)
	raw, err := task.NewResultEnvelope(taskID, "what about overtime", "overtime is paid at 1.5x").Encode()
	require.NoError(t, err)
	receivers, err := broker.Publish(context.Background(), task.ResultChannel(clientID), raw)
	require.NoError(t, err)
	require.Equal(t, int64(1), receivers)

	frame = readFrame(t, conn)
	require.Equal(t, task.TypeResult, frame["type"])
	require.Equal(t, taskID, frame["task_id"])
	require.Equal(t, "overtime is paid at 1.5x", frame["answer"])
	require.Equal(t, task.SourceRAG, frame["source"])

	require.Zero(t, pending.Len())
}

func TestChatConnectionNotFound(t *testing.T) {
	broker := task.NewMemoryBroker()
	pending := task.NewPendingRegistry()
	res := resolver.New(missGraph{}, missFAQ{}, cache.NewAnswerCache(10, time.Minute), noopHistory{},
		fixedEmbedder{}, fixedSearcher{hits: 0}, task.NewDispatcher(broker, pending), 5)
	h := NewWSHandler(res, task.NewFanout(broker, pending))

	conn := dialChat(t, h)
	require.NoError(t, conn.WriteJSON(gin.H{"question": "nothing matches this"}))

	frame := readFrame(t, conn)
	require.Equal(t, "processing", frame["type"])

	frame = readFrame(t, conn)
	require.Equal(t, "response", frame["type"])
	require.Equal(t, string(resolver.SourceNotFound), frame["source"])
	require.NotEmpty(t, frame["message"])
	require.Zero(t, pending.Len())
}

func TestChatConnectionRejectsMalformedFrame(t *testing.T) {
	broker := task.NewMemoryBroker()
	pending := task.NewPendingRegistry()
	res := resolver.New(missGraph{}, missFAQ{}, cache.NewAnswerCache(10, time.Minute), noopHistory{},
		fixedEmbedder{}, fixedSearcher{hits: 0}, task.NewDispatcher(broker, pending), 5)
	h := NewWSHandler(res, task.NewFanout(broker, pending))

	conn := dialChat(t, h)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{}")))

	frame := readFrame(t, conn)
	require.Equal(t, "error", frame["type"])
}
