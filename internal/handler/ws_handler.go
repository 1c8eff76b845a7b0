package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/resolver"
	"github.com/kweaver00/askgraph/internal/task"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsMaxMessage   = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler serves live chat connections. Each connection gets its own
// client id, one result subscriber and a serialized write path.
type WSHandler struct {
	resolver *resolver.Resolver
	fanout   *task.Fanout
}

func NewWSHandler(res *resolver.Resolver, fanout *task.Fanout) *WSHandler {
	return &WSHandler{resolver: res, fanout: fanout}
}

type wsQuestion struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) sendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.send(payload)
}

func (h *WSHandler) Chat(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	clientID := uuid.NewString()
	userID := getUserID(c)
	logger := logutil.GetLogger(c.Request.Context()).With(zap.String("client_id", clientID))
	logger.Info("chat connection opened")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	ws := &wsConn{conn: conn}
	defer conn.Close()

	// One subscriber per connection; cancelling ctx on disconnect purges
	// this client's pending tasks without touching in-flight workers.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.fanout.Listen(ctx, clientID, ws.send); err != nil {
			logger.Warn("result subscriber stopped", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ws.mu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				ws.mu.Unlock()
				if err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(wsMaxMessage)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var q wsQuestion
		if err := json.Unmarshal(raw, &q); err != nil || q.Question == "" {
			_ = ws.sendJSON(gin.H{"type": "error", "message": "invalid message"})
			continue
		}
		if userID != "" {
			q.UserID = userID
		}
		h.answer(ctx, ws, clientID, &q)
	}

	cancel()
	wg.Wait()
	logger.Info("chat connection closed")
}

func (h *WSHandler) answer(ctx context.Context, ws *wsConn, clientID string, q *wsQuestion) {
	_ = ws.sendJSON(gin.H{"type": "processing", "message": "Looking for an answer..."})

	result, err := h.resolver.Resolve(ctx, &resolver.Request{
		Question:  q.Question,
		SessionID: q.SessionID,
		UserID:    q.UserID,
		ClientID:  clientID,
	})
	if err != nil {
		_ = ws.sendJSON(gin.H{"type": "error", "message": "failed to process your question"})
		return
	}
	_ = ws.sendJSON(responseMessage(result))
}

// responseMessage flattens the resolution result into the outbound frame.
func responseMessage(result *resolver.Result) gin.H {
	msg := gin.H{
		"type":     "response",
		"source":   result.Source,
		"question": result.Question,
	}
	switch result.Source {
	case resolver.SourceKnowledgeGraph:
		msg["targets"] = result.Targets
	case resolver.SourceCache, resolver.SourceFAQ:
		msg["answer"] = result.Answer
		msg["faq_id"] = result.FAQID
		msg["category"] = result.Category
	case resolver.SourceRAGPending:
		msg["task_id"] = result.TaskID
		msg["message"] = "Searching the documents, this can take a moment..."
	default:
		msg["message"] = result.Message
	}
	return msg
}
