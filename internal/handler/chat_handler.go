package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kweaver00/askgraph/internal/pkg/errcode"
	"github.com/kweaver00/askgraph/internal/pkg/response"
	"github.com/kweaver00/askgraph/internal/resolver"
	"github.com/kweaver00/askgraph/internal/service"
	"github.com/kweaver00/askgraph/internal/task"
)

type ChatHandler struct {
	chats    *service.ChatService
	resolver *resolver.Resolver
	pending  *task.PendingRegistry
}

func NewChatHandler(chats *service.ChatService, res *resolver.Resolver, pending *task.PendingRegistry) *ChatHandler {
	return &ChatHandler{chats: chats, resolver: res, pending: pending}
}

type sessionRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	session, err := h.chats.CreateSession(c.Request.Context(), getUserID(c), req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.chats.ListSessions(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sessions)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := h.chats.ListMessages(c.Request.Context(), getUserID(c), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, messages)
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

// Ask resolves a question over plain HTTP. A rag_pending result means the
// answer is being computed asynchronously; REST callers pick it up from
// chat history, live connections receive it pushed.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	clientID := uuid.NewString()
	result, err := h.resolver.Resolve(c.Request.Context(), &resolver.Request{
		Question:  req.Question,
		SessionID: req.SessionID,
		UserID:    getUserID(c),
		ClientID:  clientID,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	// The per-request client has no result subscriber; purging right away
	// keeps the registry bounded to live connections. The worker still runs
	// and writes the answer to chat history.
	h.pending.PurgeClient(clientID)
	response.Success(c, result)
}
