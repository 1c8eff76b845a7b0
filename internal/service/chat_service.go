package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
	"github.com/kweaver00/askgraph/internal/repo"
)

type ChatService struct {
	chats *repo.ChatRepo
}

func NewChatService(chats *repo.ChatRepo) *ChatService {
	return &ChatService{chats: chats}
}

func (s *ChatService) CreateSession(ctx context.Context, userID, title string) (*model.ChatSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", appErr.ErrInvalid)
	}
	session := &model.ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Ctime:     time.Now().UnixMilli(),
	}
	if err := s.chats.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	return s.chats.ListSessions(ctx, userID)
}

func (s *ChatService) ListMessages(ctx context.Context, userID, sessionRef string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	sessionID, err := s.chats.ResolveSessionRef(ctx, userID, sessionRef)
	if err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, sessionID, limit)
}

// SaveAnswer persists an asynchronously computed question/answer pair. The
// worker calls this after the LLM completes, whether or not the asking
// client is still connected.
func (s *ChatService) SaveAnswer(ctx context.Context, sessionID, userID, question, answer string) error {
	resolved, err := s.chats.ResolveSessionRef(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	return s.chats.AppendMessage(ctx, &model.ChatMessage{
		MessageID: uuid.NewString(),
		SessionID: resolved,
		UserID:    userID,
		Question:  question,
		Answer:    answer,
		Source:    "rag",
		Ctime:     time.Now().UnixMilli(),
	})
}
