package task

import (
	"encoding/json"
	"fmt"

	"github.com/kweaver00/askgraph/internal/model"
)

const (
	// QueueName is the work queue the API enqueues to and workers consume.
	QueueName = "llm_tasks"

	resultChannelPrefix = "rag_result:"

	StatusSuccess = "success"
	SourceRAG     = "rag"
	TypeResult    = "result"
)

// ResultChannel names the per-client pub/sub channel a connection's
// subscriber listens on.
func ResultChannel(clientID string) string {
	return resultChannelPrefix + clientID
}

// ContextChunk carries the retrieved material a worker needs to compose an
// answer, stripped to the fields the wire format defines.
type ContextChunk struct {
	Text         string  `json:"text"`
	DocumentName string  `json:"document_name"`
	PageNumber   int     `json:"page_number"`
	Score        float32 `json:"score"`
}

// Message is one unit of queued work. MessageID doubles as the task id so
// results correlate without an extra lookup on the worker side.
type Message struct {
	Question      string         `json:"question"`
	ContextChunks []ContextChunk `json:"context_chunks"`
	SessionID     string         `json:"session_id"`
	UserID        string         `json:"user_id"`
	MessageID     string         `json:"message_id"`
	ClientID      string         `json:"client_id"`
}

// NewMessage builds a queue message from vector-search hits.
func NewMessage(question string, chunks []model.ScoredChunk, sessionID, userID, messageID, clientID string) *Message {
	msg := &Message{
		Question:  question,
		SessionID: sessionID,
		UserID:    userID,
		MessageID: messageID,
		ClientID:  clientID,
	}
	for _, chunk := range chunks {
		msg.ContextChunks = append(msg.ContextChunks, ContextChunk{
			Text:         chunk.Text,
			DocumentName: chunk.DocumentName,
			PageNumber:   chunk.PageNumber,
			Score:        chunk.Score,
		})
	}
	return msg
}

// ScoredChunks converts the wire chunks back for prompt building.
func (m *Message) ScoredChunks() []model.ScoredChunk {
	chunks := make([]model.ScoredChunk, 0, len(m.ContextChunks))
	for _, c := range m.ContextChunks {
		chunks = append(chunks, model.ScoredChunk{
			Text:         c.Text,
			DocumentName: c.DocumentName,
			PageNumber:   c.PageNumber,
			Score:        c.Score,
		})
	}
	return chunks
}

func (m *Message) Encode() ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode task message: %w", err)
	}
	return raw, nil
}

func DecodeMessage(raw []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("decode task message: %w", err)
	}
	if msg.MessageID == "" {
		return nil, fmt.Errorf("task message missing message_id")
	}
	return msg, nil
}

// ResultEnvelope is published on the client's result channel once the
// worker has an answer.
type ResultEnvelope struct {
	Type     string `json:"type"`
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
}

func NewResultEnvelope(taskID, question, answer string) *ResultEnvelope {
	return &ResultEnvelope{
		Type:     TypeResult,
		TaskID:   taskID,
		Status:   StatusSuccess,
		Question: question,
		Answer:   answer,
		Source:   SourceRAG,
	}
}

func (e *ResultEnvelope) Encode() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode result envelope: %w", err)
	}
	return raw, nil
}

func DecodeResultEnvelope(raw []byte) (*ResultEnvelope, error) {
	env := &ResultEnvelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, fmt.Errorf("decode result envelope: %w", err)
	}
	return env, nil
}
