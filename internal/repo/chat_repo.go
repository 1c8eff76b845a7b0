package repo

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/didi/gendry/builder"

	"github.com/kweaver00/askgraph/internal/model"
	"github.com/kweaver00/askgraph/internal/pkg/dbutil"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) CreateSession(ctx context.Context, session *model.ChatSession) error {
	data := map[string]interface{}{
		"session_id": session.SessionID,
		"user_id":    session.UserID,
		"title":      session.Title,
		"ctime":      session.Ctime,
	}
	query, args, err := builder.BuildInsert("chat_sessions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, dbutil.Rebind(query), args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ChatRepo) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	const query = `
		SELECT row_id, session_id, user_id, title, ctime
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY ctime DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.ChatSession
	for rows.Next() {
		var session model.ChatSession
		if err := rows.Scan(&session.RowID, &session.SessionID, &session.UserID, &session.Title, &session.Ctime); err != nil {
			return nil, err
		}
		items = append(items, session)
	}
	return items, rows.Err()
}

// ResolveSessionRef maps a session reference to the canonical session id.
// Purely numeric references are treated as legacy row ids and translated;
// anything else passes through unchanged. The translation is a compatibility
// shim for data written under the old numeric scheme.
func (r *ChatRepo) ResolveSessionRef(ctx context.Context, userID, ref string) (string, error) {
	rowID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return ref, nil
	}
	const query = `SELECT session_id FROM chat_sessions WHERE row_id = $1 AND user_id = $2`
	var sessionID string
	if err := r.db.QueryRowContext(ctx, query, rowID, userID).Scan(&sessionID); err != nil {
		if err == sql.ErrNoRows {
			return ref, nil
		}
		return "", err
	}
	return sessionID, nil
}

func (r *ChatRepo) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	data := map[string]interface{}{
		"message_id": msg.MessageID,
		"session_id": msg.SessionID,
		"user_id":    msg.UserID,
		"question":   msg.Question,
		"answer":     msg.Answer,
		"source":     msg.Source,
		"ctime":      msg.Ctime,
	}
	query, args, err := builder.BuildInsert("chat_messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(query), args...)
	return err
}

func (r *ChatRepo) ListMessages(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	const query = `
		SELECT message_id, session_id, user_id, question, answer, source, ctime
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY ctime ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.UserID, &msg.Question, &msg.Answer, &msg.Source, &msg.Ctime); err != nil {
			return nil, err
		}
		items = append(items, msg)
	}
	return items, rows.Err()
}
