package model

type ChatSession struct {
	RowID     int64  `json:"row_id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Ctime     int64  `json:"ctime"`
}

type ChatMessage struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Source    string `json:"source"`
	Ctime     int64  `json:"ctime"`
}
