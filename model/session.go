package model

import "time"

// MessageRef identifies the single Telegram message showing a user's funnel.
type MessageRef struct {
	ChatID    int64 `json:"chatId"`
	MessageID int   `json:"messageId"`
}

// IsZero reports whether the ref points at no message.
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// Session is the funnel state of one user.
type Session struct {
	Stage         Stage             `json:"stage"`
	ActiveMessage MessageRef        `json:"activeMessage"`
	Answers       map[string]string `json:"answers,omitempty"` // stage tag -> choice tag
	StartedAt     time.Time         `json:"startedAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// NewSession starts a session at the first question.
func NewSession(active MessageRef, now time.Time) *Session {
	return &Session{
		Stage:         Question(0),
		ActiveMessage: active,
		Answers:       map[string]string{},
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy so stores never share the Answers map with callers.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return &c
}
