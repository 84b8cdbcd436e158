package models

import "time"

// Message is one entry in a group transcript. Messages are immutable once
// created; anonymity hides authorship in the rendered view only, never in
// storage.
type Message struct {
	ID          string    `db:"id" json:"id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Content     string    `db:"content" json:"content"`
	IsAnonymous bool      `db:"is_anonymous" json:"is_anonymous"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MessageView is a message annotated with its author's profile.
type MessageView struct {
	Message
	AuthorName   string  `db:"author_name" json:"author_name"`
	AuthorAvatar *string `db:"author_avatar" json:"author_avatar,omitempty"`
}

// Render returns the view-safe copy of the message: anonymous authorship is
// masked and a missing author row falls back to "Unknown".
func (m MessageView) Render() MessageView {
	if m.IsAnonymous {
		m.AuthorName = "Anonymous"
		m.AuthorAvatar = nil
		return m
	}
	if m.AuthorName == "" {
		m.AuthorName = "Unknown"
	}
	return m
}

// ChatEvent is delivered over the websocket chat screen. Draft carries the
// unsent content back to the client when a send fails.
type ChatEvent struct {
	Type     string        `json:"type"`
	Message  *MessageView  `json:"message,omitempty"`
	Messages []MessageView `json:"messages,omitempty"`
	Error    string        `json:"error,omitempty"`
	Draft    string        `json:"draft,omitempty"`
}
