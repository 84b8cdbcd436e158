package models

// Conversation is the derived per-user, per-group summary of latest activity.
// It is recomputed on each load and never persisted. UnreadCount is carried
// for the client but not computed yet; it is always zero.
type Conversation struct {
	GroupID     string  `json:"group_id"`
	GroupName   string  `json:"group_name"`
	ImageURL    *string `json:"image_url,omitempty"`
	LastMessage string  `json:"last_message"`
	Timestamp   string  `json:"timestamp"`
	UnreadCount int     `json:"unread_count"`
}
