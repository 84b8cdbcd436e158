package conversations

import (
	"context"
	"time"

	"community-service/internal/models"
)

// GroupLister yields the groups a user has joined.
type GroupLister interface {
	ListJoinedGroups(ctx context.Context, userID string) ([]models.Group, error)
}

// LatestLister yields the newest message of a group, nil when there is none.
type LatestLister interface {
	LatestGroupMessage(ctx context.Context, groupID string) (*models.Message, error)
}

// Index derives the per-user conversation list: one entry per joined group,
// carrying the latest message preview and a relative-time label.
type Index struct {
	groups   GroupLister
	messages LatestLister
	now      func() time.Time
}

// NewIndex constructs an Index.
func NewIndex(groups GroupLister, messages LatestLister) *Index {
	return &Index{groups: groups, messages: messages, now: time.Now}
}

// ListConversations recomputes the conversation list for a user. Groups
// without any message keep their query order but are pushed after groups with
// messages; no recency sort is applied. UnreadCount is not computed yet and
// is always zero.
func (ix *Index) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	groups, err := ix.groups.ListJoinedGroups(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := ix.now()
	withMessages := make([]models.Conversation, 0, len(groups))
	var silent []models.Conversation
	for _, group := range groups {
		conv := models.Conversation{
			GroupID:   group.ID,
			GroupName: group.Name,
			ImageURL:  group.ImageURL,
		}

		latest, err := ix.messages.LatestGroupMessage(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			conv.LastMessage = "No messages yet"
			silent = append(silent, conv)
			continue
		}

		conv.LastMessage = latest.Content
		conv.Timestamp = RelativeLabel(latest.CreatedAt, now)
		withMessages = append(withMessages, conv)
	}

	return append(withMessages, silent...), nil
}
