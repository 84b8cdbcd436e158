package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"community-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for group messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, groupID, userID, content string, anonymous bool) (models.Message, error)
	ListGroupMessages(ctx context.Context, groupID string) ([]models.MessageView, error)
	GetMessage(ctx context.Context, messageID string) (models.MessageView, error)
	LatestGroupMessage(ctx context.Context, groupID string) (*models.Message, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage persists a group message.
func (r *MessageRepo) CreateMessage(ctx context.Context, groupID, userID, content string, anonymous bool) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (group_id, user_id, content, is_anonymous) VALUES ($1, $2, $3, $4)
         RETURNING id, group_id, user_id, content, is_anonymous, created_at`,
		groupID, userID, content, anonymous).
		Scan(&msg.ID, &msg.GroupID, &msg.UserID, &msg.Content, &msg.IsAnonymous, &msg.CreatedAt)
	return msg, err
}

const messageViewColumns = `m.id, m.group_id, m.user_id, m.content, m.is_anonymous, m.created_at,
        COALESCE(u.full_name, '') AS author_name, u.avatar_url AS author_avatar`

// ListGroupMessages returns the group transcript ordered by creation time
// ascending, each row joined with its author's display name and avatar.
func (r *MessageRepo) ListGroupMessages(ctx context.Context, groupID string) ([]models.MessageView, error) {
	var msgs []models.MessageView
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageViewColumns+`
         FROM messages m LEFT JOIN users u ON u.id = m.user_id
         WHERE m.group_id=$1 ORDER BY m.created_at ASC`, groupID)
	return msgs, err
}

// GetMessage fetches a single message with its author profile.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.MessageView, error) {
	var msg models.MessageView
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageViewColumns+`
         FROM messages m LEFT JOIN users u ON u.id = m.user_id
         WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageView{}, ErrMessageNotFound
	}
	return msg, err
}

// LatestGroupMessage returns the newest message of a group, or nil when the
// group has no messages yet.
func (r *MessageRepo) LatestGroupMessage(ctx context.Context, groupID string) (*models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, group_id, user_id, content, is_anonymous, created_at
         FROM messages WHERE group_id=$1 ORDER BY created_at DESC LIMIT 1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
