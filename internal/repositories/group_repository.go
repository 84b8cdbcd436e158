package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"community-service/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group and membership persistence.
type GroupRepository interface {
	ListActiveGroups(ctx context.Context) ([]models.Group, error)
	ListJoinedGroups(ctx context.Context, userID string) ([]models.Group, error)
	JoinGroup(ctx context.Context, userID, groupID string) (alreadyMember bool, err error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	GetGroup(ctx context.Context, groupID string) (models.Group, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

const groupColumns = `id, name, description, image_url, is_active, created_at, updated_at`

// ListActiveGroups returns joinable groups, oldest first.
func (r *GroupRepo) ListActiveGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups,
		`SELECT `+groupColumns+` FROM groups WHERE is_active = TRUE ORDER BY created_at ASC`)
	return groups, err
}

// ListJoinedGroups returns groups that include the user, oldest first.
func (r *GroupRepo) ListJoinedGroups(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.description, g.image_url, g.is_active, g.created_at, g.updated_at
         FROM groups g INNER JOIN user_groups ug ON ug.group_id = g.id
         WHERE ug.user_id=$1 ORDER BY g.created_at ASC`, userID)
	return groups, err
}

// JoinGroup writes the membership row. Joining a group the user already
// belongs to is a normal success outcome, reported via alreadyMember.
func (r *GroupRepo) JoinGroup(ctx context.Context, userID, groupID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, groupID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM user_groups WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}
