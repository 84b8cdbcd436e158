package models

import "time"

// Group is a topical community; the unit of chat membership.
type Group struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Membership is the join relation between a user and a group.
type Membership struct {
	UserID   string    `db:"user_id" json:"user_id"`
	GroupID  string    `db:"group_id" json:"group_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
