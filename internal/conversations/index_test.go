package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"community-service/internal/models"
)

type stubGroups struct {
	groups []models.Group
	err    error
}

func (s *stubGroups) ListJoinedGroups(ctx context.Context, userID string) ([]models.Group, error) {
	return s.groups, s.err
}

type stubLatest struct {
	byGroup map[string]*models.Message
}

func (s *stubLatest) LatestGroupMessage(ctx context.Context, groupID string) (*models.Message, error) {
	return s.byGroup[groupID], nil
}

func TestRelativeLabelBuckets(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "Just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{48 * time.Hour, "2d ago"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, RelativeLabel(now.Add(-tc.age), now))
	}

	old := now.Add(-10 * 24 * time.Hour)
	require.Equal(t, "Jun 5, 2025", RelativeLabel(old, now))
}

func TestListConversationsPushesSilentGroupsLast(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	groups := &stubGroups{groups: []models.Group{
		{ID: "g1", Name: "Newborn Care"},
		{ID: "g2", Name: "Pregnancy Support"},
		{ID: "g3", Name: "Toddler Tips"},
	}}
	latest := &stubLatest{byGroup: map[string]*models.Message{
		"g1": {ID: "m1", GroupID: "g1", Content: "Has anyone tried this?", CreatedAt: now.Add(-5 * time.Minute)},
		"g3": {ID: "m2", GroupID: "g3", Content: "Thanks for sharing!", CreatedAt: now.Add(-3 * time.Hour)},
	}}

	ix := NewIndex(groups, latest)
	ix.now = func() time.Time { return now }

	convs, err := ix.ListConversations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, convs, 3)

	// groups keep query order among themselves; the silent one goes last
	require.Equal(t, "g1", convs[0].GroupID)
	require.Equal(t, "g3", convs[1].GroupID)
	require.Equal(t, "g2", convs[2].GroupID)

	require.Equal(t, "5m ago", convs[0].Timestamp)
	require.Equal(t, "3h ago", convs[1].Timestamp)
	require.Equal(t, "No messages yet", convs[2].LastMessage)

	for _, conv := range convs {
		require.Zero(t, conv.UnreadCount)
	}
}
