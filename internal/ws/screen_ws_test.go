package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"community-service/internal/mocks"
	"community-service/internal/models"
	"community-service/internal/realtime"
)

type stubVerifier struct {
	userID string
}

func (s *stubVerifier) Verify(token string) (string, error) {
	return s.userID, nil
}

func setupScreenServer(t *testing.T, groupRepo *mocks.GroupRepositoryMock, userRepo *mocks.UserRepositoryMock,
	messageRepo *mocks.MessageRepositoryMock, broker *realtime.Broker) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewChatScreenHandler(broker, groupRepo, userRepo, messageRepo,
		&stubVerifier{userID: "u1"}, 1000, zap.NewNop().Sugar())

	r := gin.New()
	r.GET("/ws/groups/:group_id", handler.Handle)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func dialScreen(t *testing.T, server *httptest.Server, groupID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/groups/" + groupID + "?token=x"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.ChatEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.ChatEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHandleRejectsInvalidGroupID(t *testing.T) {
	server := setupScreenServer(t, new(mocks.GroupRepositoryMock), new(mocks.UserRepositoryMock),
		new(mocks.MessageRepositoryMock), realtime.NewBroker())

	resp, err := http.Get(server.URL + "/ws/groups/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleRejectsNonMember(t *testing.T) {
	groupID := uuid.NewString()
	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, groupID, "u1").Return(false, nil).Once()

	server := setupScreenServer(t, groupRepo, new(mocks.UserRepositoryMock),
		new(mocks.MessageRepositoryMock), realtime.NewBroker())

	resp, err := http.Get(server.URL + "/ws/groups/" + groupID + "?token=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChatScreenHistorySendAndEchoDedup(t *testing.T) {
	groupID := uuid.NewString()
	broker := realtime.NewBroker()

	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, groupID, "u1").Return(true, nil).Once()

	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("GetUser", mock.Anything, "u1").
		Return(models.User{ID: "u1", FullName: "Maya Lopez"}, nil).Once()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	history := []models.MessageView{
		{Message: models.Message{ID: "h1", GroupID: groupID, UserID: "u2", Content: "welcome", CreatedAt: base}, AuthorName: "Jess"},
	}
	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("ListGroupMessages", mock.Anything, groupID).Return(history, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, groupID, "u1", "hello", false).
		Return(models.Message{ID: "m1", GroupID: groupID, UserID: "u1", Content: "hello", CreatedAt: base.Add(time.Minute)}, nil).Once()

	server := setupScreenServer(t, groupRepo, userRepo, messageRepo, broker)
	conn := dialScreen(t, server, groupID)

	snapshot := readEvent(t, conn)
	require.Equal(t, "history", snapshot.Type)
	require.Len(t, snapshot.Messages, 1)
	require.Equal(t, "welcome", snapshot.Messages[0].Content)

	require.NoError(t, conn.WriteJSON(map[string]any{"content": "hello"}))
	confirmed := readEvent(t, conn)
	require.Equal(t, "message", confirmed.Type)
	require.Equal(t, "m1", confirmed.Message.ID)

	// the broker echo of m1 carried the same id; no second frame may arrive
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var extra models.ChatEvent
	require.Error(t, conn.ReadJSON(&extra))

	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestChatScreenRejectsBlankSend(t *testing.T) {
	groupID := uuid.NewString()
	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, groupID, "u1").Return(true, nil).Once()

	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", FullName: "Maya Lopez"}, nil).Once()

	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("ListGroupMessages", mock.Anything, groupID).Return([]models.MessageView{}, nil).Once()

	server := setupScreenServer(t, groupRepo, userRepo, messageRepo, realtime.NewBroker())
	conn := dialScreen(t, server, groupID)

	snapshot := readEvent(t, conn)
	require.Equal(t, "history", snapshot.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"content": "   "}))
	event := readEvent(t, conn)
	require.Equal(t, "error", event.Type)

	// the backend was never contacted
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRealtimePushReachesOpenScreen(t *testing.T) {
	groupID := uuid.NewString()
	broker := realtime.NewBroker()

	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, groupID, "u1").Return(true, nil).Once()

	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", FullName: "Maya Lopez"}, nil).Once()

	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("ListGroupMessages", mock.Anything, groupID).Return([]models.MessageView{}, nil).Once()

	server := setupScreenServer(t, groupRepo, userRepo, messageRepo, broker)
	conn := dialScreen(t, server, groupID)

	snapshot := readEvent(t, conn)
	require.Equal(t, "history", snapshot.Type)

	broker.Publish(models.MessageView{
		Message:    models.Message{ID: "m9", GroupID: groupID, UserID: "u2", Content: "hi all", CreatedAt: time.Now()},
		AuthorName: "Jess",
	})

	event := readEvent(t, conn)
	require.Equal(t, "message", event.Type)
	require.Equal(t, "m9", event.Message.ID)
	require.Equal(t, "Jess", event.Message.AuthorName)
}

func TestReopenForOtherGroupDoesNotLeakPriorFeed(t *testing.T) {
	groupA := uuid.NewString()
	groupB := uuid.NewString()
	broker := realtime.NewBroker()

	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, groupA, "u1").Return(true, nil).Once()
	groupRepo.On("IsMember", mock.Anything, groupB, "u1").Return(true, nil).Once()

	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", FullName: "Maya Lopez"}, nil).Twice()

	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("ListGroupMessages", mock.Anything, groupA).Return([]models.MessageView{}, nil).Once()
	messageRepo.On("ListGroupMessages", mock.Anything, groupB).Return([]models.MessageView{}, nil).Once()

	server := setupScreenServer(t, groupRepo, userRepo, messageRepo, broker)

	connA := dialScreen(t, server, groupA)
	readEvent(t, connA) // history
	connA.Close()

	connB := dialScreen(t, server, groupB)
	readEvent(t, connB) // history

	broker.Publish(models.MessageView{
		Message:    models.Message{ID: "mA", GroupID: groupA, UserID: "u2", Content: "old room", CreatedAt: time.Now()},
		AuthorName: "Jess",
	})
	broker.Publish(models.MessageView{
		Message:    models.Message{ID: "mB", GroupID: groupB, UserID: "u2", Content: "new room", CreatedAt: time.Now()},
		AuthorName: "Jess",
	})

	// the first frame on the second screen must be its own group's message;
	// nothing from the first group may leak through
	event := readEvent(t, connB)
	require.Equal(t, "message", event.Type)
	require.Equal(t, "mB", event.Message.ID)
	require.Equal(t, groupB, event.Message.GroupID)
	groupRepo.AssertExpectations(t)
}

func TestAnonymousPushIsMaskedInView(t *testing.T) {
	groupID := uuid.NewString()
	broker := realtime.NewBroker()

	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, groupID, "u1").Return(true, nil).Once()

	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", FullName: "Maya Lopez"}, nil).Once()

	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("ListGroupMessages", mock.Anything, groupID).Return([]models.MessageView{}, nil).Once()

	server := setupScreenServer(t, groupRepo, userRepo, messageRepo, broker)
	conn := dialScreen(t, server, groupID)
	readEvent(t, conn) // history

	broker.Publish(models.MessageView{
		Message:    models.Message{ID: "m2", GroupID: groupID, UserID: "u2", Content: "secret worry", IsAnonymous: true, CreatedAt: time.Now()},
		AuthorName: "Jess",
	})

	event := readEvent(t, conn)
	require.Equal(t, "Anonymous", event.Message.AuthorName)
	require.Nil(t, event.Message.AuthorAvatar)
}
