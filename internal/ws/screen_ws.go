package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"community-service/internal/chatsync"
	"community-service/internal/middleware"
	"community-service/internal/models"
	"community-service/internal/observability"
	"community-service/internal/realtime"
	"community-service/internal/repositories"
)

// ChatScreenHandler upgrades a connection into a live chat screen: history
// snapshot, realtime pushes and inbound sends, all driven by one
// chatsync.Screen whose subscription is torn down when the connection closes.
type ChatScreenHandler struct {
	broker      *realtime.Broker
	groupRepo   repositories.GroupRepository
	userRepo    repositories.UserRepository
	messageRepo repositories.MessageRepository
	verifier    middleware.TokenVerifier
	maxLen      int
	log         *zap.SugaredLogger
}

// NewChatScreenHandler constructs a ChatScreenHandler.
func NewChatScreenHandler(broker *realtime.Broker, groupRepo repositories.GroupRepository,
	userRepo repositories.UserRepository, messageRepo repositories.MessageRepository,
	verifier middleware.TokenVerifier, maxLen int, log *zap.SugaredLogger) *ChatScreenHandler {
	return &ChatScreenHandler{
		broker:      broker,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		verifier:    verifier,
		maxLen:      maxLen,
		log:         log,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sendFrame is the inbound message format.
type sendFrame struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Handle upgrades the connection and runs the chat screen until it closes.
func (h *ChatScreenHandler) Handle(c *gin.Context) {
	groupID := c.Param("group_id")
	if _, err := uuid.Parse(groupID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	ctx, span := otel.Tracer("community-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for group"})
		return
	}

	user, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	observability.IncScreensActive()
	observability.IncChatEvent("screen_open")
	h.publishScreenEvent(ctx, info, groupID, "screen_open", "")

	author := chatsync.Author{ID: user.ID, FullName: user.FullName, AvatarURL: user.AvatarURL}
	feed := chatsync.FeedFunc(func(id string) chatsync.Subscription {
		return h.broker.Subscribe(id)
	})
	screen := chatsync.NewScreen(h.messageRepo, feed, groupID, author, h.maxLen, h.log)

	writer := &eventWriter{conn: conn}

	if err := screen.Open(ctx); err != nil {
		// recoverable for the client: report and let it reconnect
		_ = writer.Write(models.ChatEvent{Type: "error", Error: "failed to load messages"})
		h.closeScreen(ctx, screen, conn, info, groupID, err.Error())
		return
	}

	history := screen.Transcript()
	rendered := make([]models.MessageView, 0, len(history))
	for _, m := range history {
		rendered = append(rendered, m.Render())
	}
	if err := writer.Write(models.ChatEvent{Type: "history", Messages: rendered}); err != nil {
		h.closeScreen(ctx, screen, conn, info, groupID, err.Error())
		return
	}

	done := make(chan struct{})

	// realtime pump: every push goes through the screen's merge gate before
	// it reaches the client
	go func() {
		events := screen.Events()
		for {
			select {
			case msg, ok := <-events:
				if !ok {
					return
				}
				if !screen.ApplyRemote(msg) {
					observability.IncChatEvent("dedup_drop")
					continue
				}
				observability.IncChatEvent("push_delivered")
				view := msg.Render()
				if err := writer.Write(models.ChatEvent{Type: "message", Message: &view}); err != nil {
					conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	// read loop: inbound sends, teardown on close
	go func() {
		var closeReason string
		defer func() {
			close(done)
			h.closeScreen(ctx, screen, conn, info, groupID, closeReason)
		}()
		for {
			var frame sendFrame
			if err := conn.ReadJSON(&frame); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncChatEvent("screen_error")
					h.publishScreenEvent(ctx, info, groupID, "screen_error", closeReason)
				}
				return
			}

			view, err := screen.Send(ctx, frame.Content, frame.IsAnonymous)
			if err != nil {
				h.log.Infow("send rejected", "group_id", groupID, "user_id", userID, "error", err)
				_ = writer.Write(models.ChatEvent{Type: "error", Error: err.Error(), Draft: draftOf(err)})
				continue
			}

			observability.IncChatEvent("send")
			h.broker.Publish(view)
			confirmed := view.Render()
			if err := writer.Write(models.ChatEvent{Type: "message", Message: &confirmed}); err != nil {
				closeReason = err.Error()
				return
			}
		}
	}()
}

func (h *ChatScreenHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.Verify(parts[1])
	}
	return "", fmt.Errorf("invalid token")
}

func (h *ChatScreenHandler) closeScreen(ctx context.Context, screen *chatsync.Screen, conn *websocket.Conn,
	info ConnInfo, groupID, reason string) {
	screen.Close()
	conn.Close()
	observability.DecScreensActive()
	observability.IncChatEvent("screen_close")
	h.publishScreenEvent(ctx, info, groupID, "screen_close", reason)
}

func (h *ChatScreenHandler) publishScreenEvent(ctx context.Context, info ConnInfo, groupID, event, reason string) {
	payload := map[string]interface{}{
		"screen": map[string]interface{}{
			"group_id":    groupID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.screens", observability.NewScreenEvent(event, payload), headers)
}

func draftOf(err error) string {
	var sendErr *chatsync.SendError
	if errors.As(err, &sendErr) {
		return sendErr.Draft
	}
	return ""
}
