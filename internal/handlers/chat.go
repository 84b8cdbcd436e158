package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"community-service/internal/chatsync"
	"community-service/internal/models"
	"community-service/internal/repositories"
	"community-service/internal/telemetry"
)

// Broadcaster fans an inserted message out to realtime subscribers.
type Broadcaster interface {
	Publish(msg models.MessageView)
}

// ChatHandler manages the transcript endpoints of a group chat.
type ChatHandler struct {
	groupRepo   repositories.GroupRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	broadcaster Broadcaster
	audit       *telemetry.AuditEmitter
	maxLen      int
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(groupRepo repositories.GroupRepository, messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository, broadcaster Broadcaster, audit *telemetry.AuditEmitter, maxLen int) *ChatHandler {
	return &ChatHandler{
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		broadcaster: broadcaster,
		audit:       audit,
		maxLen:      maxLen,
	}
}

// GetGroupMessages returns the transcript ascending by creation time, each
// message annotated with its author's display name and avatar.
func (h *ChatHandler) GetGroupMessages(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}

	userID := c.GetString("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msgs, err := h.messageRepo.ListGroupMessages(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	resp := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, m.Render())
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// PostGroupMessage persists and broadcasts a group message.
func (h *ChatHandler) PostGroupMessage(c *gin.Context) {
	groupID, ok := parseGroupID(c)
	if !ok {
		return
	}

	userID := c.GetString("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	var req struct {
		Content     string `json:"content" binding:"required"`
		IsAnonymous bool   `json:"is_anonymous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, err := chatsync.ValidateContent(req.Content, h.maxLen)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), groupID, userID, content, req.IsAnonymous)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	// re-read the stored row with its author join so subscribers and the
	// caller see the same annotated view
	view, err := h.messageRepo.GetMessage(c.Request.Context(), msg.ID)
	if err != nil {
		view = models.MessageView{Message: msg}
		if author, err := h.userRepo.GetUser(c.Request.Context(), userID); err == nil {
			view.AuthorName = author.FullName
			view.AuthorAvatar = author.AvatarURL
		}
	}

	h.broadcaster.Publish(view)
	h.emitAudit(c, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, view.Render())
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
