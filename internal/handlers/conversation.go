package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"community-service/internal/conversations"
)

// ConversationHandler serves the derived per-user conversation list.
type ConversationHandler struct {
	index *conversations.Index
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(index *conversations.Index) *ConversationHandler {
	return &ConversationHandler{index: index}
}

// ListConversations returns one conversation per joined group.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetString("userID")
	convs, err := h.index.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}
