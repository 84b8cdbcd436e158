package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"community-service/internal/repositories"
	"community-service/internal/session"
	"community-service/internal/telemetry"
)

// SessionHandler manages sign-up, sign-in and session reflection.
type SessionHandler struct {
	store *session.Store
	users repositories.UserRepository
	audit *telemetry.AuditEmitter
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(store *session.Store, users repositories.UserRepository, audit *telemetry.AuditEmitter) *SessionHandler {
	return &SessionHandler{store: store, users: users, audit: audit}
}

// SignUp handles POST /auth/signup.
func (h *SessionHandler) SignUp(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		FullName string `json:"full_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.store.SignUp(c.Request.Context(), req.Email, req.FullName)
	if err != nil {
		h.emitAudit(c, "ERROR", "sign-up failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	h.emitAudit(c, "INFO", "Account created")
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// SignIn handles POST /auth/signin.
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.store.SignIn(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-in failed"})
		return
	}

	h.emitAudit(c, "INFO", "Signed in")
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// SignOut handles POST /auth/signout.
func (h *SessionHandler) SignOut(c *gin.Context) {
	h.store.SignOut()
	h.emitAudit(c, "INFO", "Signed out")
	c.Status(http.StatusNoContent)
}

// GetSession reflects the signed-in user for the presented token.
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *SessionHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
