package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okazaki/taskdesk/internal/dto"
	apierrors "github.com/okazaki/taskdesk/internal/errors"
	"github.com/okazaki/taskdesk/internal/middleware"
	"github.com/okazaki/taskdesk/internal/services"
)

// MessageHandler coordinates the direct-message HTTP handlers.
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// ResolveThread picks the default conversation partner: a worker lands on the
// owner, the owner on the sender of the latest unread worker message or the
// first worker. Responds with the partner so the client can open the thread.
func (h *MessageHandler) ResolveThread(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	other, err := h.messageService.ResolvePartner(user)
	if err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"other": dto.ToUserDTO(*other)})
}

// GetThread returns the conversation with another user and marks its unread
// messages as read.
func (h *MessageHandler) GetThread(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	otherID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	other, messages, err := h.messageService.OpenThread(user, otherID)
	if err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToThreadResponse(*other, messages))
}

// SendMessage posts a message into the thread with another user.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	otherID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type SendMessageRequest struct {
		Body string `json:"body"`
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	msg, err := h.messageService.Send(user, otherID, req.Body)
	if err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageDTO(*msg))
}

// DeleteMessage removes a single message, owner only.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	messageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	otherID, err := h.messageService.DeleteMessage(user, messageID)
	if err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Message deleted successfully",
		"other_id": otherID,
	})
}

// DeleteThread removes the whole conversation with a worker, owner only.
func (h *MessageHandler) DeleteThread(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	otherID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.DeleteThread(user, otherID); err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Thread deleted successfully",
	})
}

func respondMessageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyBody):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrThreadNotAllowed),
		errors.Is(err, services.ErrOwnerManagesOnly),
		errors.Is(err, services.ErrThreadPeerInvalid):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrOwnerMissing),
		errors.Is(err, services.ErrNoWorkers):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
