package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/okazaki/taskdesk/internal/errors"
	"github.com/okazaki/taskdesk/internal/middleware"
	"github.com/okazaki/taskdesk/internal/services"
)

// NotificationHandler serves the notification poll.
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// Poll returns the caller's unread message count, pending approval count and
// the task IDs needing attention. Clients call this periodically.
func (h *NotificationHandler) Poll(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	summary, err := h.notificationService.Poll(user)
	if err != nil {
		apierrors.InternalError(c, "Failed to collect notifications")
		return
	}

	c.JSON(http.StatusOK, summary)
}
