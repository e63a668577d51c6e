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

// ApprovalHandler coordinates the completion-request HTTP handlers.
type ApprovalHandler struct {
	approvalService *services.ApprovalService
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(approvalService *services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
	}
}

// RequestCompletion files a completion request on one of the caller's tasks.
// A duplicate pending request is not an error: it responds 200 with a notice.
func (h *ApprovalHandler) RequestCompletion(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type RequestCompletionRequest struct {
		Note string `json:"note"`
	}
	var req RequestCompletionRequest
	_ = c.ShouldBindJSON(&req)

	request, err := h.approvalService.Request(user, taskID, req.Note)
	if err != nil {
		if errors.Is(err, services.ErrRequestPending) {
			apierrors.Notice(c, err.Error())
			return
		}
		respondApprovalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCompletionRequestDTO(*request))
}

// Approve resolves a pending request and marks its task done, owner only.
// Deciding an already-resolved request responds 200 with a notice.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.decide(c, true)
}

// Reject resolves a pending request without touching its task, owner only.
func (h *ApprovalHandler) Reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *ApprovalHandler) decide(c *gin.Context, approve bool) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type DecisionRequest struct {
		Note string `json:"note"`
	}
	var req DecisionRequest
	_ = c.ShouldBindJSON(&req)

	decision := h.approvalService.Approve
	if !approve {
		decision = h.approvalService.Reject
	}

	resolved, err := decision(user, requestID, req.Note)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyResolved) {
			apierrors.Notice(c, err.Error())
			return
		}
		respondApprovalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCompletionRequestDTO(*resolved))
}

// ListPending returns pending requests: all of them for the owner, the
// caller's own otherwise.
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	requests, err := h.approvalService.ListPending(user)
	if err != nil {
		respondApprovalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": dto.ToCompletionRequestDTOs(requests),
	})
}

func respondApprovalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskAlreadyDone):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotAssignee),
		errors.Is(err, services.ErrOwnerNoRequest),
		errors.Is(err, services.ErrOwnerOnly):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrRequestNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
