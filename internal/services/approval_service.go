package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/okazaki/taskdesk/internal/models"
	"github.com/okazaki/taskdesk/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound = errors.New("completion request not found")
	ErrNotAssignee     = errors.New("you can only request completion for your own tasks")
	ErrTaskAlreadyDone = errors.New("task already done")
	ErrOwnerNoRequest  = errors.New("owners do not need approval; use complete instead")

	// Benign conflicts, absorbed by callers rather than surfaced as failures.
	ErrRequestPending  = errors.New("request already submitted and pending approval")
	ErrAlreadyResolved = errors.New("request already resolved")
)

// ApprovalService drives the completion-request state machine:
// pending -> approved | rejected, with approved/rejected terminal.
type ApprovalService struct {
	reqRepo  repository.CompletionRequestRepository
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(reqRepo repository.CompletionRequestRepository, taskRepo repository.TaskRepository, userRepo repository.UserRepository) *ApprovalService {
	return &ApprovalService{
		reqRepo:  reqRepo,
		taskRepo: taskRepo,
		userRepo: userRepo,
	}
}

// Request files a completion request on the actor's own task and notifies the
// owner. A duplicate pending request is reported as ErrRequestPending without
// touching any state.
func (s *ApprovalService) Request(actor *models.User, taskID uint64, note string) (*models.CompletionRequest, error) {
	if actor.IsOwner() {
		return nil, ErrOwnerNoRequest
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.AssigneeID != actor.ID {
		return nil, ErrNotAssignee
	}
	if task.Status == models.TaskStatusDone {
		return nil, ErrTaskAlreadyDone
	}

	pending, err := s.reqRepo.HasPendingForTask(task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, ErrRequestPending
	}

	req := &models.CompletionRequest{
		TaskID:        task.ID,
		RequestedByID: actor.ID,
		Note:          note,
		Status:        models.RequestStatusPending,
	}

	var notice *models.Message
	if owner, err := s.userRepo.FindOwner(); err == nil {
		body := fmt.Sprintf("Request to mark task #%d '%s' as done.", task.ID, task.Title)
		if note != "" {
			body += fmt.Sprintf(" Note: %s", note)
		}
		notice = &models.Message{
			SenderID:   actor.ID,
			ReceiverID: owner.ID,
			Body:       body,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find owner: %w", err)
	}

	if err := s.reqRepo.CreateWithNotice(req, notice); err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}

	return req, nil
}

// Approve resolves a pending request, forces the underlying task to done and
// notifies the requester. Deciding an already-resolved request is a no-op
// reported as ErrAlreadyResolved.
func (s *ApprovalService) Approve(actor *models.User, requestID uint64, decisionNote string) (*models.CompletionRequest, error) {
	return s.decide(actor, requestID, decisionNote, true)
}

// Reject resolves a pending request without touching the task and notifies
// the requester.
func (s *ApprovalService) Reject(actor *models.User, requestID uint64, decisionNote string) (*models.CompletionRequest, error) {
	return s.decide(actor, requestID, decisionNote, false)
}

func (s *ApprovalService) decide(actor *models.User, requestID uint64, decisionNote string, approve bool) (*models.CompletionRequest, error) {
	if !actor.Role.CanApprove() {
		return nil, ErrOwnerOnly
	}

	req, err := s.reqRepo.FindByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find request: %w", err)
	}
	if req.Status != models.RequestStatusPending {
		return req, ErrAlreadyResolved
	}

	now := time.Now()
	req.DecisionByID = &actor.ID
	req.DecisionNote = decisionNote
	req.DecisionAt = &now

	noteTxt := ""
	if decisionNote != "" {
		noteTxt = fmt.Sprintf(" Note: %s", decisionNote)
	}

	var task *models.Task
	var body string
	if approve {
		req.Status = models.RequestStatusApproved
		// The referenced task may be gone; approve the request anyway and
		// skip the status change.
		if t, err := s.taskRepo.FindByID(req.TaskID); err == nil {
			t.Status = models.TaskStatusDone
			task = t
			body = fmt.Sprintf("Your request to mark task #%d '%s' as done was approved.%s", t.ID, t.Title, noteTxt)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find task: %w", err)
		}
	} else {
		req.Status = models.RequestStatusRejected
		body = fmt.Sprintf("Your request to mark task #%d was rejected.%s", req.TaskID, noteTxt)
	}

	var notice *models.Message
	if body != "" && req.RequestedByID != actor.ID {
		notice = &models.Message{
			SenderID:   actor.ID,
			ReceiverID: req.RequestedByID,
			Body:       body,
		}
	}

	if err := s.reqRepo.Resolve(req, task, notice); err != nil {
		return nil, fmt.Errorf("failed to resolve request: %w", err)
	}

	return req, nil
}

// ListPending returns pending requests: all of them for the owner, the
// actor's own otherwise.
func (s *ApprovalService) ListPending(actor *models.User) ([]models.CompletionRequest, error) {
	var scope *uint64
	if !actor.IsOwner() {
		scope = &actor.ID
	}
	reqs, err := s.reqRepo.ListPending(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return reqs, nil
}
