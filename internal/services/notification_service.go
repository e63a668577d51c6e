package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/okazaki/taskdesk/internal/models"
	"github.com/okazaki/taskdesk/internal/repository"
	"gorm.io/gorm"
)

// NotificationSummary is the payload of the notification poll.
type NotificationSummary struct {
	Messages       int64    `json:"messages"`
	Approvals      int64    `json:"approvals"`
	PendingTaskIDs []uint64 `json:"pending_task_ids"`
}

// NotificationService aggregates the polled unread/pending counters. Reads
// are best effort: a referenced task that no longer exists is skipped, never
// an error.
type NotificationService struct {
	msgRepo  repository.MessageRepository
	reqRepo  repository.CompletionRequestRepository
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(msgRepo repository.MessageRepository, reqRepo repository.CompletionRequestRepository, taskRepo repository.TaskRepository, userRepo repository.UserRepository) *NotificationService {
	return &NotificationService{
		msgRepo:  msgRepo,
		reqRepo:  reqRepo,
		taskRepo: taskRepo,
		userRepo: userRepo,
	}
}

// Poll returns the actor's unread message count, their pending-approval count
// (owner: all pending; worker: own pending) and the deduplicated set of task
// IDs needing attention.
func (s *NotificationService) Poll(actor *models.User) (*NotificationSummary, error) {
	unread, err := s.msgRepo.CountUnread(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	var scope *uint64
	if !actor.IsOwner() {
		scope = &actor.ID
	}

	approvals, err := s.reqRepo.CountPending(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}

	attention := make(map[uint64]struct{})

	// Tasks with a pending request that are not yet done.
	pendings, err := s.reqRepo.ListPending(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	for _, req := range pendings {
		task, err := s.taskRepo.FindByID(req.TaskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to find task: %w", err)
		}
		if task.Status != models.TaskStatusDone {
			attention[task.ID] = struct{}{}
		}
	}

	// Tasks highlighted by unread chat traffic.
	senders, err := s.msgRepo.UnreadSenderIDs(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread senders: %w", err)
	}
	if len(senders) > 0 {
		var ids []uint64
		if actor.IsOwner() {
			// Owner: active tasks assigned to any worker with unread messages.
			ids, err = s.taskRepo.ActiveIDsByAssignees(senders)
			if err != nil {
				return nil, fmt.Errorf("failed to list attention tasks: %w", err)
			}
		} else {
			// Worker: own active tasks when the owner has unread messages to
			// them.
			owner, err := s.userRepo.FindOwner()
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to find owner: %w", err)
			}
			if owner != nil && containsID(senders, owner.ID) {
				ids, err = s.taskRepo.ActiveIDsByAssignees([]uint64{actor.ID})
				if err != nil {
					return nil, fmt.Errorf("failed to list attention tasks: %w", err)
				}
			}
		}
		for _, id := range ids {
			attention[id] = struct{}{}
		}
	}

	pendingIDs := make([]uint64, 0, len(attention))
	for id := range attention {
		pendingIDs = append(pendingIDs, id)
	}
	sort.Slice(pendingIDs, func(i, j int) bool { return pendingIDs[i] < pendingIDs[j] })

	return &NotificationSummary{
		Messages:       unread,
		Approvals:      approvals,
		PendingTaskIDs: pendingIDs,
	}, nil
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
