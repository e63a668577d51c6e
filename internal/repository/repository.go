package repository

import (
	"time"

	"github.com/okazaki/taskdesk/internal/models"
)

// TaskFilter holds filtering options for listing tasks.
type TaskFilter struct {
	Status     *models.TaskStatus
	AssigneeID *uint64
	// Query is matched as a case-insensitive substring against title and
	// description.
	Query    string
	Page     int
	PageSize int
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id uint64) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	// FindOwner returns the owner account, if one exists.
	FindOwner() (*models.User, error)
	// FindFirstWorker returns the worker with the lexicographically smallest
	// username.
	FindFirstWorker() (*models.User, error)
	// List returns all users ordered by username.
	List() ([]models.User, error)
	Count() (int64, error)
	Update(user *models.User) error

	// DeleteWorkerCascade removes a worker and every reference to them in a
	// single transaction: messages to/from the worker are deleted, completion
	// requests they authored are deleted, decisions they made are nulled, and
	// tasks they are assignee or creator of are reassigned to the owner.
	DeleteWorkerCascade(worker *models.User, owner *models.User) error
}

// TaskRepository defines the interface for task data access.
type TaskRepository interface {
	Create(task *models.Task) error
	FindByID(id uint64, preload ...string) (*models.Task, error)
	List(filter TaskFilter) ([]models.Task, int64, error)
	// ListAll returns every task matching the assignee scope ordered by ID,
	// used by the CSV export.
	ListAll(assigneeID *uint64) ([]models.Task, error)
	Update(task *models.Task) error
	// Delete removes a task and its completion requests in one transaction.
	Delete(id uint64) error

	// SaveWithResolutions persists a task status change together with the
	// completion-request resolutions and notice messages it caused, as one
	// transaction.
	SaveWithResolutions(task *models.Task, resolved []*models.CompletionRequest, notices []*models.Message) error

	// ActiveIDsByAssignees returns IDs of non-done tasks assigned to any of
	// the given users.
	ActiveIDsByAssignees(assigneeIDs []uint64) ([]uint64, error)
}

// CompletionRequestRepository defines the interface for approval workflow
// data access.
type CompletionRequestRepository interface {
	FindByID(id uint64, preload ...string) (*models.CompletionRequest, error)
	// HasPendingForTask reports whether the task already carries a pending
	// request.
	HasPendingForTask(taskID uint64) (bool, error)
	// ListPending returns pending requests oldest first, optionally scoped to
	// a requester.
	ListPending(requestedByID *uint64) ([]models.CompletionRequest, error)
	// ListPendingForTask returns the pending requests attached to a task.
	ListPendingForTask(taskID uint64) ([]models.CompletionRequest, error)
	CountPending(requestedByID *uint64) (int64, error)

	// CreateWithNotice inserts the request and its notice message to the
	// owner in one transaction. The notice may be nil.
	CreateWithNotice(req *models.CompletionRequest, notice *models.Message) error

	// Resolve persists a decision on a request, the resulting task change (if
	// any) and the notice to the requester (if any) in one transaction.
	Resolve(req *models.CompletionRequest, task *models.Task, notice *models.Message) error
}

// MessageRepository defines the interface for message data access.
type MessageRepository interface {
	Create(msg *models.Message) error
	FindByID(id uint64) (*models.Message, error)
	// Thread returns every message between the two users ordered by creation
	// time.
	Thread(userA, userB uint64) ([]models.Message, error)
	// MarkRead stamps the given messages as read and, when receipt is
	// non-nil, inserts the read-receipt message in the same transaction.
	MarkRead(ids []uint64, at time.Time, receipt *models.Message) error
	CountUnread(receiverID uint64) (int64, error)
	// UnreadSenderIDs returns the distinct senders with unread messages to
	// the receiver.
	UnreadSenderIDs(receiverID uint64) ([]uint64, error)
	// LatestUnread returns the most recent unread message to the receiver,
	// or gorm.ErrRecordNotFound.
	LatestUnread(receiverID uint64) (*models.Message, error)
	Delete(id uint64) error
	DeleteThread(userA, userB uint64) error
}
