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
	ErrTaskNotFound     = errors.New("task not found")
	ErrOwnerOnly        = errors.New("only the owner can perform this action")
	ErrTaskNotEditable  = errors.New("user does not have permission to modify this task")
	ErrDoneTaskLocked   = errors.New("only the owner can modify completed tasks")
	ErrTitleRequired    = errors.New("title is required")
	ErrAssigneeRequired = errors.New("valid assignee is required")
	ErrInvalidDueDate   = errors.New("invalid due date format (use YYYY-MM-DD)")
	ErrAssigneeNotFound = errors.New("assignee does not exist")
)

// dueDateLayout is the wire format for due dates.
const dueDateLayout = "2006-01-02"

// TaskService handles task lifecycle and the owner/assignee permission gate.
type TaskService struct {
	taskRepo repository.TaskRepository
	reqRepo  repository.CompletionRequestRepository
	userRepo repository.UserRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, reqRepo repository.CompletionRequestRepository, userRepo repository.UserRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		reqRepo:  reqRepo,
		userRepo: userRepo,
	}
}

// ListTasksInput represents filters for listing tasks.
type ListTasksInput struct {
	Status     string
	AssigneeID *uint64
	Query      string
	Page       int
	PageSize   int
}

// List returns the tasks visible to the actor: the owner sees everything,
// workers only tasks assigned to them. The assignee filter is owner-only.
func (s *TaskService) List(actor *models.User, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		Query:    input.Query,
		Page:     input.Page,
		PageSize: input.PageSize,
	}

	if status, ok := models.ParseTaskStatus(input.Status); ok {
		filter.Status = &status
	}

	if actor.IsOwner() {
		if input.AssigneeID != nil {
			filter.AssigneeID = input.AssigneeID
		}
	} else {
		filter.AssigneeID = &actor.ID
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// Get returns a task with related data, scoped to what the actor may see.
func (s *TaskService) Get(actor *models.User, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Assignee", "Creator")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if !actor.IsOwner() && task.AssigneeID != actor.ID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// CreateTaskInput represents input for creating a task. Status and Priority
// are raw strings: unknown values coerce to todo/medium rather than failing.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	AssigneeID  uint64
}

// Create creates a task on behalf of the owner.
func (s *TaskService) Create(actor *models.User, input CreateTaskInput) (*models.Task, error) {
	if !actor.Role.CanManageTasks() {
		return nil, ErrOwnerOnly
	}
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if input.AssigneeID == 0 {
		return nil, ErrAssigneeRequired
	}
	if _, err := s.userRepo.FindByID(input.AssigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to resolve assignee: %w", err)
	}

	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return nil, err
	}

	status, _ := models.ParseTaskStatus(input.Status)
	priority, _ := models.ParseTaskPriority(input.Priority)

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		AssigneeID:  input.AssigneeID,
		CreatorID:   actor.ID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Assignee", "Creator")
}

// UpdateTaskInput carries the full edit form. An empty DueDate clears the
// date; unknown Status/Priority values leave the current ones untouched.
type UpdateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	AssigneeID  uint64
}

// Update replaces a task's fields on behalf of the owner.
func (s *TaskService) Update(actor *models.User, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	if !actor.Role.CanManageTasks() {
		return nil, ErrOwnerOnly
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if input.AssigneeID == 0 {
		return nil, ErrAssigneeRequired
	}
	if _, err := s.userRepo.FindByID(input.AssigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to resolve assignee: %w", err)
	}

	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return nil, err
	}

	task.Title = input.Title
	task.Description = input.Description
	if status, ok := models.ParseTaskStatus(input.Status); ok {
		task.Status = status
	}
	if priority, ok := models.ParseTaskPriority(input.Priority); ok {
		task.Priority = priority
	}
	task.DueDate = dueDate
	task.AssigneeID = input.AssigneeID

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Assignee", "Creator")
}

// Toggle flips a task between done and todo on behalf of the owner, resolving
// any pending completion requests as a side effect. Marking done approves
// pendings and notifies their requesters; with no pending request the
// assignee is notified instead. Reopening rejects pendings with the decision
// note "Reopened by owner". The status change, the resolutions and the notice
// messages commit as one transaction.
func (s *TaskService) Toggle(actor *models.User, taskID uint64) (*models.Task, error) {
	if !actor.Role.CanManageTasks() {
		return nil, ErrOwnerOnly
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	pendings, err := s.reqRepo.ListPendingForTask(task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	now := time.Now()
	var resolved []*models.CompletionRequest
	var notices []*models.Message

	if task.Status == models.TaskStatusDone {
		task.Status = models.TaskStatusTodo
		for i := range pendings {
			req := &pendings[i]
			req.Status = models.RequestStatusRejected
			req.DecisionByID = &actor.ID
			req.DecisionNote = "Reopened by owner"
			req.DecisionAt = &now
			resolved = append(resolved, req)
			if req.RequestedByID != actor.ID {
				notices = append(notices, &models.Message{
					SenderID:   actor.ID,
					ReceiverID: req.RequestedByID,
					Body:       fmt.Sprintf("Task #%d '%s' was reopened by owner.", task.ID, task.Title),
				})
			}
		}
	} else {
		task.Status = models.TaskStatusDone
		hadPending := len(pendings) > 0
		for i := range pendings {
			req := &pendings[i]
			req.Status = models.RequestStatusApproved
			req.DecisionByID = &actor.ID
			req.DecisionAt = &now
			resolved = append(resolved, req)
			if req.RequestedByID != actor.ID {
				notices = append(notices, &models.Message{
					SenderID:   actor.ID,
					ReceiverID: req.RequestedByID,
					Body:       fmt.Sprintf("Your request to mark task #%d '%s' was approved.", task.ID, task.Title),
				})
			}
		}
		if !hadPending && task.AssigneeID != actor.ID {
			notices = append(notices, &models.Message{
				SenderID:   actor.ID,
				ReceiverID: task.AssigneeID,
				Body:       fmt.Sprintf("Task #%d '%s' was marked done by owner.", task.ID, task.Title),
			})
		}
	}

	if err := s.taskRepo.SaveWithResolutions(task, resolved, notices); err != nil {
		return nil, fmt.Errorf("failed to toggle status: %w", err)
	}

	return task, nil
}

// Progress moves a task between todo and in_progress on behalf of the owner
// or the assignee. An empty or unknown target toggles between the two states;
// done is never reachable through this path. Completed tasks are locked for
// everyone but the owner.
func (s *TaskService) Progress(actor *models.User, taskID uint64, target string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !actor.IsOwner() && task.AssigneeID != actor.ID {
		return nil, ErrTaskNotEditable
	}
	if task.Status == models.TaskStatusDone && !actor.IsOwner() {
		return nil, ErrDoneTaskLocked
	}

	next := models.TaskStatus(target)
	if next != models.TaskStatusTodo && next != models.TaskStatusInProgress {
		if task.Status == models.TaskStatusTodo {
			next = models.TaskStatusInProgress
		} else {
			next = models.TaskStatusTodo
		}
	}
	task.Status = next

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	return task, nil
}

// Delete removes a task and its completion requests on behalf of the owner.
func (s *TaskService) Delete(actor *models.User, taskID uint64) error {
	if !actor.Role.CanManageTasks() {
		return ErrOwnerOnly
	}

	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func parseDueDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dueDateLayout, raw)
	if err != nil {
		return nil, ErrInvalidDueDate
	}
	return &t, nil
}
