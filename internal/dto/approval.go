package dto

import (
	"time"

	"github.com/okazaki/taskdesk/internal/models"
)

// CompletionRequestDTO represents a completion request in API responses
type CompletionRequestDTO struct {
	ID            uint64               `json:"id"`
	TaskID        uint64               `json:"task_id"`
	RequestedByID uint64               `json:"requested_by_id"`
	Note          string               `json:"note"`
	Status        models.RequestStatus `json:"status"`
	DecisionByID  *uint64              `json:"decision_by_id"`
	DecisionNote  string               `json:"decision_note"`
	DecisionAt    *time.Time           `json:"decision_at"`
	CreatedAt     time.Time            `json:"created_at"`
	Task          *TaskDTO             `json:"task,omitempty"`
	RequestedBy   *UserDTO             `json:"requested_by,omitempty"`
}

// ToCompletionRequestDTO converts a CompletionRequest model to its DTO
func ToCompletionRequestDTO(req models.CompletionRequest) CompletionRequestDTO {
	dto := CompletionRequestDTO{
		ID:            req.ID,
		TaskID:        req.TaskID,
		RequestedByID: req.RequestedByID,
		Note:          req.Note,
		Status:        req.Status,
		DecisionByID:  req.DecisionByID,
		DecisionNote:  req.DecisionNote,
		DecisionAt:    req.DecisionAt,
		CreatedAt:     req.CreatedAt,
	}

	if req.Task.ID != 0 {
		task := ToTaskDTO(req.Task)
		dto.Task = &task
	}
	if req.RequestedBy.ID != 0 {
		requestedBy := ToUserDTO(req.RequestedBy)
		dto.RequestedBy = &requestedBy
	}

	return dto
}

// ToCompletionRequestDTOs converts a slice of completion requests
func ToCompletionRequestDTOs(reqs []models.CompletionRequest) []CompletionRequestDTO {
	items := make([]CompletionRequestDTO, len(reqs))
	for i, req := range reqs {
		items[i] = ToCompletionRequestDTO(req)
	}
	return items
}
