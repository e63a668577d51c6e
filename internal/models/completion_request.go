package models

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// CompletionRequest is a worker's proposal that a task be marked done.
// A task carries at most one pending request at a time; approved and
// rejected are terminal.
type CompletionRequest struct {
	ID            uint64        `gorm:"primarykey" json:"id"`
	TaskID        uint64        `gorm:"not null;index" json:"task_id"`
	RequestedByID uint64        `gorm:"not null;index" json:"requested_by_id"`
	Note          string        `gorm:"type:text" json:"note"`
	Status        RequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	DecisionByID  *uint64       `json:"decision_by_id"`
	DecisionNote  string        `gorm:"type:text" json:"decision_note"`
	DecisionAt    *time.Time    `json:"decision_at"`

	// Relations
	Task        Task  `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	RequestedBy User  `gorm:"foreignKey:RequestedByID" json:"requested_by,omitempty"`
	DecisionBy  *User `gorm:"foreignKey:DecisionByID" json:"decision_by,omitempty"`
}
