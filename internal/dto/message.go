package dto

import (
	"time"

	"github.com/okazaki/taskdesk/internal/models"
)

// MessageDTO represents a message in API responses
type MessageDTO struct {
	ID         uint64     `json:"id"`
	SenderID   uint64     `json:"sender_id"`
	ReceiverID uint64     `json:"receiver_id"`
	Body       string     `json:"body"`
	ReadAt     *time.Time `json:"read_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ThreadResponse is the conversation view with one other user
type ThreadResponse struct {
	Other    UserDTO      `json:"other"`
	Messages []MessageDTO `json:"messages"`
}

// ToMessageDTO converts a Message model to MessageDTO
func ToMessageDTO(msg models.Message) MessageDTO {
	return MessageDTO{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Body:       msg.Body,
		ReadAt:     msg.ReadAt,
		CreatedAt:  msg.CreatedAt,
	}
}

// ToThreadResponse converts a loaded thread to its response shape
func ToThreadResponse(other models.User, messages []models.Message) ThreadResponse {
	items := make([]MessageDTO, len(messages))
	for i, msg := range messages {
		items[i] = ToMessageDTO(msg)
	}
	return ThreadResponse{
		Other:    ToUserDTO(other),
		Messages: items,
	}
}
