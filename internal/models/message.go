package models

import "time"

// Message is a direct message between the owner and a worker. Workflow
// notices (approvals, rejections, reopens, read receipts) are plain messages
// synthesized by the services.
type Message struct {
	ID         uint64     `gorm:"primarykey" json:"id"`
	SenderID   uint64     `gorm:"not null;index" json:"sender_id"`
	ReceiverID uint64     `gorm:"not null;index" json:"receiver_id"`
	Body       string     `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at"`

	// Relations
	Sender   User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}
