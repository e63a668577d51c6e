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
	ErrEmptyBody         = errors.New("message cannot be empty")
	ErrThreadNotAllowed  = errors.New("conversations only run between the owner and workers")
	ErrMessageNotFound   = errors.New("message not found")
	ErrOwnerMissing      = errors.New("owner account not found")
	ErrNoWorkers         = errors.New("no workers yet")
	ErrOwnerManagesOnly  = errors.New("only the owner can delete messages")
	ErrThreadPeerInvalid = errors.New("owners can only manage threads with workers")
)

const receiptTimeLayout = "2006-01-02 15:04"

// MessageService handles the owner<->worker direct message threads and the
// system notices layered on top of them.
type MessageService struct {
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
}

// NewMessageService creates a new MessageService
func NewMessageService(msgRepo repository.MessageRepository, userRepo repository.UserRepository) *MessageService {
	return &MessageService{
		msgRepo:  msgRepo,
		userRepo: userRepo,
	}
}

// Send delivers a message from the actor to the other party of an allowed
// thread.
func (s *MessageService) Send(actor *models.User, otherID uint64, body string) (*models.Message, error) {
	if body == "" {
		return nil, ErrEmptyBody
	}

	other, err := s.peer(actor, otherID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   actor.ID,
		ReceiverID: other.ID,
		Body:       body,
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// OpenThread returns the conversation with the other user ordered by time
// and, as a side effect, marks every unread message addressed to the actor as
// read. A worker reading owner messages sends a single read-receipt notice
// back; receipts are plain messages and never produce receipts themselves.
// Reopening a thread with nothing unread changes no state.
func (s *MessageService) OpenThread(actor *models.User, otherID uint64) (*models.User, []models.Message, error) {
	other, err := s.peer(actor, otherID)
	if err != nil {
		return nil, nil, err
	}

	thread, err := s.msgRepo.Thread(actor.ID, other.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load thread: %w", err)
	}

	now := time.Now()
	var unreadIDs []uint64
	var latest time.Time
	for i := range thread {
		m := &thread[i]
		if m.ReceiverID == actor.ID && m.ReadAt == nil {
			unreadIDs = append(unreadIDs, m.ID)
			if m.CreatedAt.After(latest) {
				latest = m.CreatedAt
			}
			m.ReadAt = &now
		}
	}

	if len(unreadIDs) > 0 {
		var receipt *models.Message
		if actor.Role == models.RoleWorker && other.IsOwner() {
			receipt = &models.Message{
				SenderID:   actor.ID,
				ReceiverID: other.ID,
				Body:       fmt.Sprintf("I have read your message(s). Latest at %s.", latest.Format(receiptTimeLayout)),
			}
		}
		if err := s.msgRepo.MarkRead(unreadIDs, now, receipt); err != nil {
			return nil, nil, fmt.Errorf("failed to mark thread read: %w", err)
		}
		if receipt != nil {
			thread = append(thread, *receipt)
		}
	}

	return other, thread, nil
}

// ResolvePartner picks the thread to open when none is named: the owner lands
// on the sender of their most recent unread worker message, else the first
// worker by username; a worker always lands on the owner.
func (s *MessageService) ResolvePartner(actor *models.User) (*models.User, error) {
	if actor.IsOwner() {
		if latest, err := s.msgRepo.LatestUnread(actor.ID); err == nil {
			if sender, err := s.userRepo.FindByID(latest.SenderID); err == nil && sender.Role == models.RoleWorker {
				return sender, nil
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find unread messages: %w", err)
		}

		worker, err := s.userRepo.FindFirstWorker()
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoWorkers
			}
			return nil, fmt.Errorf("failed to find workers: %w", err)
		}
		return worker, nil
	}

	owner, err := s.userRepo.FindOwner()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOwnerMissing
		}
		return nil, fmt.Errorf("failed to find owner: %w", err)
	}
	return owner, nil
}

// DeleteMessage removes a single message, owner only. It returns the other
// participant's ID so callers can stay on the thread.
func (s *MessageService) DeleteMessage(actor *models.User, messageID uint64) (uint64, error) {
	if !actor.IsOwner() {
		return 0, ErrOwnerManagesOnly
	}

	msg, err := s.msgRepo.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMessageNotFound
		}
		return 0, fmt.Errorf("failed to find message: %w", err)
	}

	otherID := msg.SenderID
	if otherID == actor.ID {
		otherID = msg.ReceiverID
	}

	if err := s.msgRepo.Delete(msg.ID); err != nil {
		return 0, fmt.Errorf("failed to delete message: %w", err)
	}
	return otherID, nil
}

// DeleteThread removes the whole conversation with a worker, owner only.
func (s *MessageService) DeleteThread(actor *models.User, otherID uint64) error {
	if !actor.IsOwner() {
		return ErrOwnerManagesOnly
	}

	other, err := s.userRepo.FindByID(otherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if other.Role != models.RoleWorker {
		return ErrThreadPeerInvalid
	}

	if err := s.msgRepo.DeleteThread(actor.ID, other.ID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// peer resolves the other participant and enforces the thread permission
// rule: workers only talk to the owner, the owner only to workers.
func (s *MessageService) peer(actor *models.User, otherID uint64) (*models.User, error) {
	other, err := s.userRepo.FindByID(otherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !actor.Role.CanMessage(other.Role) {
		return nil, ErrThreadNotAllowed
	}
	return other, nil
}
