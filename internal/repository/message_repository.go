package repository

import (
	"time"

	"github.com/okazaki/taskdesk/internal/models"
	"gorm.io/gorm"
)

// GormMessageRepository is a GORM implementation of MessageRepository
type GormMessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(msg *models.Message) error {
	return r.db.Create(msg).Error
}

func (r *GormMessageRepository) FindByID(id uint64) (*models.Message, error) {
	var msg models.Message
	if err := r.db.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *GormMessageRepository) Thread(userA, userB uint64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *GormMessageRepository) MarkRead(ids []uint64, at time.Time, receipt *models.Message) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("id IN ?", ids).
			Update("read_at", at).Error; err != nil {
			return err
		}
		if receipt != nil {
			if err := tx.Create(receipt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormMessageRepository) CountUnread(receiverID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL", receiverID).
		Count(&count).Error
	return count, err
}

func (r *GormMessageRepository) UnreadSenderIDs(receiverID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL", receiverID).
		Distinct().
		Pluck("sender_id", &ids).Error
	return ids, err
}

func (r *GormMessageRepository) LatestUnread(receiverID uint64) (*models.Message, error) {
	var msg models.Message
	if err := r.db.
		Where("receiver_id = ? AND read_at IS NULL", receiverID).
		Order("created_at DESC, id DESC").
		First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *GormMessageRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Message{}, id).Error
}

func (r *GormMessageRepository) DeleteThread(userA, userB uint64) error {
	return r.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Delete(&models.Message{}).Error
}
