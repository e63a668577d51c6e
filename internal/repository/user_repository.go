package repository

import (
	"errors"
	"fmt"

	"github.com/okazaki/taskdesk/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// ErrNotWorker is returned when a cascade delete targets a non-worker account.
var ErrNotWorker = errors.New("user repository: cascade delete requires a worker")

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindOwner() (*models.User, error) {
	var user models.User
	if err := r.db.Where("role = ?", models.RoleOwner).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindFirstWorker() (*models.User, error) {
	var user models.User
	if err := r.db.Where("role = ?", models.RoleWorker).
		Order("username ASC").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) List() ([]models.User, error) {
	var users []models.User
	if err := r.db.Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormUserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// DeleteWorkerCascade removes a worker and all references to them atomically.
func (r *GormUserRepository) DeleteWorkerCascade(worker *models.User, owner *models.User) error {
	if worker.Role != models.RoleWorker {
		return ErrNotWorker
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sender_id = ? OR receiver_id = ?", worker.ID, worker.ID).
			Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}

		if err := tx.Where("requested_by_id = ?", worker.ID).
			Delete(&models.CompletionRequest{}).Error; err != nil {
			return fmt.Errorf("delete completion requests: %w", err)
		}

		if err := tx.Model(&models.CompletionRequest{}).
			Where("decision_by_id = ?", worker.ID).
			Update("decision_by_id", nil).Error; err != nil {
			return fmt.Errorf("null decisions: %w", err)
		}

		if err := tx.Model(&models.Task{}).
			Where("assignee_id = ?", worker.ID).
			Update("assignee_id", owner.ID).Error; err != nil {
			return fmt.Errorf("reassign assigned tasks: %w", err)
		}

		if err := tx.Model(&models.Task{}).
			Where("creator_id = ?", worker.ID).
			Update("creator_id", owner.ID).Error; err != nil {
			return fmt.Errorf("reassign created tasks: %w", err)
		}

		if err := tx.Delete(&models.User{}, worker.ID).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		return nil
	})
}
