package repository

import (
	"github.com/okazaki/taskdesk/internal/models"
	"gorm.io/gorm"
)

// GormCompletionRequestRepository is a GORM implementation of
// CompletionRequestRepository.
type GormCompletionRequestRepository struct {
	db *gorm.DB
}

// NewCompletionRequestRepository creates a new CompletionRequestRepository
func NewCompletionRequestRepository(db *gorm.DB) CompletionRequestRepository {
	return &GormCompletionRequestRepository{db: db}
}

func (r *GormCompletionRequestRepository) FindByID(id uint64, preload ...string) (*models.CompletionRequest, error) {
	var req models.CompletionRequest
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *GormCompletionRequestRepository) HasPendingForTask(taskID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.CompletionRequest{}).
		Where("task_id = ? AND status = ?", taskID, models.RequestStatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *GormCompletionRequestRepository) ListPending(requestedByID *uint64) ([]models.CompletionRequest, error) {
	var reqs []models.CompletionRequest
	query := r.db.Where("status = ?", models.RequestStatusPending)
	if requestedByID != nil {
		query = query.Where("requested_by_id = ?", *requestedByID)
	}
	if err := query.Order("created_at ASC").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *GormCompletionRequestRepository) ListPendingForTask(taskID uint64) ([]models.CompletionRequest, error) {
	var reqs []models.CompletionRequest
	if err := r.db.
		Where("task_id = ? AND status = ?", taskID, models.RequestStatusPending).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *GormCompletionRequestRepository) CountPending(requestedByID *uint64) (int64, error) {
	var count int64
	query := r.db.Model(&models.CompletionRequest{}).
		Where("status = ?", models.RequestStatusPending)
	if requestedByID != nil {
		query = query.Where("requested_by_id = ?", *requestedByID)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *GormCompletionRequestRepository) CreateWithNotice(req *models.CompletionRequest, notice *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		if notice != nil {
			if err := tx.Create(notice).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormCompletionRequestRepository) Resolve(req *models.CompletionRequest, task *models.Task, notice *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(req).Error; err != nil {
			return err
		}
		if task != nil {
			if err := tx.Save(task).Error; err != nil {
				return err
			}
		}
		if notice != nil {
			if err := tx.Create(notice).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
