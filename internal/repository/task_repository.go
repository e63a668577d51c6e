package repository

import (
	"strings"

	"github.com/okazaki/taskdesk/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// taskOrder sorts due-dated tasks first ascending, null due dates last, with
// priority high > medium > low as the tie-break. Portable across sqlite,
// postgres and mysql.
const taskOrder = "CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, " +
	"tasks.due_date ASC, " +
	"CASE tasks.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END ASC"

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order(taskOrder)
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Assignee").Preload("Creator").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *GormTaskRepository) ListAll(assigneeID *uint64) ([]models.Task, error) {
	var tasks []models.Task
	query := r.db.Preload("Assignee").Order("tasks.id ASC")
	if assigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *assigneeID)
	}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete removes the task's completion requests before the task itself to
// avoid dangling references.
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.CompletionRequest{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}

func (r *GormTaskRepository) SaveWithResolutions(task *models.Task, resolved []*models.CompletionRequest, notices []*models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		for _, req := range resolved {
			if err := tx.Save(req).Error; err != nil {
				return err
			}
		}
		for _, msg := range notices {
			if err := tx.Create(msg).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormTaskRepository) ActiveIDsByAssignees(assigneeIDs []uint64) ([]uint64, error) {
	if len(assigneeIDs) == 0 {
		return nil, nil
	}
	var ids []uint64
	err := r.db.Model(&models.Task{}).
		Where("assignee_id IN ?", assigneeIDs).
		Where("status <> ?", models.TaskStatusDone).
		Pluck("id", &ids).Error
	return ids, err
}
