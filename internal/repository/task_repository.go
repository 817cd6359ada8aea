package repository

import (
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Create(task *model.TaskModel) error
	Save(task *model.TaskModel) error
	FindByID(id uint) (*model.TaskModel, error)
	FindByIDForUpdate(id uint) (*model.TaskModel, error)
	FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error)
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	Status           *model.TaskStatus
	AssignedToID     *uint
	RequiresApproval *bool
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 创建任务
func (r *taskRepository) Create(task *model.TaskModel) error {
	if task.Status == "" {
		task.Status = model.TaskStatusNotYetStarted
	}
	if task.Priority == "" {
		task.Priority = model.TaskPriorityMedium
	}
	if err := task.Validate(); err != nil {
		return err
	}
	return r.db.Create(task).Error
}

// Save 保存任务
func (r *taskRepository) Save(task *model.TaskModel) error {
	return r.db.Save(task).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(id uint) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByIDForUpdate 在事务内加行锁读取任务
// SQLite 不支持 FOR UPDATE,依赖其库级写锁串行化写入
func (r *taskRepository) FindByIDForUpdate(id uint) (*model.TaskModel, error) {
	query := r.db
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var task model.TaskModel
	if err := query.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByFilter 根据过滤器查找任务
func (r *taskRepository) FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	query := r.db.Model(&model.TaskModel{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.AssignedToID != nil {
			query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
		}
		if filter.RequiresApproval != nil {
			query = query.Where("requires_approval = ?", *filter.RequiresApproval)
		}
	}

	err := query.Order("deadline ASC").Order("id ASC").Find(&tasks).Error
	return tasks, err
}
