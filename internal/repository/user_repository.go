package repository

import (
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"gorm.io/gorm"
)

// UserRepository 用户目录仓储接口
type UserRepository interface {
	Save(user *model.UserModel) error
	FindByID(id uint) (*model.UserModel, error)
	FindByIDs(ids []uint) ([]*model.UserModel, error)
	FindAdmins() ([]*model.UserModel, error)
}

// userRepository 用户目录仓储实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户目录仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Save 保存用户
func (r *userRepository) Save(user *model.UserModel) error {
	return r.db.Save(user).Error
}

// FindByID 根据 ID 查找用户
func (r *userRepository) FindByID(id uint) (*model.UserModel, error) {
	var user model.UserModel
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs 批量查找用户,结果顺序与数据库一致,不保证与入参相同
func (r *userRepository) FindByIDs(ids []uint) ([]*model.UserModel, error) {
	var users []*model.UserModel
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// FindAdmins 查找所有有效的管理员
func (r *userRepository) FindAdmins() ([]*model.UserModel, error) {
	var users []*model.UserModel
	err := r.db.Where("role = ? AND is_active = ?", model.UserRoleAdmin, true).
		Order("first_name ASC").
		Find(&users).Error
	return users, err
}
