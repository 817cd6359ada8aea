package model

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// UserModel 用户数据模型(只读目录)
type UserModel struct {
	ID         uint     `gorm:"primaryKey"`
	Username   string   `gorm:"type:varchar(150);not null;uniqueIndex"`
	FirstName  string   `gorm:"type:varchar(150)"`
	MiddleName string   `gorm:"type:varchar(150)"`
	LastName   string   `gorm:"type:varchar(150)"`
	Email      string   `gorm:"type:varchar(254)"`
	Role       UserRole `gorm:"type:varchar(5);not null;default:'staff';index"`
	IsActive   bool     `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// FullName 返回格式化后的全名,忽略空的中间名
func (u *UserModel) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return titleCase(strings.Join(parts, " "))
}

// IsAdmin 是否具有管理员权限
func (u *UserModel) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Validate 验证用户模型
func (u *UserModel) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.Role != UserRoleAdmin && u.Role != UserRoleStaff {
		return errors.New("invalid user role")
	}
	return nil
}

func titleCase(s string) string {
	runes := []rune(s)
	start := true
	for i, r := range runes {
		if unicode.IsSpace(r) {
			start = true
			continue
		}
		if start {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
		start = false
	}
	return string(runes)
}
