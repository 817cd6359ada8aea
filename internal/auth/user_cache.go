package auth

import (
	"sync"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
)

// UserCache 已认证用户缓存,避免每个请求都查询用户目录
type UserCache struct {
	cache *sync.Map
	ttl   time.Duration
}

// cacheEntry 缓存条目
type cacheEntry struct {
	user      model.UserModel
	expiresAt time.Time
}

// NewUserCache 创建用户缓存
func NewUserCache(ttl time.Duration) *UserCache {
	return &UserCache{
		cache: &sync.Map{},
		ttl:   ttl,
	}
}

// Get 获取缓存,返回副本
func (c *UserCache) Get(id uint) (*model.UserModel, bool) {
	val, found := c.cache.Load(id)
	if !found {
		return nil, false
	}

	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.cache.Delete(id)
		return nil, false
	}

	user := entry.user
	return &user, true
}

// Set 设置缓存
func (c *UserCache) Set(user *model.UserModel) {
	c.cache.Store(user.ID, &cacheEntry{
		user:      *user,
		expiresAt: time.Now().Add(c.ttl),
	})
}
