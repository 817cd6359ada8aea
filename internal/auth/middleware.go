package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const currentUserKey = "current_user"

// AuthMiddleware Bearer Token 认证中间件
// 认证通过后从用户目录加载用户并存入上下文;cache 可以为空
func AuthMiddleware(validator *TokenValidator, users repository.UserRepository, cache *UserCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, "missing authorization header", "")
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			abort(c, http.StatusUnauthorized, "invalid authorization header", "expected Bearer token")
			return
		}

		userID, err := validator.ValidateToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token", err.Error())
			return
		}

		user, err := loadUser(users, cache, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(c, http.StatusUnauthorized, "unknown user", "")
				return
			}
			_ = c.Error(err)
			abort(c, http.StatusInternalServerError, "failed to load user", "")
			return
		}
		if !user.IsActive {
			abort(c, http.StatusForbidden, "user is inactive", "")
			return
		}

		c.Set(currentUserKey, user)
		c.Set("user_id", user.ID)

		c.Next()
	}
}

// RequireAdmin 管理员权限中间件,需在 AuthMiddleware 之后使用
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required", "")
			return
		}
		if !user.IsAdmin() {
			abort(c, http.StatusForbidden, "admin permission required", "")
			return
		}
		c.Next()
	}
}

// CurrentUser 获取当前认证用户
func CurrentUser(c *gin.Context) (*model.UserModel, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := val.(*model.UserModel)
	return user, ok && user != nil
}

func loadUser(users repository.UserRepository, cache *UserCache, id uint) (*model.UserModel, error) {
	if cache != nil {
		if user, ok := cache.Get(id); ok {
			return user, nil
		}
	}

	user, err := users.FindByID(id)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Set(user)
	}
	return user, nil
}

func abort(c *gin.Context, status int, message, detail string) {
	body := gin.H{
		"code":    status,
		"message": message,
	}
	if detail != "" {
		body["detail"] = detail
	}
	c.AbortWithStatusJSON(status, body)
}
