package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"casestudy/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	currentUserContextKey = "current-user"
	apiKeyHeader          = "x-api-key"
)

// RequestUser 存储请求上下文中的认证用户信息
type RequestUser struct {
	ID          uint
	Email       string
	DisplayName string
}

// AuthMiddleware JWT 认证中间件
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: "缺少或无效的授权头",
			})
			return
		}

		user, apiErr := h.resolveTokenUser(c, tokenString)
		if apiErr != nil {
			c.AbortWithStatusJSON(apiErr.status, apiErr.body)
			return
		}

		c.Set(currentUserContextKey, user)
		c.Next()
	}
}

// OptionalAuthMiddleware 尝试解析 Bearer Token，失败时匿名放行。
// 用于未认证也可访问、但认证后按用户过滤的读取接口。
func (h *HTTPHandler) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		user, apiErr := h.resolveTokenUser(c, tokenString)
		if apiErr == nil && user != nil {
			c.Set(currentUserContextKey, user)
		}
		c.Next()
	}
}

// APIKeyMiddleware 静态 API Key 认证中间件，仅在配置了 API_KEYS 时挂载。
func (h *HTTPHandler) APIKeyMiddleware() gin.HandlerFunc {
	keys := h.cfg.APIKeyList()
	return func(c *gin.Context) {
		provided := strings.TrimSpace(c.GetHeader(apiKeyHeader))
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: "缺少 x-api-key 请求头",
			})
			return
		}
		for _, key := range keys {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, APIError{
			Code:    ErrCodeForbidden,
			Message: "无效的 API Key",
		})
	}
}

// RateLimitMiddleware 按客户端 IP 做固定窗口限流。limiter 为 nil 时直接放行。
func (h *HTTPHandler) RateLimitMiddleware(limiter *ratelimit.FixedWindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.ClientIP()) {
			logrus.WithFields(logrus.Fields{
				"ip":   c.ClientIP(),
				"path": c.Request.URL.Path,
			}).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

type authAbort struct {
	status int
	body   APIError
}

func (h *HTTPHandler) resolveTokenUser(c *gin.Context, tokenString string) (*RequestUser, *authAbort) {
	claims, err := h.authManager.ParseToken(tokenString)
	if err != nil {
		logrus.WithError(err).Warn("failed to parse jwt token")
		return nil, &authAbort{http.StatusUnauthorized, APIError{
			Code:    ErrCodeSessionExpired,
			Message: "Token 无效或已过期",
		}}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &authAbort{http.StatusUnauthorized, APIError{
				Code:    ErrCodeUserNotFound,
				Message: "用户不存在",
			}}
		}
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("failed to load user")
		return nil, &authAbort{http.StatusInternalServerError, APIError{
			Code:    ErrCodeInternalError,
			Message: "验证用户失败",
		}}
	}

	if !user.IsActive {
		return nil, &authAbort{http.StatusForbidden, APIError{
			Code:    ErrCodeUserDisabled,
			Message: "账户已被禁用",
		}}
	}

	return &RequestUser{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}
