package api

import (
	"casestudy/internal/auth"
	"casestudy/internal/config"
	"casestudy/internal/llm"
	"casestudy/internal/model"
	"casestudy/internal/quota"
	"casestudy/internal/ratelimit"
	"casestudy/internal/service"
	"casestudy/internal/storage"
	"strings"
	"time"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	repo        model.Repository
	authManager *auth.Manager

	// 服务层
	generationService *service.GenerationService
	quotaTracker      *quota.Tracker
}

// Limiters 网关限流器集合，注册路由时挂载
type Limiters struct {
	Strict   *ratelimit.FixedWindowLimiter
	Moderate *ratelimit.FixedWindowLimiter
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage, client llm.Client) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	publicBase := normalisePublicBase(cfg.StoragePublicBaseURL)
	generationSvc := service.NewGenerationService(repo, client, store, publicBase)

	return &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		authManager:       authManager,
		generationService: generationSvc,
		quotaTracker:      quota.NewTracker(repo, cfg.GenerationLimit),
	}, nil
}

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
