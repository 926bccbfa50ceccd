package main

import (
	"casestudy/internal/api"
	"casestudy/internal/config"
	"casestudy/internal/llm"
	"casestudy/internal/model"
	"casestudy/internal/ratelimit"
	"casestudy/internal/storage"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// 本地开发时从 .env 加载环境变量，文件不存在则忽略
	_ = godotenv.Load()

	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	// 初始化logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}

	store, err := storage.NewStorage(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		return
	}

	llmClient, err := buildLLMClient(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise generation client")
		return
	}

	limiters := buildLimiters(cfg)

	httpHandler, err := api.NewHTTPHandler(cfg, repo, store, llmClient)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise http handler")
		return
	}

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware(cfg.OriginList()))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.GET("/status", httpHandler.AuthStatus)
	authGroup.POST("/register", httpHandler.Register)
	authGroup.POST("/login", httpHandler.Login)
	authGroup.GET("/me", httpHandler.AuthMiddleware(), httpHandler.Me)

	// 配置静态 API Key 时生成接口改用 x-api-key 认证（Bearer Token 仍可附带
	// 用户身份参与配额），否则要求 JWT
	postChain := []gin.HandlerFunc{httpHandler.RateLimitMiddleware(limiters.Strict)}
	if len(cfg.APIKeyList()) > 0 {
		postChain = append(postChain, httpHandler.APIKeyMiddleware(), httpHandler.OptionalAuthMiddleware())
	} else {
		postChain = append(postChain, httpHandler.AuthMiddleware())
	}
	postChain = append(postChain, httpHandler.GenerateCaseStudy)
	apiGroup.POST("/generate-case-study", postChain...)
	apiGroup.GET("/generate-case-study",
		httpHandler.RateLimitMiddleware(limiters.Moderate),
		httpHandler.OptionalAuthMiddleware(),
		httpHandler.ListCaseStudies,
	)

	if localProvider, ok := store.(storage.LocalBaseDirProvider); ok {
		publicPrefix := strings.TrimSpace(cfg.StoragePublicBaseURL)
		if publicPrefix == "" {
			publicPrefix = "/files"
		}
		if !strings.HasPrefix(publicPrefix, "http://") && !strings.HasPrefix(publicPrefix, "https://") {
			if !strings.HasPrefix(publicPrefix, "/") {
				publicPrefix = "/" + publicPrefix
			}
			r.Static(publicPrefix, localProvider.LocalBaseDir())
		}
	}

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logger.WithField("host", serverHost).Info("服务器启动")
	// 创建HTTP服务器
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  300 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  600 * time.Second,
	}
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("服务器启动失败")
	}
}

// buildLLMClient 组装三步生成链的客户端。IMAGE_PROVIDER=volcengine 时
// 封面图走火山引擎，文本与视觉仍走 OpenAI 兼容接口。
func buildLLMClient(cfg config.Config) (llm.Client, error) {
	openaiClient, err := llm.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAITextModel, cfg.OpenAIImageModel, cfg.OpenAIVisionModel)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(strings.TrimSpace(cfg.ImageProvider), "volcengine") {
		imageGen, err := llm.NewVolcengineImageGenerator(cfg.VolcengineAPIKey, cfg.VolcengineImageModel)
		if err != nil {
			return nil, err
		}
		return llm.Compose(openaiClient, imageGen, openaiClient), nil
	}

	return openaiClient, nil
}

// buildLimiters 创建基于 Redis 的限流器，未配置 REDIS_ADDR 时限流关闭。
func buildLimiters(cfg config.Config) api.Limiters {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		logrus.Warn("REDIS_ADDR not configured, rate limiting disabled")
		return api.Limiters{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
	})

	window := time.Duration(cfg.RateWindowMinutes) * time.Minute
	strict, err := ratelimit.NewRedisFixedWindowLimiter(client, cfg.RateLimitPrefix, "strict", cfg.StrictRateLimit, window)
	if err != nil {
		logrus.WithError(err).Warn("failed to create strict rate limiter")
	}
	moderate, err := ratelimit.NewRedisFixedWindowLimiter(client, cfg.RateLimitPrefix, "moderate", cfg.ModerateRateLimit, window)
	if err != nil {
		logrus.WithError(err).Warn("failed to create moderate rate limiter")
	}

	return api.Limiters{Strict: strict, Moderate: moderate}
}

// CORSMiddleware CORS跨域中间件，白名单为空时放行所有来源
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if len(allowed) == 0 {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, x-api-key")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()
		// 记录请求结束
		duration := time.Since(start)
		logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  duration.String(),
			"size":      c.Writer.Size(),
			"client_ip": c.ClientIP(),
		}).Info("http_request")
	}
}
