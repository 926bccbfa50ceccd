package config

import (
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"casestudy"`
	DBPath     string `env:"DBPath" envDefault:"datas/casestudy.db"`
	DBPort     string `env:"DBPort" envDefault:"5432"`

	// 文本/图像/视觉生成服务商配置
	OpenAIAPIKey      string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAITextModel   string `env:"OPENAI_TEXT_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIImageModel  string `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-3"`
	OpenAIVisionModel string `env:"OPENAI_VISION_MODEL" envDefault:"gpt-4o"`

	// 可选的火山引擎封面图服务商
	ImageProvider        string `env:"IMAGE_PROVIDER" envDefault:"openai"`
	VolcengineAPIKey     string `env:"VOLCENGINE_API_KEY" envDefault:""`
	VolcengineImageModel string `env:"VOLCENGINE_IMAGE_MODEL" envDefault:"doubao-seedream-4-0-250828"`

	// 封面图归档存储配置，STORAGE_TYPE 为空时不归档
	StorageType          string `env:"STORAGE_TYPE" envDefault:""`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/covers"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"/files"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"casestudy-app"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`

	// 静态 API Key 白名单（逗号分隔）。配置后生成接口改用 x-api-key 认证。
	APIKeys string `env:"API_KEYS" envDefault:""`

	// CORS 白名单（逗号分隔），为空时放行所有来源
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:""`

	// 每个身份维度允许的累计生成次数
	GenerationLimit int `env:"GENERATION_LIMIT" envDefault:"10"`

	// 基于 Redis 的固定窗口限流。REDIS_ADDR 为空时限流关闭。
	RedisAddr         string `env:"REDIS_ADDR" envDefault:""`
	RedisPassword     string `env:"REDIS_PASSWORD" envDefault:""`
	RateLimitPrefix   string `env:"RATE_LIMIT_PREFIX" envDefault:"casestudy:ratelimit"`
	StrictRateLimit   int    `env:"STRICT_RATE_LIMIT" envDefault:"5"`
	ModerateRateLimit int    `env:"MODERATE_RATE_LIMIT" envDefault:"30"`
	RateWindowMinutes int    `env:"RATE_WINDOW_MINUTES" envDefault:"15"`
}

func ParseConfig() (Config, error) {
	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.Debugf("%#v\n", Conf)
	return Conf, nil
}

// APIKeyList 返回去除空白后的静态 API Key 列表。
func (c Config) APIKeyList() []string {
	raw := strings.Split(c.APIKeys, ",")
	keys := make([]string, 0, len(raw))
	for _, key := range raw {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

// OriginList 返回配置的 CORS 白名单，未配置时返回空切片。
func (c Config) OriginList() []string {
	raw := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(raw))
	for _, origin := range raw {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
