package model

import (
	"casestudy/internal/entity"
	"context"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error)
	CountUsers(ctx context.Context) (int64, error)

	// Case study
	CreateCaseStudy(ctx context.Context, record *entity.DbCaseStudy) error
	ListCaseStudies(ctx context.Context, params *entity.CaseStudyQuery) ([]entity.DbCaseStudy, error)

	// 使用事件（只追加）
	CreateUsageEvent(ctx context.Context, event *entity.DbUsageEvent) error
	CountUsageEventsByUser(ctx context.Context, userID uint) (int64, error)
	CountUsageEventsByEmail(ctx context.Context, email string) (int64, error)
	CountUsageEventsByIP(ctx context.Context, ipAddress string) (int64, error)
}
