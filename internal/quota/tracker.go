package quota

import (
	"casestudy/internal/model"
	"context"
	"fmt"
	"strings"
)

// 配额维度标识，出现在 403 响应的 limitType 字段里。
const (
	DimensionUser  = "user_id"
	DimensionEmail = "email"
	DimensionIP    = "ip"
)

// Identity 是一次生成请求携带的身份信息。为空的维度不参与检查。
type Identity struct {
	UserID    uint
	Email     string
	IPAddress string
	UserAgent string
}

// ExceededError 表示某个维度已达到配额上限。
type ExceededError struct {
	Dimension string
	Current   int64
	Limit     int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("generation quota exceeded on %s: %d/%d", e.Dimension, e.Current, e.Limit)
}

// Tracker counts prior usage events against a fixed ceiling. Each identity
// dimension is checked independently; the first dimension at or over the limit
// trips the check. The read-then-compare sequence is not transactional, so two
// concurrent requests from the same identity can both pass (soft limit).
type Tracker struct {
	repo  model.Repository
	limit int
}

// NewTracker 创建配额跟踪器。
func NewTracker(repo model.Repository, limit int) *Tracker {
	if limit <= 0 {
		limit = 10
	}
	return &Tracker{repo: repo, limit: limit}
}

// Limit 返回配置的配额上限。
func (t *Tracker) Limit() int {
	if t == nil {
		return 0
	}
	return t.limit
}

// Check 按 user_id、email、ip 的顺序检查各维度的累计使用次数。
// 超限时返回 *ExceededError，否则返回 nil。
func (t *Tracker) Check(ctx context.Context, identity Identity) error {
	if t == nil || t.repo == nil {
		return nil
	}

	if identity.UserID > 0 {
		count, err := t.repo.CountUsageEventsByUser(ctx, identity.UserID)
		if err != nil {
			return fmt.Errorf("count usage by user: %w", err)
		}
		if count >= int64(t.limit) {
			return &ExceededError{Dimension: DimensionUser, Current: count, Limit: t.limit}
		}
	}

	if email := strings.TrimSpace(identity.Email); email != "" {
		count, err := t.repo.CountUsageEventsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("count usage by email: %w", err)
		}
		if count >= int64(t.limit) {
			return &ExceededError{Dimension: DimensionEmail, Current: count, Limit: t.limit}
		}
	}

	if ip := strings.TrimSpace(identity.IPAddress); ip != "" {
		count, err := t.repo.CountUsageEventsByIP(ctx, ip)
		if err != nil {
			return fmt.Errorf("count usage by ip: %w", err)
		}
		if count >= int64(t.limit) {
			return &ExceededError{Dimension: DimensionIP, Current: count, Limit: t.limit}
		}
	}

	return nil
}

// Used 返回当前身份最强维度的累计使用次数，用于 GET 响应里的 remaining 计算。
func (t *Tracker) Used(ctx context.Context, identity Identity) (int64, error) {
	if t == nil || t.repo == nil {
		return 0, nil
	}
	if identity.UserID > 0 {
		return t.repo.CountUsageEventsByUser(ctx, identity.UserID)
	}
	if ip := strings.TrimSpace(identity.IPAddress); ip != "" {
		return t.repo.CountUsageEventsByIP(ctx, ip)
	}
	return 0, nil
}
