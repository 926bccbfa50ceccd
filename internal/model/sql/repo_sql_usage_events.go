package sql

import (
	"casestudy/internal/entity"
	"context"
	"fmt"
	"strings"
)

// CreateUsageEvent appends a usage tracking row.
func (r *GormRepository) CreateUsageEvent(ctx context.Context, event *entity.DbUsageEvent) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// CountUsageEventsByUser returns the number of usage events recorded for a user.
func (r *GormRepository) CountUsageEventsByUser(ctx context.Context, userID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.DbUsageEvent{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountUsageEventsByEmail returns the number of usage events recorded for an email.
func (r *GormRepository) CountUsageEventsByEmail(ctx context.Context, email string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return 0, fmt.Errorf("email is empty")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.DbUsageEvent{}).
		Where("LOWER(email) = ?", strings.ToLower(trimmed)).Count(&count).Error
	return count, err
}

// CountUsageEventsByIP returns the number of usage events recorded for a client IP.
func (r *GormRepository) CountUsageEventsByIP(ctx context.Context, ipAddress string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(ipAddress)
	if trimmed == "" {
		return 0, fmt.Errorf("ip address is empty")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.DbUsageEvent{}).Where("ip_address = ?", trimmed).Count(&count).Error
	return count, err
}
