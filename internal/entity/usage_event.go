package entity

import "time"

// DbUsageEvent is one append-only usage tracking row. The quota tracker counts
// these per identity dimension; they are never updated or deleted.
type DbUsageEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint   `gorm:"column:user_id;index" json:"user_id"`
	Email     string `gorm:"column:email;type:varchar(255);index" json:"email"`
	IPAddress string `gorm:"column:ip_address;type:varchar(64);index" json:"ip_address"`
	UserAgent string `gorm:"column:user_agent;type:varchar(512)" json:"user_agent"`
}

// TableName 指定表名
func (DbUsageEvent) TableName() string {
	return "usage_events"
}
