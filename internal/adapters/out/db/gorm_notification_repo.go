package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/caixinha/realtime/internal/ports/out"
)

// NotificationModel GORM模型
type NotificationModel struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;index"`
	Type      string    `gorm:"column:type;type:varchar(32);not null"`
	Title     string    `gorm:"column:title;type:varchar(255)"`
	Body      string    `gorm:"column:body;type:text"`
	Read      bool      `gorm:"column:read;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// NotificationRepositoryMySQL MySQL通知仓储实现
type NotificationRepositoryMySQL struct {
	db *gorm.DB
}

func NewNotificationRepositoryMySQL(db *gorm.DB) out.NotificationRepository {
	return &NotificationRepositoryMySQL{db: db}
}

// MarkRead 只允许用户操作自己的通知
func (r *NotificationRepositoryMySQL) MarkRead(ctx context.Context, userID, notificationID string) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found: %s", notificationID)
	}
	return nil
}

func (r *NotificationRepositoryMySQL) ClearAll(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&NotificationModel{}).Error
}
