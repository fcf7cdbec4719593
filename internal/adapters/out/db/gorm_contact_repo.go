package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/caixinha/realtime/internal/ports/out"
)

// 联系人状态
const (
	contactStatusNormal  int8 = 1
	contactStatusBlocked int8 = 2
)

// ContactModel GORM模型
type ContactModel struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;index"`
	FriendID  string    `gorm:"column:friend_id;type:varchar(64);not null;index"`
	Status    int8      `gorm:"column:status;type:tinyint;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (ContactModel) TableName() string {
	return "contacts"
}

// ContactRepositoryMySQL MySQL联系人仓储，作为社交关系协作方
type ContactRepositoryMySQL struct {
	db *gorm.DB
}

func NewContactRepositoryMySQL(db *gorm.DB) out.SocialGraph {
	return &ContactRepositoryMySQL{db: db}
}

// GetContactIDs 返回正常状态的好友ID列表
func (r *ContactRepositoryMySQL) GetContactIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&ContactModel{}).
		Where("user_id = ? AND status = ?", userID, contactStatusNormal).
		Pluck("friend_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
