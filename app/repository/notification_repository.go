package repository

import (
	"gorm.io/gorm"

	"github.com/melkbazar/MelkBazar/app/models"
)

type gormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a notification repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *gormNotificationRepository) ListByUser(userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	q := r.db.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var notes []models.Notification
	err := q.Order("created_at DESC").Find(&notes).Error
	return notes, err
}

func (r *gormNotificationRepository) MarkRead(id uint, userID uint) (bool, error) {
	tx := r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormNotificationRepository) CountUnread(userID uint) (int64, error) {
	var cnt int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&cnt).Error
	return cnt, err
}
