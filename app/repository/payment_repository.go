package repository

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/melkbazar/MelkBazar/app/models"
)

// ErrDuplicateActive is returned by Create when the unique index on
// (user_id, plan_id, active) rejects a second live claim.
var ErrDuplicateActive = errors.New("duplicate active payment for user and plan")

type gormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository backed by GORM.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepository{db: db}
}

func (r *gormPaymentRepository) Create(record *models.PaymentRecord) error {
	err := r.db.Create(record).Error
	if err == nil {
		return nil
	}
	// Requires TranslateError on the gorm config; the mysql driver maps
	// ER_DUP_ENTRY onto gorm.ErrDuplicatedKey.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateActive
	}
	return err
}

func (r *gormPaymentRepository) GetByPublicID(publicID string) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	err := r.db.Where("public_id = ?", publicID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormPaymentRepository) FindActiveByUserPlan(userID uint, planID string) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	err := r.db.
		Where("user_id = ? AND plan_id = ? AND active = ?", userID, planID, models.PaymentActiveMarker).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormPaymentRepository) ListByUser(userID uint) ([]models.PaymentRecord, error) {
	var recs []models.PaymentRecord
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&recs).Error
	return recs, err
}

func (r *gormPaymentRepository) ListByStatus(status string, offset, limit int) ([]models.PaymentRecord, int64, error) {
	q := r.db.Model(&models.PaymentRecord{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []models.PaymentRecord
	err := q.Order("created_at ASC").Offset(offset).Limit(limit).Find(&recs).Error
	return recs, total, err
}

func (r *gormPaymentRepository) ListExpiredPending(now time.Time, limit int) ([]models.PaymentRecord, error) {
	var recs []models.PaymentRecord
	err := r.db.
		Where("status = ? AND expires_at <= ?", models.PaymentStatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

func (r *gormPaymentRepository) UpdateStatusIf(id uint, from, to string, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range updates {
		values[k] = v
	}
	if models.IsTerminalPaymentStatus(to) {
		values["active"] = gorm.Expr("NULL")
	}

	tx := r.db.Model(&models.PaymentRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormPaymentRepository) CountByStatus(status string) (int64, error) {
	var cnt int64
	err := r.db.Model(&models.PaymentRecord{}).Where("status = ?", status).Count(&cnt).Error
	return cnt, err
}

func (r *gormPaymentRepository) RevenueSince(since *time.Time) (decimal.Decimal, error) {
	// SUM over DECIMAL stays exact in MySQL; scanning into a string keeps it
	// exact on the Go side as well.
	var sum *string
	q := r.db.Model(&models.PaymentRecord{}).
		Select("SUM(amount)").
		Where("status = ?", models.PaymentStatusApproved)
	if since != nil {
		q = q.Where("updated_at >= ?", *since)
	}
	if err := q.Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if sum == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*sum)
}
