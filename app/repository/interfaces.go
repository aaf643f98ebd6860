package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/melkbazar/MelkBazar/app/models"
)

// PlanRepository defines the interface for plan catalog reads. The catalog is
// read-only to the payment core; seeding happens in database setup and
// migrations.
type PlanRepository interface {
	GetByID(id string) (*models.Plan, error)
	ListActive() ([]models.Plan, error)
	Count() (int64, error)
}

// PaymentRepository defines the interface for payment record persistence.
type PaymentRepository interface {
	// Create inserts a new record. It must be a single atomic insert: the
	// unique index on (user_id, plan_id, active) is the only guard against a
	// second live claim, never a prior SELECT.
	Create(record *models.PaymentRecord) error
	GetByPublicID(publicID string) (*models.PaymentRecord, error)
	FindActiveByUserPlan(userID uint, planID string) (*models.PaymentRecord, error)
	ListByUser(userID uint) ([]models.PaymentRecord, error)
	ListByStatus(status string, offset, limit int) ([]models.PaymentRecord, int64, error)
	ListExpiredPending(now time.Time, limit int) ([]models.PaymentRecord, error)

	// UpdateStatusIf applies a compare-and-set transition: the row is updated
	// only if its status still equals from. Returns false when the row was
	// concurrently moved (or does not exist). Terminal target statuses clear
	// the active marker in the same statement.
	UpdateStatusIf(id uint, from, to string, updates map[string]interface{}) (bool, error)

	CountByStatus(status string) (int64, error)
	RevenueSince(since *time.Time) (decimal.Decimal, error)
}

// UserRepository defines the account reads and the single entitlement write
// the payment core is allowed to perform.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	UpdateEntitlement(id uint, planType string, expiresAt time.Time) error
}

// GrantRepository records applied entitlement activations for idempotency.
type GrantRepository interface {
	// CreateIfNotExists inserts the grant unless its key was already used.
	// Returns false when the grant was applied before.
	CreateIfNotExists(grant *models.EntitlementGrant) (bool, error)
}

// NotificationRepository defines the interface for terminal-state notices.
type NotificationRepository interface {
	Create(n *models.Notification) error
	ListByUser(userID uint, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(id uint, userID uint) (bool, error)
	CountUnread(userID uint) (int64, error)
}
