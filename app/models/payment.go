package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending          = "pending"
	PaymentStatusAwaitingApproval = "awaiting_approval"
	PaymentStatusApproved         = "approved"
	PaymentStatusRejected         = "rejected"
	PaymentStatusExpired          = "expired"
	PaymentStatusCancelled        = "cancelled"
)

// PaymentActiveMarker is the value of PaymentRecord.Active while a record is
// non-terminal. The column is NULLed on every terminal transition so the
// composite unique index (user_id, plan_id, active) only ever matches live
// claims — MySQL ignores NULLs in unique indexes.
const PaymentActiveMarker = "1"

// PaymentRecord is one purchase attempt. Plan price, duration and category are
// snapshotted at creation; later catalog edits never mutate history.
type PaymentRecord struct {
	ID              uint            `gorm:"primaryKey" json:"-"`
	PublicID        string          `gorm:"type:varchar(36);not null;uniqueIndex" json:"id"`
	UserID          uint            `gorm:"not null;index;index:ux_payments_user_plan_active,unique,priority:1" json:"user_id"`
	PlanID          string          `gorm:"type:varchar(64);not null;index:ux_payments_user_plan_active,unique,priority:2" json:"plan_id"`
	PlanType        string          `gorm:"type:varchar(20);not null" json:"plan_type"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	DurationDays    int             `gorm:"not null" json:"duration_days"`
	Status          string          `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	Active          *string         `gorm:"type:varchar(1);index:ux_payments_user_plan_active,unique,priority:3" json:"-"`
	ExpiresAt       time.Time       `gorm:"type:timestamp;not null;index" json:"expires_at"`
	ReceiptKey      string          `gorm:"type:varchar(255);default:null" json:"receipt_key,omitempty"`
	ReceiptThumbKey string          `gorm:"type:varchar(255);default:null" json:"receipt_thumb_key,omitempty"`
	RejectionReason string          `gorm:"type:varchar(500);default:null" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the record reached a status that permits no
// further transition.
func (p *PaymentRecord) IsTerminal() bool {
	return IsTerminalPaymentStatus(p.Status)
}

func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusExpired, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusAwaitingApproval,
		PaymentStatusApproved, PaymentStatusRejected,
		PaymentStatusExpired, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// IsWindowExpired reports whether the transfer window has lapsed at the given
// instant. Callers must pass UTC now; ExpiresAt is persisted in UTC.
func (p *PaymentRecord) IsWindowExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
