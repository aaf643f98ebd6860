package models

import "time"

// EntitlementGrant is the idempotency ledger of the entitlements activator.
// GrantKey is the public ID of the approved payment; the unique index makes a
// second activation attempt for the same payment a no-op instead of a double
// extension of the user's plan.
type EntitlementGrant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GrantKey     string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"grant_key"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	PlanType     string    `gorm:"type:varchar(20);not null" json:"plan_type"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	NewExpiresAt time.Time `gorm:"type:timestamp;not null" json:"new_expires_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
