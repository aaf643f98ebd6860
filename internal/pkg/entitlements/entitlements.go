package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/melkbazar/MelkBazar/app/models"
	"github.com/melkbazar/MelkBazar/app/repository"
)

type Plan string

const (
	PlanIndividual Plan = "individual"
	PlanAgent      Plan = "agent"
	PlanAgency     Plan = "agency"
)

// Quotas returns the listing and photo quotas granted by a plan type.
func Quotas(plan Plan) (maxListings, maxPhotos int) {
	switch plan {
	case PlanAgency:
		return 200, 30
	case PlanAgent:
		return 30, 20
	case PlanIndividual:
		return 3, 10
	default:
		return 1, 5
	}
}

// Activator applies an approved payment to a user's entitlement. It is the
// only code path allowed to write PlanType/PlanExpiresAt.
type Activator struct {
	users  repository.UserRepository
	grants repository.GrantRepository
}

// NewActivator creates an activator over the given repositories. Pass
// tx-scoped repositories to make the activation part of a larger transaction.
func NewActivator(users repository.UserRepository, grants repository.GrantRepository) *Activator {
	return &Activator{users: users, grants: grants}
}

// Activate extends the user's entitlement by durationDays of planType.
//
// Stacking rule: an unexpired entitlement is extended from its current
// expiry, not reset to now+duration, so renewing early never costs paid days.
// An expired or absent entitlement starts at now+duration.
//
// grantKey is the idempotency token (the payment's public ID). A repeated
// call with a key that was already applied returns the recorded expiry and
// changes nothing.
func (a *Activator) Activate(ctx context.Context, grantKey string, userID uint, planType string, durationDays int, now time.Time) (time.Time, error) {
	_ = ctx
	if grantKey == "" || userID == 0 {
		return time.Time{}, fmt.Errorf("grant key and user id are required")
	}
	if durationDays <= 0 {
		return time.Time{}, fmt.Errorf("duration must be positive, got %d days", durationDays)
	}

	user, err := a.users.GetByID(userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("load user %d: %w", userID, err)
	}

	now = now.UTC()
	base := now
	if user.HasActivePlan(now) {
		base = user.PlanExpiresAt.UTC()
	}
	newExpiry := base.AddDate(0, 0, durationDays)

	applied, err := a.grants.CreateIfNotExists(&models.EntitlementGrant{
		GrantKey:     grantKey,
		UserID:       userID,
		PlanType:     planType,
		DurationDays: durationDays,
		NewExpiresAt: newExpiry,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("record entitlement grant: %w", err)
	}
	if !applied {
		// Already granted for this payment; report the prior result.
		if user.PlanExpiresAt != nil {
			return user.PlanExpiresAt.UTC(), nil
		}
		return newExpiry, nil
	}

	if err := a.users.UpdateEntitlement(userID, planType, newExpiry); err != nil {
		return time.Time{}, fmt.Errorf("write entitlement for user %d: %w", userID, err)
	}
	return newExpiry, nil
}
