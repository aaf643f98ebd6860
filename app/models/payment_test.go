package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminalPaymentStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{PaymentStatusPending, false},
		{PaymentStatusAwaitingApproval, false},
		{PaymentStatusApproved, true},
		{PaymentStatusRejected, true},
		{PaymentStatusExpired, true},
		{PaymentStatusCancelled, true},
		{"limbo", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTerminalPaymentStatus(tt.status))
			p := PaymentRecord{Status: tt.status}
			assert.Equal(t, tt.want, p.IsTerminal())
		})
	}
}

func TestIsWindowExpired(t *testing.T) {
	deadline := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	p := PaymentRecord{ExpiresAt: deadline}

	assert.False(t, p.IsWindowExpired(deadline.Add(-time.Second)))
	assert.True(t, p.IsWindowExpired(deadline))
	assert.True(t, p.IsWindowExpired(deadline.Add(time.Second)))
}

func TestDefaultPlansAreValid(t *testing.T) {
	plans := DefaultPlans()
	assert.Len(t, plans, 3)

	seen := make(map[string]bool)
	for _, p := range plans {
		assert.NoError(t, p.Validate(), "plan %s", p.ID)
		assert.True(t, IsValidCategory(p.Category))
		assert.False(t, seen[p.ID], "duplicate plan id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestUserHasActivePlan(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 30)
	past := now.AddDate(0, 0, -1)

	assert.False(t, (&User{}).HasActivePlan(now))
	assert.False(t, (&User{PlanType: CategoryAgent}).HasActivePlan(now))
	assert.False(t, (&User{PlanType: CategoryAgent, PlanExpiresAt: &past}).HasActivePlan(now))
	assert.True(t, (&User{PlanType: CategoryAgent, PlanExpiresAt: &future}).HasActivePlan(now))
}
