package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/melkbazar/MelkBazar/app/models"
	"github.com/melkbazar/MelkBazar/app/repository"
)

var jpegReceipt = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, make([]byte, 600)...)

type testEnv struct {
	svc     *Service
	plans   *fakePlanRepo
	pays    *fakePaymentRepo
	users   *fakeUserRepo
	grants  *fakeGrantRepo
	notes   *fakeNotificationRepo
	storage *fakeStorage
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	plans := &fakePlanRepo{plans: make(map[string]*models.Plan)}
	for _, p := range models.DefaultPlans() {
		cp := p
		plans.plans[p.ID] = &cp
	}

	env := &testEnv{
		plans:   plans,
		pays:    newFakePaymentRepo(),
		users:   &fakeUserRepo{users: make(map[uint]*models.User)},
		grants:  &fakeGrantRepo{},
		notes:   &fakeNotificationRepo{},
		storage: &fakeStorage{},
		now:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	env.users.users[1] = &models.User{ID: 1, Name: "Sara Ahmadi", Email: "sara@example.com", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE, Category: models.CategoryAgent}
	env.users.users[2] = &models.User{ID: 2, Name: "Reza Karimi", Email: "reza@example.com", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE, Category: models.CategoryIndividual}
	env.users.users[9] = &models.User{ID: 9, Name: "Admin", Email: "admin@example.com", Role: models.ROLE_ADMIN, Status: models.STATUS_ACTIVE, Category: models.CategoryIndividual}

	repos := &repository.Repositories{
		Plan:         env.plans,
		Payment:      env.pays,
		User:         env.users,
		Grant:        env.grants,
		Notification: env.notes,
	}
	env.svc = NewService(repos, env.storage, 48*time.Hour)
	env.svc.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func TestCreatePayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
	assert.NotEmpty(t, record.PublicID)
	assert.Equal(t, models.PaymentStatusPending, record.Status)
	assert.Equal(t, "agent_quarterly", record.PlanID)
	assert.Equal(t, models.CategoryAgent, record.PlanType)
	assert.Equal(t, "197.90", record.Amount.StringFixed(2))
	assert.Equal(t, 90, record.DurationDays)
	assert.Equal(t, env.now.Add(48*time.Hour), record.ExpiresAt)
}

func TestCreatePaymentUnknownPlan(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), 1, "gold_plated")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePaymentCategoryMismatch(t *testing.T) {
	env := newTestEnv(t)

	// User 2 is an individual account; agency plans are not sold to it.
	_, err := env.svc.Create(context.Background(), 2, "agency_yearly")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "plan_id", verr.Field)
}

func TestCreatePaymentDuplicateActiveClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	_, err = env.svc.Create(ctx, 1, "agent_quarterly")
	var dup *DuplicateActiveClaimError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, first.PublicID, dup.ExistingID)

	// A claim for a different plan of the same category is its own slot.
	otherPlan := &models.Plan{ID: "agent_monthly", DisplayName: "Agent Monthly", Price: first.Amount, DurationDays: 30, Category: models.CategoryAgent, MaxActiveListings: 30, MaxPhotosPerListing: 20, IsActive: true}
	env.plans.plans[otherPlan.ID] = otherPlan
	_, err = env.svc.Create(ctx, 1, "agent_monthly")
	assert.NoError(t, err)

	// Once the open claim is terminal the slot frees up.
	_, err = env.svc.Cancel(ctx, 1, first.PublicID)
	assert.NoError(t, err)
	_, err = env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
}

func TestGetScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	_, err = env.svc.Get(ctx, 2, record.PublicID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := env.svc.Get(ctx, 1, record.PublicID)
	assert.NoError(t, err)
	assert.Equal(t, record.PublicID, got.PublicID)
}

func TestUploadReceipt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	env.advance(2 * time.Hour)
	updated, err := env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAwaitingApproval, updated.Status)
	assert.Contains(t, updated.ReceiptKey, record.PublicID)
	assert.Contains(t, env.storage.objects, updated.ReceiptKey)

	// A second upload has no legal transition out of awaiting_approval.
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	var ite *InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
	assert.Equal(t, models.PaymentStatusAwaitingApproval, ite.Status)
}

func TestUploadReceiptAfterWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	// Window lapsed but the sweep has not run yet: the record still reads
	// pending, the upload is refused anyway.
	env.advance(49 * time.Hour)
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.ErrorIs(t, err, ErrWindowExpired)

	got, _ := env.svc.Get(ctx, 1, record.PublicID)
	assert.Equal(t, models.PaymentStatusPending, got.Status)
}

func TestUploadReceiptRejectsBadContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "receipt.html", []byte("<html><body>fake</body></html>"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "receipt", verr.Field)
	assert.Empty(t, env.storage.objects)
}

func TestUploadReceiptStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	env.storage.failErr = errors.New("connection refused")
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.ErrorIs(t, err, ErrStorageFailure)

	// The claim survives the outage and the upload can be retried.
	got, _ := env.svc.Get(ctx, 1, record.PublicID)
	assert.Equal(t, models.PaymentStatusPending, got.Status)

	env.storage.failErr = nil
	updated, err := env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAwaitingApproval, updated.Status)
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	cancelled, err := env.svc.Cancel(ctx, 1, record.PublicID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, cancelled.Status)

	_, err = env.svc.Cancel(ctx, 1, record.PublicID)
	var ite *InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
}

func TestApproveExtendsEntitlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)

	env.advance(6 * time.Hour)
	approved, err := env.svc.Approve(ctx, 9, record.PublicID)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusApproved, approved.Status)

	user, _ := env.users.GetByID(1)
	assert.Equal(t, models.CategoryAgent, user.PlanType)
	assert.NotNil(t, user.PlanExpiresAt)
	assert.Equal(t, env.now.AddDate(0, 0, 90), *user.PlanExpiresAt)

	notes, _ := env.notes.ListByUser(1, false, 0)
	assert.Len(t, notes, 1)
	assert.Equal(t, models.NotificationPaymentApproved, notes[0].Type)
	assert.Equal(t, record.PublicID, notes[0].ReferenceID)
}

func TestApproveStacksOnUnexpiredPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// User 1 already holds a plan running 20 more days; the new purchase
	// extends from that expiry, not from the approval instant.
	existing := env.now.AddDate(0, 0, 20)
	env.users.users[1].PlanType = models.CategoryAgent
	env.users.users[1].PlanExpiresAt = &existing

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)
	_, err = env.svc.Approve(ctx, 9, record.PublicID)
	assert.NoError(t, err)

	user, _ := env.users.GetByID(1)
	assert.Equal(t, existing.AddDate(0, 0, 90), *user.PlanExpiresAt)
}

func TestApproveRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)

	_, err = env.svc.Approve(ctx, 2, record.PublicID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.svc.Approve(ctx, 404, record.PublicID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApproveWrongStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	// Still pending, no receipt yet.
	_, err = env.svc.Approve(ctx, 9, record.PublicID)
	var ite *InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
	assert.Equal(t, models.PaymentStatusPending, ite.Status)
}

func TestRejectRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)

	_, err = env.svc.Reject(ctx, 9, record.PublicID, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "reason", verr.Field)

	_, err = env.svc.Reject(ctx, 9, record.PublicID, strings.Repeat("x", 501))
	assert.ErrorAs(t, err, &verr)
}

func TestRejectLeavesEntitlementUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)

	rejected, err := env.svc.Reject(ctx, 9, record.PublicID, "amount does not match the invoice")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRejected, rejected.Status)
	assert.Equal(t, "amount does not match the invoice", rejected.RejectionReason)

	user, _ := env.users.GetByID(1)
	assert.Empty(t, user.PlanType)
	assert.Nil(t, user.PlanExpiresAt)

	notes, _ := env.notes.ListByUser(1, false, 0)
	assert.Len(t, notes, 1)
	assert.Equal(t, models.NotificationPaymentRejected, notes[0].Type)

	// The slot is free again; the user may retry with a fresh payment.
	_, err = env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
}

func TestDecideTwiceIsRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)

	_, err = env.svc.Approve(ctx, 9, record.PublicID)
	assert.NoError(t, err)
	user, _ := env.users.GetByID(1)
	firstExpiry := *user.PlanExpiresAt

	var ite *InvalidTransitionError
	_, err = env.svc.Approve(ctx, 9, record.PublicID)
	assert.ErrorAs(t, err, &ite)
	assert.Equal(t, models.PaymentStatusApproved, ite.Status)

	_, err = env.svc.Reject(ctx, 9, record.PublicID, "changed my mind")
	assert.ErrorAs(t, err, &ite)

	// The entitlement was applied exactly once.
	user, _ = env.users.GetByID(1)
	assert.Equal(t, firstExpiry, *user.PlanExpiresAt)
}

func TestConcurrentDecideSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)
	_, err = env.svc.UploadReceipt(ctx, 1, record.PublicID, "transfer.jpg", jpegReceipt)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = env.svc.Approve(ctx, 9, record.PublicID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = env.svc.Reject(ctx, 9, record.PublicID, "duplicate transfer")
	}()
	wg.Wait()

	succeeded := 0
	for _, e := range errs {
		if e == nil {
			succeeded++
		} else {
			var ite *InvalidTransitionError
			assert.ErrorAs(t, e, &ite)
		}
	}
	assert.Equal(t, 1, succeeded)

	got, _ := env.svc.Get(ctx, 1, record.PublicID)
	assert.True(t, got.IsTerminal())
	if errs[0] == nil {
		assert.Equal(t, models.PaymentStatusApproved, got.Status)
	} else {
		assert.Equal(t, models.PaymentStatusRejected, got.Status)
	}
}

func TestSweepExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stale, err := env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	env.advance(10 * time.Hour)
	fresh, err := env.svc.Create(ctx, 2, "individual_monthly")
	assert.NoError(t, err)

	// 40 more hours: the first window (48h) lapsed, the second has 8h left.
	env.advance(40 * time.Hour)
	count, err := env.svc.SweepExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	got, _ := env.svc.Get(ctx, 1, stale.PublicID)
	assert.Equal(t, models.PaymentStatusExpired, got.Status)
	got, _ = env.svc.Get(ctx, 2, fresh.PublicID)
	assert.Equal(t, models.PaymentStatusPending, got.Status)

	notes, _ := env.notes.ListByUser(1, false, 0)
	assert.Len(t, notes, 1)
	assert.Equal(t, models.NotificationPaymentExpired, notes[0].Type)

	// Re-running the sweep finds nothing new.
	count, err = env.svc.SweepExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	// An expired claim frees the slot for a fresh attempt.
	_, err = env.svc.Create(ctx, 1, "agent_quarterly")
	assert.NoError(t, err)

	// Uploading against the expired record is a transition error now, not a
	// window error.
	_, err = env.svc.UploadReceipt(ctx, 1, stale.PublicID, "transfer.jpg", jpegReceipt)
	var ite *InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
	assert.Equal(t, models.PaymentStatusExpired, ite.Status)
}
