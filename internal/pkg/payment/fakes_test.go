package payment

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/melkbazar/MelkBazar/app/models"
	"github.com/melkbazar/MelkBazar/app/repository"
)

// In-memory fakes over the repository interfaces. The payment fake applies
// the same compare-and-set discipline as the GORM implementation, under a
// mutex, so the concurrency tests are meaningful.

type fakePlanRepo struct {
	plans map[string]*models.Plan
}

func (f *fakePlanRepo) GetByID(id string) (*models.Plan, error) {
	if p, ok := f.plans[id]; ok && p.IsActive {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePlanRepo) ListActive() ([]models.Plan, error) {
	var out []models.Plan
	for _, p := range f.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlanRepo) Count() (int64, error) { return int64(len(f.plans)), nil }

type fakePaymentRepo struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]*models.PaymentRecord
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{records: make(map[uint]*models.PaymentRecord)}
}

func (f *fakePaymentRepo) Create(record *models.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.UserID == record.UserID && r.PlanID == record.PlanID && r.Active != nil {
			return repository.ErrDuplicateActive
		}
	}
	f.nextID++
	record.ID = f.nextID
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt
	cp := *record
	f.records[record.ID] = &cp
	return nil
}

func (f *fakePaymentRepo) GetByPublicID(publicID string) (*models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.PublicID == publicID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) FindActiveByUserPlan(userID uint, planID string) (*models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.UserID == userID && r.PlanID == planID && r.Active != nil {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) ListByUser(userID uint) ([]models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) ListByStatus(status string, offset, limit int) ([]models.PaymentRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentRecord
	for _, r := range f.records {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePaymentRepo) ListExpiredPending(now time.Time, limit int) ([]models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentRecord
	for _, r := range f.records {
		if r.Status == models.PaymentStatusPending && !now.Before(r.ExpiresAt) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) UpdateStatusIf(id uint, from, to string, updates map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	if models.IsTerminalPaymentStatus(to) {
		r.Active = nil
	}
	for k, v := range updates {
		switch k {
		case "receipt_key":
			r.ReceiptKey = v.(string)
		case "receipt_thumb_key":
			r.ReceiptThumbKey = v.(string)
		case "rejection_reason":
			r.RejectionReason = v.(string)
		}
	}
	return true, nil
}

func (f *fakePaymentRepo) CountByStatus(status string) (int64, error) {
	_, n, err := f.ListByStatus(status, 0, 0)
	return n, err
}

func (f *fakePaymentRepo) RevenueSince(since *time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, r := range f.records {
		if r.Status != models.PaymentStatusApproved {
			continue
		}
		if since != nil && r.UpdatedAt.Before(*since) {
			continue
		}
		sum = sum.Add(r.Amount)
	}
	return sum, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) UpdateEntitlement(id uint, planType string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PlanType = planType
	t := expiresAt
	u.PlanExpiresAt = &t
	return nil
}

type fakeGrantRepo struct {
	mu     sync.Mutex
	grants map[string]*models.EntitlementGrant
}

func (f *fakeGrantRepo) CreateIfNotExists(grant *models.EntitlementGrant) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grants == nil {
		f.grants = make(map[string]*models.EntitlementGrant)
	}
	if _, ok := f.grants[grant.GrantKey]; ok {
		return false, nil
	}
	cp := *grant
	f.grants[grant.GrantKey] = &cp
	return true, nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (f *fakeNotificationRepo) Create(n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, *n)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.notes {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(id uint, userID uint) (bool, error) { return false, nil }

func (f *fakeNotificationRepo) CountUnread(userID uint) (int64, error) {
	notes, _ := f.ListByUser(userID, true, 0)
	return int64(len(notes)), nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failErr error
}

func (f *fakeStorage) Store(ctx context.Context, key string, data []byte, contentType string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) URL(key string) string { return "/uploads/receipts/" + key }

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}
