package payment

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/melkbazar/MelkBazar/app/models"
	"github.com/melkbazar/MelkBazar/app/repository"
	"github.com/melkbazar/MelkBazar/internal/pkg/entitlements"
	"github.com/melkbazar/MelkBazar/internal/pkg/evidence"
	"github.com/melkbazar/MelkBazar/internal/pkg/mail"
)

const sweepBatchSize = 200

// Service is the payment lifecycle engine. Every status change of a
// PaymentRecord goes through it; controllers and the sweeper never write
// status columns themselves.
type Service struct {
	repos   *repository.Repositories
	storage evidence.Storage
	window  time.Duration
	now     func() time.Time
}

// NewService creates a lifecycle service. window is the transfer window a
// freshly created payment stays claimable for.
func NewService(repos *repository.Repositories, storage evidence.Storage, window time.Duration) *Service {
	return &Service{
		repos:   repos,
		storage: storage,
		window:  window,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new payment claim for the given plan. Price, duration and
// category are snapshotted from the catalog. A second live claim for the same
// (user, plan) fails with DuplicateActiveClaimError carrying the open
// record's ID so the client can resume it.
func (s *Service) Create(ctx context.Context, userID uint, planID string) (*models.PaymentRecord, error) {
	_ = ctx
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	plan, err := s.repos.Plan.GetByID(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if user.Category != plan.Category {
		return nil, NewValidationError("plan_id",
			fmt.Sprintf("plan %s is sold to %s accounts, yours is %s", plan.ID, plan.Category, user.Category))
	}

	now := s.now()
	active := models.PaymentActiveMarker
	record := &models.PaymentRecord{
		PublicID:     uuid.New().String(),
		UserID:       user.ID,
		PlanID:       plan.ID,
		PlanType:     plan.Category,
		Amount:       plan.Price,
		DurationDays: plan.DurationDays,
		Status:       models.PaymentStatusPending,
		Active:       &active,
		ExpiresAt:    now.Add(s.window),
	}

	if err := s.repos.Payment.Create(record); err != nil {
		if errors.Is(err, repository.ErrDuplicateActive) {
			existing, ferr := s.repos.Payment.FindActiveByUserPlan(user.ID, plan.ID)
			if ferr != nil {
				// The racing claim reached a terminal status between our
				// insert and this lookup; let the caller retry.
				return nil, err
			}
			return nil, &DuplicateActiveClaimError{ExistingID: existing.PublicID}
		}
		return nil, err
	}

	log.Infof("[Payment] Created payment %s: user=%d plan=%s amount=%s", record.PublicID, user.ID, plan.ID, plan.Price)
	return record, nil
}

// Get returns a payment visible to the given user. Records of other users
// read as not found.
func (s *Service) Get(ctx context.Context, userID uint, publicID string) (*models.PaymentRecord, error) {
	_ = ctx
	record, err := s.repos.Payment.GetByPublicID(publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if record.UserID != userID {
		return nil, ErrNotFound
	}
	return record, nil
}

// ListForUser returns all payments of a user, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.PaymentRecord, error) {
	_ = ctx
	return s.repos.Payment.ListByUser(userID)
}

// UploadReceipt attaches transfer evidence to a pending payment and moves it
// to awaiting_approval. Uploads after the transfer window fail with
// ErrWindowExpired regardless of whether the sweep already ran.
func (s *Service) UploadReceipt(ctx context.Context, userID uint, publicID, filename string, data []byte) (*models.PaymentRecord, error) {
	record, err := s.Get(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	target := nextStatus(record.Status, EventUpload)
	if target == "" {
		return nil, &InvalidTransitionError{Event: EventUpload, Status: record.Status}
	}

	now := s.now()
	if record.IsWindowExpired(now) {
		return nil, ErrWindowExpired
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mime, err := evidence.ValidateReceipt(filename, int64(len(data)), head)
	if err != nil {
		return nil, NewValidationError("receipt", err.Error())
	}

	key := receiptKey(record.PublicID, filename, now)
	if err := s.storage.Store(ctx, key, data, mime); err != nil {
		log.Errorf("[Payment] Receipt store failed for %s: %v", record.PublicID, err)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	updates := map[string]interface{}{"receipt_key": key}
	if evidence.IsImageMime(mime) {
		if thumb, terr := evidence.Thumbnail(data); terr == nil {
			thumbKey := key + ".thumb.jpg"
			if serr := s.storage.Store(ctx, thumbKey, thumb, "image/jpeg"); serr == nil {
				updates["receipt_thumb_key"] = thumbKey
			} else {
				log.Warnf("[Payment] Thumbnail store failed for %s: %v", record.PublicID, serr)
			}
		} else {
			log.Warnf("[Payment] Thumbnail render failed for %s: %v", record.PublicID, terr)
		}
	}

	ok, err := s.repos.Payment.UpdateStatusIf(record.ID, record.Status, target, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against cancel or the expiry sweep; evidence stays
		// stored but the claim is gone.
		return nil, s.staleTransitionError(userID, publicID, EventUpload)
	}

	return s.Get(ctx, userID, publicID)
}

// Cancel closes a pending payment at the owner's request.
func (s *Service) Cancel(ctx context.Context, userID uint, publicID string) (*models.PaymentRecord, error) {
	record, err := s.Get(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	target := nextStatus(record.Status, EventCancel)
	if target == "" {
		return nil, &InvalidTransitionError{Event: EventCancel, Status: record.Status}
	}

	ok, err := s.repos.Payment.UpdateStatusIf(record.ID, record.Status, target, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.staleTransitionError(userID, publicID, EventCancel)
	}

	log.Infof("[Payment] Cancelled payment %s by user %d", publicID, userID)
	return s.Get(ctx, userID, publicID)
}

// Approve marks an awaiting_approval payment approved and extends the owner's
// entitlement in the same database transaction. If the entitlement write
// fails the status change rolls back, so an approval reported to the admin
// always means the user got their plan.
func (s *Service) Approve(ctx context.Context, adminID uint, publicID string) (*models.PaymentRecord, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return nil, err
	}

	record, err := s.getAny(publicID)
	if err != nil {
		return nil, err
	}
	target := nextStatus(record.Status, EventApprove)
	if target == "" {
		return nil, &InvalidTransitionError{Event: EventApprove, Status: record.Status}
	}

	now := s.now()
	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		ok, terr := tx.Payment.UpdateStatusIf(record.ID, record.Status, target, nil)
		if terr != nil {
			return terr
		}
		if !ok {
			return &InvalidTransitionError{Event: EventApprove, Status: "concurrently changed"}
		}

		activator := entitlements.NewActivator(tx.User, tx.Grant)
		newExpiry, terr := activator.Activate(ctx, record.PublicID, record.UserID, record.PlanType, record.DurationDays, now)
		if terr != nil {
			return terr
		}

		return tx.Notification.Create(&models.Notification{
			UserID:      record.UserID,
			Type:        models.NotificationPaymentApproved,
			Content:     fmt.Sprintf("Your payment for %s was approved. Your plan now runs until %s.", record.PlanID, newExpiry.Format("2006-01-02")),
			ReferenceID: record.PublicID,
		})
	})
	if err != nil {
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			// Re-read so the error reflects the status the admin lost to.
			return nil, s.staleDecisionError(publicID, EventApprove)
		}
		return nil, err
	}

	log.Infof("[Payment] Approved payment %s by admin %d", publicID, adminID)
	s.notifyByMail(record.UserID, "Payment approved",
		fmt.Sprintf("<p>Your payment for <strong>%s</strong> was approved and your plan has been extended.</p>", record.PlanID))
	return s.getAny(publicID)
}

// Reject declines an awaiting_approval payment with a mandatory reason. The
// reason is write-once; re-attempting the purchase requires a new payment.
func (s *Service) Reject(ctx context.Context, adminID uint, publicID, reason string) (*models.PaymentRecord, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, NewValidationError("reason", "a rejection reason is required")
	}
	if len(reason) > 500 {
		return nil, NewValidationError("reason", "rejection reason must be at most 500 characters")
	}

	record, err := s.getAny(publicID)
	if err != nil {
		return nil, err
	}
	target := nextStatus(record.Status, EventReject)
	if target == "" {
		return nil, &InvalidTransitionError{Event: EventReject, Status: record.Status}
	}

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		ok, terr := tx.Payment.UpdateStatusIf(record.ID, record.Status, target,
			map[string]interface{}{"rejection_reason": reason})
		if terr != nil {
			return terr
		}
		if !ok {
			return &InvalidTransitionError{Event: EventReject, Status: "concurrently changed"}
		}

		return tx.Notification.Create(&models.Notification{
			UserID:      record.UserID,
			Type:        models.NotificationPaymentRejected,
			Content:     fmt.Sprintf("Your payment for %s was rejected: %s", record.PlanID, reason),
			ReferenceID: record.PublicID,
		})
	})
	if err != nil {
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			return nil, s.staleDecisionError(publicID, EventReject)
		}
		return nil, err
	}

	log.Infof("[Payment] Rejected payment %s by admin %d: %s", publicID, adminID, reason)
	s.notifyByMail(record.UserID, "Payment rejected",
		fmt.Sprintf("<p>Your payment for <strong>%s</strong> was rejected: %s</p>", record.PlanID, reason))
	return s.getAny(publicID)
}

// SweepExpired moves pending payments past their transfer window to expired.
// Each record is closed with a compare-and-set, so concurrent sweeps and
// racing user/admin actions settle to exactly one winner per record.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	_ = ctx
	now := s.now()
	expired, err := s.repos.Payment.ListExpiredPending(now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, record := range expired {
		target := nextStatus(record.Status, EventExpire)
		if target == "" {
			continue
		}
		ok, err := s.repos.Payment.UpdateStatusIf(record.ID, record.Status, target, nil)
		if err != nil {
			return count, err
		}
		if !ok {
			continue // lost to upload, cancel or another sweep
		}
		count++

		if nerr := s.repos.Notification.Create(&models.Notification{
			UserID:      record.UserID,
			Type:        models.NotificationPaymentExpired,
			Content:     fmt.Sprintf("Your payment for %s expired before a receipt was uploaded.", record.PlanID),
			ReferenceID: record.PublicID,
		}); nerr != nil {
			log.Warnf("[Payment] Expiry notification failed for %s: %v", record.PublicID, nerr)
		}
	}

	if count > 0 {
		log.Infof("[Payment] Expiry sweep closed %d payment(s)", count)
	}
	return count, nil
}

// notifyByMail emails the payment owner about a decision. Best effort and
// outside the decision transaction; the in-app notification is authoritative.
func (s *Service) notifyByMail(userID uint, subject, body string) {
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		log.Warnf("[Payment] Mail skipped, user %d not loadable: %v", userID, err)
		return
	}
	if err := mail.SendMail(user.Email, subject, body); err != nil {
		log.Warnf("[Payment] Mail to user %d failed: %v", userID, err)
	}
}

func (s *Service) getAny(publicID string) (*models.PaymentRecord, error) {
	record, err := s.repos.Payment.GetByPublicID(publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *Service) requireAdmin(adminID uint) error {
	admin, err := s.repos.User.GetByID(adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !admin.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (s *Service) staleTransitionError(userID uint, publicID, event string) error {
	current, err := s.Get(context.Background(), userID, publicID)
	if err != nil {
		return err
	}
	return &InvalidTransitionError{Event: event, Status: current.Status}
}

func (s *Service) staleDecisionError(publicID, event string) error {
	current, err := s.getAny(publicID)
	if err != nil {
		return err
	}
	return &InvalidTransitionError{Event: event, Status: current.Status}
}

func receiptKey(publicID, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("receipts/%04d/%02d/%s%s", now.Year(), int(now.Month()), publicID, ext)
}
