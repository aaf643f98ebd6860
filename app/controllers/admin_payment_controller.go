package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/melkbazar/MelkBazar/app/models"
	"github.com/melkbazar/MelkBazar/app/repository"
	"github.com/melkbazar/MelkBazar/internal/pkg/cache"
	"github.com/melkbazar/MelkBazar/internal/pkg/evidence"
	"github.com/melkbazar/MelkBazar/internal/pkg/payment"
	"github.com/melkbazar/MelkBazar/internal/pkg/usercontext"
)

const (
	adminStatsCacheKey = "admin:payment_stats"
	adminStatsCacheTTL = 30 * time.Second
)

// AdminPaymentController is the review surface: listing claims awaiting a
// decision, inspecting the evidence and adjudicating. Decisions go through
// the lifecycle service; this controller never writes a status itself.
type AdminPaymentController struct {
	service *payment.Service
	repos   *repository.Repositories
	storage evidence.Storage
}

// NewAdminPaymentController creates an admin payment controller.
func NewAdminPaymentController(service *payment.Service, repos *repository.Repositories, storage evidence.Storage) *AdminPaymentController {
	return &AdminPaymentController{service: service, repos: repos, storage: storage}
}

// HandleListPayments lists payments for review, default awaiting_approval.
func (ac *AdminPaymentController) HandleListPayments(c *fiber.Ctx) error {
	status := c.Query("status", models.PaymentStatusAwaitingApproval)
	if status != "" && !models.IsValidPaymentStatus(status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "unknown status filter",
		})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage := 20

	records, total, err := ac.repos.Payment.ListByStatus(status, (page-1)*perPage, perPage)
	if err != nil {
		log.Errorf("[Admin] Payment list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not load payments",
		})
	}

	return c.JSON(fiber.Map{
		"payments": records,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

type ownerSummary struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Category      string     `json:"category"`
	PlanType      string     `json:"plan_type"`
	PlanExpiresAt *time.Time `json:"plan_expires_at"`
}

// HandleGetPaymentDetail returns a payment with its owner summary and
// receipt URLs for review.
func (ac *AdminPaymentController) HandleGetPaymentDetail(c *fiber.Ctx) error {
	record, err := ac.repos.Payment.GetByPublicID(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "not_found",
				"message": "payment not found",
			})
		}
		log.Errorf("[Admin] Payment detail failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not load payment",
		})
	}

	owner, err := ac.repos.User.GetByID(record.UserID)
	if err != nil {
		log.Errorf("[Admin] Owner lookup failed for payment %s: %v", record.PublicID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not load payment owner",
		})
	}

	resp := fiber.Map{
		"payment": record,
		"owner": ownerSummary{
			ID:            owner.ID,
			Name:          owner.Name,
			Email:         owner.Email,
			Category:      owner.Category,
			PlanType:      owner.PlanType,
			PlanExpiresAt: owner.PlanExpiresAt,
		},
	}
	if record.ReceiptKey != "" {
		resp["receipt_url"] = ac.storage.URL(record.ReceiptKey)
	}
	if record.ReceiptThumbKey != "" {
		resp["receipt_thumb_url"] = ac.storage.URL(record.ReceiptThumbKey)
	}

	return c.JSON(resp)
}

type decideRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// HandleDecide approves or rejects an awaiting_approval payment.
func (ac *AdminPaymentController) HandleDecide(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "invalid request body",
		})
	}

	var (
		record interface{}
		err    error
	)
	if req.Approved {
		record, err = ac.service.Approve(c.UserContext(), userCtx.UserID, c.Params("id"))
	} else {
		record, err = ac.service.Reject(c.UserContext(), userCtx.UserID, c.Params("id"), req.Reason)
	}
	if err != nil {
		return writePaymentError(c, err)
	}

	// A decision changes the aggregate numbers immediately.
	if cerr := cache.Delete(adminStatsCacheKey); cerr != nil {
		log.Warnf("[Admin] Stats cache invalidation failed: %v", cerr)
	}

	return c.JSON(fiber.Map{"payment": record})
}

type paymentStats struct {
	AwaitingApproval int64  `json:"awaiting_approval"`
	Pending          int64  `json:"pending"`
	Approved         int64  `json:"approved"`
	Rejected         int64  `json:"rejected"`
	Expired          int64  `json:"expired"`
	Cancelled        int64  `json:"cancelled"`
	RevenueTotal     string `json:"revenue_total"`
	RevenueLast30d   string `json:"revenue_last_30d"`
}

// HandleStats returns aggregate counts and revenue. The numbers are always
// derived from the payment store, cached briefly, never persisted separately.
func (ac *AdminPaymentController) HandleStats(c *fiber.Ctx) error {
	if cached, err := cache.Get(adminStatsCacheKey); err == nil && cached != "" {
		var stats paymentStats
		if jerr := json.Unmarshal([]byte(cached), &stats); jerr == nil {
			return c.JSON(stats)
		}
	}

	var stats paymentStats
	counts := map[string]*int64{
		models.PaymentStatusAwaitingApproval: &stats.AwaitingApproval,
		models.PaymentStatusPending:          &stats.Pending,
		models.PaymentStatusApproved:         &stats.Approved,
		models.PaymentStatusRejected:         &stats.Rejected,
		models.PaymentStatusExpired:          &stats.Expired,
		models.PaymentStatusCancelled:        &stats.Cancelled,
	}
	for status, target := range counts {
		cnt, err := ac.repos.Payment.CountByStatus(status)
		if err != nil {
			log.Errorf("[Admin] Payment stats failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_error",
				"message": "could not compute stats",
			})
		}
		*target = cnt
	}

	total, err := ac.repos.Payment.RevenueSince(nil)
	if err != nil {
		log.Errorf("[Admin] Revenue total failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not compute stats",
		})
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	last30, err := ac.repos.Payment.RevenueSince(&cutoff)
	if err != nil {
		log.Errorf("[Admin] Revenue period failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not compute stats",
		})
	}
	stats.RevenueTotal = total.StringFixed(2)
	stats.RevenueLast30d = last30.StringFixed(2)

	if payload, jerr := json.Marshal(stats); jerr == nil {
		if cerr := cache.Set(adminStatsCacheKey, string(payload), adminStatsCacheTTL); cerr != nil {
			log.Warnf("[Admin] Stats cache write failed: %v", cerr)
		}
	}

	return c.JSON(stats)
}
