package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/melkbazar/MelkBazar/internal/pkg/payment"
)

// writePaymentError maps lifecycle errors onto the response contract:
// 400 validation, 403 forbidden, 404 not found, 409 invalid transition or
// duplicate claim, 422 expired window, 503 storage failure.
func writePaymentError(c *fiber.Ctx, err error) error {
	var (
		validation *payment.ValidationError
		transition *payment.InvalidTransitionError
		duplicate  *payment.DuplicateActiveClaimError
	)

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": validation.Error(),
		})
	case errors.As(err, &duplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":      "duplicate_active_claim",
			"message":    duplicate.Error(),
			"payment_id": duplicate.ExistingID,
		})
	case errors.As(err, &transition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "invalid_transition",
			"message": transition.Error(),
			"status":  transition.Status,
		})
	case errors.Is(err, payment.ErrWindowExpired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "window_expired",
			"message": "the transfer window for this payment has expired",
		})
	case errors.Is(err, payment.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "administrator privilege required",
		})
	case errors.Is(err, payment.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "the requested resource is not available",
		})
	case errors.Is(err, payment.ErrStorageFailure):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "storage_failure",
			"message": "receipt storage is temporarily unavailable, please retry",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "unexpected error",
		})
	}
}
