package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/melkbazar/MelkBazar/app/repository"
	"github.com/melkbazar/MelkBazar/internal/pkg/usercontext"
)

// NotificationController serves the terminal-state notices for the payment
// workflow (approved / rejected / expired).
type NotificationController struct {
	repos *repository.Repositories
}

// NewNotificationController creates a notification controller with repository dependencies
func NewNotificationController(repos *repository.Repositories) *NotificationController {
	return &NotificationController{repos: repos}
}

// HandleListNotifications returns the caller's notifications; ?unread=1
// narrows to unread ones.
func (nc *NotificationController) HandleListNotifications(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	unreadOnly := c.Query("unread") == "1"

	notes, err := nc.repos.Notification.ListByUser(userCtx.UserID, unreadOnly, 50)
	if err != nil {
		log.Errorf("[Notifications] List failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not load notifications",
		})
	}

	unread, err := nc.repos.Notification.CountUnread(userCtx.UserID)
	if err != nil {
		log.Warnf("[Notifications] Unread count failed for user %d: %v", userCtx.UserID, err)
	}

	return c.JSON(fiber.Map{"notifications": notes, "unread_count": unread})
}

// HandleMarkNotificationRead marks one of the caller's notifications as read.
func (nc *NotificationController) HandleMarkNotificationRead(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "invalid notification id",
		})
	}

	ok, err := nc.repos.Notification.MarkRead(uint(id), userCtx.UserID)
	if err != nil {
		log.Errorf("[Notifications] Mark read failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not update notification",
		})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "notification not found",
		})
	}

	return c.JSON(fiber.Map{"ok": true})
}
