package controllers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/melkbazar/MelkBazar/app/models"
	"github.com/melkbazar/MelkBazar/internal/pkg/evidence"
	"github.com/melkbazar/MelkBazar/internal/pkg/payment"
	"github.com/melkbazar/MelkBazar/internal/pkg/usercontext"
)

// PaymentController drives the client-facing payment workflow: confirm plan,
// create the claim, show transfer instructions, take the receipt upload and
// answer the current-state query the client issues on page mount/resume.
type PaymentController struct {
	service *payment.Service
}

// NewPaymentController creates a payment controller around the lifecycle service.
func NewPaymentController(service *payment.Service) *PaymentController {
	return &PaymentController{service: service}
}

type createPaymentRequest struct {
	PlanID string `json:"plan_id"`
}

// HandleCreatePayment opens a payment claim for the chosen plan.
func (pc *PaymentController) HandleCreatePayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil || req.PlanID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "plan_id is required",
		})
	}

	record, err := pc.service.Create(c.UserContext(), userCtx.UserID, req.PlanID)
	if err != nil {
		return writePaymentError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment":      record,
		"instructions": payment.LoadInstructions(),
	})
}

// HandleListPayments returns the caller's payments, newest first.
func (pc *PaymentController) HandleListPayments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	records, err := pc.service.ListForUser(c.UserContext(), userCtx.UserID)
	if err != nil {
		log.Errorf("[Payments] List failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not load payments",
		})
	}

	return c.JSON(fiber.Map{"payments": records})
}

// HandleGetPayment is the current-state query. A client returning mid-flow
// resumes from the reported status; pending payments carry the transfer
// instructions again so the page can re-render them.
func (pc *PaymentController) HandleGetPayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	record, err := pc.service.Get(c.UserContext(), userCtx.UserID, c.Params("id"))
	if err != nil {
		return writePaymentError(c, err)
	}

	resp := fiber.Map{"payment": record}
	if record.Status == models.PaymentStatusPending {
		resp["instructions"] = payment.LoadInstructions()
	}
	return c.JSON(resp)
}

// HandleUploadReceipt accepts the transfer receipt for a pending payment.
func (pc *PaymentController) HandleUploadReceipt(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "a receipt file is required (multipart field 'receipt')",
		})
	}
	if fileHeader.Size > evidence.MaxReceiptSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "receipt exceeds the 10 MB limit",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "could not read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, evidence.MaxReceiptSize+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "could not read uploaded file",
		})
	}

	record, err := pc.service.UploadReceipt(c.UserContext(), userCtx.UserID, c.Params("id"), fileHeader.Filename, data)
	if err != nil {
		return writePaymentError(c, err)
	}

	return c.JSON(fiber.Map{"payment": record})
}

// HandleCancelPayment closes a pending payment at the owner's request.
func (pc *PaymentController) HandleCancelPayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	record, err := pc.service.Cancel(c.UserContext(), userCtx.UserID, c.Params("id"))
	if err != nil {
		return writePaymentError(c, err)
	}

	return c.JSON(fiber.Map{"payment": record})
}
