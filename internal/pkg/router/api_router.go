package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/melkbazar/MelkBazar/app/controllers"
	"github.com/melkbazar/MelkBazar/app/repository"
	"github.com/melkbazar/MelkBazar/internal/pkg/database"
	"github.com/melkbazar/MelkBazar/internal/pkg/evidence"
	"github.com/melkbazar/MelkBazar/internal/pkg/middleware"
	"github.com/melkbazar/MelkBazar/internal/pkg/payment"
	"github.com/melkbazar/MelkBazar/internal/pkg/sweeper"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	repos := repository.InitGlobalFactory(database.GetDB()).GetRepositories()

	storageCfg, err := evidence.LoadConfig()
	if err != nil {
		log.Fatalf("Evidence storage misconfigured: %v", err)
	}
	storage, err := evidence.NewStorage(storageCfg)
	if err != nil {
		log.Fatalf("Evidence storage init failed: %v", err)
	}

	service := payment.NewService(repos, storage, payment.Window())
	sweeper.Init(service)

	planController := controllers.NewPlanController(repos)
	paymentController := controllers.NewPaymentController(service)
	notificationController := controllers.NewNotificationController(repos)
	adminController := controllers.NewAdminPaymentController(service, repos, storage)

	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "MelkBazar API",
		})
	})

	v1 := api.Group("/v1")

	// Plan catalog (public)
	v1.Get("/plans", planController.HandleListPlans)
	v1.Get("/plans/:id", planController.HandleGetPlan)

	// Client payment workflow
	payments := v1.Group("/payments", middleware.RequireAPISessionAuth)
	payments.Post("/", paymentController.HandleCreatePayment)
	payments.Get("/", paymentController.HandleListPayments)
	payments.Get("/:id", paymentController.HandleGetPayment)
	payments.Post("/:id/receipt", paymentController.HandleUploadReceipt)
	payments.Post("/:id/cancel", paymentController.HandleCancelPayment)

	// Notifications
	notifications := v1.Group("/notifications", middleware.RequireAPISessionAuth)
	notifications.Get("/", notificationController.HandleListNotifications)
	notifications.Post("/:id/read", notificationController.HandleMarkNotificationRead)

	// Admin review surface
	admin := v1.Group("/admin", middleware.RequireAPIAdmin)
	admin.Get("/payments", adminController.HandleListPayments)
	admin.Get("/payments/stats", adminController.HandleStats)
	admin.Get("/payments/:id", adminController.HandleGetPaymentDetail)
	admin.Post("/payments/:id/decision", adminController.HandleDecide)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
