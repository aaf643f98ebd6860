package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/melkbazar/MelkBazar/app/models"
	"github.com/melkbazar/MelkBazar/app/repository"
	"github.com/melkbazar/MelkBazar/internal/pkg/cache"
)

const (
	planListCacheKey = "plans:active"
	planListCacheTTL = 5 * time.Minute
)

// PlanController serves the read-only plan catalog.
type PlanController struct {
	repos *repository.Repositories
}

// NewPlanController creates a plan controller with repository dependencies
func NewPlanController(repos *repository.Repositories) *PlanController {
	return &PlanController{repos: repos}
}

// HandleListPlans returns the purchasable plans, cheapest first.
func (pc *PlanController) HandleListPlans(c *fiber.Ctx) error {
	if cached, err := cache.Get(planListCacheKey); err == nil && cached != "" {
		var plans []models.Plan
		if jerr := json.Unmarshal([]byte(cached), &plans); jerr == nil {
			return c.JSON(fiber.Map{"plans": plans})
		}
	}

	plans, err := pc.repos.Plan.ListActive()
	if err != nil {
		log.Errorf("[Plans] Failed to load catalog: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not load plans",
		})
	}

	if payload, jerr := json.Marshal(plans); jerr == nil {
		if cerr := cache.Set(planListCacheKey, string(payload), planListCacheTTL); cerr != nil {
			log.Warnf("[Plans] Cache write failed: %v", cerr)
		}
	}

	return c.JSON(fiber.Map{"plans": plans})
}

// HandleGetPlan returns a single plan by ID.
func (pc *PlanController) HandleGetPlan(c *fiber.Ctx) error {
	id := c.Params("id")

	plan, err := pc.repos.Plan.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "not_found",
				"message": "plan not found",
			})
		}
		log.Errorf("[Plans] Failed to load plan %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not load plan",
		})
	}

	return c.JSON(plan)
}
