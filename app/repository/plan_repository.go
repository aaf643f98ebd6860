package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/melkbazar/MelkBazar/app/models"
)

type gormPlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a plan repository backed by GORM.
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &gormPlanRepository{db: db}
}

func (r *gormPlanRepository) GetByID(id string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&plan).Error
	if err != nil {
		return nil, err
	}
	if !models.IsValidCategory(plan.Category) {
		// A row outside the closed category set is corrupt catalog data, not
		// a recoverable lookup failure.
		return nil, fmt.Errorf("plan %s has unrecognized category %q", plan.ID, plan.Category)
	}
	return &plan, nil
}

func (r *gormPlanRepository) ListActive() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Where("is_active = ?", true).Order("price ASC").Find(&plans).Error
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if !models.IsValidCategory(p.Category) {
			return nil, fmt.Errorf("plan %s has unrecognized category %q", p.ID, p.Category)
		}
	}
	return plans, nil
}

func (r *gormPlanRepository) Count() (int64, error) {
	var cnt int64
	err := r.db.Model(&models.Plan{}).Count(&cnt).Error
	return cnt, err
}
