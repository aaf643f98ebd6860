package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	CategoryIndividual = "individual"
	CategoryAgent      = "agent"
	CategoryAgency     = "agency"
)

// Plan is a purchasable subscription plan. Rows are immutable once a
// PaymentRecord references them; pricing changes are made by deactivating a
// plan and seeding a replacement, never by editing amounts in place.
type Plan struct {
	ID                  string          `gorm:"primaryKey;type:varchar(64)" json:"id" validate:"required,max=64"`
	DisplayName         string          `gorm:"type:varchar(150);not null" json:"display_name" validate:"required,max=150"`
	Price               decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	DurationDays        int             `gorm:"not null" json:"duration_days" validate:"gt=0"`
	Category            string          `gorm:"type:varchar(20);not null;index" json:"category" validate:"oneof=individual agent agency"`
	MaxActiveListings   int             `gorm:"not null" json:"max_active_listings" validate:"gt=0"`
	MaxPhotosPerListing int             `gorm:"not null" json:"max_photos_per_listing" validate:"gt=0"`
	IsActive            bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Plan) Validate() error {
	v := validator.New()
	if err := v.Struct(p); err != nil {
		return err
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("plan %s: price must be positive, got %s", p.ID, p.Price)
	}
	return nil
}

// IsValidCategory reports whether c belongs to the closed set of account
// categories a plan may be sold to.
func IsValidCategory(c string) bool {
	switch c {
	case CategoryIndividual, CategoryAgent, CategoryAgency:
		return true
	default:
		return false
	}
}

// DefaultPlans returns the seed catalog. Used by database setup and the
// migration tool; FirstOrCreate semantics keep existing rows untouched.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:                  "individual_monthly",
			DisplayName:         "Individual Monthly",
			Price:               decimal.RequireFromString("29.90"),
			DurationDays:        30,
			Category:            CategoryIndividual,
			MaxActiveListings:   3,
			MaxPhotosPerListing: 10,
			IsActive:            true,
		},
		{
			ID:                  "agent_quarterly",
			DisplayName:         "Agent Quarterly",
			Price:               decimal.RequireFromString("197.90"),
			DurationDays:        90,
			Category:            CategoryAgent,
			MaxActiveListings:   30,
			MaxPhotosPerListing: 20,
			IsActive:            true,
		},
		{
			ID:                  "agency_yearly",
			DisplayName:         "Agency Yearly",
			Price:               decimal.RequireFromString("1490.00"),
			DurationDays:        365,
			Category:            CategoryAgency,
			MaxActiveListings:   200,
			MaxPhotosPerListing: 30,
			IsActive:            true,
		},
	}
}
