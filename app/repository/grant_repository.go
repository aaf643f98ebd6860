package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/melkbazar/MelkBazar/app/models"
)

type gormGrantRepository struct {
	db *gorm.DB
}

// NewGrantRepository creates a grant repository backed by GORM.
func NewGrantRepository(db *gorm.DB) GrantRepository {
	return &gormGrantRepository{db: db}
}

func (r *gormGrantRepository) CreateIfNotExists(grant *models.EntitlementGrant) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "grant_key"}},
		DoNothing: true,
	}).Create(grant)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
