package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jimdaga/unipost/internal/models"
)

// EnsureStatisticsRow creates the singleton statistics row when missing.
// Idempotent: an existing row is left untouched.
func EnsureStatisticsRow(db *gorm.DB) error {
	row := models.Statistics{ID: models.StatisticsRowID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to ensure statistics row: %w", err)
	}
	return nil
}
