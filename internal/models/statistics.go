package models

import "time"

// StatisticsRowID is the id of the single statistics row.
const StatisticsRowID = 1

// Statistics holds the global post counters.
type Statistics struct {
	ID             uint      `gorm:"primaryKey"`
	GeneratedCount int64     `gorm:"column:generated_count;not null;default:0"`
	ApprovedCount  int64     `gorm:"column:approved_count;not null;default:0"`
	DeniedCount    int64     `gorm:"column:denied_count;not null;default:0"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName pins the table created by the migrations.
func (Statistics) TableName() string {
	return "statistics"
}
