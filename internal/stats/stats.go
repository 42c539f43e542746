// Package stats keeps the generated, approved and denied post counters.
package stats

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/jimdaga/unipost/internal/models"
)

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Generated    int64   `json:"generated"`
	Approved     int64   `json:"approved"`
	Denied       int64   `json:"denied"`
	ApprovalRate float64 `json:"approval_rate"`
}

// NewSnapshot derives the approval rate: approved over reviewed posts.
func NewSnapshot(generated, approved, denied int64) Snapshot {
	s := Snapshot{Generated: generated, Approved: approved, Denied: denied}
	if reviewed := approved + denied; reviewed > 0 {
		s.ApprovalRate = float64(approved) / float64(reviewed)
	}
	return s
}

// Recorder increments and reads the counters.
type Recorder interface {
	RecordGenerated(ctx context.Context) error
	RecordApproved(ctx context.Context) error
	RecordDenied(ctx context.Context) error
	Snapshot(ctx context.Context) (Snapshot, error)
}

// GormRecorder stores counters in the statistics table.
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder creates a recorder backed by db.
func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func (r *GormRecorder) RecordGenerated(ctx context.Context) error {
	return r.increment(ctx, "generated_count")
}

func (r *GormRecorder) RecordApproved(ctx context.Context) error {
	return r.increment(ctx, "approved_count")
}

func (r *GormRecorder) RecordDenied(ctx context.Context) error {
	return r.increment(ctx, "denied_count")
}

func (r *GormRecorder) increment(ctx context.Context, column string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Statistics{}).
		Where("id = ?", models.StatisticsRowID).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", 1),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to increment %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("statistics row %d is missing", models.StatisticsRowID)
	}
	return nil
}

func (r *GormRecorder) Snapshot(ctx context.Context) (Snapshot, error) {
	var row models.Statistics
	if err := r.db.WithContext(ctx).First(&row, models.StatisticsRowID).Error; err != nil {
		return Snapshot{}, fmt.Errorf("failed to read statistics: %w", err)
	}
	return NewSnapshot(row.GeneratedCount, row.ApprovedCount, row.DeniedCount), nil
}

// MemoryRecorder keeps counters in process memory. Used when no database
// is configured; counters reset on restart.
type MemoryRecorder struct {
	mu                          sync.Mutex
	generated, approved, denied int64
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) RecordGenerated(ctx context.Context) error {
	m.mu.Lock()
	m.generated++
	m.mu.Unlock()
	return nil
}

func (m *MemoryRecorder) RecordApproved(ctx context.Context) error {
	m.mu.Lock()
	m.approved++
	m.mu.Unlock()
	return nil
}

func (m *MemoryRecorder) RecordDenied(ctx context.Context) error {
	m.mu.Lock()
	m.denied++
	m.mu.Unlock()
	return nil
}

func (m *MemoryRecorder) Snapshot(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return NewSnapshot(m.generated, m.approved, m.denied), nil
}
