package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/internal/storage"
)

// Repository implements storage.AuditRepository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&models.DeliveryRecord{})
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save inserts one row per attempt of the cycle in a single transaction
func (r *Repository) Save(ctx context.Context, rec models.HistoryRecord) error {
	rows := models.DeliveryRecords(rec)
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListDeliveries returns the newest deliveries first
func (r *Repository) ListDeliveries(ctx context.Context, filter storage.DeliveryFilter) ([]*models.DeliveryRecord, error) {
	var rows []*models.DeliveryRecord
	query := r.db.WithContext(ctx).Model(&models.DeliveryRecord{})

	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Outcome != nil {
		query = query.Where("outcome = ?", *filter.Outcome)
	}

	query = query.Order("cycle_at DESC").Order("id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByOutcome tallies all mirrored deliveries
func (r *Repository) CountByOutcome(ctx context.Context) (map[models.Outcome]int64, error) {
	var results []struct {
		Outcome models.Outcome
		Count   int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.Outcome]int64, len(results))
	for _, res := range results {
		counts[res.Outcome] = res.Count
	}
	return counts, nil
}

var _ storage.AuditRepository = (*Repository)(nil)
