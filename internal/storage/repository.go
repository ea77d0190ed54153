package storage

import (
	"context"

	"github.com/social-autoposter/internal/models"
)

// AuditRepository mirrors delivery history into a queryable store
type AuditRepository interface {
	// Save stores every attempt of one cycle
	Save(ctx context.Context, rec models.HistoryRecord) error
	ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]*models.DeliveryRecord, error)
	CountByOutcome(ctx context.Context) (map[models.Outcome]int64, error)

	// Maintenance
	Close() error
	Migrate() error
}

// DeliveryFilter defines filtering options for deliveries
type DeliveryFilter struct {
	AccountID *int
	Outcome   *models.Outcome
	Limit     int
	Offset    int
}

// DefaultDeliveryFilter returns a filter with sensible defaults
func DefaultDeliveryFilter() DeliveryFilter {
	return DeliveryFilter{Limit: 50}
}
