package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

// EventRepository handles database operations for timeline events
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository instance
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record appends an event to the timeline
func (r *EventRepository) Record(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByCluster retrieves the timeline of a cluster, newest first
func (r *EventRepository) ListByCluster(ctx context.Context, clusterID uint, opts *models.ListOptions) ([]models.Event, error) {
	var events []models.Event
	query := r.db.WithContext(ctx).Where(&models.Event{ClusterID: clusterID})
	if opts != nil {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	err := query.Order("created_at DESC").Find(&events).Error
	return events, err
}
