package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/utils"
	"gorm.io/gorm"
)

// EventRepositoryImpl implements EventRepository interface
type EventRepositoryImpl struct {
	*BaseRepository[models.Event, models.EventFilter]
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &EventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Event, models.EventFilter](db),
	}
}

// ByUUID retrieves an event by UUID. Malformed UUIDs are reported as not found.
func (r *EventRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Event, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, nil
	}
	return r.first(ctx, models.EventFilter{UUID: &parsed})
}

// ByCode retrieves an event by its short code
func (r *EventRepositoryImpl) ByCode(ctx context.Context, code string) (*models.Event, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return r.first(ctx, models.EventFilter{Code: &code})
}

// ListActive returns every active event ordered by ID
func (r *EventRepositoryImpl) ListActive(ctx context.Context) ([]*models.Event, error) {
	return r.ByFilter(ctx, models.EventFilter{IsActive: utils.ToPtr(true)}, "id ASC", 0, 0)
}

func (r *EventRepositoryImpl) first(ctx context.Context, filter models.EventFilter) (*models.Event, error) {
	db := r.getDB(ctx)
	var row models.Event
	if err := r.applyFilter(db.Model(&models.Event{}), filter).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *EventRepositoryImpl) applyFilter(query *gorm.DB, filter models.EventFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Code != nil {
		query = query.Where("code = ?", *filter.Code)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves events based on filter criteria
func (r *EventRepositoryImpl) ByFilter(ctx context.Context, filter models.EventFilter, orderBy string, limit, offset int) ([]*models.Event, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Event{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var rows []*models.Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of events matching filter
func (r *EventRepositoryImpl) Count(ctx context.Context, filter models.EventFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Event{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any event matches the filter
func (r *EventRepositoryImpl) Exists(ctx context.Context, filter models.EventFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
