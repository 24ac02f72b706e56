package repository

import (
	"context"
	"errors"

	"github.com/amirphl/conference-registry/models"
	"gorm.io/gorm"
)

// AbstractRepositoryImpl implements AbstractRepository interface
type AbstractRepositoryImpl struct {
	*BaseRepository[models.Abstract, models.AbstractFilter]
}

// NewAbstractRepository creates a new abstract repository
func NewAbstractRepository(db *gorm.DB) AbstractRepository {
	return &AbstractRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Abstract, models.AbstractFilter](db),
	}
}

// ByPublicID retrieves an abstract by its public identifier within an event
func (r *AbstractRepositoryImpl) ByPublicID(ctx context.Context, eventID uint, publicID string) (*models.Abstract, error) {
	db := r.getDB(ctx)
	var row models.Abstract
	err := db.Where("event_id = ? AND public_id = ?", eventID, publicID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *AbstractRepositoryImpl) applyFilter(query *gorm.DB, filter models.AbstractFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.EventID != nil {
		query = query.Where("event_id = ?", *filter.EventID)
	}
	if filter.RegistrationID != nil {
		query = query.Where("registration_id = ?", *filter.RegistrationID)
	}
	if filter.PublicID != nil {
		query = query.Where("public_id = ?", *filter.PublicID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

func (r *AbstractRepositoryImpl) ByFilter(ctx context.Context, filter models.AbstractFilter, orderBy string, limit, offset int) ([]*models.Abstract, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Abstract{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var rows []*models.Abstract
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AbstractRepositoryImpl) Count(ctx context.Context, filter models.AbstractFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Abstract{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AbstractRepositoryImpl) Exists(ctx context.Context, filter models.AbstractFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
