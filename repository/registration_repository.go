package repository

import (
	"context"
	"errors"

	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/sequence"
	"gorm.io/gorm"
)

// RegistrationRepositoryImpl implements RegistrationRepository interface
type RegistrationRepositoryImpl struct {
	*BaseRepository[models.Registration, models.RegistrationFilter]
}

// NewRegistrationRepository creates a new registration repository
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &RegistrationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Registration, models.RegistrationFilter](db),
	}
}

// ByPublicID retrieves a registration by its public identifier within an event
func (r *RegistrationRepositoryImpl) ByPublicID(ctx context.Context, eventID uint, publicID string) (*models.Registration, error) {
	db := r.getDB(ctx)
	var row models.Registration
	err := db.Where("event_id = ? AND public_id = ?", eventID, publicID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByEvent lists registrations of an event ordered by public identifier
func (r *RegistrationRepositoryImpl) ListByEvent(ctx context.Context, eventID uint, limit, offset int) ([]*models.Registration, error) {
	// Lexical order breaks once identifiers outgrow the pad width, so order by length first.
	return r.ByFilter(ctx, models.RegistrationFilter{EventID: &eventID}, "LENGTH(public_id) ASC, public_id ASC", limit, offset)
}

// ExistingPublicIDs returns the subset of publicIDs already taken in the event
func (r *RegistrationRepositoryImpl) ExistingPublicIDs(ctx context.Context, eventID uint, publicIDs []string) ([]string, error) {
	if len(publicIDs) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)
	var taken []string
	err := db.Model(&models.Registration{}).
		Where("event_id = ? AND public_id IN ?", eventID, publicIDs).
		Pluck("public_id", &taken).Error
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// PublicIDsWithNumbers returns the event's public IDs under prefix whose numeric suffix is one
// of numbers, whatever their zero padding ("REG-5" and "REG-0005" carry the same number)
func (r *RegistrationRepositoryImpl) PublicIDsWithNumbers(ctx context.Context, eventID uint, prefix string, numbers []int64) ([]string, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	pattern := sequence.SuffixPattern(prefix)
	db := r.getDB(ctx)
	var taken []string
	err := db.Model(&models.Registration{}).
		Where("event_id = ? AND public_id ~ ?", eventID, pattern).
		Where("CAST(SUBSTRING(public_id FROM ?) AS BIGINT) IN ?", pattern, numbers).
		Pluck("public_id", &taken).Error
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *RegistrationRepositoryImpl) applyFilter(query *gorm.DB, filter models.RegistrationFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.EventID != nil {
		query = query.Where("event_id = ?", *filter.EventID)
	}
	if filter.PublicID != nil {
		query = query.Where("public_id = ?", *filter.PublicID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	return query
}

// ByFilter retrieves registrations based on filter criteria
func (r *RegistrationRepositoryImpl) ByFilter(ctx context.Context, filter models.RegistrationFilter, orderBy string, limit, offset int) ([]*models.Registration, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Registration{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var rows []*models.Registration
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of registrations matching filter
func (r *RegistrationRepositoryImpl) Count(ctx context.Context, filter models.RegistrationFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Registration{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any registration matches the filter
func (r *RegistrationRepositoryImpl) Exists(ctx context.Context, filter models.RegistrationFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
