// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/sequence"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// EventRepository defines operations for events
type EventRepository interface {
	Repository[models.Event, models.EventFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Event, error)
	ByCode(ctx context.Context, code string) (*models.Event, error)
	ListActive(ctx context.Context) ([]*models.Event, error)
}

// RegistrationRepository defines operations for registrations
type RegistrationRepository interface {
	Repository[models.Registration, models.RegistrationFilter]
	ByPublicID(ctx context.Context, eventID uint, publicID string) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID uint, limit, offset int) ([]*models.Registration, error)
	ExistingPublicIDs(ctx context.Context, eventID uint, publicIDs []string) ([]string, error)
	PublicIDsWithNumbers(ctx context.Context, eventID uint, prefix string, numbers []int64) ([]string, error)
}

// AbstractRepository defines operations for abstracts
type AbstractRepository interface {
	Repository[models.Abstract, models.AbstractFilter]
	ByPublicID(ctx context.Context, eventID uint, publicID string) (*models.Abstract, error)
}

// SequenceCounterRepository is the durable counter store for identifier allocation
type SequenceCounterRepository interface {
	sequence.Store
	ByNamespace(ctx context.Context, namespace string) (*models.SequenceCounter, error)
}
