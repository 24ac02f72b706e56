package businessflow

import (
	"context"
	"log"
	"strings"

	"github.com/amirphl/conference-registry/app/dto"
	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/repository"
	"github.com/amirphl/conference-registry/sequence"
)

// AbstractFlow handles abstract submissions
type AbstractFlow interface {
	Submit(ctx context.Context, req *dto.SubmitAbstractRequest, metadata *ClientMetadata) (*dto.AbstractResponse, error)
}

// AbstractFlowImpl implements AbstractFlow
type AbstractFlowImpl struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	abstractRepo     repository.AbstractRepository
	allocator        IDAllocator
}

func NewAbstractFlow(eventRepo repository.EventRepository, registrationRepo repository.RegistrationRepository, abstractRepo repository.AbstractRepository, allocator IDAllocator) AbstractFlow {
	return &AbstractFlowImpl{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		abstractRepo:     abstractRepo,
		allocator:        allocator,
	}
}

func (f *AbstractFlowImpl) Submit(ctx context.Context, req *dto.SubmitAbstractRequest, metadata *ClientMetadata) (*dto.AbstractResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Abstract title is required", ErrAbstractTitleRequired)
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Abstract body is required", ErrAbstractBodyRequired)
	}

	event, err := activeEvent(ctx, f.eventRepo, req.EventUUID)
	if err != nil {
		return nil, err
	}

	abs := &models.Abstract{
		EventID: event.ID,
		Title:   title,
		Body:    body,
		Status:  models.AbstractStatusSubmitted,
	}

	// Resolve the link before allocating so a bad reference does not consume an identifier
	var linkedPublicID *string
	if req.RegistrationPublicID != nil && strings.TrimSpace(*req.RegistrationPublicID) != "" {
		publicID := strings.TrimSpace(*req.RegistrationPublicID)
		reg, err := f.registrationRepo.ByPublicID(ctx, event.ID, publicID)
		if err != nil {
			return nil, NewBusinessError("REGISTRATION_LOOKUP_FAILED", "Failed to load registration", err)
		}
		if reg == nil {
			return nil, NewBusinessError("REGISTRATION_NOT_FOUND", "Linked registration not found", ErrRegistrationNotFound)
		}
		abs.RegistrationID = &reg.ID
		linkedPublicID = &reg.PublicID
	}

	eventID := event.UUID.String()
	for attempt := 1; ; attempt++ {
		publicID, err := f.allocator.AllocateNext(ctx, eventID, sequence.ResourceAbstract)
		if err != nil {
			log.Printf("abstract submission for event %s aborted, no identifier allocated: %v", eventID, err)
			return nil, allocationError(err)
		}

		abs.ID = 0
		abs.PublicID = publicID
		err = f.abstractRepo.Save(ctx, abs)
		if err == nil {
			break
		}
		if !repository.IsUniqueViolation(err) || attempt == maxPublicIDAttempts {
			return nil, NewBusinessError("ABSTRACT_CREATE_FAILED", "Failed to save abstract", err)
		}
		log.Printf("public ID %s already taken in event %s, allocating another (attempt %d)", publicID, eventID, attempt)
	}

	if metadata != nil {
		log.Printf("abstract %s submitted for event %s, request %s", abs.PublicID, eventID, metadata.RequestID)
	}

	resp := ToAbstractResponse(abs, eventID, linkedPublicID)
	return &resp, nil
}
