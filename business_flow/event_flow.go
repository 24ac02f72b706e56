package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/amirphl/conference-registry/app/dto"
	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/repository"
	"github.com/amirphl/conference-registry/sequence"
	"github.com/amirphl/conference-registry/utils"
)

// EventFlow defines administrative operations on events
type EventFlow interface {
	CreateEvent(ctx context.Context, req *dto.CreateEventRequest, metadata *ClientMetadata) (*dto.EventResponse, error)
	GetEvent(ctx context.Context, eventUUID string) (*dto.EventResponse, error)
}

// EventFlowImpl implements EventFlow
type EventFlowImpl struct {
	eventRepo       repository.EventRepository
	defaultPadWidth int
}

func NewEventFlow(eventRepo repository.EventRepository, defaultPadWidth int) EventFlow {
	if defaultPadWidth <= 0 {
		defaultPadWidth = sequence.DefaultPadWidth
	}
	return &EventFlowImpl{eventRepo: eventRepo, defaultPadWidth: defaultPadWidth}
}

func (f *EventFlowImpl) CreateEvent(ctx context.Context, req *dto.CreateEventRequest, metadata *ClientMetadata) (*dto.EventResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	event := &models.Event{
		Code:                    code,
		Name:                    strings.TrimSpace(req.Name),
		RegistrationPrefix:      strings.TrimSpace(req.RegistrationPrefix),
		RegistrationStartNumber: req.RegistrationStartNumber,
		AbstractStartNumber:     req.AbstractStartNumber,
		IDPadWidth:              req.IDPadWidth,
		IsActive:                utils.ToPtr(true),
	}
	if event.RegistrationPrefix == "" {
		event.RegistrationPrefix = "REG"
	}
	if event.RegistrationStartNumber == 0 {
		event.RegistrationStartNumber = 1
	}
	if event.AbstractStartNumber == 0 {
		event.AbstractStartNumber = 1
	}
	if event.IDPadWidth == 0 {
		event.IDPadWidth = f.defaultPadWidth
	}
	if req.AbstractPrefix != nil && strings.TrimSpace(*req.AbstractPrefix) != "" {
		event.AbstractPrefix = utils.ToPtr(strings.TrimSpace(*req.AbstractPrefix))
	}

	if err := validateEventIDSettings(event); err != nil {
		return nil, err
	}

	existing, err := f.eventRepo.ByCode(ctx, code)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to check event code", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EVENT_CODE_EXISTS", "An event with this code already exists", ErrEventCodeExists)
	}

	if err := f.eventRepo.Save(ctx, event); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, NewBusinessError("EVENT_CODE_EXISTS", "An event with this code already exists", ErrEventCodeExists)
		}
		return nil, NewBusinessError("EVENT_CREATE_FAILED", "Failed to create event", err)
	}

	requestID := ""
	if metadata != nil {
		requestID = metadata.RequestID
	}
	log.Printf("event %s (%s) created, registration prefix %s, abstract prefix %s, request %s",
		event.Code, event.UUID, event.RegistrationPrefix, event.EffectiveAbstractPrefix(), requestID)

	resp := ToEventResponse(event)
	return &resp, nil
}

func (f *EventFlowImpl) GetEvent(ctx context.Context, eventUUID string) (*dto.EventResponse, error) {
	event, err := f.eventRepo.ByUUID(ctx, eventUUID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to load event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Event not found", ErrEventNotFound)
	}
	resp := ToEventResponse(event)
	return &resp, nil
}

// validateEventIDSettings rejects settings the allocator would refuse later, so a bad
// configuration fails at creation time instead of on the first registration.
func validateEventIDSettings(event *models.Event) error {
	if !sequence.ValidPrefix(event.RegistrationPrefix) {
		return NewBusinessError("INVALID_REGISTRATION_PREFIX",
			fmt.Sprintf("registration prefix %q must be letters and digits separated by single dashes", event.RegistrationPrefix),
			ErrInvalidEventConfig)
	}
	if abstractPrefix := event.EffectiveAbstractPrefix(); !sequence.ValidPrefix(abstractPrefix) {
		return NewBusinessError("INVALID_ABSTRACT_PREFIX",
			fmt.Sprintf("abstract prefix %q must be letters and digits separated by single dashes", abstractPrefix),
			ErrInvalidEventConfig)
	}
	if event.RegistrationPrefix == event.EffectiveAbstractPrefix() {
		return NewBusinessError("DUPLICATE_ID_PREFIX", "registration and abstract prefixes must differ", ErrInvalidEventConfig)
	}
	if event.RegistrationStartNumber < 1 || event.AbstractStartNumber < 1 {
		return NewBusinessError("INVALID_START_NUMBER", "start numbers must be at least 1", ErrInvalidEventConfig)
	}
	if event.IDPadWidth < 1 || event.IDPadWidth > sequence.MaxPadWidth {
		return NewBusinessErrorf("INVALID_PAD_WIDTH", "pad width must be between 1 and %d", ErrInvalidEventConfig, sequence.MaxPadWidth)
	}
	return nil
}
