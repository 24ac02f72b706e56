// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"

	"github.com/amirphl/conference-registry/app/dto"
	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/sequence"
	"github.com/amirphl/conference-registry/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client information attached to each request for logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// IDAllocator issues public identifiers for new records
type IDAllocator interface {
	AllocateNext(ctx context.Context, eventID string, kind sequence.ResourceKind) (string, error)
	// AllocateBlockAbove reserves count contiguous identifiers numbered above the given floor
	AllocateBlockAbove(ctx context.Context, eventID string, kind sequence.ResourceKind, count int, above int64) ([]string, error)
}

// SequenceInspector exposes counter inspection and explicit healing
type SequenceInspector interface {
	Peek(ctx context.Context, eventID string, kind sequence.ResourceKind) (*sequence.Snapshot, error)
	Reconcile(ctx context.Context, eventID string, kind sequence.ResourceKind) (*sequence.ReconcileReport, error)
}

// ToEventResponse converts an event model to its API representation
func ToEventResponse(event *models.Event) dto.EventResponse {
	return dto.EventResponse{
		UUID:                    event.UUID.String(),
		Code:                    event.Code,
		Name:                    event.Name,
		RegistrationPrefix:      event.RegistrationPrefix,
		RegistrationStartNumber: event.RegistrationStartNumber,
		AbstractPrefix:          event.EffectiveAbstractPrefix(),
		AbstractStartNumber:     event.AbstractStartNumber,
		IDPadWidth:              event.IDPadWidth,
		IsActive:                utils.IsTrue(event.IsActive),
		CreatedAt:               utils.FormatUTC(event.CreatedAt),
	}
}

// ToRegistrationResponse converts a registration model to its API representation
func ToRegistrationResponse(reg *models.Registration, eventUUID string) dto.RegistrationResponse {
	return dto.RegistrationResponse{
		UUID:      reg.UUID.String(),
		PublicID:  reg.PublicID,
		EventUUID: eventUUID,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
		Mobile:    reg.Mobile,
		Category:  reg.Category,
		Status:    reg.Status.String(),
		Source:    string(reg.Source),
		CreatedAt: utils.FormatUTC(reg.CreatedAt),
	}
}

// ToAbstractResponse converts an abstract model to its API representation
func ToAbstractResponse(abs *models.Abstract, eventUUID string, registrationPublicID *string) dto.AbstractResponse {
	return dto.AbstractResponse{
		UUID:                 abs.UUID.String(),
		PublicID:             abs.PublicID,
		EventUUID:            eventUUID,
		RegistrationPublicID: registrationPublicID,
		Title:                abs.Title,
		Status:               abs.Status,
		CreatedAt:            utils.FormatUTC(abs.CreatedAt),
	}
}

// normalizePage validates page/limit and fills defaults
func normalizePage(page, limit int) (int, int, error) {
	if page < 0 {
		return 0, 0, ErrInvalidPage
	}
	if limit < 0 || limit > utils.MaxPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = utils.DefaultPageSize
	}
	return page, limit, nil
}

// activeEvent loads an event by UUID and requires it to accept new records
func activeEvent(ctx context.Context, events eventLookup, eventUUID string) (*models.Event, error) {
	event, err := events.ByUUID(ctx, eventUUID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to load event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Event not found", ErrEventNotFound)
	}
	if !utils.IsTrue(event.IsActive) {
		return nil, NewBusinessError("EVENT_INACTIVE", "Event is not accepting submissions", ErrEventInactive)
	}
	return event, nil
}

type eventLookup interface {
	ByUUID(ctx context.Context, uuid string) (*models.Event, error)
}
