package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirphl/conference-registry/app/dto"
	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/repository"
	"github.com/amirphl/conference-registry/sequence"
	"github.com/amirphl/conference-registry/utils"
	"github.com/xuri/excelize/v2"
)

// RegistrationFlow handles attendee registrations
type RegistrationFlow interface {
	Register(ctx context.Context, req *dto.CreateRegistrationRequest, metadata *ClientMetadata) (*dto.RegistrationResponse, error)
	GetByPublicID(ctx context.Context, eventUUID, publicID string) (*dto.RegistrationResponse, error)
	ListByEvent(ctx context.Context, req *dto.ListRegistrationsRequest) (*dto.ListRegistrationsResponse, error)
	ExportExcel(ctx context.Context, eventUUID string) (*dto.ExportRegistrationsResponse, error)
}

// RegistrationFlowImpl implements RegistrationFlow
type RegistrationFlowImpl struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	allocator        IDAllocator
}

func NewRegistrationFlow(eventRepo repository.EventRepository, registrationRepo repository.RegistrationRepository, allocator IDAllocator) RegistrationFlow {
	return &RegistrationFlowImpl{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		allocator:        allocator,
	}
}

// maxPublicIDAttempts bounds retries when a freshly allocated ID collides with a row that was
// inserted behind the allocator's back after its scan. Each retry rescans and so moves past it.
const maxPublicIDAttempts = 3

func (f *RegistrationFlowImpl) Register(ctx context.Context, req *dto.CreateRegistrationRequest, metadata *ClientMetadata) (*dto.RegistrationResponse, error) {
	event, err := activeEvent(ctx, f.eventRepo, req.EventUUID)
	if err != nil {
		return nil, err
	}

	reg := &models.Registration{
		EventID:   event.ID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Mobile:    req.Mobile,
		Category:  req.Category,
		Status:    models.RegistrationStatusPending,
		Source:    models.RegistrationSourceAPI,
	}

	eventID := event.UUID.String()
	for attempt := 1; ; attempt++ {
		publicID, err := f.allocator.AllocateNext(ctx, eventID, sequence.ResourceRegistration)
		if err != nil {
			log.Printf("registration for event %s aborted, no identifier allocated: %v", eventID, err)
			return nil, allocationError(err)
		}

		reg.ID = 0
		reg.PublicID = publicID
		err = f.registrationRepo.Save(ctx, reg)
		if err == nil {
			break
		}
		if !repository.IsUniqueViolation(err) || attempt == maxPublicIDAttempts {
			return nil, NewBusinessError("REGISTRATION_CREATE_FAILED", "Failed to save registration", err)
		}
		log.Printf("public ID %s already taken in event %s, allocating another (attempt %d)", publicID, eventID, attempt)
	}

	if metadata != nil {
		log.Printf("registration %s created for event %s, request %s", reg.PublicID, eventID, metadata.RequestID)
	}

	resp := ToRegistrationResponse(reg, eventID)
	return &resp, nil
}

func (f *RegistrationFlowImpl) GetByPublicID(ctx context.Context, eventUUID, publicID string) (*dto.RegistrationResponse, error) {
	event, err := f.eventRepo.ByUUID(ctx, eventUUID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to load event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Event not found", ErrEventNotFound)
	}

	reg, err := f.registrationRepo.ByPublicID(ctx, event.ID, strings.TrimSpace(publicID))
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_LOOKUP_FAILED", "Failed to load registration", err)
	}
	if reg == nil {
		return nil, NewBusinessError("REGISTRATION_NOT_FOUND", "Registration not found", ErrRegistrationNotFound)
	}

	resp := ToRegistrationResponse(reg, event.UUID.String())
	return &resp, nil
}

func (f *RegistrationFlowImpl) ListByEvent(ctx context.Context, req *dto.ListRegistrationsRequest) (*dto.ListRegistrationsResponse, error) {
	page, limit, err := normalizePage(req.Page, req.Limit)
	if err != nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid pagination parameters", err)
	}

	event, err := f.eventRepo.ByUUID(ctx, req.EventUUID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to load event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Event not found", ErrEventNotFound)
	}

	total, err := f.registrationRepo.Count(ctx, models.RegistrationFilter{EventID: &event.ID})
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_LIST_FAILED", "Failed to count registrations", err)
	}
	rows, err := f.registrationRepo.ListByEvent(ctx, event.ID, limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_LIST_FAILED", "Failed to list registrations", err)
	}

	eventID := event.UUID.String()
	items := make([]dto.RegistrationResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, ToRegistrationResponse(r, eventID))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &dto.ListRegistrationsResponse{
		Message: "Registrations retrieved successfully",
		Items:   items,
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}

var exportHeader = []string{"public_id", "first_name", "last_name", "email", "mobile", "category", "status", "source", "created_at"}

func (f *RegistrationFlowImpl) ExportExcel(ctx context.Context, eventUUID string) (*dto.ExportRegistrationsResponse, error) {
	event, err := f.eventRepo.ByUUID(ctx, eventUUID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to load event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Event not found", ErrEventNotFound)
	}

	rows, err := f.registrationRepo.ListByEvent(ctx, event.ID, 0, 0)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_LIST_FAILED", "Failed to list registrations", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "registrations"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := exportHeader
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel header", err)
	}
	for i, r := range rows {
		record := []string{
			r.PublicID,
			r.FirstName,
			r.LastName,
			r.Email,
			utils.Deref(r.Mobile),
			utils.Deref(r.Category),
			r.Status.String(),
			string(r.Source),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	return &dto.ExportRegistrationsResponse{
		FileName: fmt.Sprintf("registrations_%s_%s.xlsx", strings.ToLower(event.Code), utils.UTCNowFormat("20060102")),
		Content:  buf.Bytes(),
	}, nil
}
