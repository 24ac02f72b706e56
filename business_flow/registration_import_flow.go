package businessflow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/amirphl/conference-registry/app/dto"
	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/repository"
	"github.com/amirphl/conference-registry/sequence"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// RegistrationImportFlow imports registrations in bulk from CSV or XLSX files
type RegistrationImportFlow interface {
	Import(ctx context.Context, req *dto.ImportRegistrationsRequest, metadata *ClientMetadata) (*dto.ImportRegistrationsResponse, error)
}

// RegistrationImportFlowImpl implements RegistrationImportFlow
type RegistrationImportFlowImpl struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	allocator        IDAllocator
	db               *gorm.DB
	validate         *validator.Validate
}

func NewRegistrationImportFlow(eventRepo repository.EventRepository, registrationRepo repository.RegistrationRepository, allocator IDAllocator, db *gorm.DB) RegistrationImportFlow {
	return &RegistrationImportFlowImpl{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		allocator:        allocator,
		db:               db,
		validate:         validator.New(),
	}
}

// Import validates every row and saves the valid ones in a single transaction. Rows that
// already carry a public ID keep it. Rows without one share a contiguous block reserved
// before anything is written and numbered above every carried ID, so a failed reservation
// or a failed save leaves the event unchanged. Invalid rows are skipped and reported.
func (f *RegistrationImportFlowImpl) Import(ctx context.Context, req *dto.ImportRegistrationsRequest, metadata *ClientMetadata) (*dto.ImportRegistrationsResponse, error) {
	event, err := activeEvent(ctx, f.eventRepo, req.EventUUID)
	if err != nil {
		return nil, err
	}

	rows, err := parseImportFile(req.FileName, req.Content)
	if err != nil {
		if IsImportError(err) {
			return nil, NewBusinessError("IMPORT_FILE_INVALID", err.Error(), err)
		}
		return nil, err
	}

	resp := &dto.ImportRegistrationsResponse{TotalRows: len(rows)}
	prefix := strings.TrimSpace(event.RegistrationPrefix)

	var preassigned, pending []importRow
	seen := make(map[string]importRow)
	for _, row := range rows {
		if msg := f.validateRow(row); msg != "" {
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Line, Message: msg})
			continue
		}
		if row.PublicID == "" {
			pending = append(pending, row)
			continue
		}
		key := publicIDKey(prefix, row.PublicID)
		if first, dup := seen[key]; dup {
			resp.Errors = append(resp.Errors, dto.ImportRowError{
				Row:     row.Line,
				Message: fmt.Sprintf("public_id %s duplicates %s on row %d", row.PublicID, first.PublicID, first.Line),
			})
			continue
		}
		seen[key] = row
		preassigned = append(preassigned, row)
	}

	preassigned, err = f.dropTakenPublicIDs(ctx, event.ID, prefix, preassigned, resp)
	if err != nil {
		return nil, err
	}

	batch := make([]*models.Registration, 0, len(preassigned)+len(pending))
	var highest int64
	for _, row := range preassigned {
		if n, ok := sequence.ParseSuffix(prefix, row.PublicID); ok && n > highest {
			highest = n
		}
		batch = append(batch, toImportedRegistration(event.ID, row, row.PublicID))
	}

	eventID := event.UUID.String()
	var ids []string
	if len(pending) > 0 {
		ids, err = f.allocator.AllocateBlockAbove(ctx, eventID, sequence.ResourceRegistration, len(pending), highest)
		if err != nil {
			log.Printf("import for event %s: block of %d not allocated: %v", eventID, len(pending), err)
			return nil, allocationError(err)
		}
		for i, row := range pending {
			batch = append(batch, toImportedRegistration(event.ID, row, ids[i]))
		}
	}

	if len(batch) > 0 {
		if err := f.saveBatch(ctx, batch); err != nil {
			if len(ids) > 0 {
				log.Printf("import for event %s: identifiers %s..%s reserved but not used: %v", eventID, ids[0], ids[len(ids)-1], err)
			}
			return nil, err
		}
	}

	resp.Preassigned = len(preassigned)
	resp.Allocated = len(pending)
	resp.Imported = len(batch)
	if len(ids) > 0 {
		resp.FirstPublicID = ids[0]
		resp.LastPublicID = ids[len(ids)-1]
	}

	requestID := ""
	if metadata != nil {
		requestID = metadata.RequestID
	}
	log.Printf("import for event %s: %d rows, %d imported (%d allocated, %d preassigned), %d rejected, request %s",
		event.UUID, resp.TotalRows, resp.Imported, resp.Allocated, resp.Preassigned, len(resp.Errors), requestID)

	resp.Message = "Registrations imported successfully"
	if len(resp.Errors) > 0 {
		resp.Message = "Registrations imported with rejected rows"
	}
	return resp, nil
}

// publicIDKey identifies a public ID by its number when it is in the event's format,
// so differently padded spellings of one number collide
func publicIDKey(prefix, publicID string) string {
	if n, ok := sequence.ParseSuffix(prefix, publicID); ok {
		return "\x00" + strconv.FormatInt(n, 10)
	}
	return publicID
}

func (f *RegistrationImportFlowImpl) validateRow(row importRow) string {
	switch {
	case row.FirstName == "":
		return "first_name is required"
	case row.LastName == "":
		return "last_name is required"
	case f.validate.Var(row.Email, "required,email,max=255") != nil:
		return "email is missing or invalid"
	case len(row.Mobile) > 20:
		return "mobile is too long"
	case len(row.Category) > 64:
		return "category is too long"
	case len(row.PublicID) > 64:
		return "public_id is too long"
	}
	return ""
}

func (f *RegistrationImportFlowImpl) dropTakenPublicIDs(ctx context.Context, eventID uint, prefix string, rows []importRow, resp *dto.ImportRegistrationsResponse) ([]importRow, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	var (
		ids     []string
		numbers []int64
	)
	for _, row := range rows {
		if n, ok := sequence.ParseSuffix(prefix, row.PublicID); ok {
			numbers = append(numbers, n)
			continue
		}
		ids = append(ids, row.PublicID)
	}

	taken, err := f.registrationRepo.ExistingPublicIDs(ctx, eventID, ids)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_LOOKUP_FAILED", "Failed to check existing public IDs", err)
	}
	numbered, err := f.registrationRepo.PublicIDsWithNumbers(ctx, eventID, prefix, numbers)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_LOOKUP_FAILED", "Failed to check existing public IDs", err)
	}
	if len(taken) == 0 && len(numbered) == 0 {
		return rows, nil
	}

	existing := make(map[string]string, len(taken)+len(numbered))
	for _, id := range append(taken, numbered...) {
		existing[publicIDKey(prefix, id)] = id
	}
	kept := rows[:0]
	for _, row := range rows {
		if id, ok := existing[publicIDKey(prefix, row.PublicID)]; ok {
			msg := fmt.Sprintf("public_id %s already exists in this event", row.PublicID)
			if id != row.PublicID {
				msg = fmt.Sprintf("public_id %s has the same number as existing %s", row.PublicID, id)
			}
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Line, Message: msg})
			continue
		}
		kept = append(kept, row)
	}
	return kept, nil
}

func (f *RegistrationImportFlowImpl) saveBatch(ctx context.Context, batch []*models.Registration) error {
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		return f.registrationRepo.SaveBatch(txCtx, batch)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return NewBusinessError("PUBLIC_ID_CONFLICT", "A public ID in the file was taken concurrently, retry the import", ErrPublicIDTaken)
		}
		return NewBusinessError("REGISTRATION_IMPORT_FAILED", "Failed to save imported registrations", err)
	}
	return nil
}

func toImportedRegistration(eventID uint, row importRow, publicID string) *models.Registration {
	reg := &models.Registration{
		EventID:   eventID,
		PublicID:  publicID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		Status:    models.RegistrationStatusPending,
		Source:    models.RegistrationSourceImport,
	}
	if row.Mobile != "" {
		mobile := row.Mobile
		reg.Mobile = &mobile
	}
	if row.Category != "" {
		category := row.Category
		reg.Category = &category
	}
	return reg
}
