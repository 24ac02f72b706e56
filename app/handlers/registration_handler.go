package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/amirphl/conference-registry/app/dto"
	businessflow "github.com/amirphl/conference-registry/business_flow"
	"github.com/amirphl/conference-registry/utils"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RegistrationHandlerInterface defines the contract for registration handlers
type RegistrationHandlerInterface interface {
	Register(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Import(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// RegistrationHandler handles attendee registration requests
type RegistrationHandler struct {
	responder
	flow       businessflow.RegistrationFlow
	importFlow businessflow.RegistrationImportFlow
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(flow businessflow.RegistrationFlow, importFlow businessflow.RegistrationImportFlow) *RegistrationHandler {
	return &RegistrationHandler{
		responder:  newResponder(),
		flow:       flow,
		importFlow: importFlow,
	}
}

// Register Attendee
// @Summary Register attendee
// @Description Register an attendee. The public ID (e.g. REG-0007) is allocated by the server.
// @Tags Registrations
// @Accept json
// @Produce json
// @Param event_uuid path string true "Event UUID"
// @Param request body dto.CreateRegistrationRequest true "Attendee details"
// @Success 201 {object} dto.APIResponse{data=dto.RegistrationResponse} "Registration created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Event not found"
// @Failure 409 {object} dto.APIResponse "Event is not accepting registrations"
// @Failure 422 {object} dto.APIResponse "Event identifier settings are missing or invalid"
// @Failure 503 {object} dto.APIResponse "Identifier allocation temporarily unavailable, retry later"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/events/{event_uuid}/registrations [post]
func (h *RegistrationHandler) Register(c fiber.Ctx) error {
	var req dto.CreateRegistrationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.EventUUID = c.Params("event_uuid")

	ctx, cancel := h.createRequestContext(c, "/api/v1/events/:event_uuid/registrations")
	defer cancel()

	result, err := h.flow.Register(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to create registration", "REGISTRATION_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Registration created successfully", result)
}

// Get Registration
// @Summary Get registration by public ID
// @Tags Registrations
// @Produce json
// @Param event_uuid path string true "Event UUID"
// @Param public_id path string true "Registration public ID, e.g. REG-0007"
// @Success 200 {object} dto.APIResponse{data=dto.RegistrationResponse} "Registration retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Event or registration not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/events/{event_uuid}/registrations/{public_id} [get]
func (h *RegistrationHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/events/:event_uuid/registrations/:public_id")
	defer cancel()

	result, err := h.flow.GetByPublicID(ctx, c.Params("event_uuid"), c.Params("public_id"))
	if err != nil {
		return h.flowError(c, err, "Failed to get registration", "REGISTRATION_LOOKUP_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Registration retrieved successfully", result)
}

// List Registrations
// @Summary List registrations
// @Description Page through an event's registrations in public ID order
// @Tags Registrations
// @Produce json
// @Param event_uuid path string true "Event UUID"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListRegistrationsResponse} "Registrations retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Invalid pagination parameters"
// @Failure 404 {object} dto.APIResponse "Event not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/events/{event_uuid}/registrations [get]
func (h *RegistrationHandler) List(c fiber.Ctx) error {
	req := dto.ListRegistrationsRequest{EventUUID: c.Params("event_uuid")}
	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page", "VALIDATION_ERROR", err.Error())
		}
		req.Page = page
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid limit", "VALIDATION_ERROR", err.Error())
		}
		req.Limit = limit
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/events/:event_uuid/registrations")
	defer cancel()

	result, err := h.flow.ListByEvent(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list registrations", "REGISTRATION_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Import Registrations
// @Summary Import registrations
// @Description Import registrations from a CSV or XLSX file. Required columns: first_name, last_name, email. Optional: mobile, category, public_id. Rows without public_id receive one contiguous block of identifiers.
// @Tags Registrations
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param event_uuid path string true "Event UUID"
// @Param file formData file true "CSV or XLSX file (<=10MB)"
// @Success 200 {object} dto.APIResponse{data=dto.ImportRegistrationsResponse} "Registrations imported"
// @Failure 400 {object} dto.APIResponse "Invalid or unreadable file"
// @Failure 404 {object} dto.APIResponse "Event not found"
// @Failure 409 {object} dto.APIResponse "Event inactive or public ID taken concurrently"
// @Failure 422 {object} dto.APIResponse "Event identifier settings are missing or invalid"
// @Failure 503 {object} dto.APIResponse "Identifier allocation temporarily unavailable, retry later"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/events/{event_uuid}/registrations/import [post]
func (h *RegistrationHandler) Import(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File is required", "FILE_REQUIRED", nil)
	}
	if fileHeader.Size > utils.MaxImportFileSize {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File too large", "FILE_TOO_LARGE",
			fmt.Sprintf("maximum size is %d bytes", utils.MaxImportFileSize))
	}

	content, err := readUploadedFile(fileHeader)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File upload failed", "FILE_UPLOAD_FAILED", err.Error())
	}

	req := dto.ImportRegistrationsRequest{
		EventUUID: c.Params("event_uuid"),
		FileName:  fileHeader.Filename,
		Content:   content,
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/admin/events/:event_uuid/registrations/import", utils.ImportRequestTimeout)
	defer cancel()

	result, err := h.importFlow.Import(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to import registrations", "REGISTRATION_IMPORT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Export Registrations
// @Summary Export registrations
// @Description Download every registration of an event as an XLSX workbook
// @Tags Registrations
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Param event_uuid path string true "Event UUID"
// @Success 200 {file} file "XLSX workbook"
// @Failure 404 {object} dto.APIResponse "Event not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/events/{event_uuid}/registrations/export [get]
func (h *RegistrationHandler) Export(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/admin/events/:event_uuid/registrations/export", utils.ImportRequestTimeout)
	defer cancel()

	result, err := h.flow.ExportExcel(ctx, c.Params("event_uuid"))
	if err != nil {
		return h.flowError(c, err, "Failed to export registrations", "REGISTRATION_EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", result.FileName))
	return c.Status(fiber.StatusOK).Send(result.Content)
}

func readUploadedFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return io.ReadAll(io.LimitReader(f, utils.MaxImportFileSize+1))
}
