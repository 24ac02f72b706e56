package handlers

import (
	"github.com/amirphl/conference-registry/app/dto"
	businessflow "github.com/amirphl/conference-registry/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AbstractHandlerInterface defines the contract for abstract handlers
type AbstractHandlerInterface interface {
	Submit(c fiber.Ctx) error
}

// AbstractHandler handles abstract submissions
type AbstractHandler struct {
	responder
	flow businessflow.AbstractFlow
}

// NewAbstractHandler creates a new abstract handler
func NewAbstractHandler(flow businessflow.AbstractFlow) *AbstractHandler {
	return &AbstractHandler{responder: newResponder(), flow: flow}
}

// Submit Abstract
// @Summary Submit abstract
// @Description Submit a paper abstract. The public ID (e.g. ABS-CONF26-0003) is allocated by the server.
// @Tags Abstracts
// @Accept json
// @Produce json
// @Param event_uuid path string true "Event UUID"
// @Param request body dto.SubmitAbstractRequest true "Abstract"
// @Success 201 {object} dto.APIResponse{data=dto.AbstractResponse} "Abstract submitted successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Event or linked registration not found"
// @Failure 409 {object} dto.APIResponse "Event is not accepting submissions"
// @Failure 422 {object} dto.APIResponse "Event identifier settings are missing or invalid"
// @Failure 503 {object} dto.APIResponse "Identifier allocation temporarily unavailable, retry later"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/events/{event_uuid}/abstracts [post]
func (h *AbstractHandler) Submit(c fiber.Ctx) error {
	var req dto.SubmitAbstractRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.EventUUID = c.Params("event_uuid")

	ctx, cancel := h.createRequestContext(c, "/api/v1/events/:event_uuid/abstracts")
	defer cancel()

	result, err := h.flow.Submit(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to submit abstract", "ABSTRACT_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Abstract submitted successfully", result)
}
