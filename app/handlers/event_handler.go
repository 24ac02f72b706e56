package handlers

import (
	"github.com/amirphl/conference-registry/app/dto"
	businessflow "github.com/amirphl/conference-registry/business_flow"
	"github.com/gofiber/fiber/v3"
)

// EventHandlerInterface defines the contract for event handlers
type EventHandlerInterface interface {
	Create(c fiber.Ctx) error
	Get(c fiber.Ctx) error
}

// EventHandler handles event administration requests
type EventHandler struct {
	responder
	flow businessflow.EventFlow
}

// NewEventHandler creates a new event handler
func NewEventHandler(flow businessflow.EventFlow) *EventHandler {
	return &EventHandler{responder: newResponder(), flow: flow}
}

// Create Event
// @Summary Create event
// @Description Create a conference together with its registration and abstract identifier settings
// @Tags Events
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.CreateEventRequest true "Event details"
// @Success 201 {object} dto.APIResponse{data=dto.EventResponse} "Event created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid identifier settings"
// @Failure 409 {object} dto.APIResponse "Event code already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/events [post]
func (h *EventHandler) Create(c fiber.Ctx) error {
	var req dto.CreateEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/events")
	defer cancel()

	result, err := h.flow.CreateEvent(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to create event", "EVENT_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Event created successfully", result)
}

// Get Event
// @Summary Get event
// @Description Get an event and the identifier settings in effect
// @Tags Events
// @Produce json
// @Param event_uuid path string true "Event UUID"
// @Success 200 {object} dto.APIResponse{data=dto.EventResponse} "Event retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Event not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/events/{event_uuid} [get]
func (h *EventHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/events/:event_uuid")
	defer cancel()

	result, err := h.flow.GetEvent(ctx, c.Params("event_uuid"))
	if err != nil {
		return h.flowError(c, err, "Failed to get event", "EVENT_LOOKUP_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Event retrieved successfully", result)
}
