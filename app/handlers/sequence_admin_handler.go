package handlers

import (
	businessflow "github.com/amirphl/conference-registry/business_flow"
	"github.com/gofiber/fiber/v3"
)

// SequenceAdminHandlerInterface defines the contract for identifier counter administration
type SequenceAdminHandlerInterface interface {
	Inspect(c fiber.Ctx) error
	Reconcile(c fiber.Ctx) error
}

// SequenceAdminHandler exposes identifier counters to administrators
type SequenceAdminHandler struct {
	responder
	flow businessflow.SequenceAdminFlow
}

// NewSequenceAdminHandler creates a new sequence admin handler
func NewSequenceAdminHandler(flow businessflow.SequenceAdminFlow) *SequenceAdminHandler {
	return &SequenceAdminHandler{responder: newResponder(), flow: flow}
}

// Inspect Sequence
// @Summary Inspect identifier counter
// @Description Show the stored counter, the highest identifier present in storage and the identifier the next allocation would issue. Nothing is consumed.
// @Tags Admin Sequences
// @Produce json
// @Security ApiKeyAuth
// @Param event_uuid path string true "Event UUID"
// @Param kind path string true "Resource kind" Enums(registration, abstract)
// @Success 200 {object} dto.APIResponse{data=dto.SequenceStateResponse} "Counter state"
// @Failure 400 {object} dto.APIResponse "Unknown resource kind"
// @Failure 422 {object} dto.APIResponse "Event identifier settings are missing or invalid"
// @Failure 503 {object} dto.APIResponse "Counter store unavailable"
// @Router /api/v1/admin/events/{event_uuid}/sequences/{kind} [get]
func (h *SequenceAdminHandler) Inspect(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/events/:event_uuid/sequences/:kind")
	defer cancel()

	result, err := h.flow.Inspect(ctx, c.Params("event_uuid"), c.Params("kind"))
	if err != nil {
		return h.flowError(c, err, "Failed to inspect counter", "SEQUENCE_INSPECT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Counter state retrieved successfully", result)
}

// Reconcile Sequence
// @Summary Reconcile identifier counter
// @Description Raise the counter past the highest identifier present in storage. The counter is never lowered.
// @Tags Admin Sequences
// @Produce json
// @Security ApiKeyAuth
// @Param event_uuid path string true "Event UUID"
// @Param kind path string true "Resource kind" Enums(registration, abstract)
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileSequenceResponse} "Reconcile report"
// @Failure 400 {object} dto.APIResponse "Unknown resource kind"
// @Failure 422 {object} dto.APIResponse "Event identifier settings are missing or invalid"
// @Failure 503 {object} dto.APIResponse "Counter store unavailable"
// @Router /api/v1/admin/events/{event_uuid}/sequences/{kind}/reconcile [post]
func (h *SequenceAdminHandler) Reconcile(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/events/:event_uuid/sequences/:kind/reconcile")
	defer cancel()

	result, err := h.flow.Reconcile(ctx, c.Params("event_uuid"), c.Params("kind"), clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to reconcile counter", "SEQUENCE_RECONCILE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
