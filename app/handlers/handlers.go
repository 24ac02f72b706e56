// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/conference-registry/app/dto"
	businessflow "github.com/amirphl/conference-registry/business_flow"
	"github.com/amirphl/conference-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// responder carries the response helpers shared by every handler
type responder struct {
	validator *validator.Validate
}

func newResponder() responder {
	return responder{validator: validator.New()}
}

func (r responder) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (r responder) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate runs struct validation and writes a 400 response on failure. It returns true when the
// request is valid.
func (r responder) validate(c fiber.Ctx, req any) (bool, error) {
	if err := r.validator.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			details := make([]map[string]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				details = append(details, map[string]string{
					"field":   fe.Field(),
					"message": getValidationErrorMessage(fe),
				})
			}
			return false, r.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", details)
		}
		return false, r.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}
	return true, nil
}

func (r responder) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return r.createRequestContextWithTimeout(c, endpoint, utils.RequestTimeout)
}

func (r responder) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx, cancel
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))
	return metadata
}

func requestID(c fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.Get(businessflow.RequestIDKey)
}

// flowError translates a business flow error into an HTTP response
func (r responder) flowError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	switch {
	case businessflow.IsEventNotFound(err):
		return r.ErrorResponse(c, fiber.StatusNotFound, "Event not found", "EVENT_NOT_FOUND", nil)
	case businessflow.IsEventInactive(err):
		return r.ErrorResponse(c, fiber.StatusConflict, "Event is not accepting submissions", "EVENT_INACTIVE", nil)
	case businessflow.IsEventCodeExists(err):
		return r.ErrorResponse(c, fiber.StatusConflict, "An event with this code already exists", "EVENT_CODE_EXISTS", nil)
	case businessflow.IsRegistrationNotFound(err):
		return r.ErrorResponse(c, fiber.StatusNotFound, "Registration not found", "REGISTRATION_NOT_FOUND", nil)
	case businessflow.IsPublicIDTaken(err):
		return r.ErrorResponse(c, fiber.StatusConflict, "Public ID already exists in this event", "PUBLIC_ID_CONFLICT", err.Error())
	case businessflow.IsUnknownResourceKind(err):
		return r.ErrorResponse(c, fiber.StatusBadRequest, "Unknown resource kind", "UNKNOWN_RESOURCE_KIND", err.Error())
	case businessflow.IsInvalidPage(err), businessflow.IsInvalidPageSize(err):
		return r.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", "VALIDATION_ERROR", err.Error())
	}

	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		switch {
		case be.Code == businessflow.CodeNamespaceNotConfigured:
			return r.ErrorResponse(c, fiber.StatusUnprocessableEntity, be.Message, be.Code, nil)
		case be.Code == businessflow.CodeInvalidBlockSize:
			return r.ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, nil)
		case be.Code == businessflow.CodeNamespaceExhausted:
			return r.ErrorResponse(c, fiber.StatusConflict, be.Message, be.Code, nil)
		case be.Code == businessflow.CodeAllocationFailed:
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(utils.AllocationRetryAfterSeconds))
			return r.ErrorResponse(c, fiber.StatusServiceUnavailable, be.Message, be.Code, nil)
		case businessflow.IsInvalidEventConfig(err), businessflow.IsImportError(err):
			return r.ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, be.Error())
		case be.Code == "VALIDATION_ERROR":
			return r.ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, nil)
		}
	}

	return r.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "alphanum":
		return err.Field() + " must contain only letters and digits"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
