package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	bookingdomain "github.com/atelierlabs/studiobook/internal/booking/domain"
	catalogdomain "github.com/atelierlabs/studiobook/internal/catalog/domain"
	creditsdomain "github.com/atelierlabs/studiobook/internal/credits/domain"
	"github.com/atelierlabs/studiobook/internal/payment/checkout"
	paymentdomain "github.com/atelierlabs/studiobook/internal/payment/domain"
	subscriptiondomain "github.com/atelierlabs/studiobook/internal/subscription/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, bookingdomain.ErrInvalidQuantity),
		errors.Is(err, bookingdomain.ErrInvalidStartTime),
		errors.Is(err, bookingdomain.ErrRoomNotAllowed),
		errors.Is(err, catalogdomain.ErrInvalidQuantity),
		errors.Is(err, catalogdomain.ErrInvalidPackage),
		errors.Is(err, catalogdomain.ErrInvalidService),
		errors.Is(err, catalogdomain.ErrInvalidUnit),
		errors.Is(err, creditsdomain.ErrInvalidMinutes),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, bookingdomain.ErrBookingNotFound),
		errors.Is(err, bookingdomain.ErrUnknownRoom),
		errors.Is(err, bookingdomain.ErrUnknownPackage),
		errors.Is(err, bookingdomain.ErrUnknownService),
		errors.Is(err, catalogdomain.ErrRoomNotFound),
		errors.Is(err, catalogdomain.ErrPackageNotFound),
		errors.Is(err, catalogdomain.ErrServiceNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, subscriptiondomain.ErrPlanNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, bookingdomain.ErrAvailabilityConflict),
		errors.Is(err, bookingdomain.ErrInsufficientCredits),
		errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, creditsdomain.ErrInsufficientCredits),
		errors.Is(err, checkout.ErrNotPayable),
		errors.Is(err, checkout.ErrNothingToPay):
		return true
	default:
		return false
	}
}
