package server

import (
	"errors"
	"net/http"

	escrowdomain "github.com/campushq/pulse/internal/escrow/domain"
	eventdomain "github.com/campushq/pulse/internal/event/domain"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	membershipdomain "github.com/campushq/pulse/internal/membership/domain"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	"github.com/campushq/pulse/internal/payment/gateway"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	"github.com/campushq/pulse/pkg/db"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// TopUpNeededCents is set only for insufficient-escrow failures so the
	// client can prompt for the exact shortfall.
	TopUpNeededCents *int64 `json:"top_up_needed_cents,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

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
	var insufficient *escrowdomain.InsufficientError
	if errors.As(err, &insufficient) {
		needed := insufficient.TopUpNeededCents
		return http.StatusForbidden, errorPayload{
			Type:             "insufficient_escrow",
			Message:          insufficient.Error(),
			TopUpNeededCents: &needed,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
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
		errors.Is(err, paymentdomain.ErrAmountMismatch),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrAmountTooLarge),
		errors.Is(err, paymentdomain.ErrTopUpDisabled),
		errors.Is(err, paymentdomain.ErrMissingProvider),
		errors.Is(err, eventdomain.ErrInvalidTitle),
		errors.Is(err, eventdomain.ErrInvalidPrice),
		errors.Is(err, eventdomain.ErrInvalidStartTime),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidProvider),
		errors.Is(err, walletdomain.ErrInvalidUser),
		errors.Is(err, gateway.ErrInvalidSignature),
		errors.Is(err, gateway.ErrMalformedPayload),
		errors.Is(err, gateway.ErrGatewayDisabled),
		errors.Is(err, gateway.ErrProviderNotFound):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, eventdomain.ErrNotFound),
		errors.Is(err, eventdomain.ErrRegistrationNotFound),
		errors.Is(err, paymentdomain.ErrIntentNotFound),
		errors.Is(err, walletdomain.ErrWalletNotFound),
		errors.Is(err, membershipdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrIntentCanceled),
		errors.Is(err, paymentdomain.ErrStaleProof),
		errors.Is(err, eventdomain.ErrInvalidState),
		errors.Is(err, eventdomain.ErrNotOpen),
		errors.Is(err, eventdomain.ErrAlreadyRegistered),
		errors.Is(err, eventdomain.ErrCapacityReached),
		db.IsDuplicateKeyErr(err):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrIntentExpired),
		errors.Is(err, paymentdomain.ErrNotIntentOwner),
		errors.Is(err, walletdomain.ErrInsufficientFunds),
		errors.Is(err, membershipdomain.ErrQuotaExhausted),
		errors.Is(err, eventdomain.ErrNotOrganizer),
		errors.Is(err, eventdomain.ErrAlreadyStarted):
		return true
	default:
		return false
	}
}

// classifyErrorForLog buckets handler errors for the request log so alert
// rules can separate client mistakes from engine faults.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status == http.StatusTooManyRequests:
		return "rate_limited", payload.Type
	case status >= http.StatusBadRequest:
		return "client_error", payload.Type
	default:
		return "none", ""
	}
}
