package server

import (
	"errors"
	"net/http"
	"strings"

	auditdomain "github.com/galette-community/plugin-stripe/internal/audit/domain"
	authdomain "github.com/galette-community/plugin-stripe/internal/auth/domain"
	"github.com/galette-community/plugin-stripe/internal/authorization"
	ledgerdomain "github.com/galette-community/plugin-stripe/internal/ledger/domain"
	paymentdomain "github.com/galette-community/plugin-stripe/internal/payment/domain"
	pricetierdomain "github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	referencedomain "github.com/galette-community/plugin-stripe/internal/reference/domain"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func fieldErrorsToValidation(errs []settingsdomain.FieldError) error {
	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		out = append(out, ValidationError{Field: e.Field, Code: e.Code, Message: e.Message})
	}
	return &ValidationErrors{Errors: out}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, paymentdomain.ErrSpamDetected):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, paymentdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, paymentdomain.ErrProviderRejected):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "payment_rejected",
			Message: "payment rejected by provider",
		}
	case errors.Is(err, paymentdomain.ErrProviderUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_unavailable",
			Message: "payment provider unavailable",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, settingsdomain.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code logged by the request
// middleware.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if payload.Type == "validation_error" && len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		return payload.Type, "server"
	}
	return payload.Type, strings.ToLower(http.StatusText(status))
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pricetierdomain.ErrInvalidAmount),
		errors.Is(err, settingsdomain.ErrInvalidSettings),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, paymentdomain.ErrTierUnavailable),
		errors.Is(err, paymentdomain.ErrAmountBelowMinimum),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrMemberRequired):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, pricetierdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, referencedomain.ErrUnsupportedCountry),
		errors.Is(err, referencedomain.ErrUnsupportedCurrency),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, pricetierdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, paymentdomain.ErrTierUnavailable):
		return "invalid_item_id"
	case errors.Is(err, paymentdomain.ErrAmountBelowMinimum):
		return "amount_below_minimum"
	case errors.Is(err, paymentdomain.ErrMemberRequired):
		return "member_required"
	case errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return "invalid_time_range"
	case errors.Is(err, auditdomain.ErrInvalidAction):
		return "invalid_action"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "amount_below_minimum":
		return "amount"
	case "member_required":
		return "member_id"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "amount_below_minimum":
		return "amount is below the price of this item"
	case "member_required":
		return "this item is reserved to members"
	case "invalid_item_id":
		return "item is not available for online payment"
	default:
		return "invalid value"
	}
}
