package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	boostdomain "github.com/smallbiznis/entitle/internal/boost/domain"
	catalogdomain "github.com/smallbiznis/entitle/internal/catalog/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	grantdomain "github.com/smallbiznis/entitle/internal/grant/domain"
	ledgerdomain "github.com/smallbiznis/entitle/internal/ledger/domain"
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
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
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
		code := err.Error()
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
	case errors.Is(err, ErrConflict),
		errors.Is(err, featuredomain.ErrDuplicateCode),
		errors.Is(err, catalogdomain.ErrDuplicateCode):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
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
		errors.Is(err, featuredomain.ErrInvalidCode),
		errors.Is(err, featuredomain.ErrInvalidName),
		errors.Is(err, featuredomain.ErrInvalidKind),
		errors.Is(err, featuredomain.ErrInvalidResetType),
		errors.Is(err, catalogdomain.ErrInvalidCode),
		errors.Is(err, catalogdomain.ErrInvalidName),
		errors.Is(err, grantdomain.ErrInvalidWorkspace),
		errors.Is(err, grantdomain.ErrInvalidCode),
		errors.Is(err, boostdomain.ErrInvalidWorkspace),
		errors.Is(err, boostdomain.ErrInvalidID),
		errors.Is(err, boostdomain.ErrInvalidBoostType),
		errors.Is(err, boostdomain.ErrInvalidDurationType),
		errors.Is(err, boostdomain.ErrInvalidLimitValue),
		errors.Is(err, boostdomain.ErrMissingExpiry),
		errors.Is(err, boostdomain.ErrUnexpectedExpiry),
		errors.Is(err, ledgerdomain.ErrInvalidWorkspace),
		errors.Is(err, ledgerdomain.ErrInvalidQuantity),
		errors.Is(err, ledgerdomain.ErrFeatureNotLimited):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, featuredomain.ErrNotFound),
		errors.Is(err, featuredomain.ErrUnknownFeature),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, catalogdomain.ErrUnknownPackage),
		errors.Is(err, boostdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
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
	case "missing_expiry":
		return "expires_at is required for duration boosts"
	case "unexpected_expiry":
		return "permanent boosts cannot carry an expiry"
	case "feature_not_limited":
		return "feature has no usage ledger"
	default:
		return "invalid value"
	}
}
