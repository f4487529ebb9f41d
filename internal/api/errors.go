package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/pathwise/internal/engine"
)

// StatusForCode maps an engine result code to an HTTP status.
func StatusForCode(code engine.Code) int {
	switch code {
	case engine.CodeOK:
		return http.StatusOK
	case engine.CodeValidation:
		return http.StatusBadRequest
	case engine.CodeForbidden:
		return http.StatusForbidden
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeInsufficientHearts, engine.CodeConflict:
		return http.StatusConflict
	case engine.CodeFetch:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// SanitizeValidationError turns a request validation failure into a message
// naming the offending field without echoing its value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "gt", "gte", "lt", "lte", "min", "max":
		return "out of range"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
