package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/NileshSanyal/supermart-backend/internal/model"
)

const (
	msgInvalidRequest = "Invalid request"
	msgValidation     = "Validation failed"
)

// writeBindError answers a failed ShouldBindJSON. Field-level failures get a
// message per field; anything else (bad JSON, wrong types) is a plain 400.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.FieldError{
			Field:   jsonFieldName(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	c.JSON(http.StatusBadRequest, model.ValidationErrorResponse{
		Status:  http.StatusBadRequest,
		Error:   true,
		Message: msgValidation,
		Errors:  fields,
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "Must be a valid email address"
	case "min":
		if fe.Field() == "Password" {
			return "Password must have at least " + fe.Param() + " characters"
		}
		return jsonFieldName(fe.Field()) + " must have at least " + fe.Param() + " characters"
	case "required":
		if fe.Field() == "Email" {
			return "Must be a valid email address"
		}
		return jsonFieldName(fe.Field()) + " is required"
	default:
		return jsonFieldName(fe.Field()) + " is invalid"
	}
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
