package utils

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/kendall-kelly/service-crm-api/errs"
)

// ErrorBody is the error part of the response envelope
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// Success writes {"success":true,"data":data}
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// SuccessPage writes a data page with its pagination block
func SuccessPage(c *gin.Context, data any, page PageInfo) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       data,
		"pagination": page,
	})
}

// Error writes {"success":false,"error":{...}} and aborts the chain
func Error(c *gin.Context, status int, body ErrorBody) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// BindError reports a request body that gin could not bind
func BindError(c *gin.Context, err error) {
	body := ErrorBody{Code: "VALIDATION_ERROR", Message: "Invalid request data", Details: err.Error()}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		body.Field = fieldErrs[0].Field()
	}
	Error(c, http.StatusBadRequest, body)
}

// RespondError maps a service error onto the HTTP envelope
func RespondError(c *gin.Context, err error) {
	var validationErr *errs.ValidationError
	var uploadErr *FileUploadError

	switch {
	case errors.As(err, &uploadErr):
		Error(c, http.StatusBadRequest, ErrorBody{Code: uploadErr.Code, Message: uploadErr.Message, Field: "image"})
	case errors.As(err, &validationErr):
		Error(c, http.StatusBadRequest, ErrorBody{Code: "VALIDATION_ERROR", Message: validationErr.Message, Field: validationErr.Field})
	case errors.Is(err, errs.ErrValidationFailed):
		Error(c, http.StatusBadRequest, ErrorBody{Code: "VALIDATION_ERROR", Message: err.Error()})
	case errors.Is(err, errs.ErrAuthenticationRequired):
		Error(c, http.StatusUnauthorized, ErrorBody{Code: "AUTHENTICATION_REQUIRED", Message: "Authentication required"})
	case errors.Is(err, errs.ErrForbidden):
		Error(c, http.StatusForbidden, ErrorBody{Code: "FORBIDDEN", Message: "You do not have permission to perform this action"})
	case errors.Is(err, errs.ErrNotFound):
		Error(c, http.StatusNotFound, ErrorBody{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, errs.ErrConflict):
		Error(c, http.StatusConflict, ErrorBody{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, errs.ErrSubscriptionPending):
		Error(c, http.StatusConflict, ErrorBody{Code: "SUBSCRIPTION_PENDING", Message: err.Error()})
	case errors.Is(err, errs.ErrUnavailable):
		Error(c, http.StatusServiceUnavailable, ErrorBody{Code: "SERVICE_UNAVAILABLE", Message: err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		Error(c, http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Message: "Internal server error"})
	}
}
