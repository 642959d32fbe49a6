// internal/api/response.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/astralforge/stellar-odyssey/internal/errors"
)

// APIResponse is the uniform envelope for every JSON endpoint.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries a stable machine code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseHelper centralizes envelope construction so handlers stay
// small.
type ResponseHelper struct{}

func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success writes a 200 with data.
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(http.StatusOK, response)
}

// Created writes a 201 with data.
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(http.StatusCreated, response)
}

// Error writes an error envelope with an explicit status and code.
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     &APIError{Code: errorCode, Message: message},
		Timestamp: time.Now(),
	})
}

// BadRequest writes a 400 error envelope.
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string) {
	rh.Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// NotFound writes a 404 error envelope.
func (rh *ResponseHelper) NotFound(c *gin.Context, message string) {
	rh.Error(c, http.StatusNotFound, "NOT_FOUND", message)
}

// Internal writes a 500 error envelope.
func (rh *ResponseHelper) Internal(c *gin.Context, message string) {
	rh.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// FromError maps the application error taxonomy onto HTTP statuses.
func (rh *ResponseHelper) FromError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidationError(err):
		rh.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case apperrors.IsNotFoundError(err):
		rh.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case apperrors.IsContentError(err):
		rh.Error(c, http.StatusUnprocessableEntity, "CONTENT_ERROR", err.Error())
	case apperrors.IsPersistenceError(err):
		rh.Error(c, http.StatusInternalServerError, "PERSISTENCE_ERROR", err.Error())
	default:
		rh.Internal(c, err.Error())
	}
}
