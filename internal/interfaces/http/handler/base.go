// Package handler implements the HTTP handlers of the shipping API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/infrastructure/logger"
	"github.com/shipping/backend/internal/interfaces/http/dto"
	"github.com/shipping/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError maps an application error to a response. Domain errors keep
// their message; persistence and unknown errors are logged and reported as
// internal errors without the underlying cause.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	code := shared.ErrorCode(err)
	status := dto.GetHTTPStatus(code)

	if status < http.StatusInternalServerError {
		message := err.Error()
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			message = domainErr.Message
		}
		h.Error(c, status, code, message)
		return
	}

	logger.GetGinLogger(c).Error("request failed",
		zap.String("error_code", code),
		zap.Error(err),
	)
	if code == "" {
		code = dto.ErrCodeInternal
	}
	h.Error(c, status, code, "An internal error occurred")
}

// parseID parses a uint32 path parameter, answering 400 when it is malformed
func (h *BaseHandler) parseID(c *gin.Context, name string) (uint32, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		h.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint32(id), true
}

// optionalID parses an optional uint32 query parameter. An absent parameter
// yields nil; a malformed one answers 400.
func (h *BaseHandler) optionalID(c *gin.Context, name string) (*uint32, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		h.BadRequest(c, "Invalid query parameter "+name)
		return nil, false
	}
	v := uint32(id)
	return &v, true
}
