package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docbook/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type errorResponseBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

type successResponseBody struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type messageResponseType struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type paginatedResponse struct {
	Data       interface{} `json:"data"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

func successResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, successResponseBody{
		Status: "success",
		Data:   data,
	})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, errorResponseBody{
		Status:  "error",
		Message: message,
		Code:    statusCode,
	})
}

func messageResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, messageResponseType{
		Status:  "success",
		Message: message,
	})
}

func paginatedSuccessResponse(c *gin.Context, data interface{}, totalCount int, page pagination) {
	totalPages := totalCount / page.Limit
	if totalCount%page.Limit > 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, paginatedResponse{
		Data:       data,
		TotalCount: totalCount,
		Page:       page.Offset/page.Limit + 1,
		PageSize:   page.Limit,
		TotalPages: totalPages,
	})
}

func createdResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, successResponseBody{
		Status: "success",
		Data:   data,
	})
}

func noContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func badRequestResponse(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, message)
}

func unauthorizedResponse(c *gin.Context) {
	errorResponse(c, http.StatusUnauthorized, "требуется авторизация")
}

func forbiddenResponse(c *gin.Context, message ...string) {
	msg := "доступ запрещен"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	errorResponse(c, http.StatusForbidden, msg)
}

func internalServerErrorResponse(c *gin.Context) {
	errorResponse(c, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

// errorStatuses maps domain errors to HTTP codes. The first match wins, so
// more specific errors go first.
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrSlotTaken, http.StatusConflict},
	{domain.ErrSlotUnavailable, http.StatusConflict},
	{domain.ErrInvalidStatus, http.StatusConflict},
	{domain.ErrAlreadyExists, http.StatusConflict},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrAccountBlocked, http.StatusForbidden},
	{domain.ErrAccountPending, http.StatusForbidden},
	{domain.ErrNotVerified, http.StatusForbidden},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
	{domain.ErrOutsideHorizon, http.StatusUnprocessableEntity},
	{domain.ErrInvalidDate, http.StatusBadRequest},
	{domain.ErrInvalidSlot, http.StatusBadRequest},
	{domain.ErrInvalidOTP, http.StatusBadRequest},
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrStorageDisabled, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// handleError writes the response for a service error. Domain errors carry
// their own message; anything else is logged and answered with a plain 500.
func (h *Handler) handleError(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	switch {
	case status == http.StatusServiceUnavailable:
		h.logger.Warn(msg, zap.String("path", c.FullPath()), zap.Error(err))
		errorResponse(c, status, err.Error())
	case status >= http.StatusInternalServerError:
		h.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		internalServerErrorResponse(c)
	default:
		h.logger.Info(msg, zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
		errorResponse(c, status, err.Error())
	}
}

// bindError rejects a request whose body or query failed validation. The
// details go to the error middleware, not to the client.
func bindError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	badRequestResponse(c, "неверный формат данных")
}

type pagination struct {
	Limit  int
	Offset int
}

func parsePagination(c *gin.Context) pagination {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return pagination{Limit: limit, Offset: offset}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequestResponse(c, "неверный формат ID")
		return 0, false
	}
	return id, true
}
