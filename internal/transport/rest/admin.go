package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"docbook/internal/domain"
	"docbook/internal/slots"
)

// @Summary Список пользователей
// @Tags Администрирование
// @Produce json
// @Param role query string false "Роль: patient, doctor, admin"
// @Param status query string false "Статус: pending, active, blocked"
// @Param search query string false "Поиск по email, имени или телефону"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse
// @Failure 403 {object} errorResponseBody "Только для администратора"
// @Security ApiKeyAuth
// @Router /admin/users [get]
func (h *Handler) getUsers(c *gin.Context) {
	page := parsePagination(c)
	filter := domain.UserFilter{
		Search: c.Query("search"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	if r := c.Query("role"); r != "" {
		role := domain.UserRole(r)
		filter.Role = &role
	}
	if s := c.Query("status"); s != "" {
		status := domain.UserStatus(s)
		if !status.IsValid() {
			badRequestResponse(c, "неизвестный статус пользователя")
			return
		}
		filter.Status = &status
	}

	users, total, err := h.services.Admin.ListUsers(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err, "ошибка при получении пользователей")
		return
	}

	paginatedSuccessResponse(c, users, total, page)
}

// @Summary Изменить статус пользователя
// @Description Одобряет врача, блокирует или разблокирует аккаунт. Блокировка отзывает все сессии.
// @Tags Администрирование
// @Accept json
// @Produce json
// @Param id path int true "ID пользователя"
// @Param input body domain.UpdateUserStatusDTO true "Новый статус и причина"
// @Success 200 {object} messageResponseType
// @Failure 403 {object} errorResponseBody "Нельзя менять собственный статус"
// @Failure 404 {object} errorResponseBody "Пользователь не найден"
// @Security ApiKeyAuth
// @Router /admin/users/{id}/status [patch]
func (h *Handler) setUserStatus(c *gin.Context) {
	adminID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req domain.UpdateUserStatusDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.services.Admin.SetUserStatus(c.Request.Context(), adminID, userID, req, clientInfo(c)); err != nil {
		h.handleError(c, err, "ошибка при изменении статуса пользователя")
		return
	}

	messageResponse(c, http.StatusOK, "статус обновлен")
}

// @Summary Журнал аутентификации
// @Tags Администрирование
// @Produce json
// @Param user_id query int false "ID пользователя"
// @Param event query string false "Событие: login, logout, refresh, register, otp_verify, status_change"
// @Param success query bool false "Только успешные или только неуспешные"
// @Param date_from query string false "Начальная дата YYYY-MM-DD"
// @Param date_to query string false "Конечная дата YYYY-MM-DD включительно"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse
// @Security ApiKeyAuth
// @Router /admin/auth-logs [get]
func (h *Handler) getAuthLogs(c *gin.Context) {
	page := parsePagination(c)
	filter := domain.AuthLogFilter{Limit: page.Limit, Offset: page.Offset}

	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequestResponse(c, "неверный user_id")
			return
		}
		filter.UserID = &id
	}
	if v := c.Query("event"); v != "" {
		event := domain.AuthEvent(v)
		filter.Event = &event
	}
	if v := c.Query("success"); v != "" {
		success, err := strconv.ParseBool(v)
		if err != nil {
			badRequestResponse(c, "неверное значение success")
			return
		}
		filter.Success = &success
	}
	if v := c.Query("date_from"); v != "" {
		date, err := time.Parse(slots.DateLayout, v)
		if err != nil {
			badRequestResponse(c, domain.ErrInvalidDate.Error())
			return
		}
		filter.StartDate = &date
	}
	if v := c.Query("date_to"); v != "" {
		date, err := time.Parse(slots.DateLayout, v)
		if err != nil {
			badRequestResponse(c, domain.ErrInvalidDate.Error())
			return
		}
		end := date.AddDate(0, 0, 1)
		filter.EndDate = &end
	}

	logs, total, err := h.services.Admin.ListAuthLogs(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err, "ошибка при получении журнала")
		return
	}

	paginatedSuccessResponse(c, logs, total, page)
}

// @Summary Статистика
// @Tags Администрирование
// @Produce json
// @Success 200 {object} domain.Stats
// @Security ApiKeyAuth
// @Router /admin/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.services.Admin.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "ошибка при получении статистики")
		return
	}

	successResponse(c, http.StatusOK, stats)
}
