package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docbook/internal/domain"
	"docbook/internal/slots"
)

// @Summary Записаться к врачу
// @Description Создает запись в статусе pending на свободный слот. Слот определяется номером, время берется из каталога.
// @Tags Записи
// @Accept json
// @Produce json
// @Param input body domain.CreateAppointmentDTO true "Врач, дата и номер слота"
// @Success 201 {object} domain.Appointment
// @Failure 400 {object} errorResponseBody "Неверный формат даты"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Failure 409 {object} errorResponseBody "Слот недоступен или уже занят"
// @Failure 422 {object} errorResponseBody "Дата вне периода записи"
// @Security ApiKeyAuth
// @Router /appointments [post]
func (h *Handler) createAppointment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.CreateAppointmentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	appointment, err := h.services.Appointment.Book(c.Request.Context(), userID, req)
	if err != nil {
		h.handleError(c, err, "ошибка создания записи")
		return
	}

	createdResponse(c, appointment)
}

// @Summary Список записей
// @Description Пациент видит свои записи, врач записи к себе, администратор все
// @Tags Записи
// @Produce json
// @Param status query string false "Статус записи"
// @Param date_from query string false "Начальная дата YYYY-MM-DD"
// @Param date_to query string false "Конечная дата YYYY-MM-DD"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse
// @Failure 400 {object} errorResponseBody "Неверный фильтр"
// @Security ApiKeyAuth
// @Router /appointments [get]
func (h *Handler) getAppointments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}
	role, err := getUserRole(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	page := parsePagination(c)
	filter := domain.AppointmentFilter{Limit: page.Limit, Offset: page.Offset}

	if s := c.Query("status"); s != "" {
		status := domain.AppointmentStatus(s)
		if !status.IsValid() {
			badRequestResponse(c, "неизвестный статус записи")
			return
		}
		filter.Status = &status
	}

	if from := c.Query("date_from"); from != "" {
		date, err := time.Parse(slots.DateLayout, from)
		if err != nil {
			badRequestResponse(c, domain.ErrInvalidDate.Error())
			return
		}
		filter.StartDate = &date
	}

	if to := c.Query("date_to"); to != "" {
		date, err := time.Parse(slots.DateLayout, to)
		if err != nil {
			badRequestResponse(c, domain.ErrInvalidDate.Error())
			return
		}
		filter.EndDate = &date
	}

	appointments, total, err := h.services.Appointment.List(c.Request.Context(), userID, role, filter)
	if err != nil {
		h.handleError(c, err, "ошибка при получении записей")
		return
	}

	paginatedSuccessResponse(c, appointments, total, page)
}

// @Summary Получить запись по ID
// @Tags Записи
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} domain.Appointment
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Запись не найдена"
// @Security ApiKeyAuth
// @Router /appointments/{id} [get]
func (h *Handler) getAppointmentByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}
	role, err := getUserRole(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	appointment, err := h.services.Appointment.GetByID(c.Request.Context(), userID, role, id)
	if err != nil {
		h.handleError(c, err, "ошибка получения записи")
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

// @Summary Отменить запись
// @Description Пациент отменяет свою запись в статусе pending или approved, слот освобождается
// @Tags Записи
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} domain.Appointment
// @Failure 403 {object} errorResponseBody "Чужая запись"
// @Failure 409 {object} errorResponseBody "Недопустимый переход статуса"
// @Security ApiKeyAuth
// @Router /appointments/{id}/cancel [post]
func (h *Handler) cancelAppointment(c *gin.Context) {
	h.changeStatus(c, func(userID, id int64) (*domain.Appointment, error) {
		return h.services.Appointment.Cancel(c.Request.Context(), userID, id)
	})
}

// @Summary Подтвердить запись
// @Tags Записи
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} domain.Appointment
// @Failure 403 {object} errorResponseBody "Запись к другому врачу"
// @Failure 409 {object} errorResponseBody "Недопустимый переход статуса"
// @Security ApiKeyAuth
// @Router /appointments/{id}/approve [post]
func (h *Handler) approveAppointment(c *gin.Context) {
	h.changeStatus(c, func(userID, id int64) (*domain.Appointment, error) {
		return h.services.Appointment.Approve(c.Request.Context(), userID, id)
	})
}

// @Summary Отклонить запись
// @Tags Записи
// @Accept json
// @Produce json
// @Param id path int true "ID записи"
// @Param input body domain.DeclineAppointmentDTO false "Причина отказа"
// @Success 200 {object} domain.Appointment
// @Failure 409 {object} errorResponseBody "Недопустимый переход статуса"
// @Security ApiKeyAuth
// @Router /appointments/{id}/decline [post]
func (h *Handler) declineAppointment(c *gin.Context) {
	var req domain.DeclineAppointmentDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	h.changeStatus(c, func(userID, id int64) (*domain.Appointment, error) {
		return h.services.Appointment.Decline(c.Request.Context(), userID, id, req.Reason)
	})
}

// @Summary Завершить прием
// @Tags Записи
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} domain.Appointment
// @Failure 409 {object} errorResponseBody "Недопустимый переход статуса"
// @Security ApiKeyAuth
// @Router /appointments/{id}/complete [post]
func (h *Handler) completeAppointment(c *gin.Context) {
	h.changeStatus(c, func(userID, id int64) (*domain.Appointment, error) {
		return h.services.Appointment.Complete(c.Request.Context(), userID, id)
	})
}

func (h *Handler) changeStatus(c *gin.Context, apply func(userID, id int64) (*domain.Appointment, error)) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	appointment, err := apply(userID, id)
	if err != nil {
		h.handleError(c, err, "ошибка при изменении статуса записи")
		return
	}

	successResponse(c, http.StatusOK, appointment)
}
