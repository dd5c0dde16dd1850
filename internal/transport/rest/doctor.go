package rest

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docbook/internal/domain"
)

const maxPhotoSize = 5 << 20

// @Summary Список врачей
// @Description Возвращает активных врачей с фильтром по специализации и поиском по имени
// @Tags Врачи
// @Produce json
// @Param specialization query string false "Специализация"
// @Param search query string false "Поиск по имени"
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} paginatedResponse
// @Router /doctors [get]
func (h *Handler) getDoctors(c *gin.Context) {
	page := parsePagination(c)

	filter := domain.DoctorFilter{
		Search: c.Query("search"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if s := c.Query("specialization"); s != "" {
		filter.Specialization = &s
	}

	doctors, total, err := h.services.Doctor.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err, "ошибка при получении списка врачей")
		return
	}

	paginatedSuccessResponse(c, doctors, total, page)
}

// @Summary Получить врача по ID
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} domain.Doctor "Данные врача с расписанием"
// @Failure 400 {object} errorResponseBody "Неверный формат ID"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id} [get]
func (h *Handler) getDoctorByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doctor, err := h.services.Doctor.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "ошибка при получении врача")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Свободные слоты врача на дату
// @Description Слоты из расписания врача на день недели даты, за вычетом уже занятых
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Param date query string true "Дата в формате YYYY-MM-DD"
// @Success 200 {object} slots.AvailabilityResult
// @Failure 400 {object} errorResponseBody "Неверный формат даты"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Failure 422 {object} errorResponseBody "Дата вне периода записи"
// @Router /doctors/{id}/available-slots [get]
func (h *Handler) getAvailableSlots(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		badRequestResponse(c, "параметр date обязателен")
		return
	}

	result, err := h.services.Appointment.AvailableSlots(c.Request.Context(), id, date)
	if err != nil {
		h.handleError(c, err, "ошибка при получении свободных слотов")
		return
	}

	// the booking screen reads this object as is, without the envelope
	c.JSON(http.StatusOK, result)
}

// @Summary Мой профиль врача
// @Tags Врачи
// @Produce json
// @Success 200 {object} domain.Doctor
// @Failure 404 {object} errorResponseBody "Профиль не создан"
// @Security ApiKeyAuth
// @Router /doctors/me [get]
func (h *Handler) getMyDoctorProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	doctor, err := h.services.Doctor.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "ошибка при получении профиля врача")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Создать профиль врача
// @Tags Врачи
// @Accept json
// @Produce json
// @Param input body domain.CreateDoctorDTO true "Данные профиля"
// @Success 201 {object} successResponseBody "ID профиля"
// @Failure 409 {object} errorResponseBody "Профиль уже существует"
// @Security ApiKeyAuth
// @Router /doctors/me [post]
func (h *Handler) createDoctorProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.CreateDoctorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	id, err := h.services.Doctor.CreateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.handleError(c, err, "ошибка при создании профиля врача")
		return
	}

	createdResponse(c, gin.H{"id": id})
}

// @Summary Обновить профиль врача
// @Description Обновляет поля профиля. Если передано schedule, оно сохраняется как расписание: снятые слоты и пустые дни отбрасываются.
// @Tags Врачи
// @Accept json
// @Produce json
// @Param input body domain.UpdateDoctorDTO true "Данные профиля"
// @Success 200 {object} domain.Doctor
// @Security ApiKeyAuth
// @Router /doctors/me [put]
func (h *Handler) updateDoctorProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.UpdateDoctorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.services.Doctor.UpdateProfile(c.Request.Context(), userID, req); err != nil {
		h.handleError(c, err, "ошибка при обновлении профиля врача")
		return
	}

	doctor, err := h.services.Doctor.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "ошибка при получении профиля врача")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Загрузить фото врача
// @Tags Врачи
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Изображение JPEG, PNG, GIF или WebP до 5 МБ"
// @Success 200 {object} successResponseBody "Ссылка на фото"
// @Failure 400 {object} errorResponseBody "Файл не является изображением"
// @Failure 503 {object} errorResponseBody "Хранилище не настроено"
// @Security ApiKeyAuth
// @Router /doctors/me/photo [post]
func (h *Handler) uploadDoctorPhoto(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		badRequestResponse(c, "файл photo обязателен")
		return
	}
	if file.Size > maxPhotoSize {
		errorResponse(c, http.StatusRequestEntityTooLarge, "файл слишком большой")
		return
	}

	src, err := file.Open()
	if err != nil {
		badRequestResponse(c, "не удалось прочитать файл")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxPhotoSize+1))
	if err != nil {
		badRequestResponse(c, "не удалось прочитать файл")
		return
	}

	url, err := h.services.Doctor.UploadPhoto(c.Request.Context(), userID, data, file.Filename)
	if err != nil {
		h.handleError(c, err, "ошибка при загрузке фото")
		return
	}

	successResponse(c, http.StatusOK, gin.H{"photo_url": url})
}

// @Summary Удалить фото врача
// @Tags Врачи
// @Success 204 {object} nil
// @Security ApiKeyAuth
// @Router /doctors/me/photo [delete]
func (h *Handler) deleteDoctorPhoto(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	if err := h.services.Doctor.DeletePhoto(c.Request.Context(), userID); err != nil {
		h.handleError(c, err, "ошибка при удалении фото")
		return
	}

	noContentResponse(c)
}
