package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docbook/internal/domain"
	"docbook/internal/slots"
)

type selectedSlotsResponse struct {
	Day   slots.Weekday `json:"day"`
	Slots []int         `json:"slots"`
}

// @Summary Редактируемое расписание
// @Description Возвращает неделю для редактора: черновик, если он есть, иначе сохраненное расписание. Снятые слоты остаются в неделе с isAvailable=false.
// @Tags Расписание
// @Produce json
// @Success 200 {object} domain.ScheduleEditor
// @Failure 404 {object} errorResponseBody "Профиль врача не создан"
// @Security ApiKeyAuth
// @Router /doctors/me/schedule [get]
func (h *Handler) getEditingSchedule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	editor, err := h.services.Doctor.GetEditingWeek(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "ошибка при получении расписания")
		return
	}

	successResponse(c, http.StatusOK, editor)
}

// @Summary Переключить слот
// @Description Добавляет слот в день или меняет его доступность. Изменения хранятся в черновике до отправки.
// @Tags Расписание
// @Accept json
// @Produce json
// @Param input body domain.ToggleSlotRequest true "День недели и номер слота"
// @Success 200 {object} domain.ScheduleEditor
// @Failure 400 {object} errorResponseBody "Неизвестный день или слот"
// @Security ApiKeyAuth
// @Router /doctors/me/schedule/toggle [post]
func (h *Handler) toggleScheduleSlot(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.ToggleSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	editor, err := h.services.Doctor.ToggleSlot(c.Request.Context(), userID, req)
	if err != nil {
		h.handleError(c, err, "ошибка при изменении расписания")
		return
	}

	successResponse(c, http.StatusOK, editor)
}

// @Summary Выбранные слоты дня
// @Tags Расписание
// @Produce json
// @Param day query string true "День недели, например Monday"
// @Success 200 {object} selectedSlotsResponse
// @Failure 400 {object} errorResponseBody "Неизвестный день"
// @Security ApiKeyAuth
// @Router /doctors/me/schedule/selected [get]
func (h *Handler) getSelectedSlots(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	day, ok := slots.ParseWeekday(c.Query("day"))
	if !ok {
		badRequestResponse(c, "неизвестный день недели")
		return
	}

	selected, err := h.services.Doctor.SelectedSlots(c.Request.Context(), userID, day)
	if err != nil {
		h.handleError(c, err, "ошибка при получении расписания")
		return
	}

	successResponse(c, http.StatusOK, selectedSlotsResponse{Day: day, Slots: selected})
}

// @Summary Сохранить расписание
// @Description Сохраняет редактируемую неделю: снятые слоты и пустые дни отбрасываются, черновик удаляется
// @Tags Расписание
// @Produce json
// @Success 200 {object} slots.Schedule
// @Security ApiKeyAuth
// @Router /doctors/me/schedule/submit [post]
func (h *Handler) submitSchedule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	schedule, err := h.services.Doctor.SubmitSchedule(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "ошибка при сохранении расписания")
		return
	}

	successResponse(c, http.StatusOK, schedule)
}

// @Summary Отменить черновик расписания
// @Tags Расписание
// @Success 204 {object} nil
// @Security ApiKeyAuth
// @Router /doctors/me/schedule/draft [delete]
func (h *Handler) discardScheduleDraft(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	if err := h.services.Doctor.DiscardDraft(c.Request.Context(), userID); err != nil {
		h.handleError(c, err, "ошибка при удалении черновика")
		return
	}

	noContentResponse(c)
}
