package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docbook/internal/domain"
)

// @Summary Получить текущего пользователя
// @Tags Пользователи
// @Produce json
// @Success 200 {object} domain.User "Данные пользователя"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Security ApiKeyAuth
// @Router /users/me [get]
func (h *Handler) getCurrentUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	user, err := h.services.User.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "ошибка при получении пользователя")
		return
	}

	successResponse(c, http.StatusOK, user)
}

// @Summary Обновить текущего пользователя
// @Description Обновляет имя, фамилию и телефон. Пустые поля не изменяются.
// @Tags Пользователи
// @Accept json
// @Produce json
// @Param input body domain.UpdateUserDTO true "Новые данные пользователя"
// @Success 200 {object} domain.User "Обновленный пользователь"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 409 {object} errorResponseBody "Телефон уже занят"
// @Security ApiKeyAuth
// @Router /users/me [put]
func (h *Handler) updateCurrentUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.UpdateUserDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.services.User.Update(c.Request.Context(), userID, req); err != nil {
		h.handleError(c, err, "ошибка при обновлении пользователя")
		return
	}

	user, err := h.services.User.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "ошибка при получении пользователя")
		return
	}

	successResponse(c, http.StatusOK, user)
}

// @Summary Сменить пароль
// @Tags Пользователи
// @Accept json
// @Produce json
// @Param input body domain.PasswordUpdateDTO true "Старый и новый пароль"
// @Success 204 {object} nil "Пароль обновлен"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 401 {object} errorResponseBody "Неверный старый пароль"
// @Security ApiKeyAuth
// @Router /users/me/password [put]
func (h *Handler) updatePassword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.PasswordUpdateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.services.User.UpdatePassword(c.Request.Context(), userID, req); err != nil {
		h.handleError(c, err, "ошибка при обновлении пароля")
		return
	}

	noContentResponse(c)
}
