package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docbook/internal/domain"
)

// @Summary Регистрация нового пользователя
// @Description Регистрирует пациента или врача и отправляет код подтверждения на email. Врачи получают статус pending до одобрения администратором.
// @Tags Авторизация
// @Accept json
// @Produce json
// @Param input body domain.RegisterRequest true "Данные для регистрации"
// @Success 201 {object} successResponseBody "ID созданного пользователя"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 409 {object} errorResponseBody "Email или телефон уже заняты"
// @Failure 429 {object} errorResponseBody "Слишком много запросов"
// @Router /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var input domain.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	id, err := h.services.Auth.Register(c.Request.Context(), input, clientInfo(c))
	if err != nil {
		h.handleError(c, err, "ошибка при регистрации")
		return
	}

	createdResponse(c, gin.H{"id": id})
}

// @Summary Подтверждение email
// @Description Проверяет одноразовый код, отправленный при регистрации
// @Tags Авторизация
// @Accept json
// @Produce json
// @Param input body domain.VerifyOTPRequest true "Email и код"
// @Success 200 {object} messageResponseType
// @Failure 400 {object} errorResponseBody "Неверный или просроченный код"
// @Failure 429 {object} errorResponseBody "Превышено количество попыток"
// @Router /auth/verify-otp [post]
func (h *Handler) verifyOTP(c *gin.Context) {
	var input domain.VerifyOTPRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	if err := h.services.Auth.VerifyOTP(c.Request.Context(), input, clientInfo(c)); err != nil {
		h.handleError(c, err, "ошибка при проверке кода")
		return
	}

	messageResponse(c, http.StatusOK, "email подтвержден")
}

// @Summary Повторная отправка кода
// @Tags Авторизация
// @Accept json
// @Produce json
// @Param input body domain.ResendOTPRequest true "Email"
// @Success 200 {object} messageResponseType
// @Failure 404 {object} errorResponseBody "Пользователь не найден"
// @Router /auth/resend-otp [post]
func (h *Handler) resendOTP(c *gin.Context) {
	var input domain.ResendOTPRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	if err := h.services.Auth.ResendOTP(c.Request.Context(), input.Email); err != nil {
		h.handleError(c, err, "ошибка при отправке кода")
		return
	}

	messageResponse(c, http.StatusOK, "код отправлен")
}

// @Summary Вход в систему
// @Description Авторизует пользователя по email или телефону и возвращает токены доступа
// @Tags Авторизация
// @Accept json
// @Produce json
// @Param input body domain.LoginRequest true "Данные для входа"
// @Success 200 {object} domain.Tokens "Токены доступа и обновления"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 401 {object} errorResponseBody "Неверные учетные данные"
// @Failure 403 {object} errorResponseBody "Аккаунт заблокирован, не подтвержден или ожидает одобрения"
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input domain.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	tokens, err := h.services.Auth.Login(c.Request.Context(), input, clientInfo(c))
	if err != nil {
		h.handleError(c, err, "ошибка при входе")
		return
	}

	successResponse(c, http.StatusOK, tokens)
}

// @Summary Обновление токена
// @Description Обновляет токены доступа и обновления
// @Tags Авторизация
// @Accept json
// @Produce json
// @Param input body domain.RefreshTokenRequest true "Токен обновления"
// @Success 200 {object} domain.Tokens "Новые токены доступа и обновления"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 401 {object} errorResponseBody "Неверный токен обновления"
// @Router /auth/refresh [post]
func (h *Handler) refreshTokens(c *gin.Context) {
	var input domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	tokens, err := h.services.Auth.RefreshTokens(c.Request.Context(), input.RefreshToken, clientInfo(c))
	if err != nil {
		h.handleError(c, err, "ошибка при обновлении токенов")
		return
	}

	successResponse(c, http.StatusOK, tokens)
}

// @Summary Выход из системы
// @Description Завершает сессию пользователя
// @Tags Авторизация
// @Accept json
// @Produce json
// @Param input body domain.RefreshTokenRequest true "Токен обновления"
// @Success 204 {object} nil "Успешный выход"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Router /auth/logout [post]
func (h *Handler) logout(c *gin.Context) {
	var input domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	if err := h.services.Auth.Logout(c.Request.Context(), input.RefreshToken, clientInfo(c)); err != nil {
		h.handleError(c, err, "ошибка при выходе")
		return
	}

	noContentResponse(c)
}
