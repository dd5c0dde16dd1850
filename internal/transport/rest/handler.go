package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docbook/config"
	"docbook/internal/domain"
	"docbook/internal/metrics"
	"docbook/internal/service"
	"docbook/internal/transport/websocket"
)

type Handler struct {
	services    *service.Services
	logger      *zap.Logger
	config      *config.Config
	hub         *websocket.NotificationHub
	metrics     *metrics.Metrics
	authLimiter *ipRateLimiter
}

func NewHandler(services *service.Services, logger *zap.Logger, cfg *config.Config, hub *websocket.NotificationHub, m *metrics.Metrics) *Handler {
	return &Handler{
		services:    services,
		logger:      logger,
		config:      cfg,
		hub:         hub,
		metrics:     m,
		authLimiter: newIPRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst),
	}
}

func (h *Handler) InitRoutes(router *gin.Engine) {
	router.Use(h.loggerMiddleware())
	router.Use(h.errorMiddleware())
	router.Use(h.metricsMiddleware())
	router.Use(h.corsMiddleware())

	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth", h.rateLimitMiddleware(h.authLimiter))
		{
			auth.POST("/register", h.register)
			auth.POST("/verify-otp", h.verifyOTP)
			auth.POST("/resend-otp", h.resendOTP)
			auth.POST("/login", h.login)
			auth.POST("/refresh", h.refreshTokens)
			auth.POST("/logout", h.logout)
		}

		users := api.Group("/users", h.authMiddleware())
		{
			users.GET("/me", h.getCurrentUser)
			users.PUT("/me", h.updateCurrentUser)
			users.PUT("/me/password", h.updatePassword)
		}

		slotRoutes := api.Group("/slots")
		{
			slotRoutes.GET("", h.getSlotCatalog)
			slotRoutes.GET("/blocks", h.getSlotBlocks)
			slotRoutes.GET("/blocks/:index", h.getBlockSlots)
		}

		h.initDoctorRoutes(api)

		appointments := api.Group("/appointments", h.authMiddleware())
		{
			appointments.POST("", h.roleMiddleware(domain.UserRolePatient), h.createAppointment)
			appointments.GET("", h.getAppointments)
			appointments.GET("/:id", h.getAppointmentByID)
			appointments.POST("/:id/cancel", h.roleMiddleware(domain.UserRolePatient), h.cancelAppointment)

			doctor := appointments.Group("/:id", h.roleMiddleware(domain.UserRoleDoctor))
			{
				doctor.POST("/approve", h.approveAppointment)
				doctor.POST("/decline", h.declineAppointment)
				doctor.POST("/complete", h.completeAppointment)
			}
		}

		admin := api.Group("/admin", h.authMiddleware(), h.roleMiddleware(domain.UserRoleAdmin))
		{
			admin.GET("/users", h.getUsers)
			admin.PATCH("/users/:id/status", h.setUserStatus)
			admin.GET("/auth-logs", h.getAuthLogs)
			admin.GET("/stats", h.getStats)
		}
	}

	if h.hub != nil {
		router.GET("/ws/notifications", h.hub.HandleWebSocket)
	}
}

func (h *Handler) initDoctorRoutes(api *gin.RouterGroup) {
	doctors := api.Group("/doctors")

	// /me is registered before /:id so gin matches it literally
	me := doctors.Group("/me", h.authMiddleware(), h.roleMiddleware(domain.UserRoleDoctor))
	{
		me.GET("", h.getMyDoctorProfile)
		me.POST("", h.createDoctorProfile)
		me.PUT("", h.updateDoctorProfile)

		me.GET("/schedule", h.getEditingSchedule)
		me.POST("/schedule/toggle", h.toggleScheduleSlot)
		me.GET("/schedule/selected", h.getSelectedSlots)
		me.POST("/schedule/submit", h.submitSchedule)
		me.DELETE("/schedule/draft", h.discardScheduleDraft)

		me.POST("/photo", h.uploadDoctorPhoto)
		me.DELETE("/photo", h.deleteDoctorPhoto)
	}

	doctors.GET("", h.getDoctors)
	doctors.GET("/:id", h.getDoctorByID)
	doctors.GET("/:id/available-slots", h.getAvailableSlots)
}

// @Summary Проверка состояния
// @Tags Служебные
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    h.config.Name,
		"version": h.config.Version,
	})
}
