package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docbook/config"
	_ "docbook/docs"
	"docbook/internal/cache"
	"docbook/internal/domain"
	"docbook/internal/metrics"
	"docbook/internal/repository"
	"docbook/internal/service"
	"docbook/internal/storage"
	"docbook/internal/transport/rest"
	"docbook/internal/transport/websocket"
	"docbook/pkg/database"
	"docbook/pkg/logger"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Docbook API
// @version 1.0
// @description API записи пациентов к врачам

// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Service:     cfg.Name,
		Version:     cfg.Version,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(ctx, cfg.Postgres, log)
	if err != nil {
		log.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer db.Close()

	log.Info("Запуск миграций базы данных")
	if err := database.RunMigrations(ctx, db, cfg.Postgres.MigrationsDir, log); err != nil {
		log.Fatal("Ошибка при выполнении миграций", zap.Error(err))
	}
	log.Info("Миграции успешно выполнены")

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Не удалось подключиться к Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var fileStorage storage.FileStorage
	if cfg.S3.Endpoint != "" {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			log.Fatal("Не удалось инициализировать S3 хранилище", zap.Error(err))
		}
		fileStorage = s3Storage
		log.Info("S3 хранилище инициализировано", zap.String("endpoint", cfg.S3.Endpoint))
	} else {
		log.Warn("S3 хранилище не настроено, загрузка фото недоступна")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// the hub authenticates through the auth service, which does not exist yet
	var services *service.Services
	hub := websocket.NewNotificationHub(
		websocket.TokenParserFunc(func(ctx context.Context, token string) (int64, domain.UserRole, error) {
			return services.Auth.ParseToken(ctx, token)
		}),
		cfg.CORS.AllowedOrigins,
		m,
		log,
	)

	services = service.NewServices(service.Deps{
		Repos:        repository.NewRepositories(db),
		Logger:       log,
		Config:       cfg,
		FileStorage:  fileStorage,
		Drafts:       cache.NewDraftStore(redisClient, cfg.Redis.DraftTTL),
		OTP:          cache.NewOTPStore(redisClient, cfg.OTP.TTL, cfg.OTP.ResendCooldown),
		Availability: cache.NewAvailabilityCache(redisClient, cfg.Redis.CacheTTL),
		Notifier:     hub,
		Metrics:      m,
	})

	if err := services.Admin.EnsureAdmin(ctx, cfg.Admin); err != nil {
		log.Fatal("Не удалось создать администратора", zap.Error(err))
	}

	go hub.Run(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := rest.NewHandler(services, log, cfg, hub, m)
	handler.InitRoutes(router)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderMB << 20,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Ошибка запуска сервера", zap.Error(err))
			stop()
		}
	}()

	log.Info("Сервер запущен", zap.String("addr", srv.Addr))

	<-ctx.Done()
	log.Info("Выключение сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Ошибка при остановке сервера", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Сервер успешно остановлен")
}
