package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/campuskit/enrollment-service/config"
	"github.com/campuskit/enrollment-service/internal/api/rest"
	"github.com/campuskit/enrollment-service/internal/backend"
	"github.com/campuskit/enrollment-service/internal/kafka"
	"github.com/campuskit/enrollment-service/internal/kafka/producer"
	"github.com/campuskit/enrollment-service/internal/metrics"
	"github.com/campuskit/enrollment-service/internal/provider"
	"github.com/campuskit/enrollment-service/internal/repository"
	"github.com/campuskit/enrollment-service/internal/repository/postgres"
	"github.com/campuskit/enrollment-service/internal/service"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

var log *logger.Logger

func init() {
	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		// Пропускаем ошибку, если .env файл не найден
	}

	// Инициализация логгера
	logLevel := logger.INFO
	if os.Getenv("DEBUG") == "true" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	// Уровень логирования из конфигурации, если не включен DEBUG
	if os.Getenv("DEBUG") != "true" {
		log = logger.New(logger.ParseLevel(cfg.Logging.Level))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация Prometheus
	promRegistry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(promRegistry, log)
	systemMetrics := metrics.NewSystemMetrics(promRegistry, log)

	// Запускаем сбор системных метрик
	systemMetrics.StartRecording(15 * time.Second)
	defer systemMetrics.Stop()

	// Подключение к базе данных для журнала попыток
	dbPool, err := postgres.NewConnection(ctx, cfg.Database.GetDSN(), log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()
	journal := postgres.NewPostgresAttemptJournal(dbPool, log)

	// Кэш "мои записи": Redis или fallback в память
	var cache repository.EnrollmentCache
	if cfg.Redis.Addr != "" {
		redisCache, err := repository.NewRedisEnrollmentCache(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Checkout.CacheTTLMinutes)*time.Minute,
			log,
		)
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		cache = redisCache
	} else {
		log.Warn("REDIS_ADDR is not set, using in-memory enrollment cache")
		cache = repository.NewInMemoryEnrollmentCache(log)
	}

	// Инициализация Kafka продюсера
	var checkoutProducer producer.CheckoutProducer
	if cfg.Kafka.Enabled {
		kafkaConfig := kafka.NewConfig(cfg.Kafka.Brokers)
		saramaConfig := kafka.NewSaramaConfig(kafkaConfig)

		kafkaProducer, err := sarama.NewSyncProducer(kafkaConfig.Brokers, saramaConfig)
		if err != nil {
			log.Fatal("Failed to create Kafka producer: %v", err)
		}
		defer kafkaProducer.Close()

		checkoutProducer = producer.NewKafkaCheckoutProducer(kafkaProducer, log)
	} else {
		log.Warn("Kafka is disabled, checkout events will not be published")
		checkoutProducer = producer.NewNoopCheckoutProducer()
	}

	// Клиенты внешних коллабораторов
	backendClient := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: time.Duration(cfg.Backend.Timeout) * time.Second,
	}, log)

	providerClient := provider.NewClient(provider.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		IsTest:  cfg.Provider.IsTest,
	}, log)

	// Сборка компонентов оформления
	enrollmentQuery := service.NewEnrollmentQuery(backendClient, cache, log)
	intakeValidator := service.NewIntakeValidator(log)
	provisioner := service.NewIntentProvisioner(
		backendClient,
		checkoutMetrics,
		time.Duration(cfg.Checkout.ProvisionTimeout)*time.Second,
		log,
	)
	committer := service.NewEnrollmentCommitter(
		backendClient,
		time.Duration(cfg.Checkout.CommitTimeout)*time.Second,
		log,
	)

	orchestrator := service.NewCheckoutOrchestrator(service.CheckoutDeps{
		Courses:     backendClient,
		Query:       enrollmentQuery,
		Intake:      intakeValidator,
		Provisioner: provisioner,
		Committer:   committer,
		Provider:    providerClient,
		Cache:       cache,
		Journal:     journal,
		Events:      checkoutProducer,
		Metrics:     checkoutMetrics,
	}, log)

	// Установка режима Gin
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Настройка маршрутизатора
	router := rest.SetupRouter(log, promRegistry, orchestrator, backendClient)

	// Создание и запуск HTTP сервера
	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
