package rest

import (
	"github.com/campuskit/enrollment-service/internal/api/rest/handlers"
	"github.com/campuskit/enrollment-service/internal/api/rest/middleware"
	"github.com/campuskit/enrollment-service/internal/service"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(log *logger.Logger, registry *prometheus.Registry, orchestrator *service.CheckoutOrchestrator, courses service.CourseFetcher) *gin.Engine {
	r := gin.New()

	// Подключение middleware
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Инициализация обработчиков
	enrollmentHandler := handlers.NewEnrollmentHandler(orchestrator, courses, log)
	checkoutHandler := handlers.NewCheckoutHandler(orchestrator, log)

	// API оформления записи на курсы
	v1 := r.Group("/api/v1")
	{
		courseRoutes := v1.Group("/courses")
		{
			courseRoutes.GET("/:id", enrollmentHandler.GetCourse)
		}

		enrollments := v1.Group("/enrollments")
		{
			enrollments.GET("/status", enrollmentHandler.GetEnrollmentStatus)
		}

		v1.POST("/checkout", checkoutHandler.Checkout)
	}

	return r
}
