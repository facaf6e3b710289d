package handlers

import (
	"errors"
	"net/http"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/internal/service"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// EnrollmentHandler обработчик для статуса записи и документов курсов
type EnrollmentHandler struct {
	orchestrator *service.CheckoutOrchestrator
	courses      service.CourseFetcher
	log          *logger.Logger
}

// NewEnrollmentHandler создает новый обработчик записей
func NewEnrollmentHandler(orchestrator *service.CheckoutOrchestrator, courses service.CourseFetcher, log *logger.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		orchestrator: orchestrator,
		courses:      courses,
		log:          log,
	}
}

// GetEnrollmentStatus возвращает статус записи слушателя на курс.
// По нему UI отключает действие записи; ответ рекомендательный, авторитетная
// проверка дубликата выполняется бэкендом при коммите.
func (h *EnrollmentHandler) GetEnrollmentStatus(c *gin.Context) {
	email := c.Query("email")
	courseID := c.Query("courseId")

	if courseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "courseId is required"})
		return
	}

	learner := domain.Learner{Email: email}
	enrolled := h.orchestrator.AlreadyEnrolled(c.Request.Context(), learner, courseID)

	c.JSON(http.StatusOK, gin.H{"enrolled": enrolled})
}

// GetCourse возвращает документ курса по ID
func (h *EnrollmentHandler) GetCourse(c *gin.Context) {
	id := c.Param("id")

	course, err := h.courses.GetCourse(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			h.log.Warn("Course not found: %s", id)
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
			return
		}

		h.log.Error("Failed to fetch course %s: %v", id, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch course"})
		return
	}

	c.JSON(http.StatusOK, course)
}
