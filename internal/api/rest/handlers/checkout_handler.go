package handlers

import (
	"errors"
	"net/http"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/internal/service"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// CheckoutHandler обработчик потока оформления
type CheckoutHandler struct {
	orchestrator *service.CheckoutOrchestrator
	log          *logger.Logger
}

// NewCheckoutHandler создает новый обработчик оформления
func NewCheckoutHandler(orchestrator *service.CheckoutOrchestrator, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: orchestrator,
		log:          log,
	}
}

// CheckoutRequest представляет тело запроса на оформление
type CheckoutRequest struct {
	Learner struct {
		ID    string `json:"id"`
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name"`
	} `json:"learner" binding:"required"`
	CourseID  string             `json:"courseId" binding:"required"`
	Intake    domain.Intake      `json:"intake"`
	Card      domain.CardDetails `json:"card"`
	Confirmed bool               `json:"confirmed"`
}

// checkoutResponse представляет тело ответа оформления
type checkoutResponse struct {
	State         string `json:"state"`
	AttemptID     string `json:"attemptId,omitempty"`
	Message       string `json:"message,omitempty"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
	EnrollmentID  string `json:"enrollmentId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Checkout проводит полный поток оформления записи на курс.
// Единственное место выдачи пользовательских сообщений об ошибках:
// сообщения консистентны, автомат чисто возвращается в отправляемое состояние.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid checkout request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orchestrator.Submit(c.Request.Context(), service.CheckoutRequest{
		Learner: domain.Learner{
			ID:    req.Learner.ID,
			Email: req.Learner.Email,
			Name:  req.Learner.Name,
		},
		CourseID:  req.CourseID,
		Intake:    req.Intake,
		Card:      req.Card,
		Confirmed: req.Confirmed,
	})
	if err != nil {
		h.renderError(c, result, err)
		return
	}

	c.JSON(http.StatusOK, checkoutResponse{
		State:         string(result.State),
		AttemptID:     result.AttemptID.String(),
		Message:       result.Message,
		AlreadyExists: result.AlreadyExists,
		EnrollmentID:  result.EnrollmentID,
		TransactionID: result.TransactionID,
	})
}

// renderError отображает таксономию ошибок оформления в HTTP ответы
func (h *CheckoutHandler) renderError(c *gin.Context, result service.CheckoutResult, err error) {
	var validationErrors domain.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": validationErrors,
		})
		return
	}

	var commitFailure *domain.CommitFailureError
	if errors.As(err, &commitFailure) {
		// Деньги сняты, запись не сохранена: идентификатор транзакции
		// обязан дойти до пользователя для ручной сверки
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":         service.MessageContactSupport,
			"transactionId": commitFailure.TransactionID,
			"attemptId":     result.AttemptID.String(),
		})
		return
	}

	var paymentErr *domain.PaymentError
	if errors.As(err, &paymentErr) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": paymentErr.Message,
			"stage": string(paymentErr.Stage),
		})
		return
	}

	var provisioningErr *domain.ProvisioningError
	if errors.As(err, &provisioningErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start payment, please try again"})
		return
	}

	switch {
	case errors.Is(err, domain.ErrAnonymousLearner):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to enroll"})
	case errors.Is(err, domain.ErrCheckoutInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "Checkout already in progress"})
	case errors.Is(err, domain.ErrConfirmationRequired):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "Confirm the amount and course to continue"})
	case errors.Is(err, domain.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
	default:
		h.log.Error("Checkout failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
	}
}
