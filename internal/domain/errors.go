package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrEndpointNotFound эндпоинт бэкенда отсутствует или не настроен
	ErrEndpointNotFound = errors.New("backend endpoint not found")

	// ErrAnonymousLearner слушатель не аутентифицирован
	ErrAnonymousLearner = errors.New("learner is not authenticated")

	// ErrCheckoutInFlight оформление для этой пары (слушатель, курс) уже выполняется
	ErrCheckoutInFlight = errors.New("checkout already in progress")

	// ErrConfirmationRequired сумма и курс не подтверждены слушателем
	ErrConfirmationRequired = errors.New("payment confirmation required")

	// ErrInvalidTransition недопустимый переход конечного автомата
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidPrice цена не подходит для платного оформления
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrCourseNotFound курс не найден
	ErrCourseNotFound = errors.New("course not found")
)

// ValidationError представляет ошибку валидации одного поля анкеты
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors представляет набор ошибок валидации.
// Разрешается локально и никогда не доходит до сети.
type ValidationErrors []ValidationError

// Error реализует интерфейс error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}

	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// GetByField возвращает сообщение об ошибке для указанного поля
func (e ValidationErrors) GetByField(field string) string {
	for _, err := range e {
		if err.Field == field {
			return err.Message
		}
	}
	return ""
}

// ProvisioningError представляет ошибку выдачи платежного токена.
// Отличается от ErrEndpointNotFound: токен-заглушка для нее не создается,
// поток останавливается с возможностью повторной отправки.
type ProvisioningError struct {
	StatusCode  int
	Message     string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ProvisioningError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("provisioning failed: %s: %v", e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("provisioning failed: %s", e.Message)
}

// Unwrap возвращает оригинальную ошибку
func (e *ProvisioningError) Unwrap() error {
	return e.OriginalErr
}

// PaymentStage этап платежа, на котором произошла ошибка
type PaymentStage string

const (
	// PaymentStageInstrument создание платежного метода (инструмент отклонен)
	PaymentStageInstrument PaymentStage = "instrument"

	// PaymentStageCharge подтверждение списания (списание отклонено)
	PaymentStageCharge PaymentStage = "charge"
)

// PaymentError представляет ошибку платежного провайдера.
// Этапы instrument и charge независимы: оба переводят исполнитель в failed
// с пользовательским сообщением провайдера и разрешают повторную отправку.
type PaymentError struct {
	Stage       PaymentStage
	Code        string
	Message     string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *PaymentError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("payment %s error [%s]: %s: %v", e.Stage, e.Code, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("payment %s error [%s]: %s", e.Stage, e.Code, e.Message)
}

// Unwrap возвращает оригинальную ошибку
func (e *PaymentError) Unwrap() error {
	return e.OriginalErr
}

// NewPaymentError создает новую ошибку платежа
func NewPaymentError(stage PaymentStage, code, message string, err error) *PaymentError {
	return &PaymentError{
		Stage:       stage,
		Code:        code,
		Message:     message,
		OriginalErr: err,
	}
}

// CommitFailureError представляет сбой записи на бэкенд после подтвержденного
// списания: деньги сняты, запись не сохранена. Автоматический повтор запрещен
// (риск двойного списания); идентификатор транзакции обязан дойти до
// пользователя для ручной сверки поддержкой.
type CommitFailureError struct {
	TransactionID string
	OriginalErr   error
}

// Error реализует интерфейс error
func (e *CommitFailureError) Error() string {
	return fmt.Sprintf("enrollment commit failed after confirmed charge (transaction_id: %s): %v",
		e.TransactionID, e.OriginalErr)
}

// Unwrap возвращает оригинальную ошибку
func (e *CommitFailureError) Unwrap() error {
	return e.OriginalErr
}
