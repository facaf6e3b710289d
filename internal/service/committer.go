package service

import (
	"context"
	"time"

	"github.com/campuskit/enrollment-service/internal/backend"
	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/pkg/logger"
)

// EnrollmentWriter интерфейс записывающих вызовов бэкенда
type EnrollmentWriter interface {
	RecordPayment(ctx context.Context, record backend.PaymentRecord, idempotencyKey string) (string, error)
	CreateEnrollment(ctx context.Context, intake domain.Intake, idempotencyKey string) (backend.CommitResponse, error)
}

// CommitResult результат коммита записи на курс
type CommitResult struct {
	AlreadyExists bool
	EnrollmentID  string
	PaymentID     string
	Message       string
}

// EnrollmentCommitter идемпотентно сохраняет запись на курс (и чек для
// платного пути) на бэкенде. Ответ "уже существует" — успех, а не ошибка.
type EnrollmentCommitter struct {
	backend EnrollmentWriter
	timeout time.Duration
	log     *logger.Logger
}

// NewEnrollmentCommitter создает новый коммиттер записей
func NewEnrollmentCommitter(w EnrollmentWriter, timeout time.Duration, log *logger.Logger) *EnrollmentCommitter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &EnrollmentCommitter{
		backend: w,
		timeout: timeout,
		log:     log,
	}
}

// CommitFree сохраняет бесплатную запись на курс
func (c *EnrollmentCommitter) CommitFree(ctx context.Context, intake domain.Intake, idempotencyKey string) (CommitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.backend.CreateEnrollment(ctx, intake, idempotencyKey)
	if err != nil {
		c.log.Error("Free enrollment commit failed for %s: %v", intake.Email, err)
		return CommitResult{}, err
	}

	return commitResultFrom(resp, ""), nil
}

// CommitPaid сохраняет чек и запись на курс для платного пути.
// Вызывается строго после подтвержденного списания. Любой сбой записи на
// этом этапе — CommitFailureError с идентификатором транзакции: повтор
// запрещен (риск двойного списания), сверка выполняется поддержкой вручную.
func (c *EnrollmentCommitter) CommitPaid(ctx context.Context, intake domain.Intake, receipt domain.PaymentReceipt, idempotencyKey string) (CommitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	record := backend.PaymentRecord{
		Email:         intake.Email,
		CourseID:      intake.CourseID,
		CourseTitle:   intake.CourseTitle,
		Amount:        receipt.Amount,
		Currency:      receipt.Currency,
		TransactionID: receipt.TransactionID,
		Status:        receipt.Status,
	}

	paymentID, err := c.backend.RecordPayment(ctx, record, idempotencyKey)
	if err != nil {
		c.log.Error("Payment record write failed after confirmed charge %s: %v",
			receipt.TransactionID, err)
		return CommitResult{}, &domain.CommitFailureError{
			TransactionID: receipt.TransactionID,
			OriginalErr:   err,
		}
	}

	resp, err := c.backend.CreateEnrollment(ctx, intake, idempotencyKey)
	if err != nil {
		c.log.Error("Enrollment write failed after confirmed charge %s: %v",
			receipt.TransactionID, err)
		return CommitResult{}, &domain.CommitFailureError{
			TransactionID: receipt.TransactionID,
			OriginalErr:   err,
		}
	}

	return commitResultFrom(resp, paymentID), nil
}

// commitResultFrom формирует результат коммита из ответа бэкенда
func commitResultFrom(resp backend.CommitResponse, paymentID string) CommitResult {
	return CommitResult{
		AlreadyExists: resp.AlreadyExists,
		EnrollmentID:  resp.InsertedID,
		PaymentID:     paymentID,
		Message:       resp.Message,
	}
}
