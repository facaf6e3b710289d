package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campuskit/enrollment-service/internal/backend"
	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReceipt() domain.PaymentReceipt {
	return domain.PaymentReceipt{
		TransactionID: "txn_77",
		Amount:        99,
		Currency:      "USD",
		Timestamp:     time.Now(),
		Status:        domain.PaymentStatusCompleted,
	}
}

func TestCommitFreeSuccess(t *testing.T) {
	b := &fakeBackend{enrollResp: backend.CommitResponse{InsertedID: "enr-10"}}
	c := NewEnrollmentCommitter(b, 0, testLogger())

	result, err := c.CommitFree(context.Background(), validIntake(), "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-10", result.EnrollmentID)
	assert.False(t, result.AlreadyExists)

	// Ключ идемпотентности — идентификатор попытки
	require.Len(t, b.enrollIdemKeys, 1)
	assert.Equal(t, "attempt-1", b.enrollIdemKeys[0])
}

func TestCommitFreeAlreadyExistsIsSuccess(t *testing.T) {
	b := &fakeBackend{enrollResp: backend.CommitResponse{AlreadyExists: true, Message: "already enrolled"}}
	c := NewEnrollmentCommitter(b, 0, testLogger())

	result, err := c.CommitFree(context.Background(), validIntake(), "attempt-1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyExists)
	assert.Equal(t, "already enrolled", result.Message)
}

func TestCommitFreeErrorIsNotCommitFailure(t *testing.T) {
	b := &fakeBackend{enrollErr: errors.New("backend down")}
	c := NewEnrollmentCommitter(b, 0, testLogger())

	_, err := c.CommitFree(context.Background(), validIntake(), "attempt-1")
	require.Error(t, err)

	// Деньги не списывались, поэтому это обычная ошибка, а не CommitFailureError
	var commitFailure *domain.CommitFailureError
	assert.False(t, errors.As(err, &commitFailure))
}

func TestCommitPaidWritesReceiptThenEnrollment(t *testing.T) {
	b := &fakeBackend{enrollResp: backend.CommitResponse{InsertedID: "enr-11"}}
	c := NewEnrollmentCommitter(b, 0, testLogger())

	intake := validIntake()
	intake.Email = "asel@example.com"
	intake.CourseID = "course-paid"
	intake.CourseTitle = "Advanced Go"

	result, err := c.CommitPaid(context.Background(), intake, testReceipt(), "attempt-2")
	require.NoError(t, err)
	assert.Equal(t, "enr-11", result.EnrollmentID)
	assert.Equal(t, "payment-1", result.PaymentID)

	assert.Equal(t, []string{"RecordPayment", "CreateEnrollment"}, b.callList())
	require.Len(t, b.paymentRecords, 1)
	assert.Equal(t, "txn_77", b.paymentRecords[0].TransactionID)
	assert.Equal(t, "Advanced Go", b.paymentRecords[0].CourseTitle)

	// Обе записи используют один ключ идемпотентности
	assert.Equal(t, []string{"attempt-2"}, b.paymentIdemKeys)
	assert.Equal(t, []string{"attempt-2"}, b.enrollIdemKeys)
}

func TestCommitPaidPaymentWriteFailure(t *testing.T) {
	b := &fakeBackend{paymentErr: errors.New("write failed")}
	c := NewEnrollmentCommitter(b, 0, testLogger())

	_, err := c.CommitPaid(context.Background(), validIntake(), testReceipt(), "attempt-3")

	var commitFailure *domain.CommitFailureError
	require.ErrorAs(t, err, &commitFailure)
	assert.Equal(t, "txn_77", commitFailure.TransactionID)
	// До записи о курсе дело не доходит
	assert.Equal(t, 0, countCalls(b.callList(), "CreateEnrollment"))
}

func TestCommitPaidEnrollmentWriteFailure(t *testing.T) {
	b := &fakeBackend{enrollErr: errors.New("write failed")}
	c := NewEnrollmentCommitter(b, 0, testLogger())

	_, err := c.CommitPaid(context.Background(), validIntake(), testReceipt(), "attempt-4")

	var commitFailure *domain.CommitFailureError
	require.ErrorAs(t, err, &commitFailure)
	assert.Equal(t, "txn_77", commitFailure.TransactionID)
	// Чек уже сохранен, повторная запись не выполняется
	assert.Equal(t, 1, countCalls(b.callList(), "RecordPayment"))
}
