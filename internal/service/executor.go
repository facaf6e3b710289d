package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/internal/provider"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/google/uuid"
)

// ExecutorState состояние исполнителя платежа
type ExecutorState string

const (
	ExecutorStateIdle                 ExecutorState = "idle"
	ExecutorStateAwaitingInstrument   ExecutorState = "awaiting_instrument"
	ExecutorStateAwaitingConfirmation ExecutorState = "awaiting_confirmation"
	ExecutorStateConfirming           ExecutorState = "confirming"
	ExecutorStateSucceeded            ExecutorState = "succeeded"
	ExecutorStateFailed               ExecutorState = "failed"
)

// PaymentProvider интерфейс платежного провайдера
type PaymentProvider interface {
	CreatePaymentMethod(ctx context.Context, card domain.CardDetails) (string, error)
	ConfirmCardPayment(ctx context.Context, clientSecret, methodID string) (provider.ConfirmResult, error)
}

// PaymentExecutor проводит списание по выданному платежному токену.
// Явный конечный автомат: idle -> awaiting_instrument -> awaiting_confirmation
// -> confirming -> succeeded | failed. Подтверждение суммы слушателем —
// обязательный переход, а не побочный диалог: провайдер не вызывается,
// пока Confirm не пройден.
type PaymentExecutor struct {
	provider PaymentProvider
	log      *logger.Logger

	state   ExecutorState
	intent  domain.PaymentIntent
	card    domain.CardDetails
	lastErr error
}

// NewPaymentExecutor создает новый исполнитель платежа
func NewPaymentExecutor(p PaymentProvider, log *logger.Logger) *PaymentExecutor {
	return &PaymentExecutor{
		provider: p,
		log:      log,
		state:    ExecutorStateIdle,
	}
}

// State возвращает текущее состояние исполнителя
func (e *PaymentExecutor) State() ExecutorState {
	return e.state
}

// LastError возвращает ошибку последнего неудачного перехода
func (e *PaymentExecutor) LastError() error {
	return e.lastErr
}

// Begin привязывает исполнитель к платежному токену.
// Токен потребляется ровно один раз за попытку оформления.
func (e *PaymentExecutor) Begin(intent domain.PaymentIntent) error {
	if e.state != ExecutorStateIdle {
		return fmt.Errorf("%w: Begin from %s", domain.ErrInvalidTransition, e.state)
	}

	e.intent = intent
	e.state = ExecutorStateAwaitingInstrument
	return nil
}

// CollectInstrument принимает данные платежного инструмента слушателя.
// Для токена-заглушки карта может быть пустой: провайдер вызываться не будет.
func (e *PaymentExecutor) CollectInstrument(card domain.CardDetails) error {
	if e.state != ExecutorStateAwaitingInstrument {
		return fmt.Errorf("%w: CollectInstrument from %s", domain.ErrInvalidTransition, e.state)
	}

	if !e.intent.IsMock() && card.IsEmpty() {
		return domain.NewPaymentError(domain.PaymentStageInstrument, "missing_card",
			"card details are required for a paid course", nil)
	}

	e.card = card
	e.state = ExecutorStateAwaitingConfirmation
	return nil
}

// Confirm проводит списание после явного подтверждения суммы слушателем.
// Заглушечный токен пропускает провайдера и синтезирует чек; настоящий токен
// проходит два независимых шага: создание платежного метода и подтверждение
// списания. Сбой любого шага переводит автомат в failed с возможностью
// повторной отправки через Reset.
func (e *PaymentExecutor) Confirm(ctx context.Context) (domain.PaymentReceipt, error) {
	if e.state != ExecutorStateAwaitingConfirmation {
		return domain.PaymentReceipt{}, fmt.Errorf("%w: Confirm from %s", domain.ErrInvalidTransition, e.state)
	}

	e.state = ExecutorStateConfirming

	if e.intent.IsMock() {
		receipt := e.mockReceipt()
		e.state = ExecutorStateSucceeded
		e.log.Info("Synthesized mock receipt %s for %.2f %s",
			receipt.TransactionID, receipt.Amount, receipt.Currency)
		return receipt, nil
	}

	methodID, err := e.provider.CreatePaymentMethod(ctx, e.card)
	if err != nil {
		e.fail(err)
		return domain.PaymentReceipt{}, err
	}

	result, err := e.provider.ConfirmCardPayment(ctx, e.intent.ClientSecret, methodID)
	if err != nil {
		e.fail(err)
		return domain.PaymentReceipt{}, err
	}

	if result.Status != domain.PaymentStatusCompleted {
		err := domain.NewPaymentError(domain.PaymentStageCharge, "not_succeeded",
			"provider did not confirm the charge", nil)
		e.fail(err)
		return domain.PaymentReceipt{}, err
	}

	receipt := domain.PaymentReceipt{
		TransactionID: result.TransactionID,
		Amount:        e.intent.Amount,
		Currency:      e.intent.Currency,
		Timestamp:     time.Now(),
		Status:        domain.PaymentStatusCompleted,
	}

	e.state = ExecutorStateSucceeded
	e.log.Info("Charge confirmed, transaction %s for %.2f %s",
		receipt.TransactionID, receipt.Amount, receipt.Currency)
	return receipt, nil
}

// Reset возвращает автомат из failed к вводу инструмента для повторной отправки
func (e *PaymentExecutor) Reset() error {
	if e.state != ExecutorStateFailed {
		return fmt.Errorf("%w: Reset from %s", domain.ErrInvalidTransition, e.state)
	}

	e.card = domain.CardDetails{}
	e.lastErr = nil
	e.state = ExecutorStateAwaitingInstrument
	return nil
}

// fail переводит автомат в failed с сохранением причины
func (e *PaymentExecutor) fail(err error) {
	e.lastErr = err
	e.state = ExecutorStateFailed
	e.log.Warn("Payment failed: %v", err)
}

// mockReceipt синтезирует чек для деградированного окружения.
// Функционально эквивалентен успешному списанию для нижестоящих шагов,
// но идентификатор транзакции помечен префиксом.
func (e *PaymentExecutor) mockReceipt() domain.PaymentReceipt {
	return domain.PaymentReceipt{
		TransactionID: domain.MockTransactionPrefix + uuid.NewString(),
		Amount:        e.intent.Amount,
		Currency:      e.intent.Currency,
		Timestamp:     time.Now(),
		Status:        domain.PaymentStatusCompleted,
	}
}
