package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/internal/kafka/producer"
	"github.com/campuskit/enrollment-service/internal/metrics"
	"github.com/campuskit/enrollment-service/internal/repository"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/google/uuid"
)

// CheckoutState состояние потока оформления
type CheckoutState string

const (
	CheckoutStateFormOpen          CheckoutState = "form_open"
	CheckoutStateTokenProvisioning CheckoutState = "token_provisioning"
	CheckoutStatePaying            CheckoutState = "paying"
	CheckoutStateCommitting        CheckoutState = "committing"
	CheckoutStateDoneSuccess       CheckoutState = "done_success"
	CheckoutStateDoneExists        CheckoutState = "done_already_exists"
	CheckoutStateError             CheckoutState = "error"
)

// checkoutEvent событие перехода потока оформления
type checkoutEvent string

const (
	eventSubmitFree       checkoutEvent = "submit_free"
	eventSubmitPaid       checkoutEvent = "submit_paid"
	eventTokenReady       checkoutEvent = "token_ready"
	eventPaymentSucceeded checkoutEvent = "payment_succeeded"
	eventCommitCreated    checkoutEvent = "commit_created"
	eventCommitExists     checkoutEvent = "commit_exists"
	eventFail             checkoutEvent = "fail"
)

// transition единственная функция переходов конечного автомата оформления.
// Любая пара (состояние, событие) вне таблицы — ошибка программирования.
func transition(state CheckoutState, event checkoutEvent) (CheckoutState, error) {
	switch {
	case state == CheckoutStateFormOpen && event == eventSubmitFree:
		return CheckoutStateCommitting, nil
	case state == CheckoutStateFormOpen && event == eventSubmitPaid:
		return CheckoutStateTokenProvisioning, nil
	case state == CheckoutStateTokenProvisioning && event == eventTokenReady:
		return CheckoutStatePaying, nil
	case state == CheckoutStatePaying && event == eventPaymentSucceeded:
		return CheckoutStateCommitting, nil
	case state == CheckoutStateCommitting && event == eventCommitCreated:
		return CheckoutStateDoneSuccess, nil
	case state == CheckoutStateCommitting && event == eventCommitExists:
		return CheckoutStateDoneExists, nil
	case event == eventFail && state != CheckoutStateDoneSuccess && state != CheckoutStateDoneExists:
		return CheckoutStateError, nil
	default:
		return state, fmt.Errorf("%w: %s on %s", domain.ErrInvalidTransition, event, state)
	}
}

// User-facing messages
const (
	MessageEnrolledSuccessfully = "enrolled successfully"
	MessageAlreadyEnrolled      = "already enrolled"
	MessageContactSupport       = "payment was taken but the enrollment could not be saved; " +
		"please contact support with the transaction id"
)

// Checkout paths for metrics
const (
	pathFree = "free"
	pathPaid = "paid"
)

// CourseFetcher интерфейс получения документа курса
type CourseFetcher interface {
	GetCourse(ctx context.Context, id string) (domain.Course, error)
}

// CheckoutRequest запрос на оформление записи.
// Идентичность слушателя передается явно, а не читается из глобального
// контекста: оркестратор тестируется в изоляции.
type CheckoutRequest struct {
	Learner   domain.Learner
	CourseID  string
	Intake    domain.Intake
	Card      domain.CardDetails
	Confirmed bool
}

// CheckoutResult результат оформления
type CheckoutResult struct {
	State         CheckoutState
	AttemptID     uuid.UUID
	Message       string
	AlreadyExists bool
	EnrollmentID  string
	TransactionID string
}

// CheckoutOrchestrator композиция компонентов оформления: решает выбор между
// бесплатным и платным путем, упорядочивает шаги и ведет пользовательское
// состояние. Ветвление определяется один раз при отправке по снимку цены;
// цена не перечитывается в середине потока.
type CheckoutOrchestrator struct {
	courses     CourseFetcher
	query       *EnrollmentQuery
	intake      *IntakeValidator
	provisioner *IntentProvisioner
	committer   *EnrollmentCommitter
	provider    PaymentProvider
	cache       repository.EnrollmentCache
	journal     repository.AttemptJournal
	events      producer.CheckoutProducer
	metrics     metrics.CheckoutMetrics
	log         *logger.Logger

	// Защита от параллельной повторной отправки в рамках одной пары
	// (слушатель, курс); авторитетная защита от дубликатов — на бэкенде.
	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

// CheckoutDeps зависимости оркестратора оформления
type CheckoutDeps struct {
	Courses     CourseFetcher
	Query       *EnrollmentQuery
	Intake      *IntakeValidator
	Provisioner *IntentProvisioner
	Committer   *EnrollmentCommitter
	Provider    PaymentProvider
	Cache       repository.EnrollmentCache
	Journal     repository.AttemptJournal
	Events      producer.CheckoutProducer
	Metrics     metrics.CheckoutMetrics
}

// NewCheckoutOrchestrator создает новый оркестратор оформления
func NewCheckoutOrchestrator(deps CheckoutDeps, log *logger.Logger) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		courses:     deps.Courses,
		query:       deps.Query,
		intake:      deps.Intake,
		provisioner: deps.Provisioner,
		committer:   deps.Committer,
		provider:    deps.Provider,
		cache:       deps.Cache,
		journal:     deps.Journal,
		events:      deps.Events,
		metrics:     deps.Metrics,
		log:         log,
	}
}

// AlreadyEnrolled сообщает, записан ли слушатель на курс.
// Используется для отключения действия записи в UI; проверка рекомендательная.
func (o *CheckoutOrchestrator) AlreadyEnrolled(ctx context.Context, learner domain.Learner, courseID string) bool {
	if learner.IsAnonymous() {
		return false
	}
	return o.query.Check(ctx, learner.Email, courseID)
}

// Submit проводит полный поток оформления для одной попытки.
// Порядок шагов строгий: валидация -> (платный путь: токен -> списание) ->
// коммит; ни один шаг не выполняется параллельно с предшественником.
func (o *CheckoutOrchestrator) Submit(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if req.Learner.IsAnonymous() {
		return CheckoutResult{State: CheckoutStateFormOpen}, domain.ErrAnonymousLearner
	}

	flightKey := req.Learner.Email + "|" + req.CourseID
	if !o.acquire(flightKey) {
		return CheckoutResult{State: CheckoutStateFormOpen}, domain.ErrCheckoutInFlight
	}
	defer o.release(flightKey)

	// Email анкеты всегда берется из аутентифицированной идентичности:
	// расхождение между анкетой и платежной сессией исключено.
	intake := req.Intake
	intake.Email = req.Learner.Email
	intake.CourseID = req.CourseID

	// Валидация строго до любого сетевого вызова
	if err := o.intake.Validate(intake); err != nil {
		return CheckoutResult{State: CheckoutStateFormOpen}, err
	}

	// Снимок курса и цены; ветвление определяется только здесь.
	course, err := o.courses.GetCourse(ctx, req.CourseID)
	if err != nil {
		return CheckoutResult{State: CheckoutStateFormOpen}, err
	}
	if intake.CourseTitle == "" {
		intake.CourseTitle = course.Title
	}

	attempt := domain.CheckoutAttempt{
		AttemptID:    uuid.New(),
		LearnerEmail: intake.Email,
		CourseID:     intake.CourseID,
		State:        domain.AttemptStateFormOpen,
	}
	if err := o.journal.Create(ctx, attempt); err != nil {
		// Журнал — вспомогательный артефакт для сверки, не блокируем поток
		o.log.Warn("Failed to journal checkout attempt %s: %v", attempt.AttemptID, err)
	}

	if course.IsFree() {
		return o.submitFree(ctx, intake, attempt)
	}
	return o.submitPaid(ctx, intake, course, req, attempt)
}

// submitFree проводит бесплатный путь: сразу коммит, без токена и провайдера
func (o *CheckoutOrchestrator) submitFree(ctx context.Context, intake domain.Intake, attempt domain.CheckoutAttempt) (CheckoutResult, error) {
	o.metrics.IncCheckoutStarted(pathFree)

	state, err := transition(CheckoutStateFormOpen, eventSubmitFree)
	if err != nil {
		return CheckoutResult{State: CheckoutStateError}, err
	}
	o.journalState(ctx, attempt.AttemptID, domain.AttemptStateCommitting)

	result, err := o.committer.CommitFree(ctx, intake, attempt.AttemptID.String())
	if err != nil {
		return o.failed(ctx, state, attempt, intake, "", err)
	}

	return o.done(ctx, state, attempt, intake, result, domain.PaymentReceipt{}, pathFree)
}

// submitPaid проводит платный путь: токен -> списание -> коммит
func (o *CheckoutOrchestrator) submitPaid(ctx context.Context, intake domain.Intake, course domain.Course, req CheckoutRequest, attempt domain.CheckoutAttempt) (CheckoutResult, error) {
	o.metrics.IncCheckoutStarted(pathPaid)

	// Подтверждение суммы и курса — обязательные ворота перед провайдером
	if !req.Confirmed {
		return CheckoutResult{State: CheckoutStateFormOpen, AttemptID: attempt.AttemptID},
			domain.ErrConfirmationRequired
	}

	state, err := transition(CheckoutStateFormOpen, eventSubmitPaid)
	if err != nil {
		return CheckoutResult{State: CheckoutStateError}, err
	}
	o.journalState(ctx, attempt.AttemptID, domain.AttemptStateTokenProvisioning)

	intent, err := o.provisioner.Provision(ctx, course.Price, course.Currency)
	if err != nil {
		return o.failed(ctx, state, attempt, intake, "", err)
	}

	if state, err = transition(state, eventTokenReady); err != nil {
		return CheckoutResult{State: CheckoutStateError}, err
	}
	o.journalState(ctx, attempt.AttemptID, domain.AttemptStatePaying)

	executor := NewPaymentExecutor(o.provider, o.log)
	if err := executor.Begin(intent); err != nil {
		return o.failed(ctx, state, attempt, intake, "", err)
	}
	if err := executor.CollectInstrument(req.Card); err != nil {
		return o.failed(ctx, state, attempt, intake, "", err)
	}

	receipt, err := executor.Confirm(ctx)
	if err != nil {
		return o.failed(ctx, state, attempt, intake, "", err)
	}

	// Списание подтверждено: с этого момента поток не отменяется
	if err := o.journal.SetTransaction(ctx, attempt.AttemptID, receipt.TransactionID); err != nil {
		o.log.Warn("Failed to journal transaction %s: %v", receipt.TransactionID, err)
	}

	if state, err = transition(state, eventPaymentSucceeded); err != nil {
		return CheckoutResult{State: CheckoutStateError}, err
	}
	o.journalState(ctx, attempt.AttemptID, domain.AttemptStateCommitting)

	result, err := o.committer.CommitPaid(ctx, intake, receipt, attempt.AttemptID.String())
	if err != nil {
		return o.failed(ctx, state, attempt, intake, receipt.TransactionID, err)
	}

	o.metrics.ObservePaymentAmount(receipt.Amount, receipt.Currency)
	return o.done(ctx, state, attempt, intake, result, receipt, pathPaid)
}

// done завершает поток: переход в done, инвалидация кэша, события, метрики.
// Инвалидация кэша "мои записи" — обязательный побочный эффект, слушатель
// сразу видит новое состояние.
func (o *CheckoutOrchestrator) done(ctx context.Context, state CheckoutState, attempt domain.CheckoutAttempt, intake domain.Intake, result CommitResult, receipt domain.PaymentReceipt, path string) (CheckoutResult, error) {
	event := eventCommitCreated
	attemptState := domain.AttemptStateDoneSuccess
	message := MessageEnrolledSuccessfully
	outcome := "success"
	if result.AlreadyExists {
		event = eventCommitExists
		attemptState = domain.AttemptStateDoneExists
		message = MessageAlreadyEnrolled
		outcome = "already_exists"
	}

	state, err := transition(state, event)
	if err != nil {
		return CheckoutResult{State: CheckoutStateError}, err
	}
	o.journalState(ctx, attempt.AttemptID, attemptState)

	if err := o.cache.Invalidate(ctx, intake.Email); err != nil {
		o.log.Warn("Failed to invalidate enrollment cache for %s: %v", intake.Email, err)
	}

	o.publishDone(ctx, attempt, intake, receipt, result)
	o.metrics.IncCheckoutCompleted(path, outcome)

	o.log.Info("Checkout %s finished: %s for %s, course %s",
		attempt.AttemptID, state, intake.Email, intake.CourseID)

	return CheckoutResult{
		State:         state,
		AttemptID:     attempt.AttemptID,
		Message:       message,
		AlreadyExists: result.AlreadyExists,
		EnrollmentID:  result.EnrollmentID,
		TransactionID: receipt.TransactionID,
	}, nil
}

// failed завершает поток ошибкой с консистентным пользовательским сообщением.
// CommitFailureError терминальна для попытки: идентификатор транзакции
// возвращается для ручной сверки, автоматический повтор не выполняется.
func (o *CheckoutOrchestrator) failed(ctx context.Context, state CheckoutState, attempt domain.CheckoutAttempt, intake domain.Intake, transactionID string, cause error) (CheckoutResult, error) {
	state, terr := transition(state, eventFail)
	if terr != nil {
		state = CheckoutStateError
	}
	o.journalState(ctx, attempt.AttemptID, domain.AttemptStateError)

	result := CheckoutResult{
		State:         state,
		AttemptID:     attempt.AttemptID,
		TransactionID: transactionID,
	}

	var commitFailure *domain.CommitFailureError
	if errors.As(cause, &commitFailure) {
		result.TransactionID = commitFailure.TransactionID
		result.Message = MessageContactSupport
	}

	o.publishFailed(ctx, attempt, intake, result.TransactionID, cause)

	o.log.Error("Checkout %s failed for %s, course %s: %v",
		attempt.AttemptID, intake.Email, intake.CourseID, cause)
	return result, cause
}

// journalState обновляет состояние попытки в журнале, не блокируя поток
func (o *CheckoutOrchestrator) journalState(ctx context.Context, id uuid.UUID, state domain.AttemptState) {
	if err := o.journal.UpdateState(ctx, id, state); err != nil && !errors.Is(err, repository.ErrNotFound) {
		o.log.Warn("Failed to journal state %s for attempt %s: %v", state, id, err)
	}
}

// publishDone публикует события успешного оформления
func (o *CheckoutOrchestrator) publishDone(ctx context.Context, attempt domain.CheckoutAttempt, intake domain.Intake, receipt domain.PaymentReceipt, result CommitResult) {
	event := producer.CheckoutEvent{
		AttemptID:     attempt.AttemptID.String(),
		LearnerEmail:  intake.Email,
		CourseID:      intake.CourseID,
		CourseTitle:   intake.CourseTitle,
		Amount:        receipt.Amount,
		Currency:      receipt.Currency,
		TransactionID: receipt.TransactionID,
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if !result.AlreadyExists {
		if err := o.events.PublishEnrollmentConfirmed(ctx, event); err != nil {
			o.log.Warn("Failed to publish enrollment event: %v", err)
		}
	}
	if receipt.TransactionID != "" {
		if err := o.events.PublishPaymentCompleted(ctx, event); err != nil {
			o.log.Warn("Failed to publish payment event: %v", err)
		}
	}
}

// publishFailed публикует событие неудачного оформления
func (o *CheckoutOrchestrator) publishFailed(ctx context.Context, attempt domain.CheckoutAttempt, intake domain.Intake, transactionID string, cause error) {
	event := producer.CheckoutEvent{
		AttemptID:     attempt.AttemptID.String(),
		LearnerEmail:  intake.Email,
		CourseID:      intake.CourseID,
		TransactionID: transactionID,
		Reason:        cause.Error(),
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if err := o.events.PublishCheckoutFailed(ctx, event); err != nil {
		o.log.Warn("Failed to publish checkout failure event: %v", err)
	}
}

// acquire занимает слот оформления для пары (слушатель, курс)
func (o *CheckoutOrchestrator) acquire(key string) bool {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()

	if o.inFlight == nil {
		o.inFlight = make(map[string]struct{})
	}
	if _, busy := o.inFlight[key]; busy {
		return false
	}
	o.inFlight[key] = struct{}{}
	return true
}

// release освобождает слот оформления
func (o *CheckoutOrchestrator) release(key string) {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	delete(o.inFlight, key)
}
