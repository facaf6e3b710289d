package repository

import (
	"context"
	"sync"
	"time"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/google/uuid"
)

// AttemptJournal интерфейс журнала попыток оформления.
// Журнал хранит идентификатор попытки (он же ключ идемпотентности) до
// подтверждения записи и идентификатор транзакции для ручной сверки, если
// запись не сохранилась после подтвержденного списания.
type AttemptJournal interface {
	Create(ctx context.Context, attempt domain.CheckoutAttempt) error
	UpdateState(ctx context.Context, id uuid.UUID, state domain.AttemptState) error
	SetTransaction(ctx context.Context, id uuid.UUID, transactionID string) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.CheckoutAttempt, error)
}

// InMemoryAttemptJournal реализация журнала попыток в памяти
type InMemoryAttemptJournal struct {
	attempts map[uuid.UUID]domain.CheckoutAttempt
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryAttemptJournal создает новый журнал попыток в памяти
func NewInMemoryAttemptJournal(log *logger.Logger) *InMemoryAttemptJournal {
	return &InMemoryAttemptJournal{
		attempts: make(map[uuid.UUID]domain.CheckoutAttempt),
		log:      log,
	}
}

// Create сохраняет новую попытку
func (j *InMemoryAttemptJournal) Create(ctx context.Context, attempt domain.CheckoutAttempt) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if _, exists := j.attempts[attempt.AttemptID]; exists {
		return ErrDuplicate
	}

	attempt.CreatedAt = time.Now()
	attempt.UpdatedAt = attempt.CreatedAt
	j.attempts[attempt.AttemptID] = attempt

	return nil
}

// UpdateState обновляет состояние попытки
func (j *InMemoryAttemptJournal) UpdateState(ctx context.Context, id uuid.UUID, state domain.AttemptState) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	attempt, exists := j.attempts[id]
	if !exists {
		return ErrNotFound
	}

	attempt.State = state
	attempt.UpdatedAt = time.Now()
	j.attempts[id] = attempt

	return nil
}

// SetTransaction записывает идентификатор транзакции попытки
func (j *InMemoryAttemptJournal) SetTransaction(ctx context.Context, id uuid.UUID, transactionID string) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	attempt, exists := j.attempts[id]
	if !exists {
		return ErrNotFound
	}

	attempt.TransactionID = transactionID
	attempt.UpdatedAt = time.Now()
	j.attempts[id] = attempt

	return nil
}

// GetByID возвращает попытку по ID
func (j *InMemoryAttemptJournal) GetByID(ctx context.Context, id uuid.UUID) (domain.CheckoutAttempt, error) {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	attempt, exists := j.attempts[id]
	if !exists {
		return domain.CheckoutAttempt{}, ErrNotFound
	}

	return attempt, nil
}
