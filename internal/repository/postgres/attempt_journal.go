package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/internal/repository"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAttemptJournal реализация журнала попыток оформления через PostgreSQL
type PostgresAttemptJournal struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresAttemptJournal создает новый журнал попыток через PostgreSQL
func NewPostgresAttemptJournal(db *pgxpool.Pool, log *logger.Logger) *PostgresAttemptJournal {
	return &PostgresAttemptJournal{
		db:  db,
		log: log,
	}
}

// Create сохраняет новую попытку
func (j *PostgresAttemptJournal) Create(ctx context.Context, attempt domain.CheckoutAttempt) error {
	query := `
		INSERT INTO checkout_attempts (attempt_id, learner_email, course_id, state, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`

	_, err := j.db.Exec(ctx, query,
		attempt.AttemptID,
		attempt.LearnerEmail,
		attempt.CourseID,
		attempt.State,
		attempt.TransactionID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to insert checkout attempt: %w", err)
	}

	return nil
}

// UpdateState обновляет состояние попытки
func (j *PostgresAttemptJournal) UpdateState(ctx context.Context, id uuid.UUID, state domain.AttemptState) error {
	query := `
		UPDATE checkout_attempts
		SET state = $2, updated_at = now()
		WHERE attempt_id = $1
	`

	tag, err := j.db.Exec(ctx, query, id, state)
	if err != nil {
		return fmt.Errorf("failed to update checkout attempt state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetTransaction записывает идентификатор транзакции попытки
func (j *PostgresAttemptJournal) SetTransaction(ctx context.Context, id uuid.UUID, transactionID string) error {
	query := `
		UPDATE checkout_attempts
		SET transaction_id = $2, updated_at = now()
		WHERE attempt_id = $1
	`

	tag, err := j.db.Exec(ctx, query, id, transactionID)
	if err != nil {
		return fmt.Errorf("failed to set checkout attempt transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByID возвращает попытку по ID
func (j *PostgresAttemptJournal) GetByID(ctx context.Context, id uuid.UUID) (domain.CheckoutAttempt, error) {
	query := `
		SELECT attempt_id, learner_email, course_id, state, transaction_id, created_at, updated_at
		FROM checkout_attempts
		WHERE attempt_id = $1
	`

	var attempt domain.CheckoutAttempt
	err := j.db.QueryRow(ctx, query, id).Scan(
		&attempt.AttemptID,
		&attempt.LearnerEmail,
		&attempt.CourseID,
		&attempt.State,
		&attempt.TransactionID,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CheckoutAttempt{}, repository.ErrNotFound
		}
		return domain.CheckoutAttempt{}, fmt.Errorf("failed to query checkout attempt: %w", err)
	}

	return attempt, nil
}
