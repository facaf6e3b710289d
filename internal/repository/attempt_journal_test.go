package repository

import (
	"context"
	"testing"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttempt() domain.CheckoutAttempt {
	return domain.CheckoutAttempt{
		AttemptID:    uuid.New(),
		LearnerEmail: "asel@example.com",
		CourseID:     "course-1",
		State:        domain.AttemptStateFormOpen,
	}
}

func TestJournalCreateAndGet(t *testing.T) {
	journal := NewInMemoryAttemptJournal(testLogger())
	ctx := context.Background()

	attempt := newAttempt()
	require.NoError(t, journal.Create(ctx, attempt))

	stored, err := journal.GetByID(ctx, attempt.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, attempt.LearnerEmail, stored.LearnerEmail)
	assert.Equal(t, domain.AttemptStateFormOpen, stored.State)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestJournalCreateDuplicate(t *testing.T) {
	journal := NewInMemoryAttemptJournal(testLogger())
	ctx := context.Background()

	attempt := newAttempt()
	require.NoError(t, journal.Create(ctx, attempt))
	require.ErrorIs(t, journal.Create(ctx, attempt), ErrDuplicate)
}

func TestJournalUpdateState(t *testing.T) {
	journal := NewInMemoryAttemptJournal(testLogger())
	ctx := context.Background()

	attempt := newAttempt()
	require.NoError(t, journal.Create(ctx, attempt))
	require.NoError(t, journal.UpdateState(ctx, attempt.AttemptID, domain.AttemptStatePaying))

	stored, err := journal.GetByID(ctx, attempt.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatePaying, stored.State)

	require.ErrorIs(t, journal.UpdateState(ctx, uuid.New(), domain.AttemptStatePaying), ErrNotFound)
}

func TestJournalSetTransaction(t *testing.T) {
	journal := NewInMemoryAttemptJournal(testLogger())
	ctx := context.Background()

	attempt := newAttempt()
	require.NoError(t, journal.Create(ctx, attempt))
	require.NoError(t, journal.SetTransaction(ctx, attempt.AttemptID, "txn_1"))

	stored, err := journal.GetByID(ctx, attempt.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, "txn_1", stored.TransactionID)

	require.ErrorIs(t, journal.SetTransaction(ctx, uuid.New(), "txn_2"), ErrNotFound)
}

func TestJournalGetMissing(t *testing.T) {
	journal := NewInMemoryAttemptJournal(testLogger())

	_, err := journal.GetByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
