package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus статус записи на курс
type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusConfirmed EnrollmentStatus = "confirmed"
)

// Intake представляет анкету слушателя, заполняемую перед записью на курс.
// Email всегда берется из аутентифицированной идентичности и не редактируется.
type Intake struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	Address       string `json:"address" validate:"required"`
	DateOfBirth   string `json:"dateOfBirth" validate:"required"`
	Gender        string `json:"gender" validate:"required"`
	Qualification string `json:"qualification" validate:"required"`
	Institution   string `json:"institution" validate:"required"`
	CourseID      string `json:"courseId" validate:"required"`
	CourseTitle   string `json:"courseTitle"`
}

// EnrollmentRecord представляет запись на курс.
// Инвариант: не более одной подтвержденной записи на пару (слушатель, курс);
// источником истины для инварианта является бэкенд.
type EnrollmentRecord struct {
	Intake
	EnrolledAt time.Time        `json:"enrolledAt"`
	Status     EnrollmentStatus `json:"status"`
	PaymentRef string           `json:"paymentRef,omitempty"`
}

// AttemptState состояние попытки оформления записи
type AttemptState string

const (
	AttemptStateFormOpen          AttemptState = "form_open"
	AttemptStateTokenProvisioning AttemptState = "token_provisioning"
	AttemptStatePaying            AttemptState = "paying"
	AttemptStateCommitting        AttemptState = "committing"
	AttemptStateDoneSuccess       AttemptState = "done_success"
	AttemptStateDoneExists        AttemptState = "done_already_exists"
	AttemptStateError             AttemptState = "error"
)

// CheckoutAttempt представляет журналируемую попытку оформления.
// AttemptID одновременно служит ключом идемпотентности: повторная отправка
// той же попытки не создает дубликатов на бэкенде.
type CheckoutAttempt struct {
	AttemptID     uuid.UUID    `json:"attempt_id"`
	LearnerEmail  string       `json:"learner_email"`
	CourseID      string       `json:"course_id"`
	State         AttemptState `json:"state"`
	TransactionID string       `json:"transaction_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
