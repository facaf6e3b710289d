package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return NewClient(Config{BaseURL: server.URL}, log)
}

func TestCheckEnrollment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check-enrollment", r.URL.Path)
		assert.Equal(t, "asel@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "course-1", r.URL.Query().Get("courseId"))
		json.NewEncoder(w).Encode(map[string]bool{"enrolled": true})
	})

	enrolled, err := client.CheckEnrollment(context.Background(), "asel@example.com", "course-1")
	require.NoError(t, err)
	assert.True(t, enrolled)
}

func TestGetCourseNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetCourse(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestGetCourseDecodesDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/courses/course-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":       "course-1",
			"title":    "Advanced Go",
			"price":    50,
			"currency": "USD",
		})
	})

	course, err := client.GetCourse(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "Advanced Go", course.Title)
	assert.Equal(t, 50.0, course.Price)
	assert.False(t, course.IsFree())
}

func TestCreatePaymentIntentSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-payment-intent", r.URL.Path)

		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 50.0, body["price"])

		json.NewEncoder(w).Encode(map[string]string{"clientSecret": "pi_1_secret_2"})
	})

	intent, err := client.CreatePaymentIntent(context.Background(), 50, "USD")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_2", intent.ClientSecret)
	// Без явного mode в ответе токен считается настоящим
	assert.Equal(t, domain.IntentModeLive, intent.Mode)
	assert.Equal(t, 50.0, intent.Amount)
	assert.Equal(t, "USD", intent.Currency)
}

func TestCreatePaymentIntentMissingEndpoint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.CreatePaymentIntent(context.Background(), 50, "USD")
	require.ErrorIs(t, err, domain.ErrEndpointNotFound)
}

func TestCreatePaymentIntentEmptySecret(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"clientSecret": ""})
	})

	_, err := client.CreatePaymentIntent(context.Background(), 50, "USD")
	require.ErrorContains(t, err, "empty client secret")
}

func TestCreatePaymentIntentMockMode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"clientSecret": "mock_pi_1_secret_2",
			"mode":         "mock",
		})
	})

	intent, err := client.CreatePaymentIntent(context.Background(), 50, "USD")
	require.NoError(t, err)
	assert.True(t, intent.IsMock())
}

func TestRecordPaymentSendsIdempotencyKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "attempt-1", r.Header.Get(IdempotencyHeader))

		var record PaymentRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&record))
		assert.Equal(t, "txn_1", record.TransactionID)

		json.NewEncoder(w).Encode(map[string]any{
			"paymentResult": map[string]string{"insertedId": "pay-1"},
		})
	})

	record := PaymentRecord{
		Email:         "asel@example.com",
		CourseID:      "course-1",
		Amount:        50,
		Currency:      "USD",
		TransactionID: "txn_1",
		Status:        domain.PaymentStatusCompleted,
	}

	id, err := client.RecordPayment(context.Background(), record, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", id)
}

func TestRecordPaymentErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "db unavailable"})
	})

	_, err := client.RecordPayment(context.Background(), PaymentRecord{}, "attempt-1")
	require.ErrorContains(t, err, "db unavailable")
}

func TestCreateEnrollmentCreated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/course-enrollments", r.URL.Path)
		assert.Equal(t, "attempt-2", r.Header.Get(IdempotencyHeader))

		var intake domain.Intake
		require.NoError(t, json.NewDecoder(r.Body).Decode(&intake))
		assert.Equal(t, "asel@example.com", intake.Email)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"insertedId": "enr-1"})
	})

	resp, err := client.CreateEnrollment(context.Background(), domain.Intake{Email: "asel@example.com"}, "attempt-2")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", resp.InsertedID)
	assert.False(t, resp.AlreadyExists)
}

func TestCreateEnrollmentExistsIsSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Бэкенд может вернуть exists и с не-2xx статусом
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"exists":  true,
			"message": "already enrolled",
		})
	})

	resp, err := client.CreateEnrollment(context.Background(), domain.Intake{Email: "asel@example.com"}, "attempt-3")
	require.NoError(t, err)
	assert.True(t, resp.AlreadyExists)
	assert.Equal(t, "already enrolled", resp.Message)
}
