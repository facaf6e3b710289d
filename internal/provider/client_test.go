package provider

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
	return NewClient(Config{APIKey: "sk_test_123", BaseURL: server.URL}, log)
}

func testCard() domain.CardDetails {
	return domain.CardDetails{Number: "4242424242424242", ExpMonth: "12", ExpYear: "2030", CVC: "123"}
}

func TestCreatePaymentMethodSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment_methods", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "card", r.PostForm.Get("type"))
		assert.Equal(t, "4242424242424242", r.PostForm.Get("card[number]"))

		json.NewEncoder(w).Encode(map[string]string{"id": "pm_1", "object": "payment_method"})
	})

	id, err := client.CreatePaymentMethod(context.Background(), testCard())
	require.NoError(t, err)
	assert.Equal(t, "pm_1", id)
}

func TestCreatePaymentMethodDeclined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "card_declined", "message": "Your card was declined."},
		})
	})

	_, err := client.CreatePaymentMethod(context.Background(), testCard())

	var paymentErr *domain.PaymentError
	require.ErrorAs(t, err, &paymentErr)
	assert.Equal(t, domain.PaymentStageInstrument, paymentErr.Stage)
	assert.Equal(t, "card_declined", paymentErr.Code)
}

func TestConfirmCardPaymentSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Идентификатор intent извлекается из клиентского секрета
		assert.Equal(t, "/payment_intents/pi_123/confirm", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "pm_1", r.PostForm.Get("payment_method"))

		json.NewEncoder(w).Encode(map[string]any{"id": "pi_123", "status": "succeeded"})
	})

	result, err := client.ConfirmCardPayment(context.Background(), "pi_123_secret_456", "pm_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", result.TransactionID)
	assert.Equal(t, domain.PaymentStatusCompleted, result.Status)
}

func TestConfirmCardPaymentNotSucceeded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "pi_123",
			"status": "requires_payment_method",
			"last_payment_error": map[string]string{
				"code":    "insufficient_funds",
				"message": "Insufficient funds.",
			},
		})
	})

	_, err := client.ConfirmCardPayment(context.Background(), "pi_123_secret_456", "pm_1")

	var paymentErr *domain.PaymentError
	require.ErrorAs(t, err, &paymentErr)
	assert.Equal(t, domain.PaymentStageCharge, paymentErr.Stage)
	assert.Equal(t, "insufficient_funds", paymentErr.Code)
}

func TestIntentIDFromSecret(t *testing.T) {
	assert.Equal(t, "pi_123", intentIDFromSecret("pi_123_secret_456"))
	assert.Equal(t, "raw-token", intentIDFromSecret("raw-token"))
}

func TestStatusFromProvider(t *testing.T) {
	assert.Equal(t, domain.PaymentStatusCompleted, StatusFromProvider("succeeded"))
	assert.Equal(t, domain.PaymentStatusFailed, StatusFromProvider("canceled"))
	assert.Equal(t, domain.PaymentStatusPending, StatusFromProvider("processing"))
	assert.Equal(t, domain.PaymentStatusPending, StatusFromProvider("requires_action"))
}
