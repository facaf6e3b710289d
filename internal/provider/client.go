package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/pkg/logger"
)

// Client представляет клиент для работы с API платежного провайдера
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// Config конфигурация для клиента платежного провайдера
type Config struct {
	APIKey  string
	BaseURL string
	IsTest  bool
}

// NewClient создает новый клиент платежного провайдера
func NewClient(cfg Config, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.stripe.com/v1"
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
		log:        log,
	}
}

// ErrorResponse представляет ошибку API провайдера
type ErrorResponse struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	DeclineCode string `json:"decline_code"`
}

// paymentMethodResponse представляет ответ создания платежного метода
type paymentMethodResponse struct {
	ID     string         `json:"id"`
	Object string         `json:"object"`
	Type   string         `json:"type"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// ConfirmResult результат подтверждения списания
type ConfirmResult struct {
	TransactionID string
	Status        domain.PaymentStatus
	Message       string
}

// confirmResponse представляет ответ подтверждения платежа
type confirmResponse struct {
	ID               string         `json:"id"`
	Object           string         `json:"object"`
	Status           string         `json:"status"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
	LastPaymentError *ErrorResponse `json:"last_payment_error,omitempty"`
	Error            *ErrorResponse `json:"error,omitempty"`
}

// CreatePaymentMethod создает у провайдера представление платежного инструмента.
// Отказ на этом этапе означает отклоненный инструмент, а не отклоненное списание.
func (c *Client) CreatePaymentMethod(ctx context.Context, card domain.CardDetails) (string, error) {
	c.log.Debug("Creating payment method")

	// Провайдер принимает form-encoded тела
	formData := url.Values{}
	formData.Add("type", "card")
	formData.Add("card[number]", card.Number)
	formData.Add("card[exp_month]", card.ExpMonth)
	formData.Add("card[exp_year]", card.ExpYear)
	formData.Add("card[cvc]", card.CVC)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/payment_methods",
		strings.NewReader(formData.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewPaymentError(domain.PaymentStageInstrument, "network_error",
			"failed to reach payment provider", err)
	}
	defer resp.Body.Close()

	var methodResp paymentMethodResponse
	if err := json.NewDecoder(resp.Body).Decode(&methodResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if methodResp.Error != nil {
		c.log.Warn("Payment method rejected: %s", methodResp.Error.Message)
		return "", domain.NewPaymentError(domain.PaymentStageInstrument,
			methodResp.Error.Code, methodResp.Error.Message, nil)
	}

	if methodResp.ID == "" {
		return "", domain.NewPaymentError(domain.PaymentStageInstrument, "empty_response",
			"provider returned no payment method id", nil)
	}

	c.log.Info("Created payment method %s", methodResp.ID)
	return methodResp.ID, nil
}

// ConfirmCardPayment подтверждает списание по токену и платежному методу.
// Успехом считается только явный статус succeeded от провайдера.
func (c *Client) ConfirmCardPayment(ctx context.Context, clientSecret, methodID string) (ConfirmResult, error) {
	intentID := intentIDFromSecret(clientSecret)
	c.log.Debug("Confirming payment intent %s with method %s", intentID, methodID)

	formData := url.Values{}
	formData.Add("payment_method", methodID)
	formData.Add("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/payment_intents/"+url.PathEscape(intentID)+"/confirm",
		strings.NewReader(formData.Encode()),
	)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ConfirmResult{}, domain.NewPaymentError(domain.PaymentStageCharge, "network_error",
			"failed to reach payment provider", err)
	}
	defer resp.Body.Close()

	var confirmResp confirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&confirmResp); err != nil {
		return ConfirmResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if confirmResp.Error != nil {
		c.log.Warn("Charge declined: %s", confirmResp.Error.Message)
		return ConfirmResult{}, domain.NewPaymentError(domain.PaymentStageCharge,
			confirmResp.Error.Code, confirmResp.Error.Message, nil)
	}

	status := StatusFromProvider(confirmResp.Status)
	if status != domain.PaymentStatusCompleted {
		message := "payment was not confirmed"
		code := confirmResp.Status
		if confirmResp.LastPaymentError != nil {
			message = confirmResp.LastPaymentError.Message
			code = confirmResp.LastPaymentError.Code
		}
		c.log.Warn("Payment intent %s not confirmed, status: %s", intentID, confirmResp.Status)
		return ConfirmResult{}, domain.NewPaymentError(domain.PaymentStageCharge, code, message, nil)
	}

	c.log.Info("Payment intent %s confirmed, transaction %s", intentID, confirmResp.ID)
	return ConfirmResult{
		TransactionID: confirmResp.ID,
		Status:        status,
	}, nil
}

// intentIDFromSecret извлекает идентификатор intent из клиентского секрета.
// Секрет имеет вид "pi_xxx_secret_yyy".
func intentIDFromSecret(clientSecret string) string {
	if idx := strings.Index(clientSecret, "_secret_"); idx > 0 {
		return clientSecret[:idx]
	}
	return clientSecret
}

// StatusFromProvider преобразует статус платежа провайдера в статус системы
func StatusFromProvider(providerStatus string) domain.PaymentStatus {
	switch providerStatus {
	case "succeeded":
		return domain.PaymentStatusCompleted
	case "canceled":
		return domain.PaymentStatusFailed
	case "processing":
		return domain.PaymentStatusPending
	default:
		return domain.PaymentStatusPending
	}
}
