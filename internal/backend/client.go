package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/pkg/logger"
)

// IdempotencyHeader заголовок ключа идемпотентности для записывающих запросов
const IdempotencyHeader = "Idempotency-Key"

// Client представляет клиент для работы с REST API контент-бэкенда
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// Config конфигурация для клиента бэкенда
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient создает новый клиент бэкенда
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// enrollmentCheckResponse ответ проверки записи на курс
type enrollmentCheckResponse struct {
	Enrolled bool `json:"enrolled"`
}

// CheckEnrollment проверяет, записан ли слушатель на курс
func (c *Client) CheckEnrollment(ctx context.Context, email, courseID string) (bool, error) {
	c.log.Debug("Checking enrollment for %s, course %s", email, courseID)

	query := url.Values{}
	query.Set("email", email)
	query.Set("courseId", courseID)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/check-enrollment?"+query.Encode(),
		nil,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("check-enrollment returned status %d", resp.StatusCode)
	}

	var checkResp enrollmentCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&checkResp); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return checkResp.Enrolled, nil
}

// GetCourse получает документ курса по ID
func (c *Client) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	c.log.Debug("Fetching course %s", id)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/courses/"+url.PathEscape(id),
		nil,
	)
	if err != nil {
		return domain.Course{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Course{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Course{}, fmt.Errorf("courses returned status %d", resp.StatusCode)
	}

	var course domain.Course
	if err := json.NewDecoder(resp.Body).Decode(&course); err != nil {
		return domain.Course{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return course, nil
}

// intentRequest запрос на выдачу платежного токена
type intentRequest struct {
	Price float64 `json:"price"`
}

// intentResponse ответ эндпоинта выдачи платежного токена.
// Поле mode может отсутствовать на старых бэкендах.
type intentResponse struct {
	ClientSecret string `json:"clientSecret"`
	Mode         string `json:"mode,omitempty"`
}

// CreatePaymentIntent запрашивает у бэкенда платежный токен на указанную сумму.
// Отсутствующий эндпоинт (404) транслируется в domain.ErrEndpointNotFound,
// чтобы вышестоящий слой детерминированно выбрал деградированный путь.
func (c *Client) CreatePaymentIntent(ctx context.Context, price float64, currency string) (domain.PaymentIntent, error) {
	c.log.Debug("Requesting payment intent for amount %.2f %s", price, currency)

	body, err := json.Marshal(intentRequest{Price: price})
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/create-payment-intent",
		bytes.NewReader(body),
	)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.PaymentIntent{}, domain.ErrEndpointNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.PaymentIntent{}, fmt.Errorf("create-payment-intent returned status %d", resp.StatusCode)
	}

	var intentResp intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intentResp); err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if intentResp.ClientSecret == "" {
		return domain.PaymentIntent{}, fmt.Errorf("create-payment-intent returned empty client secret")
	}

	mode := domain.IntentModeLive
	if intentResp.Mode == string(domain.IntentModeMock) {
		mode = domain.IntentModeMock
	}

	return domain.PaymentIntent{
		ClientSecret: intentResp.ClientSecret,
		Amount:       price,
		Currency:     currency,
		Mode:         mode,
	}, nil
}

// PaymentRecord представляет запись о платеже для сохранения на бэкенде
type PaymentRecord struct {
	Email         string               `json:"email"`
	CourseID      string               `json:"courseId"`
	CourseTitle   string               `json:"courseTitle"`
	Amount        float64              `json:"amount"`
	Currency      string               `json:"currency"`
	TransactionID string               `json:"transactionId"`
	Status        domain.PaymentStatus `json:"status"`
}

// paymentResponse ответ эндпоинта сохранения платежа
type paymentResponse struct {
	PaymentResult struct {
		InsertedID string `json:"insertedId"`
	} `json:"paymentResult"`
	Error string `json:"error,omitempty"`
}

// RecordPayment сохраняет запись о платеже на бэкенде
func (c *Client) RecordPayment(ctx context.Context, record PaymentRecord, idempotencyKey string) (string, error) {
	c.log.Debug("Recording payment %s for %s", record.TransactionID, record.Email)

	body, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/payments",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var paymentResp paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&paymentResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if paymentResp.Error != "" {
			return "", fmt.Errorf("payments returned status %d: %s", resp.StatusCode, paymentResp.Error)
		}
		return "", fmt.Errorf("payments returned status %d", resp.StatusCode)
	}

	if paymentResp.PaymentResult.InsertedID == "" {
		return "", fmt.Errorf("payments returned empty inserted id")
	}

	c.log.Info("Payment %s recorded as %s", record.TransactionID, paymentResp.PaymentResult.InsertedID)
	return paymentResp.PaymentResult.InsertedID, nil
}

// CommitResponse результат сохранения записи на курс.
// Бэкенд различает "создано" и "уже существует"; оба исхода успешны.
type CommitResponse struct {
	InsertedID    string
	AlreadyExists bool
	Message       string
}

// enrollmentResponse ответ эндпоинта сохранения записи на курс
type enrollmentResponse struct {
	InsertedID string `json:"insertedId,omitempty"`
	Exists     bool   `json:"exists,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CreateEnrollment сохраняет запись на курс.
// Ответ {exists: true} не является ошибкой: именно бэкенд авторитетно
// отвечает за инвариант "не более одной записи на пару (слушатель, курс)".
func (c *Client) CreateEnrollment(ctx context.Context, intake domain.Intake, idempotencyKey string) (CommitResponse, error) {
	c.log.Debug("Creating enrollment for %s, course %s", intake.Email, intake.CourseID)

	body, err := json.Marshal(intake)
	if err != nil {
		return CommitResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/course-enrollments",
		bytes.NewReader(body),
	)
	if err != nil {
		return CommitResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CommitResponse{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var enrollResp enrollmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&enrollResp); err != nil {
		return CommitResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if enrollResp.Exists {
		c.log.Info("Enrollment already exists for %s, course %s", intake.Email, intake.CourseID)
		return CommitResponse{
			AlreadyExists: true,
			Message:       enrollResp.Message,
		}, nil
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if enrollResp.Error != "" {
			return CommitResponse{}, fmt.Errorf("course-enrollments returned status %d: %s", resp.StatusCode, enrollResp.Error)
		}
		return CommitResponse{}, fmt.Errorf("course-enrollments returned status %d", resp.StatusCode)
	}

	if enrollResp.InsertedID == "" {
		return CommitResponse{}, fmt.Errorf("course-enrollments returned empty inserted id")
	}

	c.log.Info("Enrollment created as %s for %s", enrollResp.InsertedID, intake.Email)
	return CommitResponse{
		InsertedID: enrollResp.InsertedID,
		Message:    enrollResp.Message,
	}, nil
}
