package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/internal/metrics"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/google/uuid"
)

// IntentCreator интерфейс выдачи платежного токена бэкендом
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, price float64, currency string) (domain.PaymentIntent, error)
}

// IntentProvisioner запрашивает серверную авторизацию платежа для платного курса.
// При отсутствующем эндпоинте выдачи деградирует до детерминированной локальной
// заглушки, помеченной зарезервированным префиксом.
type IntentProvisioner struct {
	backend IntentCreator
	metrics metrics.CheckoutMetrics
	timeout time.Duration
	log     *logger.Logger
}

// NewIntentProvisioner создает новый провижинер платежных токенов
func NewIntentProvisioner(backend IntentCreator, m metrics.CheckoutMetrics, timeout time.Duration, log *logger.Logger) *IntentProvisioner {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &IntentProvisioner{
		backend: backend,
		metrics: m,
		timeout: timeout,
		log:     log,
	}
}

// Provision запрашивает платежный токен на указанную сумму.
// Три исхода:
//   - успех: токен бэкенда в режиме live (или mock, если бэкенд так ответил);
//   - эндпоинт отсутствует: локальная заглушка с префиксом mock_pi_,
//     пользователю ошибка не показывается;
//   - любая другая ошибка: ProvisioningError, жесткая остановка потока —
//     токен для неизвестных сбоев не фабрикуется.
func (p *IntentProvisioner) Provision(ctx context.Context, price float64, currency string) (domain.PaymentIntent, error) {
	if price <= 0 {
		return domain.PaymentIntent{}, domain.ErrInvalidPrice
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	intent, err := p.backend.CreatePaymentIntent(ctx, price, currency)
	if err == nil {
		p.log.Debug("Provisioned %s payment intent for %.2f %s", intent.Mode, price, currency)
		return intent, nil
	}

	if errors.Is(err, domain.ErrEndpointNotFound) {
		p.log.Warn("Payment intent endpoint unavailable, falling back to mock token")
		p.metrics.IncProvisioningFallback()
		return p.mockIntent(price, currency), nil
	}

	p.log.Error("Payment intent provisioning failed: %v", err)
	return domain.PaymentIntent{}, &domain.ProvisioningError{
		Message:     "failed to provision payment intent",
		OriginalErr: err,
	}
}

// mockIntent генерирует локальный токен-заглушку.
// Формат повторяет форму настоящего клиентского секрета, но начинается
// с зарезервированного префикса.
func (p *IntentProvisioner) mockIntent(price float64, currency string) domain.PaymentIntent {
	secret := fmt.Sprintf("%s%s_secret_%s",
		domain.MockSecretPrefix,
		uuid.NewString(),
		uuid.NewString(),
	)

	return domain.PaymentIntent{
		ClientSecret: secret,
		Amount:       price,
		Currency:     currency,
		Mode:         domain.IntentModeMock,
	}
}
