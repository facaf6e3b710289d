package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionReturnsBackendIntent(t *testing.T) {
	b := &fakeBackend{
		intent: domain.PaymentIntent{
			ClientSecret: "pi_live_secret_xyz",
			Amount:       75,
			Currency:     "USD",
			Mode:         domain.IntentModeLive,
		},
	}
	p := NewIntentProvisioner(b, metrics.NoopCheckoutMetrics{}, 0, testLogger())

	intent, err := p.Provision(context.Background(), 75, "USD")
	require.NoError(t, err)
	assert.Equal(t, "pi_live_secret_xyz", intent.ClientSecret)
	assert.False(t, intent.IsMock())
}

func TestProvisionFallsBackOnMissingEndpoint(t *testing.T) {
	b := &fakeBackend{intentErr: domain.ErrEndpointNotFound}
	p := NewIntentProvisioner(b, metrics.NoopCheckoutMetrics{}, 0, testLogger())

	intent, err := p.Provision(context.Background(), 75, "USD")
	require.NoError(t, err)

	assert.True(t, intent.IsMock())
	assert.True(t, strings.HasPrefix(intent.ClientSecret, domain.MockSecretPrefix))
	// Заглушка повторяет форму настоящего секрета
	assert.Contains(t, intent.ClientSecret, "_secret_")
	assert.Equal(t, 75.0, intent.Amount)
	assert.Equal(t, "USD", intent.Currency)
}

func TestProvisionFallbackSecretsAreUnique(t *testing.T) {
	b := &fakeBackend{intentErr: domain.ErrEndpointNotFound}
	p := NewIntentProvisioner(b, metrics.NoopCheckoutMetrics{}, 0, testLogger())

	first, err := p.Provision(context.Background(), 75, "USD")
	require.NoError(t, err)
	second, err := p.Provision(context.Background(), 75, "USD")
	require.NoError(t, err)

	assert.NotEqual(t, first.ClientSecret, second.ClientSecret)
}

func TestProvisionOtherErrorsAreFatal(t *testing.T) {
	b := &fakeBackend{intentErr: errors.New("backend exploded")}
	p := NewIntentProvisioner(b, metrics.NoopCheckoutMetrics{}, 0, testLogger())

	_, err := p.Provision(context.Background(), 75, "USD")

	var provisioningErr *domain.ProvisioningError
	require.ErrorAs(t, err, &provisioningErr)
	assert.ErrorContains(t, provisioningErr.OriginalErr, "backend exploded")
}

func TestProvisionRejectsNonPositivePrice(t *testing.T) {
	b := &fakeBackend{}
	p := NewIntentProvisioner(b, metrics.NoopCheckoutMetrics{}, 0, testLogger())

	_, err := p.Provision(context.Background(), 0, "USD")
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = p.Provision(context.Background(), -10, "USD")
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	// Невалидная цена не доходит до бэкенда
	assert.Empty(t, b.callList())
}
