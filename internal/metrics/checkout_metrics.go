package metrics

import (
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CheckoutMetrics интерфейс для метрик оформления
type CheckoutMetrics interface {
	IncCheckoutStarted(path string)
	IncCheckoutCompleted(path, outcome string)
	IncProvisioningFallback()
	ObservePaymentAmount(amount float64, currency string)
}

type checkoutMetrics struct {
	log                  *logger.Logger
	checkoutsStarted     *prometheus.CounterVec
	checkoutsCompleted   *prometheus.CounterVec
	provisioningFallback prometheus.Counter
	paymentAmounts       *prometheus.HistogramVec
}

// NewCheckoutMetrics создает новые метрики оформления
func NewCheckoutMetrics(registry *prometheus.Registry, log *logger.Logger) CheckoutMetrics {
	checkoutsStarted := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_started_total",
			Help: "The total number of started checkouts by path",
		},
		[]string{"path"},
	)

	checkoutsCompleted := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_completed_total",
			Help: "The total number of finished checkouts by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	provisioningFallback := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "provisioning_fallback_total",
			Help: "The total number of checkouts that used the local mock token",
		},
	)

	paymentAmounts := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_payment_amounts",
			Help:    "Confirmed payment amounts distribution",
			Buckets: prometheus.ExponentialBuckets(10, 10, 5), // 10, 100, 1000, 10000, 100000
		},
		[]string{"currency"},
	)

	return &checkoutMetrics{
		log:                  log,
		checkoutsStarted:     checkoutsStarted,
		checkoutsCompleted:   checkoutsCompleted,
		provisioningFallback: provisioningFallback,
		paymentAmounts:       paymentAmounts,
	}
}

// IncCheckoutStarted увеличивает счетчик начатых оформлений
func (m *checkoutMetrics) IncCheckoutStarted(path string) {
	m.checkoutsStarted.WithLabelValues(path).Inc()
}

// IncCheckoutCompleted увеличивает счетчик завершенных оформлений
func (m *checkoutMetrics) IncCheckoutCompleted(path, outcome string) {
	m.checkoutsCompleted.WithLabelValues(path, outcome).Inc()
}

// IncProvisioningFallback увеличивает счетчик использований токена-заглушки
func (m *checkoutMetrics) IncProvisioningFallback() {
	m.provisioningFallback.Inc()
}

// ObservePaymentAmount записывает сумму подтвержденного платежа
func (m *checkoutMetrics) ObservePaymentAmount(amount float64, currency string) {
	m.paymentAmounts.WithLabelValues(currency).Observe(amount)
}

// NoopCheckoutMetrics метрики-заглушка для тестов
type NoopCheckoutMetrics struct{}

func (NoopCheckoutMetrics) IncCheckoutStarted(path string)                    {}
func (NoopCheckoutMetrics) IncCheckoutCompleted(path, outcome string)         {}
func (NoopCheckoutMetrics) IncProvisioningFallback()                          {}
func (NoopCheckoutMetrics) ObservePaymentAmount(amount float64, currency string) {}
