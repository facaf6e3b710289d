package domain

import (
	"strings"
	"time"
)

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// IntentMode режим платежного токена
type IntentMode string

const (
	IntentModeLive IntentMode = "live"
	IntentModeMock IntentMode = "mock"
)

// MockSecretPrefix зарезервированный префикс локально сгенерированного токена.
// Маркер несет смысловую нагрузку: по нему нижестоящие компоненты детерминированно
// выбирают деградированный путь вместо обращения к платежному провайдеру.
const MockSecretPrefix = "mock_pi_"

// MockTransactionPrefix префикс синтезированного идентификатора транзакции
const MockTransactionPrefix = "mock_txn_"

// PaymentIntent представляет эфемерную серверную авторизацию платежа,
// привязанную к одной попытке оформления. Ядро никогда не сохраняет ее.
type PaymentIntent struct {
	ClientSecret string     `json:"client_secret"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	Mode         IntentMode `json:"mode"`
}

// IsMock проверяет, является ли токен локальной заглушкой.
// Префикс проверяется в дополнение к явному флагу режима: токен со старого
// бэкенда может прийти без поля mode.
func (i PaymentIntent) IsMock() bool {
	return i.Mode == IntentModeMock || strings.HasPrefix(i.ClientSecret, MockSecretPrefix)
}

// PaymentReceipt представляет подтверждение успешного списания.
// Создается только при явном успехе провайдера и сохраняется на бэкенде
// вместе с записью на курс.
type PaymentReceipt struct {
	TransactionID string        `json:"transaction_id"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Timestamp     time.Time     `json:"timestamp"`
	Status        PaymentStatus `json:"status"`
}

// CardDetails представляет данные платежного инструмента слушателя
type CardDetails struct {
	Number   string `json:"number"`
	ExpMonth string `json:"exp_month"`
	ExpYear  string `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// IsEmpty проверяет, заполнены ли данные карты
func (c CardDetails) IsEmpty() bool {
	return c.Number == "" && c.ExpMonth == "" && c.ExpYear == "" && c.CVC == ""
}
