package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/campuskit/enrollment-service/pkg/logger"
)

const (
	TopicEnrollmentConfirmed = "enrollment.confirmed"
	TopicPaymentCompleted    = "payment.completed"
	TopicCheckoutFailed      = "checkout.failed"
)

// CheckoutEvent представляет событие оформления для Kafka
type CheckoutEvent struct {
	AttemptID     string  `json:"attempt_id"`
	LearnerEmail  string  `json:"learner_email"`
	CourseID      string  `json:"course_id"`
	CourseTitle   string  `json:"course_title,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// CheckoutProducer интерфейс для отправки событий оформления
type CheckoutProducer interface {
	PublishEnrollmentConfirmed(ctx context.Context, event CheckoutEvent) error
	PublishPaymentCompleted(ctx context.Context, event CheckoutEvent) error
	PublishCheckoutFailed(ctx context.Context, event CheckoutEvent) error
	Close() error
}

type kafkaCheckoutProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaCheckoutProducer создает новый продюсер событий оформления
func NewKafkaCheckoutProducer(producer sarama.SyncProducer, log *logger.Logger) CheckoutProducer {
	return &kafkaCheckoutProducer{
		producer: producer,
		log:      log,
	}
}

// PublishEnrollmentConfirmed публикует событие о подтвержденной записи
func (p *kafkaCheckoutProducer) PublishEnrollmentConfirmed(ctx context.Context, event CheckoutEvent) error {
	return p.publishEvent(ctx, TopicEnrollmentConfirmed, event)
}

// PublishPaymentCompleted публикует событие о завершенном платеже
func (p *kafkaCheckoutProducer) PublishPaymentCompleted(ctx context.Context, event CheckoutEvent) error {
	return p.publishEvent(ctx, TopicPaymentCompleted, event)
}

// PublishCheckoutFailed публикует событие о неудачном оформлении
func (p *kafkaCheckoutProducer) PublishCheckoutFailed(ctx context.Context, event CheckoutEvent) error {
	return p.publishEvent(ctx, TopicCheckoutFailed, event)
}

// publishEvent публикует событие оформления в Kafka
func (p *kafkaCheckoutProducer) publishEvent(ctx context.Context, topic string, event CheckoutEvent) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().Format(time.RFC3339)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.LearnerEmail),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("Failed to publish event to %s: %v", topic, err)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Debug("Published event to %s (partition %d, offset %d)", topic, partition, offset)
	return nil
}

// Close закрывает продюсер
func (p *kafkaCheckoutProducer) Close() error {
	return p.producer.Close()
}

// NoopCheckoutProducer продюсер-заглушка для окружений без Kafka
type NoopCheckoutProducer struct{}

// NewNoopCheckoutProducer создает продюсер-заглушку
func NewNoopCheckoutProducer() CheckoutProducer {
	return &NoopCheckoutProducer{}
}

func (p *NoopCheckoutProducer) PublishEnrollmentConfirmed(ctx context.Context, event CheckoutEvent) error {
	return nil
}

func (p *NoopCheckoutProducer) PublishPaymentCompleted(ctx context.Context, event CheckoutEvent) error {
	return nil
}

func (p *NoopCheckoutProducer) PublishCheckoutFailed(ctx context.Context, event CheckoutEvent) error {
	return nil
}

func (p *NoopCheckoutProducer) Close() error {
	return nil
}
