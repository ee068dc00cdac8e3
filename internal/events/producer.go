package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/config"
)

// Topics for checkout/order lifecycle events
const (
	TopicCheckoutPaid   = "checkout.paid"
	TopicOrderCreated   = "order.created"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderRefunded  = "order.refunded"
)

// Producer publishes lifecycle events to kafka. Best-effort: publish
// failures are logged and never affect the payment state machine.
type Producer struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
}

// NewProducer creates a kafka producer
func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   logger,
	}, nil
}

// Publish sends one event to the given topic
func (p *Producer) Publish(topic string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.Error(err), zap.String("topic", topic))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.logger.Error("Failed to publish event", zap.Error(err), zap.String("topic", topic))
		return
	}
}

// Close shuts the producer down
func (p *Producer) Close() error {
	return p.producer.Close()
}
