package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"velour/internal/domain"
)

// KafkaSink publishes domain events to a Kafka topic. Publish failures are
// logged, never propagated: downstream consumers are fire-and-forget
// collaborators of the payment core.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("kafka event sink initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &KafkaSink{producer: producer, topic: topic, logger: logger}, nil
}

func (s *KafkaSink) Emit(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("marshal domain event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(ev.Name),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		s.logger.Error("publish domain event",
			zap.String("event", ev.Name),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("domain event published",
		zap.String("event", ev.Name),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
