package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderlife/internal/messaging/kafka"
)

const kafkaClientID = "orders-service"

// kafkaRuntime — producer и паблишеры outbox поверх него.
type kafkaRuntime struct {
	producer  *kafka.Producer
	publisher *kafka.OutboxTopicPublisher
	dlq       *kafka.OutboxTopicPublisher
}

// initKafka поднимает producer, если брокеры заданы.
// Возвращает nil, nil, когда Kafka не настроена.
func initKafka(cfg Config, logger *log.Entry) (*kafkaRuntime, error) {
	if !cfg.KafkaEnabled() {
		return nil, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafkaClientID)
	if err != nil {
		return nil, err
	}

	rt := &kafkaRuntime{
		producer: producer,
		publisher: kafka.NewOutboxPublisher(
			producer, cfg.KafkaTopic, kafka.DefaultBreakerSettings(),
			logger.WithField("topic", cfg.KafkaTopic),
		),
	}
	if cfg.KafkaDLQTopic != "" {
		rt.dlq = kafka.NewOutboxPublisher(
			producer, cfg.KafkaDLQTopic, kafka.DefaultBreakerSettings(),
			logger.WithField("topic", cfg.KafkaDLQTopic),
		)
	}

	logger.WithFields(log.Fields{
		"brokers": cfg.KafkaBrokers,
		"topic":   rt.publisher.Topic(),
		"dlq":     cfg.KafkaDLQTopic,
	}).Info("kafka producer initialized")
	return rt, nil
}

func closeKafkaProducer(rt *kafkaRuntime, logger *log.Entry) {
	if rt == nil || rt.producer == nil {
		return
	}
	if err := rt.producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
