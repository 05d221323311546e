package kafka

import (
	"encoding/json"
	"time"
)

// Топики по умолчанию.
const (
	TopicOrderLifecycle = "orders.lifecycle.events"
	TopicDeadLetter     = "orders.lifecycle.dlq"
)

// Заголовки Kafka-записи.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)

// Envelope — формат сообщения в топике: метаданные outbox плюс исходный payload.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}
