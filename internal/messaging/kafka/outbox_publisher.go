package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

// ErrBreakerOpen возвращается, пока circuit breaker не пропускает публикацию.
var ErrBreakerOpen = fmt.Errorf("%w: kafka circuit breaker is open", domain.ErrPublisherUnavailable)

// BreakerSettings настраивает circuit breaker паблишера.
type BreakerSettings struct {
	// MinRequests — сколько запросов в окне нужно, прежде чем breaker может сработать.
	MinRequests uint32
	// FailureRatio — доля ошибок, при которой breaker размыкается.
	FailureRatio float64
	// OpenTimeout — через сколько разомкнутый breaker пропустит пробный запрос.
	OpenTimeout time.Duration
	Interval    time.Duration
}

// DefaultBreakerSettings повторяет настройки gateway-клиентов.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  5,
		FailureRatio: 0.6,
		OpenTimeout:  10 * time.Second,
		Interval:     5 * time.Second,
	}
}

// OutboxTopicPublisher публикует outbox-сообщения в Kafka topic через circuit breaker.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	breaker  *gobreaker.CircuitBreaker
	now      func() time.Time
}

// NewOutboxPublisher создаёт паблишер outbox → topic.
func NewOutboxPublisher(producer *Producer, topic string, settings BreakerSettings, logger *log.Entry) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderLifecycle
	}
	if logger == nil {
		logger = log.WithField("component", "kafka-outbox-publisher")
	}
	if settings.MinRequests == 0 {
		settings.MinRequests = DefaultBreakerSettings().MinRequests
	}
	if settings.FailureRatio <= 0 {
		settings.FailureRatio = DefaultBreakerSettings().FailureRatio
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka:" + topic,
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
		breaker:  breaker,
		now:      time.Now,
	}
}

// Topic возвращает целевой топик.
func (p *OutboxTopicPublisher) Topic() string {
	return p.topic
}

// BreakerState отдаёт состояние breaker (для health и тестов).
func (p *OutboxTopicPublisher) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// CheckHealth сообщает об открытом breaker; подходит для health.FuncChecker.
func (p *OutboxTopicPublisher) CheckHealth(context.Context) error {
	if p.breaker.State() == gobreaker.StateOpen {
		return ErrBreakerOpen
	}
	return nil
}

// Publish отправляет сообщение, ключуя его aggregate id, чтобы события
// одного заказа попадали в одну партицию.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	envelope := Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		PublishedAt:   p.now().UTC(),
	}
	headers := map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
		HeaderOutboxID:      event.ID,
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishEvent(p.topic, key, envelope, headers)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	}
	return err
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
