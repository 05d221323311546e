package orders

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

const aggregateOrder = "order"

// lifecycleEvent — payload outbox-сообщения о заказе.
type lifecycleEvent struct {
	OrderID        int64       `json:"order_id"`
	OwnerID        int64       `json:"owner_id"`
	Status         string      `json:"status"`
	PreviousStatus string      `json:"previous_status,omitempty"`
	Source         string      `json:"source,omitempty"`
	TotalAmount    json.Number `json:"total_amount"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

func transitionReason(from, to domain.OrderStatus) string {
	return fmt.Sprintf("%s→%s", from, to)
}

// record пишет событие в timeline и outbox. Заказ к этому моменту уже
// сохранён, поэтому ошибки побочных записей только логируются.
func (s *Service) record(order domain.Order, eventType string, previous domain.OrderStatus, source string) {
	reason := ""
	if previous != "" {
		reason = transitionReason(previous, order.Status)
	}

	if s.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Reason:   reason,
			Occurred: order.UpdatedAt,
		}
		if err := s.timeline.Append(event); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"event_type": eventType,
			}).Warn("failed to append timeline event")
		}
	}

	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(lifecycleEvent{
		OrderID:        order.ID,
		OwnerID:        order.OwnerID,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		Source:         source,
		TotalAmount:    json.Number(order.TotalAmount.String()),
		OccurredAt:     order.UpdatedAt,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to encode lifecycle event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: aggregateOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": eventType,
		}).Error("failed to enqueue lifecycle event")
	}
}
