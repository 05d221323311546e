// Package orders реализует движок жизненного цикла заказа: создание,
// выборки с учётом прав доступа, смену статуса администратором и отмену владельцем.
package orders

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
	"github.com/vladislavdragonenkov/orderlife/internal/metrics"
)

// Имена операций для логов и метрик.
const (
	opCreate       = "create"
	opListMine     = "list_mine"
	opGet          = "get"
	opListAll      = "list_all"
	opUpdateStatus = "update_status"
	opCancel       = "cancel"
	opTimeline     = "timeline"
)

// Service — фасад движка. Безопасен для конкурентного использования,
// если таковы переданные репозитории.
type Service struct {
	repo     domain.OrderRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithTimeline включает запись событий жизненного цикла.
func WithTimeline(repo domain.TimelineRepository) Option {
	return func(s *Service) { s.timeline = repo }
}

// WithOutbox включает постановку событий в transactional outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(s *Service) { s.outbox = repo }
}

// WithMetrics подключает Prometheus-метрики.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService собирает движок поверх хранилища заказов.
func NewService(repo domain.OrderRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: log.WithField("component", "order-service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock возвращает текущее время в UTC с точностью до микросекунды,
// чтобы значение совпадало с тем, что вернёт PostgreSQL.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// finish записывает длительность и, при ошибке, вид ошибки с логом
// подходящего уровня.
func (s *Service) finish(op string, started time.Time, err error, fields log.Fields) {
	s.metrics.ObserveDuration(op, time.Since(started))
	if err == nil {
		return
	}

	kind := domain.ErrorKind(err)
	s.metrics.RecordError(op, kind)

	entry := s.logger.WithError(err).WithFields(fields).WithFields(log.Fields{
		"operation": op,
		"kind":      kind,
	})
	if kind == "internal" {
		entry.Error("order operation failed")
		return
	}
	entry.Warn("order operation rejected")
}

func principalFields(p *domain.Principal) log.Fields {
	if p == nil {
		return log.Fields{"principal": "none"}
	}
	return log.Fields{"principal_id": p.ID, "principal_role": int(p.Role)}
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
