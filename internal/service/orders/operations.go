package orders

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
	"github.com/vladislavdragonenkov/orderlife/internal/metrics"
)

// CreateInput — тело запроса на создание заказа.
type CreateInput struct {
	Items []domain.CandidateItem
	Note  *string
}

// Create проверяет позиции, считает сумму и сохраняет заказ в статусе pending.
// При любой ошибке ничего не сохраняется.
func (s *Service) Create(ctx context.Context, p *domain.Principal, in CreateInput) (order domain.Order, err error) {
	started := time.Now()
	defer func() { s.finish(opCreate, started, err, principalFields(p)) }()

	if err = checkContext(ctx); err != nil {
		return domain.Order{}, err
	}
	if err = domain.RequireAuthenticated(p); err != nil {
		return domain.Order{}, err
	}

	draft, err := domain.NewOrder(p.ID, in.Items, in.Note, s.clock())
	if err != nil {
		return domain.Order{}, err
	}
	if err = domain.CheckInvariants(&draft); err != nil {
		return domain.Order{}, err
	}

	order, err = s.repo.Insert(draft)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	s.metrics.RecordCreated()
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"owner_id": order.OwnerID,
		"items":    len(order.Items),
		"total":    order.TotalAmount.String(),
	}).Info("order created")

	s.record(order, domain.TimelineOrderCreated, "", "")
	return order, nil
}

// ListMine возвращает заказы принципала в порядке создания.
func (s *Service) ListMine(ctx context.Context, p *domain.Principal) (orders []domain.Order, err error) {
	started := time.Now()
	defer func() { s.finish(opListMine, started, err, principalFields(p)) }()

	if err = checkContext(ctx); err != nil {
		return nil, err
	}
	if err = domain.RequireAuthenticated(p); err != nil {
		return nil, err
	}

	orders, err = s.repo.ListByOwner(p.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders of owner %d: %w", p.ID, err)
	}
	return orders, nil
}

// Get возвращает заказ владельцу или администратору.
// Отсутствие заказа проверяется раньше прав доступа.
func (s *Service) Get(ctx context.Context, p *domain.Principal, id int64) (order domain.Order, err error) {
	started := time.Now()
	defer func() { s.finish(opGet, started, err, log.Fields{"order_id": id}) }()

	if err = checkContext(ctx); err != nil {
		return domain.Order{}, err
	}
	return s.loadVisible(p, id)
}

// ListAll возвращает все заказы. Роль проверяет транспорт.
func (s *Service) ListAll(ctx context.Context) (orders []domain.Order, err error) {
	started := time.Now()
	defer func() { s.finish(opListAll, started, err, nil) }()

	if err = checkContext(ctx); err != nil {
		return nil, err
	}

	orders, err = s.repo.ListAll()
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus безусловно выставляет статус из перечисления. Значение
// проверяется до поиска заказа.
func (s *Service) UpdateStatus(ctx context.Context, id int64, rawStatus string) (order domain.Order, err error) {
	started := time.Now()
	defer func() {
		s.finish(opUpdateStatus, started, err, log.Fields{"order_id": id, "requested_status": rawStatus})
	}()

	if err = checkContext(ctx); err != nil {
		return domain.Order{}, err
	}

	status, err := domain.ParseOrderStatus(rawStatus)
	if err != nil {
		return domain.Order{}, err
	}

	var previous domain.OrderStatus
	order, err = s.repo.Update(id, func(o *domain.Order) error {
		previous = o.Status
		if err := o.SetStatus(status, s.clock()); err != nil {
			return err
		}
		return domain.CheckInvariants(o)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.transitioned(order, previous, metrics.SourceAdmin)
	return order, nil
}

// CancelMine отменяет заказ владельца из pending или confirmed.
// Проверка статуса и запись выполняются атомарно.
func (s *Service) CancelMine(ctx context.Context, p *domain.Principal, id int64) (order domain.Order, err error) {
	started := time.Now()
	defer func() {
		fields := principalFields(p)
		fields["order_id"] = id
		s.finish(opCancel, started, err, fields)
	}()

	if err = checkContext(ctx); err != nil {
		return domain.Order{}, err
	}

	var previous domain.OrderStatus
	order, err = s.repo.Update(id, func(o *domain.Order) error {
		if err := domain.CanCancel(p, *o); err != nil {
			return err
		}
		previous = o.Status
		if err := o.Cancel(s.clock()); err != nil {
			return err
		}
		return domain.CheckInvariants(o)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.transitioned(order, previous, metrics.SourceOwner)
	return order, nil
}

// Timeline возвращает историю заказа тем же, кому виден сам заказ.
func (s *Service) Timeline(ctx context.Context, p *domain.Principal, id int64) (events []domain.TimelineEvent, err error) {
	started := time.Now()
	defer func() { s.finish(opTimeline, started, err, log.Fields{"order_id": id}) }()

	if err = checkContext(ctx); err != nil {
		return nil, err
	}
	if _, err = s.loadVisible(p, id); err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}

	events, err = s.timeline.List(id)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	return events, nil
}

func (s *Service) loadVisible(p *domain.Principal, id int64) (domain.Order, error) {
	order, err := s.repo.Get(id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := domain.CanView(p, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Service) transitioned(order domain.Order, previous domain.OrderStatus, source string) {
	s.metrics.RecordTransition(source, string(previous), string(order.Status))
	entry := s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     previous,
		"to":       order.Status,
		"source":   source,
	})
	if previous.IsTerminal() && !order.Status.IsTerminal() {
		entry.Warn("terminal order reopened")
	} else {
		entry.Info("order status changed")
	}

	eventType := domain.TimelineOrderStatusChanged
	if order.Status == domain.OrderStatusCancelled {
		eventType = domain.TimelineOrderCancelled
	}
	s.record(order, eventType, previous, source)
}
