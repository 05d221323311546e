package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ждёт подтверждения.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — заказ подтверждён администратором.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен, терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён, терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// AllOrderStatuses перечисляет допустимые статусы в порядке жизненного цикла.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus превращает внешнее значение в OrderStatus или возвращает ErrInvalidStatus.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	for _, status := range AllOrderStatuses {
		if string(status) == raw {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// IsValid сообщает, входит ли статус в перечисление.
func (s OrderStatus) IsValid() bool {
	_, err := ParseOrderStatus(string(s))
	return err == nil
}

// IsTerminal возвращает true для delivered и cancelled.
// Административный путь это не проверяет и может переоткрыть такой заказ.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OwnerCancellable сообщает, может ли владелец отменить заказ в этом статусе.
func (s OrderStatus) OwnerCancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// OrderItem представляет одну позицию заказа. После создания заказа не меняется.
type OrderItem struct {
	ProductID int64
	Quantity  int64
	// UnitPrice — цена за единицу; точная десятичная арифметика без float.
	UnitPrice decimal.Decimal
}

// Subtotal возвращает quantity * unitPrice.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Денежные значения ограничены колонками NUMERIC(20,4): не больше четырёх
// знаков после запятой и модуль меньше 10^16.
const (
	MoneyScale     = 4
	moneyIntDigits = 16

	// Грубые пределы отсекают огромные экспоненты до точного сравнения.
	moneyMaxExponent        = 64
	moneyMaxCoefficientBits = 256
)

var moneyLimit = decimal.New(1, moneyIntDigits)

// MoneyInRange сообщает, хранится ли значение в NUMERIC(20,4) без округления.
func MoneyInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > moneyMaxExponent || exp < -moneyMaxExponent || d.Coefficient().BitLen() > moneyMaxCoefficientBits {
		return false
	}
	return d.Abs().LessThan(moneyLimit) && d.Equal(d.Truncate(MoneyScale))
}

// CandidateItem — позиция из входящего запроса до проверки.
// nil-поле означает, что значение отсутствовало или имело неверный тип.
type CandidateItem struct {
	ProductID *int64
	Quantity  *int64
	Price     *decimal.Decimal
}

// Validate проверяет кандидата и возвращает неизменяемую позицию заказа.
func (c CandidateItem) Validate() (OrderItem, error) {
	switch {
	case c.ProductID == nil:
		return OrderItem{}, fmt.Errorf("%w: productId must be an integer", ErrItemInvalid)
	case c.Quantity == nil:
		return OrderItem{}, fmt.Errorf("%w: quantity must be an integer", ErrItemInvalid)
	case c.Price == nil:
		return OrderItem{}, fmt.Errorf("%w: price must be a number", ErrItemInvalid)
	case *c.Quantity <= 0:
		return OrderItem{}, fmt.Errorf("%w: quantity must be greater than zero", ErrItemInvalid)
	case c.Price.IsNegative():
		return OrderItem{}, fmt.Errorf("%w: price must be non-negative", ErrItemInvalid)
	case !MoneyInRange(*c.Price):
		return OrderItem{}, fmt.Errorf("%w: price is out of range", ErrItemInvalid)
	}

	return OrderItem{
		ProductID: *c.ProductID,
		Quantity:  *c.Quantity,
		UnitPrice: *c.Price,
	}, nil
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID          int64
	OwnerID     int64
	Items       []OrderItem
	TotalAmount decimal.Decimal
	Status      OrderStatus
	// Note — непрозрачная заметка покупателя, после создания никем не читается.
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder проверяет позиции и собирает новый заказ в статусе pending.
// ID назначает хранилище при вставке.
func NewOrder(ownerID int64, candidates []CandidateItem, note *string, now time.Time) (Order, error) {
	if len(candidates) == 0 {
		return Order{}, ErrItemsRequired
	}

	items := make([]OrderItem, 0, len(candidates))
	for idx, candidate := range candidates {
		item, err := candidate.Validate()
		if err != nil {
			return Order{}, fmt.Errorf("item[%d]: %w", idx, err)
		}
		items = append(items, item)
	}

	total := SumItems(items)
	if !MoneyInRange(total) {
		return Order{}, ErrTotalOutOfRange
	}

	order := Order{
		OwnerID:     ownerID,
		Items:       items,
		TotalAmount: total,
		Status:      OrderStatusPending,
		Note:        cloneNote(note),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return order, nil
}

// SumItems считает сумму quantity * unitPrice по всем позициям.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// SetStatus безусловно перезаписывает статус (административный путь).
func (o *Order) SetStatus(status OrderStatus, now time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	o.Status = status
	o.touch(now)
	return nil
}

// Cancel переводит заказ в cancelled, если текущий статус это допускает.
func (o *Order) Cancel(now time.Time) error {
	if !o.Status.OwnerCancellable() {
		return fmt.Errorf("%w (current status %q)", ErrCancelNotAllowed, o.Status)
	}
	o.Status = OrderStatusCancelled
	o.touch(now)
	return nil
}

// touch обновляет UpdatedAt так, чтобы он строго рос даже при грубых часах.
func (o *Order) touch(now time.Time) {
	if !now.After(o.UpdatedAt) {
		now = o.UpdatedAt.Add(time.Microsecond)
	}
	o.UpdatedAt = now
}

// Clone возвращает копию заказа, не разделяющую позиции и заметку с оригиналом.
func (o Order) Clone() Order {
	clone := o
	if o.Items != nil {
		clone.Items = make([]OrderItem, len(o.Items))
		copy(clone.Items, o.Items)
	}
	clone.Note = cloneNote(o.Note)
	return clone
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() || !MoneyInRange(item.UnitPrice) {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}
	// Сверяем сумму заказа с суммой позиций: qty * price.
	if !SumItems(o.Items).Equal(o.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}
	if !MoneyInRange(o.TotalAmount) {
		errs = append(errs, ErrTotalOutOfRange)
	}
	if !o.Status.IsValid() {
		errs = append(errs, ErrInvalidStatus)
	}
	if o.UpdatedAt.Before(o.CreatedAt) {
		errs = append(errs, ErrTimestampsInvalid)
	}

	return errs
}

func cloneNote(note *string) *string {
	if note == nil {
		return nil
	}
	v := *note
	return &v
}
