package domain

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок. Транспорт сопоставляет их с кодами ответа через errors.Is.
var (
	// ErrAuthenticationRequired — запрос пришёл без проверенного принципала.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrAccessDenied — у принципала нет прав на этот заказ.
	ErrAccessDenied = errors.New("access denied")
	// ErrValidationFailed — некорректные входные данные.
	ErrValidationFailed = errors.New("validation failed")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStateTransition — переход статуса запрещён правилами жизненного цикла.
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

var (
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = fmt.Errorf("%w: order must contain at least one item", ErrValidationFailed)
	// Ошибка структуры позиции: нет числового поля, qty <= 0, цена < 0 или вне NUMERIC(20,4).
	ErrItemInvalid = fmt.Errorf("%w: invalid item in order", ErrValidationFailed)
	// ErrTotalOutOfRange — сумма заказа не помещается в NUMERIC(20,4).
	ErrTotalOutOfRange = fmt.Errorf("%w: order total is out of range", ErrValidationFailed)
	// Ошибка значения статуса вне перечисления.
	ErrInvalidStatus = fmt.Errorf("%w: invalid order status", ErrValidationFailed)
	// ErrCancelNotAllowed — владелец может отменить заказ только в pending или confirmed.
	ErrCancelNotAllowed = fmt.Errorf("%w: order can only be cancelled while pending or confirmed", ErrInvalidStateTransition)
)

// Нарушения инвариантов хранимого заказа (ValidateInvariants).
var (
	ErrItemQtyInvalid    = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid  = errors.New("item price must be non-negative")
	ErrAmountMismatch    = errors.New("order total does not match items sum")
	ErrTimestampsInvalid = errors.New("updated_at must not precede created_at")
)

// ErrInvariantViolated — заказ после изменения нарушает инварианты.
// Это внутренняя ошибка, а не ошибка ввода.
var ErrInvariantViolated = errors.New("order invariant violated")

// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
var ErrOutboxPublish = errors.New("outbox publish failed")

// ErrPublisherUnavailable означает, что брокер временно не принимает сообщения
// и повторять попытки в текущем цикле бессмысленно.
var ErrPublisherUnavailable = errors.New("event publisher unavailable")

// IsValidation проверяет, относится ли ошибка к ValidationFailed.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsAuthenticationRequired проверяет отсутствие принципала.
func IsAuthenticationRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired)
}

// IsNotFound проверяет, что заказ не найден.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// IsAccessDenied проверяет отказ в доступе.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidTransition проверяет запрещённый переход статуса.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition)
}

// ErrorKind возвращает короткое имя вида ошибки для логов и метрик.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsAuthenticationRequired(err):
		return "authentication_required"
	case IsAccessDenied(err):
		return "access_denied"
	case IsValidation(err):
		return "validation_failed"
	case IsNotFound(err):
		return "not_found"
	case IsInvalidTransition(err):
		return "invalid_state_transition"
	default:
		return "internal"
	}
}

// CheckInvariants собирает нарушения ValidateInvariants в одну ErrInvariantViolated.
// Исходные ошибки не оборачиваются, чтобы нарушение не выглядело ошибкой ввода.
func CheckInvariants(o *Order) error {
	errs := o.ValidateInvariants()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: order %d: %v", ErrInvariantViolated, o.ID, errors.Join(errs...))
}
