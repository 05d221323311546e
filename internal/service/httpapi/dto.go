package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
	"github.com/vladislavdragonenkov/orderlife/internal/service/orders"
)

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
}

type itemResponse struct {
	ProductID int64       `json:"productId"`
	Quantity  int64       `json:"quantity"`
	Price     json.Number `json:"price"`
}

type orderResponse struct {
	ID          int64          `json:"id"`
	OwnerID     int64          `json:"ownerId"`
	Items       []itemResponse `json:"items"`
	TotalAmount json.Number    `json:"totalAmount"`
	Status      string         `json:"status"`
	Note        *string        `json:"note,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type timelineResponse struct {
	Type       string    `json:"type"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]itemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, itemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     json.Number(item.UnitPrice.String()),
		})
	}
	return orderResponse{
		ID:          o.ID,
		OwnerID:     o.OwnerID,
		Items:       items,
		TotalAmount: json.Number(o.TotalAmount.String()),
		Status:      string(o.Status),
		Note:        o.Note,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toOrderList(list []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func toTimeline(events []domain.TimelineEvent) []timelineResponse {
	out := make([]timelineResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, timelineResponse{Type: ev.Type, Reason: ev.Reason, OccurredAt: ev.Occurred})
	}
	return out
}

type createRequest struct {
	Items json.RawMessage `json:"items"`
	Note  json.RawMessage `json:"note"`
}

type statusRequest struct {
	Status json.RawMessage `json:"status"`
}

// parseCreate разбирает тело создания заказа. Структурные ошибки тела
// (не объект, items не массив) становятся ошибками валидации; значения
// полей позиций проверяет домен.
func parseCreate(body []byte) (orders.CreateInput, error) {
	var req createRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return orders.CreateInput{}, fmt.Errorf("%w: request body must be a JSON object", domain.ErrValidationFailed)
	}

	var rawItems []json.RawMessage
	if isNull(req.Items) || json.Unmarshal(req.Items, &rawItems) != nil {
		return orders.CreateInput{}, domain.ErrItemsRequired
	}

	in := orders.CreateInput{Items: make([]domain.CandidateItem, 0, len(rawItems))}
	for _, raw := range rawItems {
		in.Items = append(in.Items, parseCandidate(raw))
	}

	if !isNull(req.Note) {
		var note string
		if err := json.Unmarshal(req.Note, &note); err != nil {
			return orders.CreateInput{}, fmt.Errorf("%w: note must be a string", domain.ErrValidationFailed)
		}
		in.Note = &note
	}
	return in, nil
}

// parseCandidate не отклоняет позицию сам: поле, которое отсутствует или
// не является числом нужного вида, остаётся nil.
func parseCandidate(raw json.RawMessage) domain.CandidateItem {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.CandidateItem{}
	}
	return domain.CandidateItem{
		ProductID: integerField(fields["productId"]),
		Quantity:  integerField(fields["quantity"]),
		Price:     decimalField(fields["price"]),
	}
}

const maxIntegerExponent = 19

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

func integerField(raw json.RawMessage) *int64 {
	num, ok := numberField(raw)
	if !ok {
		return nil
	}
	if v, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
		return &v
	}
	// Целые значения в записи с точкой или экспонентой (2.0, 2e0) тоже принимаются.
	d, err := decimal.NewFromString(num.String())
	if err != nil || d.Exponent() > maxIntegerExponent || d.Exponent() < -maxIntegerExponent {
		return nil
	}
	if !d.Equal(d.Truncate(0)) || d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return nil
	}
	v := d.IntPart()
	return &v
}

func decimalField(raw json.RawMessage) *decimal.Decimal {
	num, ok := numberField(raw)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(num.String())
	if err != nil {
		return nil
	}
	return &d
}

// numberField принимает только JSON-числа; строки вроде "10" отклоняются.
func numberField(raw json.RawMessage) (json.Number, bool) {
	if len(raw) == 0 {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	num, ok := v.(json.Number)
	return num, ok
}

// parseStatus достаёт строковый статус; всё остальное даёт пустую строку,
// которую движок отклонит как неизвестный статус.
func parseStatus(body []byte) string {
	var req statusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	var status string
	if err := json.Unmarshal(req.Status, &status); err != nil {
		return ""
	}
	return status
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
