package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

const maxBodyBytes = 1 << 20

func (h *Handler) create(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return h.fail(c, err)
	}
	in, err := parseCreate(body)
	if err != nil {
		return h.fail(c, err)
	}

	order, err := h.engine.Create(c.Request().Context(), principalFrom(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, envelope{Success: true, Data: toOrderResponse(order)})
}

func (h *Handler) listMine(c echo.Context) error {
	list, err := h.engine.ListMine(c.Request().Context(), principalFrom(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toOrderList(list)})
}

func (h *Handler) listAll(c echo.Context) error {
	list, err := h.engine.ListAll(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toOrderList(list)})
}

func (h *Handler) get(c echo.Context) error {
	id, ok := orderID(c)
	if !ok {
		return h.fail(c, domain.ErrOrderNotFound)
	}
	order, err := h.engine.Get(c.Request().Context(), principalFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toOrderResponse(order)})
}

func (h *Handler) timeline(c echo.Context) error {
	id, ok := orderID(c)
	if !ok {
		return h.fail(c, domain.ErrOrderNotFound)
	}
	events, err := h.engine.Timeline(c.Request().Context(), principalFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toTimeline(events)})
}

// updateStatus проверяет статус раньше, чем ищет заказ, в том числе при
// нечисловом id.
func (h *Handler) updateStatus(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return h.fail(c, err)
	}
	status := parseStatus(body)

	id, ok := orderID(c)
	if !ok {
		if _, err := domain.ParseOrderStatus(status); err != nil {
			return h.fail(c, err)
		}
		return h.fail(c, domain.ErrOrderNotFound)
	}

	order, err := h.engine.UpdateStatus(c.Request().Context(), id, status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toOrderResponse(order)})
}

func (h *Handler) cancel(c echo.Context) error {
	id, ok := orderID(c)
	if !ok {
		return h.fail(c, domain.ErrOrderNotFound)
	}
	order, err := h.engine.CancelMine(c.Request().Context(), principalFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toOrderResponse(order)})
}

// fail переводит ошибку движка в HTTP-статус и {"message": ...}.
func (h *Handler) fail(c echo.Context, err error) error {
	code, message := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("order request failed")
	}
	return c.JSON(code, errorBody{Message: message})
}

func statusFor(err error) (int, string) {
	switch {
	case domain.IsAuthenticationRequired(err):
		return http.StatusUnauthorized, "authentication required"
	case domain.IsAccessDenied(err):
		return http.StatusForbidden, "access denied"
	case domain.IsNotFound(err):
		return http.StatusNotFound, "order not found"
	case domain.IsValidation(err), domain.IsInvalidTransition(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// orderID принимает только десятичный int64; иначе заказ считается ненайденным.
func orderID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}
