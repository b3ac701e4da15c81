package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/sebastiaan36/louman/internal/domain/auth"
	"github.com/sebastiaan36/louman/internal/domain/cart"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

// httpError maps domain errors onto HTTP status codes. Anything unmapped
// bubbles up as a 500 through echo's error handler, which logs it with the
// request context.
func httpError(err error) error {
	var verr *customer.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{verr.Field: verr.Reason})
	}
	var unavailable *cart.ProductUnavailableError
	if errors.As(err, &unavailable) {
		return echo.NewHTTPError(http.StatusConflict, unavailable.Error())
	}

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.Is(err, auth.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")

	case errors.Is(err, order.ErrForbidden),
		errors.Is(err, cart.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, customer.ErrAddressNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, order.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, customer.ErrAlreadyApproved),
		errors.Is(err, customer.ErrDuplicateKvK),
		errors.Is(err, customer.ErrDuplicateEmail),
		errors.Is(err, order.ErrLocked),
		errors.Is(err, order.ErrInvalidAddress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return err
}
