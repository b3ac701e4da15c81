package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sebastiaan36/louman/internal/domain/deadline"
)

// GetCart returns the customer's cart with live prices.
func (h *Handler) GetCart(c echo.Context) error {
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	view, err := h.carts.View(c.Request().Context(), *cust)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toCartJSON(view))
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AddCartItem puts a product in the cart, merging with an existing line.
func (h *Handler) AddCartItem(c echo.Context) error {
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.carts.Add(c.Request().Context(), *cust, req.ProductID, req.Quantity); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateCartItem changes the quantity of a cart line.
func (h *Handler) UpdateCartItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.carts.SetQuantity(c.Request().Context(), *cust, id, req.Quantity); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveCartItem deletes a cart line. Removing a line that is already gone
// succeeds.
func (h *Handler) RemoveCartItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	if err := h.carts.Remove(c.Request().Context(), *cust, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearCart empties the customer's cart.
func (h *Handler) ClearCart(c echo.Context) error {
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	if err := h.carts.Clear(c.Request().Context(), *cust); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetDeadline reports the time left until the weekly order cutoff.
func (h *Handler) GetDeadline(c echo.Context) error {
	return c.JSON(http.StatusOK, deadline.Until(time.Now()))
}
