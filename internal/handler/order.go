package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sebastiaan36/louman/internal/domain/cart"
	"github.com/sebastiaan36/louman/internal/domain/document"
	"github.com/sebastiaan36/louman/internal/domain/order"
)

// ListMyOrders returns the customer's own orders, optionally filtered by
// status and a free-text query.
func (h *Handler) ListMyOrders(c echo.Context) error {
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}

	summaries, err := h.orders.Search(c.Request().Context(),
		order.Status(c.QueryParam("status")), c.QueryParam("q"), cust.ID)
	if err != nil {
		return httpError(err)
	}

	out := make([]orderSummaryJSON, len(summaries))
	for i, s := range summaries {
		out[i] = toOrderSummaryJSON(s)
	}
	return c.JSON(http.StatusOK, out)
}

type placeOrderRequest struct {
	DeliveryAddressID *int64 `json:"delivery_address_id"`
	Notes             string `json:"notes"`
}

// PlaceOrder turns the cart into a pending order.
func (h *Handler) PlaceOrder(c echo.Context) error {
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d, err := h.orders.PlaceOrder(c.Request().Context(), *cust, order.PlaceOrderRequest{
		DeliveryAddressID: req.DeliveryAddressID,
		Notes:             req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toOrderDetailJSON(d))
}

// GetMyOrder returns one of the customer's own orders.
func (h *Handler) GetMyOrder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	d, err := h.orders.GetForCustomer(c.Request().Context(), *cust, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toOrderDetailJSON(d))
}

// Reorder merges a past order's lines back into the cart. Products that have
// since gone unavailable are skipped and reported.
func (h *Handler) Reorder(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	d, err := h.orders.GetForCustomer(ctx, *cust, id)
	if err != nil {
		return httpError(err)
	}

	lines := make([]cart.ReorderLine, len(d.Items))
	for i, it := range d.Items {
		lines[i] = cart.ReorderLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	result, err := h.carts.Reorder(ctx, *cust, lines)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"added":       result.Added,
		"unavailable": result.Unavailable,
	})
}

// MyPackingSlip renders the packing slip PDF for one of the customer's own
// orders.
func (h *Handler) MyPackingSlip(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cust, err := h.currentCustomer(c)
	if err != nil {
		return httpError(err)
	}
	d, err := h.orders.GetForCustomer(c.Request().Context(), *cust, id)
	if err != nil {
		return httpError(err)
	}

	pdf, err := h.renderer.PackingSlip(*document.PackingSlipFor(*d, time.Now()))
	if err != nil {
		return httpError(err)
	}
	return pdfResponse(c, fmt.Sprintf("packing-slip-%d.pdf", d.ID), pdf)
}

func pdfResponse(c echo.Context, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", data)
}
