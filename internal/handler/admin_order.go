package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sebastiaan36/louman/internal/domain/document"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/pdf"
)

// SearchOrders returns orders across all customers, filtered by status, a
// free-text query ("#12" or a bare number match the order id) and optionally
// one customer.
func (h *Handler) SearchOrders(c echo.Context) error {
	var customerID int64
	if v := c.QueryParam("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid customer_id")
		}
		customerID = id
	}

	summaries, err := h.orders.Search(c.Request().Context(),
		order.Status(c.QueryParam("status")), c.QueryParam("q"), customerID)
	if err != nil {
		return httpError(err)
	}

	out := make([]orderSummaryJSON, len(summaries))
	for i, s := range summaries {
		out[i] = toOrderSummaryJSON(s)
	}
	return c.JSON(http.StatusOK, out)
}

type adminOrderLine struct {
	ItemID    int64 `json:"item_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type adminCreateOrderRequest struct {
	CustomerID        int64            `json:"customer_id"`
	DeliveryAddressID *int64           `json:"delivery_address_id"`
	Lines             []adminOrderLine `json:"lines"`
	Notes             string           `json:"notes"`
}

// AdminCreateOrder creates an order on a customer's behalf, priced with that
// customer's discount.
func (h *Handler) AdminCreateOrder(c echo.Context) error {
	var req adminCreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CustomerID < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "customer_id is required")
	}

	lines := make([]order.InputLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = order.InputLine{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	d, err := h.orders.AdminCreate(c.Request().Context(), order.AdminCreateRequest{
		CustomerID:        req.CustomerID,
		DeliveryAddressID: req.DeliveryAddressID,
		Lines:             lines,
		Notes:             req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toOrderDetailJSON(d))
}

// GetOrder returns any order by id.
func (h *Handler) GetOrder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.orders.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toOrderDetailJSON(d))
}

type updateOrderRequest struct {
	Lines []adminOrderLine `json:"lines"`
	Notes string           `json:"notes"`
}

// UpdateOrder replaces an order's lines and notes. Lines carrying an item id
// keep their frozen price; new lines are priced at the current rate.
func (h *Handler) UpdateOrder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	lines := make([]order.UpdateLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = order.UpdateLine{ItemID: l.ItemID, ProductID: l.ProductID, Quantity: l.Quantity}
	}
	d, err := h.orders.Update(c.Request().Context(), id, order.UpdateRequest{Lines: lines, Notes: req.Notes})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toOrderDetailJSON(d))
}

// UpdateOrderStatus moves an order to a new status. Moving to completed mails
// the customer a shipping confirmation.
func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.orders.UpdateStatus(c.Request().Context(), id, order.Status(req.Status)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// BulkOrderStatus moves a batch of orders to a new status without mailing
// anyone.
func (h *Handler) BulkOrderStatus(c echo.Context) error {
	var req struct {
		OrderIDs []int64 `json:"order_ids"`
		Status   string  `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.OrderIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "order_ids is required")
	}
	if err := h.orders.BulkUpdateStatus(c.Request().Context(), req.OrderIDs, order.Status(req.Status)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": len(req.OrderIDs)})
}

// BulkPackingSlips renders packing slips for the given orders, or for all
// pending orders when no ids are sent, and bundles them into a ZIP.
func (h *Handler) BulkPackingSlips(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		OrderIDs []int64 `json:"order_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var slips []document.PackingSlip
	if len(req.OrderIDs) == 0 {
		var err error
		if slips, err = h.documents.BuildPendingPackingSlips(ctx); err != nil {
			return httpError(err)
		}
	} else {
		now := time.Now()
		for _, id := range req.OrderIDs {
			d, err := h.orders.Get(ctx, id)
			if err != nil {
				return httpError(err)
			}
			slips = append(slips, *document.PackingSlipFor(*d, now))
		}
	}
	if len(slips) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no orders to print")
	}

	archive, err := pdf.BulkPackingSlips(ctx, h.renderer, slips)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="packing-slips.zip"`)
	return c.Blob(http.StatusOK, "application/zip", archive)
}

// PackingSlip renders the packing slip PDF for any order.
func (h *Handler) PackingSlip(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	slip, err := h.documents.BuildPackingSlip(ctx, id)
	if err != nil {
		return httpError(err)
	}
	data, err := h.renderer.PackingSlip(*slip)
	if err != nil {
		return httpError(err)
	}
	return pdfResponse(c, fmt.Sprintf("packing-slip-%d.pdf", id), data)
}

// Invoice renders the invoice PDF for an order.
func (h *Handler) Invoice(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.documents.BuildInvoice(ctx, id)
	if err != nil {
		return httpError(err)
	}
	data, err := h.renderer.Invoice(*inv)
	if err != nil {
		return httpError(err)
	}
	return pdfResponse(c, fmt.Sprintf("invoice-%s.pdf", inv.Number), data)
}

// SendInvoice renders the invoice and mails it to the order's customer.
// Unlike order notifications, a failed send is reported to the caller.
func (h *Handler) SendInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.orders.Get(ctx, id)
	if err != nil {
		return httpError(err)
	}
	inv, err := h.documents.BuildInvoice(ctx, id)
	if err != nil {
		return httpError(err)
	}
	data, err := h.renderer.Invoice(*inv)
	if err != nil {
		return httpError(err)
	}
	if err := h.invoices.InvoiceIssued(ctx, *d, *inv, data); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "invoice mail failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"invoice": inv.Number})
}

// ProductionList renders the aggregated production quantities for all pending
// orders as a PDF.
func (h *Handler) ProductionList(c echo.Context) error {
	list, err := h.documents.BuildProductionList(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	data, err := h.renderer.ProductionList(*list)
	if err != nil {
		return httpError(err)
	}
	return pdfResponse(c, "production-list.pdf", data)
}

// CustomerOverview renders the per-day customer route sheets as a PDF.
func (h *Handler) CustomerOverview(c echo.Context) error {
	overview, err := h.documents.BuildCustomerOverview(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	data, err := h.renderer.CustomerOverview(*overview)
	if err != nil {
		return httpError(err)
	}
	return pdfResponse(c, "customer-overview.pdf", data)
}
