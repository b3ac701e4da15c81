package order

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sebastiaan36/louman/internal/domain/cart"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/pricing"
	"github.com/sebastiaan36/louman/internal/domain/product"
)

// Service encapsulates the order lifecycle: placement from a cart, staff
// creation, item reconciliation, status transitions and search.
type Service struct {
	orders    Repository
	products  product.Repository
	carts     cart.Repository
	customers customer.Repository
	addresses customer.AddressRepository
	notifier  Notifier
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	products product.Repository,
	carts cart.Repository,
	customers customer.Repository,
	addresses customer.AddressRepository,
	notifier Notifier,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		carts:     carts,
		customers: customers,
		addresses: addresses,
		notifier:  notifier,
	}
}

// PlaceOrderRequest holds the input for placing an order from the cart.
type PlaceOrderRequest struct {
	DeliveryAddressID *int64
	Notes             string
}

// PlaceOrder turns the customer's cart into a pending order. Prices are
// computed live per the customer's discount and frozen onto the order items;
// the order, its items and the cart clear are committed in one transaction.
// Both notification copies are sent after commit and cannot fail the order.
func (s *Service) PlaceOrder(ctx context.Context, c customer.Customer, req PlaceOrderRequest) (*Detail, error) {
	cartItems, err := s.carts.ListByCustomer(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]int64, len(cartItems))
	for i, item := range cartItems {
		ids[i] = item.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Every cart product must still be orderable, otherwise the whole
	// placement aborts naming the offending product.
	for _, item := range cartItems {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, product.ErrNotFound
		}
		if !p.IsActive {
			return nil, &cart.ProductUnavailableError{Title: p.Title}
		}
		if !p.InStock {
			return nil, &cart.ProductUnavailableError{Title: p.Title, OutOfStock: true}
		}
	}

	addr, err := s.resolveAddress(ctx, c.ID, req.DeliveryAddressID)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(cartItems))
	details := make([]ItemDetail, len(cartItems))
	total := decimal.Zero
	for i, ci := range cartItems {
		p := byID[ci.ProductID]
		price := pricing.PriceFor(p, c)
		items[i] = Item{
			ProductID: p.ID,
			Quantity:  ci.Quantity,
			Price:     price,
		}
		total = total.Add(items[i].Subtotal())
		details[i] = ItemDetail{Item: items[i], Product: p}
	}

	o := &Order{
		CustomerID:        c.ID,
		DeliveryAddressID: req.DeliveryAddressID,
		Status:            StatusPending,
		Total:             total.Round(2),
		Notes:             req.Notes,
	}
	if err := s.orders.CreateWithItems(ctx, o, items, c.ID); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	for i := range details {
		details[i].OrderID = o.ID
	}
	detail := &Detail{Order: *o, Items: details, Customer: c, Address: addr}

	s.notifier.OrderPlaced(ctx, *detail)

	return detail, nil
}

// InputLine is one product/quantity pair supplied by staff.
type InputLine struct {
	ProductID int64
	Quantity  int
}

// AdminCreateRequest holds the input for staff order creation.
type AdminCreateRequest struct {
	CustomerID        int64
	DeliveryAddressID *int64
	Lines             []InputLine
	Notes             string
}

// AdminCreate creates an order on behalf of a customer, with arbitrary
// products and quantities. Prices are captured through the pricing engine for
// the designated customer; the write is transactional like PlaceOrder but the
// customer's cart is left untouched and no notifications fire.
func (s *Service) AdminCreate(ctx context.Context, req AdminCreateRequest) (*Detail, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyItems
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, cart.ErrInvalidQuantity
		}
	}

	c, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	addr, err := s.resolveAddress(ctx, c.ID, req.DeliveryAddressID)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(req.Lines))
	details := make([]ItemDetail, len(req.Lines))
	total := decimal.Zero
	for i, line := range req.Lines {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		price := pricing.PriceFor(*p, *c)
		items[i] = Item{ProductID: p.ID, Quantity: line.Quantity, Price: price}
		total = total.Add(items[i].Subtotal())
		details[i] = ItemDetail{Item: items[i], Product: *p}
	}

	o := &Order{
		CustomerID:        c.ID,
		DeliveryAddressID: req.DeliveryAddressID,
		Status:            StatusPending,
		Total:             total.Round(2),
		Notes:             req.Notes,
	}
	if err := s.orders.CreateWithItems(ctx, o, items, 0); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	for i := range details {
		details[i].OrderID = o.ID
	}
	return &Detail{Order: *o, Items: details, Customer: *c, Address: addr}, nil
}

// UpdateLine is one submitted line of an order edit. ItemID zero means a new
// line; new lines are priced at the product's current price for the order's
// customer, not the original order price.
type UpdateLine struct {
	ItemID    int64
	ProductID int64
	Quantity  int
}

// UpdateRequest holds the input for editing an order's items and notes.
type UpdateRequest struct {
	Lines []UpdateLine
	Notes string
}

// Update reconciles the submitted lines against the order's existing items:
// lines with an item id update quantity in place, lines without one are
// inserted at current prices, and existing items absent from the submission
// are deleted. The total is recomputed over the resulting item set. Orders in
// a terminal status cannot be edited.
func (s *Service) Update(ctx context.Context, orderID int64, req UpdateRequest) (*Detail, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyItems
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, cart.ErrInvalidQuantity
		}
	}

	detail, err := s.orders.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if detail.Status.Locked() {
		return nil, ErrLocked
	}

	existing := make(map[int64]ItemDetail, len(detail.Items))
	for _, item := range detail.Items {
		existing[item.Item.ID] = item
	}

	var upserts []Item
	total := decimal.Zero
	kept := make(map[int64]bool, len(req.Lines))

	for _, line := range req.Lines {
		if line.ItemID != 0 {
			prev, ok := existing[line.ItemID]
			if !ok {
				// Unknown item ids are ignored, matching form resubmits
				// racing a concurrent delete.
				continue
			}
			item := prev.Item
			item.Quantity = line.Quantity
			upserts = append(upserts, item)
			total = total.Add(item.Subtotal())
			kept[item.ID] = true
			continue
		}

		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		item := Item{
			OrderID:   orderID,
			ProductID: p.ID,
			Quantity:  line.Quantity,
			Price:     pricing.PriceFor(*p, detail.Customer),
		}
		upserts = append(upserts, item)
		total = total.Add(item.Subtotal())
	}

	var deleteIDs []int64
	for id := range existing {
		if !kept[id] {
			deleteIDs = append(deleteIDs, id)
		}
	}

	err = s.orders.UpdateItems(ctx, orderID, upserts, deleteIDs, total.Round(2), req.Notes)
	if err != nil {
		return nil, errors.Wrap(err, "update order items")
	}

	return s.orders.GetDetail(ctx, orderID)
}

// UpdateStatus writes the new status. Landing on completed from any other
// status fires the shipped notification; a failed send is logged by the
// notifier and never fails the transition.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	detail, err := s.orders.GetDetail(ctx, orderID)
	if err != nil {
		return err
	}
	previous := detail.Status

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return errors.Wrap(err, "update status")
	}

	if status == StatusCompleted && previous != StatusCompleted {
		detail.Status = status
		s.notifier.OrderShipped(ctx, *detail)
	}

	return nil
}

// BulkUpdateStatus applies one status to a set of orders. Batch transitions
// do not send per-order shipped notifications.
func (s *Service) BulkUpdateStatus(ctx context.Context, orderIDs []int64, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if len(orderIDs) == 0 {
		return ErrEmptyItems
	}

	return s.orders.BulkUpdateStatus(ctx, orderIDs, status)
}

// GetForCustomer loads an order and verifies it belongs to the customer.
func (s *Service) GetForCustomer(ctx context.Context, c customer.Customer, orderID int64) (*Detail, error) {
	detail, err := s.orders.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if detail.CustomerID != c.ID {
		return nil, ErrForbidden
	}
	return detail, nil
}

// Get loads an order aggregate without an ownership check, for staff use.
func (s *Service) Get(ctx context.Context, orderID int64) (*Detail, error) {
	return s.orders.GetDetail(ctx, orderID)
}

// Search lists orders filtered by status and a free-text query. The query
// matches the numeric order id, with or without a leading "#", or a
// case-insensitive substring of the customer's company name. Unknown status
// values are rejected.
func (s *Service) Search(ctx context.Context, status Status, query string, customerID int64) ([]Summary, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	f := Filter{Status: status, CustomerID: customerID}
	q := strings.TrimSpace(query)
	if trimmed := strings.TrimPrefix(q, "#"); trimmed != q {
		q = trimmed
	}
	if q != "" {
		if id, err := strconv.ParseInt(q, 10, 64); err == nil {
			f.QueryID = id
		}
		f.Query = q
	}

	return s.orders.Search(ctx, f)
}

// resolveAddress validates that the optional delivery address belongs to the
// customer and returns it. A nil id falls back to the customer's main address
// (represented by a nil result).
func (s *Service) resolveAddress(ctx context.Context, customerID int64, addressID *int64) (*customer.DeliveryAddress, error) {
	if addressID == nil {
		return nil, nil
	}
	addr, err := s.addresses.GetByID(ctx, *addressID)
	if err != nil {
		if errors.Is(err, customer.ErrAddressNotFound) {
			return nil, ErrInvalidAddress
		}
		return nil, errors.Wrap(err, "get delivery address")
	}
	if addr.CustomerID != customerID {
		return nil, ErrInvalidAddress
	}
	return addr, nil
}
